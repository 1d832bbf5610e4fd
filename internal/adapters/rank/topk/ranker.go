package topk

import (
	"github.com/jfcl7/jcblock/internal/domain"
	"github.com/jfcl7/jcblock/internal/ports"
	"github.com/keilerkonzept/topk/sliding"
)

const (
	sketchWidth = 1024
	sketchDepth = 3
)

// Ranker keeps the k most frequent callers over a sliding window of ticks.
type Ranker struct {
	sketch *sliding.Sketch
}

var _ ports.CallerRanker = (*Ranker)(nil)

func NewRanker(k, window int) *Ranker {
	return &Ranker{
		sketch: sliding.New(k, window, sliding.WithWidth(sketchWidth), sliding.WithDepth(sketchDepth)),
	}
}

func (r *Ranker) Observe(number string) {
	r.sketch.Incr(number)
}

func (r *Ranker) Tick() {
	r.sketch.Tick()
}

func (r *Ranker) Top() []domain.CallerCount {
	items := r.sketch.SortedSlice()
	top := make([]domain.CallerCount, 0, len(items))
	for _, item := range items {
		if item.Count == 0 {
			continue
		}
		top = append(top, domain.CallerCount{Number: item.Item, Count: int(item.Count)})
	}

	return top
}
