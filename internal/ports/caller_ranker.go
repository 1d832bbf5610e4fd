package ports

import "github.com/jfcl7/jcblock/internal/domain"

// CallerRanker tracks call frequency per number over a sliding window of
// ticks.
type CallerRanker interface {
	Observe(number string)
	Tick()
	Top() []domain.CallerCount
}
