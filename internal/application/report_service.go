package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jfcl7/jcblock/internal/domain"
	"github.com/jfcl7/jcblock/internal/ports"
)

// RankerFactory builds a ranker keeping k numbers over a window of ticks.
type RankerFactory func(k, window int) ports.CallerRanker

// ReportService summarizes the call log.
type ReportService struct {
	calls     ports.CallLog
	lists     *ListService
	newRanker RankerFactory
	clock     ports.Clock
}

func NewReportService(calls ports.CallLog, lists *ListService, newRanker RankerFactory, clock ports.Clock) *ReportService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &ReportService{calls: calls, lists: lists, newRanker: newRanker, clock: clock}
}

// TopCallers returns the most frequent callers of the last days days that
// neither list matches today. One ranker tick is one calendar day.
func (s *ReportService) TopCallers(ctx context.Context, days, limit int) ([]domain.CallerCount, error) {
	if days <= 0 || limit <= 0 {
		return nil, errors.New("top callers: days and limit must be positive")
	}

	entries, err := s.calls.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list call log: %w", err)
	}

	allow, err := s.lists.Show(ctx, domain.ListAllow)
	if err != nil {
		return nil, err
	}
	block, err := s.lists.Show(ctx, domain.ListBlock)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	today := dayNumber(now)
	first := today - days + 1
	ranker := s.newRanker(limit, days)
	current := first

	for _, entry := range entries {
		if entry.Number == "" || entry.Outcome == domain.OutcomeAllow || entry.Outcome == domain.OutcomeBlock {
			continue
		}
		at, err := entry.Timestamp.Time(now.Location())
		if err != nil {
			continue
		}
		day := dayNumber(at)
		if day < current || day > today {
			continue
		}
		if _, ok := allow.FindBoth(entry.Number, entry.Name); ok {
			continue
		}
		if _, ok := block.FindBoth(entry.Number, entry.Name); ok {
			continue
		}

		for ; current < day; current++ {
			ranker.Tick()
		}
		ranker.Observe(entry.Number)
	}
	for ; current < today; current++ {
		ranker.Tick()
	}

	top := ranker.Top()
	if len(top) > limit {
		top = top[:limit]
	}

	return top, nil
}

func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
