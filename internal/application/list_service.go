package application

import (
	"context"
	"fmt"
	"time"

	"github.com/jfcl7/jcblock/internal/domain"
	"github.com/jfcl7/jcblock/internal/ports"
)

// Decision is the outcome a call would get, without side effects.
type Decision struct {
	Outcome domain.Outcome
	Entry   *domain.PatternEntry
}

// ListService maintains the lists outside of a screening session.
type ListService struct {
	allow ports.PatternRepository
	block ports.PatternRepository
	clock ports.Clock
}

func NewListService(allow, block ports.PatternRepository, clock ports.Clock) *ListService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &ListService{allow: allow, block: block, clock: clock}
}

func (s *ListService) repo(kind domain.ListKind) (ports.PatternRepository, error) {
	switch kind {
	case domain.ListAllow:
		return s.allow, nil
	case domain.ListBlock:
		return s.block, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownList, kind)
	}
}

// Show loads a list with its match history. Nothing is written.
func (s *ListService) Show(ctx context.Context, kind domain.ListKind) (*domain.PatternList, error) {
	repo, err := s.repo(kind)
	if err != nil {
		return nil, err
	}

	list, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s list: %w", kind, err)
	}

	return list, nil
}

// Add validates pattern and appends it the same way the "*" key does.
func (s *ListService) Add(ctx context.Context, kind domain.ListKind, pattern string, permanent bool, note string) (*domain.PatternEntry, error) {
	repo, err := s.repo(kind)
	if err != nil {
		return nil, err
	}

	list, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s list: %w", kind, err)
	}

	return appendPattern(ctx, repo, list, pattern, permanent, note, s.clock.Now())
}

// Check reports what screening would decide for number and name.
func (s *ListService) Check(ctx context.Context, number, name string) (Decision, error) {
	allow, err := s.Show(ctx, domain.ListAllow)
	if err != nil {
		return Decision{}, err
	}
	if entry, ok := allow.FindBoth(number, name); ok {
		return Decision{Outcome: domain.OutcomeAllow, Entry: entry}, nil
	}

	block, err := s.Show(ctx, domain.ListBlock)
	if err != nil {
		return Decision{}, err
	}
	if entry, ok := block.FindBoth(number, name); ok {
		return Decision{Outcome: domain.OutcomeBlock, Entry: entry}, nil
	}

	return Decision{Outcome: domain.OutcomeNoMatch}, nil
}

// Purge comments out stale block list entries and persists the history of
// the survivors.
func (s *ListService) Purge(ctx context.Context, lifetime time.Duration) ([]domain.PurgedEntry, error) {
	list, err := s.block.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load block list: %w", err)
	}

	purged, err := s.block.Purge(ctx, list, lifetime, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("purge block list: %w", err)
	}

	if err := s.block.SaveMatches(ctx, list); err != nil {
		return purged, fmt.Errorf("save block match history: %w", err)
	}

	return purged, nil
}
