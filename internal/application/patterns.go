package application

import (
	"context"
	"fmt"
	"time"

	"github.com/jfcl7/jcblock/internal/domain"
	"github.com/jfcl7/jcblock/internal/ports"
)

// appendPattern validates pattern, then appends it to the list file, the
// in-memory list and the match history, in that order. Nothing is mutated
// when validation or the file append fails.
func appendPattern(ctx context.Context, repo ports.PatternRepository, list *domain.PatternList, pattern string, permanent bool, note string, now time.Time) (*domain.PatternEntry, error) {
	if _, exists := list.Get(pattern); exists {
		return nil, fmt.Errorf("add %s pattern %q: %w", list.Kind, pattern, domain.ErrPatternExists)
	}

	entry, err := domain.NewPatternEntry(pattern, permanent, note, domain.NewTimestamp(now))
	if err != nil {
		return nil, fmt.Errorf("add %s pattern: %w", list.Kind, err)
	}

	if err := repo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append %s pattern: %w", list.Kind, err)
	}
	list.Put(entry)

	if err := repo.SaveMatches(ctx, list); err != nil {
		return entry, fmt.Errorf("save %s match history: %w", list.Kind, err)
	}

	return entry, nil
}
