package ports

import (
	"context"
	"time"

	"github.com/jfcl7/jcblock/internal/domain"
)

type PatternRepository interface {
	Kind() domain.ListKind
	Load(ctx context.Context) (*domain.PatternList, error)
	SaveMatches(ctx context.Context, list *domain.PatternList) error
	Append(ctx context.Context, entry *domain.PatternEntry) error
	Purge(ctx context.Context, list *domain.PatternList, lifetime time.Duration, now time.Time) ([]domain.PurgedEntry, error)
}
