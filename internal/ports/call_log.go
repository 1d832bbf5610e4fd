package ports

import (
	"context"

	"github.com/jfcl7/jcblock/internal/domain"
)

type CallLog interface {
	Append(ctx context.Context, entry domain.CallLogEntry) error
	List(ctx context.Context) ([]domain.CallLogEntry, error)
}
