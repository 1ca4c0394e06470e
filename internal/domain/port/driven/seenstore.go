package driven

import (
	"context"

	"github.com/ericfisherdev/ghnotify/internal/domain/model"
)

// SeenStore persists the seen-set.
type SeenStore interface {
	List(ctx context.Context) ([]model.SeenEntry, error)
	// Save replaces the stored set atomically.
	Save(ctx context.Context, entries []model.SeenEntry) error
}
