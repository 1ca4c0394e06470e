package driven

import (
	"context"

	"github.com/ericfisherdev/ghnotify/internal/domain/model"
)

// SettingsStore persists the user settings document. Callers validate before Save.
type SettingsStore interface {
	// Get returns the stored settings, or model.DefaultSettings when none were saved.
	Get(ctx context.Context) (model.Settings, error)
	Save(ctx context.Context, settings model.Settings) error
}
