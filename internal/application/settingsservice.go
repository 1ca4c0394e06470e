package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/ghnotify/internal/domain/model"
	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// ErrInvalidSettings wraps validation failures from SettingsService.Update.
var ErrInvalidSettings = errors.New("invalid settings")

// ErrNotApplied marks a change that was saved but whose change hook failed.
var ErrNotApplied = errors.New("saved but not applied")

// SettingsService is the settings-write boundary: settings are validated as a
// whole and either saved entirely or rejected.
type SettingsService struct {
	store    driven.SettingsStore
	onChange func(ctx context.Context) error
}

// NewSettingsService creates a SettingsService. onChange runs after every
// successful save and may be nil.
func NewSettingsService(store driven.SettingsStore, onChange func(ctx context.Context) error) *SettingsService {
	return &SettingsService{store: store, onChange: onChange}
}

// Get returns the current settings.
func (s *SettingsService) Get(ctx context.Context) (model.Settings, error) {
	return s.store.Get(ctx)
}

// Update validates and saves settings, then notifies the change hook.
func (s *SettingsService) Update(ctx context.Context, settings model.Settings) error {
	settings.NotificationMode = settings.NotificationMode.Normalize()
	if settings.Filters == nil {
		settings.Filters = []string{}
	}

	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	if err := s.store.Save(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	slog.Info("settings saved",
		"poll_interval", settings.PollInterval,
		"notification_mode", settings.NotificationMode,
		"filters", len(settings.Filters),
		"quiet_hours", settings.QuietHours.Enabled,
	)

	if s.onChange != nil {
		if err := s.onChange(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrNotApplied, err)
		}
	}

	return nil
}
