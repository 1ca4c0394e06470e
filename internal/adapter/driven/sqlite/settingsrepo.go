package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ericfisherdev/ghnotify/internal/domain/model"
	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SettingsStore = (*SettingsRepo)(nil)

// SettingsRepo stores the settings document as a single JSON row.
type SettingsRepo struct {
	db *DB
}

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(db *DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get returns the stored settings, or model.DefaultSettings when none were
// saved. Fields absent from an older document keep their defaults.
func (r *SettingsRepo) Get(ctx context.Context) (model.Settings, error) {
	const query = `SELECT document FROM settings WHERE id = 1`
	var doc string
	err := r.db.Reader.QueryRowContext(ctx, query).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("get settings: %w", err)
	}

	settings := model.DefaultSettings()
	if err := json.Unmarshal([]byte(doc), &settings); err != nil {
		return model.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	settings.NotificationMode = settings.NotificationMode.Normalize()
	if settings.Filters == nil {
		settings.Filters = []string{}
	}

	return settings, nil
}

// Save replaces the settings document.
func (r *SettingsRepo) Save(ctx context.Context, settings model.Settings) error {
	doc, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	const query = `INSERT INTO settings (id, document, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`
	if _, err := r.db.Writer.ExecContext(ctx, query, string(doc)); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
