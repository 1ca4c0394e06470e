package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ericfisherdev/ghnotify/internal/domain/model"
	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SeenStore = (*SeenRepo)(nil)

// SeenRepo persists the seen-set in the seen_prs table.
type SeenRepo struct {
	db *DB
}

// NewSeenRepo creates a new SeenRepo.
func NewSeenRepo(db *DB) *SeenRepo {
	return &SeenRepo{db: db}
}

// List returns every seen entry ordered by first sighting.
func (r *SeenRepo) List(ctx context.Context) ([]model.SeenEntry, error) {
	const query = `SELECT pr_key, seen_at_ms FROM seen_prs ORDER BY seen_at_ms, pr_key`
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list seen entries: %w", err)
	}
	defer rows.Close()

	entries := []model.SeenEntry{}
	for rows.Next() {
		var key string
		var ms int64
		if err := rows.Scan(&key, &ms); err != nil {
			return nil, fmt.Errorf("scan seen entry: %w", err)
		}
		entries = append(entries, model.SeenEntry{Key: key, SeenAt: time.UnixMilli(ms)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seen entries: %w", err)
	}

	return entries, nil
}

// Save replaces the table contents in one transaction. A failed save leaves
// the previous set untouched.
func (r *SeenRepo) Save(ctx context.Context, entries []model.SeenEntry) error {
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM seen_prs`); err != nil {
			return fmt.Errorf("clear seen entries: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO seen_prs (pr_key, seen_at_ms) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare seen insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.Key, e.SeenAt.UnixMilli()); err != nil {
				return fmt.Errorf("insert seen entry %q: %w", e.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save seen set: %w", err)
	}
	return nil
}
