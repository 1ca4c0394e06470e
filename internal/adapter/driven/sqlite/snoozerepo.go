package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SnoozeStore = (*SnoozeRepo)(nil)

// SnoozeRepo persists the snooze deadline in a single-row table as Unix
// milliseconds; 0 means no snooze.
type SnoozeRepo struct {
	db *DB
}

// NewSnoozeRepo creates a new SnoozeRepo.
func NewSnoozeRepo(db *DB) *SnoozeRepo {
	return &SnoozeRepo{db: db}
}

// Until returns the snooze deadline, or the zero time.
func (r *SnoozeRepo) Until(ctx context.Context) (time.Time, error) {
	var ms int64
	err := r.db.Reader.QueryRowContext(ctx, `SELECT until_ms FROM snooze WHERE id = 1`).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get snooze: %w", err)
	}
	if ms == 0 {
		return time.Time{}, nil
	}
	return time.UnixMilli(ms), nil
}

// Set stores the snooze deadline.
func (r *SnoozeRepo) Set(ctx context.Context, until time.Time) error {
	return r.write(ctx, until.UnixMilli())
}

// Clear removes any snooze.
func (r *SnoozeRepo) Clear(ctx context.Context) error {
	return r.write(ctx, 0)
}

// ClearIfExpired clears the deadline only when it is set and not after now.
// The check and the clear are one statement.
func (r *SnoozeRepo) ClearIfExpired(ctx context.Context, now time.Time) error {
	const query = `UPDATE snooze SET until_ms = 0 WHERE id = 1 AND until_ms != 0 AND until_ms <= ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, now.UnixMilli()); err != nil {
		return fmt.Errorf("clear expired snooze: %w", err)
	}
	return nil
}

func (r *SnoozeRepo) write(ctx context.Context, ms int64) error {
	const query = `INSERT INTO snooze (id, until_ms) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET until_ms = excluded.until_ms`
	if _, err := r.db.Writer.ExecContext(ctx, query, ms); err != nil {
		return fmt.Errorf("save snooze: %w", err)
	}
	return nil
}
