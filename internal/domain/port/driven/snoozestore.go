package driven

import (
	"context"
	"time"
)

// SnoozeStore persists the manual snooze deadline. A zero time means no snooze.
type SnoozeStore interface {
	Until(ctx context.Context) (time.Time, error)
	Set(ctx context.Context, until time.Time) error
	Clear(ctx context.Context) error
	// ClearIfExpired clears the deadline only if it is set and not after now,
	// in a single atomic step, so a concurrent Set is never overwritten.
	ClearIfExpired(ctx context.Context, now time.Time) error
}
