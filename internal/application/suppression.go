package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/ghnotify/internal/domain/model"
	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// SuppressionPolicy decides whether notification delivery is currently
// suppressed by a manual snooze or by the daily quiet-hours window.
type SuppressionPolicy struct {
	snooze   driven.SnoozeStore
	settings driven.SettingsStore
	now      func() time.Time
	logger   *slog.Logger
}

// NewSuppressionPolicy creates a policy. now defaults to time.Now and logger
// to slog.Default().
func NewSuppressionPolicy(snooze driven.SnoozeStore, settings driven.SettingsStore, now func() time.Time, logger *slog.Logger) *SuppressionPolicy {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SuppressionPolicy{snooze: snooze, settings: settings, now: now, logger: logger}
}

// Check returns why delivery is suppressed, or model.SuppressionNone.
// An expired snooze is cleared as a side effect.
func (p *SuppressionPolicy) Check(ctx context.Context) (model.SuppressionReason, error) {
	now := p.now()

	until, err := p.snooze.Until(ctx)
	if err != nil {
		return model.SuppressionNone, fmt.Errorf("load snooze: %w", err)
	}
	if !until.IsZero() {
		if now.Before(until) {
			return model.SuppressionSnooze, nil
		}
		if err := p.snooze.ClearIfExpired(ctx, now); err != nil {
			return model.SuppressionNone, fmt.Errorf("clear expired snooze: %w", err)
		}
	}

	settings, err := p.settings.Get(ctx)
	if err != nil {
		return model.SuppressionNone, fmt.Errorf("load settings: %w", err)
	}
	if settings.QuietHours.Enabled && settings.QuietHours.Contains(now) {
		return model.SuppressionQuietHours, nil
	}

	return model.SuppressionNone, nil
}

// IsSuppressed is Check without the error; store failures are logged and
// treated as not suppressed.
func (p *SuppressionPolicy) IsSuppressed(ctx context.Context) bool {
	reason, err := p.Check(ctx)
	if err != nil {
		p.logger.Warn("suppression check failed", "error", err)
		return false
	}
	return reason != model.SuppressionNone
}

// SnoozedUntil returns the active snooze deadline, or the zero time.
func (p *SuppressionPolicy) SnoozedUntil(ctx context.Context) (time.Time, error) {
	until, err := p.snooze.Until(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("load snooze: %w", err)
	}
	if until.IsZero() || !p.now().Before(until) {
		return time.Time{}, nil
	}
	return until, nil
}
