// Package statusboard keeps the latest agent status in memory for the HTTP API
// and the CLI, standing in for a tray icon.
package statusboard

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/ghnotify/internal/domain/model"
	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.StatusSink = (*Board)(nil)

// Snapshot is the published status.
type Snapshot struct {
	State     model.TrayState `json:"state"`
	Tooltip   string          `json:"tooltip"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Board is a concurrency-safe StatusSink.
type Board struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// New creates a Board in the normal state.
func New() *Board {
	return &Board{
		snap: Snapshot{State: model.TrayNormal, Tooltip: "GitHub Notify"},
		now:  time.Now,
	}
}

// SetStatus records the state, logging only transitions.
func (b *Board) SetStatus(state model.TrayState) {
	b.mu.Lock()
	prev := b.snap.State
	b.snap.State = state
	b.snap.UpdatedAt = b.now()
	b.mu.Unlock()

	if prev != state {
		slog.Info("status changed", "from", prev, "to", state)
	}
}

// SetTooltip records the tooltip text.
func (b *Board) SetTooltip(tooltip string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap.Tooltip = tooltip
	b.snap.UpdatedAt = b.now()
}

// Snapshot returns the current status.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}
