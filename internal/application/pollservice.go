// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/ghnotify/internal/domain/model"
	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// pruneEveryCycles is how many completed cycles pass between seen-set prunes.
const pruneEveryCycles = 12

// Tooltips published to the status sink.
const (
	tooltipUnconfigured = "GitHub Notify - No token configured"
	tooltipUnauthorized = "GitHub Notify - Token invalid"
	tooltipIdle         = "GitHub Notify"
)

// PollServiceDeps groups the collaborators of a PollService.
type PollServiceDeps struct {
	Provider    *GitHubClientProvider
	Credentials driven.CredentialStore
	Settings    driven.SettingsStore
	Seen        driven.SeenStore
	Snooze      driven.SnoozeStore
	Suppression *SuppressionPolicy
	Notifier    Notifier
	Status      driven.StatusSink
	Scheduler   driven.Scheduler
	// Metrics is optional.
	Metrics driven.PollMetrics
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// PollService orchestrates periodic GitHub polling, new-PR detection,
// suppression and notification delivery. At most one cycle runs at a time;
// overlapping triggers are dropped.
type PollService struct {
	provider    *GitHubClientProvider
	credentials driven.CredentialStore
	settings    driven.SettingsStore
	seen        driven.SeenStore
	snooze      driven.SnoozeStore
	suppression *SuppressionPolicy
	notifier    Notifier
	status      driven.StatusSink
	scheduler   driven.Scheduler
	metrics     driven.PollMetrics
	logger      *slog.Logger
	now         func() time.Time

	inFlight atomic.Bool
	paused   atomic.Bool

	// lifecycle serializes scheduling changes so each start replaces exactly
	// one task.
	lifecycle sync.Mutex
	// seenMu covers seen-set read-modify-write sequences.
	seenMu sync.Mutex

	mu               sync.Mutex
	base             context.Context
	pollTask         driven.Task
	snoozeTask       driven.Task
	cyclesSincePrune int
	state            model.TrayState
	lastCycle        time.Time
	lastTracked      int
}

// NewPollService creates a PollService from its dependencies.
func NewPollService(deps PollServiceDeps) *PollService {
	s := &PollService{
		provider:    deps.Provider,
		credentials: deps.Credentials,
		settings:    deps.Settings,
		seen:        deps.Seen,
		snooze:      deps.Snooze,
		suppression: deps.Suppression,
		notifier:    deps.Notifier,
		status:      deps.Status,
		scheduler:   deps.Scheduler,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         deps.Now,
		state:       model.TrayNormal,
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Snapshot is a point-in-time view of the orchestrator.
type Snapshot struct {
	State       model.TrayState
	Paused      bool
	Polling     bool
	InFlight    bool
	LastCycle   time.Time
	Tracked     int
	SnoozeUntil time.Time
}

// Snapshot returns the current orchestrator state.
func (s *PollService) Snapshot(ctx context.Context) Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		State:     s.state,
		Paused:    s.paused.Load(),
		Polling:   s.pollTask != nil,
		InFlight:  s.inFlight.Load(),
		LastCycle: s.lastCycle,
		Tracked:   s.lastTracked,
	}
	s.mu.Unlock()

	until, err := s.suppression.SnoozedUntil(ctx)
	if err != nil {
		s.logger.Warn("failed to read snooze for snapshot", "error", err)
	}
	snap.SnoozeUntil = until
	return snap
}

// Boot brings the agent up. Any persisted snooze is recovered; with a stored
// token polling starts, otherwise the unconfigured state is shown.
func (s *PollService) Boot(ctx context.Context) error {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()

	has, err := s.credentials.HasToken(ctx)
	if err != nil {
		return fmt.Errorf("check token: %w", err)
	}
	if has {
		s.setState(model.TrayNormal, tooltipIdle)
	} else {
		s.setState(model.TrayUnconfigured, tooltipUnconfigured)
	}

	if err := s.RecoverSnooze(ctx); err != nil {
		s.logger.Warn("snooze recovery failed", "error", err)
	}

	if !has {
		s.logger.Info("no token configured, waiting for setup")
		return nil
	}
	return s.StartPolling(ctx)
}

// StartPolling (re)schedules the periodic timer at the configured interval
// and runs one cycle immediately. It is a no-op while paused.
func (s *PollService) StartPolling(ctx context.Context) error {
	scheduled, err := s.schedule(ctx)
	if err != nil || !scheduled {
		return err
	}
	return s.PollNow(ctx)
}

// schedule replaces the periodic task. The whole stop, read, schedule
// sequence runs under lifecycle so concurrent starts cannot leak a task.
func (s *PollService) schedule(ctx context.Context) (bool, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.stopTaskLocked()
	if s.paused.Load() {
		return false, nil
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("load settings: %w", err)
	}
	interval := settings.Interval()

	base := s.baseContext()
	task := s.scheduler.Every(interval, func() {
		if err := s.PollNow(base); err != nil {
			s.logger.Error("scheduled poll failed", "error", err)
		}
	})

	s.mu.Lock()
	s.pollTask = task
	s.mu.Unlock()

	s.logger.Info("polling started", "interval", interval)
	return true, nil
}

// StopPolling cancels the periodic timer. It is safe to call repeatedly.
func (s *PollService) StopPolling() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.stopTaskLocked()
}

// stopTaskLocked requires lifecycle to be held.
func (s *PollService) stopTaskLocked() {
	s.mu.Lock()
	task := s.pollTask
	s.pollTask = nil
	s.mu.Unlock()

	if task != nil {
		task.Stop()
		s.logger.Info("polling stopped")
	}
}

// RestartPolling prunes the seen-set and restarts polling unless paused.
// It runs after settings or token changes.
func (s *PollService) RestartPolling(ctx context.Context) error {
	if err := s.pruneSeen(ctx); err != nil {
		s.logger.Warn("seen-set prune failed", "error", err)
	}

	return s.StartPolling(ctx)
}

// Pause stops polling until Resume.
func (s *PollService) Pause() {
	s.lifecycle.Lock()
	s.paused.Store(true)
	s.stopTaskLocked()
	s.lifecycle.Unlock()
	s.logger.Info("polling paused")
}

// Resume clears the paused flag and starts polling.
func (s *PollService) Resume(ctx context.Context) error {
	s.paused.Store(false)
	s.logger.Info("polling resumed")
	return s.StartPolling(ctx)
}

// IsPaused reports whether polling is paused.
func (s *PollService) IsPaused() bool {
	return s.paused.Load()
}

// IsPolling reports whether the periodic timer is scheduled.
func (s *PollService) IsPolling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pollTask != nil
}

// HandleSystemResume triggers a cycle after the host wakes from sleep.
func (s *PollService) HandleSystemResume(ctx context.Context) error {
	if s.paused.Load() {
		return nil
	}
	has, err := s.credentials.HasToken(ctx)
	if err != nil {
		return fmt.Errorf("check token: %w", err)
	}
	if !has {
		return nil
	}
	s.logger.Info("system resumed, polling")
	return s.PollNow(ctx)
}

// PollNow runs one cycle. It returns immediately when paused or when a cycle
// is already in flight. Cycle failures are reported through the status sink
// and returned.
func (s *PollService) PollNow(ctx context.Context) error {
	if s.paused.Load() {
		return nil
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Debug("poll already in flight, skipping")
		return nil
	}
	defer s.inFlight.Store(false)

	cycleID := uuid.NewString()
	log := s.logger.With("cycle", cycleID)
	start := s.now()

	outcome, err := s.runCycle(ctx, log)
	if err != nil {
		outcome = driven.CycleError
		s.handleCycleError(ctx, log, err)
	}

	elapsed := s.now().Sub(start)
	s.metrics.CycleCompleted(outcome, elapsed)
	log.Debug("poll cycle finished", "outcome", outcome, "duration", elapsed)

	return err
}

func (s *PollService) runCycle(ctx context.Context, log *slog.Logger) (string, error) {
	token, err := s.credentials.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if token == "" {
		s.setState(model.TrayUnconfigured, tooltipUnconfigured)
		return driven.CycleUnconfigured, nil
	}

	client := s.provider.ForToken(token)

	username, err := client.AuthenticatedUser(ctx)
	if err != nil {
		return "", fmt.Errorf("identify user: %w", err)
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}

	var assigned, reviewRequested model.SearchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		assigned, err = client.SearchPullRequests(gctx, model.CategoryAssigned, model.CategoryAssigned.Query(username))
		if err != nil {
			return fmt.Errorf("search %s: %w", model.CategoryAssigned, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		reviewRequested, err = client.SearchPullRequests(gctx, model.CategoryReviewRequested, model.CategoryReviewRequested.Query(username))
		if err != nil {
			return fmt.Errorf("search %s: %w", model.CategoryReviewRequested, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	suppressed := s.suppression.IsSuppressed(ctx)

	if !assigned.Changed && !reviewRequested.Changed {
		s.publishHealthy(suppressed, s.trackedCount())
		log.Debug("search results unchanged")
		return driven.CycleUnchanged, nil
	}

	prs := FilterByAllowlist(MergePullRequests(assigned.PRs, reviewRequested.PRs), settings.Filters)

	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	entries, err := s.seen.List(ctx)
	if err != nil {
		return "", fmt.Errorf("load seen set: %w", err)
	}
	seen := NewSeenSet(entries)
	fresh := seen.Unseen(prs)

	if len(fresh) > 0 {
		s.metrics.NewPullRequests(len(fresh))
		if suppressed {
			log.Info("new pull requests suppressed", "count", len(fresh))
			s.metrics.DeliverySuppressed()
		} else {
			log.Info("new pull requests found", "count", len(fresh))
			s.notifier.Dispatch(ctx, fresh, settings.Delivery())
		}
	}

	now := s.now()
	seen.MarkSeen(prKeys(prs), now)

	s.mu.Lock()
	s.cyclesSincePrune++
	prune := s.cyclesSincePrune >= pruneEveryCycles
	s.mu.Unlock()

	if prune {
		if removed := seen.Prune(DefaultRetention, now); removed > 0 {
			log.Info("pruned seen set", "removed", removed)
		}
	}

	if err := s.seen.Save(ctx, seen.Entries()); err != nil {
		return "", fmt.Errorf("save seen set: %w", err)
	}

	if prune {
		s.mu.Lock()
		s.cyclesSincePrune = 0
		s.mu.Unlock()
	}

	s.metrics.Tracked(len(prs))
	s.mu.Lock()
	s.lastTracked = len(prs)
	s.mu.Unlock()

	s.publishHealthy(suppressed, len(prs))
	return driven.CycleOK, nil
}

func (s *PollService) handleCycleError(ctx context.Context, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, context.Canceled), ctx.Err() != nil:
		log.Info("poll cycle canceled", "error", err)
	case errors.Is(err, driven.ErrUnauthorized):
		log.Error("token rejected, stopping polling", "error", err)
		s.setState(model.TrayError, tooltipUnauthorized)
		s.StopPolling()
	default:
		log.Error("poll cycle failed", "error", err)
		s.setState(model.TrayError, "GitHub Notify - Error: "+err.Error())
	}
}

// ActivateSnooze suppresses delivery for the given number of minutes and
// schedules the automatic expiry.
func (s *PollService) ActivateSnooze(ctx context.Context, minutes int) (time.Time, error) {
	if minutes <= 0 {
		return time.Time{}, fmt.Errorf("snooze duration must be positive, got %d minutes", minutes)
	}

	d := time.Duration(minutes) * time.Minute
	until := s.now().Add(d)
	if err := s.snooze.Set(ctx, until); err != nil {
		return time.Time{}, fmt.Errorf("save snooze: %w", err)
	}

	s.scheduleSnoozeExpiry(d)
	s.refreshQuietState(ctx)
	s.logger.Info("snooze activated", "until", until)

	return until, nil
}

// CancelSnooze ends an active snooze immediately.
func (s *PollService) CancelSnooze(ctx context.Context) error {
	s.stopSnoozeTask()
	if err := s.snooze.Clear(ctx); err != nil {
		return fmt.Errorf("clear snooze: %w", err)
	}
	s.refreshQuietState(ctx)
	s.logger.Info("snooze cancelled")
	return nil
}

// RecoverSnooze re-arms the expiry timer for a snooze persisted before a
// restart, or clears one that already lapsed.
func (s *PollService) RecoverSnooze(ctx context.Context) error {
	until, err := s.snooze.Until(ctx)
	if err != nil {
		return fmt.Errorf("load snooze: %w", err)
	}
	if until.IsZero() {
		return nil
	}

	now := s.now()
	if now.Before(until) {
		s.scheduleSnoozeExpiry(until.Sub(now))
		s.logger.Info("snooze recovered", "until", until)
	} else if err := s.snooze.ClearIfExpired(ctx, now); err != nil {
		return fmt.Errorf("clear expired snooze: %w", err)
	}

	s.refreshQuietState(ctx)
	return nil
}

func (s *PollService) scheduleSnoozeExpiry(d time.Duration) {
	base := s.baseContext()
	task := s.scheduler.After(d, func() { s.expireSnooze(base) })

	s.mu.Lock()
	prev := s.snoozeTask
	s.snoozeTask = task
	s.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
}

// baseContext is the agent-lifetime context set by Boot. Timer callbacks use
// it rather than the context of the request that armed them.
func (s *PollService) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.base == nil {
		return context.Background()
	}
	return s.base
}

func (s *PollService) stopSnoozeTask() {
	s.mu.Lock()
	task := s.snoozeTask
	s.snoozeTask = nil
	s.mu.Unlock()

	if task != nil {
		task.Stop()
	}
}

func (s *PollService) expireSnooze(ctx context.Context) {
	if err := s.snooze.ClearIfExpired(ctx, s.now()); err != nil {
		s.logger.Error("failed to clear expired snooze", "error", err)
	}
	s.refreshQuietState(ctx)
	s.logger.Info("snooze expired")
}

// refreshQuietState toggles between normal and quiet; error and unconfigured
// states are left alone.
func (s *PollService) refreshQuietState(ctx context.Context) {
	s.mu.Lock()
	current := s.state
	s.mu.Unlock()

	if current != model.TrayNormal && current != model.TrayQuiet {
		return
	}

	next := model.TrayNormal
	if s.suppression.IsSuppressed(ctx) {
		next = model.TrayQuiet
	}
	if next != current {
		s.setStatusOnly(next)
	}
}

func (s *PollService) pruneSeen(ctx context.Context) error {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	entries, err := s.seen.List(ctx)
	if err != nil {
		return fmt.Errorf("load seen set: %w", err)
	}
	set := NewSeenSet(entries)
	if set.Prune(DefaultRetention, s.now()) == 0 {
		return nil
	}
	if err := s.seen.Save(ctx, set.Entries()); err != nil {
		return fmt.Errorf("save seen set: %w", err)
	}
	return nil
}

func (s *PollService) publishHealthy(suppressed bool, tracked int) {
	state := model.TrayNormal
	if suppressed {
		state = model.TrayQuiet
	}
	now := s.now()
	s.mu.Lock()
	s.lastCycle = now
	s.mu.Unlock()

	tooltip := fmt.Sprintf("GitHub Notify - %d PRs tracked\nLast check: %s", tracked, now.Format("15:04:05"))
	s.setState(state, tooltip)
}

func (s *PollService) trackedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTracked
}

func (s *PollService) setState(state model.TrayState, tooltip string) {
	s.setStatusOnly(state)
	s.status.SetTooltip(tooltip)
}

func (s *PollService) setStatusOnly(state model.TrayState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.status.SetStatus(state)
}

type nopMetrics struct{}

func (nopMetrics) CycleCompleted(string, time.Duration) {}
func (nopMetrics) NewPullRequests(int)                  {}
func (nopMetrics) DeliverySuppressed()                  {}
func (nopMetrics) Tracked(int)                          {}
