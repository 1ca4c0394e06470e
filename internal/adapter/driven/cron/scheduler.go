// Package cron implements the Scheduler port on robfig/cron for recurring
// tasks and runtime timers for one-shot tasks.
package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Scheduler = (*Scheduler)(nil)

// Scheduler runs recurring callbacks on a cron engine and one-shot callbacks
// on timers. A recurring callback still running when its next tick fires is
// skipped rather than queued.
type Scheduler struct {
	mu      sync.Mutex
	c       *cron.Cron
	timers  map[*afterTask]struct{}
	stopped bool
}

// New creates and starts a Scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{log: logger.With("component", "scheduler")}

	s := &Scheduler{
		c: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		timers: make(map[*afterTask]struct{}),
	}
	s.c.Start()
	return s
}

// Every runs fn every interval, first after one interval has elapsed.
// Intervals below one second are rounded up by the cron engine.
func (s *Scheduler) Every(interval time.Duration, fn func()) driven.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return noopTask{}
	}
	id := s.c.Schedule(cron.Every(interval), cron.FuncJob(fn))
	return &everyTask{c: s.c, id: id}
}

// After runs fn once after delay.
func (s *Scheduler) After(delay time.Duration, fn func()) driven.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return noopTask{}
	}

	t := &afterTask{owner: s}
	t.timer = time.AfterFunc(delay, func() {
		s.forget(t)
		fn()
	})
	s.timers[t] = struct{}{}
	return t
}

// Stop halts the cron engine and all pending timers, waiting for running
// recurring jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	timers := s.timers
	s.timers = make(map[*afterTask]struct{})
	s.mu.Unlock()

	for t := range timers {
		t.timer.Stop()
	}

	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) forget(t *afterTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, t)
}

type everyTask struct {
	c  *cron.Cron
	id cron.EntryID
}

func (t *everyTask) Stop() {
	t.c.Remove(t.id)
}

type afterTask struct {
	owner *Scheduler
	timer *time.Timer
}

func (t *afterTask) Stop() {
	t.timer.Stop()
	t.owner.forget(t)
}

type noopTask struct{}

func (noopTask) Stop() {}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
