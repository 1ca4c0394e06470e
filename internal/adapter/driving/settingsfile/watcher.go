// Package settingsfile applies a YAML settings file at startup and again
// whenever the file changes on disk.
package settingsfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.yaml.in/yaml/v3"

	"github.com/ericfisherdev/ghnotify/internal/application"
	"github.com/ericfisherdev/ghnotify/internal/domain/model"
)

const (
	defaultDebounce    = 250 * time.Millisecond
	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

// Applier receives parsed settings documents.
type Applier interface {
	Update(ctx context.Context, settings model.Settings) error
}

// Watcher loads a settings file and re-applies it on change.
type Watcher struct {
	path     string
	applier  Applier
	debounce time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	lastHash uint64
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the watcher waits for writes to settle.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a Watcher for path.
func New(path string, applier Applier, logger *slog.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		path:     path,
		applier:  applier,
		debounce: defaultDebounce,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Parse reads the file as a settings document. Missing keys keep their
// default values; unknown keys are rejected.
func Parse(path string) (model.Settings, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Settings{}, nil, fmt.Errorf("read settings file: %w", err)
	}

	settings := model.DefaultSettings()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&settings); err != nil {
		if errors.Is(err, io.EOF) {
			return model.Settings{}, nil, fmt.Errorf("parse settings file %s: file is empty", path)
		}
		return model.Settings{}, nil, fmt.Errorf("parse settings file %s: %w", path, err)
	}
	return settings, raw, nil
}

// Apply parses the file and hands it to the applier. Content identical to the
// last applied version is skipped.
func (w *Watcher) Apply(ctx context.Context) error {
	settings, raw, err := Parse(w.path)
	if err != nil {
		return err
	}

	h := fnv.New64a()
	_, _ = h.Write(raw)
	sum := h.Sum64()

	w.mu.Lock()
	unchanged := sum == w.lastHash
	w.mu.Unlock()
	if unchanged {
		w.logger.Debug("settings file unchanged, skipping", "path", w.path)
		return nil
	}

	err = w.applier.Update(ctx, settings)
	if err != nil && !errors.Is(err, application.ErrNotApplied) {
		return fmt.Errorf("apply settings file: %w", err)
	}

	w.mu.Lock()
	w.lastHash = sum
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("settings file saved but not applied", "path", w.path, "error", err)
		return nil
	}
	w.logger.Info("settings file applied", "path", w.path)
	return nil
}

// Watch re-applies the file after each burst of changes until ctx is done.
// The parent directory is watched so editors that replace the file are seen.
// A broken watcher is recreated with backoff.
func (w *Watcher) Watch(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	name := filepath.Base(w.path)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			if ctx.Err() != nil {
				return
			}
			if err := w.Apply(ctx); err != nil {
				w.logger.Warn("settings file rejected", "path", w.path, "error", err)
			}
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	backoff := restartBackoffBase
	for {
		if err := w.watchOnce(ctx, dir, name, schedule); err != nil {
			w.logger.Warn("settings watcher stopped, restarting", "dir", dir, "error", err, "backoff", backoff)
		}
		if ctx.Err() != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, restartBackoffMax)
	}
}

func (w *Watcher) watchOnce(ctx context.Context, dir, name string, schedule func()) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Debug("settings watcher started", "dir", dir, "file", name)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("event channel closed")
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				schedule()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("error channel closed")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("settings watch overflow, reloading", "dir", dir)
				schedule()
				continue
			}
			w.logger.Warn("settings watch error", "dir", dir, "error", err)
		}
	}
}
