package settingsfile_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ghnotify/internal/adapter/driving/settingsfile"
	"github.com/ericfisherdev/ghnotify/internal/application"
	"github.com/ericfisherdev/ghnotify/internal/domain/model"
)

type recordingApplier struct {
	mu      sync.Mutex
	applied []model.Settings
	err     error
	ch      chan model.Settings
}

func newRecordingApplier() *recordingApplier {
	return &recordingApplier{ch: make(chan model.Settings, 8)}
}

func (r *recordingApplier) Update(_ context.Context, s model.Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %w", application.ErrInvalidSettings, err)
	}
	r.mu.Lock()
	r.applied = append(r.applied, s)
	r.mu.Unlock()
	r.ch <- s
	return r.err
}

func (r *recordingApplier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.applied)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestParse_KeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeFile(t, path, `
poll_interval: 120
notification_mode: tts
filters:
  - acme/
quiet_hours:
  enabled: true
  start: "23:00"
`)

	s, _, err := settingsfile.Parse(path)
	require.NoError(t, err)

	assert.Equal(t, 120, s.PollInterval)
	assert.Equal(t, model.NotificationMode("tts"), s.NotificationMode)
	assert.Equal(t, []string{"acme/"}, s.Filters)
	assert.True(t, s.QuietHours.Enabled)
	assert.Equal(t, "23:00", s.QuietHours.Start)
	assert.Equal(t, "08:00", s.QuietHours.End)
	assert.Equal(t, model.SoundDefault, s.SoundMode)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "poll_every: 60\n"},
		{"wrong type", "poll_interval: often\n"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yaml")
			writeFile(t, path, tt.content)

			_, _, err := settingsfile.Parse(path)
			assert.Error(t, err)
		})
	}
}

func TestApply_SkipsUnchangedContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeFile(t, path, "poll_interval: 600\n")
	applier := newRecordingApplier()
	w := settingsfile.New(path, applier, discardLogger())

	require.NoError(t, w.Apply(context.Background()))
	require.NoError(t, w.Apply(context.Background()))

	assert.Equal(t, 1, applier.count())
}

func TestApply_InvalidDocumentRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeFile(t, path, "poll_interval: 5\n")
	applier := newRecordingApplier()
	w := settingsfile.New(path, applier, discardLogger())

	err := w.Apply(context.Background())

	require.ErrorIs(t, err, application.ErrInvalidSettings)
	assert.Zero(t, applier.count())
}

func TestApply_SavedButNotAppliedIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeFile(t, path, "poll_interval: 600\n")
	applier := newRecordingApplier()
	applier.err = fmt.Errorf("%w: %w", application.ErrNotApplied, errors.New("offline"))
	w := settingsfile.New(path, applier, discardLogger())

	assert.NoError(t, w.Apply(context.Background()))
}

func TestWatch_ReappliesOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeFile(t, path, "poll_interval: 600\n")
	applier := newRecordingApplier()
	w := settingsfile.New(path, applier, discardLogger(), settingsfile.WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Watch(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Keep rewriting until the watcher is registered and picks a change up.
	var got model.Settings
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("poll_interval: 900\n"), 0o600)
		select {
		case got = <-applier.ch:
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 900, got.PollInterval)

	// An invalid edit is rejected and the previous document stays in effect.
	writeFile(t, path, "poll_interval: 1\n")
	select {
	case s := <-applier.ch:
		t.Fatalf("invalid settings applied: %+v", s)
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, 1, applier.count())
}
