package desktop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// ErrInvalidSoundFile is returned for paths that are not absolute .wav files.
var ErrInvalidSoundFile = errors.New("sound file must be an absolute path to a .wav file")

// Compile-time interface satisfaction check.
var _ driven.SoundPlayer = (*SoundPlayer)(nil)

// SoundPlayer plays a custom .wav file in the background. While one sound is
// playing, further requests are dropped.
type SoundPlayer struct {
	run     Runner
	goos    string
	playing atomic.Bool
	// done, when set, receives after each background playback finishes.
	done chan<- error
}

// NewSoundPlayer creates a SoundPlayer for the running OS.
func NewSoundPlayer() *SoundPlayer {
	return &SoundPlayer{run: ExecRunner, goos: runtime.GOOS}
}

// NewSoundPlayerFor creates a SoundPlayer with an explicit runner and OS.
// done may be nil.
func NewSoundPlayerFor(run Runner, goos string, done chan<- error) *SoundPlayer {
	return &SoundPlayer{run: run, goos: goos, done: done}
}

// Play validates path and starts playback. It returns once playback has
// started, or immediately when another sound is still playing.
func (p *SoundPlayer) Play(_ context.Context, path string) error {
	if !filepath.IsAbs(path) || !strings.EqualFold(filepath.Ext(path), ".wav") {
		return fmt.Errorf("play %q: %w", path, ErrInvalidSoundFile)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("play %q: %w", path, err)
	}
	_ = f.Close()

	candidates, err := p.commands(path)
	if err != nil {
		return err
	}

	if !p.playing.CompareAndSwap(false, true) {
		slog.Debug("sound already playing, skipping", "path", path)
		return nil
	}

	go func() {
		err := runFirst(context.Background(), p.run, candidates)
		p.playing.Store(false)
		if err != nil {
			slog.Warn("custom sound playback failed", "path", path, "error", err)
		}
		if p.done != nil {
			p.done <- err
		}
	}()

	return nil
}

func (p *SoundPlayer) commands(path string) ([]command, error) {
	switch p.goos {
	case "linux":
		return []command{
			{name: "paplay", args: []string{path}},
			{name: "aplay", args: []string{"-q", path}},
		}, nil
	case "darwin":
		return []command{{name: "afplay", args: []string{path}}}, nil
	case "windows":
		return []command{powershell(`(New-Object Media.SoundPlayer ` + psQuote(path) + `).PlaySync()`)}, nil
	default:
		return nil, fmt.Errorf("play sound on %s: %w", p.goos, ErrUnsupportedPlatform)
	}
}
