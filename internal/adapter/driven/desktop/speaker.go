package desktop

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Speaker = (*Speaker)(nil)

// Speaker reads text aloud with the platform speech engine and returns when
// speaking has finished.
type Speaker struct {
	run  Runner
	goos string
}

// NewSpeaker creates a Speaker for the running OS.
func NewSpeaker() *Speaker {
	return &Speaker{run: ExecRunner, goos: runtime.GOOS}
}

// NewSpeakerFor creates a Speaker with an explicit runner and OS.
func NewSpeakerFor(run Runner, goos string) *Speaker {
	return &Speaker{run: run, goos: goos}
}

// Speak blocks until text has been spoken.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	var candidates []command
	switch s.goos {
	case "linux":
		candidates = []command{
			{name: "espeak-ng", args: []string{text}},
			{name: "espeak", args: []string{text}},
			{name: "spd-say", args: []string{"--wait", text}},
		}
	case "darwin":
		candidates = []command{{name: "say", args: []string{text}}}
	case "windows":
		candidates = []command{powershell(
			`Add-Type -AssemblyName System.Speech; ` +
				`$s = New-Object System.Speech.Synthesis.SpeechSynthesizer; ` +
				`$s.Speak(` + psQuote(text) + `)`,
		)}
	default:
		return fmt.Errorf("speak on %s: %w", s.goos, ErrUnsupportedPlatform)
	}

	if err := runFirst(ctx, s.run, candidates); err != nil {
		return fmt.Errorf("speak: %w", err)
	}
	return nil
}
