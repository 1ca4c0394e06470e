package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/ericfisherdev/ghnotify/internal/domain/model"
	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// MaxIndividualAlerts caps per-PR alerts in one dispatch; the rest are rolled up.
const MaxIndividualAlerts = 5

const (
	speechTitleLimit  = 100
	rollupToastTitle  = "GitHub Notify"
	speechPunctuation = ".,:;!?'-#/@()&"
)

// Notifier delivers alerts for newly discovered pull requests.
type Notifier interface {
	Dispatch(ctx context.Context, prs []model.PullRequest, prefs model.DeliveryPrefs)
}

// Dispatcher renders and emits toast, speech and sound notifications.
// Delivery failures are logged per item and never returned.
type Dispatcher struct {
	toaster driven.Toaster
	speaker driven.Speaker
	player  driven.SoundPlayer
	logger  *slog.Logger
}

var _ Notifier = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher. logger defaults to slog.Default().
func NewDispatcher(toaster driven.Toaster, speaker driven.Speaker, player driven.SoundPlayer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{toaster: toaster, speaker: speaker, player: player, logger: logger}
}

// Dispatch emits alerts for prs according to prefs. It is a no-op for an empty batch.
func (d *Dispatcher) Dispatch(ctx context.Context, prs []model.PullRequest, prefs model.DeliveryPrefs) {
	if len(prs) == 0 {
		return
	}

	individual := prs
	remaining := 0
	if len(prs) > MaxIndividualAlerts {
		individual = prs[:MaxIndividualAlerts]
		remaining = len(prs) - MaxIndividualAlerts
	}

	if prefs.Sound == model.SoundCustom && prefs.CustomSoundPath != "" {
		if err := d.player.Play(ctx, prefs.CustomSoundPath); err != nil {
			d.logger.Error("custom sound failed", "path", prefs.CustomSoundPath, "error", err)
		}
	}

	if prefs.Mode.Toast() {
		d.showToasts(ctx, individual, remaining, prefs.Sound != model.SoundDefault)
	}

	if prefs.Mode.Speech() {
		d.speakAll(ctx, individual, remaining)
	}
}

func (d *Dispatcher) showToasts(ctx context.Context, prs []model.PullRequest, remaining int, silent bool) {
	for _, pr := range prs {
		toast := driven.Toast{
			Title:  pr.RepoFullName + "#" + strconv.Itoa(pr.Number),
			Body:   pr.Title + "\nby @" + pr.Author,
			Silent: silent,
		}
		if IsGitHubURL(pr.URL) {
			toast.URL = pr.URL
		} else {
			d.logger.Warn("dropping untrusted PR url", "pr", pr.Key(), "url", pr.URL)
		}

		if err := d.toaster.Show(ctx, toast); err != nil {
			d.logger.Error("toast failed", "pr", pr.Key(), "error", err)
		}
	}

	if remaining > 0 {
		toast := driven.Toast{
			Title:  rollupToastTitle,
			Body:   fmt.Sprintf("%d more new pull requests need your attention", remaining),
			Silent: silent,
		}
		if err := d.toaster.Show(ctx, toast); err != nil {
			d.logger.Error("rollup toast failed", "remaining", remaining, "error", err)
		}
	}
}

func (d *Dispatcher) speakAll(ctx context.Context, prs []model.PullRequest, remaining int) {
	for _, pr := range prs {
		if err := d.speaker.Speak(ctx, SpeechText(pr)); err != nil {
			d.logger.Error("speech failed, skipping remaining items", "pr", pr.Key(), "error", err)
			break
		}
	}

	if remaining > 0 {
		text := fmt.Sprintf("And %d more pull requests need your attention.", remaining)
		if err := d.speaker.Speak(ctx, text); err != nil {
			d.logger.Error("rollup speech failed", "remaining", remaining, "error", err)
		}
	}
}

// SpeechText builds the sentence spoken for one pull request.
func SpeechText(pr model.PullRequest) string {
	title := pr.Title
	if runes := []rune(title); len(runes) > speechTitleLimit {
		title = string(runes[:speechTitleLimit]) + "..."
	}

	return fmt.Sprintf("New pull request in %s: %s, by %s",
		sanitizeSpeech(pr.RepoFullName),
		sanitizeSpeech(title),
		sanitizeSpeech(pr.Author),
	)
}

// sanitizeSpeech keeps letters, digits, spaces and a small punctuation set.
// Any other whitespace becomes a plain space.
func sanitizeSpeech(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case strings.ContainsRune(speechPunctuation, r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsGitHubURL reports whether raw is an https URL on github.com.
func IsGitHubURL(raw string) bool {
	if !strings.HasPrefix(raw, "https://github.com/") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "https" && u.Host == "github.com" && u.User == nil
}
