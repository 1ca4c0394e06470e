package desktop

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/cli/browser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

const appName = "GitHub Notify"

// clickWaitTimeout bounds how long a click-to-open notification is watched.
const clickWaitTimeout = 10 * time.Minute

// Compile-time interface satisfaction check.
var _ driven.Toaster = (*Toaster)(nil)

// Toaster shows desktop notifications. PR titles are untrusted, so all markup
// is stripped from the body before it reaches the notification daemon.
type Toaster struct {
	run     Runner
	goos    string
	openURL func(string) error
	policy  *bluemonday.Policy
	// detach is the context for click-wait commands that outlive Show.
	detach context.Context
}

// NewToaster creates a Toaster for the running OS.
func NewToaster() *Toaster {
	return newToaster(ExecRunner, runtime.GOOS, browser.OpenURL)
}

// NewToasterFor creates a Toaster with an explicit runner, OS and URL opener.
func NewToasterFor(run Runner, goos string, openURL func(string) error) *Toaster {
	return newToaster(run, goos, openURL)
}

func newToaster(run Runner, goos string, openURL func(string) error) *Toaster {
	return &Toaster{
		run:     run,
		goos:    goos,
		openURL: openURL,
		policy:  bluemonday.StrictPolicy(),
		detach:  context.Background(),
	}
}

// Show displays toast. When toast.URL is set and the platform supports it,
// clicking the notification opens the URL.
func (t *Toaster) Show(ctx context.Context, toast driven.Toast) error {
	// StrictPolicy leaves text HTML-escaped; notify-send renders that markup,
	// the other platforms want plain text.
	escaped := t.policy.Sanitize(toast.Body)
	plain := html.UnescapeString(escaped)
	title := html.UnescapeString(t.policy.Sanitize(toast.Title))

	switch t.goos {
	case "linux":
		return t.showLinux(ctx, title, escaped, toast)
	case "darwin":
		return t.showDarwin(ctx, title, plain, toast)
	case "windows":
		return t.showWindows(ctx, title, plain, toast)
	default:
		return fmt.Errorf("show toast on %s: %w", t.goos, ErrUnsupportedPlatform)
	}
}

func (t *Toaster) showLinux(ctx context.Context, title, body string, toast driven.Toast) error {
	args := []string{"--app-name=" + appName}
	if toast.Silent {
		args = append(args, "--hint=boolean:suppress-sound:true")
	} else {
		args = append(args, "--hint=string:sound-name:message-new-instant")
	}

	if toast.URL == "" {
		args = append(args, "--", title, body)
		if _, err := t.run(ctx, "notify-send", args...); err != nil {
			return fmt.Errorf("show toast: %w", err)
		}
		return nil
	}

	// --wait blocks until the notification closes and prints the chosen
	// action, so it runs detached from the dispatch.
	args = append(args, "--action=default=Open", "--wait", "--", title, body)
	go func() {
		waitCtx, cancel := context.WithTimeout(t.detach, clickWaitTimeout)
		defer cancel()
		out, err := t.run(waitCtx, "notify-send", args...)
		if err != nil {
			slog.Debug("toast wait ended", "error", err)
			return
		}
		if strings.TrimSpace(string(out)) == "default" {
			t.open(toast.URL)
		}
	}()
	return nil
}

func (t *Toaster) showDarwin(ctx context.Context, title, body string, toast driven.Toast) error {
	script := "display notification " + appleScriptQuote(body) + " with title " + appleScriptQuote(title)
	if !toast.Silent {
		script += ` sound name "default"`
	}
	if _, err := t.run(ctx, "osascript", "-e", script); err != nil {
		return fmt.Errorf("show toast: %w", err)
	}
	return nil
}

func (t *Toaster) showWindows(ctx context.Context, title, body string, toast driven.Toast) error {
	launch := ""
	if toast.URL != "" {
		launch = ` activationType="protocol" launch="` + html.EscapeString(toast.URL) + `"`
	}
	audio := ""
	if toast.Silent {
		audio = `<audio silent="true"/>`
	}

	lines := strings.Split(body, "\n")
	var text strings.Builder
	text.WriteString("<text>" + html.EscapeString(title) + "</text>")
	for _, line := range lines {
		text.WriteString("<text>" + html.EscapeString(line) + "</text>")
	}

	xml := `<toast` + launch + `><visual><binding template="ToastGeneric">` + text.String() + `</binding></visual>` + audio + `</toast>`

	script := strings.Join([]string{
		`[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null`,
		`[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null`,
		`$doc = New-Object Windows.Data.Xml.Dom.XmlDocument`,
		`$doc.LoadXml(` + psQuote(xml) + `)`,
		`$toast = New-Object Windows.UI.Notifications.ToastNotification $doc`,
		`[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier(` + psQuote(appName) + `).Show($toast)`,
	}, "; ")

	c := powershell(script)
	if _, err := t.run(ctx, c.name, c.args...); err != nil {
		return fmt.Errorf("show toast: %w", err)
	}
	return nil
}

func (t *Toaster) open(url string) {
	if err := t.openURL(url); err != nil {
		slog.Warn("failed to open pull request", "url", url, "error", err)
	}
}
