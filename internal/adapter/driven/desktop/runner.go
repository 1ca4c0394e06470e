// Package desktop delivers notifications through the host's command-line
// tools: notify-send, espeak and paplay on Linux, osascript, say and afplay on
// macOS, PowerShell on Windows.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrUnsupportedPlatform is returned when no delivery tool is known for the OS.
var ErrUnsupportedPlatform = errors.New("desktop: unsupported platform")

// Runner runs a command to completion and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// command is one candidate invocation.
type command struct {
	name string
	args []string
}

// runFirst tries each candidate in order and returns at the first success.
func runFirst(ctx context.Context, run Runner, candidates []command) error {
	var errs []error
	for _, c := range candidates {
		if _, err := run(ctx, c.name, c.args...); err != nil {
			errs = append(errs, err)
			continue
		}
		return nil
	}
	return errors.Join(errs...)
}

// powershell wraps a script for a non-interactive PowerShell invocation.
func powershell(script string) command {
	return command{name: "powershell", args: []string{"-NoProfile", "-NonInteractive", "-Command", script}}
}

// psQuote quotes s as a PowerShell single-quoted string.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// appleScriptQuote quotes s as an AppleScript string literal.
func appleScriptQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
