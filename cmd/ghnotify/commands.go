package main

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	httphandler "github.com/ericfisherdev/ghnotify/internal/adapter/driving/http"
	"github.com/ericfisherdev/ghnotify/internal/adapter/driving/settingsfile"
	"github.com/ericfisherdev/ghnotify/internal/domain/model"
)

// ---------------------------------------------------------------------------
// Polling
// ---------------------------------------------------------------------------

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var status httphandler.StatusResponse
		if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodGet, "/api/v1/status", nil, &status); err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), status)
		return nil
	},
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Check GitHub now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var status httphandler.StatusResponse
		if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodPost, "/api/v1/poll", nil, &status); err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), status)
		return nil
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause polling",
	Args:  cobra.NoArgs,
	RunE:  actionCommand("/api/v1/polling/pause", "Polling paused."),
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume polling",
	Args:  cobra.NoArgs,
	RunE:  actionCommand("/api/v1/polling/resume", "Polling resumed."),
}

// ---------------------------------------------------------------------------
// Snooze
// ---------------------------------------------------------------------------

var snoozeCmd = &cobra.Command{
	Use:   "snooze MINUTES",
	Short: "Silence notifications for a number of minutes",
	Long: `Silence notifications for a number of minutes. New pull requests found
while snoozed are marked seen and not announced later.

  ghnotify snooze 30        Silence for half an hour
  ghnotify snooze cancel    End the snooze now`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, err := strconv.Atoi(args[0])
		if err != nil || minutes <= 0 {
			return fmt.Errorf("minutes must be a positive number, got %q", args[0])
		}

		var resp httphandler.SnoozeResponse
		if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodPost, "/api/v1/snooze", httphandler.SnoozeRequest{Minutes: minutes}, &resp); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Snoozed until %s.\n", resp.SnoozeUntil)
		return nil
	},
}

var snoozeCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "End an active snooze",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodDelete, "/api/v1/snooze", nil, nil); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Snooze cancelled.")
		return nil
	},
}

// ---------------------------------------------------------------------------
// Token
// ---------------------------------------------------------------------------

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the GitHub personal access token",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [TOKEN]",
	Short: "Store a token (reads stdin when TOKEN is omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := tokenArg(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		var resp httphandler.ActionResponse
		if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodPut, "/api/v1/token", httphandler.TokenRequest{Token: token}, &resp); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Token saved.")
		if resp.Warning != "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Warning:", resp.Warning)
		}
		return nil
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodDelete, "/api/v1/token", nil, nil); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Token removed.")
		return nil
	},
}

var tokenTestCmd = &cobra.Command{
	Use:   "test [TOKEN]",
	Short: "Test a token, or the stored one when TOKEN is omitted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req httphandler.TokenRequest
		if len(args) == 1 {
			req.Token = args[0]
		}

		var result model.ConnectionResult
		if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodPost, "/api/v1/token/test", req, &result); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Message)
		if !result.Success {
			return fmt.Errorf("connection test failed")
		}
		return nil
	},
}

// tokenArg returns the token from args or the first line of stdin.
func tokenArg(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", fmt.Errorf("no token given")
	}
	return token, nil
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or replace agent settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print current settings as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var s model.Settings
		if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodGet, "/api/v1/settings", nil, &s); err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		return enc.Close()
	},
}

var settingsApplyCmd = &cobra.Command{
	Use:   "apply FILE",
	Short: "Replace settings from a YAML file",
	Long: `Replace settings from a YAML file. Keys missing from the file take
their default values; unknown keys and invalid values reject the whole file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := settingsfile.Parse(args[0])
		if err != nil {
			return err
		}
		if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodPut, "/api/v1/settings", s, nil); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Settings applied.")
		return nil
	},
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func actionCommand(path, done string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		var resp httphandler.ActionResponse
		if err := newAPIClient(serverURL).do(cmd.Context(), http.MethodPost, path, nil, &resp); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), done)
		if resp.Warning != "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Warning:", resp.Warning)
		}
		return nil
	}
}

func printStatus(w io.Writer, s httphandler.StatusResponse) {
	fmt.Fprintf(w, "State:    %s\n", s.State)
	fmt.Fprintf(w, "Tooltip:  %s\n", strings.ReplaceAll(s.Tooltip, "\n", " | "))
	fmt.Fprintf(w, "Polling:  %t (paused: %t)\n", s.Polling, s.Paused)
	fmt.Fprintf(w, "Tracked:  %d\n", s.Tracked)
	if s.LastCycle != "" {
		fmt.Fprintf(w, "Checked:  %s\n", s.LastCycle)
	}
	if s.SnoozeUntil != "" {
		fmt.Fprintf(w, "Snoozed:  until %s\n", s.SnoozeUntil)
	}
}

func init() {
	snoozeCmd.AddCommand(snoozeCancelCmd)

	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenClearCmd)
	tokenCmd.AddCommand(tokenTestCmd)

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsApplyCmd)

	rootCmd.AddCommand(statusCmd, pollCmd, pauseCmd, resumeCmd, snoozeCmd, tokenCmd, settingsCmd)
}
