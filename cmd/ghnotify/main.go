// ghnotify
//
// A background agent that watches GitHub for pull requests assigned to you or
// awaiting your review and announces new ones on the desktop.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "ghnotify",
	Short: "GitHub pull request notifications for the desktop",
	Long: `ghnotify polls GitHub for open pull requests assigned to you or waiting
for your review and announces new ones with desktop toasts and speech.

  ghnotify run                         Start the agent
  ghnotify token set                   Store a personal access token (reads stdin)
  ghnotify status                      Show agent status
  ghnotify poll                        Check GitHub now
  ghnotify snooze 60                   Silence notifications for an hour
  ghnotify settings apply file.yaml    Replace settings from a YAML file`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("GHNOTIFY_SERVER", "http://127.0.0.1:7077"), "agent control API URL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
