package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	cronadapter "github.com/ericfisherdev/ghnotify/internal/adapter/driven/cron"
	"github.com/ericfisherdev/ghnotify/internal/adapter/driven/desktop"
	githubadapter "github.com/ericfisherdev/ghnotify/internal/adapter/driven/github"
	"github.com/ericfisherdev/ghnotify/internal/adapter/driven/metrics"
	sqliteadapter "github.com/ericfisherdev/ghnotify/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/ghnotify/internal/adapter/driven/statusboard"
	httphandler "github.com/ericfisherdev/ghnotify/internal/adapter/driving/http"
	"github.com/ericfisherdev/ghnotify/internal/adapter/driving/settingsfile"
	"github.com/ericfisherdev/ghnotify/internal/application"
	"github.com/ericfisherdev/ghnotify/internal/config"
	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the notification agent",
	Long: `Start the agent in the foreground. It polls GitHub, delivers desktop
notifications and serves the control API used by the other commands.

Configuration comes from GHNOTIFY_* environment variables or a .env file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAgent(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runAgent(parent context.Context) error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"settings_file", cfg.SettingsFile,
		"encryption", cfg.SecretKey != nil,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	// 5. Wire driven adapters.
	credentials := sqliteadapter.NewCredentialRepo(db, cfg.SecretKey)
	settingsStore := sqliteadapter.NewSettingsRepo(db)
	seenStore := sqliteadapter.NewSeenRepo(db)
	snoozeStore := sqliteadapter.NewSnoozeRepo(db)

	factory, err := clientFactory(cfg.GitHubAPIURL)
	if err != nil {
		return err
	}
	provider := application.NewGitHubClientProvider(factory)

	scheduler := cronadapter.New(logger)
	board := statusboard.New()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pollMetrics := metrics.NewPoll(registry)

	dispatcher := application.NewDispatcher(desktop.NewToaster(), desktop.NewSpeaker(), desktop.NewSoundPlayer(), logger)

	// 6. Application services. Change hooks stay inert until boot so the
	// settings file and env token can be applied first.
	pollSvc := application.NewPollService(application.PollServiceDeps{
		Provider:    provider,
		Credentials: credentials,
		Settings:    settingsStore,
		Seen:        seenStore,
		Snooze:      snoozeStore,
		Suppression: application.NewSuppressionPolicy(snoozeStore, settingsStore, time.Now, logger),
		Notifier:    dispatcher,
		Status:      board,
		Scheduler:   scheduler,
		Metrics:     pollMetrics,
		Logger:      logger,
	})

	var booted atomic.Bool
	restart := func(ctx context.Context) error {
		if !booted.Load() {
			return nil
		}
		return pollSvc.RestartPolling(ctx)
	}
	settingsSvc := application.NewSettingsService(settingsStore, restart)
	tokenSvc := application.NewTokenService(credentials, provider, application.NewConnectionTester(factory), restart)

	if cfg.HasBootstrapToken() {
		if err := tokenSvc.Save(ctx, cfg.GitHubToken); err != nil {
			return fmt.Errorf("store GHNOTIFY_GITHUB_TOKEN: %w", err)
		}
	}

	var watcher *settingsfile.Watcher
	if cfg.SettingsFile != "" {
		watcher = settingsfile.New(cfg.SettingsFile, settingsSvc, logger)
		if err := watcher.Apply(ctx); err != nil {
			return err
		}
	}

	// 7. Boot polling.
	if err := pollSvc.Boot(ctx); err != nil {
		slog.Error("initial poll failed", "error", err)
	}
	booted.Store(true)

	if watcher != nil {
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				slog.Error("settings watcher failed", "error", err)
			}
		}()
	}

	// 8. Control API.
	apiHandler := httphandler.NewHandler(pollSvc, settingsSvc, tokenSvc, board, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, registry, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	notifySystemd(daemon.SdNotifyReady)
	slog.Info("ghnotify started", "version", version, "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal or a server failure.
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		slog.Error("http server error", "error", err)
		stop()
	}
	slog.Info("shutting down")
	notifySystemd(daemon.SdNotifyStopping)

	// 10. Graceful shutdown.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pollSvc.StopPolling()
	scheduler.Stop(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// clientFactory builds GitHub clients for github.com, or for the given
// Enterprise API root when apiURL is set.
func clientFactory(apiURL string) (application.GitHubClientFactory, error) {
	if apiURL == "" {
		return func(token string) driven.GitHubClient {
			return githubadapter.NewClient(token)
		}, nil
	}

	// Validate once so the factory itself cannot fail.
	if _, err := githubadapter.NewClientForBaseURL(apiURL, ""); err != nil {
		return nil, fmt.Errorf("GHNOTIFY_GITHUB_API_URL: %w", err)
	}
	return func(token string) driven.GitHubClient {
		client, _ := githubadapter.NewClientForBaseURL(apiURL, token)
		return client
	}, nil
}

// notifySystemd reports lifecycle state when running under systemd.
func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		slog.Warn("systemd notify failed", "state", state, "error", err)
		return
	}
	if sent {
		slog.Debug("systemd notified", "state", state)
	}
}
