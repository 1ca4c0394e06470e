// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults for optional variables.
const (
	DefaultListenAddr = "127.0.0.1:7077"
	DefaultDBPath     = "ghnotify.db"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr   string
	DBPath       string
	SecretKey    []byte
	GitHubToken  string
	GitHubAPIURL string
	SettingsFile string
	LogLevel     slog.Level
}

// HasBootstrapToken reports whether a token was supplied through the
// environment. The composition root stores it on startup.
func (c *Config) HasBootstrapToken() bool {
	return c.GitHubToken != ""
}

// Load reads configuration from environment variables and returns a validated
// Config. A .env file in the working directory is read first when present;
// variables already set in the environment win.
//
// Optional variables with defaults: GHNOTIFY_LISTEN_ADDR (127.0.0.1:7077),
// GHNOTIFY_DB_PATH (ghnotify.db), GHNOTIFY_LOG_LEVEL (info).
// GHNOTIFY_SECRET_KEY is 64 hex characters; without it no token can be stored.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit dotenv files. Missing files are skipped.
func LoadFiles(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{
		ListenAddr:   getenv("GHNOTIFY_LISTEN_ADDR", DefaultListenAddr),
		DBPath:       getenv("GHNOTIFY_DB_PATH", DefaultDBPath),
		GitHubToken:  strings.TrimSpace(os.Getenv("GHNOTIFY_GITHUB_TOKEN")),
		GitHubAPIURL: os.Getenv("GHNOTIFY_GITHUB_API_URL"),
		SettingsFile: os.Getenv("GHNOTIFY_SETTINGS_FILE"),
	}

	if v, ok := os.LookupEnv("GHNOTIFY_SECRET_KEY"); ok && v != "" {
		key, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("GHNOTIFY_SECRET_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("GHNOTIFY_SECRET_KEY must be 32 bytes (64 hex chars), got %d bytes", len(key))
		}
		cfg.SecretKey = key
	}

	if v, ok := os.LookupEnv("GHNOTIFY_LOG_LEVEL"); ok && v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("GHNOTIFY_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	if cfg.GitHubToken != "" && cfg.SecretKey == nil {
		return nil, errors.New("GHNOTIFY_GITHUB_TOKEN requires GHNOTIFY_SECRET_KEY to store it")
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
