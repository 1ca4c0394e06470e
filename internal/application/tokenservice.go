package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/ghnotify/internal/domain/model"
	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// ErrEmptyToken is returned when saving a blank token.
var ErrEmptyToken = errors.New("token is empty")

// TokenService manages the stored GitHub token. Every change drops the cached
// client and fires the change hook so polling picks up the new credentials.
type TokenService struct {
	store    driven.CredentialStore
	provider *GitHubClientProvider
	tester   *ConnectionTester
	onChange func(ctx context.Context) error
}

// NewTokenService creates a TokenService. onChange may be nil.
func NewTokenService(
	store driven.CredentialStore,
	provider *GitHubClientProvider,
	tester *ConnectionTester,
	onChange func(ctx context.Context) error,
) *TokenService {
	return &TokenService{store: store, provider: provider, tester: tester, onChange: onChange}
}

// Save stores token, replacing any previous one.
func (s *TokenService) Save(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if err := s.store.SaveToken(ctx, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	slog.Info("github token saved")
	return s.changed(ctx)
}

// Clear removes the stored token.
func (s *TokenService) Clear(ctx context.Context) error {
	if err := s.store.DeleteToken(ctx); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	slog.Info("github token removed")
	return s.changed(ctx)
}

// Test probes token, or the stored token when token is blank.
func (s *TokenService) Test(ctx context.Context, token string) (model.ConnectionResult, error) {
	if strings.TrimSpace(token) == "" {
		stored, err := s.store.GetToken(ctx)
		if err != nil {
			return model.ConnectionResult{}, fmt.Errorf("load token: %w", err)
		}
		token = stored
	}
	return s.tester.Test(ctx, token), nil
}

func (s *TokenService) changed(ctx context.Context) error {
	s.provider.Reset()
	if s.onChange == nil {
		return nil
	}
	if err := s.onChange(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNotApplied, err)
	}
	return nil
}
