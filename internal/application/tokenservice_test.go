package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ghnotify/internal/application"
)

func newTokenService(store *mockCredentialStore, onChange func(context.Context) error) (*application.TokenService, *application.GitHubClientProvider) {
	factory, _ := countingFactory()
	provider := application.NewGitHubClientProvider(factory)
	return application.NewTokenService(store, provider, application.NewConnectionTester(factory), onChange), provider
}

func TestTokenService_SaveResetsClientAndNotifies(t *testing.T) {
	store := &mockCredentialStore{}
	changes := 0
	svc, provider := newTokenService(store, func(context.Context) error {
		changes++
		return nil
	})
	before := provider.ForToken("old")

	require.NoError(t, svc.Save(context.Background(), "  ghp_new  "))

	assert.Equal(t, "ghp_new", store.token)
	assert.NotSame(t, before, provider.ForToken("old"))
	assert.Equal(t, 1, changes)
}

func TestTokenService_SaveRejectsBlank(t *testing.T) {
	store := &mockCredentialStore{token: "ghp_keep"}
	svc, _ := newTokenService(store, nil)

	err := svc.Save(context.Background(), "   ")

	require.ErrorIs(t, err, application.ErrEmptyToken)
	assert.Equal(t, "ghp_keep", store.token)
}

func TestTokenService_Clear(t *testing.T) {
	store := &mockCredentialStore{token: "ghp_old"}
	changes := 0
	svc, _ := newTokenService(store, func(context.Context) error {
		changes++
		return nil
	})

	require.NoError(t, svc.Clear(context.Background()))

	assert.Empty(t, store.token)
	assert.Equal(t, 1, changes)
}

func TestTokenService_TestFallsBackToStoredToken(t *testing.T) {
	store := &mockCredentialStore{token: "abc"}
	svc, _ := newTokenService(store, nil)

	result, err := svc.Test(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "user-abc", result.Username)

	result, err = svc.Test(context.Background(), "xyz")
	require.NoError(t, err)
	assert.Equal(t, "Connected as user-xyz", result.Message)
}

func TestTokenService_TestWithoutAnyToken(t *testing.T) {
	svc, _ := newTokenService(&mockCredentialStore{}, nil)

	result, err := svc.Test(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Token is empty", result.Message)
}
