package application

import (
	"context"
	"errors"
	"strings"

	"github.com/ericfisherdev/ghnotify/internal/domain/model"
	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// ConnectionTester probes a candidate token without touching the active client.
type ConnectionTester struct {
	factory GitHubClientFactory
}

// NewConnectionTester creates a ConnectionTester.
func NewConnectionTester(factory GitHubClientFactory) *ConnectionTester {
	return &ConnectionTester{factory: factory}
}

// Test identifies the token owner. Failures are reported in the result,
// never as an error.
func (t *ConnectionTester) Test(ctx context.Context, token string) model.ConnectionResult {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.ConnectionResult{Message: "Token is empty"}
	}

	login, err := t.factory(token).AuthenticatedUser(ctx)
	switch {
	case err == nil:
		return model.ConnectionResult{Success: true, Username: login, Message: "Connected as " + login}
	case errors.Is(err, driven.ErrUnauthorized):
		return model.ConnectionResult{Message: "Invalid token. Please check your PAT."}
	case err.Error() != "":
		return model.ConnectionResult{Message: err.Error()}
	default:
		return model.ConnectionResult{Message: "Connection failed"}
	}
}
