// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/ghnotify/internal/domain/model"
)

// ErrUnauthorized marks failures caused by an invalid or revoked token (HTTP 401).
// Polling stops on this error until the token is reconfigured.
var ErrUnauthorized = errors.New("github: unauthorized")

// ErrRateLimited marks failures after rate-limit handling gave up.
var ErrRateLimited = errors.New("github: rate limited")

// GitHubClient defines the driven port for the GitHub search API. One client
// instance is bound to one token; its identity and query caches belong to it.
type GitHubClient interface {
	// AuthenticatedUser returns the login of the token owner, cached after
	// the first successful call.
	AuthenticatedUser(ctx context.Context) (string, error)

	// SearchPullRequests runs the search query for the category using a
	// conditional request when a cached etag exists. On "not modified" it
	// returns the cached list with Changed=false.
	SearchPullRequests(ctx context.Context, category model.QueryCategory, query string) (model.SearchResult, error)
}
