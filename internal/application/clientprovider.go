package application

import (
	"sync"

	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// GitHubClientFactory builds a client bound to one token.
type GitHubClientFactory func(token string) driven.GitHubClient

// GitHubClientProvider enables runtime hot-swap of the GitHub client.
// It holds a mutex-protected reference to the client built for the current
// token. A token change yields a fresh client, which discards the cached
// identity and the HTTP cache of the previous one.
type GitHubClientProvider struct {
	mu      sync.Mutex
	factory GitHubClientFactory
	client  driven.GitHubClient
	token   string
}

// NewGitHubClientProvider creates a provider with no client. The first call
// to ForToken builds one.
func NewGitHubClientProvider(factory GitHubClientFactory) *GitHubClientProvider {
	return &GitHubClientProvider{factory: factory}
}

// ForToken returns the client for token, building a new one if the token
// differs from the one the current client was built with.
func (p *GitHubClientProvider) ForToken(token string) driven.GitHubClient {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil || p.token != token {
		p.client = p.factory(token)
		p.token = token
	}
	return p.client
}

// Reset drops the current client so the next ForToken builds a new one even
// for the same token.
func (p *GitHubClientProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client = nil
	p.token = ""
}
