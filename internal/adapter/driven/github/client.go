// Package github implements the GitHubClient port using the go-github library.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit/github_secondary_ratelimit"

	"github.com/ericfisherdev/ghnotify/internal/domain/model"
	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

// defaultRateLimitRetries is how many times a primary rate-limited search is
// retried after waiting for the window to reset.
const defaultRateLimitRetries = 2

var repoFromURL = regexp.MustCompile(`repos/(.+)$`)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures a Client.
type Option func(*Client)

// WithSleeper replaces the wait used before retrying a rate-limited request.
func WithSleeper(sleep Sleeper) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithRateLimitRetries sets how many times a primary rate limit is waited out.
func WithRateLimitRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// Client implements the driven.GitHubClient port. One Client is bound to one
// token; it owns the cached identity and the response cache.
type Client struct {
	gh         *gh.Client
	sleep      Sleeper
	maxRetries int

	mu    sync.Mutex
	login string
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (in-memory ETag caching, sends If-None-Match and serves 304s from cache)
//  2. go-github-ratelimit (secondary rate limit detection, never sleeps or retries)
//  3. go-github (GitHub REST API client with PAT auth)
//
// Primary rate limits reach go-github as *gh.RateLimitError and are waited out
// by SearchPullRequests.
func NewClient(token string, opts ...Option) *Client {
	return newClient(gh.NewClient(newHTTPClient()).WithAuthToken(token), opts)
}

// NewClientForBaseURL creates a Client with the NewClient transport stack
// against another API root, such as https://ghe.example.com/api/v3/.
func NewClientForBaseURL(baseURL, token string, opts ...Option) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	client := gh.NewClient(newHTTPClient())
	if token != "" {
		client = client.WithAuthToken(token)
	}
	client.BaseURL = u

	return newClient(client, opts), nil
}

func newHTTPClient() *http.Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	cacheTransport.MarkCachedResponses = true

	limiter := github_ratelimit.NewSecondaryLimiter(cacheTransport,
		github_secondary_ratelimit.WithSingleSleepLimit(0, func(cb *github_secondary_ratelimit.CallbackContext) {
			attrs := []any{"url", cb.Request.URL.Path}
			if cb.ResetTime != nil {
				attrs = append(attrs, "retry_after", time.Until(*cb.ResetTime).Round(time.Second))
			}
			slog.Debug("github secondary rate limit detected, passing through", attrs...)
		}),
	)
	return &http.Client{Transport: limiter}
}

func newClient(client *gh.Client, opts []Option) *Client {
	c := &Client{
		gh:         client,
		sleep:      sleepContext,
		maxRetries: defaultRateLimitRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthenticatedUser returns the login of the token owner. The first
// successful answer is cached for the lifetime of the client.
func (c *Client) AuthenticatedUser(ctx context.Context) (string, error) {
	c.mu.Lock()
	login := c.login
	c.mu.Unlock()
	if login != "" {
		return login, nil
	}

	user, resp, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return "", classify("fetching authenticated user", resp, err)
	}
	logRateLimit(resp, "user")

	login = user.GetLogin()
	if login == "" {
		return "", errors.New("fetching authenticated user: empty login")
	}

	c.mu.Lock()
	c.login = login
	c.mu.Unlock()

	return login, nil
}

// SearchPullRequests runs query for category with a conditional request.
// A 304 returns the cached list with Changed=false.
func (c *Client) SearchPullRequests(ctx context.Context, category model.QueryCategory, query string) (model.SearchResult, error) {
	for attempt := 0; ; attempt++ {
		result, err := c.search(ctx, category, query)
		if err == nil {
			return result, nil
		}

		var rateErr *gh.RateLimitError
		if !errors.As(err, &rateErr) {
			return model.SearchResult{}, err
		}
		if attempt >= c.maxRetries {
			return model.SearchResult{}, fmt.Errorf("searching %s: %w: %w", category, driven.ErrRateLimited, err)
		}

		wait := time.Until(rateErr.Rate.Reset.Time)
		if wait < 0 {
			wait = 0
		}
		slog.Warn("github primary rate limit hit, waiting for reset",
			"category", category,
			"attempt", attempt+1,
			"wait", wait.Round(time.Second),
		)
		if err := c.sleep(ctx, wait); err != nil {
			return model.SearchResult{}, fmt.Errorf("waiting for rate limit reset: %w", err)
		}
	}
}

// search runs one request. The response cache revalidates with the stored
// ETag; an answer served from it means the result has not changed.
func (c *Client) search(ctx context.Context, category model.QueryCategory, query string) (model.SearchResult, error) {
	endpoint := "search/issues?q=" + url.QueryEscape(query) + "&sort=updated&order=desc&per_page=100"
	req, err := c.gh.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("building search request: %w", err)
	}

	resp, err := c.gh.BareDo(ctx, req)
	if err != nil {
		return model.SearchResult{}, classify("searching "+string(category), resp, err)
	}
	defer resp.Body.Close()

	// Read to EOF: httpcache stores the body only once it has been drained.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.SearchResult{}, fmt.Errorf("reading %s search response: %w", category, err)
	}

	var body gh.IssuesSearchResult
	if err := json.Unmarshal(raw, &body); err != nil {
		return model.SearchResult{}, fmt.Errorf("decoding %s search response: %w", category, err)
	}
	prs := mapSearchItems(body.Issues)

	if resp.Header.Get(httpcache.XFromCache) != "" {
		slog.Debug("github search not modified", "category", category, "count", len(prs))
		return model.SearchResult{PRs: prs, Changed: false}, nil
	}
	logRateLimit(resp, "search/"+string(category))

	return model.SearchResult{PRs: prs, Changed: true}, nil
}

// classify wraps err with the port sentinel matching the failure.
func classify(action string, resp *gh.Response, err error) error {
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		slog.Warn("github secondary rate limit hit", "action", action, "retry_after", abuseErr.GetRetryAfter())
		return fmt.Errorf("%s: %w: %w", action, driven.ErrRateLimited, err)
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%s: %w", action, err)
	}

	if resp != nil && resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w: %w", action, driven.ErrUnauthorized, err)
	}

	return fmt.Errorf("%s: %w", action, err)
}

// mapSearchItems keeps only pull requests and fills defaults for missing fields.
func mapSearchItems(items []*gh.Issue) []model.PullRequest {
	prs := make([]model.PullRequest, 0, len(items))
	for _, item := range items {
		if item == nil || !item.IsPullRequest() {
			continue
		}
		prs = append(prs, mapPullRequest(item))
	}
	return prs
}

func mapPullRequest(item *gh.Issue) model.PullRequest {
	repo := model.UnknownRepo
	if m := repoFromURL.FindStringSubmatch(item.GetRepositoryURL()); m != nil {
		repo = m[1]
	}

	author := item.GetUser().GetLogin()
	if author == "" {
		author = model.UnknownAuthor
	}

	link := item.GetPullRequestLinks().GetHTMLURL()
	if link == "" {
		link = item.GetHTMLURL()
	}

	return model.PullRequest{
		Number:       item.GetNumber(),
		Title:        item.GetTitle(),
		RepoFullName: repo,
		Author:       author,
		URL:          link,
	}
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 5 {
		slog.Warn("github rate limit low",
			"endpoint", endpoint,
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
