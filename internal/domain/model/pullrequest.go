package model

import (
	"strconv"
	"strings"
)

// UnknownRepo is used when a search result's repository URL cannot be parsed.
const UnknownRepo = "unknown/unknown"

// UnknownAuthor is used when a search result carries no user login.
const UnknownAuthor = "unknown"

// PullRequest is the canonical record built from a GitHub search result item.
// It is never persisted itself; only its Key is tracked in the seen-set.
type PullRequest struct {
	Number       int
	Title        string
	RepoFullName string // "owner/repo"
	Author       string
	URL          string
}

// Key returns the stable identity used for dedup and seen tracking.
func (pr PullRequest) Key() string {
	return pr.RepoFullName + "#" + strconv.Itoa(pr.Number)
}

// Owner returns the owner (user or org) part of RepoFullName.
func (pr PullRequest) Owner() string {
	owner, _, _ := strings.Cut(pr.RepoFullName, "/")
	return owner
}

// SearchResult is the outcome of one category query. Changed is false when
// the remote answered "not modified" and PRs is the cached list.
type SearchResult struct {
	PRs     []PullRequest
	Changed bool
}

