package application

import (
	"strings"

	"github.com/ericfisherdev/ghnotify/internal/domain/model"
)

// MergePullRequests concatenates both lists and drops repeated keys, keeping
// the first occurrence. A PR present in both lists keeps its assigned entry.
func MergePullRequests(assigned, reviewRequested []model.PullRequest) []model.PullRequest {
	seen := make(map[string]struct{}, len(assigned)+len(reviewRequested))
	merged := make([]model.PullRequest, 0, len(assigned)+len(reviewRequested))

	for _, list := range [][]model.PullRequest{assigned, reviewRequested} {
		for _, pr := range list {
			key := pr.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, pr)
		}
	}

	return merged
}

// FilterByAllowlist keeps pull requests matching at least one filter. An entry
// containing "/" must equal the repository full name; any other entry matches
// the repository owner. Matching is case-insensitive on trimmed values, and an
// allowlist with no non-blank entries keeps everything.
func FilterByAllowlist(prs []model.PullRequest, filters []string) []model.PullRequest {
	normalized := make([]string, 0, len(filters))
	for _, f := range filters {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			normalized = append(normalized, f)
		}
	}
	if len(normalized) == 0 {
		return prs
	}

	kept := make([]model.PullRequest, 0, len(prs))
	for _, pr := range prs {
		repo := strings.ToLower(pr.RepoFullName)
		owner := strings.ToLower(pr.Owner())
		for _, f := range normalized {
			if strings.Contains(f, "/") {
				if repo == f {
					kept = append(kept, pr)
					break
				}
				continue
			}
			if owner == f {
				kept = append(kept, pr)
				break
			}
		}
	}

	return kept
}
