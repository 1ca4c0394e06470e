package application

import (
	"sort"
	"time"

	"github.com/ericfisherdev/ghnotify/internal/domain/model"
)

// DefaultRetention is how long a seen entry is kept before pruning.
const DefaultRetention = 30 * 24 * time.Hour

// SeenSet maps pull request keys to the time they were first seen. It is not
// safe for concurrent use; the poll cycle that loads it owns it.
type SeenSet struct {
	entries map[string]time.Time
}

// NewSeenSet builds a set from persisted entries. If a key appears more than
// once the earliest timestamp wins.
func NewSeenSet(entries []model.SeenEntry) *SeenSet {
	s := &SeenSet{entries: make(map[string]time.Time, len(entries))}
	for _, e := range entries {
		if existing, ok := s.entries[e.Key]; ok && !e.SeenAt.Before(existing) {
			continue
		}
		s.entries[e.Key] = e.SeenAt
	}
	return s
}

// IsSeen reports whether key has been recorded.
func (s *SeenSet) IsSeen(key string) bool {
	_, ok := s.entries[key]
	return ok
}

// MarkSeen records now for every key not already present and returns the
// number of keys added. Existing timestamps are left untouched.
func (s *SeenSet) MarkSeen(keys []string, now time.Time) int {
	added := 0
	for _, key := range keys {
		if _, ok := s.entries[key]; ok {
			continue
		}
		s.entries[key] = now
		added++
	}
	return added
}

// Prune removes entries whose age is at least maxAge and returns how many
// were removed.
func (s *SeenSet) Prune(maxAge time.Duration, now time.Time) int {
	cutoff := now.Add(-maxAge)
	removed := 0
	for key, seenAt := range s.entries {
		if !seenAt.After(cutoff) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Unseen returns the pull requests whose key is not in the set, preserving order.
func (s *SeenSet) Unseen(prs []model.PullRequest) []model.PullRequest {
	var fresh []model.PullRequest
	for _, pr := range prs {
		if !s.IsSeen(pr.Key()) {
			fresh = append(fresh, pr)
		}
	}
	return fresh
}

// Len returns the number of tracked keys.
func (s *SeenSet) Len() int {
	return len(s.entries)
}

// Entries returns the set ordered by first-seen time, then key.
func (s *SeenSet) Entries() []model.SeenEntry {
	out := make([]model.SeenEntry, 0, len(s.entries))
	for key, seenAt := range s.entries {
		out = append(out, model.SeenEntry{Key: key, SeenAt: seenAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SeenAt.Equal(out[j].SeenAt) {
			return out[i].Key < out[j].Key
		}
		return out[i].SeenAt.Before(out[j].SeenAt)
	})
	return out
}

// prKeys returns the identity keys of prs in order.
func prKeys(prs []model.PullRequest) []string {
	keys := make([]string, 0, len(prs))
	for _, pr := range prs {
		keys = append(keys, pr.Key())
	}
	return keys
}
