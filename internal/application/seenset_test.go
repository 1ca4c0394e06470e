package application_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ghnotify/internal/application"
	"github.com/ericfisherdev/ghnotify/internal/domain/model"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestSeenSet_MarkSeenKeepsFirstTimestamp(t *testing.T) {
	set := application.NewSeenSet(nil)

	added := set.MarkSeen([]string{"acme/api#1", "acme/api#2"}, baseTime)
	assert.Equal(t, 2, added)

	added = set.MarkSeen([]string{"acme/api#1", "acme/api#3"}, baseTime.Add(time.Hour))
	assert.Equal(t, 1, added)

	entries := set.Entries()
	require.Len(t, entries, 3)
	for _, e := range entries {
		if e.Key == "acme/api#1" {
			assert.True(t, e.SeenAt.Equal(baseTime), "first sighting must not be overwritten")
		}
	}
}

func TestSeenSet_NewSeenSetKeepsEarliestDuplicate(t *testing.T) {
	set := application.NewSeenSet([]model.SeenEntry{
		{Key: "acme/api#1", SeenAt: baseTime.Add(time.Hour)},
		{Key: "acme/api#1", SeenAt: baseTime},
	})

	require.Equal(t, 1, set.Len())
	assert.True(t, set.Entries()[0].SeenAt.Equal(baseTime))
}

func TestSeenSet_PruneRemovesEntriesAtOrBeyondCutoff(t *testing.T) {
	now := baseTime
	set := application.NewSeenSet([]model.SeenEntry{
		{Key: "old/repo#1", SeenAt: now.Add(-31 * 24 * time.Hour)},
		{Key: "edge/repo#2", SeenAt: now.Add(-application.DefaultRetention)},
		{Key: "fresh/repo#3", SeenAt: now.Add(-29 * 24 * time.Hour)},
	})

	removed := set.Prune(application.DefaultRetention, now)

	assert.Equal(t, 2, removed)
	assert.False(t, set.IsSeen("old/repo#1"))
	assert.False(t, set.IsSeen("edge/repo#2"))
	assert.True(t, set.IsSeen("fresh/repo#3"))
}

func TestSeenSet_PruneOnEmptySetIsNoop(t *testing.T) {
	set := application.NewSeenSet(nil)
	assert.Zero(t, set.Prune(application.DefaultRetention, baseTime))
	assert.Zero(t, set.Len())
}

func TestSeenSet_UnseenPreservesOrder(t *testing.T) {
	set := application.NewSeenSet([]model.SeenEntry{{Key: "acme/api#2", SeenAt: baseTime}})

	fresh := set.Unseen([]model.PullRequest{
		pr("acme/api", 3, "third"),
		pr("acme/api", 2, "second"),
		pr("acme/api", 1, "first"),
	})

	require.Len(t, fresh, 2)
	assert.Equal(t, 3, fresh[0].Number)
	assert.Equal(t, 1, fresh[1].Number)
}

func TestSeenSet_EntriesSortedBySeenAt(t *testing.T) {
	set := application.NewSeenSet(nil)
	set.MarkSeen([]string{"b/b#1"}, baseTime.Add(time.Minute))
	set.MarkSeen([]string{"a/a#1"}, baseTime)

	entries := set.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a/a#1", entries[0].Key)
	assert.Equal(t, "b/b#1", entries[1].Key)
}
