package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetmap/pkg/models"
)

func result(total int) *models.ScrapeResult {
	return &models.ScrapeResult{
		UserInfo:     models.UserInfo{Username: "alice"},
		TweetsPerDay: map[string]int{"2025-09-01": total},
		TotalFetched: total,
	}
}

func TestGetMissOnUnknownSubject(t *testing.T) {
	c := New(time.Hour)
	assert.Nil(t, c.Get("alice"))
}

func TestPutThenGet(t *testing.T) {
	c := New(time.Hour)
	c.Put("alice", result(5))

	got := c.Get("alice")
	require.NotNil(t, got)
	assert.Equal(t, 5, got.TotalFetched)
}

func TestExpiredEntryIsAMiss(t *testing.T) {
	now := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	c := New(time.Hour, WithClock(func() time.Time { return now }))

	c.Put("alice", result(5))
	require.NotNil(t, c.Get("alice"))

	now = now.Add(time.Hour + time.Second)
	assert.Nil(t, c.Get("alice"))
	// Lazy eviction removed the stale entry
	assert.Zero(t, c.Len())
}

func TestEntryValidJustUnderTTL(t *testing.T) {
	now := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	c := New(time.Hour, WithClock(func() time.Time { return now }))

	c.Put("alice", result(5))
	now = now.Add(time.Hour - time.Second)
	assert.NotNil(t, c.Get("alice"))
}

func TestPutOverwritesPriorEntry(t *testing.T) {
	c := New(time.Hour)
	c.Put("alice", result(5))
	c.Put("alice", result(9))

	got := c.Get("alice")
	require.NotNil(t, got)
	assert.Equal(t, 9, got.TotalFetched)
	assert.Equal(t, 1, c.Len())
}

func TestSubjectsAreIndependent(t *testing.T) {
	c := New(time.Hour)
	c.Put("alice", result(1))
	c.Put("bob", result(2))

	assert.Equal(t, 1, c.Get("alice").TotalFetched)
	assert.Equal(t, 2, c.Get("bob").TotalFetched)
}
