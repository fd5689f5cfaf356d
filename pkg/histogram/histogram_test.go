package histogram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAggregateBucketsByUTCDay(t *testing.T) {
	day0 := time.Date(2025, 8, 30, 10, 0, 0, 0, time.UTC)
	day1 := time.Date(2025, 8, 31, 23, 59, 59, 0, time.UTC)
	cutoff := day0.AddDate(0, 0, -180)

	counts := Aggregate([]time.Time{day0, day0.Add(time.Hour), day1}, cutoff)

	assert.Equal(t, map[string]int{
		"2025-08-30": 2,
		"2025-08-31": 1,
	}, counts)
}

func TestAggregateDropsItemsOlderThanCutoff(t *testing.T) {
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	cutoff := now.AddDate(0, 0, -180)

	timestamps := []time.Time{
		now,                     // day 0
		now.Add(-time.Hour),     // day 0
		now.AddDate(0, 0, -1),   // day 1
		now.AddDate(0, 0, -200), // older than cutoff, dropped
	}

	counts := Aggregate(timestamps, cutoff)

	assert.Equal(t, map[string]int{
		"2025-09-01": 2,
		"2025-08-31": 1,
	}, counts)
	assert.Equal(t, 3, Total(counts))
}

func TestAggregateEmptyInput(t *testing.T) {
	counts := Aggregate(nil, time.Now())
	assert.NotNil(t, counts)
	assert.Empty(t, counts)
	assert.Zero(t, Total(counts))
}

func TestAggregateNormalizesZones(t *testing.T) {
	// 23:30 EST on Jan 1 is 04:30 UTC on Jan 2
	est := time.FixedZone("EST", -5*3600)
	ts := time.Date(2025, 1, 1, 23, 30, 0, 0, est)
	cutoff := ts.AddDate(0, 0, -1)

	counts := Aggregate([]time.Time{ts}, cutoff)
	assert.Equal(t, map[string]int{"2025-01-02": 1}, counts)
}

func TestOldest(t *testing.T) {
	a := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	b := a.AddDate(0, 0, 10)

	assert.Equal(t, a, Oldest([]time.Time{b, a}))
	assert.True(t, Oldest(nil).IsZero())
}
