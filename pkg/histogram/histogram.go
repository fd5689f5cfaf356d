// Package histogram turns raw tweet timestamps into per-day counts.
// Bucketing uses UTC calendar days so results are stable regardless of the
// requesting client's locale.
package histogram

import "time"

// DayFormat is the key format of the per-day mapping
const DayFormat = "2006-01-02"

// Aggregate buckets each timestamp into its UTC calendar day and counts per
// bucket. Timestamps strictly older than cutoff are dropped. Empty input
// yields an empty (non-nil) mapping.
func Aggregate(timestamps []time.Time, cutoff time.Time) map[string]int {
	counts := make(map[string]int)
	for _, ts := range timestamps {
		if ts.Before(cutoff) {
			continue
		}
		counts[ts.UTC().Format(DayFormat)]++
	}
	return counts
}

// Total sums all bucket counts
func Total(counts map[string]int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

// Oldest returns the earliest timestamp in the slice, or the zero time for
// empty input
func Oldest(timestamps []time.Time) time.Time {
	var oldest time.Time
	for _, ts := range timestamps {
		if oldest.IsZero() || ts.Before(oldest) {
			oldest = ts
		}
	}
	return oldest
}
