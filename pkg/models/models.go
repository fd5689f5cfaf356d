package models

import "time"

// UserInfo carries the subject metadata returned alongside a histogram.
// JSON keys match the public API payload.
type UserInfo struct {
	Username               string     `json:"username"`
	Name                   string     `json:"name"`
	ProfileImageURL        string     `json:"profile"`
	TweetCount             int        `json:"tweet_count"`
	IsVerified             bool       `json:"is_verified"`
	CreatedAt              time.Time  `json:"created_at"`
	HasDefaultProfileImage bool       `json:"has_default_profile_image"`
	StartDate              *time.Time `json:"start_date"`
	EndDate                time.Time  `json:"end_date"`
}

// ScrapeResult is the completed output of one collection job.
// Immutable once produced; day keys are formatted as 2006-01-02 in UTC.
type ScrapeResult struct {
	UserInfo     UserInfo       `json:"user_info"`
	TweetsPerDay map[string]int `json:"tweets_per_day"`
	TotalFetched int            `json:"total_tweets_fetched"`
}
