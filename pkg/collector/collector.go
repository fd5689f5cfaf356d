// Package collector walks a subject's timeline page by page and turns it
// into a daily activity histogram.
package collector

import (
	"context"
	"math/rand"
	"time"

	"tweetmap/pkg/accounts"
	"tweetmap/pkg/apierrors"
	"tweetmap/pkg/config"
	"tweetmap/pkg/histogram"
	"tweetmap/pkg/logger"
	"tweetmap/pkg/models"
	"tweetmap/pkg/retry"
	"tweetmap/pkg/twitter"
)

// Fetcher is the upstream surface the collector needs. Implemented by
// twitter.Client; tests substitute a fake.
type Fetcher interface {
	Login(ctx context.Context) (string, error)
	UserByScreenName(ctx context.Context, screenName string) (*twitter.UserProfile, error)
	UserTweets(ctx context.Context, userID, cursor string, count int) (*twitter.TweetPage, error)
	SetSession(token string)
}

// FetcherFactory binds a leased account to an upstream client
type FetcherFactory func(acct *accounts.Account) Fetcher

// SessionRefresher receives session tokens established during collection
// so they survive restarts. Implemented by accounts.Pool.
type SessionRefresher interface {
	RefreshSession(acct *accounts.Account, token string)
}

// Collector runs a single collection pass for one subject using one
// leased account. It does not retry across accounts; credential failures
// propagate to the caller, which owns rotation.
type Collector struct {
	cfg      config.ScrapeConfig
	factory  FetcherFactory
	sessions SessionRefresher
	logger   logger.Logger
	now      func() time.Time
	rand     *rand.Rand
}

// Option configures a Collector
type Option func(*Collector)

// WithClock overrides the collector's time source (tests)
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// WithRand overrides the pacing randomness source (tests)
func WithRand(r *rand.Rand) Option {
	return func(c *Collector) { c.rand = r }
}

// New creates a collector. sessions may be nil when session persistence
// is not wanted.
func New(cfg config.ScrapeConfig, factory FetcherFactory, sessions SessionRefresher, log logger.Logger, opts ...Option) *Collector {
	if log == nil {
		log = logger.GetLogger()
	}

	c := &Collector{
		cfg:      cfg,
		factory:  factory,
		sessions: sessions,
		logger:   log,
		now:      time.Now,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect fetches the subject's profile and recent timeline through the
// given account and aggregates it into a daily histogram. The subject must
// already be normalized and validated.
func (c *Collector) Collect(ctx context.Context, acct *accounts.Account, subject string) (*models.ScrapeResult, error) {
	fetcher := c.factory(acct)

	if err := c.ensureSession(ctx, fetcher, acct); err != nil {
		return nil, err
	}

	profile, err := c.resolveSubject(ctx, fetcher, acct, subject)
	if err != nil {
		return nil, err
	}

	timestamps, err := c.walkTimeline(ctx, fetcher, profile.ID)
	if err != nil {
		return nil, err
	}

	now := c.now()
	result := &models.ScrapeResult{
		UserInfo: models.UserInfo{
			Username:               profile.ScreenName,
			Name:                   profile.Name,
			ProfileImageURL:        profile.ProfileImageURL,
			TweetCount:             profile.StatusesCount,
			IsVerified:             profile.IsBlueVerified,
			CreatedAt:              profile.CreatedAt,
			HasDefaultProfileImage: profile.DefaultProfileImage,
			EndDate:                now,
		},
		TweetsPerDay: histogram.Aggregate(timestamps, c.cfg.Cutoff(now)),
		TotalFetched: len(timestamps),
	}
	if oldest := histogram.Oldest(timestamps); !oldest.IsZero() {
		result.UserInfo.StartDate = &oldest
	}

	c.logger.InfoWithFields("collection completed", map[string]interface{}{
		"subject":       subject,
		"account":       acct.Username,
		"total_fetched": result.TotalFetched,
		"days":          len(result.TweetsPerDay),
	})

	return result, nil
}

// ensureSession installs the account's persisted session token or logs in
// to establish a fresh one
func (c *Collector) ensureSession(ctx context.Context, fetcher Fetcher, acct *accounts.Account) error {
	if acct.SessionToken != "" {
		fetcher.SetSession(acct.SessionToken)
		return nil
	}
	return c.login(ctx, fetcher, acct)
}

func (c *Collector) login(ctx context.Context, fetcher Fetcher, acct *accounts.Account) error {
	token, err := fetcher.Login(ctx)
	if err != nil {
		return err
	}
	if c.sessions != nil {
		c.sessions.RefreshSession(acct, token)
	}
	return nil
}

// resolveSubject looks up the subject's profile. A stale persisted session
// gets one fresh login before the auth failure is surfaced.
func (c *Collector) resolveSubject(ctx context.Context, fetcher Fetcher, acct *accounts.Account, subject string) (*twitter.UserProfile, error) {
	profile, err := fetcher.UserByScreenName(ctx, subject)
	if err == nil {
		return profile, nil
	}
	if !apierrors.Is(err, apierrors.ErrorTypeAuthRejected) || acct.SessionToken == "" {
		return nil, err
	}

	c.logger.DebugWithFields("stored session rejected, logging in again", map[string]interface{}{
		"account": acct.Username,
	})
	if err := c.login(ctx, fetcher, acct); err != nil {
		return nil, err
	}
	return fetcher.UserByScreenName(ctx, subject)
}

// walkTimeline pages through the subject's timeline newest first, stopping
// at the item limit, the age cutoff, or the end of the timeline
func (c *Collector) walkTimeline(ctx context.Context, fetcher Fetcher, userID string) ([]time.Time, error) {
	cutoff := c.cfg.Cutoff(c.now())
	timestamps := make([]time.Time, 0, c.cfg.PageSize)
	cursor := ""

	for {
		page, err := fetcher.UserTweets(ctx, userID, cursor, c.cfg.PageSize)
		if err != nil {
			return nil, err
		}

		for _, tweet := range page.Tweets {
			if tweet.CreatedAt.Before(cutoff) {
				// timeline is newest first; everything past this is older
				return timestamps, nil
			}
			timestamps = append(timestamps, tweet.CreatedAt)
			if len(timestamps) >= c.cfg.MaxTweets {
				return timestamps, nil
			}
		}

		if page.NextCursor == "" || len(page.Tweets) == 0 {
			return timestamps, nil
		}
		cursor = page.NextCursor

		if err := retry.Wait(ctx, c.pageDelay()); err != nil {
			return nil, err
		}
	}
}

// pageDelay picks a uniform random delay within the configured pacing range
func (c *Collector) pageDelay() time.Duration {
	span := c.cfg.PageDelayMax - c.cfg.PageDelayMin
	if span <= 0 {
		return c.cfg.PageDelayMin
	}
	return c.cfg.PageDelayMin + time.Duration(c.rand.Int63n(int64(span)))
}
