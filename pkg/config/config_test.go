package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 500, cfg.Scrape.MaxTweets)
	assert.Equal(t, 180, cfg.Scrape.CutoffDays)
	assert.Equal(t, 50, cfg.Scrape.PageSize)
	assert.Equal(t, 2*time.Second, cfg.Scrape.PageDelayMin)
	assert.Equal(t, 5*time.Second, cfg.Scrape.PageDelayMax)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tweetmap.yaml")
	content := []byte(`
server:
  listen_addr: ":9090"
scrape:
  max_tweets: 100
  worker_count: 5
cache:
  ttl: 2h
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.Equal(t, 100, cfg.Scrape.MaxTweets)
	assert.Equal(t, 5, cfg.Scrape.WorkerCount)
	assert.Equal(t, 2*time.Hour, cfg.Cache.TTL)
	// Untouched values keep defaults
	assert.Equal(t, 180, cfg.Scrape.CutoffDays)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("TWEETMAP_WORKER_COUNT", "7")
	t.Setenv("TWEETMAP_CACHE_TTL", "45m")
	t.Setenv("TWEETMAP_LOG_LEVEL", "debug")
	t.Setenv("TWEETMAP_PAGE_DELAY_MIN", "1s")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 7, cfg.Scrape.WorkerCount)
	assert.Equal(t, 45*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, time.Second, cfg.Scrape.PageDelayMin)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Scrape.WorkerCount = 0 }},
		{"zero max tweets", func(c *Config) { c.Scrape.MaxTweets = 0 }},
		{"inverted delay range", func(c *Config) { c.Scrape.PageDelayMax = c.Scrape.PageDelayMin - time.Second }},
		{"zero cache ttl", func(c *Config) { c.Cache.TTL = 0 }},
		{"zero job ttl", func(c *Config) { c.Jobs.TTL = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"empty accounts file", func(c *Config) { c.Accounts.File = "" }},
		{"zero rate limit", func(c *Config) { c.RateLimit.RequestsPerMinute = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCutoff(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	cutoff := cfg.Scrape.Cutoff(now)
	assert.Equal(t, now.AddDate(0, 0, -180), cutoff)
}
