package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the tweetmap service
type Config struct {
	// HTTP server settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Upstream account pool settings
	Accounts AccountsConfig `yaml:"accounts" json:"accounts"`

	// Collection settings
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Result cache settings
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Job store settings
	Jobs JobsConfig `yaml:"jobs" json:"jobs"`

	// Inbound rate limiting
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr" json:"listen_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// AccountsConfig holds upstream account pool configuration
type AccountsConfig struct {
	File        string        `yaml:"file" json:"file"`
	SessionFile string        `yaml:"session_file" json:"session_file"`
	Cooldown    time.Duration `yaml:"cooldown" json:"cooldown"`
}

// ScrapeConfig holds collection configuration
type ScrapeConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	MaxTweets      int           `yaml:"max_tweets" json:"max_tweets"`
	CutoffDays     int           `yaml:"cutoff_days" json:"cutoff_days"`
	PageSize       int           `yaml:"page_size" json:"page_size"`
	PageDelayMin   time.Duration `yaml:"page_delay_min" json:"page_delay_min"`
	PageDelayMax   time.Duration `yaml:"page_delay_max" json:"page_delay_max"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	WorkerCount    int           `yaml:"worker_count" json:"worker_count"`
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"`
}

// CacheConfig holds result cache configuration
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// JobsConfig holds job store configuration
type JobsConfig struct {
	TTL        time.Duration `yaml:"ttl" json:"ttl"`
	StuckAfter time.Duration `yaml:"stuck_after" json:"stuck_after"`
	QueueSize  int           `yaml:"queue_size" json:"queue_size"`
}

// RateLimitConfig holds inbound HTTP rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Pretty bool   `yaml:"pretty" json:"pretty"`
}

// Cutoff returns the oldest timestamp still included in aggregation
func (s ScrapeConfig) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -s.CutoffDays)
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Accounts: AccountsConfig{
			File:        "accounts.yaml",
			SessionFile: "sessions.enc",
			Cooldown:    15 * time.Minute,
		},
		Scrape: ScrapeConfig{
			BaseURL:        "https://api.x.com",
			MaxTweets:      500,
			CutoffDays:     180,
			PageSize:       50,
			PageDelayMin:   2 * time.Second,
			PageDelayMax:   5 * time.Second,
			RequestTimeout: 30 * time.Second,
			WorkerCount:    3,
			MaxAttempts:    3,
		},
		Cache: CacheConfig{
			TTL: time.Hour,
		},
		Jobs: JobsConfig{
			TTL:        30 * time.Minute,
			StuckAfter: 15 * time.Minute,
			QueueSize:  64,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // no config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		"tweetmap.yaml",
		"tweetmap.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "tweetmap", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "tweetmap", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// LoadFromEnv overrides configuration from TWEETMAP_* environment variables
func (c *Config) LoadFromEnv() error {
	if addr := os.Getenv("TWEETMAP_LISTEN_ADDR"); addr != "" {
		c.Server.ListenAddr = addr
	}
	if file := os.Getenv("TWEETMAP_ACCOUNTS_FILE"); file != "" {
		c.Accounts.File = file
	}
	if file := os.Getenv("TWEETMAP_SESSION_FILE"); file != "" {
		c.Accounts.SessionFile = file
	}
	if v := os.Getenv("TWEETMAP_ACCOUNT_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Accounts.Cooldown = d
		}
	}
	if url := os.Getenv("TWEETMAP_BASE_URL"); url != "" {
		c.Scrape.BaseURL = url
	}
	setInt(&c.Scrape.MaxTweets, "TWEETMAP_MAX_TWEETS")
	setInt(&c.Scrape.CutoffDays, "TWEETMAP_CUTOFF_DAYS")
	setInt(&c.Scrape.PageSize, "TWEETMAP_PAGE_SIZE")
	setDuration(&c.Scrape.PageDelayMin, "TWEETMAP_PAGE_DELAY_MIN")
	setDuration(&c.Scrape.PageDelayMax, "TWEETMAP_PAGE_DELAY_MAX")
	setDuration(&c.Scrape.RequestTimeout, "TWEETMAP_REQUEST_TIMEOUT")
	setInt(&c.Scrape.WorkerCount, "TWEETMAP_WORKER_COUNT")
	setInt(&c.Scrape.MaxAttempts, "TWEETMAP_MAX_ATTEMPTS")
	setDuration(&c.Cache.TTL, "TWEETMAP_CACHE_TTL")
	setDuration(&c.Jobs.TTL, "TWEETMAP_JOB_TTL")
	setDuration(&c.Jobs.StuckAfter, "TWEETMAP_JOB_STUCK_AFTER")
	setInt(&c.Jobs.QueueSize, "TWEETMAP_QUEUE_SIZE")
	setInt(&c.RateLimit.RequestsPerMinute, "TWEETMAP_REQUESTS_PER_MINUTE")
	if level := os.Getenv("TWEETMAP_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if pretty := os.Getenv("TWEETMAP_LOG_PRETTY"); pretty != "" {
		c.Logging.Pretty = strings.ToLower(pretty) == "true"
	}

	return nil
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, env string) {
	if v := os.Getenv(env); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.ListenAddr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.Accounts.File == "" {
		errs = append(errs, errors.New("accounts file is required"))
	}
	if c.Accounts.Cooldown <= 0 {
		errs = append(errs, errors.New("account cooldown must be positive"))
	}
	if c.Scrape.MaxTweets <= 0 {
		errs = append(errs, errors.New("max tweets must be positive"))
	}
	if c.Scrape.CutoffDays <= 0 {
		errs = append(errs, errors.New("cutoff days must be positive"))
	}
	if c.Scrape.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if c.Scrape.PageDelayMin < 0 || c.Scrape.PageDelayMax < c.Scrape.PageDelayMin {
		errs = append(errs, errors.New("page delay range is invalid"))
	}
	if c.Scrape.WorkerCount <= 0 {
		errs = append(errs, errors.New("worker count must be positive"))
	}
	if c.Scrape.MaxAttempts <= 0 {
		errs = append(errs, errors.New("max attempts must be positive"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache TTL must be positive"))
	}
	if c.Jobs.TTL <= 0 {
		errs = append(errs, errors.New("job TTL must be positive"))
	}
	if c.Jobs.QueueSize <= 0 {
		errs = append(errs, errors.New("queue size must be positive"))
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: environment variables > .env file > config file > defaults
func Load(configPath string) (*Config, error) {
	// Try to load a .env file (don't fail if it doesn't exist)
	_ = godotenv.Load(".env")

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
