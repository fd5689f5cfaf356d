package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tweetmap/internal/httpapi"
	"tweetmap/internal/worker"
	"tweetmap/pkg/accounts"
	"tweetmap/pkg/cache"
	"tweetmap/pkg/collector"
	"tweetmap/pkg/config"
	"tweetmap/pkg/jobs"
	"tweetmap/pkg/logger"
	"tweetmap/pkg/manager"
	"tweetmap/pkg/ratelimit"
	"tweetmap/pkg/twitter"
)

// serveCmd runs the HTTP service
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tweetmap HTTP service",
	Long: `Starts the HTTP service: loads the upstream account pool, restores
persisted sessions, and serves fetch/status/result/share endpoints until
interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := logger.Initialize(logger.Options{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("tweetmap starting")

	accts, err := accounts.LoadAccounts(cfg.Accounts.File)
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}

	sessions, err := accounts.NewSessionStore(cfg.Accounts.SessionFile)
	if err != nil {
		// sessions are an optimization; accounts log in fresh without them
		log.WithError(err).Warn("session store unavailable, continuing without persisted sessions")
	} else {
		sessions.Restore(accts)
	}

	var poolOpts []accounts.PoolOption
	if sessions != nil {
		poolOpts = append(poolOpts, accounts.WithSessions(sessions))
	}
	acctPool := accounts.NewPool(accts, cfg.Accounts.Cooldown, log, poolOpts...)
	log.WithField("accounts", acctPool.Size()).Info("account pool ready")

	factory := func(acct *accounts.Account) collector.Fetcher {
		return twitter.NewClient(cfg.Scrape.BaseURL, cfg.Scrape.RequestTimeout, twitter.Credentials{
			Username:  acct.Username,
			Email:     acct.Email,
			Password:  acct.Password,
			UserAgent: acct.UserAgent,
		}, log)
	}
	col := collector.New(cfg.Scrape, factory, acctPool, log)

	results := cache.New(cfg.Cache.TTL)
	store := jobs.NewStore(cfg.Jobs.TTL, cfg.Jobs.StuckAfter, log)
	mgr := manager.New(results, store, cfg.Jobs.QueueSize, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go store.RunJanitor(ctx, time.Minute)

	pool := worker.New(worker.Config{
		WorkerCount: cfg.Scrape.WorkerCount,
		MaxAttempts: cfg.Scrape.MaxAttempts,
		Accounts:    acctPool,
		Collector:   col,
		Store:       store,
		Results:     results,
		Queue:       mgr.Queue(),
		Logger:      log,
	})
	pool.Start(ctx)

	limiter := ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute)
	server := httpapi.New(cfg.Server.ListenAddr, mgr, limiter, log)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		stop()
		pool.Wait()
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown was not clean")
	}
	pool.Wait()

	log.Info("tweetmap stopped")
	return nil
}
