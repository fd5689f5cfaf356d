// Package worker runs the fixed-size pool that drains the job queue and
// executes collection jobs end to end.
package worker

import (
	"context"
	"errors"
	"sync"

	"tweetmap/pkg/accounts"
	"tweetmap/pkg/apierrors"
	"tweetmap/pkg/cache"
	"tweetmap/pkg/jobs"
	"tweetmap/pkg/logger"
	"tweetmap/pkg/models"
	"tweetmap/pkg/retry"
)

// Collector executes one collection pass with one leased account.
// Implemented by collector.Collector.
type Collector interface {
	Collect(ctx context.Context, acct *accounts.Account, subject string) (*models.ScrapeResult, error)
}

// Pool is a fixed set of workers draining the job queue. Each worker owns
// one job at a time: it leases an account, collects, and transitions the
// job to its terminal state.
type Pool struct {
	workerCount int
	maxAttempts int
	accounts    *accounts.Pool
	collector   Collector
	store       *jobs.Store
	results     *cache.Cache
	queue       <-chan string
	backoff     retry.BackoffStrategy
	logger      logger.Logger
	wg          sync.WaitGroup
}

// Config assembles a Pool's collaborators
type Config struct {
	WorkerCount int
	MaxAttempts int
	Accounts    *accounts.Pool
	Collector   Collector
	Store       *jobs.Store
	Results     *cache.Cache
	Queue       <-chan string
	Backoff     retry.BackoffStrategy
	Logger      logger.Logger
}

// New creates a worker pool. It does not start any goroutines until Start.
func New(cfg Config) *Pool {
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Backoff == nil {
		cfg.Backoff = retry.DefaultExponentialBackoff()
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	return &Pool{
		workerCount: cfg.WorkerCount,
		maxAttempts: cfg.MaxAttempts,
		accounts:    cfg.Accounts,
		collector:   cfg.Collector,
		store:       cfg.Store,
		results:     cfg.Results,
		queue:       cfg.Queue,
		backoff:     cfg.Backoff,
		logger:      cfg.Logger,
	}
}

// Start launches the workers. They run until the context is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}

	p.logger.InfoWithFields("worker pool started", map[string]interface{}{
		"workers": p.workerCount,
	})
}

// Wait blocks until all workers have exited
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	log := p.logger.WithField("worker", id)
	for {
		select {
		case <-ctx.Done():
			log.Debug("worker stopping")
			return
		case jobID := <-p.queue:
			p.process(ctx, jobID)
		}
	}
}

// process drives one job from queued to a terminal state
func (p *Pool) process(ctx context.Context, jobID string) {
	job, err := p.store.Get(jobID)
	if err != nil {
		// expired or swept before a worker picked it up
		p.logger.WithField("job_id", jobID).Debug("skipping vanished job")
		return
	}

	if err := p.store.Transition(jobID, jobs.StatusRunning, nil, ""); err != nil {
		p.logger.WithError(err).WithField("job_id", jobID).Warn("job not runnable")
		return
	}

	log := p.logger.WithFields(map[string]interface{}{
		"job_id":  jobID,
		"subject": job.Subject,
	})

	result, err := p.collect(ctx, log, job.Subject)
	if err != nil {
		log.WithError(err).Warn("job failed")
		p.fail(jobID, err)
		return
	}

	p.results.Put(job.Subject, result)
	if err := p.store.Transition(jobID, jobs.StatusDone, result, ""); err != nil {
		log.WithError(err).Warn("failed to complete job")
		return
	}

	log.WithField("total_fetched", result.TotalFetched).Info("job completed")
}

// collect runs bounded collection attempts, rotating accounts on credential
// failures. No eligible account fails fast rather than waiting for cooldowns.
func (p *Pool) collect(ctx context.Context, log logger.Logger, subject string) (*models.ScrapeResult, error) {
	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := retry.Wait(ctx, p.backoff.NextDelay(attempt-1)); err != nil {
				return nil, err
			}
		}

		acct, err := p.accounts.Lease()
		if err != nil {
			if errors.Is(err, accounts.ErrUnavailable) || errors.Is(err, accounts.ErrNoAccounts) {
				return nil, apierrors.New(apierrors.ErrorTypeExhausted,
					"no upstream accounts available")
			}
			return nil, err
		}

		result, err := p.collector.Collect(ctx, acct, subject)
		if err == nil {
			p.accounts.Release(acct)
			return result, nil
		}
		lastErr = err

		errType := apierrors.TypeOf(err)
		if apierrors.IsCredentialFailure(errType) {
			p.accounts.Disable(acct, string(errType))
			p.accounts.Release(acct)
			log.WithFields(map[string]interface{}{
				"attempt": attempt,
				"account": acct.Username,
				"reason":  string(errType),
			}).Warn("account failed, rotating")
			continue
		}

		p.accounts.Release(acct)
		if !apierrors.IsRetryable(errType) {
			return nil, err
		}

		log.WithFields(map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("transient collection failure")
	}

	return nil, lastErr
}

func (p *Pool) fail(jobID string, err error) {
	if terr := p.store.Transition(jobID, jobs.StatusError, nil, err.Error()); terr != nil {
		p.logger.WithError(terr).WithField("job_id", jobID).Warn("failed to mark job errored")
	}
}
