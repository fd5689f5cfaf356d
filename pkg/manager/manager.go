// Package manager is the dispatch layer between the HTTP surface and the
// worker pool. It owns subject normalization, the cache short circuit, and
// per-subject job dedupe.
package manager

import (
	"sync"

	"tweetmap/pkg/apierrors"
	"tweetmap/pkg/cache"
	"tweetmap/pkg/jobs"
	"tweetmap/pkg/logger"
	"tweetmap/pkg/models"
	"tweetmap/pkg/twitter"
)

// FetchOutcome is the response to a fetch request. Exactly one of JobID or
// Result is set: a cache hit returns the result inline with no job.
type FetchOutcome struct {
	JobID  string               `json:"job_id,omitempty"`
	Cached bool                 `json:"cached"`
	Result *models.ScrapeResult `json:"result,omitempty"`
}

// Manager coordinates fetch requests across the cache, the job store, and
// the work queue
type Manager struct {
	// mu makes the cache-check / dedupe / create / enqueue sequence atomic,
	// so two concurrent requests for one subject cannot both create jobs
	mu     sync.Mutex
	cache  *cache.Cache
	store  *jobs.Store
	queue  chan string
	logger logger.Logger
}

// New creates a manager with a bounded FIFO work queue
func New(c *cache.Cache, store *jobs.Store, queueSize int, log logger.Logger) *Manager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Manager{
		cache:  c,
		store:  store,
		queue:  make(chan string, queueSize),
		logger: log,
	}
}

// Queue exposes the work queue for the worker pool to drain
func (m *Manager) Queue() <-chan string {
	return m.queue
}

// RequestFetch handles a fetch request for a subject. A fresh cached result
// short-circuits without creating a job; an active job for the same subject
// is returned instead of a duplicate; otherwise a new job is created and
// enqueued.
func (m *Manager) RequestFetch(subject string) (*FetchOutcome, error) {
	subject = twitter.NormalizeScreenName(subject)
	if !twitter.IsValidScreenName(subject) {
		return nil, apierrors.Newf(apierrors.ErrorTypeInvalidSubject, "invalid subject: %q", subject)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if result := m.cache.Get(subject); result != nil {
		m.logger.DebugWithFields("cache hit", map[string]interface{}{
			"subject": subject,
		})
		return &FetchOutcome{Cached: true, Result: result}, nil
	}

	if job, ok := m.store.FindActive(subject); ok {
		m.logger.DebugWithFields("joined active job", map[string]interface{}{
			"subject": subject,
			"job_id":  job.ID,
		})
		return &FetchOutcome{JobID: job.ID}, nil
	}

	job := m.store.Create(subject)
	select {
	case m.queue <- job.ID:
	default:
		// queue is full, fail the job so the subject is not stuck behind it
		_ = m.store.Transition(job.ID, jobs.StatusError, nil, "work queue is full")
		m.logger.WarnWithFields("work queue full, rejecting fetch", map[string]interface{}{
			"subject": subject,
		})
		return nil, apierrors.New(apierrors.ErrorTypeServerError, "service is overloaded, try again later")
	}

	m.logger.InfoWithFields("job enqueued", map[string]interface{}{
		"subject": subject,
		"job_id":  job.ID,
	})
	return &FetchOutcome{JobID: job.ID}, nil
}

// Status returns the current state of a job
func (m *Manager) Status(jobID string) (jobs.Job, error) {
	job, err := m.store.Get(jobID)
	if err != nil {
		return jobs.Job{}, apierrors.Newf(apierrors.ErrorTypeJobNotFound, "no such job: %s", jobID)
	}
	return job, nil
}

// Result returns a finished job's result. A job that has not completed yet
// yields ResultNotReady; a failed job yields JobFailed with the stored error.
func (m *Manager) Result(jobID string) (*models.ScrapeResult, error) {
	job, err := m.store.Get(jobID)
	if err != nil {
		return nil, apierrors.Newf(apierrors.ErrorTypeJobNotFound, "no such job: %s", jobID)
	}

	switch job.Status {
	case jobs.StatusDone:
		return job.Result, nil
	case jobs.StatusError:
		return nil, apierrors.Newf(apierrors.ErrorTypeJobFailed, "job failed: %s", job.Error)
	default:
		return nil, apierrors.New(apierrors.ErrorTypeResultNotReady, "job has not completed yet")
	}
}

// Shared returns the cached result for a subject, if one is still fresh
func (m *Manager) Shared(subject string) (*models.ScrapeResult, error) {
	subject = twitter.NormalizeScreenName(subject)
	if !twitter.IsValidScreenName(subject) {
		return nil, apierrors.Newf(apierrors.ErrorTypeInvalidSubject, "invalid subject: %q", subject)
	}

	result := m.cache.Get(subject)
	if result == nil {
		return nil, apierrors.Newf(apierrors.ErrorTypeSubjectNotFound, "no cached result for %s", subject)
	}
	return result, nil
}
