// Package jobs tracks in-flight and completed collection jobs by identifier.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tweetmap/pkg/logger"
	"tweetmap/pkg/models"
)

// Status is a job's lifecycle state
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// rank orders statuses so that transitions into the same or an earlier
// state can be rejected
func (s Status) rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusRunning:
		return 1
	case StatusDone, StatusError:
		return 2
	default:
		return -1
	}
}

// Terminal reports whether the status is final
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Job is one asynchronous unit of collection work. Only the worker that owns
// a job transitions it; the dispatcher reads it on poll.
type Job struct {
	ID          string               `json:"job_id"`
	Subject     string               `json:"subject"`
	Status      Status               `json:"status"`
	Result      *models.ScrapeResult `json:"result,omitempty"`
	Error       string               `json:"error,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

// Errors
var (
	ErrNotFound          = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid job state transition")
)

// Store is the in-process job registry. Completed jobs are garbage-collected
// once the job TTL elapses; jobs stuck in queued/running past the stuck bound
// are marked as errors.
type Store struct {
	mu         sync.RWMutex
	jobs       map[string]*Job
	ttl        time.Duration
	stuckAfter time.Duration
	logger     logger.Logger
	now        func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the store's clock (tests)
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a job store
func NewStore(ttl, stuckAfter time.Duration, log logger.Logger, opts ...Option) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	s := &Store{
		jobs:       make(map[string]*Job),
		ttl:        ttl,
		stuckAfter: stuckAfter,
		logger:     log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new queued job for a subject and returns a copy of it
func (s *Store) Create(subject string) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		Subject:   subject,
		Status:    StatusQueued,
		CreatedAt: s.now(),
	}
	s.jobs[job.ID] = job

	s.logger.DebugWithFields("job created", map[string]interface{}{
		"job_id":  job.ID,
		"subject": subject,
	})

	return *job
}

// Get returns a copy of the job, or ErrNotFound if unknown or expired
func (s *Store) Get(jobID string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok || s.expired(job) {
		return Job{}, ErrNotFound
	}
	return *job, nil
}

// FindActive returns a copy of the subject's queued or running job, if any.
// At most one such job can exist per subject at a time.
func (s *Store) FindActive(subject string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, job := range s.jobs {
		if job.Subject == subject && !job.Status.Terminal() {
			return *job, true
		}
	}
	return Job{}, false
}

// Transition moves a job to a new status, enforcing
// queued → running → {done, error}. Terminal states are final; moving into
// the same or an earlier state is rejected. A result may only accompany the
// done status; an error message only the error status.
func (s *Store) Transition(jobID string, status Status, result *models.ScrapeResult, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}

	if job.Status.Terminal() || status.rank() <= job.Status.rank() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, status)
	}

	job.Status = status
	switch status {
	case StatusDone:
		job.Result = result
	case StatusError:
		job.Error = errMsg
	}
	if status.Terminal() {
		completed := s.now()
		job.CompletedAt = &completed
	}

	s.logger.DebugWithFields("job transitioned", map[string]interface{}{
		"job_id": jobID,
		"status": string(status),
	})

	return nil
}

// Sweep garbage-collects expired jobs and fails stuck ones. Returns the
// number of removed jobs.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, job := range s.jobs {
		if s.expired(job) {
			delete(s.jobs, id)
			removed++
			continue
		}
		if !job.Status.Terminal() && now.Sub(job.CreatedAt) > s.stuckAfter {
			job.Status = StatusError
			job.Error = "job abandoned: exceeded processing bound"
			completed := now
			job.CompletedAt = &completed

			s.logger.WarnWithFields("stuck job marked as error", map[string]interface{}{
				"job_id":  id,
				"subject": job.Subject,
			})
		}
	}

	if removed > 0 {
		s.logger.DebugWithFields("expired jobs removed", map[string]interface{}{
			"count": removed,
		})
	}

	return removed
}

// RunJanitor sweeps at the given interval until the context is cancelled
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// expired reports whether a job's TTL has elapsed since completion
func (s *Store) expired(job *Job) bool {
	if job.CompletedAt == nil {
		return false
	}
	return s.now().Sub(*job.CompletedAt) >= s.ttl
}

// Len returns the number of jobs currently tracked
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
