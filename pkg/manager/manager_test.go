package manager

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetmap/pkg/apierrors"
	"tweetmap/pkg/cache"
	"tweetmap/pkg/jobs"
	"tweetmap/pkg/logger"
	"tweetmap/pkg/models"
)

func newTestManager(t *testing.T, queueSize int) (*Manager, *cache.Cache, *jobs.Store) {
	t.Helper()
	c := cache.New(time.Hour)
	store := jobs.NewStore(30*time.Minute, 15*time.Minute, logger.NewTestLogger())
	return New(c, store, queueSize, logger.NewTestLogger()), c, store
}

func sampleResult(subject string) *models.ScrapeResult {
	return &models.ScrapeResult{
		UserInfo:     models.UserInfo{Username: subject},
		TweetsPerDay: map[string]int{"2024-06-15": 3},
		TotalFetched: 3,
	}
}

func TestRequestFetch_CreatesAndEnqueuesJob(t *testing.T) {
	m, _, store := newTestManager(t, 4)

	out, err := m.RequestFetch("alice")
	require.NoError(t, err)

	assert.False(t, out.Cached)
	assert.Nil(t, out.Result)
	require.NotEmpty(t, out.JobID)

	job, err := store.Get(out.JobID)
	require.NoError(t, err)
	assert.Equal(t, "alice", job.Subject)
	assert.Equal(t, jobs.StatusQueued, job.Status)

	select {
	case id := <-m.Queue():
		assert.Equal(t, out.JobID, id)
	default:
		t.Fatal("expected job on the queue")
	}
}

func TestRequestFetch_NormalizesSubject(t *testing.T) {
	m, _, store := newTestManager(t, 4)

	out, err := m.RequestFetch("  @Alice ")
	require.NoError(t, err)

	job, err := store.Get(out.JobID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", job.Subject)
}

func TestRequestFetch_InvalidSubject(t *testing.T) {
	m, _, store := newTestManager(t, 4)

	for _, subject := range []string{"", "has space", "way_too_long_for_a_name", "dot.name"} {
		_, err := m.RequestFetch(subject)
		assert.True(t, apierrors.Is(err, apierrors.ErrorTypeInvalidSubject), "subject %q", subject)
	}

	assert.Equal(t, 0, store.Len(), "rejected subjects must not create jobs")
}

func TestRequestFetch_CacheHitShortCircuits(t *testing.T) {
	m, c, store := newTestManager(t, 4)
	c.Put("alice", sampleResult("alice"))

	out, err := m.RequestFetch("alice")
	require.NoError(t, err)

	assert.True(t, out.Cached)
	assert.Empty(t, out.JobID)
	require.NotNil(t, out.Result)
	assert.Equal(t, 3, out.Result.TotalFetched)
	assert.Equal(t, 0, store.Len())
}

func TestRequestFetch_DedupesActiveJob(t *testing.T) {
	m, _, _ := newTestManager(t, 4)

	first, err := m.RequestFetch("alice")
	require.NoError(t, err)
	second, err := m.RequestFetch("alice")
	require.NoError(t, err)

	assert.Equal(t, first.JobID, second.JobID)

	// only one entry on the queue
	<-m.Queue()
	select {
	case <-m.Queue():
		t.Fatal("duplicate job enqueued")
	default:
	}
}

func TestRequestFetch_ConcurrentDedupe(t *testing.T) {
	m, _, store := newTestManager(t, 64)

	var wg sync.WaitGroup
	ids := make(chan string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := m.RequestFetch("alice")
			if err == nil {
				ids <- out.JobID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1, "all concurrent requests share one job")
	assert.Equal(t, 1, store.Len())
}

func TestRequestFetch_NewJobAfterCompletion(t *testing.T) {
	m, _, store := newTestManager(t, 4)

	first, err := m.RequestFetch("alice")
	require.NoError(t, err)
	require.NoError(t, store.Transition(first.JobID, jobs.StatusRunning, nil, ""))
	require.NoError(t, store.Transition(first.JobID, jobs.StatusDone, sampleResult("alice"), ""))

	second, err := m.RequestFetch("alice")
	require.NoError(t, err)
	assert.NotEqual(t, first.JobID, second.JobID)
}

func TestRequestFetch_QueueFull(t *testing.T) {
	m, _, store := newTestManager(t, 1)

	_, err := m.RequestFetch("alice")
	require.NoError(t, err)

	out, err := m.RequestFetch("bob")
	assert.Nil(t, out)
	assert.True(t, apierrors.Is(err, apierrors.ErrorTypeServerError))

	// the rejected job is terminal so the subject is not blocked
	job, ok := store.FindActive("bob")
	assert.False(t, ok, "no active job should remain, got %+v", job)
}

func TestStatus(t *testing.T) {
	m, _, _ := newTestManager(t, 4)

	out, err := m.RequestFetch("alice")
	require.NoError(t, err)

	job, err := m.Status(out.JobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusQueued, job.Status)

	_, err = m.Status("missing-id")
	assert.True(t, apierrors.Is(err, apierrors.ErrorTypeJobNotFound))
}

func TestResult_Lifecycle(t *testing.T) {
	m, _, store := newTestManager(t, 4)

	out, err := m.RequestFetch("alice")
	require.NoError(t, err)

	_, err = m.Result(out.JobID)
	assert.True(t, apierrors.Is(err, apierrors.ErrorTypeResultNotReady))

	require.NoError(t, store.Transition(out.JobID, jobs.StatusRunning, nil, ""))
	_, err = m.Result(out.JobID)
	assert.True(t, apierrors.Is(err, apierrors.ErrorTypeResultNotReady))

	require.NoError(t, store.Transition(out.JobID, jobs.StatusDone, sampleResult("alice"), ""))
	result, err := m.Result(out.JobID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalFetched)
}

func TestResult_FailedJob(t *testing.T) {
	m, _, store := newTestManager(t, 4)

	out, err := m.RequestFetch("alice")
	require.NoError(t, err)
	require.NoError(t, store.Transition(out.JobID, jobs.StatusRunning, nil, ""))
	require.NoError(t, store.Transition(out.JobID, jobs.StatusError, nil, "all accounts exhausted"))

	_, err = m.Result(out.JobID)
	assert.True(t, apierrors.Is(err, apierrors.ErrorTypeJobFailed))
	assert.Contains(t, err.Error(), "all accounts exhausted")
}

func TestResult_UnknownJob(t *testing.T) {
	m, _, _ := newTestManager(t, 4)

	_, err := m.Result("nope")
	assert.True(t, apierrors.Is(err, apierrors.ErrorTypeJobNotFound))
}

func TestShared(t *testing.T) {
	m, c, _ := newTestManager(t, 4)

	_, err := m.Shared("alice")
	assert.True(t, apierrors.Is(err, apierrors.ErrorTypeSubjectNotFound))

	c.Put("alice", sampleResult("alice"))
	result, err := m.Shared("@alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", result.UserInfo.Username)

	_, err = m.Shared("bad name")
	assert.True(t, apierrors.Is(err, apierrors.ErrorTypeInvalidSubject))
}
