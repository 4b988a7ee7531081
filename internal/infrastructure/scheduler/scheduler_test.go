package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bimate/backend/internal/domain/period"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExecutor struct {
	mu       sync.Mutex
	failures int
	calls    int
	done     chan *Job
}

func (f *fakeExecutor) Execute(ctx context.Context, job *Job) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return errors.New("telegram down")
	}
	f.done <- job
	return nil
}

func testWeek() period.Range {
	return period.Range{Start: period.Date(2024, time.March, 4), End: period.Date(2024, time.March, 10)}
}

func TestJobLifecycle(t *testing.T) {
	job := NewJob(testWeek(), 1)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.NotNil(t, job.Delivered)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)

	job.Fail("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.True(t, job.ShouldRetry())

	job.ScheduleRetry(time.Minute)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Empty(t, job.Error)

	job.Start()
	job.Fail("boom")
	assert.False(t, job.ShouldRetry(), "retries exhausted")

	job.Complete()
	assert.Equal(t, JobStatusSuccess, job.Status)
}

func TestScheduler_SubmitWhenStopped(t *testing.T) {
	s := NewScheduler(DefaultConfig(), &fakeExecutor{}, zap.NewNop())

	_, err := s.ScheduleDigest(testWeek())

	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestScheduler_RunsJob(t *testing.T) {
	exec := &fakeExecutor{done: make(chan *Job, 1)}
	s := NewScheduler(DefaultConfig(), exec, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	job, err := s.ScheduleDigest(testWeek())
	require.NoError(t, err)

	select {
	case got := <-exec.done:
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, testWeek(), got.Week)
	case <-time.After(time.Second):
		t.Fatal("job was not executed")
	}
}

func TestScheduler_RetriesFailedJob(t *testing.T) {
	exec := &fakeExecutor{failures: 1, done: make(chan *Job, 1)}
	cfg := DefaultConfig()
	cfg.RetryDelay = 10 * time.Millisecond
	s := NewScheduler(cfg, exec, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })

	_, err := s.ScheduleDigest(testWeek())
	require.NoError(t, err)

	select {
	case got := <-exec.done:
		assert.Equal(t, 1, got.RetryCount)
	case <-time.After(time.Second):
		t.Fatal("job was not retried")
	}
}

func TestScheduler_QueueFull(t *testing.T) {
	s := NewScheduler(Config{Workers: 1, QueueSize: 1}, &fakeExecutor{}, zap.NewNop())
	s.isRunning = true

	require.NoError(t, s.SubmitJob(NewJob(testWeek(), 0)))
	assert.ErrorIs(t, s.SubmitJob(NewJob(testWeek(), 0)), ErrJobQueueFull)
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := NewScheduler(DefaultConfig(), &fakeExecutor{}, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))

	require.NoError(t, s.Stop(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}
