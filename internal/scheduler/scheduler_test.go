package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fairway-edge/internal/logger"
	"github.com/yourusername/fairway-edge/internal/models"
	"github.com/yourusername/fairway-edge/internal/service"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRunner) Run(_ context.Context, _ service.RunOptions) (*service.RunResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	status := models.RunStatusCompleted
	if f.err != nil {
		status = models.RunStatusFailed
	}
	return &service.RunResult{RunKey: "run-20260406-20260412", Status: status}, f.err
}

func TestScheduleRequiresJobs(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, logger.Discard())
	assert.Error(t, s.Start())
	assert.False(t, s.IsRunning())
	assert.True(t, s.GetNextRun().IsZero())
}

func TestScheduleRejectsBadExpression(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, logger.Discard())
	assert.Error(t, s.ScheduleRuns("not a cron", time.Minute))
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, logger.Discard())
	require.NoError(t, s.ScheduleRuns("0 6 * * 3", time.Minute))
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start())
	assert.Error(t, s.ScheduleRuns("0 7 * * 3", time.Minute))

	next := s.GetNextRun()
	require.False(t, next.IsZero())
	assert.Equal(t, time.Wednesday, next.Weekday())
	assert.Equal(t, 6, next.Hour())

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
}

func TestRunNowRecordsResult(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, logger.Discard())

	result, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, result.Status)
	assert.Same(t, result, s.LastResult())

	runner.err = errors.New("no odds")
	result, err = s.RunNow(context.Background())
	assert.Error(t, err)
	assert.Equal(t, models.RunStatusFailed, s.LastResult().Status)
	assert.Same(t, result, s.LastResult())
	assert.Equal(t, 2, runner.calls)
}

type slowRunner struct {
	started chan struct{}
	once    sync.Once
	delay   time.Duration
}

func (r *slowRunner) Run(ctx context.Context, _ service.RunOptions) (*service.RunResult, error) {
	r.once.Do(func() { close(r.started) })
	time.Sleep(r.delay)
	return &service.RunResult{RunKey: "run-20260406-20260412", Status: models.RunStatusCompleted}, nil
}

func TestStopWaitsForInFlightRun(t *testing.T) {
	runner := &slowRunner{started: make(chan struct{}), delay: 300 * time.Millisecond}
	s := NewScheduler(runner, logger.Discard())
	s.gracefulTimeout = 5 * time.Second

	require.NoError(t, s.ScheduleRuns("@every 1s", time.Minute))
	require.NoError(t, s.Start())

	select {
	case <-runner.started:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled run never started")
	}

	begin := time.Now()
	require.NoError(t, s.Stop())
	assert.Less(t, time.Since(begin), 2*time.Second)

	require.NotNil(t, s.LastResult())
	assert.Equal(t, models.RunStatusCompleted, s.LastResult().Status)
}
