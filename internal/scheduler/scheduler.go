// Package scheduler triggers recommendation runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/fairway-edge/internal/service"
)

// Runner executes one recommendation run
type Runner interface {
	Run(ctx context.Context, opts service.RunOptions) (*service.RunResult, error)
}

// Scheduler manages scheduled run jobs
type Scheduler struct {
	cron            *cron.Cron
	runner          Runner
	logger          *logrus.Entry
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	gracefulTimeout time.Duration
	lastResult      atomic.Pointer[service.RunResult]
}

// NewScheduler creates a new scheduler. Overlapping triggers are skipped while a run is in flight.
func NewScheduler(runner Runner, logger *logrus.Logger) *Scheduler {
	entry := logger.WithField("component", "scheduler")
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(entry))),
		),
		runner:          runner,
		logger:          entry,
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleRuns schedules a run of the current ISO week on the cron expression
func (s *Scheduler) ScheduleRuns(cronExpression string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.RunNow(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("cron", cronExpression).Info("Scheduled recommendation run")

	return nil
}

// RunNow executes one run immediately and records its result
func (s *Scheduler) RunNow(ctx context.Context) (*service.RunResult, error) {
	s.logger.Info("Starting scheduled run")

	result, err := s.runner.Run(ctx, service.RunOptions{})
	if result != nil {
		s.lastResult.Store(result)
	}
	if err != nil {
		s.logger.WithError(err).Error("Scheduled run failed")
		return result, err
	}

	s.logger.WithFields(logrus.Fields{
		"run_key":         result.RunKey,
		"recommendations": result.RecommendationsCreated,
		"issues":          len(result.Issues),
	}).Info("Scheduled run completed")
	return result, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop stops the scheduler and waits for an in-flight run, up to the graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	stopped := s.cron.Stop()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.gracefulTimeout)
	defer cancel()

	select {
	case <-stopped.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop timed out with a run in flight")
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// LastResult returns the result of the most recent run, or nil
func (s *Scheduler) LastResult() *service.RunResult {
	return s.lastResult.Load()
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}
