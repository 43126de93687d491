package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/fairway-edge/internal/datasource"
	"github.com/yourusername/fairway-edge/internal/health"
	"github.com/yourusername/fairway-edge/internal/metrics"
	"github.com/yourusername/fairway-edge/internal/scheduler"
	"github.com/yourusername/fairway-edge/internal/service"
)

var (
	runOnStart bool
	runTimeout time.Duration
)

func init() {
	serveCmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "Trigger a run immediately after startup")
	serveCmd.Flags().DurationVar(&runTimeout, "run-timeout", 2*time.Hour, "Upper bound on a single scheduled run")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run on the configured cron schedule and serve health and metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Run.Schedule == "" {
			return fmt.Errorf("run.schedule must be set to serve")
		}

		be, err := openBackend(ctx, false)
		if err != nil {
			return err
		}
		defer be.close()

		provider, err := datasource.NewProvider(cfg.Provider, logger)
		if err != nil {
			return err
		}
		orchestrator, err := service.NewOrchestrator(cfg, provider, be.store, be.locker, logger)
		if err != nil {
			return err
		}

		sched := scheduler.NewScheduler(orchestrator, logger)
		if err := sched.ScheduleRuns(cfg.Run.Schedule, runTimeout); err != nil {
			return err
		}

		healthCfg := health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Commit:      GitCommit,
			Port:        strconv.Itoa(cfg.Metrics.Port),
			Logger:      logger,
			Checks:      map[string]health.Pinger{"database": be.db},
			Status: func() any {
				if last := sched.LastResult(); last != nil {
					return last
				}
				return nil
			},
		}
		if cfg.Metrics.Enabled {
			metrics.InitRegistry()
			healthCfg.Metrics = metrics.Handler()
		}
		srv := health.NewServer(healthCfg)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}

		if err := sched.Start(); err != nil {
			return err
		}
		srv.SetReady(true)
		logger.WithField("next_run", sched.GetNextRun()).Info("Service started")

		if runOnStart {
			go sched.RunNow(ctx)
		}

		<-ctx.Done()
		logger.Info("Shutting down")
		srv.SetReady(false)
		if err := sched.Stop(); err != nil {
			logger.WithError(err).Warn("Scheduler did not stop cleanly")
		}
		return srv.Shutdown()
	},
}
