package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/fairway-edge/internal/datasource"
	"github.com/yourusername/fairway-edge/internal/service"
)

var (
	runKey  string
	dryRun  bool
	runSeed int64
	tours   []string
)

func init() {
	runCmd.Flags().StringVar(&runKey, "run-key", "", "Regenerate a specific run (run-YYYYMMDD-YYYYMMDD); defaults to the current ISO week")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run against in-memory storage and print the result without persisting")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "Fix the simulation seed for every event")
	runCmd.Flags().StringSliceVar(&tours, "tours", nil, "Tours to include; defaults to provider.tours")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate recommendations for one week",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		be, err := openBackend(ctx, dryRun)
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

		opts := service.RunOptions{RunKey: runKey, Tours: tours}
		if cmd.Flags().Changed("seed") {
			opts.Seed = &runSeed
		}

		result, runErr := orchestrator.Run(ctx, opts)
		if result != nil {
			if err := printResult(result); err != nil {
				logger.WithError(err).Error("Failed to print run result")
			}
		}
		if runErr != nil {
			return fmt.Errorf("run failed: %w", runErr)
		}

		logger.WithFields(logrus.Fields{
			"run_key":         result.RunKey,
			"recommendations": result.RecommendationsCreated,
			"dry_run":         dryRun,
		}).Info("Run finished")
		return nil
	},
}

func printResult(result *service.RunResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
