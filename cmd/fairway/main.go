// Package main provides the fairway command line: weekly runs, the scheduled service,
// schema migrations and calibration training.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/fairway-edge/internal/config"
	"github.com/yourusername/fairway-edge/internal/database"
	"github.com/yourusername/fairway-edge/internal/lock"
	applogger "github.com/yourusername/fairway-edge/internal/logger"
	"github.com/yourusername/fairway-edge/internal/repository"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	cfg        *config.Config
	logger     *logrus.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
}

var rootCmd = &cobra.Command{
	Use:           "fairway",
	Short:         "Golf betting recommendation engine",
	Long:          `Simulates the week's golf tournaments, compares the results with bookmaker prices and persists a tiered set of recommendations.`,
	Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger = applogger.NewForEnvironment(cfg.App.LogLevel, cfg.App.Environment)
		return nil
	},
}

func main() {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	rootCmd.AddCommand(runCmd, serveCmd, migrateCmd, calibrateCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	return config.Validate(cfg)
}

// backend is the storage and locking a command runs against
type backend struct {
	store  repository.Store
	locker lock.Locker
	db     *database.DB
	close  func()
}

// openBackend connects to PostgreSQL and the run lock, or to in-memory stand-ins for a dry run
func openBackend(ctx context.Context, dryRun bool) (*backend, error) {
	if dryRun {
		logger.Info("Dry run: using in-memory storage")
		return &backend{
			store:  repository.NewMemoryStore(),
			locker: lock.NewLocalLocker(),
			close:  func() {},
		}, nil
	}

	db, err := database.Initialize(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	store, err := repository.NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	locker, closeLock, err := lock.New(ctx, cfg.Redis, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up run lock: %w", err)
	}

	return &backend{
		store:  store,
		locker: locker,
		db:     db,
		close: func() {
			if err := closeLock(); err != nil {
				logger.WithError(err).Error("Failed to close lock client")
			}
			db.Close()
		},
	}, nil
}
