package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/yourusername/fairway-edge/internal/config"
	"github.com/yourusername/fairway-edge/internal/logger"
)

// TestConfigEnv names the config file used by integration tests
const TestConfigEnv = "FAIRWAY_EDGE_TEST_CONFIG"

// SetupTestDB connects to the integration database and migrates it, skipping the test when none is configured
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	path := os.Getenv(TestConfigEnv)
	if path == "" {
		t.Skipf("integration test: set %s to a config file with a reachable database", TestConfigEnv)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("failed to load test config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}

	if _, err := Migrate(ctx, db, logger.Discard()); err != nil {
		db.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(db.Close)
	return db
}

// TruncateAll empties every application table between integration tests
func TruncateAll(t *testing.T, db *DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := db.pool.Exec(ctx, "TRUNCATE runs, recommendations, run_artifacts, calibration_models, players CASCADE")
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}
