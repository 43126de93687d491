package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/fairway-edge/internal/config"
)

// Migration is one forward-only schema step
type Migration struct {
	Version     int
	Description string
	Statements  []string
}

// Migrations is the ordered schema history
var Migrations = []Migration{
	{
		Version:     1,
		Description: "runs and recommendations",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS runs (
				id UUID PRIMARY KEY,
				run_key TEXT NOT NULL UNIQUE,
				status TEXT NOT NULL,
				window_start TIMESTAMPTZ NOT NULL,
				window_end TIMESTAMPTZ NOT NULL,
				input_hash TEXT NOT NULL DEFAULT '',
				input_summary JSONB,
				stages JSONB NOT NULL DEFAULT '{}'::jsonb,
				failed_step TEXT NOT NULL DEFAULT '',
				error TEXT NOT NULL DEFAULT '',
				events_discovered INTEGER NOT NULL DEFAULT 0,
				players_ingested INTEGER NOT NULL DEFAULT 0,
				odds_markets_ingested INTEGER NOT NULL DEFAULT 0,
				recommendations_created INTEGER NOT NULL DEFAULT 0,
				started_at TIMESTAMPTZ NOT NULL,
				completed_at TIMESTAMPTZ
			)`,
			`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at DESC)`,
			`CREATE TABLE IF NOT EXISTS recommendations (
				id UUID PRIMARY KEY,
				run_id UUID NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
				run_key TEXT NOT NULL,
				event_id TEXT NOT NULL,
				tier TEXT NOT NULL,
				market TEXT NOT NULL,
				group_id TEXT NOT NULL DEFAULT '',
				selection_key TEXT NOT NULL,
				player_name TEXT NOT NULL,
				fair_probability DOUBLE PRECISION NOT NULL,
				market_probability DOUBLE PRECISION NOT NULL,
				edge DOUBLE PRECISION NOT NULL,
				expected_value DOUBLE PRECISION NOT NULL,
				odds NUMERIC(10, 4) NOT NULL,
				bookmaker TEXT NOT NULL,
				provenance TEXT NOT NULL,
				confidence DOUBLE PRECISION NOT NULL,
				fallback BOOLEAN NOT NULL DEFAULT FALSE,
				fallback_reason TEXT NOT NULL DEFAULT '',
				rationale TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE (run_id, event_id, market, group_id, selection_key)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_recommendations_run_key ON recommendations (run_key)`,
		},
	},
	{
		Version:     2,
		Description: "run artifacts",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS run_artifacts (
				id UUID PRIMARY KEY,
				run_id UUID NOT NULL REFERENCES runs (id) ON DELETE CASCADE,
				run_key TEXT NOT NULL,
				kind TEXT NOT NULL,
				payload_hash TEXT NOT NULL,
				payload BYTEA NOT NULL,
				compressed BOOLEAN NOT NULL DEFAULT FALSE,
				size_bytes INTEGER NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_run_artifacts_run_key ON run_artifacts (run_key)`,
		},
	},
	{
		Version:     3,
		Description: "calibration models and player identities",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS calibration_models (
				id UUID PRIMARY KEY,
				market TEXT NOT NULL,
				bins JSONB NOT NULL,
				sample_size INTEGER NOT NULL,
				active BOOLEAN NOT NULL DEFAULT FALSE,
				trained_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_calibration_models_active_market
				ON calibration_models (market) WHERE active`,
			`CREATE TABLE IF NOT EXISTS players (
				id UUID PRIMARY KEY,
				canonical_name TEXT NOT NULL UNIQUE,
				aliases TEXT[] NOT NULL DEFAULT '{}',
				external_id TEXT UNIQUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
		},
	},
}

// Migrate applies every pending migration, each in its own transaction, and returns how many ran
func Migrate(ctx context.Context, db *DB, logger *logrus.Logger) (int, error) {
	_, err := db.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range Migrations {
		if m.Version <= current {
			continue
		}
		err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
			for _, stmt := range m.Statements {
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, description) VALUES ($1, $2)`,
				m.Version, m.Description)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		logger.WithFields(logrus.Fields{
			"version":     m.Version,
			"description": m.Description,
		}).Info("Applied migration")
		applied++
	}

	return applied, nil
}

// SchemaVersion returns the highest applied migration, or 0 when none ran
func SchemaVersion(ctx context.Context, db *DB) (int, error) {
	var version int
	err := db.pool.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// LatestVersion is the version the schema reaches once every migration is applied
func LatestVersion() int {
	if len(Migrations) == 0 {
		return 0
	}
	return Migrations[len(Migrations)-1].Version
}

// Initialize connects and warns when the schema lags behind the code
func Initialize(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	version, err := SchemaVersion(ctx, db)
	if err != nil {
		// schema_migrations may not exist yet on a fresh database
		logger.WithError(err).Warn("Schema version unknown, run `fairway migrate`")
		return db, nil
	}
	if version < LatestVersion() {
		logger.WithFields(logrus.Fields{
			"current": version,
			"latest":  LatestVersion(),
		}).Warn("Pending migrations, run `fairway migrate`")
	}

	return db, nil
}
