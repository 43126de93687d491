package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/fairway-edge/internal/models"
)

const runColumns = `id, run_key, status, window_start, window_end, input_hash, input_summary, stages,
	failed_step, error, events_discovered, players_ingested, odds_markets_ingested,
	recommendations_created, started_at, completed_at`

// PostgresRunRepository implements RunRepository for PostgreSQL
type PostgresRunRepository struct {
	q Querier
}

// NewPostgresRunRepository creates a new PostgreSQL run repository
func NewPostgresRunRepository(q Querier) *PostgresRunRepository {
	return &PostgresRunRepository{q: q}
}

// Create inserts a new run
func (r *PostgresRunRepository) Create(ctx context.Context, run *models.Run) error {
	stages, err := json.Marshal(run.Stages)
	if err != nil {
		return fmt.Errorf("failed to encode run stages: %w", err)
	}

	query := `INSERT INTO runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = r.q.Exec(ctx, query,
		run.ID, run.RunKey, run.Status, run.WindowStart, run.WindowEnd, run.InputHash,
		nullableJSON(run.InputSummary), stages, run.FailedStep, run.Error,
		run.EventsDiscovered, run.PlayersIngested, run.OddsMarketsIngested,
		run.RecommendationsCreated, run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// GetByKey retrieves a run by its key
func (r *PostgresRunRepository) GetByKey(ctx context.Context, runKey string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE run_key = $1`
	run, err := scanRun(r.q.QueryRow(ctx, query, runKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// Update overwrites the mutable run fields
func (r *PostgresRunRepository) Update(ctx context.Context, run *models.Run) error {
	stages, err := json.Marshal(run.Stages)
	if err != nil {
		return fmt.Errorf("failed to encode run stages: %w", err)
	}

	query := `
		UPDATE runs
		SET status = $2, input_hash = $3, input_summary = $4, stages = $5, failed_step = $6, error = $7,
		    events_discovered = $8, players_ingested = $9, odds_markets_ingested = $10,
		    recommendations_created = $11, completed_at = $12
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query,
		run.ID, run.Status, run.InputHash, nullableJSON(run.InputSummary), stages, run.FailedStep, run.Error,
		run.EventsDiscovered, run.PlayersIngested, run.OddsMarketsIngested,
		run.RecommendationsCreated, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteByKey removes the run; recommendations and artifacts cascade
func (r *PostgresRunRepository) DeleteByKey(ctx context.Context, runKey string) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM runs WHERE run_key = $1`, runKey)
	if err != nil {
		return false, fmt.Errorf("failed to delete run: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListRecent returns the most recently started runs
func (r *PostgresRunRepository) ListRecent(ctx context.Context, limit int) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*models.Run, error) {
	run := &models.Run{}
	var summary, stages []byte
	err := row.Scan(
		&run.ID, &run.RunKey, &run.Status, &run.WindowStart, &run.WindowEnd, &run.InputHash,
		&summary, &stages, &run.FailedStep, &run.Error, &run.EventsDiscovered, &run.PlayersIngested,
		&run.OddsMarketsIngested, &run.RecommendationsCreated, &run.StartedAt, &run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(summary) > 0 {
		run.InputSummary = json.RawMessage(summary)
	}
	if len(stages) > 0 {
		if err := json.Unmarshal(stages, &run.Stages); err != nil {
			return nil, fmt.Errorf("failed to decode run stages: %w", err)
		}
	}
	return run, nil
}

// nullableJSON maps an empty document to SQL NULL
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
