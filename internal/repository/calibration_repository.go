package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/fairway-edge/internal/models"
)

// PostgresCalibrationRepository implements CalibrationRepository for PostgreSQL
type PostgresCalibrationRepository struct {
	q Querier
}

// NewPostgresCalibrationRepository creates a new PostgreSQL calibration repository
func NewPostgresCalibrationRepository(q Querier) *PostgresCalibrationRepository {
	return &PostgresCalibrationRepository{q: q}
}

// Save deactivates the market's current model and inserts the new one as active.
// Callers wanting both statements atomic run Save inside Store.WithinTx.
func (r *PostgresCalibrationRepository) Save(ctx context.Context, m *models.CalibrationModel) error {
	bins, err := json.Marshal(m.Bins)
	if err != nil {
		return fmt.Errorf("failed to encode calibration bins: %w", err)
	}

	if _, err := r.q.Exec(ctx, `UPDATE calibration_models SET active = FALSE WHERE market = $1 AND active`, m.Market); err != nil {
		return fmt.Errorf("failed to deactivate calibration models: %w", err)
	}

	query := `
		INSERT INTO calibration_models (id, market, bins, sample_size, active, trained_at)
		VALUES ($1, $2, $3, $4, TRUE, $5)
	`
	if _, err := r.q.Exec(ctx, query, m.ID, m.Market, bins, m.SampleSize, m.TrainedAt); err != nil {
		return fmt.Errorf("failed to save calibration model: %w", err)
	}
	m.Active = true
	return nil
}

// GetActive returns the active model of every market
func (r *PostgresCalibrationRepository) GetActive(ctx context.Context) ([]*models.CalibrationModel, error) {
	query := `
		SELECT id, market, bins, sample_size, active, trained_at
		FROM calibration_models
		WHERE active
		ORDER BY market
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query calibration models: %w", err)
	}
	defer rows.Close()

	var result []*models.CalibrationModel
	for rows.Next() {
		m, err := scanCalibrationModel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calibration model: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// GetActiveByMarket returns the market's active model
func (r *PostgresCalibrationRepository) GetActiveByMarket(ctx context.Context, market models.Market) (*models.CalibrationModel, error) {
	query := `
		SELECT id, market, bins, sample_size, active, trained_at
		FROM calibration_models
		WHERE market = $1 AND active
	`

	m, err := scanCalibrationModel(r.q.QueryRow(ctx, query, market))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get calibration model: %w", err)
	}
	return m, nil
}

func scanCalibrationModel(row pgx.Row) (*models.CalibrationModel, error) {
	m := &models.CalibrationModel{}
	var bins []byte
	if err := row.Scan(&m.ID, &m.Market, &bins, &m.SampleSize, &m.Active, &m.TrainedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bins, &m.Bins); err != nil {
		return nil, fmt.Errorf("failed to decode calibration bins: %w", err)
	}
	return m, nil
}
