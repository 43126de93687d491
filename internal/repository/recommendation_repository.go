package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/fairway-edge/internal/models"
)

// PostgresRecommendationRepository implements RecommendationRepository for PostgreSQL
type PostgresRecommendationRepository struct {
	q Querier
}

// NewPostgresRecommendationRepository creates a new PostgreSQL recommendation repository
func NewPostgresRecommendationRepository(q Querier) *PostgresRecommendationRepository {
	return &PostgresRecommendationRepository{q: q}
}

// InsertBatch inserts recommendations in a single round trip
func (r *PostgresRecommendationRepository) InsertBatch(ctx context.Context, recs []*models.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}

	query := `
		INSERT INTO recommendations (
			id, run_id, run_key, event_id, tier, market, group_id, selection_key, player_name,
			fair_probability, market_probability, edge, expected_value, odds, bookmaker,
			provenance, confidence, fallback, fallback_reason, rationale, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	batch := &pgx.Batch{}
	for _, rec := range recs {
		batch.Queue(query,
			rec.ID, rec.RunID, rec.RunKey, rec.EventID, rec.Tier, rec.Market, rec.GroupID,
			rec.SelectionKey, rec.PlayerName, rec.FairProbability, rec.MarketProbability,
			rec.Edge, rec.ExpectedValue, rec.Odds, rec.Bookmaker, rec.Provenance,
			rec.Confidence, rec.Fallback, rec.FallbackReason, rec.Rationale, rec.CreatedAt,
		)
	}

	results := r.q.SendBatch(ctx, batch)
	defer results.Close()

	for i := range recs {
		if _, err := results.Exec(); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("failed to insert recommendation %d: %w", i, models.ErrDuplicateKey)
			}
			return fmt.Errorf("failed to insert recommendation %d: %w", i, err)
		}
	}

	return nil
}

// GetByRunKey returns a run's recommendations in a stable order
func (r *PostgresRecommendationRepository) GetByRunKey(ctx context.Context, runKey string) ([]*models.Recommendation, error) {
	query := `
		SELECT id, run_id, run_key, event_id, tier, market, group_id, selection_key, player_name,
		       fair_probability, market_probability, edge, expected_value, odds, bookmaker,
		       provenance, confidence, fallback, fallback_reason, rationale, created_at
		FROM recommendations
		WHERE run_key = $1
		ORDER BY event_id, tier, expected_value DESC, market, group_id, selection_key
	`

	rows, err := r.q.Query(ctx, query, runKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	var recs []*models.Recommendation
	for rows.Next() {
		rec := &models.Recommendation{}
		err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.RunKey, &rec.EventID, &rec.Tier, &rec.Market, &rec.GroupID,
			&rec.SelectionKey, &rec.PlayerName, &rec.FairProbability, &rec.MarketProbability,
			&rec.Edge, &rec.ExpectedValue, &rec.Odds, &rec.Bookmaker, &rec.Provenance,
			&rec.Confidence, &rec.Fallback, &rec.FallbackReason, &rec.Rationale, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}
