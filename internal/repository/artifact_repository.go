package repository

import (
	"context"
	"fmt"

	"github.com/yourusername/fairway-edge/internal/models"
)

// PostgresArtifactRepository implements ArtifactRepository for PostgreSQL
type PostgresArtifactRepository struct {
	q Querier
}

// NewPostgresArtifactRepository creates a new PostgreSQL artifact repository
func NewPostgresArtifactRepository(q Querier) *PostgresArtifactRepository {
	return &PostgresArtifactRepository{q: q}
}

// Insert stores one artifact
func (r *PostgresArtifactRepository) Insert(ctx context.Context, a *models.RunArtifact) error {
	query := `
		INSERT INTO run_artifacts (id, run_id, run_key, kind, payload_hash, payload, compressed, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.Exec(ctx, query,
		a.ID, a.RunID, a.RunKey, a.Kind, a.PayloadHash, a.Payload, a.Compressed, a.SizeBytes, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert artifact: %w", err)
	}
	return nil
}

// GetByRunKey returns a run's artifacts ordered by kind
func (r *PostgresArtifactRepository) GetByRunKey(ctx context.Context, runKey string) ([]*models.RunArtifact, error) {
	query := `
		SELECT id, run_id, run_key, kind, payload_hash, payload, compressed, size_bytes, created_at
		FROM run_artifacts
		WHERE run_key = $1
		ORDER BY kind, payload_hash
	`

	rows, err := r.q.Query(ctx, query, runKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*models.RunArtifact
	for rows.Next() {
		a := &models.RunArtifact{}
		if err := rows.Scan(&a.ID, &a.RunID, &a.RunKey, &a.Kind, &a.PayloadHash, &a.Payload,
			&a.Compressed, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}
