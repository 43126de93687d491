package repository

import (
	"context"
	"fmt"

	"github.com/yourusername/fairway-edge/internal/models"
)

// PostgresPlayerRepository implements PlayerRepository for PostgreSQL
type PostgresPlayerRepository struct {
	q Querier
}

// NewPostgresPlayerRepository creates a new PostgreSQL player repository
func NewPostgresPlayerRepository(q Querier) *PostgresPlayerRepository {
	return &PostgresPlayerRepository{q: q}
}

// GetAll loads every known identity
func (r *PostgresPlayerRepository) GetAll(ctx context.Context) ([]*models.PlayerIdentity, error) {
	query := `
		SELECT id, canonical_name, aliases, external_id, created_at, updated_at
		FROM players
		ORDER BY canonical_name
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var players []*models.PlayerIdentity
	for rows.Next() {
		p := &models.PlayerIdentity{}
		if err := rows.Scan(&p.ID, &p.CanonicalName, &p.Aliases, &p.ExternalID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// Upsert inserts the identity or grows the stored one. Aliases only accumulate and an
// external id, once attached, is never replaced.
func (r *PostgresPlayerRepository) Upsert(ctx context.Context, p *models.PlayerIdentity) error {
	query := `
		INSERT INTO players (id, canonical_name, aliases, external_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (canonical_name) DO UPDATE
		SET aliases = (
		        SELECT ARRAY(SELECT DISTINCT a FROM unnest(players.aliases || EXCLUDED.aliases) AS a ORDER BY a)
		    ),
		    external_id = COALESCE(players.external_id, EXCLUDED.external_id),
		    updated_at = EXCLUDED.updated_at
	`

	aliases := p.Aliases
	if aliases == nil {
		aliases = []string{}
	}

	_, err := r.q.Exec(ctx, query, p.ID, p.CanonicalName, aliases, p.ExternalID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to upsert player %q: %w", p.CanonicalName, models.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to upsert player: %w", err)
	}
	return nil
}
