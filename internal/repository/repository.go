package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yourusername/fairway-edge/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Runs            RunRepository
	Recommendations RecommendationRepository
	Artifacts       ArtifactRepository
	Calibration     CalibrationRepository
	Players         PlayerRepository
}

// Querier is the subset of pgx shared by the pool and a transaction
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// NewRepositories creates all PostgreSQL repositories on top of q
func NewRepositories(q Querier) *Repositories {
	return &Repositories{
		Runs:            NewPostgresRunRepository(q),
		Recommendations: NewPostgresRecommendationRepository(q),
		Artifacts:       NewPostgresArtifactRepository(q),
		Calibration:     NewPostgresCalibrationRepository(q),
		Players:         NewPostgresPlayerRepository(q),
	}
}

// PostgresStore implements Store with PostgreSQL
type PostgresStore struct {
	db    *database.DB
	repos *Repositories
}

// NewPostgresStore creates a store backed by the pool
func NewPostgresStore(db *database.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &PostgresStore{db: db, repos: NewRepositories(db.Pool())}, nil
}

// Repositories returns repositories that run each statement on its own connection
func (s *PostgresStore) Repositories() *Repositories {
	return s.repos
}

// WithinTx runs fn inside one database transaction
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(repos *Repositories) error) error {
	return s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return fn(NewRepositories(tx))
	})
}
