package repository

import (
	"context"

	"github.com/yourusername/fairway-edge/internal/models"
)

// RunRepository defines the interface for run data access
type RunRepository interface {
	Create(ctx context.Context, run *models.Run) error
	GetByKey(ctx context.Context, runKey string) (*models.Run, error)
	Update(ctx context.Context, run *models.Run) error
	// DeleteByKey removes the run and everything recorded under it, reporting whether a run existed
	DeleteByKey(ctx context.Context, runKey string) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Run, error)
}

// RecommendationRepository defines the interface for recommendation data access
type RecommendationRepository interface {
	InsertBatch(ctx context.Context, recs []*models.Recommendation) error
	GetByRunKey(ctx context.Context, runKey string) ([]*models.Recommendation, error)
}

// ArtifactRepository defines the interface for raw payload artifacts
type ArtifactRepository interface {
	Insert(ctx context.Context, artifact *models.RunArtifact) error
	GetByRunKey(ctx context.Context, runKey string) ([]*models.RunArtifact, error)
}

// CalibrationRepository defines the interface for isotonic calibration models
type CalibrationRepository interface {
	// Save stores the model as the active one for its market, deactivating any previous model
	Save(ctx context.Context, model *models.CalibrationModel) error
	GetActive(ctx context.Context) ([]*models.CalibrationModel, error)
	GetActiveByMarket(ctx context.Context, market models.Market) (*models.CalibrationModel, error)
}

// PlayerRepository defines the interface for canonical player identities
type PlayerRepository interface {
	GetAll(ctx context.Context) ([]*models.PlayerIdentity, error)
	Upsert(ctx context.Context, player *models.PlayerIdentity) error
}

// Store hands out repositories and runs units of work atomically
type Store interface {
	Repositories() *Repositories
	// WithinTx runs fn against repositories bound to a single transaction.
	// Any error returned by fn rolls back every write made through them.
	WithinTx(ctx context.Context, fn func(repos *Repositories) error) error
}
