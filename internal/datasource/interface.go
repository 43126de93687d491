// Package datasource fetches tournament, field, prediction and odds data from the upstream feed.
package datasource

import (
	"context"
	"errors"

	"github.com/yourusername/fairway-edge/internal/models"
)

// Provider defines the upstream collaborator the run orchestrator pulls from.
// Every method is scoped to one tour; failures are reported per call and treated as soft by callers.
type Provider interface {
	// Name returns the name of the data source
	Name() string

	// Schedule returns the tour's events
	Schedule(ctx context.Context, tour string) ([]models.Event, error)

	// Field returns the entry list for the tour's current event
	Field(ctx context.Context, tour string) (*models.Field, error)

	// SkillRatings returns per-player skill signals for the current event
	SkillRatings(ctx context.Context, tour string) ([]models.SkillRating, error)

	// Predictions returns optional third-party market priors
	Predictions(ctx context.Context, tour string) ([]models.PlayerPrediction, error)

	// OutrightOdds returns per-book prices for an outright market
	OutrightOdds(ctx context.Context, tour string, market models.Market) (*models.OddsBoard, error)

	// MatchupOdds returns per-book prices for a grouped market
	MatchupOdds(ctx context.Context, tour string, market models.Market) (*models.OddsBoard, error)
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

// Unwrap exposes the underlying error
func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
	ErrCodeCircuitOpen          = "circuit_open"
	ErrCodeUnsupported          = "unsupported"
)

var (
	// ErrNoData is returned when the feed answers but carries nothing usable
	ErrNoData = errors.New("no data in response")
	// ErrUnsupportedMarket is returned when a market is requested from the wrong endpoint
	ErrUnsupportedMarket = errors.New("unsupported market")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrorCode extracts the data source error code, or "" when err is not a DataSourceError
func ErrorCode(err error) string {
	var dsErr DataSourceError
	if errors.As(err, &dsErr) {
		return dsErr.Code
	}
	return ""
}
