package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RunStatus is the lifecycle state of a run
type RunStatus string

// Run statuses
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether the status is final
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// StageFlags records which pipeline stages produced usable output
type StageFlags struct {
	Schedule    bool `json:"schedule"`
	Field       bool `json:"field"`
	Predictions bool `json:"predictions"`
	Odds        bool `json:"odds"`
	Simulation  bool `json:"simulation"`
	Selection   bool `json:"selection"`
	Persist     bool `json:"persist"`
}

// Run is one end-to-end generation of recommendations for a time window
type Run struct {
	ID                     uuid.UUID       `db:"id" json:"id"`
	RunKey                 string          `db:"run_key" json:"run_key" validate:"required"`
	Status                 RunStatus       `db:"status" json:"status"`
	WindowStart            time.Time       `db:"window_start" json:"window_start"`
	WindowEnd              time.Time       `db:"window_end" json:"window_end"`
	InputHash              string          `db:"input_hash" json:"input_hash,omitempty"`
	InputSummary           json.RawMessage `db:"input_summary" json:"input_summary,omitempty"`
	Stages                 StageFlags      `db:"stages" json:"stages"`
	FailedStep             string          `db:"failed_step" json:"failed_step,omitempty"`
	Error                  string          `db:"error" json:"error,omitempty"`
	EventsDiscovered       int             `db:"events_discovered" json:"events_discovered"`
	PlayersIngested        int             `db:"players_ingested" json:"players_ingested"`
	OddsMarketsIngested    int             `db:"odds_markets_ingested" json:"odds_markets_ingested"`
	RecommendationsCreated int             `db:"recommendations_created" json:"recommendations_created"`
	StartedAt              time.Time       `db:"started_at" json:"started_at"`
	CompletedAt            *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// Recommendation is the persisted form of a selected candidate
type Recommendation struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	RunID             uuid.UUID       `db:"run_id" json:"run_id"`
	RunKey            string          `db:"run_key" json:"run_key"`
	EventID           string          `db:"event_id" json:"event_id"`
	Tier              string          `db:"tier" json:"tier"`
	Market            Market          `db:"market" json:"market"`
	GroupID           string          `db:"group_id" json:"group_id,omitempty"`
	SelectionKey      string          `db:"selection_key" json:"selection_key"`
	PlayerName        string          `db:"player_name" json:"player_name"`
	FairProbability   float64         `db:"fair_probability" json:"fair_probability"`
	MarketProbability float64         `db:"market_probability" json:"market_probability"`
	Edge              float64         `db:"edge" json:"edge"`
	ExpectedValue     float64         `db:"expected_value" json:"expected_value"`
	Odds              decimal.Decimal `db:"odds" json:"odds"`
	Bookmaker         string          `db:"bookmaker" json:"bookmaker"`
	Provenance        string          `db:"provenance" json:"provenance"`
	Confidence        float64         `db:"confidence" json:"confidence"`
	Fallback          bool            `db:"fallback" json:"fallback"`
	FallbackReason    string          `db:"fallback_reason" json:"fallback_reason,omitempty"`
	Rationale         string          `db:"rationale" json:"rationale"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// RunArtifact is a raw upstream payload captured during a run, kept for audit
type RunArtifact struct {
	ID          uuid.UUID `db:"id" json:"id"`
	RunID       uuid.UUID `db:"run_id" json:"run_id"`
	RunKey      string    `db:"run_key" json:"run_key"`
	Kind        string    `db:"kind" json:"kind"`
	PayloadHash string    `db:"payload_hash" json:"payload_hash"`
	Payload     []byte    `db:"payload" json:"-"`
	Compressed  bool      `db:"compressed" json:"compressed"`
	SizeBytes   int       `db:"size_bytes" json:"size_bytes"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
