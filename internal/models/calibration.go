package models

import (
	"time"

	"github.com/google/uuid"
)

// CalibrationBin is one monotone segment of an isotonic calibration curve
type CalibrationBin struct {
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
	Midpoint  float64 `json:"midpoint"`
	Frequency float64 `json:"frequency"`
	Count     int     `json:"count"`
}

// CalibrationModel maps raw probabilities to observed frequencies for one market
type CalibrationModel struct {
	ID         uuid.UUID        `db:"id" json:"id"`
	Market     Market           `db:"market" json:"market"`
	Bins       []CalibrationBin `db:"bins" json:"bins"`
	SampleSize int              `db:"sample_size" json:"sample_size"`
	Active     bool             `db:"active" json:"active"`
	TrainedAt  time.Time        `db:"trained_at" json:"trained_at"`
}

// CalibrationPair is one historical prediction and whether it landed
type CalibrationPair struct {
	Predicted float64
	Outcome   bool
}
