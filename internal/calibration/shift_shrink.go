package calibration

import (
	"github.com/yourusername/fairway-edge/internal/config"
	"github.com/yourusername/fairway-edge/internal/models"
	"github.com/yourusername/fairway-edge/internal/probability"
)

// Calibrator maps a blended probability to a calibrated one for a market
type Calibrator interface {
	Calibrate(market models.Market, p float64) float64
}

// ShiftShrink applies a per-market logit shift, then shrinks toward 0.5.
// Markets without parameters pass through unchanged apart from clamping.
type ShiftShrink struct {
	params map[models.Market]config.ShiftShrinkConfig
}

// NewShiftShrink creates a shift-and-shrink calibrator from per-market config
func NewShiftShrink(cfg map[string]config.ShiftShrinkConfig) *ShiftShrink {
	params := make(map[models.Market]config.ShiftShrinkConfig, len(cfg))
	for market, p := range cfg {
		params[models.Market(market)] = p
	}
	return &ShiftShrink{params: params}
}

// Calibrate implements Calibrator
func (s *ShiftShrink) Calibrate(market models.Market, p float64) float64 {
	params := s.params[market]
	q := probability.Sigmoid(probability.Logit(p) + params.Shift)
	q = 0.5 + (q-0.5)*(1-params.Shrink)
	return probability.Clamp(q)
}

// NewFromConfig builds the configured calibration strategy.
// Isotonic calibration falls back to shift-and-shrink for markets without a trained model.
func NewFromConfig(cfg config.CalibrationConfig, trained []*models.CalibrationModel) Calibrator {
	shift := NewShiftShrink(cfg.Markets)
	if cfg.Strategy == "isotonic" {
		return NewIsotonic(trained, shift)
	}
	return shift
}
