// Package probability holds the shared probability and odds arithmetic used across the pipeline.
package probability

import (
	"fmt"
	"math"

	"github.com/yourusername/fairway-edge/internal/models"
)

// Bounds of the open interval every emitted probability is clamped into
const (
	Floor   = 1e-4
	Ceiling = 1 - 1e-4
)

// Clamp forces p into [Floor, Ceiling]; NaN maps to Floor
func Clamp(p float64) float64 {
	if math.IsNaN(p) {
		return Floor
	}
	return math.Max(Floor, math.Min(Ceiling, p))
}

// IsValid reports whether p lies strictly inside (0, 1)
func IsValid(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0 && p < 1
}

// Logit returns log(p / (1-p)) of the clamped probability
func Logit(p float64) float64 {
	p = Clamp(p)
	return math.Log(p / (1 - p))
}

// Sigmoid is the inverse of Logit
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// ValidateOdds ensures decimal odds are a payable price
func ValidateOdds(odds float64) error {
	if math.IsNaN(odds) || odds <= 1.0 {
		return fmt.Errorf("%w: got %.4f", models.ErrInvalidOdds, odds)
	}
	return nil
}

// Implied returns the implied probability of decimal odds
func Implied(odds float64) float64 {
	if odds <= 1.0 {
		return 0
	}
	return 1.0 / odds
}

// ExpectedValue is the expected profit per unit stake at decimal odds
func ExpectedValue(p, odds float64) float64 {
	return p*odds - 1
}
