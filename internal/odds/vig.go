// Package odds removes bookmaker margin and builds cross-book consensus probabilities.
package odds

import (
	"math"

	"github.com/yourusername/fairway-edge/internal/probability"
)

// VigMethod selects how bookmaker margin is stripped from implied probabilities
type VigMethod string

// Vig removal methods
const (
	// VigNormalize scales implied probabilities proportionally to the target mass.
	VigNormalize VigMethod = "normalize"
	// VigPower raises implied probabilities to an exponent before rescaling,
	// pulling mass from longshots toward favourites.
	VigPower VigMethod = "power"
)

// RemoveVig converts one book's implied probabilities into fair probabilities summing to target.
// Results are clamped into the open unit interval.
func RemoveVig(implied []float64, method VigMethod, exponent, target float64) []float64 {
	out := make([]float64, len(implied))
	if len(implied) == 0 {
		return out
	}

	weighted := make([]float64, len(implied))
	var sum float64
	for i, p := range implied {
		w := p
		if method == VigPower && exponent > 0 {
			w = math.Pow(p, exponent)
		}
		weighted[i] = w
		sum += w
	}

	if sum <= 0 {
		for i := range out {
			out[i] = probability.Clamp(target / float64(len(implied)))
		}
		return out
	}

	for i, w := range weighted {
		out[i] = probability.Clamp(w * target / sum)
	}
	return out
}

// Overround returns the summed implied probability of a book, 1.0 meaning no margin
func Overround(implied []float64) float64 {
	var sum float64
	for _, p := range implied {
		sum += p
	}
	return sum
}
