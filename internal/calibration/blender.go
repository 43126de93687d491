// Package calibration blends probability sources in logit space and calibrates the result.
package calibration

import (
	"errors"
	"fmt"

	"github.com/yourusername/fairway-edge/internal/config"
	"github.com/yourusername/fairway-edge/internal/models"
	"github.com/yourusername/fairway-edge/internal/probability"
)

var (
	// ErrMissingSimulation is returned when a blend has no simulation input.
	// Simulation output is authoritative and is never replaced by another source.
	ErrMissingSimulation = errors.New("simulation probability is required")
	// ErrNoWeight is returned when every available input carries zero weight
	ErrNoWeight = errors.New("blend weights sum to zero")
)

// Inputs are the probability sources for one selection; nil means unavailable
type Inputs struct {
	Simulation *float64
	External   *float64
	Market     *float64
}

// Blender combines simulation, external prior and market consensus in logit space
type Blender struct {
	weights config.BlendConfig
}

// NewBlender creates a blender with the configured weights
func NewBlender(weights config.BlendConfig) *Blender {
	return &Blender{weights: weights}
}

// Blend returns sigmoid(sum(w_i * logit(p_i)) / sum(w_i)) over the available inputs.
// Unavailable or invalid external/market inputs are dropped and the remaining weights renormalized.
func (b *Blender) Blend(in Inputs) (float64, error) {
	if in.Simulation == nil {
		return 0, ErrMissingSimulation
	}
	if !probability.IsValid(*in.Simulation) {
		return 0, fmt.Errorf("simulation input %.6f: %w", *in.Simulation, models.ErrInvalidProbability)
	}

	var num, den float64
	add := func(p *float64, w float64) {
		if p == nil || w <= 0 || !probability.IsValid(*p) {
			return
		}
		num += w * probability.Logit(*p)
		den += w
	}
	add(in.Simulation, b.weights.SimulationWeight)
	add(in.External, b.weights.ExternalWeight)
	add(in.Market, b.weights.MarketWeight)

	if den == 0 {
		return 0, ErrNoWeight
	}
	return probability.Clamp(probability.Sigmoid(num / den)), nil
}
