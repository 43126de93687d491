package simulation

import (
	"errors"
	"fmt"

	"github.com/yourusername/fairway-edge/internal/models"
	"github.com/yourusername/fairway-edge/internal/probability"
)

// ErrScoresNotExported is returned when group pricing is requested without per-trial totals
var ErrScoresNotExported = errors.New("per-trial scores were not exported")

// GroupProbabilities prices a head-to-head or three-ball group from per-trial totals.
// The lowest total in the group takes the trial; tied players dead-heat the credit.
func GroupProbabilities(scores *models.TrialScores, keys []string) (map[string]float64, error) {
	if scores == nil {
		return nil, ErrScoresNotExported
	}
	if len(keys) < 2 {
		return nil, fmt.Errorf("group needs at least two selections, got %d", len(keys))
	}

	cols := make([]int, len(keys))
	for i, key := range keys {
		cols[i] = scores.Index(key)
		if cols[i] < 0 {
			return nil, fmt.Errorf("selection %q was not simulated", key)
		}
	}

	credit := make([]float64, len(keys))
	for _, totals := range scores.Totals {
		best := totals[cols[0]]
		tied := 0
		for _, c := range cols {
			switch v := totals[c]; {
			case v < best:
				best, tied = v, 1
			case v == best:
				tied++
			}
		}
		share := 1 / float64(tied)
		for i, c := range cols {
			if totals[c] == best {
				credit[i] += share
			}
		}
	}

	trials := float64(len(scores.Totals))
	out := make(map[string]float64, len(keys))
	for i, key := range keys {
		if trials == 0 {
			out[key] = probability.Clamp(1 / float64(len(keys)))
			continue
		}
		out[key] = probability.Clamp(credit[i] / trials)
	}
	return out, nil
}
