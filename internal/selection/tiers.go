package selection

import (
	"math"
	"sort"

	"github.com/yourusername/fairway-edge/internal/config"
)

// Band is an inclusive decimal-odds range that feeds one portfolio tier
type Band struct {
	Name     string
	MinOdds  float64
	MaxOdds  float64
	MinPicks int
	MaxPicks int
}

// Bands is the configured tier layout in portfolio order
type Bands []Band

// NewBands converts tier configuration into bands, keeping configured order
func NewBands(tiers []config.TierConfig) Bands {
	bands := make(Bands, len(tiers))
	for i, t := range tiers {
		bands[i] = Band{
			Name:     t.Name,
			MinOdds:  t.MinOdds,
			MaxOdds:  t.MaxOdds,
			MinPicks: t.MinPicks,
			MaxPicks: t.MaxPicks,
		}
	}
	return bands
}

// Names returns tier names in portfolio order
func (b Bands) Names() []string {
	names := make([]string, len(b))
	for i, band := range b {
		names[i] = band.Name
	}
	return names
}

// Classify returns the tier for the given odds. Odds between or outside bands go to the
// nearest band; an exact tie goes to the band with the lower odds.
func (b Bands) Classify(odds float64) string {
	if len(b) == 0 {
		return ""
	}

	ordered := append(Bands(nil), b...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].MinOdds < ordered[j].MinOdds })

	best := ordered[0].Name
	bestDist := math.Inf(1)
	for _, band := range ordered {
		d := band.distance(odds)
		if d == 0 {
			return band.Name
		}
		if d < bestDist {
			best, bestDist = band.Name, d
		}
	}
	return best
}

func (b Band) distance(odds float64) float64 {
	switch {
	case odds < b.MinOdds:
		return b.MinOdds - odds
	case odds > b.MaxOdds:
		return odds - b.MaxOdds
	default:
		return 0
	}
}
