// Package selection turns priced selections into a tiered recommendation portfolio.
package selection

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/fairway-edge/internal/config"
	"github.com/yourusername/fairway-edge/internal/models"
	"github.com/yourusername/fairway-edge/internal/probability"
)

// Pricing is one selection with its calibrated probability and market consensus
type Pricing struct {
	Market              models.Market
	PlayerName          string
	FairProbability     float64
	SimProbability      float64
	ExternalProbability *float64
	Consensus           models.ConsensusEntry
}

// Shortfall records a tier that could not reach its minimum pick count
type Shortfall struct {
	Tier   string `json:"tier"`
	Wanted int    `json:"wanted"`
	Got    int    `json:"got"`
}

// Diagnostics counts what happened to each priced selection
type Diagnostics struct {
	Priced     int         `json:"priced"`
	Invalid    int         `json:"invalid"`
	Positive   int         `json:"positive"`
	CapSkips   int         `json:"cap_skips"`
	Selected   int         `json:"selected"`
	Fallbacks  int         `json:"fallbacks"`
	Shortfalls []Shortfall `json:"shortfalls,omitempty"`
}

// Selector builds portfolios under the configured tiers and exposure caps
type Selector struct {
	cfg    config.SelectionConfig
	bands  Bands
	logger *logrus.Entry
}

// NewSelector creates a candidate selector
func NewSelector(cfg config.SelectionConfig, logger *logrus.Logger) *Selector {
	return &Selector{
		cfg:    cfg,
		bands:  NewBands(cfg.Tiers),
		logger: logger.WithField("component", "selector"),
	}
}

// Bands returns the tier layout the selector classifies into
func (s *Selector) Bands() Bands {
	return s.bands
}

// exposure tracks picks per player and per market across all tiers of a portfolio
type exposure struct {
	maxPerPlayer int
	maxPerMarket int
	players      map[string]int
	markets      map[models.Market]int
	taken        map[string]bool
}

func newExposure(cfg config.SelectionConfig) *exposure {
	return &exposure{
		maxPerPlayer: cfg.MaxPerPlayer,
		maxPerMarket: cfg.MaxPerMarket,
		players:      make(map[string]int),
		markets:      make(map[models.Market]int),
		taken:        make(map[string]bool),
	}
}

func (e *exposure) allows(c models.Candidate) bool {
	if e.maxPerPlayer > 0 && e.players[c.SelectionKey] >= e.maxPerPlayer {
		return false
	}
	if e.maxPerMarket > 0 && e.markets[c.Market] >= e.maxPerMarket {
		return false
	}
	return true
}

func (e *exposure) add(c models.Candidate) {
	e.players[c.SelectionKey]++
	e.markets[c.Market]++
	e.taken[candidateID(c)] = true
}

func candidateID(c models.Candidate) string {
	return string(c.Market) + "|" + models.OfferKey(c.GroupID, c.SelectionKey)
}

// Select prices, tiers and picks candidates for one event. Value picks are made across all
// tiers before any fallback filler so filler never consumes exposure a value pick could use.
func (s *Selector) Select(eventID string, pricings []Pricing) (*models.Portfolio, Diagnostics) {
	diag := Diagnostics{Priced: len(pricings)}
	portfolio := models.NewPortfolio(eventID, s.bands.Names())

	byTier := make(map[string][]models.Candidate, len(s.bands))
	for _, p := range pricings {
		c, ok := s.candidate(eventID, p)
		if !ok {
			diag.Invalid++
			continue
		}
		byTier[c.Tier] = append(byTier[c.Tier], c)
	}
	for tier := range byTier {
		rank(byTier[tier])
	}

	exp := newExposure(s.cfg)

	for _, band := range s.bands {
		for _, c := range byTier[band.Name] {
			if !s.isValue(c) {
				continue
			}
			diag.Positive++
			if len(portfolio.Tiers[band.Name]) >= band.MaxPicks {
				continue
			}
			if !exp.allows(c) {
				diag.CapSkips++
				continue
			}
			exp.add(c)
			portfolio.Tiers[band.Name] = append(portfolio.Tiers[band.Name], c)
		}
	}

	for _, band := range s.bands {
		if s.cfg.FallbackEnabled {
			for _, c := range byTier[band.Name] {
				if len(portfolio.Tiers[band.Name]) >= band.MinPicks {
					break
				}
				if exp.taken[candidateID(c)] || !exp.allows(c) {
					continue
				}
				c.Fallback = true
				c.FallbackReason = fallbackReason(band, len(portfolio.Tiers[band.Name]), c)
				exp.add(c)
				portfolio.Tiers[band.Name] = append(portfolio.Tiers[band.Name], c)
				diag.Fallbacks++
			}
		}

		if got := len(portfolio.Tiers[band.Name]); got < band.MinPicks {
			diag.Shortfalls = append(diag.Shortfalls, Shortfall{Tier: band.Name, Wanted: band.MinPicks, Got: got})
		}
	}
	diag.Selected = portfolio.Count()

	s.logger.WithFields(logrus.Fields{
		"event_id":   eventID,
		"priced":     diag.Priced,
		"invalid":    diag.Invalid,
		"positive":   diag.Positive,
		"selected":   diag.Selected,
		"fallbacks":  diag.Fallbacks,
		"shortfalls": len(diag.Shortfalls),
	}).Debug("Portfolio selected")

	return portfolio, diag
}

func (s *Selector) candidate(eventID string, p Pricing) (models.Candidate, bool) {
	fair := p.FairProbability
	market := p.Consensus.FairProbability
	odds := p.Consensus.BestOdds
	if !probability.IsValid(fair) || !probability.IsValid(market) || probability.ValidateOdds(odds) != nil {
		return models.Candidate{}, false
	}

	c := models.Candidate{
		EventID:             eventID,
		Market:              p.Market,
		GroupID:             p.Consensus.GroupID,
		SelectionKey:        p.Consensus.SelectionKey,
		PlayerName:          p.PlayerName,
		FairProbability:     fair,
		MarketProbability:   market,
		SimProbability:      p.SimProbability,
		ExternalProbability: p.ExternalProbability,
		Edge:                fair - market,
		ExpectedValue:       probability.ExpectedValue(fair, odds),
		BestOdds:            odds,
		BestBook:            p.Consensus.BestBook,
		Provenance:          p.Consensus.Provenance,
		BookCount:           p.Consensus.BookCount,
		Tier:                s.bands.Classify(odds),
	}
	c.Confidence = Confidence(c)
	return c, true
}

func (s *Selector) isValue(c models.Candidate) bool {
	return c.Edge > 0 && c.ExpectedValue > 0 && c.Edge >= s.cfg.MinEdge && c.ExpectedValue >= s.cfg.MinEV
}

// rank orders candidates by EV, then edge, then longer odds; identity breaks remaining ties
func rank(cs []models.Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.ExpectedValue != b.ExpectedValue {
			return a.ExpectedValue > b.ExpectedValue
		}
		if a.Edge != b.Edge {
			return a.Edge > b.Edge
		}
		if a.BestOdds != b.BestOdds {
			return a.BestOdds > b.BestOdds
		}
		return candidateID(a) < candidateID(b)
	})
}

func fallbackReason(band Band, have int, c models.Candidate) string {
	return fmt.Sprintf("tier %s had %d of %d minimum value picks; best remaining candidate (ev %+.1f%%, edge %+.1f%%)",
		band.Name, have, band.MinPicks, c.ExpectedValue*100, c.Edge*100)
}

// Confidence scores how much the inputs behind a candidate agree, in [0, 1].
// Book depth, consensus provenance and simulation/external agreement each contribute.
func Confidence(c models.Candidate) float64 {
	depth := math.Min(1, float64(c.BookCount)/5)

	provenance := 0.3
	if c.Provenance == models.ProvenanceConsensus {
		provenance = 1
	}

	agreement := 0.5
	if c.ExternalProbability != nil && probability.IsValid(*c.ExternalProbability) && probability.IsValid(c.SimProbability) {
		gap := math.Abs(probability.Logit(c.SimProbability) - probability.Logit(*c.ExternalProbability))
		agreement = 1 - math.Min(1, gap/2)
	}

	score := 0.4*depth + 0.3*provenance + 0.3*agreement
	return math.Round(score*1000) / 1000
}

// Rationale is the human-readable justification stored with a recommendation
func Rationale(c models.Candidate) string {
	text := fmt.Sprintf("%s %s at %.2f (%s): fair %.1f%% vs market %.1f%%, edge %+.1f%%, ev %+.1f%%, %d books, confidence %.2f",
		c.PlayerName, c.Market, c.BestOdds, c.BestBook,
		c.FairProbability*100, c.MarketProbability*100, c.Edge*100, c.ExpectedValue*100, c.BookCount, c.Confidence)
	if c.Provenance == models.ProvenanceNormalizedImplied {
		text += "; market from normalized best odds"
	}
	if c.Fallback {
		text += "; fallback: " + c.FallbackReason
	}
	return text
}
