// Package simulation runs seeded Monte Carlo simulations of multi-round stroke-play tournaments.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/fairway-edge/internal/config"
	"github.com/yourusername/fairway-edge/internal/models"
	"github.com/yourusername/fairway-edge/internal/probability"
)

// minRoundVolatility floors per-round volatility after weather deltas are applied
const minRoundVolatility = 0.5

// ctxCheckInterval is how many trials run between cancellation checks
const ctxCheckInterval = 256

// ErrInvalidTrials is returned when a simulation is requested with no trials
var ErrInvalidTrials = errors.New("simulation trials must be positive")

// CutRule describes the halfway cut of an event
type CutRule struct {
	AfterRound int
	Size       int
	NoCut      bool
}

// Options are the per-event simulation settings
type Options struct {
	Rounds               int
	Trials               int
	Cut                  CutRule
	Seed                 *int64
	RoundVolatilityDelta []float64
	ExportScores         bool
}

// Simulator draws tournament outcomes from player parameters
type Simulator struct {
	cfg    config.SimulationConfig
	logger *logrus.Entry
}

// NewSimulator creates a simulator with the given tunables
func NewSimulator(cfg config.SimulationConfig, logger *logrus.Logger) *Simulator {
	return &Simulator{
		cfg:    cfg,
		logger: logger.WithField("component", "simulator"),
	}
}

// Run simulates the event. Identical parameters, options and seed give identical results.
// The trial loop is sequential against a single RNG; callers parallelize across events.
func (s *Simulator) Run(ctx context.Context, players []models.PlayerParameters, opts Options) (*models.SimulationResult, error) {
	if opts.Trials <= 0 {
		return nil, ErrInvalidTrials
	}
	if opts.Rounds <= 0 {
		opts.Rounds = s.cfg.Rounds
	}

	seed := time.Now().UnixNano()
	if opts.Seed != nil {
		seed = *opts.Seed
	}

	result := &models.SimulationResult{
		Probabilities: make(map[string]models.OutcomeProbabilities, len(players)),
		SimCount:      opts.Trials,
		Seed:          seed,
	}
	if len(players) == 0 {
		return result, nil
	}

	started := time.Now()
	t := newTrialState(players, opts)
	rng := rand.New(rand.NewSource(seed))

	var scores *models.TrialScores
	if opts.ExportScores {
		scores = &models.TrialScores{
			Keys:   make([]string, len(players)),
			Totals: make([][]float64, 0, opts.Trials),
		}
		for i, p := range players {
			scores.Keys[i] = p.SelectionKey
		}
	}

	for trial := 0; trial < opts.Trials; trial++ {
		if trial%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("simulation cancelled after %d trials: %w", trial, err)
			}
		}

		s.playTrial(rng, players, opts, t)
		t.tally()

		if scores != nil {
			scores.Totals = append(scores.Totals, append([]float64(nil), t.cum...))
		}
	}

	n := float64(opts.Trials)
	for i, p := range players {
		result.Probabilities[p.SelectionKey] = models.OutcomeProbabilities{
			Win:              probability.Clamp(t.win[i] / n),
			Top5:             probability.Clamp(t.top5[i] / n),
			Top10:            probability.Clamp(t.top10[i] / n),
			Top20:            probability.Clamp(t.top20[i] / n),
			MakeCut:          probability.Clamp(t.madeCut[i] / n),
			FirstRoundLeader: probability.Clamp(t.frl[i] / n),
		}
	}
	result.Scores = scores

	s.logger.WithFields(logrus.Fields{
		"players":     len(players),
		"trials":      opts.Trials,
		"seed":        seed,
		"cut_applied": t.cutEnabled,
		"duration_ms": time.Since(started).Milliseconds(),
	}).Debug("Simulation complete")

	return result, nil
}

func (s *Simulator) playTrial(rng *rand.Rand, players []models.PlayerParameters, opts Options, t *trialState) {
	t.reset()

	for i, p := range players {
		t.shock[i] = rng.NormFloat64() * p.Uncertainty
	}

	for round := 0; round < opts.Rounds; round++ {
		shared := rng.NormFloat64() * s.cfg.RoundShockSD
		delta := 0.0
		if round < len(opts.RoundVolatilityDelta) {
			delta = opts.RoundVolatilityDelta[round]
		}

		for i, p := range players {
			score := s.roundScore(p, t.shock[i]+shared, rng.NormFloat64(), t.prevDev[i], delta)
			t.prevDev[i] = score - p.Mean
			t.cum[i] += score
			if round == 0 {
				t.firstRound[i] = score
			}
		}

		if t.cutEnabled && round+1 == opts.Cut.AfterRound {
			t.applyCut(s.cfg.CutPenalty)
		}
	}
}

// roundScore draws one round relative to the field. noise is a standard normal draw.
// The tail cap bounds the raw score before optional rounding to whole strokes.
func (s *Simulator) roundScore(p models.PlayerParameters, shocks, noise, prevDev, volDelta float64) float64 {
	vol := math.Max(minRoundVolatility, p.Volatility+volDelta)
	raw := p.Mean + shocks + noise*vol + s.cfg.Momentum*prevDev

	tailCap := math.Max(s.cfg.TailCapFloor, p.TailFactor*p.Volatility)
	score := math.Max(p.Mean-tailCap, math.Min(p.Mean+tailCap, raw))

	if s.cfg.RoundScores {
		score = math.Round(score)
	}
	return score
}

// trialState holds per-trial scratch buffers and cumulative tallies
type trialState struct {
	n          int
	cutEnabled bool
	cutSize    int

	shock      []float64
	cum        []float64
	prevDev    []float64
	firstRound []float64
	survived   []bool
	sorted     []float64

	win     []float64
	top5    []float64
	top10   []float64
	top20   []float64
	madeCut []float64
	frl     []float64
}

func newTrialState(players []models.PlayerParameters, opts Options) *trialState {
	n := len(players)
	c := opts.Cut
	return &trialState{
		n:          n,
		cutEnabled: !c.NoCut && c.AfterRound > 0 && c.AfterRound < opts.Rounds && c.Size > 0 && c.Size < n,
		cutSize:    c.Size,
		shock:      make([]float64, n),
		cum:        make([]float64, n),
		prevDev:    make([]float64, n),
		firstRound: make([]float64, n),
		survived:   make([]bool, n),
		sorted:     make([]float64, n),
		win:        make([]float64, n),
		top5:       make([]float64, n),
		top10:      make([]float64, n),
		top20:      make([]float64, n),
		madeCut:    make([]float64, n),
		frl:        make([]float64, n),
	}
}

func (t *trialState) reset() {
	for i := 0; i < t.n; i++ {
		t.cum[i] = 0
		t.prevDev[i] = 0
		t.survived[i] = true
	}
}

// applyCut keeps the top cutSize plus ties; everyone else takes the penalty and plays on
func (t *trialState) applyCut(penalty float64) {
	line := t.threshold(t.cum, t.cutSize)
	for i := 0; i < t.n; i++ {
		if t.cum[i] > line {
			t.survived[i] = false
			t.cum[i] += penalty
		}
	}
}

// threshold returns the k-th lowest value of scores
func (t *trialState) threshold(scores []float64, k int) float64 {
	copy(t.sorted, scores)
	sort.Float64s(t.sorted)
	if k > t.n {
		k = t.n
	}
	return t.sorted[k-1]
}

func (t *trialState) tally() {
	t.splitCredit(t.cum, t.win)
	t.splitCredit(t.firstRound, t.frl)

	// threshold leaves t.sorted holding the sorted totals
	top20 := t.threshold(t.cum, 20)
	top5 := t.sorted[min(5, t.n)-1]
	top10 := t.sorted[min(10, t.n)-1]

	for i := 0; i < t.n; i++ {
		score := t.cum[i]
		if score <= top5 {
			t.top5[i]++
		}
		if score <= top10 {
			t.top10[i]++
		}
		if score <= top20 {
			t.top20[i]++
		}
		if t.survived[i] {
			t.madeCut[i]++
		}
	}
}

// splitCredit gives one unit of credit shared equally among the lowest scores
func (t *trialState) splitCredit(scores []float64, credit []float64) {
	best := math.Inf(1)
	tied := 0
	for _, s := range scores {
		switch {
		case s < best:
			best, tied = s, 1
		case s == best:
			tied++
		}
	}
	share := 1 / float64(tied)
	for i, s := range scores {
		if s == best {
			credit[i] += share
		}
	}
}
