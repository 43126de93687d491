package models

// OutcomeProbabilities are the simulated finishing probabilities for one player
type OutcomeProbabilities struct {
	Win              float64 `json:"win"`
	Top5             float64 `json:"top_5"`
	Top10            float64 `json:"top_10"`
	Top20            float64 `json:"top_20"`
	MakeCut          float64 `json:"make_cut"`
	FirstRoundLeader float64 `json:"frl"`
}

// ForMarket returns the outright probability for a market
func (o OutcomeProbabilities) ForMarket(m Market) (float64, bool) {
	switch m {
	case MarketWin:
		return o.Win, true
	case MarketTop5:
		return o.Top5, true
	case MarketTop10:
		return o.Top10, true
	case MarketTop20:
		return o.Top20, true
	case MarketMakeCut:
		return o.MakeCut, true
	case MarketFRL:
		return o.FirstRoundLeader, true
	}
	return 0, false
}

// TrialScores holds every player's final total per trial, trial-major
type TrialScores struct {
	Keys   []string    `json:"keys"`
	Totals [][]float64 `json:"totals"`
}

// Index returns the column of a selection key, or -1
func (s *TrialScores) Index(key string) int {
	for i, k := range s.Keys {
		if k == key {
			return i
		}
	}
	return -1
}

// SimulationResult is the immutable output of one tournament simulation
type SimulationResult struct {
	Probabilities map[string]OutcomeProbabilities `json:"probabilities"`
	SimCount      int                             `json:"sim_count"`
	Seed          int64                           `json:"seed"`
	Scores        *TrialScores                    `json:"-"`
}

// Probability looks up a player's outright probability for a market
func (r *SimulationResult) Probability(key string, m Market) (float64, bool) {
	if r == nil {
		return 0, false
	}
	outcome, ok := r.Probabilities[key]
	if !ok {
		return 0, false
	}
	return outcome.ForMarket(m)
}
