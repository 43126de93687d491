package models

// Candidate is a priced selection evaluated for inclusion in a portfolio
type Candidate struct {
	EventID             string   `json:"event_id"`
	Market              Market   `json:"market"`
	GroupID             string   `json:"group_id,omitempty"`
	SelectionKey        string   `json:"selection_key"`
	PlayerName          string   `json:"player_name"`
	FairProbability     float64  `json:"fair_probability"`
	MarketProbability   float64  `json:"market_probability"`
	SimProbability      float64  `json:"sim_probability"`
	ExternalProbability *float64 `json:"external_probability,omitempty"`
	Edge                float64  `json:"edge"`
	ExpectedValue       float64  `json:"expected_value"`
	BestOdds            float64  `json:"best_odds"`
	BestBook            string   `json:"best_book"`
	Provenance          string   `json:"provenance"`
	BookCount           int      `json:"book_count"`
	Confidence          float64  `json:"confidence"`
	Tier                string   `json:"tier"`
	Fallback            bool     `json:"fallback"`
	FallbackReason      string   `json:"fallback_reason,omitempty"`
}

// Portfolio is the tiered selection for one event
type Portfolio struct {
	EventID   string                 `json:"event_id"`
	TierOrder []string               `json:"tier_order"`
	Tiers     map[string][]Candidate `json:"tiers"`
}

// NewPortfolio creates an empty portfolio with the given tier order
func NewPortfolio(eventID string, tierOrder []string) *Portfolio {
	tiers := make(map[string][]Candidate, len(tierOrder))
	for _, name := range tierOrder {
		tiers[name] = nil
	}
	return &Portfolio{EventID: eventID, TierOrder: tierOrder, Tiers: tiers}
}

// All returns every candidate in tier order
func (p *Portfolio) All() []Candidate {
	var out []Candidate
	for _, name := range p.TierOrder {
		out = append(out, p.Tiers[name]...)
	}
	return out
}

// Count returns the number of selected candidates
func (p *Portfolio) Count() int {
	n := 0
	for _, c := range p.Tiers {
		n += len(c)
	}
	return n
}
