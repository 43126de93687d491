package models

import (
	"sort"
	"time"
)

// Consensus provenance tags
const (
	ProvenanceConsensus         = "consensus"
	ProvenanceNormalizedImplied = "normalized_implied"
)

// RawOffer is a single bookmaker price before player resolution
type RawOffer struct {
	PlayerName  string  `json:"player_name"`
	ExternalID  string  `json:"external_id,omitempty"`
	Bookmaker   string  `json:"bookmaker"`
	DecimalOdds float64 `json:"decimal_odds"`
	GroupID     string  `json:"group_id,omitempty"`
}

// OddsBoard is every offer captured for one tour and market
type OddsBoard struct {
	Tour       string     `json:"tour"`
	EventName  string     `json:"event_name"`
	Market     Market     `json:"market"`
	Offers     []RawOffer `json:"offers"`
	CapturedAt time.Time  `json:"captured_at"`
	Payload    []byte     `json:"-"`
}

// Books returns the distinct bookmakers on the board
func (b *OddsBoard) Books() []string {
	seen := make(map[string]bool)
	var books []string
	for _, o := range b.Offers {
		if !seen[o.Bookmaker] {
			seen[o.Bookmaker] = true
			books = append(books, o.Bookmaker)
		}
	}
	return books
}

// OddsOffer is a bookmaker price resolved to a canonical selection
type OddsOffer struct {
	Market       Market    `json:"market"`
	GroupID      string    `json:"group_id,omitempty"`
	SelectionKey string    `json:"selection_key"`
	Bookmaker    string    `json:"bookmaker"`
	DecimalOdds  float64   `json:"decimal_odds"`
	CapturedAt   time.Time `json:"captured_at"`
}

// ImpliedProbability returns 1/odds, or 0 for invalid odds
func (o OddsOffer) ImpliedProbability() float64 {
	if o.DecimalOdds <= 1 {
		return 0
	}
	return 1.0 / o.DecimalOdds
}

// OfferKey identifies a selection within a market; grouped markets prefix the group
func OfferKey(groupID, selectionKey string) string {
	if groupID == "" {
		return selectionKey
	}
	return groupID + "|" + selectionKey
}

// ConsensusEntry is the de-vigged fair probability for one selection
type ConsensusEntry struct {
	SelectionKey    string  `json:"selection_key"`
	GroupID         string  `json:"group_id,omitempty"`
	FairProbability float64 `json:"fair_probability"`
	Provenance      string  `json:"provenance"`
	BookCount       int     `json:"book_count"`
	BestOdds        float64 `json:"best_odds"`
	BestBook        string  `json:"best_book"`
}

// MarketConsensus maps offer keys to consensus entries for one market
type MarketConsensus struct {
	Market  Market                    `json:"market"`
	Entries map[string]ConsensusEntry `json:"entries"`
}

// Groups returns the sorted members of each group in a grouped market, keyed by group id
func (c *MarketConsensus) Groups() map[string][]string {
	groups := make(map[string][]string)
	for _, e := range c.Entries {
		if e.GroupID != "" {
			groups[e.GroupID] = append(groups[e.GroupID], e.SelectionKey)
		}
	}
	for _, members := range groups {
		sort.Strings(members)
	}
	return groups
}
