package models

import "fmt"

// Market identifies a betting market type
type Market string

// Supported markets
const (
	MarketWin       Market = "win"
	MarketTop5      Market = "top_5"
	MarketTop10     Market = "top_10"
	MarketTop20     Market = "top_20"
	MarketMakeCut   Market = "make_cut"
	MarketFRL       Market = "frl"
	MarketMatchup   Market = "tournament_matchups"
	MarketThreeBall Market = "3_balls"
)

// OutrightMarkets lists markets priced per player across the whole field
func OutrightMarkets() []Market {
	return []Market{MarketWin, MarketTop5, MarketTop10, MarketTop20, MarketMakeCut, MarketFRL}
}

// IsValid reports whether the market is supported
func (m Market) IsValid() bool {
	switch m {
	case MarketWin, MarketTop5, MarketTop10, MarketTop20, MarketMakeCut, MarketFRL, MarketMatchup, MarketThreeBall:
		return true
	}
	return false
}

// IsGrouped reports whether offers are grouped into small multi-way contests
func (m Market) IsGrouped() bool {
	return m == MarketMatchup || m == MarketThreeBall
}

// TopN returns the finishing-position threshold of a top-N market, or 0
func (m Market) TopN() int {
	switch m {
	case MarketTop5:
		return 5
	case MarketTop10:
		return 10
	case MarketTop20:
		return 20
	}
	return 0
}

// TargetSum returns the probability mass a market distributes across its selections.
// Grouped markets return 1 per group.
func (m Market) TargetSum(cutSize, fieldSize int) float64 {
	switch {
	case m.TopN() > 0:
		return float64(min(m.TopN(), fieldSize))
	case m == MarketMakeCut:
		if cutSize <= 0 {
			return float64(fieldSize)
		}
		return float64(min(cutSize, fieldSize))
	default:
		return 1
	}
}

// ParseMarkets converts configured market names into Markets
func ParseMarkets(names []string) ([]Market, error) {
	markets := make([]Market, 0, len(names))
	for _, name := range names {
		m := Market(name)
		if !m.IsValid() {
			return nil, fmt.Errorf("unsupported market %q", name)
		}
		markets = append(markets, m)
	}
	return markets, nil
}
