package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketTargetSum(t *testing.T) {
	tests := []struct {
		market    Market
		cutSize   int
		fieldSize int
		want      float64
	}{
		{MarketWin, 65, 150, 1},
		{MarketFRL, 65, 150, 1},
		{MarketTop5, 65, 150, 5},
		{MarketTop20, 65, 12, 12},
		{MarketMakeCut, 65, 150, 65},
		{MarketMakeCut, 0, 48, 48},
		{MarketMatchup, 65, 150, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.market), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.market.TargetSum(tt.cutSize, tt.fieldSize))
		})
	}
}

func TestParseMarkets(t *testing.T) {
	markets, err := ParseMarkets([]string{"win", "3_balls"})
	require.NoError(t, err)
	assert.Equal(t, []Market{MarketWin, MarketThreeBall}, markets)
	assert.True(t, markets[1].IsGrouped())

	_, err = ParseMarkets([]string{"each_way"})
	assert.Error(t, err)
}

func TestPlayerIdentityAddAlias(t *testing.T) {
	p := &PlayerIdentity{CanonicalName: "ludvig aberg"}

	assert.True(t, p.AddAlias("Ludvig Åberg"))
	assert.True(t, p.AddAlias("ludvig aberg"))
	assert.False(t, p.AddAlias("ludvig aberg"))
	assert.False(t, p.AddAlias(""))

	assert.Equal(t, []string{"Ludvig Åberg", "ludvig aberg"}, p.Aliases)

	clone := p.Clone()
	clone.AddAlias("aberg, ludvig")
	assert.Len(t, p.Aliases, 2, "clone must not share alias storage")
}

func TestPortfolioAllFollowsTierOrder(t *testing.T) {
	p := NewPortfolio("evt", []string{"core", "value"})
	p.Tiers["value"] = []Candidate{{SelectionKey: "b"}}
	p.Tiers["core"] = []Candidate{{SelectionKey: "a"}}

	all := p.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].SelectionKey)
	assert.Equal(t, 2, p.Count())
}
