package odds

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fairway-edge/internal/config"
	"github.com/yourusername/fairway-edge/internal/logger"
	"github.com/yourusername/fairway-edge/internal/models"
)

var captured = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func offer(market models.Market, group, key, book string, odds float64) models.OddsOffer {
	return models.OddsOffer{
		Market:       market,
		GroupID:      group,
		SelectionKey: key,
		Bookmaker:    book,
		DecimalOdds:  odds,
		CapturedAt:   captured,
	}
}

func newTestEngine(weights map[string]float64) *Engine {
	cfg := config.Default().Odds
	cfg.BookWeights = weights
	cfg.Methods = map[string]string{"win": "normalize"}
	return NewEngine(cfg, logger.Discard())
}

func TestRemoveVigNormalizeEvenMoney(t *testing.T) {
	fair := RemoveVig([]float64{0.5, 0.5}, VigNormalize, 0, 1)
	assert.InDelta(t, 0.5, fair[0], 1e-12)
	assert.InDelta(t, 0.5, fair[1], 1e-12)
}

func TestRemoveVigPower(t *testing.T) {
	implied := []float64{0.6, 0.5}

	power := RemoveVig(implied, VigPower, 1.25, 1)
	assert.InDelta(t, 1.0, power[0]+power[1], 1e-9)

	normalized := RemoveVig(implied, VigNormalize, 0, 1)
	assert.Greater(t, power[0], normalized[0], "power method shifts mass toward the favourite")
}

func TestRemoveVigTargetMass(t *testing.T) {
	fair := RemoveVig([]float64{0.9, 0.8, 0.7, 0.6, 0.5, 0.4}, VigNormalize, 0, 5)

	var sum float64
	for _, p := range fair {
		assert.Less(t, p, 1.0)
		sum += p
	}
	assert.LessOrEqual(t, sum, 5.0)
	assert.Empty(t, RemoveVig(nil, VigPower, 1.25, 1))
}

func TestMethodDefaults(t *testing.T) {
	e := NewEngine(config.Default().Odds, logger.Discard())

	assert.Equal(t, VigPower, e.Method(models.MarketWin))
	assert.Equal(t, VigNormalize, e.Method(models.MarketMatchup))
	assert.Equal(t, VigNormalize, e.Method(models.MarketThreeBall))
}

func TestConsensusWeightedMedian(t *testing.T) {
	offers := []models.OddsOffer{
		offer(models.MarketWin, "", "x", "a", 1.8),
		offer(models.MarketWin, "", "y", "a", 2.2),
		offer(models.MarketWin, "", "x", "b", 2.0),
		offer(models.MarketWin, "", "y", "b", 2.0),
		offer(models.MarketWin, "", "x", "c", 1.5),
		offer(models.MarketWin, "", "y", "c", 3.0),
	}
	field := map[string]bool{"x": true, "y": true}

	result, stats := newTestEngine(nil).Consensus(models.MarketWin, offers, field, 1)

	require.Len(t, result.Entries, 2)
	x := result.Entries["x"]
	assert.InDelta(t, 0.55, x.FairProbability, 1e-9)
	assert.Equal(t, models.ProvenanceConsensus, x.Provenance)
	assert.Equal(t, 3, x.BookCount)
	assert.Equal(t, 2.0, x.BestOdds)
	assert.Equal(t, "b", x.BestBook)

	y := result.Entries["y"]
	assert.InDelta(t, 0.45, y.FairProbability, 1e-9)
	assert.Equal(t, 3.0, y.BestOdds)
	assert.Equal(t, "c", y.BestBook)

	assert.Equal(t, 3, stats.Books)
	assert.Zero(t, stats.Fallbacks)

	weighted, _ := newTestEngine(map[string]float64{"c": 3}).Consensus(models.MarketWin, offers, field, 1)
	assert.InDelta(t, 2.0/3.0, weighted.Entries["x"].FairProbability, 1e-9)
}

func TestConsensusFallbackToNormalizedImplied(t *testing.T) {
	offers := []models.OddsOffer{
		offer(models.MarketWin, "", "x", "a", 1.8),
		offer(models.MarketWin, "", "z", "a", 5.0),
		offer(models.MarketWin, "", "x", "b", 2.0),
	}

	e := newTestEngine(nil)
	e.cfg.MinBookCoverage = 0.5
	result, stats := e.Consensus(models.MarketWin, offers, nil, 1)

	z := result.Entries["z"]
	assert.Equal(t, models.ProvenanceNormalizedImplied, z.Provenance)
	assert.Equal(t, 1, z.BookCount)
	assert.InDelta(t, 0.2/0.7, z.FairProbability, 1e-9)

	x := result.Entries["x"]
	assert.Equal(t, models.ProvenanceConsensus, x.Provenance)
	assert.Equal(t, 1, stats.Fallbacks)
}

func TestConsensusExcludesUnknownPlayersFromOutrights(t *testing.T) {
	offers := []models.OddsOffer{
		offer(models.MarketWin, "", "x", "a", 2.0),
		offer(models.MarketWin, "", "ghost", "a", 2.0),
		offer(models.MarketWin, "", "x", "b", 0.5),
	}

	result, stats := newTestEngine(nil).Consensus(models.MarketWin, offers, map[string]bool{"x": true}, 1)

	assert.Len(t, result.Entries, 1)
	assert.Contains(t, result.Entries, "x")
	assert.Equal(t, 2, stats.Excluded)
}

func TestConsensusGroupedMarketsKeepAllOffers(t *testing.T) {
	offers := []models.OddsOffer{
		offer(models.MarketMatchup, "g1", "x", "a", 1.9),
		offer(models.MarketMatchup, "g1", "y", "a", 1.9),
		offer(models.MarketMatchup, "g1", "x", "b", 1.8),
		offer(models.MarketMatchup, "g1", "y", "b", 2.0),
		offer(models.MarketMatchup, "g2", "x", "a", 1.5),
		offer(models.MarketMatchup, "g2", "w", "a", 2.5),
	}

	e := NewEngine(config.Default().Odds, logger.Discard())
	result, _ := e.Consensus(models.MarketMatchup, offers, map[string]bool{"x": true}, 1)

	require.Len(t, result.Entries, 4)
	g1x := result.Entries["g1|x"]
	g1y := result.Entries["g1|y"]
	assert.Equal(t, "g1", g1x.GroupID)
	assert.InDelta(t, 1.0, g1x.FairProbability+g1y.FairProbability, 0.05)
	assert.Equal(t, 2, g1x.BookCount)

	g2w := result.Entries["g2|w"]
	assert.Equal(t, models.ProvenanceNormalizedImplied, g2w.Provenance, "single-book group falls back")
	assert.InDelta(t, 0.375, g2w.FairProbability, 1e-9)

	groups := result.Groups()
	assert.Equal(t, []string{"x", "y"}, groups["g1"])
}

func wideField(n int) map[string]bool {
	field := make(map[string]bool, n)
	field["fav"] = true
	for i := 1; i < n; i++ {
		field[fmt.Sprintf("p%02d", i)] = true
	}
	return field
}

func fullBook(book string, field map[string]bool, skip string) []models.OddsOffer {
	var offers []models.OddsOffer
	for key := range field {
		if key == skip {
			continue
		}
		price := 15.0
		if key == "fav" {
			price = 3.0
		}
		offers = append(offers, offer(models.MarketWin, "", key, book, price))
	}
	return offers
}

func TestConsensusIgnoresPartialOutrightBooks(t *testing.T) {
	field := wideField(10)
	offers := append(fullBook("a", field, ""), offer(models.MarketWin, "", "fav", "b", 3.0))

	result, stats := newTestEngine(nil).Consensus(models.MarketWin, offers, field, 1)

	// book a alone: 1/3 of a 0.9333 overround
	want := (1.0 / 3.0) / (1.0/3.0 + 9.0/15.0)
	fav := result.Entries["fav"]
	assert.InDelta(t, want, fav.FairProbability, 1e-9)
	assert.Equal(t, models.ProvenanceNormalizedImplied, fav.Provenance)
	assert.Equal(t, 3.0, fav.BestOdds)
	assert.Equal(t, 1, stats.PartialBooks)
}

func TestConsensusKeepsNearlyCompleteBooks(t *testing.T) {
	field := wideField(10)
	offers := append(fullBook("a", field, ""), fullBook("b", field, "p09")...)

	result, stats := newTestEngine(nil).Consensus(models.MarketWin, offers, field, 1)

	fav := result.Entries["fav"]
	assert.Equal(t, models.ProvenanceConsensus, fav.Provenance)
	assert.Equal(t, 2, fav.BookCount)
	assert.InDelta(t, (1.0/3.0)/(1.0/3.0+9.0/15.0), fav.FairProbability, 1e-9)
	assert.Zero(t, stats.PartialBooks)
}
