package params

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fairway-edge/internal/config"
	"github.com/yourusername/fairway-edge/internal/logger"
	"github.com/yourusername/fairway-edge/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func newTestBuilder() *Builder {
	return NewBuilder(config.Default().Parameters, logger.Discard())
}

func TestBuildOrdersAndDeduplicates(t *testing.T) {
	b := newTestBuilder()

	out := b.Build([]Input{
		{SelectionKey: "viktor hovland", Name: "Viktor Hovland"},
		{SelectionKey: "collin morikawa", Name: "Collin Morikawa"},
		{SelectionKey: "viktor hovland", Name: "Viktor Hovland"},
		{SelectionKey: ""},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "collin morikawa", out[0].SelectionKey)
	assert.Equal(t, "viktor hovland", out[1].SelectionKey)
}

func TestBuildStrongerPlayerHasLowerMean(t *testing.T) {
	b := newTestBuilder()

	out := b.Build([]Input{
		{SelectionKey: "a", Skill: &models.SkillRating{Skill: 2.5, CourseFit: 0.3, RecentForm: 0.4, RoundsTracked: 80}},
		{SelectionKey: "b", Skill: &models.SkillRating{Skill: 0.2, RoundsTracked: 10}},
	})

	require.Len(t, out, 2)
	assert.InDelta(t, -(2.5 + 0.3 + 0.5*0.4), out[0].Mean, 1e-9)
	assert.Less(t, out[0].Mean, out[1].Mean)
	assert.Less(t, out[0].Uncertainty, out[1].Uncertainty, "more rounds tracked means less uncertainty")
	assert.Greater(t, out[0].MakeCutPrior, out[1].MakeCutPrior)
}

func TestBuildDefaultsWithoutSkill(t *testing.T) {
	cfg := config.Default().Parameters
	b := NewBuilder(cfg, logger.Discard())

	out := b.Build([]Input{{SelectionKey: "unknown"}})

	require.Len(t, out, 1)
	p := out[0]
	assert.Equal(t, 0.0, p.Mean)
	assert.Equal(t, cfg.BaselineVolatility, p.Volatility)
	assert.InDelta(t, cfg.UncertaintyBase+cfg.UncertaintyScale, p.Uncertainty, 1e-9)
	assert.Equal(t, cfg.TailFactor, p.TailFactor)
	assert.InDelta(t, 0.5, p.MakeCutPrior, 1e-9)
}

func TestBuildClampsVolatility(t *testing.T) {
	cfg := config.Default().Parameters
	b := NewBuilder(cfg, logger.Discard())

	out := b.Build([]Input{
		{SelectionKey: "steady", Skill: &models.SkillRating{ScoreStdDev: floatPtr(0.4)}},
		{SelectionKey: "wild", Skill: &models.SkillRating{ScoreStdDev: floatPtr(9)}},
	})

	assert.Equal(t, cfg.MinVolatility, out[0].Volatility)
	assert.Equal(t, cfg.MaxVolatility, out[1].Volatility)
}

func TestBuildPrefersExternalMakeCut(t *testing.T) {
	b := newTestBuilder()

	out := b.Build([]Input{
		{SelectionKey: "a", Prediction: &models.PlayerPrediction{MakeCut: floatPtr(0.81)}},
		{SelectionKey: "b", Prediction: &models.PlayerPrediction{MakeCut: floatPtr(math.NaN())}},
	})

	assert.Equal(t, 0.81, out[0].MakeCutPrior)
	assert.InDelta(t, 0.5, out[1].MakeCutPrior, 1e-9)
}
