package simulation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fairway-edge/internal/config"
	"github.com/yourusername/fairway-edge/internal/logger"
	"github.com/yourusername/fairway-edge/internal/models"
	"github.com/yourusername/fairway-edge/internal/probability"
)

func seed(v int64) *int64 { return &v }

func newTestSimulator() *Simulator {
	return NewSimulator(config.Default().Simulation, logger.Discard())
}

func field(n int) []models.PlayerParameters {
	players := make([]models.PlayerParameters, n)
	for i := range players {
		players[i] = models.PlayerParameters{
			SelectionKey: fmt.Sprintf("player %02d", i),
			Mean:         -2.0 + 4.0*float64(i)/float64(n),
			Volatility:   2.75,
			Uncertainty:  0.5,
			TailFactor:   3,
		}
	}
	return players
}

func defaultOptions(trials int) Options {
	return Options{
		Rounds: 4,
		Trials: trials,
		Cut:    CutRule{AfterRound: 2, Size: 10},
		Seed:   seed(42),
	}
}

func TestRunDeterministicWithSeed(t *testing.T) {
	sim := newTestSimulator()
	players := field(30)

	first, err := sim.Run(context.Background(), players, defaultOptions(2000))
	require.NoError(t, err)
	second, err := sim.Run(context.Background(), players, defaultOptions(2000))
	require.NoError(t, err)

	assert.Equal(t, first.Probabilities, second.Probabilities)
	assert.Equal(t, int64(42), first.Seed)
	assert.Equal(t, 2000, first.SimCount)
}

func TestRunWinProbabilitiesSumToOne(t *testing.T) {
	sim := newTestSimulator()

	result, err := sim.Run(context.Background(), field(40), defaultOptions(3000))
	require.NoError(t, err)

	var win, top5, frl float64
	for _, p := range result.Probabilities {
		win += p.Win
		top5 += p.Top5
		frl += p.FirstRoundLeader
	}
	assert.GreaterOrEqual(t, win, 0.8)
	assert.LessOrEqual(t, win, 1.2)
	assert.InDelta(t, 1.0, frl, 0.2)
	assert.GreaterOrEqual(t, top5, 5.0-0.1, "top-N includes ties so mass is at least N")
}

func TestRunStrongerPlayersRankHigher(t *testing.T) {
	sim := newTestSimulator()

	result, err := sim.Run(context.Background(), field(30), defaultOptions(3000))
	require.NoError(t, err)

	best := result.Probabilities["player 00"]
	worst := result.Probabilities["player 29"]
	assert.Greater(t, best.Win, worst.Win)
	assert.Greater(t, best.Top10, worst.Top10)
	assert.Greater(t, best.MakeCut, worst.MakeCut)
	assert.GreaterOrEqual(t, best.Top20, best.Top10)
	assert.GreaterOrEqual(t, best.Top10, best.Top5)
	assert.GreaterOrEqual(t, best.Top5, best.Win)
}

func TestRunNoCutMeansEveryoneMakesCut(t *testing.T) {
	sim := newTestSimulator()
	opts := defaultOptions(500)
	opts.Cut = CutRule{NoCut: true}

	result, err := sim.Run(context.Background(), field(20), opts)
	require.NoError(t, err)

	for key, p := range result.Probabilities {
		assert.InDelta(t, 1.0, p.MakeCut, 1e-3, key)
	}
}

func TestRunCutSurvivorMass(t *testing.T) {
	sim := newTestSimulator()

	result, err := sim.Run(context.Background(), field(20), defaultOptions(2000))
	require.NoError(t, err)

	var made float64
	for _, p := range result.Probabilities {
		made += p.MakeCut
	}
	assert.GreaterOrEqual(t, made, 10.0-0.05, "cut keeps the top 10 plus ties")
	assert.Less(t, made, 20.0)
}

func TestRunProbabilitiesStayInsideOpenInterval(t *testing.T) {
	sim := newTestSimulator()
	players := field(3)
	players[0].Mean = -10

	result, err := sim.Run(context.Background(), players, defaultOptions(500))
	require.NoError(t, err)

	for _, p := range result.Probabilities {
		for _, v := range []float64{p.Win, p.Top5, p.Top10, p.Top20, p.MakeCut, p.FirstRoundLeader} {
			assert.True(t, probability.IsValid(v), "probability %v outside (0,1)", v)
		}
	}
}

func TestRunZeroPlayers(t *testing.T) {
	result, err := newTestSimulator().Run(context.Background(), nil, defaultOptions(100))
	require.NoError(t, err)
	assert.Empty(t, result.Probabilities)
	assert.Nil(t, result.Scores)
}

func TestRunRejectsNonPositiveTrials(t *testing.T) {
	_, err := newTestSimulator().Run(context.Background(), field(3), Options{Trials: 0})
	assert.ErrorIs(t, err, ErrInvalidTrials)
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestSimulator().Run(ctx, field(3), defaultOptions(100))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunExportScores(t *testing.T) {
	sim := newTestSimulator()
	opts := defaultOptions(250)
	opts.ExportScores = true

	result, err := sim.Run(context.Background(), field(5), opts)
	require.NoError(t, err)
	require.NotNil(t, result.Scores)
	assert.Len(t, result.Scores.Totals, 250)
	assert.Len(t, result.Scores.Totals[0], 5)
	assert.Equal(t, 2, result.Scores.Index("player 02"))

	opts.ExportScores = false
	result, err = sim.Run(context.Background(), field(5), opts)
	require.NoError(t, err)
	assert.Nil(t, result.Scores)
}

func TestRoundScoreTailCap(t *testing.T) {
	cfg := config.Default().Simulation
	cfg.RoundScores = false
	sim := NewSimulator(cfg, logger.Discard())

	p := models.PlayerParameters{Mean: -1, Volatility: 0.5, TailFactor: 3}

	// tail factor x volatility is 1.5, so the floor of 3 applies
	assert.Equal(t, 2.0, sim.roundScore(p, 0, 50, 0, 0))
	assert.Equal(t, -4.0, sim.roundScore(p, 0, -50, 0, 0))

	wide := models.PlayerParameters{Mean: 0, Volatility: 2, TailFactor: 3}
	assert.Equal(t, 6.0, sim.roundScore(wide, 100, 0, 0, 0))
}

func TestRoundScoreMomentum(t *testing.T) {
	cfg := config.Default().Simulation
	cfg.RoundScores = false
	cfg.Momentum = 0.5
	sim := NewSimulator(cfg, logger.Discard())

	p := models.PlayerParameters{Mean: 0, Volatility: 2, TailFactor: 3}
	assert.InDelta(t, 1.0, sim.roundScore(p, 0, 0, 2, 0), 1e-12)
}

func TestGroupProbabilities(t *testing.T) {
	scores := &models.TrialScores{
		Keys: []string{"a", "b", "c"},
		Totals: [][]float64{
			{-5, -3, 0},
			{-2, -2, 1},
			{1, -4, 2},
			{0, 3, -1},
		},
	}

	h2h, err := GroupProbabilities(scores, []string{"a", "b"})
	require.NoError(t, err)
	assert.InDelta(t, 0.625, h2h["a"], 1e-9)
	assert.InDelta(t, 0.375, h2h["b"], 1e-9)

	threeBall, err := GroupProbabilities(scores, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, threeBall["a"]+threeBall["b"]+threeBall["c"], 1e-9)

	_, err = GroupProbabilities(scores, []string{"a", "z"})
	assert.Error(t, err)

	_, err = GroupProbabilities(nil, []string{"a", "b"})
	assert.ErrorIs(t, err, ErrScoresNotExported)
}
