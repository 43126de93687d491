// Package params turns player skill signals into per-event simulation parameters.
package params

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/fairway-edge/internal/config"
	"github.com/yourusername/fairway-edge/internal/models"
	"github.com/yourusername/fairway-edge/internal/probability"
)

// Input is one resolved field entrant with whatever signals the upstream supplied
type Input struct {
	SelectionKey string
	Name         string
	Skill        *models.SkillRating
	Prediction   *models.PlayerPrediction
}

// Builder derives PlayerParameters from skill, course fit and recent form
type Builder struct {
	cfg    config.ParametersConfig
	logger *logrus.Entry
}

// NewBuilder creates a parameter builder
func NewBuilder(cfg config.ParametersConfig, logger *logrus.Logger) *Builder {
	return &Builder{
		cfg:    cfg,
		logger: logger.WithField("component", "parameter_builder"),
	}
}

// Build returns parameters for every entrant ordered by selection key.
// Entrants without skill signals are treated as field-average with maximal uncertainty.
func (b *Builder) Build(inputs []Input) []models.PlayerParameters {
	seen := make(map[string]bool, len(inputs))
	out := make([]models.PlayerParameters, 0, len(inputs))
	missing := 0

	for _, in := range inputs {
		if in.SelectionKey == "" || seen[in.SelectionKey] {
			continue
		}
		seen[in.SelectionKey] = true
		if in.Skill == nil {
			missing++
		}
		out = append(out, b.build(in))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SelectionKey < out[j].SelectionKey })

	if missing > 0 {
		b.logger.WithFields(logrus.Fields{
			"players":        len(out),
			"without_skills": missing,
		}).Debug("Built parameters with default skill for some players")
	}

	return out
}

func (b *Builder) build(in Input) models.PlayerParameters {
	var skill, fit, form float64
	rounds := 0
	volatility := b.cfg.BaselineVolatility

	if s := in.Skill; s != nil {
		skill, fit, form = s.Skill, s.CourseFit, s.RecentForm
		rounds = s.RoundsTracked
		if s.ScoreStdDev != nil && *s.ScoreStdDev > 0 {
			volatility = *s.ScoreStdDev
		}
	}

	strength := skill + b.cfg.CourseFitWeight*fit + b.cfg.FormWeight*form

	return models.PlayerParameters{
		SelectionKey: in.SelectionKey,
		Name:         in.Name,
		Mean:         -strength,
		Volatility:   math.Max(b.cfg.MinVolatility, math.Min(b.cfg.MaxVolatility, volatility)),
		Uncertainty:  b.cfg.UncertaintyBase + b.cfg.UncertaintyScale/math.Sqrt(1+float64(rounds)),
		TailFactor:   b.cfg.TailFactor,
		MakeCutPrior: b.makeCutPrior(in, skill+fit),
	}
}

func (b *Builder) makeCutPrior(in Input, strength float64) float64 {
	if p := in.Prediction.ForMarket(models.MarketMakeCut); p != nil && probability.IsValid(*p) {
		return *p
	}
	return probability.Clamp(probability.Sigmoid(b.cfg.CutPriorSlope * strength))
}
