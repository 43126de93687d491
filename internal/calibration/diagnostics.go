package calibration

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/fairway-edge/internal/models"
	"github.com/yourusername/fairway-edge/internal/probability"
)

// Diagnostics summarizes how well probabilities match observed outcomes
type Diagnostics struct {
	Samples       int     `json:"samples"`
	BaseRate      float64 `json:"base_rate"`
	MeanPredicted float64 `json:"mean_predicted"`
	Brier         float64 `json:"brier"`
	LogLoss       float64 `json:"log_loss"`
}

// Evaluate scores a calibrator against historical pairs for one market
func Evaluate(c Calibrator, market models.Market, pairs []models.CalibrationPair) Diagnostics {
	if len(pairs) == 0 {
		return Diagnostics{}
	}

	predicted := make([]float64, len(pairs))
	outcomes := make([]float64, len(pairs))
	squared := make([]float64, len(pairs))
	logLoss := make([]float64, len(pairs))

	for i, pair := range pairs {
		p := probability.Clamp(pair.Predicted)
		if c != nil {
			p = c.Calibrate(market, p)
		}
		y := 0.0
		if pair.Outcome {
			y = 1
		}
		predicted[i] = p
		outcomes[i] = y
		squared[i] = (p - y) * (p - y)
		logLoss[i] = -(y*math.Log(p) + (1-y)*math.Log(1-p))
	}

	return Diagnostics{
		Samples:       len(pairs),
		BaseRate:      stat.Mean(outcomes, nil),
		MeanPredicted: stat.Mean(predicted, nil),
		Brier:         stat.Mean(squared, nil),
		LogLoss:       stat.Mean(logLoss, nil),
	}
}
