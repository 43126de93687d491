package calibration

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/fairway-edge/internal/models"
	"github.com/yourusername/fairway-edge/internal/probability"
)

// ErrNoTrainingData is returned when isotonic training gets no usable pairs
var ErrNoTrainingData = errors.New("no valid calibration pairs")

// Isotonic calibrates with trained per-market monotone step curves
type Isotonic struct {
	models   map[models.Market]*models.CalibrationModel
	fallback Calibrator
}

// NewIsotonic creates an isotonic calibrator. The latest model per market wins.
func NewIsotonic(trained []*models.CalibrationModel, fallback Calibrator) *Isotonic {
	byMarket := make(map[models.Market]*models.CalibrationModel, len(trained))
	for _, m := range trained {
		if m == nil || len(m.Bins) == 0 {
			continue
		}
		if cur, ok := byMarket[m.Market]; !ok || m.TrainedAt.After(cur.TrainedAt) {
			byMarket[m.Market] = m
		}
	}
	return &Isotonic{models: byMarket, fallback: fallback}
}

// Calibrate implements Calibrator
func (c *Isotonic) Calibrate(market models.Market, p float64) float64 {
	if model, ok := c.models[market]; ok {
		return Apply(model, p)
	}
	if c.fallback != nil {
		return c.fallback.Calibrate(market, p)
	}
	return probability.Clamp(p)
}

// HasModel reports whether a trained curve exists for the market
func (c *Isotonic) HasModel(market models.Market) bool {
	_, ok := c.models[market]
	return ok
}

// Apply evaluates a trained curve: linear interpolation between bin midpoints,
// flat at the first and last bin frequency outside the trained range.
func Apply(model *models.CalibrationModel, p float64) float64 {
	bins := model.Bins
	if len(bins) == 0 {
		return probability.Clamp(p)
	}

	first, last := bins[0], bins[len(bins)-1]
	switch {
	case p <= first.Midpoint:
		return probability.Clamp(first.Frequency)
	case p >= last.Midpoint:
		return probability.Clamp(last.Frequency)
	}

	// first bin whose midpoint is beyond p; guaranteed 1 <= i < len(bins)
	i := sort.Search(len(bins), func(i int) bool { return bins[i].Midpoint > p })
	lo, hi := bins[i-1], bins[i]
	span := hi.Midpoint - lo.Midpoint
	if span <= 0 {
		return probability.Clamp(hi.Frequency)
	}
	t := (p - lo.Midpoint) / span
	return probability.Clamp(lo.Frequency + t*(hi.Frequency-lo.Frequency))
}

type block struct {
	lower, upper float64
	sumPred      float64
	sumOutcome   float64
	count        int
}

func (b block) frequency() float64 { return b.sumOutcome / float64(b.count) }

func (b block) merge(o block) block {
	return block{
		lower:      math.Min(b.lower, o.lower),
		upper:      math.Max(b.upper, o.upper),
		sumPred:    b.sumPred + o.sumPred,
		sumOutcome: b.sumOutcome + o.sumOutcome,
		count:      b.count + o.count,
	}
}

// TrainIsotonic fits a monotone calibration curve. Pairs are sorted by prediction, cut into
// bins of roughly targetBinSize, and adjacent bins are pooled until frequencies never decrease.
func TrainIsotonic(market models.Market, pairs []models.CalibrationPair, targetBinSize int) (*models.CalibrationModel, error) {
	if targetBinSize <= 0 {
		return nil, fmt.Errorf("target bin size must be positive, got %d", targetBinSize)
	}

	valid := make([]models.CalibrationPair, 0, len(pairs))
	for _, pair := range pairs {
		if !math.IsNaN(pair.Predicted) && pair.Predicted >= 0 && pair.Predicted <= 1 {
			valid = append(valid, pair)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoTrainingData
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Predicted < valid[j].Predicted })

	n := len(valid)
	nBins := int(math.Max(1, math.Round(float64(n)/float64(targetBinSize))))

	stack := make([]block, 0, nBins)
	for b := 0; b < nBins; b++ {
		start, end := b*n/nBins, (b+1)*n/nBins
		if start == end {
			continue
		}
		blk := block{lower: valid[start].Predicted, upper: valid[end-1].Predicted}
		for _, pair := range valid[start:end] {
			blk.sumPred += pair.Predicted
			if pair.Outcome {
				blk.sumOutcome++
			}
			blk.count++
		}

		stack = append(stack, blk)
		for len(stack) > 1 && stack[len(stack)-2].frequency() > stack[len(stack)-1].frequency() {
			merged := stack[len(stack)-2].merge(stack[len(stack)-1])
			stack = append(stack[:len(stack)-2], merged)
		}
	}

	bins := make([]models.CalibrationBin, len(stack))
	for i, blk := range stack {
		bins[i] = models.CalibrationBin{
			Lower:     blk.lower,
			Upper:     blk.upper,
			Midpoint:  blk.sumPred / float64(blk.count),
			Frequency: blk.frequency(),
			Count:     blk.count,
		}
	}

	return &models.CalibrationModel{
		ID:         uuid.New(),
		Market:     market,
		Bins:       bins,
		SampleSize: n,
		Active:     true,
		TrainedAt:  time.Now().UTC(),
	}, nil
}
