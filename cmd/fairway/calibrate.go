package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/fairway-edge/internal/calibration"
	applogger "github.com/yourusername/fairway-edge/internal/logger"
	"github.com/yourusername/fairway-edge/internal/models"
	"github.com/yourusername/fairway-edge/internal/repository"
)

var (
	calibrateMarket string
	calibrateInput  string
	calibrateDryRun bool
)

func init() {
	calibrateCmd.Flags().StringVar(&calibrateMarket, "market", "", "Market the history belongs to (e.g. win, top_10)")
	calibrateCmd.Flags().StringVar(&calibrateInput, "input", "", "CSV of historical predictions with predicted,outcome columns")
	calibrateCmd.Flags().BoolVar(&calibrateDryRun, "dry-run", false, "Train and report without saving the model")
	_ = calibrateCmd.MarkFlagRequired("market")
	_ = calibrateCmd.MarkFlagRequired("input")
}

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Train an isotonic calibration model from historical outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		market := models.Market(calibrateMarket)
		if !market.IsValid() || market.IsGrouped() {
			return fmt.Errorf("market %q cannot be calibrated", calibrateMarket)
		}

		f, err := os.Open(calibrateInput)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()

		pairs, err := readPairs(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", calibrateInput, err)
		}

		model, err := calibration.TrainIsotonic(market, pairs, cfg.Calibration.TargetBinSize)
		if err != nil {
			return err
		}

		fitted := calibration.NewIsotonic([]*models.CalibrationModel{model}, calibration.NewShiftShrink(cfg.Calibration.Markets))
		report := calibrationReport{
			Market:     market,
			Bins:       len(model.Bins),
			SampleSize: model.SampleSize,
			Raw:        calibration.Evaluate(nil, market, pairs),
			Calibrated: calibration.Evaluate(fitted, market, pairs),
			Saved:      !calibrateDryRun,
		}

		logger.WithFields(logrus.Fields{
			"market":    market,
			"samples":   report.SampleSize,
			"brier_raw": report.Raw.Brier,
			"brier_fit": report.Calibrated.Brier,
			"bins":      report.Bins,
		}).Info("Calibration model trained")

		if !calibrateDryRun {
			be, err := openBackend(ctx, false)
			if err != nil {
				return err
			}
			defer be.close()

			err = be.store.WithinTx(ctx, func(repos *repository.Repositories) error {
				return repos.Calibration.Save(ctx, model)
			})
			if err != nil {
				return fmt.Errorf("failed to save calibration model: %w", err)
			}
			applogger.NewAuditLogger(logger).LogCalibrationModelSaved(string(market), len(model.Bins), model.SampleSize)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

type calibrationReport struct {
	Market     models.Market           `json:"market"`
	Bins       int                     `json:"bins"`
	SampleSize int                     `json:"sample_size"`
	Raw        calibration.Diagnostics `json:"raw"`
	Calibrated calibration.Diagnostics `json:"calibrated"`
	Saved      bool                    `json:"saved"`
}

// readPairs parses predicted,outcome rows. A leading header row is skipped.
func readPairs(r io.Reader) ([]models.CalibrationPair, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	var pairs []models.CalibrationPair
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		predicted, perr := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		if perr != nil && line == 1 {
			continue
		}
		if perr != nil {
			return nil, fmt.Errorf("line %d: invalid prediction %q", line, record[0])
		}
		outcome, err := parseOutcome(record[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		pairs = append(pairs, models.CalibrationPair{Predicted: predicted, Outcome: outcome})
	}

	if len(pairs) == 0 {
		return nil, calibration.ErrNoTrainingData
	}
	return pairs, nil
}

func parseOutcome(s string) (bool, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "won", "yes", "y":
		return true, nil
	case "lost", "no", "n":
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid outcome %q", s)
	}
	return v, nil
}
