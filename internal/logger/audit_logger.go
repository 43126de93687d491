package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides a dedicated audit trail for run lifecycle events.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogRunStarted logs the start of a recommendation run.
func (al *AuditLogger) LogRunStarted(runKey string, windowStart, windowEnd time.Time) {
	al.WithFields(logrus.Fields{
		"run_key":      runKey,
		"window_start": windowStart.Format(time.RFC3339),
		"window_end":   windowEnd.Format(time.RFC3339),
	}).Info("Run started")
}

// LogIdempotentReset logs removal of a prior run generated under the same key.
func (al *AuditLogger) LogIdempotentReset(runKey string, previousStatus string) {
	al.WithFields(logrus.Fields{
		"run_key":         runKey,
		"previous_status": previousStatus,
	}).Info("Prior run for key deleted before regeneration")
}

// LogGoldenRunPersisted logs a completed run whose inputs satisfied the golden-run checks.
func (al *AuditLogger) LogGoldenRunPersisted(runKey, inputHash string, recommendations, artifacts int) {
	al.WithFields(logrus.Fields{
		"run_key":         runKey,
		"input_hash":      inputHash,
		"recommendations": recommendations,
		"artifacts":       artifacts,
	}).Info("Golden run persisted")
}

// LogRunFailed logs a failed run together with the step that failed.
func (al *AuditLogger) LogRunFailed(runKey, step string, err error) {
	al.WithFields(logrus.Fields{
		"run_key": runKey,
		"step":    step,
		"error":   err.Error(),
	}).Error("Run failed")
}

// LogCalibrationModelSaved logs a newly trained calibration model.
func (al *AuditLogger) LogCalibrationModelSaved(market string, bins, sampleSize int) {
	al.WithFields(logrus.Fields{
		"market":      market,
		"bins":        bins,
		"sample_size": sampleSize,
	}).Info("Calibration model saved")
}
