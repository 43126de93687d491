package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	return logEntry
}

func TestNewLoggerLevels(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, NewLogger("debug").GetLevel())
	assert.Equal(t, logrus.InfoLevel, NewLogger("not-a-level").GetLevel())
}

func TestNewForEnvironmentFormatter(t *testing.T) {
	_, isJSON := NewForEnvironment("info", "production").Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)

	_, isText := NewForEnvironment("info", "development").Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
}

func TestAuditLoggerRunStarted(t *testing.T) {
	log, buf := setupTestLogger()
	audit := NewAuditLogger(log)

	start := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	audit.LogRunStarted("run-20261012-20261019", start, start.AddDate(0, 0, 7))

	entry := parseLogOutput(t, buf)
	assert.Equal(t, "audit", entry["component"])
	assert.Equal(t, "run-20261012-20261019", entry["run_key"])
	assert.Equal(t, "2026-10-12T00:00:00Z", entry["window_start"])
}

func TestAuditLoggerRunFailed(t *testing.T) {
	log, buf := setupTestLogger()
	audit := NewAuditLogger(log)

	audit.LogRunFailed("run-x", "odds", errors.New("no odds"))

	entry := parseLogOutput(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "odds", entry["step"])
	assert.Equal(t, "no odds", entry["error"])
}

func TestAuditLoggerGoldenRunPersisted(t *testing.T) {
	log, buf := setupTestLogger()
	audit := NewAuditLogger(log)

	audit.LogGoldenRunPersisted("run-x", "abc", 12, 5)

	entry := parseLogOutput(t, buf)
	assert.Equal(t, "abc", entry["input_hash"])
	assert.Equal(t, float64(12), entry["recommendations"])
}
