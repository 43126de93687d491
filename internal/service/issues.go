package service

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/fairway-edge/internal/metrics"
)

// Severity orders issues for reporting
type Severity string

// Issue severities, most severe last
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	}
	return 0
}

// Category classifies what went wrong
type Category string

// Issue categories
const (
	CategorySoftFetchFailure     Category = "soft_fetch_failure"
	CategoryHardDependency       Category = "hard_dependency_missing"
	CategoryInvalidProbability   Category = "invalid_probability"
	CategoryInsufficientTier     Category = "insufficient_tier_candidates"
	CategoryGoldenRunInvariant   Category = "golden_run_invariant_violation"
	CategoryIdempotencyConflict  Category = "idempotency_conflict"
	CategoryDataQuality          Category = "data_quality"
	CategoryMissingSimulation    Category = "missing_simulation"
	CategoryCalibrationUntrained Category = "calibration_untrained"
)

// Issue is one problem observed during a run
type Issue struct {
	Severity Severity          `json:"severity"`
	Category Category          `json:"category"`
	Message  string            `json:"message"`
	Context  map[string]string `json:"context,omitempty"`
}

// IssueLog accumulates issues from concurrent stages
type IssueLog struct {
	mu     sync.Mutex
	issues []Issue
	logger *logrus.Entry
}

// NewIssueLog creates an empty issue log
func NewIssueLog(logger *logrus.Entry) *IssueLog {
	return &IssueLog{logger: logger}
}

// Add records an issue and logs it at a matching level
func (l *IssueLog) Add(severity Severity, category Category, message string, context map[string]string) {
	l.mu.Lock()
	l.issues = append(l.issues, Issue{Severity: severity, Category: category, Message: message, Context: context})
	l.mu.Unlock()

	metrics.RecordIssue(string(severity), string(category))

	if l.logger == nil {
		return
	}
	fields := logrus.Fields{"category": category}
	for k, v := range context {
		fields[k] = v
	}
	entry := l.logger.WithFields(fields)
	switch severity {
	case SeverityInfo:
		entry.Info(message)
	case SeverityWarning:
		entry.Warn(message)
	default:
		entry.Error(message)
	}
}

// All returns every issue in the order recorded
func (l *IssueLog) All() []Issue {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Issue(nil), l.issues...)
}

// Count returns how many issues of a category were recorded
func (l *IssueLog) Count(category Category) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, i := range l.issues {
		if i.Category == category {
			n++
		}
	}
	return n
}

// Top returns the n most severe issues; equal severities keep recording order
func (l *IssueLog) Top(n int) []Issue {
	all := l.All()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Severity.rank() > all[j].Severity.rank()
	})
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}
