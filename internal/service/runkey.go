package service

import (
	"fmt"
	"strings"
	"time"
)

const runKeyDateLayout = "20060102"

// Window is the inclusive UTC date range a run covers
type Window struct {
	Start time.Time
	End   time.Time
}

// CurrentWeek returns the ISO week (Monday through Sunday, UTC) containing now
func CurrentWeek(now time.Time) Window {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return Window{Start: start, End: start.AddDate(0, 0, 6)}
}

// Contains reports whether t falls on a day inside the window
func (w Window) Contains(t time.Time) bool {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(w.Start) && !day.After(w.End)
}

// RunKey derives the idempotency key for a window
func RunKey(w Window) string {
	return fmt.Sprintf("run-%s-%s", w.Start.UTC().Format(runKeyDateLayout), w.End.UTC().Format(runKeyDateLayout))
}

// ParseRunKey recovers the window a run key was derived from
func ParseRunKey(key string) (Window, error) {
	parts := strings.Split(key, "-")
	if len(parts) != 3 || parts[0] != "run" {
		return Window{}, fmt.Errorf("malformed run key %q", key)
	}
	start, err := time.Parse(runKeyDateLayout, parts[1])
	if err != nil {
		return Window{}, fmt.Errorf("malformed run key %q: %w", key, err)
	}
	end, err := time.Parse(runKeyDateLayout, parts[2])
	if err != nil {
		return Window{}, fmt.Errorf("malformed run key %q: %w", key, err)
	}
	if end.Before(start) {
		return Window{}, fmt.Errorf("run key %q ends before it starts", key)
	}
	return Window{Start: start, End: end}, nil
}
