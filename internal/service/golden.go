package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/yourusername/fairway-edge/internal/models"
)

// EventDescriptor identifies an event a run priced
type EventDescriptor struct {
	EventID   string `json:"event_id"`
	Tour      string `json:"tour"`
	Name      string `json:"name"`
	StartDate string `json:"start_date,omitempty"`
	FieldSize int    `json:"field_size"`
}

// OddsDescriptor identifies one captured odds board
type OddsDescriptor struct {
	Tour        string        `json:"tour"`
	EventID     string        `json:"event_id"`
	Market      models.Market `json:"market"`
	Offers      int           `json:"offers"`
	Books       []string      `json:"books"`
	PayloadHash string        `json:"payload_hash"`
}

// InputSummary is the audited description of everything a run consumed
type InputSummary struct {
	Events       []EventDescriptor `json:"events"`
	OddsSnapshot []OddsDescriptor  `json:"odds_snapshot"`
}

// Canonical returns the summary with every list in a fixed order
func (s InputSummary) Canonical() InputSummary {
	out := InputSummary{
		Events:       append([]EventDescriptor(nil), s.Events...),
		OddsSnapshot: make([]OddsDescriptor, len(s.OddsSnapshot)),
	}
	sort.Slice(out.Events, func(i, j int) bool {
		if out.Events[i].EventID != out.Events[j].EventID {
			return out.Events[i].EventID < out.Events[j].EventID
		}
		return out.Events[i].Tour < out.Events[j].Tour
	})
	for i, d := range s.OddsSnapshot {
		d.Books = append([]string(nil), d.Books...)
		sort.Strings(d.Books)
		out.OddsSnapshot[i] = d
	}
	sort.Slice(out.OddsSnapshot, func(i, j int) bool {
		a, b := out.OddsSnapshot[i], out.OddsSnapshot[j]
		if a.Tour != b.Tour {
			return a.Tour < b.Tour
		}
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		return a.Market < b.Market
	})
	return out
}

// OfferCount sums the offers across the snapshot
func (s InputSummary) OfferCount() int {
	n := 0
	for _, d := range s.OddsSnapshot {
		n += d.Offers
	}
	return n
}

// HashSummary returns the canonical encoding of the summary and its SHA-256.
// Reordering events, boards or books does not change the hash.
func HashSummary(s InputSummary) (string, []byte, error) {
	encoded, err := json.Marshal(s.Canonical())
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode input summary: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), encoded, nil
}

// HashPayload fingerprints a raw upstream payload
func HashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// CheckGoldenRun refuses runs that could not be audited or reproduced later
func CheckGoldenRun(runKey string, summary InputSummary, encoded []byte, hash string) error {
	switch {
	case runKey == "":
		return fmt.Errorf("missing run key: %w", models.ErrGoldenRunInvariant)
	case len(summary.Events) == 0 || len(encoded) == 0:
		return fmt.Errorf("empty input summary: %w", models.ErrGoldenRunInvariant)
	case hash == "":
		return fmt.Errorf("missing input hash: %w", models.ErrGoldenRunInvariant)
	case len(summary.OddsSnapshot) == 0 || summary.OfferCount() == 0:
		return fmt.Errorf("empty odds snapshot: %w", models.ErrGoldenRunInvariant)
	}
	return nil
}
