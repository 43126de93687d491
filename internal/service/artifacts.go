package service

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/fairway-edge/internal/models"
)

// Artifact kinds
const (
	ArtifactInputSummary = "input_summary"
	ArtifactField        = "field"
	ArtifactOdds         = "odds"
)

// NewArtifact captures a raw payload for audit. Payloads larger than threshold bytes are
// gzip-compressed; a threshold of zero or less stores everything uncompressed.
// The hash always covers the uncompressed bytes.
func NewArtifact(run *models.Run, kind string, payload []byte, threshold int, now time.Time) (*models.RunArtifact, error) {
	a := &models.RunArtifact{
		ID:          uuid.New(),
		RunID:       run.ID,
		RunKey:      run.RunKey,
		Kind:        kind,
		PayloadHash: HashPayload(payload),
		Payload:     payload,
		SizeBytes:   len(payload),
		CreatedAt:   now,
	}

	if threshold > 0 && len(payload) > threshold {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return nil, fmt.Errorf("failed to compress %s artifact: %w", kind, err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("failed to compress %s artifact: %w", kind, err)
		}
		a.Payload = buf.Bytes()
		a.Compressed = true
	}

	return a, nil
}

// ArtifactPayload returns the original bytes of an artifact
func ArtifactPayload(a *models.RunArtifact) ([]byte, error) {
	if !a.Compressed {
		return a.Payload, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(a.Payload))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s artifact: %w", a.Kind, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s artifact: %w", a.Kind, err)
	}
	return out, nil
}
