package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/fairway-edge/internal/calibration"
)

func TestReadPairs(t *testing.T) {
	input := "predicted,outcome\n0.12,1\n0.40, false\n0.05,won\n"

	pairs, err := readPairs(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, pairs, 3)

	assert.Equal(t, 0.12, pairs[0].Predicted)
	assert.True(t, pairs[0].Outcome)
	assert.False(t, pairs[1].Outcome)
	assert.True(t, pairs[2].Outcome)
}

func TestReadPairsWithoutHeader(t *testing.T) {
	pairs, err := readPairs(strings.NewReader("0.3,0\n0.7,1\n"))
	require.NoError(t, err)
	assert.Len(t, pairs, 2)
}

func TestReadPairsErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad prediction after header", "predicted,outcome\nabc,1\n"},
		{"bad outcome", "0.2,maybe\n"},
		{"wrong column count", "0.2,1,extra\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readPairs(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}

	_, err := readPairs(strings.NewReader("predicted,outcome\n"))
	assert.ErrorIs(t, err, calibration.ErrNoTrainingData)
}
