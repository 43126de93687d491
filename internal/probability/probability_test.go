package probability

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/fairway-edge/internal/models"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, Floor, Clamp(0))
	assert.Equal(t, Floor, Clamp(-3))
	assert.Equal(t, Floor, Clamp(math.NaN()))
	assert.Equal(t, Ceiling, Clamp(1))
	assert.Equal(t, 0.3, Clamp(0.3))
}

func TestLogitSigmoidRoundTrip(t *testing.T) {
	for _, p := range []float64{0.01, 0.2, 0.5, 0.77, 0.99} {
		assert.InDelta(t, p, Sigmoid(Logit(p)), 1e-12)
	}
	assert.InDelta(t, 0, Logit(0.5), 1e-12)
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(0.4))
	assert.False(t, IsValid(0))
	assert.False(t, IsValid(1))
	assert.False(t, IsValid(math.NaN()))
	assert.False(t, IsValid(math.Inf(1)))
}

func TestValidateOdds(t *testing.T) {
	assert.NoError(t, ValidateOdds(1.01))
	assert.ErrorIs(t, ValidateOdds(1.0), models.ErrInvalidOdds)
	assert.ErrorIs(t, ValidateOdds(math.NaN()), models.ErrInvalidOdds)
}

func TestExpectedValue(t *testing.T) {
	assert.InDelta(t, 0.1, ExpectedValue(0.55, 2.0), 1e-12)
	assert.InDelta(t, 0.25, Implied(4.0), 1e-12)
	assert.Equal(t, 0.0, Implied(0.9))
}
