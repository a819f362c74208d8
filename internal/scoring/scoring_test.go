package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinite(t *testing.T) {
	assert.Equal(t, 0.0, Finite(math.NaN()))
	assert.Equal(t, 0.0, Finite(math.Inf(1)))
	assert.Equal(t, 0.0, Finite(math.Inf(-1)))
	assert.Equal(t, 42.5, Finite(42.5))
}

func TestRatioAndPercent(t *testing.T) {
	assert.Equal(t, 0.0, Ratio(5, 0))
	assert.Equal(t, 0.25, Ratio(1, 4))
	assert.Equal(t, 0.0, Percent(3, 0))
	assert.Equal(t, 80.0, Percent(8000, 10000))
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-5, 0},
		{50, 50},
		{150, 100},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clamp100(tt.in))
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, 33.3, Round(33.333333, 1))
	assert.Equal(t, 66.67, Round(66.666666, 2))
	assert.Equal(t, 0.0, Round(math.NaN(), 2))
}
