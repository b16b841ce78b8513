package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalerStandardises(t *testing.T) {
	samples := [][]float64{{1, 10}, {2, 20}, {3, 30}, {4, 40}}
	s, err := FitScaler(samples)
	require.NoError(t, err)

	assert.Equal(t, []float64{2.5, 25}, s.Mean)
	assert.InDelta(t, math.Sqrt(1.25), s.Std[0], 1e-12)

	scaled, err := s.TransformAll(samples)
	require.NoError(t, err)
	for j := 0; j < 2; j++ {
		var sum, sq float64
		for _, row := range scaled {
			sum += row[j]
			sq += row[j] * row[j]
		}
		assert.InDelta(t, 0, sum/4, 1e-12)
		assert.InDelta(t, 1, sq/4, 1e-12)
	}
}

func TestScalerZeroVariance(t *testing.T) {
	s, err := FitScaler([][]float64{{5, 1}, {5, 2}, {5, 3}})
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.Std[0])

	x, err := s.Transform([]float64{7, 2})
	require.NoError(t, err)
	assert.Equal(t, 2.0, x[0])
	assert.False(t, math.IsNaN(x[1]))
}

func TestScalerDimensionMismatch(t *testing.T) {
	s, err := FitScaler([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)

	_, err = s.Transform([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = FitScaler(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = FitScaler([][]float64{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
