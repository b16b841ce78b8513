package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func separable() ([][]float64, []int) {
	var samples [][]float64
	var labels []int
	for i := 0; i < 60; i++ {
		x := float64(i)
		samples = append(samples, []float64{x, 5})
		switch {
		case i < 20:
			labels = append(labels, 0)
		case i < 40:
			labels = append(labels, 1)
		default:
			labels = append(labels, 2)
		}
	}
	return samples, labels
}

func TestTreeLearnsThresholds(t *testing.T) {
	samples, labels := separable()
	tr := FitAll(samples, labels, 3, Options{MaxDepth: 4})

	assert.Equal(t, []float64{1, 0, 0}, tr.PredictProba([]float64{3, 5}))
	assert.Equal(t, []float64{0, 1, 0}, tr.PredictProba([]float64{25, 5}))
	assert.Equal(t, []float64{0, 0, 1}, tr.PredictProba([]float64{55, 5}))

	// The constant second feature never splits.
	assert.InDelta(t, 1.0, tr.Importances[0], 1e-9)
	assert.InDelta(t, 0.0, tr.Importances[1], 1e-9)
}

func TestTreeRespectsMinSamplesLeaf(t *testing.T) {
	samples, labels := separable()
	tr := FitAll(samples, labels, 3, Options{MinSamplesLeaf: 30})

	// Only one split can keep 30 rows on each side.
	leaves := 0
	for _, node := range tr.Nodes {
		if node.Left < 0 {
			leaves++
		}
	}
	assert.Equal(t, 2, leaves)
}

func TestTreeDepthZeroLimitIsUnbounded(t *testing.T) {
	samples, labels := separable()
	tr := FitAll(samples, labels, 3, Options{})
	for _, node := range tr.Nodes {
		if node.Left < 0 {
			var max float64
			for _, p := range node.Value {
				max = math.Max(max, p)
			}
			assert.Equal(t, 1.0, max, "leaves should be pure")
		}
	}
}

func TestTreeSingleClassStaysLeaf(t *testing.T) {
	samples := [][]float64{{1}, {2}, {3}}
	tr := FitAll(samples, []int{0, 0, 0}, 2, Options{})
	require.Len(t, tr.Nodes, 1)
	assert.Equal(t, []float64{1, 0}, tr.PredictProba([]float64{10}))
}

func TestForestIsDeterministicForSeed(t *testing.T) {
	samples, labels := separable()
	opts := ForestOptions{Trees: 15, Seed: 7, Tree: Options{MaxDepth: 5, MinSamplesLeaf: 2}}

	a := FitForest(samples, labels, 3, opts)
	b := FitForest(samples, labels, 3, opts)

	for _, x := range [][]float64{{1, 5}, {21, 5}, {38, 5}, {59, 5}} {
		assert.Equal(t, a.PredictProba(x), b.PredictProba(x))
	}
	assert.Equal(t, a.Importances(), b.Importances())
}

func TestForestProbabilitiesSumToOne(t *testing.T) {
	samples, labels := separable()
	f := FitForest(samples, labels, 3, ForestOptions{Trees: 20, Seed: 1})

	for _, x := range [][]float64{{0, 5}, {19.5, 5}, {30, 5}, {100, 5}} {
		probs := f.PredictProba(x)
		var sum float64
		for _, p := range probs {
			assert.GreaterOrEqual(t, p, 0.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
	assert.Greater(t, f.PredictProba([]float64{55, 5})[2], 0.8)
}
