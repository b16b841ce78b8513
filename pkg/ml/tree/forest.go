package tree

import (
	"math"
	"math/rand/v2"
	"runtime"
	"sync"
)

type ForestOptions struct {
	Trees int     `json:"trees"`
	Tree  Options `json:"tree"`
	Seed  uint64  `json:"seed"`
}

// Forest is a bagged ensemble of CART trees with per-split feature sampling.
type Forest struct {
	Classes  int     `json:"classes"`
	Features int     `json:"features"`
	Trees    []*Tree `json:"trees"`
}

// FitForest trains opts.Trees trees concurrently. Every tree draws from its own
// PCG stream derived from the seed, so the result does not depend on
// scheduling.
func FitForest(samples [][]float64, labels []int, classes int, opts ForestOptions) *Forest {
	if opts.Trees <= 0 {
		opts.Trees = 100
	}
	features := 0
	if len(samples) > 0 {
		features = len(samples[0])
	}
	if opts.Tree.MaxFeatures <= 0 {
		opts.Tree.MaxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(features)))))
	}

	forest := &Forest{Classes: classes, Features: features, Trees: make([]*Tree, opts.Trees)}
	n := len(samples)

	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup
	for t := 0; t < opts.Trees; t++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(t int) {
			defer wg.Done()
			defer func() { <-sem }()

			rng := rand.New(rand.NewPCG(opts.Seed, uint64(t)+1))
			idx := make([]int, n)
			for i := range idx {
				idx[i] = rng.IntN(n)
			}
			forest.Trees[t] = Fit(samples, labels, idx, classes, opts.Tree, rng)
		}(t)
	}
	wg.Wait()
	return forest
}

// PredictProba averages the leaf distributions of every tree.
func (f *Forest) PredictProba(x []float64) []float64 {
	out := make([]float64, f.Classes)
	if len(f.Trees) == 0 {
		return uniform(f.Classes)
	}
	for _, t := range f.Trees {
		for k, p := range t.PredictProba(x) {
			out[k] += p
		}
	}
	for k := range out {
		out[k] /= float64(len(f.Trees))
	}
	return out
}

// Importances is the mean Gini importance across trees, normalised to sum 1.
func (f *Forest) Importances() []float64 {
	out := make([]float64, f.Features)
	for _, t := range f.Trees {
		for j, v := range t.Importances {
			out[j] += v
		}
	}
	normalize(out)
	return out
}
