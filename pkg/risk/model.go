package risk

import (
	"fmt"
	"math"

	"github.com/synaptica-ai/maternal-risk/pkg/ml/linear"
	"github.com/synaptica-ai/maternal-risk/pkg/ml/tree"
)

// Hyperparameters configures both the risk model and the per-condition models.
type Hyperparameters struct {
	Algorithm Algorithm      `json:"algorithm"`
	Trees     int            `json:"trees"`
	Seed      uint64         `json:"seed"`
	Risk      tree.Options   `json:"risk"`
	Condition tree.Options   `json:"condition"`
	Linear    linear.Options `json:"linear"`
}

// DefaultHyperparameters mirrors the reference models: a 100-tree forest
// (depth 10, split 10, leaf 5) for risk and shallower forests (depth 8,
// split 15, leaf 8) per condition; a single tree uses split 20, leaf 10.
func DefaultHyperparameters(algorithm Algorithm) Hyperparameters {
	hp := Hyperparameters{
		Algorithm: algorithm,
		Trees:     100,
		Seed:      DefaultSeed,
		Risk:      tree.Options{MaxDepth: 10, MinSamplesSplit: 10, MinSamplesLeaf: 5},
		Condition: tree.Options{MaxDepth: 8, MinSamplesSplit: 15, MinSamplesLeaf: 8},
		Linear:    linear.Options{Epochs: 400, LearningRate: 0.2, L2: 1e-4},
	}
	if algorithm == AlgorithmTree {
		hp.Risk = tree.Options{MaxDepth: 10, MinSamplesSplit: 20, MinSamplesLeaf: 10}
	}
	return hp
}

// Model is a serialisable probabilistic classifier. Exactly one of the learner
// fields is set, according to Algorithm.
type Model struct {
	Algorithm Algorithm       `json:"algorithm"`
	Classes   int             `json:"classes"`
	Features  int             `json:"features"`
	Forest    *tree.Forest    `json:"forest,omitempty"`
	Tree      *tree.Tree      `json:"tree,omitempty"`
	Softmax   *linear.Softmax `json:"softmax,omitempty"`
	Logistic  *linear.Weights `json:"logistic,omitempty"`
}

func fitModel(samples [][]float64, labels []int, classes int, opts tree.Options, hp Hyperparameters, stream uint64) (*Model, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("fit on empty training set: %w", ErrInvalidInput)
	}
	m := &Model{Algorithm: hp.Algorithm, Classes: classes, Features: len(samples[0])}
	switch hp.Algorithm {
	case AlgorithmForest:
		m.Forest = tree.FitForest(samples, labels, classes, tree.ForestOptions{
			Trees: hp.Trees,
			Tree:  opts,
			Seed:  hp.Seed + stream,
		})
	case AlgorithmTree:
		m.Tree = tree.FitAll(samples, labels, classes, opts)
	case AlgorithmLogistic:
		if classes == 2 {
			targets := make([]float64, len(labels))
			for i, l := range labels {
				targets[i] = float64(l)
			}
			w, _ := linear.TrainLogistic(samples, targets, hp.Linear)
			m.Logistic = &w
		} else {
			sm, _ := linear.TrainSoftmax(samples, labels, classes, hp.Linear)
			m.Softmax = &sm
		}
	default:
		return nil, fmt.Errorf("unsupported algorithm %q: %w", hp.Algorithm, ErrInvalidInput)
	}
	return m, nil
}

// PredictProba returns Classes non-negative probabilities that sum to 1.
func (m *Model) PredictProba(x []float64) []float64 {
	var probs []float64
	switch {
	case m.Forest != nil:
		probs = m.Forest.PredictProba(x)
	case m.Tree != nil:
		probs = m.Tree.PredictProba(x)
	case m.Softmax != nil:
		probs = m.Softmax.PredictProba(x)
	case m.Logistic != nil:
		p := linear.Predict(*m.Logistic, x)
		probs = []float64{1 - p, p}
	default:
		probs = make([]float64, m.Classes)
	}
	return normalizeProbabilities(probs, m.Classes)
}

// Importances returns per-feature weights normalised to sum 1.
func (m *Model) Importances() []float64 {
	switch {
	case m.Forest != nil:
		return m.Forest.Importances()
	case m.Tree != nil:
		return append([]float64(nil), m.Tree.Importances...)
	case m.Softmax != nil:
		return m.Softmax.Importance()
	case m.Logistic != nil:
		out := make([]float64, len(m.Logistic.Coefficients))
		for i, c := range m.Logistic.Coefficients {
			out[i] = math.Abs(c)
		}
		return linear.Normalize(out)
	}
	return make([]float64, m.Features)
}

func (m *Model) valid() bool {
	set := 0
	for _, present := range []bool{m.Forest != nil, m.Tree != nil, m.Softmax != nil, m.Logistic != nil} {
		if present {
			set++
		}
	}
	return set == 1 && m.Classes > 0
}

func normalizeProbabilities(probs []float64, classes int) []float64 {
	out := make([]float64, classes)
	var sum float64
	for k := 0; k < classes && k < len(probs); k++ {
		if probs[k] > 0 && !math.IsNaN(probs[k]) {
			out[k] = probs[k]
			sum += probs[k]
		}
	}
	if sum == 0 {
		for k := range out {
			out[k] = 1 / float64(classes)
		}
		return out
	}
	for k := range out {
		out[k] /= sum
	}
	return out
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
