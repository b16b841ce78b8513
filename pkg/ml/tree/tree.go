package tree

import (
	"math/rand/v2"
	"sort"
)

// Options bounds tree growth. Zero values mean "no limit" except
// MinSamplesSplit (2) and MinSamplesLeaf (1).
type Options struct {
	MaxDepth        int `json:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split"`
	MinSamplesLeaf  int `json:"min_samples_leaf"`
	// MaxFeatures is the number of candidate features drawn per split; 0 uses all.
	MaxFeatures int `json:"max_features"`
}

func (o Options) withDefaults(features int) Options {
	if o.MinSamplesSplit < 2 {
		o.MinSamplesSplit = 2
	}
	if o.MinSamplesLeaf < 1 {
		o.MinSamplesLeaf = 1
	}
	if o.MaxFeatures <= 0 || o.MaxFeatures > features {
		o.MaxFeatures = features
	}
	return o
}

// Node is a flattened tree node. Leaves have Left == -1 and carry the class
// distribution in Value.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      int       `json:"l"`
	Right     int       `json:"r"`
	Value     []float64 `json:"v,omitempty"`
}

// Tree is a CART classifier using Gini impurity.
type Tree struct {
	Classes     int       `json:"classes"`
	Features    int       `json:"features"`
	Nodes       []Node    `json:"nodes"`
	Importances []float64 `json:"importances"`
}

type builder struct {
	samples [][]float64
	labels  []int
	classes int
	opts    Options
	rng     *rand.Rand
	tree    *Tree
	total   float64
}

// Fit grows a tree over the rows referenced by idx (duplicates allowed, which
// is how bootstrap samples are expressed). rng may be nil when every feature is
// considered at each split.
func Fit(samples [][]float64, labels []int, idx []int, classes int, opts Options, rng *rand.Rand) *Tree {
	features := 0
	if len(samples) > 0 {
		features = len(samples[0])
	}
	t := &Tree{Classes: classes, Features: features, Importances: make([]float64, features)}
	if len(idx) == 0 {
		t.Nodes = []Node{{Feature: -1, Left: -1, Right: -1, Value: uniform(classes)}}
		return t
	}
	b := &builder{
		samples: samples,
		labels:  labels,
		classes: classes,
		opts:    opts.withDefaults(features),
		rng:     rng,
		tree:    t,
		total:   float64(len(idx)),
	}
	work := append([]int(nil), idx...)
	b.grow(work, 0)
	normalize(t.Importances)
	return t
}

// FitAll grows a tree on every row.
func FitAll(samples [][]float64, labels []int, classes int, opts Options) *Tree {
	idx := make([]int, len(samples))
	for i := range idx {
		idx[i] = i
	}
	return Fit(samples, labels, idx, classes, opts, nil)
}

// PredictProba returns the class distribution of the leaf reached by x.
func (t *Tree) PredictProba(x []float64) []float64 {
	if len(t.Nodes) == 0 {
		return uniform(t.Classes)
	}
	node := t.Nodes[0]
	for node.Left >= 0 {
		if x[node.Feature] <= node.Threshold {
			node = t.Nodes[node.Left]
		} else {
			node = t.Nodes[node.Right]
		}
	}
	out := make([]float64, len(node.Value))
	copy(out, node.Value)
	return out
}

func (b *builder) grow(idx []int, depth int) int {
	counts := b.counts(idx)
	n := len(idx)
	impurity := gini(counts, n)

	id := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{Feature: -1, Left: -1, Right: -1})

	if impurity <= 1e-12 || n < b.opts.MinSamplesSplit || n < 2*b.opts.MinSamplesLeaf ||
		(b.opts.MaxDepth > 0 && depth >= b.opts.MaxDepth) {
		b.tree.Nodes[id].Value = distribution(counts, n)
		return id
	}

	split, ok := b.bestSplit(idx, impurity)
	if !ok {
		b.tree.Nodes[id].Value = distribution(counts, n)
		return id
	}

	b.tree.Importances[split.feature] += (float64(n)*impurity - split.weighted) / b.total

	left := b.grow(split.sorted[:split.leftCount], depth+1)
	right := b.grow(split.sorted[split.leftCount:], depth+1)
	b.tree.Nodes[id] = Node{Feature: split.feature, Threshold: split.threshold, Left: left, Right: right}
	return id
}

type candidate struct {
	feature   int
	threshold float64
	leftCount int
	// weighted is n_left*gini_left + n_right*gini_right.
	weighted float64
	sorted   []int
}

func (b *builder) bestSplit(idx []int, impurity float64) (candidate, bool) {
	n := len(idx)
	best := candidate{weighted: float64(n) * impurity}
	found := false

	left := make([]int, b.classes)
	right := make([]int, b.classes)
	for _, f := range b.candidateFeatures() {
		sorted := append([]int(nil), idx...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.samples[sorted[i]][f] < b.samples[sorted[j]][f]
		})

		for k := range left {
			left[k] = 0
			right[k] = 0
		}
		for _, row := range sorted {
			right[b.labels[row]]++
		}

		for i := 0; i < n-1; i++ {
			label := b.labels[sorted[i]]
			left[label]++
			right[label]--

			current := b.samples[sorted[i]][f]
			next := b.samples[sorted[i+1]][f]
			if current == next {
				continue
			}
			nl, nr := i+1, n-i-1
			if nl < b.opts.MinSamplesLeaf || nr < b.opts.MinSamplesLeaf {
				continue
			}
			weighted := float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)
			if weighted < best.weighted-1e-12 {
				best = candidate{
					feature:   f,
					threshold: (current + next) / 2,
					leftCount: nl,
					weighted:  weighted,
					sorted:    sorted,
				}
				found = true
			}
		}
	}
	return best, found
}

func (b *builder) candidateFeatures() []int {
	features := b.tree.Features
	if b.opts.MaxFeatures >= features || b.rng == nil {
		all := make([]int, features)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return b.rng.Perm(features)[:b.opts.MaxFeatures]
}

func (b *builder) counts(idx []int) []int {
	counts := make([]int, b.classes)
	for _, row := range idx {
		counts[b.labels[row]]++
	}
	return counts
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		sum += p * p
	}
	return 1 - sum
}

func distribution(counts []int, n int) []float64 {
	out := make([]float64, len(counts))
	for i, c := range counts {
		out[i] = float64(c) / float64(n)
	}
	return out
}

func uniform(classes int) []float64 {
	out := make([]float64, classes)
	for i := range out {
		out[i] = 1 / float64(classes)
	}
	return out
}

func normalize(values []float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	if sum == 0 {
		return
	}
	for i := range values {
		values[i] /= sum
	}
}
