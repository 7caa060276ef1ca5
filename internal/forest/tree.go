package forest

import (
	"math/rand"
	"sort"
)

const leaf = -1

// node is one split or leaf of a regression tree. Leaves have left == leaf.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
}

// Tree is a fitted CART regression tree
type Tree struct {
	nodes      []node
	importance []float64
}

// treeBuilder grows one tree from a bootstrap sample
type treeBuilder struct {
	X   [][]float64
	y   []float64
	cfg Config
	rng *rand.Rand

	nodes      []node
	importance []float64
	mtry       int
}

func fitTree(X [][]float64, y []float64, sample []int, cfg Config, rng *rand.Rand) *Tree {
	p := len(X[0])
	b := &treeBuilder{
		X:          X,
		y:          y,
		cfg:        cfg,
		rng:        rng,
		importance: make([]float64, p),
		mtry:       cfg.featuresPerSplit(p),
	}
	b.grow(sample, 0)
	return &Tree{nodes: b.nodes, importance: b.importance}
}

// grow appends the subtree for idx and returns its node index.
func (b *treeBuilder) grow(idx []int, depth int) int {
	mean, sse := meanSSE(b.y, idx)
	id := len(b.nodes)
	b.nodes = append(b.nodes, node{left: leaf, right: leaf, value: mean})

	if len(idx) < b.cfg.MinSamplesSplit || len(idx) < 2*b.cfg.MinSamplesLeaf || sse <= 0 {
		return id
	}
	if b.cfg.MaxDepth > 0 && depth >= b.cfg.MaxDepth {
		return id
	}

	feature, threshold, gain, ok := b.bestSplit(idx, sse)
	if !ok {
		return id
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return id
	}

	b.importance[feature] += gain
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id].feature = feature
	b.nodes[id].threshold = threshold
	b.nodes[id].left = l
	b.nodes[id].right = r
	return id
}

// bestSplit searches a random subset of features for the split with the
// largest reduction in squared error.
func (b *treeBuilder) bestSplit(idx []int, parentSSE float64) (int, float64, float64, bool) {
	p := len(b.importance)
	features := b.rng.Perm(p)[:b.mtry]

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	sorted := make([]int, len(idx))
	leftSSE := make([]float64, len(idx))
	rightSSE := make([]float64, len(idx))
	minLeaf := b.cfg.MinSamplesLeaf

	for _, f := range features {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.X[sorted[i]][f] < b.X[sorted[j]][f]
		})

		// leftSSE[k] covers sorted[:k+1], rightSSE[k] covers sorted[k:]
		runningSSE(b.y, sorted, leftSSE, false)
		runningSSE(b.y, sorted, rightSSE, true)

		for k := minLeaf - 1; k < len(sorted)-minLeaf; k++ {
			lo := b.X[sorted[k]][f]
			hi := b.X[sorted[k+1]][f]
			if lo >= hi {
				continue
			}
			gain := parentSSE - leftSSE[k] - rightSSE[k+1]
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
				if bestThreshold >= hi {
					bestThreshold = lo
				}
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, 0, false
	}
	return bestFeature, bestThreshold, bestGain, true
}

// runningSSE fills out with Welford running sums of squared deviations,
// scanning order forwards or backwards.
func runningSSE(y []float64, order []int, out []float64, backwards bool) {
	var mean, m2 float64
	n := 0
	step := func(k int) {
		v := y[order[k]]
		n++
		delta := v - mean
		mean += delta / float64(n)
		m2 += delta * (v - mean)
		if m2 < 0 {
			m2 = 0
		}
		out[k] = m2
	}
	if backwards {
		for k := len(order) - 1; k >= 0; k-- {
			step(k)
		}
		return
	}
	for k := range order {
		step(k)
	}
}

func meanSSE(y []float64, idx []int) (float64, float64) {
	if len(idx) == 0 {
		return 0, 0
	}
	var sum float64
	for _, i := range idx {
		sum += y[i]
	}
	mean := sum / float64(len(idx))
	var sse float64
	for _, i := range idx {
		d := y[i] - mean
		sse += d * d
	}
	return mean, sse
}

// Predict walks the tree for one feature vector.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for t.nodes[i].left != leaf {
		if x[t.nodes[i].feature] <= t.nodes[i].threshold {
			i = t.nodes[i].left
		} else {
			i = t.nodes[i].right
		}
	}
	return t.nodes[i].value
}

// Leaves counts the terminal nodes.
func (t *Tree) Leaves() int {
	n := 0
	for _, nd := range t.nodes {
		if nd.left == leaf {
			n++
		}
	}
	return n
}
