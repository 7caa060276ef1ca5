// Package forest implements a bagged ensemble of CART regression trees with
// per-split feature subsampling, a standard scaler and k-fold cross
// validation. Fitting is deterministic for a given seed: each tree draws from
// its own random source derived from the seed and the tree index, so the
// degree of parallelism never changes the result.
package forest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ErrEmptyTrainingSet is returned when Fit receives no rows.
var ErrEmptyTrainingSet = errors.New("forest: empty training set")

// Config controls ensemble fitting
type Config struct {
	Trees           int   `json:"trees"`
	Seed            int64 `json:"seed"`
	MaxDepth        int   `json:"max_depth"`         // 0 means unlimited
	MinSamplesSplit int   `json:"min_samples_split"` // default 2
	MinSamplesLeaf  int   `json:"min_samples_leaf"`  // default 1
	MaxFeatures     int   `json:"max_features"`      // 0 means ceil(p/3)
	Workers         int   `json:"workers"`           // 0 means GOMAXPROCS
}

// DefaultConfig returns 100 trees seeded with 42.
func DefaultConfig() Config {
	return Config{
		Trees:           100,
		Seed:            42,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
}

func (c Config) withDefaults() Config {
	if c.Trees <= 0 {
		c.Trees = 100
	}
	if c.MinSamplesSplit < 2 {
		c.MinSamplesSplit = 2
	}
	if c.MinSamplesLeaf < 1 {
		c.MinSamplesLeaf = 1
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c
}

func (c Config) featuresPerSplit(p int) int {
	m := c.MaxFeatures
	if m <= 0 {
		m = (p + 2) / 3
	}
	if m > p {
		m = p
	}
	if m < 1 {
		m = 1
	}
	return m
}

// Forest is a fitted ensemble
type Forest struct {
	trees      []*Tree
	features   int
	importance []float64
}

// Fit grows cfg.Trees trees on bootstrap samples of (X, y).
func Fit(ctx context.Context, X [][]float64, y []float64, cfg Config) (*Forest, error) {
	if len(X) == 0 {
		return nil, ErrEmptyTrainingSet
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("forest: %d rows but %d targets", len(X), len(y))
	}
	p := len(X[0])
	if p == 0 {
		return nil, fmt.Errorf("forest: rows have no features")
	}
	for i, row := range X {
		if len(row) != p {
			return nil, fmt.Errorf("forest: row %d has %d features, want %d", i, len(row), p)
		}
	}

	cfg = cfg.withDefaults()
	n := len(X)
	trees := make([]*Tree, cfg.Trees)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for t := 0; t < cfg.Trees; t++ {
		t := t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(treeSeed(cfg.Seed, t)))
			sample := make([]int, n)
			for i := range sample {
				sample[i] = rng.Intn(n)
			}
			trees[t] = fitTree(X, y, sample, cfg, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("forest: fit cancelled: %w", err)
	}

	return &Forest{
		trees:      trees,
		features:   p,
		importance: averageImportance(trees, p),
	}, nil
}

// treeSeed spreads the tree index over the seed space.
func treeSeed(seed int64, t int) int64 {
	return int64(uint64(seed) ^ (uint64(t+1) * 0x9E3779B97F4A7C15))
}

// averageImportance normalizes each tree's impurity decrease to sum 1,
// averages across trees and normalizes the mean again.
func averageImportance(trees []*Tree, p int) []float64 {
	out := make([]float64, p)
	for _, t := range trees {
		var total float64
		for _, v := range t.importance {
			total += v
		}
		if total <= 0 {
			continue
		}
		for f, v := range t.importance {
			out[f] += v / total
		}
	}
	var total float64
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for f := range out {
			out[f] /= total
		}
	}
	return out
}

// Predict averages the tree predictions for x.
func (f *Forest) Predict(x []float64) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += t.Predict(x)
	}
	return sum / float64(len(f.trees))
}

// PredictAll predicts every row of X.
func (f *Forest) PredictAll(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = f.Predict(x)
	}
	return out
}

// FeatureImportances returns a copy of the normalized importances.
func (f *Forest) FeatureImportances() []float64 {
	return append([]float64(nil), f.importance...)
}

// Size returns the number of trees.
func (f *Forest) Size() int { return len(f.trees) }
