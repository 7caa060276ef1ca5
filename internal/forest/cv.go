package forest

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Folds splits n rows into k contiguous folds; the first n%k folds get one
// extra row. It returns nil when n < k.
func Folds(n, k int) [][2]int {
	if k < 2 || n < k {
		return nil
	}
	out := make([][2]int, 0, k)
	size, extra := n/k, n%k
	start := 0
	for f := 0; f < k; f++ {
		end := start + size
		if f < extra {
			end++
		}
		out = append(out, [2]int{start, end})
		start = end
	}
	return out
}

// CrossValidate fits one ensemble per fold on the remaining rows and returns
// the R² of each held-out fold. It returns nil scores when there are fewer
// rows than folds.
func CrossValidate(ctx context.Context, X [][]float64, y []float64, cfg Config, k int) ([]float64, error) {
	folds := Folds(len(X), k)
	if folds == nil {
		return nil, nil
	}

	scores := make([]float64, len(folds))
	for f, bounds := range folds {
		start, end := bounds[0], bounds[1]
		trainX := make([][]float64, 0, len(X)-(end-start))
		trainY := make([]float64, 0, len(X)-(end-start))
		trainX = append(trainX, X[:start]...)
		trainX = append(trainX, X[end:]...)
		trainY = append(trainY, y[:start]...)
		trainY = append(trainY, y[end:]...)

		model, err := Fit(ctx, trainX, trainY, cfg)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", f+1, err)
		}
		scores[f] = RSquared(model.PredictAll(X[start:end]), y[start:end])
	}
	return scores, nil
}

// RSquared is the coefficient of determination of estimates against values.
// A constant target or a non-finite result yields 0.
func RSquared(estimates, values []float64) float64 {
	if len(values) == 0 || len(estimates) != len(values) {
		return 0
	}
	if len(values) < 2 || stat.Variance(values, nil) == 0 {
		return 0
	}
	r2 := stat.RSquaredFrom(estimates, values, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		return 0
	}
	return r2
}

// Mean averages scores; an empty slice yields 0.
func Mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	return stat.Mean(scores, nil)
}
