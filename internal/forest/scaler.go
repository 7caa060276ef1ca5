package forest

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes columns to zero mean and unit population variance
type Scaler struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// FitScaler computes per-column statistics of X. A constant column keeps a
// scale of 1 so it maps to zero instead of dividing by zero.
func FitScaler(X [][]float64) (*Scaler, error) {
	if len(X) == 0 {
		return nil, ErrEmptyTrainingSet
	}
	p := len(X[0])
	s := &Scaler{Means: make([]float64, p), Stds: make([]float64, p)}
	col := make([]float64, len(X))
	for f := 0; f < p; f++ {
		for i, row := range X {
			if len(row) != p {
				return nil, fmt.Errorf("forest: row %d has %d features, want %d", i, len(row), p)
			}
			col[i] = row[f]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Means[f] = mean
		s.Stds[f] = std
	}
	return s, nil
}

// Transform returns a standardized copy of X.
func (s *Scaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled := make([]float64, len(row))
		for f, v := range row {
			scaled[f] = (v - s.Means[f]) / s.Stds[f]
		}
		out[i] = scaled
	}
	return out
}

// FitTransform fits the scaler and applies it to the same rows.
func FitTransform(X [][]float64) (*Scaler, [][]float64, error) {
	s, err := FitScaler(X)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Transform(X), nil
}
