package pipeline

import (
	"math"

	"vcmarket/internal/model"
)

// FeatureNames lists the model inputs in column order
var FeatureNames = []string{
	"days_since_founding",
	"days_since_founding_log",
	"total_funding",
	"funding_rounds",
	"avg_funding_per_round",
	"funding_velocity",
	"industry_count",
}

// FeatureRow is the engineered input of one company
type FeatureRow struct {
	Values []float64
	// NoFundingHistory marks a last funding on the founding day, where
	// funding_velocity is reported as 0.
	NoFundingHistory bool
}

// DaysSinceFounding counts whole days from founding to the last funding.
func DaysSinceFounding(c model.CompanyRecord) int {
	return int(c.LastFundingDate.Sub(c.FoundedDate).Hours() / 24)
}

// BuildFeatureRow engineers the model inputs of c. A zero round count gives
// an average per round of 0 and zero days give a velocity of 0.
func BuildFeatureRow(c model.CompanyRecord) (FeatureRow, error) {
	days := DaysSinceFounding(c)
	if days < 0 {
		return FeatureRow{}, &DataQualityError{
			Source:   "features",
			Rejected: []RowRejection{{Name: c.Name, Reason: "last funding date is before founded date"}},
		}
	}

	var avgPerRound float64
	if c.NumberOfFundingRounds > 0 {
		avgPerRound = c.TotalFundingUSD / float64(c.NumberOfFundingRounds)
	}
	var velocity float64
	if days > 0 {
		velocity = c.TotalFundingUSD / float64(days)
	}

	return FeatureRow{
		Values: []float64{
			float64(days),
			math.Log1p(float64(days)),
			c.TotalFundingUSD,
			float64(c.NumberOfFundingRounds),
			avgPerRound,
			velocity,
			float64(len(c.IndustryGroups)),
		},
		NoFundingHistory: days == 0,
	}, nil
}

// BuildFeatureMatrix engineers every company and returns the feature matrix
// with the last funding target.
func BuildFeatureMatrix(companies []model.CompanyRecord) ([][]float64, []float64, error) {
	X := make([][]float64, len(companies))
	y := make([]float64, len(companies))
	var rejected []RowRejection
	for i, c := range companies {
		row, err := BuildFeatureRow(c)
		if err != nil {
			rejected = append(rejected, RowRejection{Row: i + 1, Name: c.Name, Reason: "last funding date is before founded date"})
			continue
		}
		X[i] = row.Values
		y[i] = c.LastFundingUSD
	}
	if len(rejected) > 0 {
		return nil, nil, &DataQualityError{Source: "features", Rejected: rejected}
	}
	return X, y, nil
}
