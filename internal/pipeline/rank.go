package pipeline

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"vcmarket/internal/model"
)

var validate = newValidator()

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateRankRequest checks the ranking weights.
func ValidateRankRequest(req model.RankRequest) error {
	if err := validate.Struct(req.Weights); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ParameterError{Field: fe.Field(), Reason: fmt.Sprintf("must be >= 0, got %v", fe.Value())}
		}
		return &ParameterError{Field: "weights", Reason: err.Error()}
	}
	return nil
}

// Rank scores every company of ds and returns the top req.N by overall
// score, descending. Equal scores keep dataset order. N <= 0 yields an
// empty result and N beyond the dataset size yields all companies.
func Rank(ds *Dataset, req model.RankRequest) ([]model.RankedCompany, error) {
	if ds == nil {
		return nil, ErrNoDataset
	}
	if err := ValidateRankRequest(req); err != nil {
		return nil, err
	}
	if req.N <= 0 {
		return []model.RankedCompany{}, nil
	}

	scored := ScoreCompanies(ds, req.Weights)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].OverallScore > scored[j].OverallScore
	})
	if req.N < len(scored) {
		scored = scored[:req.N]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}
	return scored, nil
}

// ScoreCompanies computes the ranking factors of every company in dataset
// order. Investor sums and funding differences are divided by their dataset
// maximum, a maximum of 0 giving 0. The market context score is the mean of
// the total and last funding ratios to the overall medians and is not
// normalized.
func ScoreCompanies(ds *Dataset, w model.RankWeights) []model.RankedCompany {
	n := len(ds.Companies)
	out := make([]model.RankedCompany, n)
	if n == 0 {
		return out
	}

	maxSum := 0
	maxDiff := ds.Companies[0].FundingDifference
	for i, c := range ds.Companies {
		sum := ds.Investors.ScoreSum(c.TopInvestors)
		out[i] = model.RankedCompany{Company: c, InvestorScoreSum: sum}
		if sum > maxSum {
			maxSum = sum
		}
		if c.FundingDifference > maxDiff {
			maxDiff = c.FundingDifference
		}
	}

	medTotal := float64(ds.Overall.MedianTotalFunding)
	medLast := float64(ds.Overall.MedianLastFunding)
	for i := range out {
		r := &out[i]
		c := r.Company
		if maxSum != 0 {
			r.InvestorNorm = float64(r.InvestorScoreSum) / float64(maxSum)
		}
		if maxDiff != 0 {
			r.FundingNorm = c.FundingDifference / maxDiff
		}
		r.MarketContextScore = (ratio(c.TotalFundingUSD, medTotal) + ratio(c.LastFundingUSD, medLast)) / 2
		r.OverallScore = w.Investor*r.InvestorNorm + w.Funding*r.FundingNorm + w.Market*r.MarketContextScore
	}
	return out
}

func ratio(v, median float64) float64 {
	if median == 0 {
		return 0
	}
	return v / median
}
