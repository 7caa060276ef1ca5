package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcmarket/internal/model"
)

func marketCompanies(t *testing.T) []model.CompanyRecord {
	t.Helper()
	cleaned, err := CleanRecords(parseText(t, "companies.csv", companyCSV(t, marketFixtures)), DefaultCleaningSteps)
	require.NoError(t, err)
	companies, _, err := BuildCompanies("companies.csv", cleaned, false)
	require.NoError(t, err)
	return companies
}

func TestComputeOverallStatistics(t *testing.T) {
	got := ComputeOverallStatistics(marketCompanies(t))
	assert.Equal(t, model.OverallStatistics{
		MeanTotalFunding:   8333333,
		MedianTotalFunding: 7000000,
		MeanLastFunding:    4666666,
		MedianLastFunding:  4500000,
	}, got)

	assert.Equal(t, model.OverallStatistics{}, ComputeOverallStatistics(nil))
}

func TestComputeCategoryStatistics(t *testing.T) {
	companies := marketCompanies(t)
	stats := ComputeCategoryStatistics(companies)

	require.Len(t, stats, 4)
	assert.Equal(t, model.CategoryStat{
		TotalFundingMean:   12666667,
		TotalFundingMedian: 10000000,
		CompanyCount:       3,
		LastFundingMean:    6333333,
		LastFundingMedian:  6000000,
	}, stats["Software"])
	assert.Equal(t, model.CategoryStat{
		TotalFundingMean:   8000000,
		TotalFundingMedian: 8000000,
		CompanyCount:       2,
		LastFundingMean:    4000000,
		LastFundingMedian:  4000000,
	}, stats["Fintech"])
	assert.Equal(t, int64(6000000), stats["Hardware"].TotalFundingMean)
	assert.Equal(t, int64(5000000), stats["Hardware"].LastFundingMedian)
	assert.Equal(t, 1, stats["Payments"].CompanyCount)

	// every label occurrence is counted exactly once
	occurrences := 0
	for _, c := range companies {
		occurrences += len(c.IndustryGroups)
	}
	counted := 0
	for _, s := range stats {
		counted += s.CompanyCount
	}
	assert.Equal(t, occurrences, counted)
}

func TestComputeCategoryStatistics_Rounding(t *testing.T) {
	companies := []model.CompanyRecord{
		{IndustryGroups: []string{"A"}, TotalFundingUSD: 1, LastFundingUSD: 2},
		{IndustryGroups: []string{"A"}, TotalFundingUSD: 2, LastFundingUSD: 3},
		{IndustryGroups: []string{"A", "A"}, TotalFundingUSD: 0, LastFundingUSD: 0},
		{TotalFundingUSD: 100, LastFundingUSD: 100},
	}
	stats := ComputeCategoryStatistics(companies)
	require.Len(t, stats, 1)
	a := stats["A"]
	assert.Equal(t, 3, a.CompanyCount)
	assert.Equal(t, int64(1), a.TotalFundingMean)   // 1.0
	assert.Equal(t, int64(1), a.TotalFundingMedian) // 1.0
	assert.Equal(t, int64(2), a.LastFundingMean)    // 1.666...
	assert.Equal(t, int64(2), a.LastFundingMedian)

	two := ComputeCategoryStatistics([]model.CompanyRecord{
		{IndustryGroups: []string{"B"}, TotalFundingUSD: 1, LastFundingUSD: 3},
		{IndustryGroups: []string{"B"}, TotalFundingUSD: 2, LastFundingUSD: 4},
	})["B"]
	assert.Equal(t, int64(2), two.TotalFundingMean) // 1.5 rounds to even
	assert.Equal(t, int64(4), two.LastFundingMean)  // 3.5 rounds to even
}

func TestIndustryList(t *testing.T) {
	assert.Equal(t, []string{"Software", "Fintech", "Hardware", "Payments"}, IndustryList(marketCompanies(t)))
	assert.Equal(t, []string{}, IndustryList(nil))

	stats := ComputeCategoryStatistics(marketCompanies(t))
	assert.Equal(t, []string{"Fintech", "Hardware", "Payments", "Software"}, SortedLabels(stats))
}

func TestMedian(t *testing.T) {
	values := []float64{5, 1, 3}
	assert.Equal(t, 3.0, Median(values))
	assert.Equal(t, []float64{5, 1, 3}, values)
	assert.Equal(t, 2.5, Median([]float64{4, 1, 2, 3}))
	assert.Equal(t, 0.0, Median(nil))
}

func TestDaysSinceFounding(t *testing.T) {
	c := model.CompanyRecord{
		FoundedDate:     time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		LastFundingDate: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 366, DaysSinceFounding(c))
}
