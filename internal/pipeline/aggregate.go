package pipeline

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"vcmarket/internal/model"
)

// groupAccumulator collects the funding values of one industry group
type groupAccumulator struct {
	total []float64
	last  []float64
}

func (g *groupAccumulator) add(c model.CompanyRecord) {
	g.total = append(g.total, c.TotalFundingUSD)
	g.last = append(g.last, c.LastFundingUSD)
}

// ComputeOverallStatistics returns the mean and median of total and last
// funding over all companies, truncated to whole USD.
func ComputeOverallStatistics(companies []model.CompanyRecord) model.OverallStatistics {
	if len(companies) == 0 {
		return model.OverallStatistics{}
	}
	var acc groupAccumulator
	for _, c := range companies {
		acc.add(c)
	}
	return model.OverallStatistics{
		MeanTotalFunding:   int64(stat.Mean(acc.total, nil)),
		MedianTotalFunding: int64(Median(acc.total)),
		MeanLastFunding:    int64(stat.Mean(acc.last, nil)),
		MedianLastFunding:  int64(Median(acc.last)),
	}
}

// ComputeCategoryStatistics explodes each company into one row per industry
// group it belongs to and summarizes each group, rounding half to even.
// Companies without industry groups contribute to no group.
func ComputeCategoryStatistics(companies []model.CompanyRecord) model.CategoryStatistics {
	groups := make(map[string]*groupAccumulator)
	for _, c := range companies {
		for _, label := range distinctLabels(c.IndustryGroups) {
			acc, ok := groups[label]
			if !ok {
				acc = &groupAccumulator{}
				groups[label] = acc
			}
			acc.add(c)
		}
	}

	stats := make(model.CategoryStatistics, len(groups))
	for label, acc := range groups {
		stats[label] = model.CategoryStat{
			TotalFundingMean:   roundHalfEven(stat.Mean(acc.total, nil)),
			TotalFundingMedian: roundHalfEven(Median(acc.total)),
			CompanyCount:       len(acc.total),
			LastFundingMean:    roundHalfEven(stat.Mean(acc.last, nil)),
			LastFundingMedian:  roundHalfEven(Median(acc.last)),
		}
	}
	return stats
}

// IndustryList returns the distinct industry labels in first-seen order.
func IndustryList(companies []model.CompanyRecord) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, c := range companies {
		for _, label := range c.IndustryGroups {
			if _, ok := seen[label]; ok {
				continue
			}
			seen[label] = struct{}{}
			out = append(out, label)
		}
	}
	return out
}

// SortedLabels returns the labels of stats in lexical order.
func SortedLabels(stats model.CategoryStatistics) []string {
	labels := make([]string, 0, len(stats))
	for label := range stats {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Median returns the middle value of values, or the mean of the two middle
// values for an even count. values is not modified.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func roundHalfEven(v float64) int64 {
	return int64(math.RoundToEven(v))
}

func distinctLabels(labels []string) []string {
	if len(labels) < 2 {
		return labels
	}
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
