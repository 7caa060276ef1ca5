package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"vcmarket/internal/model"
	"vcmarket/pkg/utils"
)

// TopInvestorCount is the size of the top investors view
const TopInvestorCount = 20

// InvestorBook is the scored, region-tagged investor collection: EU records
// first, then US, each in file order
type InvestorBook struct {
	records []model.InvestorRecord
	index   map[string]int
}

// NewInvestorBook concatenates the regional collections. When a name occurs
// more than once, lookups resolve to the first occurrence.
func NewInvestorBook(eu, us []model.InvestorRecord) *InvestorBook {
	records := make([]model.InvestorRecord, 0, len(eu)+len(us))
	for _, r := range eu {
		r.Region = model.RegionEU
		records = append(records, r)
	}
	for _, r := range us {
		r.Region = model.RegionUS
		records = append(records, r)
	}
	index := make(map[string]int, len(records))
	for i, r := range records {
		if _, ok := index[r.Name]; !ok {
			index[r.Name] = i
		}
	}
	return &InvestorBook{records: records, index: index}
}

// ParseInvestors converts an investor table to records of region.
func ParseInvestors(table *RawTable, region model.Region, skipInvalid bool) ([]model.InvestorRecord, []RowRejection, error) {
	if err := ValidateInvestorHeader(table); err != nil {
		return nil, nil, err
	}
	rejected := ValidateRows(table, &InvestorRules)
	bad := make(map[int]bool, len(rejected))
	for _, r := range rejected {
		bad[r.Row] = true
	}

	records := make([]model.InvestorRecord, 0, len(table.Rows))
	for i, rec := range table.Rows {
		if bad[i+1] {
			continue
		}
		inv, err := investorFromRecord(rec, region)
		if err != nil {
			rejected = append(rejected, RowRejection{Row: i + 1, Name: rec[ColInvestorName], Reason: err.Error()})
			continue
		}
		records = append(records, inv)
	}
	if len(rejected) > 0 && !skipInvalid {
		sort.SliceStable(rejected, func(a, b int) bool { return rejected[a].Row < rejected[b].Row })
		return nil, rejected, &DataQualityError{Source: table.Source, Rejected: rejected}
	}
	return records, rejected, nil
}

func investorFromRecord(rec GenericRecord, region model.Region) (model.InvestorRecord, error) {
	investments, err := utils.ParseCount(rec[ColNumInvestments])
	if err != nil {
		return model.InvestorRecord{}, fmt.Errorf("%s: %w", ColNumInvestments, err)
	}
	exits, err := utils.ParseCount(rec[ColNumExits])
	if err != nil {
		return model.InvestorRecord{}, fmt.Errorf("%s: %w", ColNumExits, err)
	}
	return model.InvestorRecord{
		Name:           strings.TrimSpace(rec[ColInvestorName]),
		NumInvestments: investments,
		NumExits:       exits,
		Region:         region,
	}, nil
}

// Len returns the number of investors.
func (b *InvestorBook) Len() int { return len(b.records) }

// All returns every investor with its score in concatenation order.
func (b *InvestorBook) All() []model.InvestorScore {
	out := make([]model.InvestorScore, len(b.records))
	for i, r := range b.records {
		out[i] = r.View()
	}
	return out
}

// Top returns the k highest scoring investors. Ties keep concatenation order.
func (b *InvestorBook) Top(k int) []model.InvestorScore {
	return topScores(b.All(), k)
}

// TopByRegion is Top restricted to one region.
func (b *InvestorBook) TopByRegion(region model.Region, k int) []model.InvestorScore {
	var scores []model.InvestorScore
	for _, r := range b.records {
		if r.Region == region {
			scores = append(scores, r.View())
		}
	}
	return topScores(scores, k)
}

// Score looks up an investor by exact name.
func (b *InvestorBook) Score(name string) (int, bool) {
	i, ok := b.index[name]
	if !ok {
		return 0, false
	}
	return b.records[i].Score(), true
}

// ScoreSum adds the scores of the named investors. Unknown names add 0.
func (b *InvestorBook) ScoreSum(names []string) int {
	sum := 0
	for _, n := range names {
		if s, ok := b.Score(n); ok {
			sum += s
		}
	}
	return sum
}

func topScores(scores []model.InvestorScore, k int) []model.InvestorScore {
	if k <= 0 || len(scores) == 0 {
		return []model.InvestorScore{}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	if k < len(scores) {
		scores = scores[:k]
	}
	return scores
}
