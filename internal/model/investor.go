package model

import (
	"fmt"
	"strings"
)

// Region is the source region of an investor record
type Region string

const (
	RegionEU Region = "EU"
	RegionUS Region = "US"
)

// ParseRegion accepts "EU" or "US" in any case.
func ParseRegion(s string) (Region, error) {
	switch Region(strings.ToUpper(strings.TrimSpace(s))) {
	case RegionEU:
		return RegionEU, nil
	case RegionUS:
		return RegionUS, nil
	default:
		return "", fmt.Errorf("unknown region %q", s)
	}
}

// InvestorRecord is one row of a regional investor file
type InvestorRecord struct {
	Name           string `json:"name"`
	NumInvestments int    `json:"num_investments"`
	NumExits       int    `json:"num_exits"`
	Region         Region `json:"region"`
}

// Score weighs an exit twice as much as an investment.
func (i InvestorRecord) Score() int {
	return i.NumInvestments + 2*i.NumExits
}

// InvestorScore is the read-only view of an investor with its score
type InvestorScore struct {
	Name           string `json:"name"`
	Region         Region `json:"region"`
	NumInvestments int    `json:"num_investments"`
	NumExits       int    `json:"num_exits"`
	Score          int    `json:"score"`
}

// View returns the record together with its computed score.
func (i InvestorRecord) View() InvestorScore {
	return InvestorScore{
		Name:           i.Name,
		Region:         i.Region,
		NumInvestments: i.NumInvestments,
		NumExits:       i.NumExits,
		Score:          i.Score(),
	}
}
