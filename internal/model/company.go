package model

import "time"

// CompanyRecord is a cleaned company row of a funding-round dataset
type CompanyRecord struct {
	Name                  string    `json:"organization_name"`
	URL                   string    `json:"organization_name_url,omitempty"`
	Description           string    `json:"full_description,omitempty"`
	FoundedDate           time.Time `json:"founded_date"`
	LastFundingDate       time.Time `json:"last_funding_date"`
	NumberOfFundingRounds int       `json:"number_of_funding_rounds"`
	Founders              []string  `json:"founders,omitempty"`
	LastFundingType       string    `json:"last_funding_type"`
	TopInvestors          []string  `json:"top_investors,omitempty"`
	IndustryGroups        []string  `json:"industry_groups,omitempty"`
	TotalFundingUSD       float64   `json:"total_funding_amount_usd"`
	LastFundingUSD        float64   `json:"last_funding_amount_usd"`
	NumberOfEmployees     string    `json:"number_of_employees,omitempty"`
}

// EnrichedCompany carries the funding predictor's output for one company
type EnrichedCompany struct {
	CompanyRecord
	ExpectedNextFunding float64 `json:"expected_next_funding"`
	FundingDifference   float64 `json:"funding_difference"`
}

// RankedCompany is one scored entry of a ranking run
type RankedCompany struct {
	Rank               int             `json:"rank"`
	Company            EnrichedCompany `json:"company"`
	InvestorScoreSum   int             `json:"investor_score_sum"`
	InvestorNorm       float64         `json:"investor_score_normalized"`
	FundingNorm        float64         `json:"funding_difference_normalized"`
	MarketContextScore float64         `json:"market_context_score"`
	OverallScore       float64         `json:"overall_score"`
}
