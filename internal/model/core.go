package model

// Sources names the three input files of one load. Each entry is a local
// path or an http(s) URL.
type Sources struct {
	Companies   string `json:"companies" yaml:"companies"`
	EUInvestors string `json:"eu_investors" yaml:"eu_investors"`
	USInvestors string `json:"us_investors" yaml:"us_investors"`
}

// ValidationRules defines per-row validation requirements for a source
type ValidationRules struct {
	RequiredFields []string           `json:"requiredFields"` // fields that must be non-empty
	NumericFields  []string           `json:"numericFields"`  // fields that must parse as numbers when present
	MinValues      map[string]float64 `json:"minValues"`      // min allowed numeric values
}

// RankWeights are the factor weights of the company ranking formula
type RankWeights struct {
	Investor float64 `json:"investor_weight" validate:"gte=0"`
	Funding  float64 `json:"funding_weight" validate:"gte=0"`
	Market   float64 `json:"market_weight" validate:"gte=0"`
}

// RankRequest is the input of one ranking run
type RankRequest struct {
	N       int         `json:"n"`
	Weights RankWeights `json:"weights"`
}

// ExportSpec defines export targets
type ExportSpec struct {
	Dir         string      `json:"dir"`          // base export directory
	DB          string      `json:"db"`           // optional sqlite file, e.g. exports/vcmarket.db
	Workbook    bool        `json:"workbook"`     // write vcmarket.xlsx
	Charts      bool        `json:"charts"`       // write PNG charts
	ModelReport bool        `json:"model_report"` // write Model_Report.json
	Ranking     RankRequest `json:"ranking"`      // top companies to export
}
