package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"vcmarket/internal/model"
	"vcmarket/pkg/utils"
)

// Company file columns
const (
	ColOrganizationName  = "Organization Name"
	ColOrganizationURL   = "Organization Name URL"
	ColFullDescription   = "Full Description"
	ColFoundedDate       = "Founded Date"
	ColLastFundingDate   = "Last Funding Date"
	ColFundingRounds     = "Number of Funding Rounds"
	ColFounders          = "Founders"
	ColLastFundingType   = "Last Funding Type"
	ColTopInvestors      = "Top 5 Investors"
	ColIndustryGroups    = "Industry Groups"
	ColTotalFundingUSD   = "Total Funding Amount (in USD)"
	ColLastFundingUSD    = "Last Funding Amount (in USD)"
	ColNumberOfEmployees = "Number of Employees"
)

// Investor file columns
const (
	ColInvestorName   = "Organization/Person Name"
	ColNumInvestments = "Number of Investments"
	ColNumExits       = "Number of Exits"
)

// DefaultReferenceLayout is the column layout of a company search export.
// Company files must match it exactly unless a reference file is configured.
var DefaultReferenceLayout = []string{
	ColOrganizationName,
	ColOrganizationURL,
	ColFullDescription,
	ColIndustryGroups,
	ColFoundedDate,
	"Headquarters Location",
	ColNumberOfEmployees,
	ColLastFundingDate,
	ColLastFundingType,
	ColFundingRounds,
	ColFounders,
	ColTopInvestors,
	"Total Funding Amount",
	"Total Funding Amount Currency",
	ColTotalFundingUSD,
	"Last Funding Amount",
	"Last Funding Amount Currency",
	ColLastFundingUSD,
}

// InvestorColumns are the columns every investor file must carry
var InvestorColumns = []string{ColInvestorName, ColNumInvestments, ColNumExits}

// CompanyRules are the row checks applied to company files
var CompanyRules = model.ValidationRules{
	RequiredFields: []string{ColOrganizationName, ColFoundedDate, ColLastFundingDate, ColTotalFundingUSD, ColLastFundingUSD},
	NumericFields:  []string{ColFundingRounds, ColTotalFundingUSD, ColLastFundingUSD},
	MinValues: map[string]float64{
		ColFundingRounds:   0,
		ColTotalFundingUSD: 0,
		ColLastFundingUSD:  0,
	},
}

// InvestorRules are the row checks applied to investor files
var InvestorRules = model.ValidationRules{
	RequiredFields: []string{ColInvestorName},
	NumericFields:  []string{ColNumInvestments, ColNumExits},
	MinValues: map[string]float64{
		ColNumInvestments: 0,
		ColNumExits:       0,
	},
}

// LoadReferenceLayout returns the header of the reference file at path, or
// DefaultReferenceLayout when path is empty.
func LoadReferenceLayout(ctx context.Context, in *Ingester, path string) ([]string, error) {
	if path == "" {
		return DefaultReferenceLayout, nil
	}
	table, err := in.ReadTable(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read reference layout: %w", err)
	}
	return table.Header, nil
}

// ValidateLayout requires header to equal reference in names and order.
func ValidateLayout(source string, header, reference []string) error {
	if len(header) != len(reference) {
		return &SchemaError{
			Source: source,
			Reason: fmt.Sprintf("column layout is not compatible: got %d columns, want %d", len(header), len(reference)),
		}
	}
	for i := range reference {
		if header[i] != reference[i] {
			return &SchemaError{
				Source: source,
				Reason: fmt.Sprintf("column layout is not compatible: column %d is %q, want %q", i+1, header[i], reference[i]),
			}
		}
	}
	return nil
}

// ValidateFundingType requires every row to share one last funding type.
func ValidateFundingType(table *RawTable) (string, error) {
	seen := make(map[string]struct{})
	var types []string
	for _, rec := range table.Rows {
		t := strings.TrimSpace(rec[ColLastFundingType])
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			types = append(types, t)
		}
	}
	switch len(types) {
	case 0:
		return "", &SchemaError{Source: table.Source, Reason: "file has no company rows"}
	case 1:
		return types[0], nil
	default:
		return "", &SchemaError{
			Source: table.Source,
			Reason: fmt.Sprintf("mix of different funding rounds: %s", strings.Join(types, ", ")),
		}
	}
}

// ValidateInvestorHeader requires the investor columns to be present.
func ValidateInvestorHeader(table *RawTable) error {
	return requireColumns(table, InvestorColumns)
}

// ValidateRows applies rules to every row and returns the rejections.
func ValidateRows(table *RawTable, rules *model.ValidationRules) []RowRejection {
	var rejected []RowRejection
	for i, rec := range table.Rows {
		if reasons := validateRecord(rec, rules); len(reasons) > 0 {
			rejected = append(rejected, RowRejection{
				Row:    i + 1,
				Name:   rowName(rec),
				Reason: joinReasons(reasons),
			})
		}
	}
	return rejected
}

// validateRecord applies per-source validation rules to a record.
func validateRecord(rec GenericRecord, rules *model.ValidationRules) []string {
	if rules == nil {
		return nil
	}
	var reasons []string

	for _, field := range rules.RequiredFields {
		if strings.TrimSpace(rec[field]) == "" {
			reasons = append(reasons, fmt.Sprintf("missing required field: %s", field))
		}
	}

	numeric := make(map[string]float64, len(rules.NumericFields))
	for _, field := range rules.NumericFields {
		val := strings.TrimSpace(rec[field])
		if val == "" {
			continue
		}
		f, err := utils.ParseAmount(val)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("field %s must be numeric, got %q", field, val))
			continue
		}
		numeric[field] = f
	}

	fields := make([]string, 0, len(rules.MinValues))
	for field := range rules.MinValues {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		min := rules.MinValues[field]
		if f, ok := numeric[field]; ok && f < min {
			reasons = append(reasons, fmt.Sprintf("field %s below minimum: got %v, want >= %v", field, f, min))
		}
	}
	return reasons
}

func rowName(rec GenericRecord) string {
	if n := rec[ColOrganizationName]; n != "" {
		return n
	}
	return rec[ColInvestorName]
}
