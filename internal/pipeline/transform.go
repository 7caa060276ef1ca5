package pipeline

import (
	"fmt"
	"strings"

	"vcmarket/internal/model"
	"vcmarket/pkg/utils"
)

// KeepColumns is the allow-list of company columns retained by the cleaner
var KeepColumns = []string{
	ColOrganizationName,
	ColOrganizationURL,
	ColFullDescription,
	ColFoundedDate,
	ColLastFundingDate,
	ColFundingRounds,
	ColFounders,
	ColLastFundingType,
	ColTopInvestors,
	ColIndustryGroups,
	ColTotalFundingUSD,
	ColLastFundingUSD,
	ColNumberOfEmployees,
}

// ListColumns hold ", " separated values
var ListColumns = []string{ColFounders, ColTopInvestors, ColIndustryGroups}

// DefaultCleaningSteps is the transformation chain applied to company rows
var DefaultCleaningSteps = []string{"selectColumns", "trimStrings", "splitLists", "dedupeIndustries"}

// CleanedRecord is a company row reduced to the allow-listed columns, with
// the multi-value columns split into ordered lists
type CleanedRecord struct {
	Row    int // 1-based data row of the source file
	Values GenericRecord
	Lists  map[string][]string // nil entry means the source cell was empty
}

// CleanRecords runs steps over every row, preserving row order.
func CleanRecords(table *RawTable, steps []string) ([]CleanedRecord, error) {
	if err := requireColumns(table, KeepColumns); err != nil {
		return nil, err
	}
	out := make([]CleanedRecord, 0, len(table.Rows))
	for i, rec := range table.Rows {
		cleaned, err := applyTransformations(rec, steps)
		if err != nil {
			return nil, fmt.Errorf("transformation failed: %w", err)
		}
		cleaned.Row = i + 1
		out = append(out, cleaned)
	}
	return out, nil
}

// applyTransformations applies all specified transformations to a record
func applyTransformations(rec GenericRecord, steps []string) (CleanedRecord, error) {
	result := CleanedRecord{Values: make(GenericRecord, len(rec))}
	for k, v := range rec {
		result.Values[k] = v
	}

	for _, step := range steps {
		switch step {
		case "selectColumns":
			result = selectColumns(result)
		case "trimStrings":
			result = trimStrings(result)
		case "splitLists":
			result = splitLists(result)
		case "dedupeIndustries":
			result = dedupeIndustries(result)
		default:
			return CleanedRecord{}, fmt.Errorf("unknown transformation: %s", step)
		}
	}
	return result, nil
}

// selectColumns drops every column outside KeepColumns
func selectColumns(rec CleanedRecord) CleanedRecord {
	kept := make(GenericRecord, len(KeepColumns))
	for _, c := range KeepColumns {
		kept[c] = rec.Values[c]
	}
	rec.Values = kept
	return rec
}

// trimStrings trims whitespace from all scalar fields
func trimStrings(rec CleanedRecord) CleanedRecord {
	for key, val := range rec.Values {
		rec.Values[key] = strings.TrimSpace(val)
	}
	return rec
}

// splitLists moves the multi-value columns into Lists
func splitLists(rec CleanedRecord) CleanedRecord {
	if rec.Lists == nil {
		rec.Lists = make(map[string][]string, len(ListColumns))
	}
	for _, c := range ListColumns {
		rec.Lists[c] = utils.SplitList(rec.Values[c])
		delete(rec.Values, c)
	}
	return rec
}

// dedupeIndustries keeps the first occurrence of each industry label
func dedupeIndustries(rec CleanedRecord) CleanedRecord {
	groups := rec.Lists[ColIndustryGroups]
	if len(groups) < 2 {
		return rec
	}
	seen := make(map[string]struct{}, len(groups))
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	rec.Lists[ColIndustryGroups] = out
	return rec
}

// ------------------- Company conversion -------------------

// BuildCompanies converts cleaned rows to company records. Rows with
// unusable values are rejected; with skipInvalid they are dropped, otherwise
// the load fails with a DataQualityError.
func BuildCompanies(source string, rows []CleanedRecord, skipInvalid bool) ([]model.CompanyRecord, []RowRejection, error) {
	companies := make([]model.CompanyRecord, 0, len(rows))
	var rejected []RowRejection
	for i, rec := range rows {
		row := rec.Row
		if row == 0 {
			row = i + 1
		}
		c, reasons := companyFromRecord(rec)
		if len(reasons) > 0 {
			rejected = append(rejected, RowRejection{Row: row, Name: rec.Values[ColOrganizationName], Reason: joinReasons(reasons)})
			continue
		}
		companies = append(companies, c)
	}
	if len(rejected) > 0 && !skipInvalid {
		return nil, rejected, &DataQualityError{Source: source, Rejected: rejected}
	}
	return companies, rejected, nil
}

func companyFromRecord(rec CleanedRecord) (model.CompanyRecord, []string) {
	v := rec.Values
	c := model.CompanyRecord{
		Name:              v[ColOrganizationName],
		URL:               v[ColOrganizationURL],
		Description:       v[ColFullDescription],
		LastFundingType:   v[ColLastFundingType],
		NumberOfEmployees: v[ColNumberOfEmployees],
		Founders:          rec.Lists[ColFounders],
		TopInvestors:      rec.Lists[ColTopInvestors],
		IndustryGroups:    rec.Lists[ColIndustryGroups],
	}
	var reasons []string
	var err error

	if c.FoundedDate, err = utils.ParseDate(v[ColFoundedDate]); err != nil {
		reasons = append(reasons, fmt.Sprintf("%s: %v", ColFoundedDate, err))
	}
	if c.LastFundingDate, err = utils.ParseDate(v[ColLastFundingDate]); err != nil {
		reasons = append(reasons, fmt.Sprintf("%s: %v", ColLastFundingDate, err))
	}
	if c.NumberOfFundingRounds, err = utils.ParseCount(v[ColFundingRounds]); err != nil {
		reasons = append(reasons, fmt.Sprintf("%s: %v", ColFundingRounds, err))
	} else if c.NumberOfFundingRounds < 0 {
		reasons = append(reasons, fmt.Sprintf("%s is negative", ColFundingRounds))
	}
	if c.TotalFundingUSD, err = utils.ParseAmount(v[ColTotalFundingUSD]); err != nil {
		reasons = append(reasons, fmt.Sprintf("%s: %v", ColTotalFundingUSD, err))
	} else if c.TotalFundingUSD < 0 {
		reasons = append(reasons, fmt.Sprintf("%s is negative", ColTotalFundingUSD))
	}
	if c.LastFundingUSD, err = utils.ParseAmount(v[ColLastFundingUSD]); err != nil {
		reasons = append(reasons, fmt.Sprintf("%s: %v", ColLastFundingUSD, err))
	} else if c.LastFundingUSD < 0 {
		reasons = append(reasons, fmt.Sprintf("%s is negative", ColLastFundingUSD))
	}

	if !c.FoundedDate.IsZero() && !c.LastFundingDate.IsZero() && c.LastFundingDate.Before(c.FoundedDate) {
		reasons = append(reasons, "last funding date is before founded date")
	}
	return c, reasons
}

func requireColumns(table *RawTable, columns []string) error {
	present := make(map[string]bool, len(table.Header))
	for _, h := range table.Header {
		present[h] = true
	}
	var missing []string
	for _, c := range columns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Source: table.Source, Reason: "missing columns: " + strings.Join(missing, ", ")}
	}
	return nil
}
