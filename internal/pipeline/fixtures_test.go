package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type companyFixture struct {
	name, founded, last, rounds, investors, industries, total, lastAmount, fundingType string
}

// values lays the fixture out in DefaultReferenceLayout order.
func (c companyFixture) values() []string {
	fundingType := c.fundingType
	if fundingType == "" {
		fundingType = "Series A"
	}
	byColumn := map[string]string{
		ColOrganizationName:             c.name,
		ColOrganizationURL:              "https://example.com/" + strings.ToLower(c.name),
		ColFullDescription:              c.name + " builds things",
		ColIndustryGroups:               c.industries,
		ColFoundedDate:                  c.founded,
		"Headquarters Location":         "Berlin, Germany",
		ColNumberOfEmployees:            "11-50",
		ColLastFundingDate:              c.last,
		ColLastFundingType:              fundingType,
		ColFundingRounds:                c.rounds,
		ColFounders:                     "Ann Smith, Bo Jones",
		ColTopInvestors:                 c.investors,
		"Total Funding Amount":          c.total,
		"Total Funding Amount Currency": "USD",
		ColTotalFundingUSD:              c.total,
		"Last Funding Amount":           c.lastAmount,
		"Last Funding Amount Currency":  "USD",
		ColLastFundingUSD:               c.lastAmount,
	}
	out := make([]string, len(DefaultReferenceLayout))
	for i, col := range DefaultReferenceLayout {
		out[i] = byColumn[col]
	}
	return out
}

// marketFixtures is a six company Series A market.
var marketFixtures = []companyFixture{
	{name: "Acme", founded: "2020-01-01", last: "2022-01-01", rounds: "2", investors: "Alpha Ventures, Beta Capital", industries: "Software, Fintech", total: "10000000", lastAmount: "5000000"},
	{name: "Bolt", founded: "2019-06-01", last: "2021-06-01", rounds: "1", investors: "Gamma Partners", industries: "Hardware", total: "4000000", lastAmount: "4000000"},
	{name: "Cyan", founded: "2021-03-01", last: "2021-03-01", rounds: "0", investors: "", industries: "", total: "2000000", lastAmount: "2000000"},
	{name: "Dyno", founded: "2018-01-01", last: "2023-01-01", rounds: "3", investors: "Unknown Fund", industries: "Software", total: "20000000", lastAmount: "8000000"},
	{name: "Echo", founded: "2020-05-05", last: "2022-05-05", rounds: "2", investors: "Alpha Ventures", industries: "Fintech, Payments", total: "6000000", lastAmount: "3000000"},
	{name: "Flux", founded: "2017-02-02", last: "2020-02-02", rounds: "2", investors: "Beta Capital, Gamma Partners", industries: "Hardware, Software", total: "8000000", lastAmount: "6000000"},
}

var euInvestorRows = [][]string{
	{"Alpha Ventures", "5", "2"},
	{"Beta Capital", "3", "0"},
}

var usInvestorRows = [][]string{
	{"Gamma Partners", "10", "1"},
	{"Zeta", "0", "0"},
}

func csvText(t *testing.T, header []string, rows [][]string) string {
	t.Helper()
	var b strings.Builder
	w := csv.NewWriter(&b)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
	return b.String()
}

func companyCSV(t *testing.T, fixtures []companyFixture) string {
	rows := make([][]string, len(fixtures))
	for i, f := range fixtures {
		rows[i] = f.values()
	}
	return csvText(t, DefaultReferenceLayout, rows)
}

func investorCSV(t *testing.T, rows [][]string) string {
	return csvText(t, InvestorColumns, rows)
}

func parseText(t *testing.T, source, text string) *RawTable {
	t.Helper()
	table, err := ParseTable(source, strings.NewReader(text))
	require.NoError(t, err)
	return table
}

func marketInput(t *testing.T) BuildInput {
	return BuildInput{
		Companies:   parseText(t, "companies.csv", companyCSV(t, marketFixtures)),
		EUInvestors: parseText(t, "eu.csv", investorCSV(t, euInvestorRows)),
		USInvestors: parseText(t, "us.csv", investorCSV(t, usInvestorRows)),
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// testOptions keeps ensembles small so tests stay fast.
func testOptions() Options {
	opts := DefaultOptions()
	opts.Model.Forest.Trees = 20
	return opts
}
