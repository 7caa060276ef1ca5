package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcmarket/internal/model"
	"vcmarket/internal/pipeline"
)

var companyRows = []map[string]string{
	{pipeline.ColOrganizationName: "Acme", pipeline.ColFoundedDate: "2020-01-01", pipeline.ColLastFundingDate: "2022-01-01", pipeline.ColFundingRounds: "2", pipeline.ColTopInvestors: "Alpha Ventures", pipeline.ColIndustryGroups: "Software", pipeline.ColTotalFundingUSD: "10000000", pipeline.ColLastFundingUSD: "5000000"},
	{pipeline.ColOrganizationName: "Bolt", pipeline.ColFoundedDate: "2019-06-01", pipeline.ColLastFundingDate: "2021-06-01", pipeline.ColFundingRounds: "1", pipeline.ColTopInvestors: "Gamma Partners", pipeline.ColIndustryGroups: "Hardware", pipeline.ColTotalFundingUSD: "4000000", pipeline.ColLastFundingUSD: "4000000"},
	{pipeline.ColOrganizationName: "Cyan", pipeline.ColFoundedDate: "2021-03-01", pipeline.ColLastFundingDate: "2021-03-01", pipeline.ColFundingRounds: "0", pipeline.ColIndustryGroups: "Software, Fintech", pipeline.ColTotalFundingUSD: "2000000", pipeline.ColLastFundingUSD: "2000000"},
	{pipeline.ColOrganizationName: "Dyno", pipeline.ColFoundedDate: "2018-01-01", pipeline.ColLastFundingDate: "2023-01-01", pipeline.ColFundingRounds: "3", pipeline.ColTopInvestors: "Beta Capital", pipeline.ColIndustryGroups: "Fintech", pipeline.ColTotalFundingUSD: "20000000", pipeline.ColLastFundingUSD: "8000000"},
	{pipeline.ColOrganizationName: "Echo", pipeline.ColFoundedDate: "2020-05-05", pipeline.ColLastFundingDate: "2022-05-05", pipeline.ColFundingRounds: "2", pipeline.ColTopInvestors: "Alpha Ventures, Beta Capital", pipeline.ColIndustryGroups: "Hardware", pipeline.ColTotalFundingUSD: "6000000", pipeline.ColLastFundingUSD: "3000000"},
}

func writeCSV(t *testing.T, path string, header []string, rows [][]string) string {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := csv.NewWriter(f)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
	return path
}

type fixture struct {
	configPath string
	exportDir  string
}

// newFixture writes the market files and a config naming them.
func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()

	layout := pipeline.DefaultReferenceLayout
	rows := make([][]string, len(companyRows))
	for i, byColumn := range companyRows {
		row := make([]string, len(layout))
		for j, col := range layout {
			row[j] = byColumn[col]
			if col == pipeline.ColLastFundingType {
				row[j] = "Series A"
			}
		}
		rows[i] = row
	}
	companies := writeCSV(t, filepath.Join(dir, "companies.csv"), layout, rows)
	eu := writeCSV(t, filepath.Join(dir, "eu.csv"), pipeline.InvestorColumns, [][]string{
		{"Alpha Ventures", "5", "2"},
		{"Beta Capital", "3", "0"},
	})
	us := writeCSV(t, filepath.Join(dir, "us.csv"), pipeline.InvestorColumns, [][]string{
		{"Gamma Partners", "10", "1"},
	})

	exportDir := filepath.Join(dir, "exports")
	cfg := fmt.Sprintf(`logging:
  level: error
  format: console
  output_paths: [stderr]
inputs:
  companies: %s
  eu_investors: %s
  us_investors: %s
model:
  trees: 10
  seed: 42
  folds: 5
  min_samples_leaf: 1
ranking:
  n: 2
  investor_weight: 1
  funding_weight: 0
  market_weight: 0
export:
  dir: %s
  workbook: false
  charts: false
  model_report: true
`, companies, eu, us, exportDir)
	path := filepath.Join(dir, "vcmarket.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return fixture{configPath: path, exportDir: exportDir}
}

func (f fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", f.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "vcmarket", cmd.Use)

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"stats", "industries", "investors", "rank", "export", "faq"} {
		assert.True(t, names[want], want)
	}
	for _, flag := range []string{"config", "output", "log-level", "companies", "eu-investors", "us-investors", "skip-invalid-rows"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Funding type: Series A (5 companies)")
	assert.Contains(t, out, "Mean Total Funding: 8400000\n")
	assert.Contains(t, out, "Median Last Funding: 4000000\n")

	out, err = f.run(t, "stats", "-o", "json")
	require.NoError(t, err)
	var stats model.OverallStatistics
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, int64(6000000), stats.MedianTotalFunding)
}

func TestIndustries(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "industries", "--list")
	require.NoError(t, err)
	assert.Equal(t, "Software\nHardware\nFintech\n", out)

	out, err = f.run(t, "industries", "-i", "software")
	require.NoError(t, err)
	assert.Contains(t, out, "Software")
	assert.NotContains(t, out, "Hardware")

	out, err = f.run(t, "industries", "-o", "json")
	require.NoError(t, err)
	var stats map[string]model.CategoryStat
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Len(t, stats, 3)
	assert.Equal(t, 2, stats["Fintech"].CompanyCount)

	chart := filepath.Join(t.TempDir(), "industries.png")
	_, err = f.run(t, "industries", "--chart", chart)
	require.NoError(t, err)
	assert.FileExists(t, chart)

	_, err = f.run(t, "industries", "-i", "Robotics")
	var pe *pipeline.ParameterError
	assert.ErrorAs(t, err, &pe)
}

func TestInvestors(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "investors", "-k", "2", "-o", "json")
	require.NoError(t, err)
	var top []model.InvestorScore
	require.NoError(t, json.Unmarshal([]byte(out), &top))
	require.Len(t, top, 2)
	assert.Equal(t, "Gamma Partners", top[0].Name)
	assert.Equal(t, "Alpha Ventures", top[1].Name)

	out, err = f.run(t, "investors", "--all", "--region", "eu", "-o", "json")
	require.NoError(t, err)
	var eu []model.InvestorScore
	require.NoError(t, json.Unmarshal([]byte(out), &eu))
	require.Len(t, eu, 2)
	assert.Equal(t, 3, eu[1].Score)

	out, err = f.run(t, "investors")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "Gamma Partners"))

	chart := filepath.Join(t.TempDir(), "us.png")
	_, err = f.run(t, "investors", "--region", "US", "--chart", chart)
	require.NoError(t, err)
	assert.FileExists(t, chart)

	var pe *pipeline.ParameterError
	_, err = f.run(t, "investors", "--region", "asia")
	assert.ErrorAs(t, err, &pe)
	_, err = f.run(t, "investors", "--chart", chart)
	assert.ErrorAs(t, err, &pe)
}

func TestRank(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "rank")
	require.NoError(t, err)
	assert.Equal(t, "Bolt\nEcho\n", out)

	out, err = f.run(t, "rank", "--n", "1")
	require.NoError(t, err)
	assert.Equal(t, "Bolt\n", out)

	out, err = f.run(t, "rank", "--n", "5", "-o", "json")
	require.NoError(t, err)
	var ranked []model.RankedCompany
	require.NoError(t, json.Unmarshal([]byte(out), &ranked))
	require.Len(t, ranked, 5)
	assert.Equal(t, "Cyan", ranked[4].Company.Name)
	assert.Equal(t, 0.0, ranked[4].OverallScore)

	out, err = f.run(t, "rank", "--detail")
	require.NoError(t, err)
	assert.Contains(t, out, "OVERALL")

	_, err = f.run(t, "rank", "--funding-weight", "-1")
	var pe *pipeline.ParameterError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "funding_weight", pe.Field)
}

func TestExport(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "export", "-o", "json")
	require.NoError(t, err)
	var run model.ExportRun
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, filepath.Join(f.exportDir, run.ID), run.Dir)
	assert.FileExists(t, filepath.Join(run.Dir, pipeline.FileModelReport))
	assert.FileExists(t, filepath.Join(run.Dir, pipeline.FileTopCompanies))
	assert.NoFileExists(t, filepath.Join(run.Dir, pipeline.FileWorkbook))

	top, err := pipeline.ReadRankedCompanies(filepath.Join(run.Dir, pipeline.FileTopCompanies))
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Bolt", top[0].Company.Name)

	dir := filepath.Join(t.TempDir(), "bundle")
	out, err = f.run(t, "export", "--dir", dir, "--workbook", "--n", "3")
	require.NoError(t, err)
	assert.Contains(t, out, ": completed")
	assert.FileExists(t, filepath.Join(dir, pipeline.FileWorkbook))
}

func TestFAQ(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, "faq")
	require.NoError(t, err)
	assert.Contains(t, out, "How are the top 20 investors found?")
}

func TestRootCommand_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "stats", "-o", "yaml")
	var pe *pipeline.ParameterError
	assert.ErrorAs(t, err, &pe)

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "faq"})
	assert.Error(t, cmd.Execute())

	_, err = f.run(t, "stats", "--companies", filepath.Join(t.TempDir(), "none.csv"))
	assert.Error(t, err)
}

func TestPrintError(t *testing.T) {
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetErr(&buf)
	PrintError(cmd, &pipeline.DataQualityError{
		Source:   "companies.csv",
		Rejected: []pipeline.RowRejection{{Row: 3, Name: "Acme", Reason: "field Founded Date is required"}},
	})
	assert.Contains(t, buf.String(), "Error: ")
	assert.Contains(t, buf.String(), "  row 3 (Acme): field Founded Date is required\n")
}

func TestTitleKey(t *testing.T) {
	assert.Equal(t, "Mean Total Funding", titleKey("mean_total_funding"))
	assert.Equal(t, "", titleKey(""))
}
