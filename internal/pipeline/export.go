package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"vcmarket/internal/model"
	"vcmarket/internal/store"
	"vcmarket/pkg/utils"
)

// Export file names
const (
	FileTopInvestors      = "Top_20_Investors_with_Region.csv"
	FileAllInvestors      = "All_Investors_with_Scores_and_Region.csv"
	FileOverallStatistics = "Overall_Statistics.txt"
	FileIndustryStats     = "Industry_Group_Statistics.csv"
	FileTopCompanies      = "Top_Companies.csv"
	FileModelReport       = "Model_Report.json"
	FileWorkbook          = "vcmarket.xlsx"
	FileIndustryChart     = "Industry_Group_Statistics.png"
	FileEUInvestorChart   = "Top_20_EU_Investors.png"
	FileUSInvestorChart   = "Top_20_US_Investors.png"
)

// Top companies columns appended to the company columns
const (
	ColRank              = "Rank"
	ColExpectedNext      = "Expected Next Funding"
	ColFundingDifference = "Funding Difference"
	ColInvestorScoreSum  = "Investor Score Sum"
	ColInvestorNorm      = "Investor Score Normalized"
	ColFundingNorm       = "Funding Difference Normalized"
	ColMarketContext     = "Market Context Score"
	ColOverallScore      = "Overall Score"
)

// exportTable is one tabular export, written as CSV and as a workbook sheet
type exportTable struct {
	file   string
	sheet  string
	header []string
	rows   [][]any
}

// ExportManager writes export bundles of a dataset
type ExportManager struct {
	outputs *utils.OutputManager
	history *store.Store
	metrics *Metrics
	logger  *zap.Logger
}

// NewExportManager creates an export manager. history and metrics may be nil.
func NewExportManager(outputs *utils.OutputManager, history *store.Store, metrics *Metrics, logger *zap.Logger) *ExportManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportManager{outputs: outputs, history: history, metrics: metrics, logger: logger}
}

// History returns the export history store, or nil.
func (em *ExportManager) History() *store.Store { return em.history }

// Export writes the export bundle of ds. Files go to spec.Dir, or to a new
// directory named by the run ID under the output base when spec.Dir is
// empty. The returned run lists every file attempted; the error is non-nil
// when any of them failed.
func (em *ExportManager) Export(ctx context.Context, ds *Dataset, spec model.ExportSpec) (*model.ExportRun, error) {
	if ds == nil {
		return nil, ErrNoDataset
	}
	ranked, err := Rank(ds, spec.Ranking)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	dir := spec.Dir
	if dir == "" {
		if dir, err = em.outputs.CreateRunDir(runID); err != nil {
			return nil, err
		}
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	run := &model.ExportRun{
		ID:        runID,
		DatasetID: ds.ID,
		Dir:       dir,
		Status:    "running",
		CreatedAt: time.Now().UTC(),
		Files:     []model.ExportResult{},
	}
	logger := em.logger.With(zap.String("export_id", runID), zap.String("dir", dir))
	if em.history != nil {
		if err := em.history.CreateExportRun(ctx, *run); err != nil {
			logger.Warn("failed to record export run", zap.Error(err))
		}
	}
	logger.Info("starting export", zap.String("dataset_id", ds.ID), zap.Int("top_n", spec.Ranking.N))

	tables := []exportTable{
		topInvestorsTable(ds.Investors.Top(TopInvestorCount)),
		allInvestorsTable(ds.Investors.All()),
		industryStatsTable(ds.Categories),
		topCompaniesTable(ranked),
	}
	for _, t := range tables {
		path := filepath.Join(dir, t.file)
		n, err := writeCSV(path, t.header, t.rows)
		em.record(run, path, n, err)
	}

	path := filepath.Join(dir, FileOverallStatistics)
	em.record(run, path, len(model.StatisticsKeys), writeOverallStatistics(path, ds.Overall))

	if spec.ModelReport {
		path := filepath.Join(dir, FileModelReport)
		em.record(run, path, len(FeatureNames), writeJSON(path, ds.Model.Report()))
	}

	if spec.Workbook {
		path := filepath.Join(dir, FileWorkbook)
		tables = append(tables, overallStatsTable(ds.Overall))
		n, err := writeWorkbook(path, tables)
		em.record(run, path, n, err)
	}

	if spec.Charts {
		em.writeCharts(run, dir, ds)
	}

	if spec.DB != "" {
		path := filepath.Join(dir, filepath.Base(spec.DB))
		n, err := em.writeDatabase(ctx, path, runID, ds, ranked)
		em.record(run, path, n, err)
	}

	run.UpdatedAt = time.Now().UTC()
	run.Status = "completed"
	var failed []error
	for _, f := range run.Files {
		if !f.Success {
			failed = append(failed, fmt.Errorf("%s: %s", filepath.Base(f.Path), f.Error))
		}
	}
	var exportErr error
	if len(failed) > 0 {
		exportErr = fmt.Errorf("export %s: %w", runID, errors.Join(failed...))
		run.Status = "failed"
		run.Error = exportErr.Error()
	}

	if em.history != nil {
		if err := em.history.SaveExportResults(ctx, runID, run.Files); err != nil {
			logger.Warn("failed to record export files", zap.Error(err))
		}
		if err := em.history.UpdateExportRunStatus(ctx, runID, run.Status, run.Error); err != nil {
			logger.Warn("failed to update export run", zap.Error(err))
		}
	}
	logger.Info("export finished", zap.String("status", run.Status), zap.Int("files", len(run.Files)))
	return run, exportErr
}

// record appends the outcome of one file, typed by its extension.
func (em *ExportManager) record(run *model.ExportRun, path string, count int, err error) {
	typ := model.FileTypeOf(path)
	result := model.ExportResult{
		Type:        typ,
		Path:        path,
		RecordCount: count,
		Success:     err == nil,
		Timestamp:   time.Now().UTC(),
	}
	if err != nil {
		result.Error = err.Error()
		em.logger.Error("export file failed", zap.String("path", path), zap.Error(err))
	} else {
		em.logger.Debug("export file written", zap.String("path", path), zap.Int("records", count))
	}
	if em.metrics != nil {
		em.metrics.ExportsTotal.WithLabelValues(string(typ), statusLabel(err)).Inc()
	}
	run.Files = append(run.Files, result)
}

func (em *ExportManager) writeCharts(run *model.ExportRun, dir string, ds *Dataset) {
	industries, _ := ResolveIndustries(ds.Categories, nil)
	path := filepath.Join(dir, FileIndustryChart)
	em.record(run, path, len(industries), WriteIndustryChart(ds.Categories, industries, path))

	for _, c := range []struct {
		region model.Region
		file   string
	}{{model.RegionEU, FileEUInvestorChart}, {model.RegionUS, FileUSInvestorChart}} {
		top := ds.Investors.TopByRegion(c.region, TopInvestorCount)
		path := filepath.Join(dir, c.file)
		em.record(run, path, len(top), WriteInvestorChart(top, c.region, path))
	}
}

// writeDatabase stores the investors, industry statistics and ranking in a
// standalone SQLite file.
func (em *ExportManager) writeDatabase(ctx context.Context, path, runID string, ds *Dataset, ranked []model.RankedCompany) (int, error) {
	db, err := store.Open(path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	investors := ds.Investors.All()
	if err := db.SaveInvestors(ctx, runID, investors); err != nil {
		return 0, fmt.Errorf("save investors: %w", err)
	}
	if err := db.SaveIndustryStatistics(ctx, runID, SortedLabels(ds.Categories), ds.Categories); err != nil {
		return 0, fmt.Errorf("save industry statistics: %w", err)
	}
	if err := db.SaveRankedCompanies(ctx, runID, ranked); err != nil {
		return 0, fmt.Errorf("save ranked companies: %w", err)
	}
	return len(investors) + len(ds.Categories) + len(ranked), nil
}

// ------------------- Tables -------------------

func topInvestorsTable(top []model.InvestorScore) exportTable {
	t := exportTable{
		file:   FileTopInvestors,
		sheet:  "Top 20 Investors",
		header: []string{ColInvestorName, "Region", "Score"},
	}
	for _, inv := range top {
		t.rows = append(t.rows, []any{inv.Name, string(inv.Region), inv.Score})
	}
	return t
}

func allInvestorsTable(all []model.InvestorScore) exportTable {
	t := exportTable{
		file:   FileAllInvestors,
		sheet:  "All Investors",
		header: []string{ColInvestorName, ColNumInvestments, ColNumExits, "Region", "Score"},
	}
	for _, inv := range all {
		t.rows = append(t.rows, []any{inv.Name, inv.NumInvestments, inv.NumExits, string(inv.Region), inv.Score})
	}
	return t
}

func industryStatsTable(stats model.CategoryStatistics) exportTable {
	t := exportTable{
		file:   FileIndustryStats,
		sheet:  "Industry Statistics",
		header: []string{ColIndustryGroups, "total_funding_mean", "total_funding_median", "company_count", "last_funding_mean", "last_funding_median"},
	}
	for _, label := range SortedLabels(stats) {
		st := stats[label]
		t.rows = append(t.rows, []any{label, st.TotalFundingMean, st.TotalFundingMedian, st.CompanyCount, st.LastFundingMean, st.LastFundingMedian})
	}
	return t
}

func overallStatsTable(s model.OverallStatistics) exportTable {
	t := exportTable{sheet: "Overall Statistics", header: []string{"statistic", "value"}}
	for i, v := range s.Values() {
		t.rows = append(t.rows, []any{model.StatisticsKeys[i], v})
	}
	return t
}

// TopCompaniesHeader is the column layout of the top companies export
func TopCompaniesHeader() []string {
	header := []string{ColRank}
	header = append(header, KeepColumns...)
	return append(header, ColExpectedNext, ColFundingDifference, ColInvestorScoreSum,
		ColInvestorNorm, ColFundingNorm, ColMarketContext, ColOverallScore)
}

func topCompaniesTable(ranked []model.RankedCompany) exportTable {
	t := exportTable{file: FileTopCompanies, sheet: "Top Companies", header: TopCompaniesHeader()}
	for _, r := range ranked {
		c := r.Company
		values := map[string]any{
			ColOrganizationName:  c.Name,
			ColOrganizationURL:   c.URL,
			ColFullDescription:   c.Description,
			ColFoundedDate:       utils.FormatDate(c.FoundedDate),
			ColLastFundingDate:   utils.FormatDate(c.LastFundingDate),
			ColFundingRounds:     c.NumberOfFundingRounds,
			ColFounders:          utils.JoinList(c.Founders),
			ColLastFundingType:   c.LastFundingType,
			ColTopInvestors:      utils.JoinList(c.TopInvestors),
			ColIndustryGroups:    utils.JoinList(c.IndustryGroups),
			ColTotalFundingUSD:   c.TotalFundingUSD,
			ColLastFundingUSD:    c.LastFundingUSD,
			ColNumberOfEmployees: c.NumberOfEmployees,
		}
		row := []any{r.Rank}
		for _, col := range KeepColumns {
			row = append(row, values[col])
		}
		row = append(row, c.ExpectedNextFunding, c.FundingDifference, r.InvestorScoreSum,
			r.InvestorNorm, r.FundingNorm, r.MarketContextScore, r.OverallScore)
		t.rows = append(t.rows, row)
	}
	return t
}

// ------------------- Writers -------------------

func writeCSV(path string, header []string, rows [][]any) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}
	recordCount := 0
	record := make([]string, len(header))
	for _, row := range rows {
		for i, v := range row {
			record[i] = cellString(v)
		}
		if err := writer.Write(record); err != nil {
			return recordCount, fmt.Errorf("failed to write row: %w", err)
		}
		recordCount++
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return recordCount, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return recordCount, file.Close()
}

func writeOverallStatistics(path string, s model.OverallStatistics) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()
	for i, v := range s.Values() {
		if _, err := fmt.Fprintf(file, "%s: %d\n", model.StatisticsKeys[i], v); err != nil {
			return err
		}
	}
	return file.Close()
}

func writeJSON(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return file.Close()
}

func writeWorkbook(path string, tables []exportTable) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	total := 0
	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.sheet); err != nil {
				return 0, err
			}
		} else if _, err := f.NewSheet(t.sheet); err != nil {
			return 0, err
		}
		header := make([]any, len(t.header))
		for j, h := range t.header {
			header[j] = h
		}
		if err := f.SetSheetRow(t.sheet, "A1", &header); err != nil {
			return 0, err
		}
		for r, row := range t.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return 0, err
			}
			row := row
			if err := f.SetSheetRow(t.sheet, cell, &row); err != nil {
				return 0, err
			}
		}
		total += len(t.rows)
	}
	if err := f.SaveAs(path); err != nil {
		return 0, fmt.Errorf("failed to save workbook: %w", err)
	}
	return total, nil
}

func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return utils.FormatFloat(x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// ------------------- Readers -------------------

// ReadRankedCompanies reads a top companies export back into rankings.
func ReadRankedCompanies(path string) ([]model.RankedCompany, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	table, err := ParseTable(path, file)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(table, TopCompaniesHeader()); err != nil {
		return nil, err
	}

	out := make([]model.RankedCompany, 0, len(table.Rows))
	for i, rec := range table.Rows {
		r, err := rankedFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+1, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func rankedFromRecord(rec GenericRecord) (model.RankedCompany, error) {
	cleaned, err := applyTransformations(rec, DefaultCleaningSteps)
	if err != nil {
		return model.RankedCompany{}, err
	}
	company, reasons := companyFromRecord(cleaned)
	if len(reasons) > 0 {
		return model.RankedCompany{}, errors.New(joinReasons(reasons))
	}

	var r model.RankedCompany
	r.Company.CompanyRecord = company
	floats := []struct {
		col string
		dst *float64
	}{
		{ColExpectedNext, &r.Company.ExpectedNextFunding},
		{ColFundingDifference, &r.Company.FundingDifference},
		{ColInvestorNorm, &r.InvestorNorm},
		{ColFundingNorm, &r.FundingNorm},
		{ColMarketContext, &r.MarketContextScore},
		{ColOverallScore, &r.OverallScore},
	}
	for _, f := range floats {
		v, err := strconv.ParseFloat(rec[f.col], 64)
		if err != nil {
			return model.RankedCompany{}, fmt.Errorf("%s: %w", f.col, err)
		}
		*f.dst = v
	}
	if r.Rank, err = strconv.Atoi(rec[ColRank]); err != nil {
		return model.RankedCompany{}, fmt.Errorf("%s: %w", ColRank, err)
	}
	if r.InvestorScoreSum, err = strconv.Atoi(rec[ColInvestorScoreSum]); err != nil {
		return model.RankedCompany{}, fmt.Errorf("%s: %w", ColInvestorScoreSum, err)
	}
	return r, nil
}
