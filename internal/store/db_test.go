package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcmarket/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "vcmarket.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExportRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	run := model.ExportRun{ID: "run-1", DatasetID: "ds-1", Dir: "/tmp/run-1", Status: "running"}
	require.NoError(t, s.CreateExportRun(ctx, run))

	files := []model.ExportResult{
		{Type: "csv", Path: "/tmp/run-1/Top_Companies.csv", RecordCount: 3, Success: true, Timestamp: time.Now()},
		{Type: "png", Path: "/tmp/run-1/chart.png", Success: false, Error: "no data", Timestamp: time.Now()},
	}
	require.NoError(t, s.SaveExportResults(ctx, run.ID, files))
	require.NoError(t, s.UpdateExportRunStatus(ctx, run.ID, "completed", ""))

	got, err := s.GetExportRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, "ds-1", got.DatasetID)
	require.Len(t, got.Files, 2)
	assert.Equal(t, model.FileTypeCSV, got.Files[0].Type)
	assert.True(t, got.Files[0].Success)
	assert.Equal(t, 3, got.Files[0].RecordCount)
	assert.False(t, got.Files[1].Success)
	assert.Equal(t, "no data", got.Files[1].Error)

	runs, err := s.ListExportRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}

func TestGetExportRun_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetExportRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateExportRunStatus(context.Background(), "missing", "failed", "x"), ErrNotFound)
}

func TestListExportRuns_Empty(t *testing.T) {
	runs, err := openTestStore(t).ListExportRuns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NotNil(t, runs)
}

func TestSaveSnapshots(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.SaveInvestors(ctx, "r", []model.InvestorScore{
		{Name: "A", Region: model.RegionEU, NumInvestments: 5, NumExits: 2, Score: 9},
		{Name: "B", Region: model.RegionUS},
	}))
	stats := model.CategoryStatistics{
		"Software": {TotalFundingMean: 10, TotalFundingMedian: 10, CompanyCount: 1, LastFundingMean: 5, LastFundingMedian: 5},
	}
	require.NoError(t, s.SaveIndustryStatistics(ctx, "r", []string{"Software"}, stats))
	require.NoError(t, s.SaveRankedCompanies(ctx, "r", []model.RankedCompany{
		{Rank: 1, Company: model.EnrichedCompany{CompanyRecord: model.CompanyRecord{Name: "Acme"}}, OverallScore: 1},
	}))

	for table, want := range map[string]int{"investors": 2, "industry_statistics": 1, "ranked_companies": 1} {
		n, err := s.CountRows(ctx, table, "r")
		require.NoError(t, err)
		assert.Equal(t, want, n, table)
	}

	_, err := s.CountRows(ctx, "export_runs; DROP TABLE investors", "r")
	assert.Error(t, err)
}
