package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vcmarket/internal/api/handler"
	"vcmarket/internal/model"
	"vcmarket/internal/pipeline"
	"vcmarket/internal/store"
	"vcmarket/pkg/router"
	"vcmarket/pkg/utils"
)

var companyRows = []map[string]string{
	{pipeline.ColOrganizationName: "Acme", pipeline.ColFoundedDate: "2020-01-01", pipeline.ColLastFundingDate: "2022-01-01", pipeline.ColFundingRounds: "2", pipeline.ColTopInvestors: "Alpha Ventures", pipeline.ColIndustryGroups: "Software", pipeline.ColTotalFundingUSD: "10000000", pipeline.ColLastFundingUSD: "5000000"},
	{pipeline.ColOrganizationName: "Bolt", pipeline.ColFoundedDate: "2019-06-01", pipeline.ColLastFundingDate: "2021-06-01", pipeline.ColFundingRounds: "1", pipeline.ColTopInvestors: "Gamma Partners", pipeline.ColIndustryGroups: "Hardware", pipeline.ColTotalFundingUSD: "4000000", pipeline.ColLastFundingUSD: "4000000"},
	{pipeline.ColOrganizationName: "Cyan", pipeline.ColFoundedDate: "2021-03-01", pipeline.ColLastFundingDate: "2021-03-01", pipeline.ColFundingRounds: "0", pipeline.ColTopInvestors: "", pipeline.ColIndustryGroups: "Software, Fintech", pipeline.ColTotalFundingUSD: "2000000", pipeline.ColLastFundingUSD: "2000000"},
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

func writeCompanies(t *testing.T, path string, layout []string) string {
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
	return writeCSV(t, path, layout, rows)
}

func writeSources(t *testing.T) model.Sources {
	dir := t.TempDir()
	return model.Sources{
		Companies: writeCompanies(t, filepath.Join(dir, "companies.csv"), pipeline.DefaultReferenceLayout),
		EUInvestors: writeCSV(t, filepath.Join(dir, "eu.csv"), pipeline.InvestorColumns, [][]string{
			{"Alpha Ventures", "5", "2"},
			{"Beta Capital", "3", "0"},
		}),
		USInvestors: writeCSV(t, filepath.Join(dir, "us.csv"), pipeline.InvestorColumns, [][]string{
			{"Gamma Partners", "10", "1"},
		}),
	}
}

type testServer struct {
	router  http.Handler
	sources model.Sources
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := pipeline.NewMetrics(reg)

	opts := pipeline.DefaultOptions()
	opts.Model.Forest.Trees = 10
	session := pipeline.NewSession(pipeline.NewLoader(nil, opts, metrics, nil), metrics, nil)

	history, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })
	exports := pipeline.NewExportManager(utils.NewOutputManager(t.TempDir()), history, metrics, nil)

	sources := writeSources(t)
	h := handler.NewMarketHandler(session, exports, handler.Defaults{
		Sources: sources,
		Ranking: model.RankRequest{N: 3, Weights: model.RankWeights{Investor: 1, Funding: 1, Market: 1}},
	}, nil)
	return &testServer{router: NewRouter(h, metrics, reg, nil), sources: sources}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAPI_NoDataset(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/v1/datasets/current", "/api/v1/statistics", "/api/v1/investors", "/api/v1/model"} {
		rec := s.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusConflict, rec.Code, path)
		assert.Equal(t, "NO_DATASET", decode[handler.APIError](t, rec).ErrorCode)
	}
	rec := s.do(t, http.MethodPost, "/api/v1/rankings", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_LoadAndQuery(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/datasets", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	summary := decode[pipeline.DatasetSummary](t, rec)
	assert.Equal(t, 5, summary.Companies)
	assert.Equal(t, 3, summary.Investors)
	assert.Equal(t, "Series A", summary.FundingType)
	assert.Empty(t, summary.RejectedRows)

	rec = s.do(t, http.MethodGet, "/api/v1/datasets/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, summary.ID, decode[pipeline.DatasetSummary](t, rec).ID)

	rec = s.do(t, http.MethodGet, "/api/v1/statistics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.OverallStatistics{
		MeanTotalFunding:   8400000,
		MedianTotalFunding: 6000000,
		MeanLastFunding:    4400000,
		MedianLastFunding:  4000000,
	}, decode[model.OverallStatistics](t, rec))

	rec = s.do(t, http.MethodGet, "/api/v1/industries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Software", "Hardware", "Fintech"}, decode[handler.IndustriesResponse](t, rec).Industries)

	rec = s.do(t, http.MethodGet, "/api/v1/statistics/industries?industry=software", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[[]handler.IndustryStatistic](t, rec)
	require.Len(t, stats, 1)
	assert.Equal(t, "Software", stats[0].Industry)
	assert.Equal(t, 2, stats[0].CompanyCount)
	assert.Equal(t, int64(6000000), stats[0].TotalFundingMean)

	rec = s.do(t, http.MethodGet, "/api/v1/statistics/industries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]handler.IndustryStatistic](t, rec), 3)

	rec = s.do(t, http.MethodGet, "/api/v1/investors?region=eu", "")
	require.Equal(t, http.StatusOK, rec.Code)
	investors := decode[handler.InvestorsResponse](t, rec)
	assert.Equal(t, "EU", investors.Region)
	assert.Equal(t, 2, investors.Count)

	rec = s.do(t, http.MethodGet, "/api/v1/investors/top?k=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	top := decode[handler.InvestorsResponse](t, rec).Investors
	require.Len(t, top, 2)
	assert.Equal(t, "Gamma Partners", top[0].Name)
	assert.Equal(t, 12, top[0].Score)
	assert.Equal(t, "Alpha Ventures", top[1].Name)
	assert.Equal(t, 9, top[1].Score)

	rec = s.do(t, http.MethodGet, "/api/v1/model", "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[model.ModelReport](t, rec)
	assert.Equal(t, 10, report.Trees)
	assert.Len(t, report.FeatureImportance, len(pipeline.FeatureNames))
}

func TestAPI_Rankings(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/datasets", "").Code)

	rec := s.do(t, http.MethodPost, "/api/v1/rankings", `{"n":2,"weights":{"investor_weight":1}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[handler.RankingResponse](t, rec)
	require.Equal(t, 2, resp.Count)
	// Bolt and Echo tie on 12 and keep dataset order
	assert.Equal(t, "Bolt", resp.Rankings[0].Company.Name)
	assert.Equal(t, "Echo", resp.Rankings[1].Company.Name)
	assert.Equal(t, 1, resp.Rankings[0].Rank)
	assert.Equal(t, 2, resp.Rankings[1].Rank)
	assert.InDelta(t, 1.0, resp.Rankings[0].OverallScore, 1e-9)

	rec = s.do(t, http.MethodPost, "/api/v1/rankings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[handler.RankingResponse](t, rec).Count)

	rec = s.do(t, http.MethodPost, "/api/v1/rankings", `{"n":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[handler.RankingResponse](t, rec).Rankings)
}

func TestAPI_BadRequests(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/datasets", "").Code)

	rec := s.do(t, http.MethodPost, "/api/v1/rankings", `{"n":2,"weights":{"funding_weight":-1}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decode[handler.APIError](t, rec)
	assert.Equal(t, "INVALID_PARAMETER", apiErr.ErrorCode)
	assert.Equal(t, map[string]any{"field": "funding_weight", "reason": "must be >= 0, got -1"}, apiErr.Details)

	rec = s.do(t, http.MethodPost, "/api/v1/rankings", `{"n":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", decode[handler.APIError](t, rec).ErrorCode)

	rec = s.do(t, http.MethodPost, "/api/v1/rankings", `{"top":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/investors?region=asia", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/investors/top?k=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/statistics/industries?industry=Robotics", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[handler.APIError](t, rec).Message, "Robotics")

	rec = s.do(t, http.MethodDelete, "/api/v1/statistics", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_FailedLoadKeepsDataset(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/datasets", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[pipeline.DatasetSummary](t, rec)

	var layout []string
	for _, col := range pipeline.DefaultReferenceLayout {
		if col != pipeline.ColFounders {
			layout = append(layout, col)
		}
	}
	broken := writeCompanies(t, filepath.Join(t.TempDir(), "broken.csv"), layout)
	body, err := json.Marshal(model.Sources{Companies: broken})
	require.NoError(t, err)

	rec = s.do(t, http.MethodPost, "/api/v1/datasets", string(body))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "SCHEMA_ERROR", decode[handler.APIError](t, rec).ErrorCode)

	rec = s.do(t, http.MethodGet, "/api/v1/datasets/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first.ID, decode[pipeline.DatasetSummary](t, rec).ID)
}

func TestAPI_Exports(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/exports", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/datasets", "").Code)

	rec = s.do(t, http.MethodPost, "/api/v1/exports", `{"dir":"/tmp/elsewhere","ranking":{"n":2,"weights":{"investor_weight":1}}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	run := decode[model.ExportRun](t, rec)
	assert.Equal(t, "completed", run.Status)
	assert.NotEqual(t, "/tmp/elsewhere", run.Dir)
	assert.Equal(t, run.ID, filepath.Base(run.Dir))
	for _, f := range run.Files {
		assert.True(t, f.Success, f.Path)
		assert.FileExists(t, f.Path)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/exports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[[]model.ExportRun](t, rec)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	rec = s.do(t, http.MethodGet, "/api/v1/exports/"+run.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[model.ExportRun](t, rec)
	assert.Equal(t, "completed", got.Status)
	assert.Len(t, got.Files, len(run.Files))

	rec = s.do(t, http.MethodGet, "/api/v1/exports/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[handler.APIError](t, rec).ErrorCode)
}

func TestAPI_Infrastructure(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[map[string]any](t, rec)
	assert.Equal(t, "/api/v1", doc["basePath"])
	assert.Contains(t, doc["paths"], "/rankings")

	s.do(t, http.MethodGet, "/api/v1/statistics", "")
	rec = s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `vcmarket_http_requests_total{code="409",method="GET",route="/api/v1/statistics"} 1`), body)
	assert.Contains(t, body, "vcmarket_http_request_duration_seconds")
}

func TestRegisterRoutes(t *testing.T) {
	r := router.New(nil)
	RegisterRoutes(r, handler.NewMarketHandler(nil, nil, handler.Defaults{}, nil))

	routes := r.Routes()
	assert.Len(t, routes, 12)
	for _, key := range []string{
		"POST:/api/v1/datasets",
		"GET:/api/v1/statistics/industries",
		"POST:/api/v1/rankings",
		"GET:/api/v1/exports/*",
	} {
		assert.Contains(t, routes, key)
	}
}
