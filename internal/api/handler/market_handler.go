// Package handler implements the HTTP endpoints of the market API.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"vcmarket/internal/model"
	"vcmarket/internal/pipeline"
)

// Defaults fill in requests that leave parameters out
type Defaults struct {
	Sources model.Sources
	Ranking model.RankRequest
	Export  model.ExportSpec
}

// MarketHandler serves the current dataset of a session
type MarketHandler struct {
	session  *pipeline.Session
	exports  *pipeline.ExportManager
	defaults Defaults
	logger   *zap.Logger
}

// NewMarketHandler creates the handler. exports may be nil, which disables
// the export endpoints.
func NewMarketHandler(session *pipeline.Session, exports *pipeline.ExportManager, defaults Defaults, logger *zap.Logger) *MarketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketHandler{session: session, exports: exports, defaults: defaults, logger: logger}
}

// IndustryStatistic is one row of the industry statistics response
type IndustryStatistic struct {
	Industry string `json:"industry"`
	model.CategoryStat
}

// IndustriesResponse lists the industry labels of the dataset
type IndustriesResponse struct {
	Count      int      `json:"count"`
	Industries []string `json:"industries"`
}

// InvestorsResponse lists scored investors
type InvestorsResponse struct {
	Region    string                `json:"region,omitempty"`
	Count     int                   `json:"count"`
	Investors []model.InvestorScore `json:"investors"`
}

// RankingResponse is the result of a ranking run
type RankingResponse struct {
	DatasetID string                `json:"dataset_id"`
	Request   model.RankRequest     `json:"request"`
	Count     int                   `json:"count"`
	Rankings  []model.RankedCompany `json:"rankings"`
}

// decodeOptional decodes a JSON body into v. It reports false for an empty
// body.
func decodeOptional(r *http.Request, v any) (bool, error) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, invalidRequest(err)
	}
	return true, nil
}

// LoadDataset loads a new dataset
// @Summary Load a dataset
// @Description Load company and investor files and make them the current dataset. Omitted sources use the configured files. A failed load keeps the previous dataset.
// @Tags datasets
// @Accept json
// @Produce json
// @Param sources body model.Sources false "Input files (local paths or http(s) URLs)"
// @Success 201 {object} pipeline.DatasetSummary
// @Failure 400 {object} APIError "Invalid request payload"
// @Failure 422 {object} APIError "Schema or data quality error"
// @Failure 500 {object} APIError "Internal server error"
// @Router /datasets [post]
func (h *MarketHandler) LoadDataset(w http.ResponseWriter, r *http.Request) {
	var sources model.Sources
	if _, err := decodeOptional(r, &sources); err != nil {
		h.writeError(w, r, err)
		return
	}
	if sources.Companies == "" {
		sources.Companies = h.defaults.Sources.Companies
	}
	if sources.EUInvestors == "" {
		sources.EUInvestors = h.defaults.Sources.EUInvestors
	}
	if sources.USInvestors == "" {
		sources.USInvestors = h.defaults.Sources.USInvestors
	}

	ds, err := h.session.Load(r.Context(), sources)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ds.Summary())
}

// GetCurrentDataset describes the current dataset
// @Summary Get current dataset
// @Description Summary of the loaded dataset including rejected rows and load metrics
// @Tags datasets
// @Produce json
// @Success 200 {object} pipeline.DatasetSummary
// @Failure 409 {object} APIError "No dataset loaded"
// @Router /datasets/current [get]
func (h *MarketHandler) GetCurrentDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.session.Current()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds.Summary())
}

// GetStatistics returns the overall statistics
// @Summary Get overall statistics
// @Description Mean and median of total and last funding over all companies, truncated to whole USD
// @Tags statistics
// @Produce json
// @Success 200 {object} model.OverallStatistics
// @Failure 409 {object} APIError "No dataset loaded"
// @Router /statistics [get]
func (h *MarketHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	ds, err := h.session.Current()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds.Overall)
}

// GetIndustryStatistics returns per-industry statistics
// @Summary Get industry statistics
// @Description Funding statistics per industry group, optionally restricted to the named groups (case-insensitive)
// @Tags statistics
// @Produce json
// @Param industry query []string false "Industry groups, repeated or comma separated" collectionFormat(multi)
// @Success 200 {array} IndustryStatistic
// @Failure 400 {object} APIError "Unknown industry group"
// @Failure 409 {object} APIError "No dataset loaded"
// @Router /statistics/industries [get]
func (h *MarketHandler) GetIndustryStatistics(w http.ResponseWriter, r *http.Request) {
	ds, err := h.session.Current()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	labels := pipeline.SortedLabels(ds.Categories)
	if requested := splitQuery(r, "industry"); len(requested) > 0 {
		if labels, err = pipeline.ResolveIndustries(ds.Categories, requested); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	out := make([]IndustryStatistic, len(labels))
	for i, label := range labels {
		out[i] = IndustryStatistic{Industry: label, CategoryStat: ds.Categories[label]}
	}
	writeJSON(w, http.StatusOK, out)
}

// ListIndustries returns the industry labels
// @Summary List industries
// @Description Distinct industry groups of the dataset in first-seen order
// @Tags statistics
// @Produce json
// @Success 200 {object} IndustriesResponse
// @Failure 409 {object} APIError "No dataset loaded"
// @Router /industries [get]
func (h *MarketHandler) ListIndustries(w http.ResponseWriter, r *http.Request) {
	ds, err := h.session.Current()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IndustriesResponse{Count: len(ds.Industries), Industries: ds.Industries})
}

// ListInvestors returns every scored investor
// @Summary List investors
// @Description All investors with their scores, EU first then US, optionally filtered by region
// @Tags investors
// @Produce json
// @Param region query string false "EU or US"
// @Success 200 {object} InvestorsResponse
// @Failure 400 {object} APIError "Invalid region"
// @Failure 409 {object} APIError "No dataset loaded"
// @Router /investors [get]
func (h *MarketHandler) ListInvestors(w http.ResponseWriter, r *http.Request) {
	ds, err := h.session.Current()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	region, err := regionParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	all := ds.Investors.All()
	if region != "" {
		filtered := make([]model.InvestorScore, 0, len(all))
		for _, inv := range all {
			if inv.Region == region {
				filtered = append(filtered, inv)
			}
		}
		all = filtered
	}
	writeJSON(w, http.StatusOK, InvestorsResponse{Region: string(region), Count: len(all), Investors: all})
}

// GetTopInvestors returns the highest scoring investors
// @Summary Get top investors
// @Description The k highest scoring investors, ties in file order
// @Tags investors
// @Produce json
// @Param k query int false "Number of investors" default(20)
// @Param region query string false "EU or US"
// @Success 200 {object} InvestorsResponse
// @Failure 400 {object} APIError "Invalid k or region"
// @Failure 409 {object} APIError "No dataset loaded"
// @Router /investors/top [get]
func (h *MarketHandler) GetTopInvestors(w http.ResponseWriter, r *http.Request) {
	ds, err := h.session.Current()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	region, err := regionParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	k := pipeline.TopInvestorCount
	if v := r.URL.Query().Get("k"); v != "" {
		if k, err = strconv.Atoi(v); err != nil || k < 0 {
			h.writeError(w, r, &pipeline.ParameterError{Field: "k", Reason: "must be a non-negative integer"})
			return
		}
	}

	var top []model.InvestorScore
	if region == "" {
		top = ds.Investors.Top(k)
	} else {
		top = ds.Investors.TopByRegion(region, k)
	}
	writeJSON(w, http.StatusOK, InvestorsResponse{Region: string(region), Count: len(top), Investors: top})
}

// GetModel returns the funding model diagnostics
// @Summary Get model report
// @Description Cross-validation scores and feature importances of the funding predictor
// @Tags model
// @Produce json
// @Success 200 {object} model.ModelReport
// @Failure 409 {object} APIError "No dataset loaded"
// @Router /model [get]
func (h *MarketHandler) GetModel(w http.ResponseWriter, r *http.Request) {
	ds, err := h.session.Current()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds.Model.Report())
}

// RankCompanies ranks the companies of the current dataset
// @Summary Rank companies
// @Description Score companies by weighted investor strength, funding difference and market context and return the top N. An empty body uses the configured ranking.
// @Tags rankings
// @Accept json
// @Produce json
// @Param request body model.RankRequest false "N and weights"
// @Success 200 {object} RankingResponse
// @Failure 400 {object} APIError "Invalid weights"
// @Failure 409 {object} APIError "No dataset loaded"
// @Router /rankings [post]
func (h *MarketHandler) RankCompanies(w http.ResponseWriter, r *http.Request) {
	req := h.defaults.Ranking
	if _, err := decodeOptional(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ds, err := h.session.Current()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ranked, err := h.session.RankDataset(ds, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RankingResponse{DatasetID: ds.ID, Request: req, Count: len(ranked), Rankings: ranked})
}

// CreateExport writes an export bundle
// @Summary Create export
// @Description Write the export bundle of the current dataset into a new directory under the export base. An empty body uses the configured export.
// @Tags exports
// @Accept json
// @Produce json
// @Param spec body model.ExportSpec false "Export options"
// @Success 201 {object} model.ExportRun
// @Failure 400 {object} APIError "Invalid request payload"
// @Failure 409 {object} APIError "No dataset loaded"
// @Failure 500 {object} APIError "Some files failed"
// @Router /exports [post]
func (h *MarketHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil {
		h.writeError(w, r, &APIError{StatusCode: http.StatusNotImplemented, ErrorCode: "EXPORTS_DISABLED", Message: "exports are not configured"})
		return
	}
	spec := h.defaults.Export
	if _, err := decodeOptional(r, &spec); err != nil {
		h.writeError(w, r, err)
		return
	}
	// runs always go to a fresh directory under the configured base
	spec.Dir = ""

	ds, err := h.session.Current()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	run, err := h.exports.Export(r.Context(), ds, spec)
	if err != nil {
		if run != nil {
			h.logger.Error("export incomplete", zap.String("export_id", run.ID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, &APIError{ErrorCode: "EXPORT_FAILED", Message: err.Error(), Details: run})
			return
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// ListExports lists export runs
// @Summary List exports
// @Description Export runs recorded in the history database, newest first
// @Tags exports
// @Produce json
// @Success 200 {array} model.ExportRun
// @Failure 500 {object} APIError "Internal server error"
// @Router /exports [get]
func (h *MarketHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil || h.exports.History() == nil {
		writeJSON(w, http.StatusOK, []model.ExportRun{})
		return
	}
	runs, err := h.exports.History().ListExportRuns(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetExport returns one export run
// @Summary Get export
// @Description One export run with the files it wrote
// @Tags exports
// @Produce json
// @Param id path string true "Export ID"
// @Success 200 {object} model.ExportRun
// @Failure 400 {object} APIError "Invalid export ID"
// @Failure 404 {object} APIError "Export not found"
// @Router /exports/{id} [get]
func (h *MarketHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	// Extract export ID from URL path
	prefix := "/api/v1/exports/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		h.writeError(w, r, &pipeline.ParameterError{Field: "id", Reason: "invalid path"})
		return
	}
	id := strings.Trim(r.URL.Path[len(prefix):], "/")
	if id == "" || strings.Contains(id, "/") {
		h.writeError(w, r, &pipeline.ParameterError{Field: "id", Reason: "export ID is required"})
		return
	}
	if h.exports == nil || h.exports.History() == nil {
		h.writeError(w, r, &APIError{StatusCode: http.StatusNotFound, ErrorCode: "NOT_FOUND", Message: "export history is not configured"})
		return
	}

	run, err := h.exports.History().GetExportRun(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func regionParam(r *http.Request) (model.Region, error) {
	v := r.URL.Query().Get("region")
	if v == "" {
		return "", nil
	}
	region, err := model.ParseRegion(v)
	if err != nil {
		return "", &pipeline.ParameterError{Field: "region", Reason: err.Error()}
	}
	return region, nil
}

// splitQuery collects repeated and comma separated values of key
func splitQuery(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
