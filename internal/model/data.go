package model

import (
	"path/filepath"
	"strings"
	"time"
)

// OverallStatistics holds dataset-wide funding statistics, truncated to whole USD
type OverallStatistics struct {
	MeanTotalFunding   int64 `json:"mean_total_funding"`
	MedianTotalFunding int64 `json:"median_total_funding"`
	MeanLastFunding    int64 `json:"mean_last_funding"`
	MedianLastFunding  int64 `json:"median_last_funding"`
}

// StatisticsKeys lists the overall statistic names in report order.
var StatisticsKeys = []string{"mean_total_funding", "median_total_funding", "mean_last_funding", "median_last_funding"}

// Values returns the statistics in StatisticsKeys order.
func (s OverallStatistics) Values() []int64 {
	return []int64{s.MeanTotalFunding, s.MedianTotalFunding, s.MeanLastFunding, s.MedianLastFunding}
}

// CategoryStat is the rounded funding summary of one industry group
type CategoryStat struct {
	TotalFundingMean   int64 `json:"total_funding_mean"`
	TotalFundingMedian int64 `json:"total_funding_median"`
	CompanyCount       int   `json:"company_count"`
	LastFundingMean    int64 `json:"last_funding_mean"`
	LastFundingMedian  int64 `json:"last_funding_median"`
}

// CategoryStatistics maps industry group label to its summary
type CategoryStatistics map[string]CategoryStat

// FeatureWeight is one entry of the model's feature importance table
type FeatureWeight struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
}

// ModelReport is the diagnostic output of the funding predictor
type ModelReport struct {
	Trees             int             `json:"trees"`
	Seed              int64           `json:"seed"`
	CrossValScores    []float64       `json:"cross_val_scores"`
	MeanCVScore       float64         `json:"mean_cv_score"`
	FeatureImportance []FeatureWeight `json:"feature_importance"`
}

// ExportFileType classifies one file of an export bundle
type ExportFileType string

const (
	FileTypeCSV      ExportFileType = "csv"
	FileTypeText     ExportFileType = "text"
	FileTypeJSON     ExportFileType = "json"
	FileTypeWorkbook ExportFileType = "xlsx"
	FileTypeChart    ExportFileType = "png"
	FileTypeDatabase ExportFileType = "database"
	FileTypeUnknown  ExportFileType = "unknown"
)

// FileTypeOf types an export file by its extension, ignoring case.
func FileTypeOf(path string) ExportFileType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FileTypeCSV
	case ".txt":
		return FileTypeText
	case ".json":
		return FileTypeJSON
	case ".xlsx", ".xls":
		return FileTypeWorkbook
	case ".png":
		return FileTypeChart
	case ".db", ".sqlite":
		return FileTypeDatabase
	default:
		return FileTypeUnknown
	}
}

// ExportResult represents the result of an export operation
type ExportResult struct {
	Type        ExportFileType `json:"type"`
	Path        string         `json:"path"` // file path or table name
	RecordCount int            `json:"record_count"`
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// ExportRun is one export bundle written for a dataset
type ExportRun struct {
	ID        string         `json:"id"`
	DatasetID string         `json:"dataset_id"`
	Dir       string         `json:"dir"`
	Status    string         `json:"status"` // "running", "completed", "failed"
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Files     []ExportResult `json:"files"`
}
