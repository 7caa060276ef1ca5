package model

import "time"

// StageMetrics represents metrics for a specific load stage
type StageMetrics struct {
	StageName        string        `json:"stage_name"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          time.Time     `json:"end_time"`
	Duration         time.Duration `json:"duration"`
	RecordsProcessed int           `json:"records_processed"`
	ErrorCount       int           `json:"error_count"`
}

// LoadMetrics summarizes one dataset load
type LoadMetrics struct {
	LoadID         string         `json:"load_id"`
	Status         string         `json:"status"`
	TotalRecords   int            `json:"total_records"`
	ValidRecords   int            `json:"valid_records"`
	InvalidRecords int            `json:"invalid_records"`
	ProcessingTime time.Duration  `json:"processing_time"`
	Stages         []StageMetrics `json:"stages"`
}
