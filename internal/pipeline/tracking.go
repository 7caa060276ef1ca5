package pipeline

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"vcmarket/internal/model"
)

// LoadTracker records per-stage timings and counts of one load
type LoadTracker struct {
	mu      sync.Mutex
	metrics model.LoadMetrics
	start   time.Time
	open    map[string]time.Time
	prom    *Metrics
	logger  *zap.Logger
}

// NewLoadTracker creates a tracker. prom may be nil.
func NewLoadTracker(loadID string, prom *Metrics, logger *zap.Logger) *LoadTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoadTracker{
		metrics: model.LoadMetrics{LoadID: loadID, Status: "running", Stages: []model.StageMetrics{}},
		start:   time.Now(),
		open:    make(map[string]time.Time),
		prom:    prom,
		logger:  logger.With(zap.String("load_id", loadID)),
	}
}

// StartStage marks the start of a load stage
func (lt *LoadTracker) StartStage(stage string) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.open[stage] = time.Now()
	lt.logger.Debug("stage started", zap.String("stage", stage))
}

// EndStage marks the end of a load stage
func (lt *LoadTracker) EndStage(stage string, recordsProcessed, errorCount int) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	now := time.Now()
	started, ok := lt.open[stage]
	if !ok {
		started = now
	}
	delete(lt.open, stage)

	sm := model.StageMetrics{
		StageName:        stage,
		StartTime:        started,
		EndTime:          now,
		Duration:         now.Sub(started),
		RecordsProcessed: recordsProcessed,
		ErrorCount:       errorCount,
	}
	lt.metrics.Stages = append(lt.metrics.Stages, sm)

	if lt.prom != nil {
		lt.prom.StageDuration.WithLabelValues(stage).Observe(sm.Duration.Seconds())
		lt.prom.StageRecords.WithLabelValues(stage).Add(float64(recordsProcessed))
	}
	lt.logger.Info("stage completed",
		zap.String("stage", stage),
		zap.Int("records", recordsProcessed),
		zap.Int("errors", errorCount),
		zap.Duration("duration", sm.Duration))
}

// RecordRejections adds rejected rows of one source kind to the totals
func (lt *LoadTracker) RecordRejections(source string, rejected []RowRejection) {
	if len(rejected) == 0 {
		return
	}
	lt.mu.Lock()
	lt.metrics.InvalidRecords += len(rejected)
	lt.mu.Unlock()

	if lt.prom != nil {
		lt.prom.RejectedRows.WithLabelValues(source).Add(float64(len(rejected)))
	}
	for i, r := range rejected {
		if i >= 5 {
			lt.logger.Warn("more rows rejected", zap.String("source", source), zap.Int("remaining", len(rejected)-i))
			break
		}
		lt.logger.Warn("row rejected",
			zap.String("source", source),
			zap.Int("row", r.Row),
			zap.String("name", r.Name),
			zap.String("reason", r.Reason))
	}
}

// SetRecordCounts sets the total and accepted company row counts
func (lt *LoadTracker) SetRecordCounts(total, valid int) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.metrics.TotalRecords = total
	lt.metrics.ValidRecords = valid
}

// Complete marks the load as completed
func (lt *LoadTracker) Complete() model.LoadMetrics {
	return lt.finish("completed", nil)
}

// Fail marks the load as failed
func (lt *LoadTracker) Fail(err error) model.LoadMetrics {
	return lt.finish("failed", err)
}

func (lt *LoadTracker) finish(status string, err error) model.LoadMetrics {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	lt.metrics.Status = status
	lt.metrics.ProcessingTime = time.Since(lt.start)
	if lt.prom != nil {
		lt.prom.LoadsTotal.WithLabelValues(statusLabel(err)).Inc()
	}
	if err != nil {
		lt.logger.Error("load failed", zap.Duration("duration", lt.metrics.ProcessingTime), zap.Error(err))
	} else {
		lt.logger.Info("load completed",
			zap.Int("total_records", lt.metrics.TotalRecords),
			zap.Int("valid_records", lt.metrics.ValidRecords),
			zap.Int("invalid_records", lt.metrics.InvalidRecords),
			zap.Duration("duration", lt.metrics.ProcessingTime))
	}
	return lt.snapshot()
}

// GetMetrics returns a copy of the current load metrics
func (lt *LoadTracker) GetMetrics() model.LoadMetrics {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.snapshot()
}

func (lt *LoadTracker) snapshot() model.LoadMetrics {
	m := lt.metrics
	m.Stages = append([]model.StageMetrics{}, lt.metrics.Stages...)
	return m
}
