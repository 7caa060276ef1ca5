package pipeline

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"vcmarket/internal/model"
)

// Session owns the current Dataset. A successful load replaces it
// wholesale; a failed load leaves the previous one in place.
type Session struct {
	current atomic.Pointer[Dataset]
	loader  *Loader
	metrics *Metrics
	logger  *zap.Logger
}

// NewSession creates a session without a dataset. metrics may be nil.
func NewSession(loader *Loader, metrics *Metrics, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{loader: loader, metrics: metrics, logger: logger}
}

// Load builds a new dataset from sources and makes it current.
func (s *Session) Load(ctx context.Context, sources model.Sources) (*Dataset, error) {
	ds, err := s.loader.Load(ctx, sources)
	if err != nil {
		if prev := s.current.Load(); prev != nil {
			s.logger.Warn("load failed, keeping current dataset", zap.String("dataset_id", prev.ID), zap.Error(err))
		}
		return nil, err
	}
	s.Replace(ds)
	return ds, nil
}

// Replace makes ds current.
func (s *Session) Replace(ds *Dataset) {
	s.current.Store(ds)
	if s.metrics != nil {
		s.metrics.DatasetCompanies.Set(float64(len(ds.Companies)))
		s.metrics.DatasetInvestors.Set(float64(ds.Investors.Len()))
	}
	s.logger.Info("dataset replaced", zap.String("dataset_id", ds.ID), zap.Int("companies", len(ds.Companies)))
}

// Current returns the current dataset or ErrNoDataset.
func (s *Session) Current() (*Dataset, error) {
	ds := s.current.Load()
	if ds == nil {
		return nil, ErrNoDataset
	}
	return ds, nil
}

// Rank ranks the companies of the current dataset.
func (s *Session) Rank(req model.RankRequest) ([]model.RankedCompany, error) {
	ds, err := s.Current()
	if err != nil {
		return nil, err
	}
	return s.RankDataset(ds, req)
}

// RankDataset ranks the companies of ds, a snapshot the caller already holds,
// and counts the ranking.
func (s *Session) RankDataset(ds *Dataset, req model.RankRequest) ([]model.RankedCompany, error) {
	ranked, err := Rank(ds, req)
	if s.metrics != nil {
		s.metrics.RankingsTotal.WithLabelValues(statusLabel(err)).Inc()
	}
	return ranked, err
}
