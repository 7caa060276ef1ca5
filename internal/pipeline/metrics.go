package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "vcmarket"

// Default Buckets
var (
	DefaultStageDurationBuckets = []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30}
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
)

// Metrics holds the pipeline's Prometheus collectors
type Metrics struct {
	LoadsTotal          *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	StageRecords        *prometheus.CounterVec
	RejectedRows        *prometheus.CounterVec
	DatasetCompanies    prometheus.Gauge
	DatasetInvestors    prometheus.Gauge
	RankingsTotal       *prometheus.CounterVec
	ExportsTotal        *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics registers all collectors with reg. A nil reg uses a private
// registry, which keeps tests independent.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		LoadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dataset_loads_total",
			Help:      "Dataset load attempts by status.",
		}, []string{"status"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of load stages.",
			Buckets:   DefaultStageDurationBuckets,
		}, []string{"stage"}),
		StageRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stage_records_total",
			Help:      "Records processed by load stage.",
		}, []string{"stage"}),
		RejectedRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rejected_rows_total",
			Help:      "Rows rejected by validation, by source kind.",
		}, []string{"source"}),
		DatasetCompanies: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "dataset_companies",
			Help:      "Companies in the current dataset.",
		}),
		DatasetInvestors: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "dataset_investors",
			Help:      "Investors in the current dataset.",
		}),
		RankingsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rankings_total",
			Help:      "Ranking runs by status.",
		}, []string{"status"}),
		ExportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "exports_total",
			Help:      "Export files written by type and status.",
		}, []string{"type", "status"}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   DefaultHTTPDurationBuckets,
		}, []string{"method", "route"}),
	}
}

func statusLabel(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}
