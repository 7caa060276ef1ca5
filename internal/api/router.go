// Package api wires the market handlers, metrics and API docs onto the router.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "vcmarket/docs"
	"vcmarket/internal/api/handler"
	"vcmarket/internal/pipeline"
	"vcmarket/pkg/router"
)

// NewRouter builds the API router. metrics and gatherer may be nil, which
// disables request metrics and the /metrics endpoint.
func NewRouter(h *handler.MarketHandler, metrics *pipeline.Metrics, gatherer prometheus.Gatherer, logger *zap.Logger) *router.Router {
	r := router.New(logger)
	RegisterRoutes(r, h)

	if metrics != nil {
		r.Observe(func(method, route string, status int, d time.Duration) {
			metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
		})
	}
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	r.Handle("/swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.GET("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	return r
}

func RegisterRoutes(r *router.Router, h *handler.MarketHandler) {
	r.POST("/api/v1/datasets", h.LoadDataset)
	r.GET("/api/v1/datasets/current", h.GetCurrentDataset)
	r.GET("/api/v1/statistics", h.GetStatistics)
	r.GET("/api/v1/statistics/industries", h.GetIndustryStatistics)
	r.GET("/api/v1/industries", h.ListIndustries)
	r.GET("/api/v1/investors", h.ListInvestors)
	r.GET("/api/v1/investors/top", h.GetTopInvestors)
	r.GET("/api/v1/model", h.GetModel)
	r.POST("/api/v1/rankings", h.RankCompanies)
	r.POST("/api/v1/exports", h.CreateExport)
	r.GET("/api/v1/exports", h.ListExports)
	r.GET("/api/v1/exports/*", h.GetExport)
}
