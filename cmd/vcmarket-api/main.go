package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"vcmarket/internal/api"
	"vcmarket/internal/api/handler"
	"vcmarket/internal/config"
	"vcmarket/internal/logging"
	"vcmarket/internal/pipeline"
	"vcmarket/internal/store"
	"vcmarket/pkg/router"
	"vcmarket/pkg/utils"
)

// @title vcmarket API
// @version 1.0
// @description Venture market analysis: investor scores, funding statistics, funding predictions and company rankings over one loaded dataset.
// @BasePath /api/v1
func main() {
	configPath := flag.String("config", "", "config file path (default: ./vcmarket.yaml or $VCM_CONFIG_FILE)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := pipeline.NewMetrics(reg)

	var history *store.Store
	if cfg.Server.HistoryDB != "" {
		var err error
		if history, err = store.Open(cfg.Server.HistoryDB); err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
		defer history.Close()
	}

	ingester := pipeline.NewIngester(nil, pipeline.NewRetryManager(cfg.Retry, logger), logger)
	session := pipeline.NewSession(pipeline.NewLoader(ingester, cfg.PipelineOptions(), metrics, logger), metrics, logger)
	outputs := utils.NewOutputManager(cfg.Export.Dir)
	if err := outputs.EnsureOutputDirExists(); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	exports := pipeline.NewExportManager(outputs, history, metrics, logger)

	if cfg.Inputs.LoadOnStart {
		if _, err := session.Load(ctx, cfg.Sources()); err != nil {
			// the server still starts; clients can POST /api/v1/datasets
			logger.Error("initial load failed", zap.Error(err))
		}
	}

	h := handler.NewMarketHandler(session, exports, handler.Defaults{
		Sources: cfg.Sources(),
		Ranking: cfg.RankRequest(),
		Export:  cfg.ExportSpec(),
	}, logger)
	r := api.NewRouter(h, metrics, reg, logger)

	return r.Start(ctx, router.ServerOptions{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
}
