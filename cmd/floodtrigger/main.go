// Command floodtrigger runs the ensemble flood-trigger analysis service: it
// periodically evaluates GloFAS ensemble river-discharge forecasts against
// return-period thresholds for every configured country, writes monthly CSV
// reports, and optionally publishes records and activation decisions to
// Kafka.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/floodwatch/flood-trigger-service/internal/adapter/http"
	kafkaadapter "github.com/floodwatch/flood-trigger-service/internal/adapter/kafka"
	"github.com/floodwatch/flood-trigger-service/internal/config"
	"github.com/floodwatch/flood-trigger-service/internal/engine"
	"github.com/floodwatch/flood-trigger-service/internal/observability"
	"github.com/floodwatch/flood-trigger-service/internal/report"
	"github.com/floodwatch/flood-trigger-service/internal/store"
)

func main() {
	// Local development overrides; absent in deployed environments.
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	countries, err := config.LoadCountries(cfg.CountriesFile)
	if err != nil {
		logger.Error("failed to load countries file", "path", cfg.CountriesFile, "error", err)
		os.Exit(1)
	}
	logger.Info("countries loaded", "codes", countries.Codes())

	grids := store.NewRefGridStore(cfg.DataDir)
	forecasts := store.NewForecastStore(cfg.DataDir, logger)

	sinks := []engine.ResultSink{report.NewWriter(cfg.DataDir, logger)}
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		sinks = append(sinks, publisher)
		logger.Info("kafka publishing enabled",
			"brokers", cfg.KafkaBrokers,
			"records_topic", cfg.KafkaRecordsTopic,
			"alerts_topic", cfg.KafkaAlertsTopic,
		)
	} else {
		logger.Info("kafka publishing disabled")
	}

	runner := engine.NewRunner(countries, grids, forecasts, sinks,
		logger, metrics, clockwork.NewRealClock(), cfg.AnalysisInterval)

	srv := httpadapter.NewServer(cfg.HTTPAddr, runner, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start analysis loop.
	go func() {
		if err := runner.Run(ctx); err != nil {
			logger.Error("runner error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
