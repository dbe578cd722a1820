package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/flood-risk-service/internal/adapter/http"
	"github.com/couchcryptid/flood-risk-service/internal/alert"
	"github.com/couchcryptid/flood-risk-service/internal/broadcast"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/engine"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/pipeline"
	"github.com/couchcryptid/flood-risk-service/internal/source"
	"github.com/couchcryptid/flood-risk-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// The store is the one collaborator whose startup failure is fatal:
	// a pipeline that cannot persist has nothing to offer.
	store, err := storage.NewSQLite(cfg.SQLitePath)
	if err != nil {
		logger.Error("failed to open store", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	if err := store.Init(context.Background()); err != nil {
		logger.Error("failed to init store schema", "error", err)
		os.Exit(1)
	}

	eng := engine.New(cfg.ModelDir, logger, metrics)

	loc := domain.Coordinates{Lat: cfg.LocationLat, Lng: cfg.LocationLng}
	rainfall := source.NewRainfall(cfg.OpenMeteoURL, loc, cfg.SourceTimeout, logger, metrics)
	waterLevel := source.NewWaterLevel(cfg.RiverGaugeURL, cfg.SourceTimeout, logger, metrics)
	soilMoisture := source.NewSoilMoisture(cfg.OpenMeteoURL, loc, cfg.SourceTimeout, logger, metrics)

	writer := broadcast.NewWriter(cfg, logger)

	// Push delivery is feature-flagged via PUSH_GATEWAY_URL; without it the
	// gate is a logged no-op.
	var notifier alert.Notifier
	if cfg.PushEnabled {
		notifier = alert.NewPushClient(cfg.PushGatewayURL, cfg.PushAPIKey, 10*time.Second, logger)
		logger.Info("push alerts enabled", "gateway", cfg.PushGatewayURL, "cooldown", cfg.AlertCooldown)
	} else {
		logger.Info("push alerts disabled")
	}
	gate := alert.NewGate(notifier, store, cfg.AlertCooldown, clockwork.NewRealClock(), logger, metrics)

	runner := pipeline.New(pipeline.Deps{
		Rainfall:     rainfall,
		WaterLevel:   waterLevel,
		SoilMoisture: soilMoisture,
		Scorer:       eng,
		Store:        store,
		Broadcaster:  writer,
		Gate:         gate,
		Location:     loc,
		Interval:     cfg.CycleInterval,
		FetchTimeout: cfg.SourceTimeout,
		Clock:        clockwork.NewRealClock(),
		Logger:       logger,
		Metrics:      metrics,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, runner, runner, store, eng, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the prediction cycle runner.
	go func() {
		if err := runner.Run(ctx); err != nil {
			logger.Error("cycle runner error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
