package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/storm-hazard-impact/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-hazard-impact/internal/adapter/kafka"
	"github.com/couchcryptid/storm-hazard-impact/internal/adapter/overpass"
	"github.com/couchcryptid/storm-hazard-impact/internal/config"
	"github.com/couchcryptid/storm-hazard-impact/internal/domain"
	"github.com/couchcryptid/storm-hazard-impact/internal/observability"
	"github.com/couchcryptid/storm-hazard-impact/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Road fetching is feature-flagged via OVERPASS_ENABLED; requests that
	// carry their own roads never hit it.
	var roads domain.RoadSource
	if cfg.OverpassEnabled {
		client := overpass.NewClient(cfg.OverpassURL, cfg.OverpassTimeout, metrics, logger)
		roads = overpass.NewCachedRoadSource(client, cfg.OverpassCacheSize, metrics)
		metrics.RoadSourceEnabled.Set(1)
		logger.Info("overpass road source enabled", "url", cfg.OverpassURL, "cache_size", cfg.OverpassCacheSize, "timeout", cfg.OverpassTimeout)
	} else {
		logger.Info("overpass road source disabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(cfg.Params(), roads, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, transformer, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("analysis parameters",
		"neighborhood_radius_px", cfg.NeighborhoodRadius,
		"hazard_value", cfg.HazardValue,
		"batch_size", cfg.BatchSize,
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return p.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
	}

	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
