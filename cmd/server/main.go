// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

// Command server runs the Moltwatch colony telemetry service: it
// ingests weighbridge samples from the field stations, classifies them
// through the molt detection pipeline, and serves the dashboard API and
// live feed.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mkhin/moltwatch/internal/api"
	"github.com/mkhin/moltwatch/internal/classifier"
	"github.com/mkhin/moltwatch/internal/config"
	"github.com/mkhin/moltwatch/internal/database"
	"github.com/mkhin/moltwatch/internal/livebus"
	"github.com/mkhin/moltwatch/internal/logging"
	"github.com/mkhin/moltwatch/internal/media"
	"github.com/mkhin/moltwatch/internal/pipeline"
	"github.com/mkhin/moltwatch/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("addr", cfg.Server.Addr()).Msg("starting moltwatch")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn().Err(err).Msg("database close failed")
		}
	}()

	mediaStore, err := media.NewStore(cfg.Media.UploadDir)
	if err != nil {
		return err
	}

	pipe := pipeline.New(
		classifier.NewHTTPSpeciesDetector(&cfg.Classifier),
		classifier.NewHTTPMoltClassifier(&cfg.Classifier),
		classifier.NewHTTPStageClassifier(&cfg.Classifier),
		db,
	)

	bus := livebus.New(cfg.Live.HistorySize, cfg.Live.SubscriberQueueSize, cfg.Live.BroadcastInterval)

	handler := api.NewHandler(db, pipe, bus, mediaStore, cfg)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		// Write timeout stays unset so SSE and websocket sessions can
		// outlive a single request window.
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddFeedService(supervisor.NewBusService(bus))
	tree.AddAPIService(supervisor.NewHTTPService(server, supervisor.DefaultTreeConfig().ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("service did not stop in time")
		}
	}

	logging.Info().Msg("moltwatch stopped")
	return nil
}
