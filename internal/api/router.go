// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkhin/moltwatch/internal/middleware"
)

// Router builds the HTTP routing tree.
type Router struct {
	handler *Handler
}

// NewRouter creates a router around the handler set.
func NewRouter(handler *Handler) *Router {
	return &Router{handler: handler}
}

// Setup configures all routes and middleware and returns the root
// http.Handler.
func (router *Router) Setup() http.Handler {
	cfg := router.handler.cfg
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Security.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		if !cfg.Security.RateLimitDisabled {
			r.Use(httprate.LimitByIP(cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow))
		}
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", router.handler.Health)
		r.Get("/health/live", router.handler.HealthLive)
		r.Get("/health/ready", router.handler.HealthReady)

		r.Get("/live/latest", router.handler.LiveLatest)
		r.Get("/live/history", router.handler.LiveHistory)
		r.Get("/live/sse", router.handler.LiveSSE)
		r.Get("/live/ws", router.handler.LiveWS)

		r.Post("/detections", router.handler.Ingest)
		r.Get("/detections/recent", router.handler.RecentDetections)
		r.Get("/detections/export", router.handler.ExportDetections)

		r.Get("/penguins", router.handler.Penguins)
		r.Get("/penguins/{rfid}", router.handler.Penguin)
		r.Put("/penguins/{rfid}", router.handler.UpdatePenguin)

		r.Get("/environment", router.handler.Environment)
		r.Get("/stats", router.handler.Stats)
	})

	r.Handle("/metrics", promhttp.Handler())

	// Stored sample images, served from the upload directory.
	uploads := http.StripPrefix("/uploads/", http.FileServer(http.Dir(router.handler.media.Dir())))
	r.Get("/uploads/*", uploads.ServeHTTP)

	return r
}
