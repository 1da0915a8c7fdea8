// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/mkhin/moltwatch/internal/config"
	"github.com/mkhin/moltwatch/internal/livebus"
	"github.com/mkhin/moltwatch/internal/media"
	"github.com/mkhin/moltwatch/internal/models"
)

// Store is the persistence surface the handlers consume.
type Store interface {
	LockRFID(rfid string) func()
	UpsertIndividual(ctx context.Context, v *models.Verdict, sex string) error
	AppendDetection(ctx context.Context, v *models.Verdict, sourceKind string) (*models.DetectionRecord, error)
	AppendEnvironment(ctx context.Context, recordedAt time.Time, reading *models.EnvironmentReading) (*models.EnvironmentSample, error)
	ListIndividuals(ctx context.Context) ([]models.Individual, error)
	GetIndividual(ctx context.Context, rfid string) (*models.Individual, error)
	UpdateIndividual(ctx context.Context, rfid string, update *models.IndividualUpdate, evalHealth func(weightKG, moltProb, dailyChange float64) string) (*models.Individual, error)
	RecentDetections(ctx context.Context, rfid string, limit, offset int) ([]models.DetectionRecord, error)
	DetectionsForExport(ctx context.Context, rfid string) ([]models.DetectionRecord, error)
	DetectionsForIndividual(ctx context.Context, rfid string, limit int) ([]models.DetectionRecord, error)
	ListEnvironment(ctx context.Context, limit, offset int) ([]models.EnvironmentSample, error)
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
	Ping(ctx context.Context) error
}

// Classifier runs one sample through the molt detection pipeline.
type Classifier interface {
	Classify(ctx context.Context, sample *models.Sample) (*models.Verdict, error)
}

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	store     Store
	classify  Classifier
	bus       *livebus.Bus
	media     *media.Store
	cfg       *config.Config
	startTime time.Time
}

// NewHandler wires the HTTP handlers to their dependencies.
func NewHandler(store Store, classify Classifier, bus *livebus.Bus, mediaStore *media.Store, cfg *config.Config) *Handler {
	return &Handler{
		store:     store,
		classify:  classify,
		bus:       bus,
		media:     mediaStore,
		cfg:       cfg,
		startTime: time.Now(),
	}
}

// pagination extracts limit/offset query parameters, clamped to the
// configured page sizes.
func (h *Handler) pagination(r *http.Request) (limit, offset int) {
	return h.paginationWithDefault(r, h.cfg.API.DefaultPageSize)
}

func (h *Handler) paginationWithDefault(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > h.cfg.API.MaxPageSize {
		limit = h.cfg.API.MaxPageSize
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
