// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package api

import (
	"net/http"
	"time"

	"github.com/mkhin/moltwatch/internal/models"
)

// healthStatus is the GET /api/v1/health payload.
type healthStatus struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Database      string `json:"database"`
	Subscribers   int    `json:"live_subscribers"`
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := healthStatus{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Database:      "ok",
		Subscribers:   h.bus.SubscriberCount(),
	}

	if err := h.store.Ping(r.Context()); err != nil {
		status.Status = "degraded"
		status.Database = "unreachable"
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "database unreachable", status)
		return
	}
	rw.Success(status)
}

// HealthLive handles GET /api/v1/health/live: process liveness only.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "ok"})
}

// HealthReady handles GET /api/v1/health/ready: storage reachability.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if err := h.store.Ping(r.Context()); err != nil {
		rw.ServiceUnavailable("database unreachable")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}

// Stats handles GET /api/v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	stats, err := h.store.DashboardStats(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(stats)
}

// Environment handles GET /api/v1/environment: the newest climate
// readings, 50 by default.
func (h *Handler) Environment(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	limit, offset := h.paginationWithDefault(r, 50)

	samples, err := h.store.ListEnvironment(r.Context(), limit, offset)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if samples == nil {
		samples = []models.EnvironmentSample{}
	}
	rw.SuccessWithPagination(samples, &PaginationMeta{
		Count:   len(samples),
		Offset:  offset,
		Limit:   limit,
		HasMore: len(samples) == limit,
	})
}
