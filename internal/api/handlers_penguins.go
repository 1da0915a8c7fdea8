// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/mkhin/moltwatch/internal/database"
	"github.com/mkhin/moltwatch/internal/models"
	"github.com/mkhin/moltwatch/internal/pipeline"
	"github.com/mkhin/moltwatch/internal/validation"
)

// Penguins handles GET /api/v1/penguins: every known individual with
// its detection count, most recently seen first.
func (h *Handler) Penguins(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	individuals, err := h.store.ListIndividuals(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if individuals == nil {
		individuals = []models.Individual{}
	}
	rw.SuccessWithPagination(individuals, &PaginationMeta{Count: len(individuals)})
}

// individualDetail is the GET /api/v1/penguins/{rfid} payload.
type individualDetail struct {
	models.Individual
	Detections []models.DetectionRecord `json:"detections"`
}

// Penguin handles GET /api/v1/penguins/{rfid}.
func (h *Handler) Penguin(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rfid := chi.URLParam(r, "rfid")

	individual, err := h.store.GetIndividual(r.Context(), rfid)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("no penguin with RFID " + rfid)
			return
		}
		rw.DatabaseError(err)
		return
	}

	detections, err := h.store.DetectionsForIndividual(r.Context(), rfid, h.cfg.API.MaxPageSize)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if detections == nil {
		detections = []models.DetectionRecord{}
	}

	rw.Success(individualDetail{Individual: *individual, Detections: detections})
}

// UpdatePenguin handles PUT /api/v1/penguins/{rfid}: a manual keeper
// correction of weight, sex, or notes. A new weight re-runs the health
// evaluation against the recomputed daily change. An unknown RFID
// registers the individual instead of failing.
func (h *Handler) UpdatePenguin(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rfid := chi.URLParam(r, "rfid")

	var req UpdateIndividualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("request body is not valid JSON")
		return
	}
	if req.WeightKG == nil && req.Sex == nil && req.Notes == nil {
		rw.BadRequest("update must set at least one of weight_kg, sex, notes")
		return
	}
	if verrs := validation.ValidateStruct(&req); verrs != nil {
		apiErr := verrs.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	updated, err := h.store.UpdateIndividual(r.Context(), rfid, req.Update(), pipeline.EvaluateHealth)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(updated)
}
