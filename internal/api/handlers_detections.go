// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package api

import (
	"net/http"

	"github.com/mkhin/moltwatch/internal/export"
	"github.com/mkhin/moltwatch/internal/logging"
	"github.com/mkhin/moltwatch/internal/models"
)

// RecentDetections handles GET /api/v1/detections/recent: the newest
// detection log rows, optionally filtered by rfid, paginated.
func (h *Handler) RecentDetections(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	limit, offset := h.pagination(r)
	rfid := r.URL.Query().Get("rfid")

	records, err := h.store.RecentDetections(r.Context(), rfid, limit, offset)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if records == nil {
		records = []models.DetectionRecord{}
	}

	rw.SuccessWithPagination(records, &PaginationMeta{
		Count:   len(records),
		Offset:  offset,
		Limit:   limit,
		HasMore: len(records) == limit,
	})
}

// ExportDetections handles GET /api/v1/detections/export. The format
// query selects csv, txt, or xlsx; rfid narrows to one bird.
func (h *Handler) ExportDetections(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		rw.BadRequest("format must be one of csv, txt, xlsx")
		return
	}
	rfid := r.URL.Query().Get("rfid")

	records, err := h.store.DetectionsForExport(r.Context(), rfid)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename()+`"`)
	if err := export.Write(w, format, records); err != nil {
		// Headers are already sent; log and abandon the stream.
		logging.Error().Err(err).Str("format", string(format)).Msg("export write failed")
	}
}
