// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/mkhin/moltwatch/internal/logging"
	"github.com/mkhin/moltwatch/internal/media"
	"github.com/mkhin/moltwatch/internal/metrics"
	"github.com/mkhin/moltwatch/internal/models"
	"github.com/mkhin/moltwatch/internal/pipeline"
	"github.com/mkhin/moltwatch/internal/validation"
)

// Ingest handles POST /api/v1/detections. Accepts a JSON body with a
// base64 image or a multipart form with a binary image part. The sample
// is classified, persisted, and published to the live feed in that
// order; a storage failure responds 500 and publishes nothing.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req, imageData, sourceKind, ok := h.parseIngest(rw, r)
	if !ok {
		return
	}

	if verrs := validation.ValidateStruct(req); verrs != nil {
		metrics.SamplesRejected.WithLabelValues("validation").Inc()
		apiErr := verrs.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	if err := media.Validate(imageData, h.cfg.Media.MaxImageBytes); err != nil {
		if errors.Is(err, media.ErrImageTooLarge) {
			metrics.SamplesRejected.WithLabelValues("image_too_large").Inc()
			rw.PayloadTooLarge("image exceeds the configured size limit")
			return
		}
		metrics.SamplesRejected.WithLabelValues("invalid_image").Inc()
		rw.BadRequest("image is not a decodable JPEG or PNG")
		return
	}

	capturedAt := req.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}

	imagePath, err := h.media.Save(req.RFID, capturedAt, imageData)
	if err != nil {
		logging.Error().Err(err).Str("rfid", req.RFID).Msg("failed to store sample image")
		rw.InternalError("failed to store sample image")
		return
	}

	sample := &models.Sample{
		RFID:        req.RFID,
		WeightKG:    req.WeightKG,
		Sex:         req.Sex,
		CapturedAt:  capturedAt,
		SourceKind:  sourceKind,
		Image:       imageData,
		ImagePath:   imagePath,
		Environment: req.Environment.Reading(),
	}

	// The lock spans the previous-weight read inside Classify and the
	// upsert, so concurrent samples for one bird serialize their daily
	// change computations.
	unlock := h.store.LockRFID(sample.RFID)
	defer unlock()

	verdict, err := h.classify.Classify(r.Context(), sample)
	if err != nil {
		var storageErr *pipeline.StorageError
		if errors.As(err, &storageErr) {
			rw.DatabaseError(err)
			return
		}
		logging.Error().Err(err).Str("rfid", sample.RFID).Msg("classification failed")
		rw.InternalError("classification failed")
		return
	}

	if err := h.store.UpsertIndividual(r.Context(), verdict, sample.Sex); err != nil {
		rw.DatabaseError(err)
		return
	}
	record, err := h.store.AppendDetection(r.Context(), verdict, sourceKind)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if sample.Environment != nil {
		if _, err := h.store.AppendEnvironment(r.Context(), capturedAt, sample.Environment); err != nil {
			rw.DatabaseError(err)
			return
		}
	}

	h.bus.Publish(models.SnapshotFromVerdict(verdict, sample.Environment))
	metrics.SamplesIngested.WithLabelValues(sourceKind).Inc()

	logging.Info().
		Str("rfid", verdict.RFID).
		Str("stage", verdict.Stage).
		Str("health", verdict.Health).
		Bool("molting", verdict.Molting).
		Int64("detection_seq", record.Seq).
		Msg("sample ingested")

	rw.Created(verdict)
}

// parseIngest decodes either encoding into a DetectionRequest plus raw
// image bytes. Responds and returns ok=false on malformed input.
func (h *Handler) parseIngest(rw *ResponseWriter, r *http.Request) (*DetectionRequest, []byte, string, bool) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		return h.parseMultipartIngest(rw, r)
	}

	var req DetectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.SamplesRejected.WithLabelValues("malformed_body").Inc()
		rw.BadRequest("request body is not valid JSON")
		return nil, nil, "", false
	}

	imageData, err := media.DecodeBase64(req.ImageBase64)
	if err != nil {
		metrics.SamplesRejected.WithLabelValues("invalid_image").Inc()
		rw.BadRequest("image_base64 is not valid base64")
		return nil, nil, "", false
	}

	sourceKind := req.SourceKind
	if sourceKind == "" {
		sourceKind = "station"
	}
	return &req, imageData, sourceKind, true
}

func (h *Handler) parseMultipartIngest(rw *ResponseWriter, r *http.Request) (*DetectionRequest, []byte, string, bool) {
	if err := r.ParseMultipartForm(h.cfg.Media.MaxImageBytes + 1<<20); err != nil {
		metrics.SamplesRejected.WithLabelValues("malformed_body").Inc()
		rw.BadRequest("request body is not a valid multipart form")
		return nil, nil, "", false
	}

	req := DetectionRequest{
		RFID: r.FormValue("rfid"),
		Sex:  r.FormValue("sex"),
	}
	if v := r.FormValue("weight_kg"); v != "" {
		weight, err := strconv.ParseFloat(v, 64)
		if err != nil {
			metrics.SamplesRejected.WithLabelValues("validation").Inc()
			rw.BadRequest("weight_kg is not a number")
			return nil, nil, "", false
		}
		req.WeightKG = weight
	}
	if v := r.FormValue("captured_at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			metrics.SamplesRejected.WithLabelValues("validation").Inc()
			rw.BadRequest("captured_at is not RFC3339")
			return nil, nil, "", false
		}
		req.CapturedAt = t
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		metrics.SamplesRejected.WithLabelValues("invalid_image").Inc()
		rw.BadRequest("multipart form is missing the image part")
		return nil, nil, "", false
	}
	defer func() { _ = file.Close() }()

	imageData, err := io.ReadAll(io.LimitReader(file, h.cfg.Media.MaxImageBytes+1))
	if err != nil {
		metrics.SamplesRejected.WithLabelValues("invalid_image").Inc()
		rw.BadRequest("failed to read the image part")
		return nil, nil, "", false
	}

	// Validation requires a non-empty marker; the decoded bytes are
	// checked separately.
	req.ImageBase64 = "multipart"

	req.SourceKind = r.FormValue("source_kind")
	if req.SourceKind == "" {
		req.SourceKind = "upload"
	}
	return &req, imageData, req.SourceKind, true
}
