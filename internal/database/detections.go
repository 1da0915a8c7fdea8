// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkhin/moltwatch/internal/metrics"
	"github.com/mkhin/moltwatch/internal/models"
)

// AppendDetection writes one verdict to the append-only detections log
// and returns the stored record.
func (db *DB) AppendDetection(ctx context.Context, v *models.Verdict, sourceKind string) (*models.DetectionRecord, error) {
	rec := &models.DetectionRecord{
		ID:            uuid.New(),
		RFID:          v.RFID,
		ImagePath:     v.ImagePath,
		DetectionTime: v.DetectionTime,
		Species:       v.Species,
		Molting:       v.Molting,
		Confidence:    v.Confidence,
		SourceKind:    sourceKind,
		WeightKG:      v.WeightKG,
		StageName:     v.Stage,
		DailyChange:   v.DailyChange,
		Health:        v.Health,
		Notes:         v.Notes,
		CreatedAt:     time.Now(),
	}

	start := time.Now()
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO detections (
			id, rfid, image_path, detection_time, species, molting,
			confidence, source_kind, weight_kg, stage_name, daily_change,
			health, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING seq`,
		rec.ID, rec.RFID, rec.ImagePath, rec.DetectionTime, rec.Species,
		rec.Molting, rec.Confidence, rec.SourceKind, rec.WeightKG,
		rec.StageName, rec.DailyChange, rec.Health, rec.Notes, rec.CreatedAt).
		Scan(&rec.Seq)
	metrics.RecordDBQuery("insert", "detections", time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("failed to append detection for %s: %w", rec.RFID, err)
	}
	return rec, nil
}

// RecentDetections returns the newest rows of the detections log. An
// empty rfid matches all birds.
func (db *DB) RecentDetections(ctx context.Context, rfid string, limit, offset int) ([]models.DetectionRecord, error) {
	query := `
		SELECT seq, id, rfid, image_path, detection_time, species, molting,
		       confidence, source_kind, weight_kg, stage_name, daily_change,
		       health, notes, created_at
		FROM detections`
	args := []any{}
	if rfid != "" {
		query += ` WHERE rfid = ?`
		args = append(args, rfid)
	}
	query += ` ORDER BY detection_time DESC, seq DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select", "detections", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.DetectionRecord
	for rows.Next() {
		var rec models.DetectionRecord
		if err := rows.Scan(&rec.Seq, &rec.ID, &rec.RFID, &rec.ImagePath,
			&rec.DetectionTime, &rec.Species, &rec.Molting, &rec.Confidence,
			&rec.SourceKind, &rec.WeightKG, &rec.StageName, &rec.DailyChange,
			&rec.Health, &rec.Notes, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan detection row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DetectionsForExport returns the full log for one bird, or all birds
// when rfid is empty, newest first without pagination.
func (db *DB) DetectionsForExport(ctx context.Context, rfid string) ([]models.DetectionRecord, error) {
	query := `
		SELECT seq, id, rfid, image_path, detection_time, species, molting,
		       confidence, source_kind, weight_kg, stage_name, daily_change,
		       health, notes, created_at
		FROM detections`
	args := []any{}
	if rfid != "" {
		query += ` WHERE rfid = ?`
		args = append(args, rfid)
	}
	query += ` ORDER BY detection_time DESC, seq DESC`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select", "detections", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections for export: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.DetectionRecord
	for rows.Next() {
		var rec models.DetectionRecord
		if err := rows.Scan(&rec.Seq, &rec.ID, &rec.RFID, &rec.ImagePath,
			&rec.DetectionTime, &rec.Species, &rec.Molting, &rec.Confidence,
			&rec.SourceKind, &rec.WeightKG, &rec.StageName, &rec.DailyChange,
			&rec.Health, &rec.Notes, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan detection row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DetectionsForIndividual returns the newest detections for one bird.
func (db *DB) DetectionsForIndividual(ctx context.Context, rfid string, limit int) ([]models.DetectionRecord, error) {
	return db.RecentDetections(ctx, rfid, limit, 0)
}
