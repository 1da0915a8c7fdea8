// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mkhin/moltwatch/internal/metrics"
	"github.com/mkhin/moltwatch/internal/models"
)

// ErrNotFound is returned when no penguin row exists for the RFID.
var ErrNotFound = errors.New("not found")

// PreviousWeight returns the last recorded weight for the RFID, or
// found=false on first sighting.
func (db *DB) PreviousWeight(ctx context.Context, rfid string) (float64, bool, error) {
	start := time.Now()
	var weight float64
	err := db.conn.QueryRowContext(ctx,
		`SELECT last_weight_kg FROM penguins WHERE rfid = ?`, rfid).Scan(&weight)
	metrics.RecordDBQuery("select", "penguins", time.Since(start), ignoreNoRows(err))

	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query previous weight: %w", err)
	}
	return weight, true, nil
}

// UpsertIndividual writes the verdict onto the penguin's summary row,
// creating it on first sighting. first_seen is preserved across updates
// and sex is only overwritten when the sample supplies one. Callers that
// computed the verdict from a PreviousWeight read must hold LockRFID for
// the whole cycle.
func (db *DB) UpsertIndividual(ctx context.Context, v *models.Verdict, sex string) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO penguins (
			rfid, last_weight_kg, molting, confidence, last_detection_time,
			first_seen, notes, sex, stage_name, daily_change, health
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (rfid) DO UPDATE SET
			last_weight_kg = EXCLUDED.last_weight_kg,
			molting = EXCLUDED.molting,
			confidence = EXCLUDED.confidence,
			last_detection_time = EXCLUDED.last_detection_time,
			notes = EXCLUDED.notes,
			sex = CASE WHEN EXCLUDED.sex = '' THEN penguins.sex ELSE EXCLUDED.sex END,
			stage_name = EXCLUDED.stage_name,
			daily_change = EXCLUDED.daily_change,
			health = EXCLUDED.health`,
		v.RFID, v.WeightKG, v.Molting, v.Confidence, v.DetectionTime,
		v.DetectionTime, v.Notes, sex, v.Stage, v.DailyChange, v.Health)
	metrics.RecordDBQuery("upsert", "penguins", time.Since(start), err)

	if err != nil {
		return fmt.Errorf("failed to upsert penguin %s: %w", v.RFID, err)
	}
	return nil
}

// ListIndividuals returns all penguin summary rows with their detection
// counts, most recently seen first.
func (db *DB) ListIndividuals(ctx context.Context) ([]models.Individual, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT p.rfid, p.last_weight_kg, p.molting, p.confidence,
		       p.last_detection_time, p.first_seen, p.notes, p.sex,
		       p.stage_name, p.daily_change, p.health,
		       COUNT(d.seq) AS detection_count
		FROM penguins p
		LEFT JOIN detections d ON d.rfid = p.rfid
		GROUP BY p.rfid, p.last_weight_kg, p.molting, p.confidence,
		         p.last_detection_time, p.first_seen, p.notes, p.sex,
		         p.stage_name, p.daily_change, p.health
		ORDER BY p.last_detection_time DESC NULLS LAST`)
	metrics.RecordDBQuery("select", "penguins", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list penguins: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.Individual
	for rows.Next() {
		var ind models.Individual
		var lastSeen sql.NullTime
		if err := rows.Scan(&ind.RFID, &ind.LastWeightKG, &ind.Molting, &ind.Confidence,
			&lastSeen, &ind.FirstSeen, &ind.Notes, &ind.Sex,
			&ind.StageName, &ind.DailyChange, &ind.Health, &ind.DetectionCount); err != nil {
			return nil, fmt.Errorf("failed to scan penguin row: %w", err)
		}
		if lastSeen.Valid {
			t := lastSeen.Time
			ind.LastDetectionTime = &t
		}
		out = append(out, ind)
	}
	return out, rows.Err()
}

// GetIndividual returns one penguin summary row.
func (db *DB) GetIndividual(ctx context.Context, rfid string) (*models.Individual, error) {
	start := time.Now()
	var ind models.Individual
	var lastSeen sql.NullTime
	err := db.conn.QueryRowContext(ctx, `
		SELECT rfid, last_weight_kg, molting, confidence, last_detection_time,
		       first_seen, notes, sex, stage_name, daily_change, health
		FROM penguins WHERE rfid = ?`, rfid).
		Scan(&ind.RFID, &ind.LastWeightKG, &ind.Molting, &ind.Confidence,
			&lastSeen, &ind.FirstSeen, &ind.Notes, &ind.Sex,
			&ind.StageName, &ind.DailyChange, &ind.Health)
	metrics.RecordDBQuery("select", "penguins", time.Since(start), ignoreNoRows(err))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get penguin %s: %w", rfid, err)
	}
	if lastSeen.Valid {
		t := lastSeen.Time
		ind.LastDetectionTime = &t
	}
	return &ind, nil
}

// UpdateIndividual applies a manual correction from the keepers. When a
// new weight is supplied, health is re-evaluated with the recomputed
// daily change. An unknown RFID creates a fresh summary row so keepers
// can register an individual before its first weighbridge crossing.
// Returns the updated row.
func (db *DB) UpdateIndividual(ctx context.Context, rfid string, update *models.IndividualUpdate, evalHealth func(weightKG, moltProb, dailyChange float64) string) (*models.Individual, error) {
	unlock := db.LockRFID(rfid)
	defer unlock()

	current, err := db.GetIndividual(ctx, rfid)
	if errors.Is(err, ErrNotFound) {
		return db.createManualIndividual(ctx, rfid, update, evalHealth)
	}
	if err != nil {
		return nil, err
	}

	if update.WeightKG != nil {
		newWeight := *update.WeightKG
		current.DailyChange = round2(newWeight - current.LastWeightKG)
		current.LastWeightKG = newWeight
		moltProb := 0.0
		if current.Molting {
			moltProb = current.Confidence
		}
		current.Health = evalHealth(newWeight, moltProb, current.DailyChange)
	}
	if update.Sex != nil {
		current.Sex = *update.Sex
	}
	if update.Notes != nil {
		current.Notes = *update.Notes
	}

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `
		UPDATE penguins
		SET last_weight_kg = ?, sex = ?, notes = ?, daily_change = ?, health = ?
		WHERE rfid = ?`,
		current.LastWeightKG, current.Sex, current.Notes,
		current.DailyChange, current.Health, rfid)
	metrics.RecordDBQuery("update", "penguins", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to update penguin %s: %w", rfid, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return current, nil
}

// createManualIndividual registers an individual from a keeper update
// alone. No detection exists yet, so last_detection_time stays NULL and
// the stage defaults to Non-molting.
func (db *DB) createManualIndividual(ctx context.Context, rfid string, update *models.IndividualUpdate, evalHealth func(weightKG, moltProb, dailyChange float64) string) (*models.Individual, error) {
	ind := &models.Individual{
		RFID:      rfid,
		FirstSeen: time.Now(),
		Sex:       "Unknown",
		StageName: models.StageNonMolting,
		Health:    models.HealthHealthy,
	}
	if update.WeightKG != nil {
		ind.LastWeightKG = *update.WeightKG
		ind.Health = evalHealth(ind.LastWeightKG, 0, 0)
	}
	if update.Sex != nil {
		ind.Sex = *update.Sex
	}
	if update.Notes != nil {
		ind.Notes = *update.Notes
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO penguins (
			rfid, last_weight_kg, molting, confidence, last_detection_time,
			first_seen, notes, sex, stage_name, daily_change, health
		) VALUES (?, ?, FALSE, 0, NULL, ?, ?, ?, ?, 0, ?)`,
		ind.RFID, ind.LastWeightKG, ind.FirstSeen, ind.Notes,
		ind.Sex, ind.StageName, ind.Health)
	metrics.RecordDBQuery("insert", "penguins", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to register penguin %s: %w", rfid, err)
	}
	return ind, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// ignoreNoRows keeps sql.ErrNoRows out of the error metrics; an absent
// row is an answer, not a query failure.
func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
