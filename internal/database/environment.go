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
	"time"

	"github.com/mkhin/moltwatch/internal/metrics"
	"github.com/mkhin/moltwatch/internal/models"
)

// AppendEnvironment writes one climate reading to the environment log.
func (db *DB) AppendEnvironment(ctx context.Context, recordedAt time.Time, reading *models.EnvironmentReading) (*models.EnvironmentSample, error) {
	sample := &models.EnvironmentSample{
		RecordedAt:  recordedAt,
		Temperature: reading.Temperature,
		Humidity:    reading.Humidity,
		LightLevel:  reading.LightLevel,
		Pressure:    reading.Pressure,
	}

	start := time.Now()
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO environment_samples (recorded_at, temperature, humidity, light_level, pressure)
		VALUES (?, ?, ?, ?, ?)
		RETURNING seq`,
		sample.RecordedAt, sample.Temperature, sample.Humidity,
		sample.LightLevel, sample.Pressure).
		Scan(&sample.Seq)
	metrics.RecordDBQuery("insert", "environment_samples", time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("failed to append environment sample: %w", err)
	}
	return sample, nil
}

// ListEnvironment returns the newest climate readings.
func (db *DB) ListEnvironment(ctx context.Context, limit, offset int) ([]models.EnvironmentSample, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `
		SELECT seq, recorded_at, temperature, humidity, light_level, pressure
		FROM environment_samples
		ORDER BY recorded_at DESC, seq DESC
		LIMIT ? OFFSET ?`, limit, offset)
	metrics.RecordDBQuery("select", "environment_samples", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query environment samples: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.EnvironmentSample
	for rows.Next() {
		var s models.EnvironmentSample
		if err := rows.Scan(&s.Seq, &s.RecordedAt, &s.Temperature,
			&s.Humidity, &s.LightLevel, &s.Pressure); err != nil {
			return nil, fmt.Errorf("failed to scan environment row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LatestEnvironment returns the most recent climate reading, nil when
// the log is empty.
func (db *DB) LatestEnvironment(ctx context.Context) (*models.EnvironmentSample, error) {
	start := time.Now()
	var s models.EnvironmentSample
	err := db.conn.QueryRowContext(ctx, `
		SELECT seq, recorded_at, temperature, humidity, light_level, pressure
		FROM environment_samples
		ORDER BY recorded_at DESC, seq DESC
		LIMIT 1`).
		Scan(&s.Seq, &s.RecordedAt, &s.Temperature, &s.Humidity, &s.LightLevel, &s.Pressure)
	metrics.RecordDBQuery("select", "environment_samples", time.Since(start), ignoreNoRows(err))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest environment sample: %w", err)
	}
	return &s, nil
}
