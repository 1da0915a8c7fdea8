// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package database

import "fmt"

// initSchema creates the tables and sequences if they do not exist.
// DuckDB has no AUTO_INCREMENT; append-only logs use explicit sequences.
func (db *DB) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS penguins (
			rfid VARCHAR PRIMARY KEY,
			last_weight_kg DOUBLE NOT NULL DEFAULT 0,
			molting BOOLEAN NOT NULL DEFAULT FALSE,
			confidence DOUBLE NOT NULL DEFAULT 0,
			last_detection_time TIMESTAMP,
			first_seen TIMESTAMP NOT NULL,
			notes VARCHAR NOT NULL DEFAULT '',
			sex VARCHAR NOT NULL DEFAULT '',
			stage_name VARCHAR NOT NULL DEFAULT 'Unknown',
			daily_change DOUBLE NOT NULL DEFAULT 0,
			health VARCHAR NOT NULL DEFAULT 'Unknown'
		)`,

		`CREATE SEQUENCE IF NOT EXISTS detections_seq START 1`,

		`CREATE TABLE IF NOT EXISTS detections (
			seq BIGINT PRIMARY KEY DEFAULT nextval('detections_seq'),
			id UUID NOT NULL,
			rfid VARCHAR NOT NULL,
			image_path VARCHAR NOT NULL DEFAULT '',
			detection_time TIMESTAMP NOT NULL,
			species VARCHAR NOT NULL,
			molting BOOLEAN NOT NULL,
			confidence DOUBLE NOT NULL,
			source_kind VARCHAR NOT NULL,
			weight_kg DOUBLE NOT NULL,
			stage_name VARCHAR NOT NULL,
			daily_change DOUBLE NOT NULL DEFAULT 0,
			health VARCHAR NOT NULL,
			notes VARCHAR NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_detections_rfid ON detections(rfid)`,
		`CREATE INDEX IF NOT EXISTS idx_detections_time ON detections(detection_time)`,

		`CREATE SEQUENCE IF NOT EXISTS environment_seq START 1`,

		`CREATE TABLE IF NOT EXISTS environment_samples (
			seq BIGINT PRIMARY KEY DEFAULT nextval('environment_seq'),
			recorded_at TIMESTAMP NOT NULL,
			temperature DOUBLE NOT NULL,
			humidity DOUBLE NOT NULL,
			light_level DOUBLE NOT NULL,
			pressure DOUBLE NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_environment_time ON environment_samples(recorded_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
