// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mkhin/moltwatch/internal/metrics"
	"github.com/mkhin/moltwatch/internal/models"
)

// DashboardStats aggregates colony state in one round trip per table.
// Attention covers Underweight and Rapid Weight Loss; Danger covers
// non-penguin intrusions recorded on a tagged feeder.
func (db *DB) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	start := time.Now()
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE health = 'Molting'),
		       COUNT(*) FILTER (WHERE health = 'Healthy'),
		       COUNT(*) FILTER (WHERE health IN ('Underweight', 'Rapid Weight Loss')),
		       COUNT(*) FILTER (WHERE health = 'Danger')
		FROM penguins`).
		Scan(&stats.TotalIndividuals, &stats.MoltingCount, &stats.HealthyCount,
			&stats.AttentionCount, &stats.DangerCount)
	metrics.RecordDBQuery("select", "penguins", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate penguin stats: %w", err)
	}

	start = time.Now()
	err = db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE detection_time >= date_trunc('day', now()))
		FROM detections`).
		Scan(&stats.TotalDetections, &stats.DetectionsToday)
	metrics.RecordDBQuery("select", "detections", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate detection stats: %w", err)
	}

	latest, err := db.LatestEnvironment(ctx)
	if err != nil {
		return nil, err
	}
	stats.LatestEnvironment = latest

	return stats, nil
}
