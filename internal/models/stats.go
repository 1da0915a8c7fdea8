// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package models

// DashboardStats aggregates colony state for the operations dashboard.
type DashboardStats struct {
	TotalIndividuals int `json:"total_individuals"`
	TotalDetections  int `json:"total_detections"`
	DetectionsToday  int `json:"detections_today"`
	MoltingCount     int `json:"molting_count"`
	HealthyCount     int `json:"healthy_count"`
	AttentionCount   int `json:"attention_count"`
	DangerCount      int `json:"danger_count"`

	LatestEnvironment *EnvironmentSample `json:"latest_environment,omitempty"`
}
