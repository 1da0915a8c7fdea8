// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package models

import "time"

// Individual is the per-penguin summary row, keyed by RFID tag. It holds
// the most recent verdict fields so herd views never need to scan the
// detections log.
type Individual struct {
	RFID              string     `json:"rfid"`
	LastWeightKG      float64    `json:"last_weight_kg"`
	Molting           bool       `json:"molting"`
	Confidence        float64    `json:"confidence"`
	LastDetectionTime *time.Time `json:"last_detection_time,omitempty"`
	FirstSeen         time.Time  `json:"first_seen"`
	Notes             string     `json:"notes,omitempty"`
	Sex               string     `json:"sex,omitempty"`
	StageName         string     `json:"stage_name"`
	DailyChange       float64    `json:"daily_change"`
	Health            string     `json:"health"`

	// DetectionCount is populated on list views only.
	DetectionCount int `json:"detection_count,omitempty"`
}

// IndividualUpdate carries a manual correction from the colony keepers.
// Nil fields are left untouched.
type IndividualUpdate struct {
	WeightKG *float64
	Sex      *string
	Notes    *string
}
