// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package models

import "time"

// LiveSnapshot is the merged view of the latest classified sample,
// published on the live bus and streamed to dashboard subscribers.
// Snapshots are immutable once published.
type LiveSnapshot struct {
	RFID          string    `json:"rfid"`
	WeightKG      float64   `json:"weight_kg"`
	Species       string    `json:"species"`
	Molting       bool      `json:"molting"`
	Confidence    float64   `json:"confidence"`
	Stage         string    `json:"stage"`
	Health        string    `json:"health"`
	StatusColor   string    `json:"status_color"`
	DailyChange   float64   `json:"daily_change"`
	ImagePath     string    `json:"image_path,omitempty"`
	DetectionTime time.Time `json:"detection_time"`

	// Environment is present when the originating sample carried a
	// climate reading.
	Environment *EnvironmentReading `json:"environment,omitempty"`
}

// SnapshotFromVerdict builds the live snapshot for a classified sample.
func SnapshotFromVerdict(v *Verdict, env *EnvironmentReading) *LiveSnapshot {
	return &LiveSnapshot{
		RFID:          v.RFID,
		WeightKG:      v.WeightKG,
		Species:       v.Species,
		Molting:       v.Molting,
		Confidence:    v.Confidence,
		Stage:         v.Stage,
		Health:        v.Health,
		StatusColor:   v.StatusColor,
		DailyChange:   v.DailyChange,
		ImagePath:     v.ImagePath,
		DetectionTime: v.DetectionTime,
		Environment:   env,
	}
}
