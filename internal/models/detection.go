// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

// Package models defines the data structures shared across Moltwatch:
// ingest samples, classification verdicts, persisted records, and live
// feed snapshots.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Species labels produced by the species detector.
const (
	SpeciesPenguin    = "Penguin"
	SpeciesNotPenguin = "Not a Penguin"
)

// Molt stages. Pre/Mid/Post come from the stage classifier; Early/Late are
// the deterministic fallback when it is unavailable. StageUnknown is the
// degraded-pipeline default.
const (
	StagePreMolt    = "Pre-molt"
	StageMidMolt    = "Mid-molt"
	StagePostMolt   = "Post-molt"
	StageEarlyMolt  = "Early-molt"
	StageLateMolt   = "Late-molt"
	StageNonMolting = "Non-molting"
	StageUnknown    = "Unknown"
)

// Health states assigned by the health evaluator.
const (
	HealthHealthy         = "Healthy"
	HealthUnderweight     = "Underweight"
	HealthRapidWeightLoss = "Rapid Weight Loss"
	HealthMolting         = "Molting"
	HealthDanger          = "Danger"
	HealthUnknown         = "Unknown"
)

// Status colors for dashboard rendering.
const (
	StatusGreen  = "green"
	StatusOrange = "orange"
	StatusRed    = "red"
	StatusBlack  = "black"
)

// Sample is one observation arriving from a field station: a weighed
// individual plus the photo taken on the weighbridge. Environment is
// optional; stations with climate sensors attach one reading per sample.
type Sample struct {
	RFID       string
	WeightKG   float64
	Sex        string
	CapturedAt time.Time
	SourceKind string // "station" or "upload"
	Image      []byte

	// ImagePath is the public path of the stored image, set once the
	// upload store has accepted the bytes.
	ImagePath string

	Environment *EnvironmentReading
}

// EnvironmentReading is a climate observation attached to a sample.
type EnvironmentReading struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	LightLevel  float64 `json:"light_level"`
	Pressure    float64 `json:"pressure"`
}

// Verdict is the full classification outcome for one sample. This is what
// ingest responds with and what the live snapshot is built from.
type Verdict struct {
	RFID          string    `json:"rfid"`
	Species       string    `json:"species"`
	Molting       bool      `json:"molting"`
	Confidence    float64   `json:"confidence"`
	Stage         string    `json:"stage"`
	Health        string    `json:"health"`
	StatusColor   string    `json:"status_color"`
	WeightKG      float64   `json:"weight_kg"`
	DailyChange   float64   `json:"daily_change"`
	ImagePath     string    `json:"image_path,omitempty"`
	DetectionTime time.Time `json:"detection_time"`

	// Notes carries degradation markers such as a fallback staging or a
	// classifier outage, empty on the clean path.
	Notes string `json:"notes,omitempty"`
}

// DetectionRecord is one append-only row in the detections log.
type DetectionRecord struct {
	ID            uuid.UUID `json:"id"`
	Seq           int64     `json:"seq"`
	RFID          string    `json:"rfid"`
	ImagePath     string    `json:"image_path,omitempty"`
	DetectionTime time.Time `json:"detection_time"`
	Species       string    `json:"species"`
	Molting       bool      `json:"molting"`
	Confidence    float64   `json:"confidence"`
	SourceKind    string    `json:"source_kind"`
	WeightKG      float64   `json:"weight_kg"`
	StageName     string    `json:"stage_name"`
	DailyChange   float64   `json:"daily_change"`
	Health        string    `json:"health"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// StatusColorFor maps a health state to its dashboard color. Unknown maps
// to black so a degraded verdict is visually distinct from a healthy one.
func StatusColorFor(health string) string {
	switch health {
	case HealthMolting:
		return StatusOrange
	case HealthUnderweight, HealthRapidWeightLoss, HealthDanger:
		return StatusRed
	case HealthHealthy:
		return StatusGreen
	default:
		return StatusBlack
	}
}
