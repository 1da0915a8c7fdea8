// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package models

import "time"

// EnvironmentSample is one append-only row in the environment log.
type EnvironmentSample struct {
	Seq         int64     `json:"seq"`
	RecordedAt  time.Time `json:"recorded_at"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	LightLevel  float64   `json:"light_level"`
	Pressure    float64   `json:"pressure"`
}
