// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package api

import (
	"time"

	"github.com/mkhin/moltwatch/internal/models"
)

// DetectionRequest is the JSON body for POST /api/v1/detections. The
// same fields arrive as form values on the multipart encoding, with the
// image as a binary part instead of base64.
type DetectionRequest struct {
	RFID     string  `json:"rfid" validate:"required,max=64"`
	WeightKG float64 `json:"weight_kg" validate:"required,gt=0"`
	Sex      string  `json:"sex" validate:"omitempty,oneof=Male Female Unknown"`

	// ImageBase64 accepts plain base64 or a data URI.
	ImageBase64 string `json:"image_base64" validate:"required"`

	// CapturedAt is RFC3339; zero means the server clock.
	CapturedAt time.Time `json:"captured_at"`

	// SourceKind distinguishes field stations from manual uploads.
	SourceKind string `json:"source_kind" validate:"omitempty,oneof=station upload"`

	Environment *EnvironmentRequest `json:"environment" validate:"omitempty"`
}

// EnvironmentRequest is the optional climate block attached to a sample.
type EnvironmentRequest struct {
	Temperature float64 `json:"temperature" validate:"gte=-90,lte=60"`
	Humidity    float64 `json:"humidity" validate:"gte=0,lte=100"`
	LightLevel  float64 `json:"light_level" validate:"gte=0"`
	Pressure    float64 `json:"pressure" validate:"gte=0"`
}

// Reading converts the request block to the model type.
func (e *EnvironmentRequest) Reading() *models.EnvironmentReading {
	if e == nil {
		return nil
	}
	return &models.EnvironmentReading{
		Temperature: e.Temperature,
		Humidity:    e.Humidity,
		LightLevel:  e.LightLevel,
		Pressure:    e.Pressure,
	}
}

// UpdateIndividualRequest is the JSON body for PUT /api/v1/penguins/{rfid}.
// Absent fields are left untouched.
type UpdateIndividualRequest struct {
	WeightKG *float64 `json:"weight_kg" validate:"omitempty,gt=0"`
	Sex      *string  `json:"sex" validate:"omitempty,oneof=Male Female Unknown"`
	Notes    *string  `json:"notes" validate:"omitempty,max=2000"`
}

// Update converts the request to the model update.
func (u *UpdateIndividualRequest) Update() *models.IndividualUpdate {
	return &models.IndividualUpdate{
		WeightKG: u.WeightKG,
		Sex:      u.Sex,
		Notes:    u.Notes,
	}
}
