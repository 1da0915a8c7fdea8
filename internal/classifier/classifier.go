// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

// Package classifier defines the capability contracts the pipeline chains
// together, plus HTTP clients for the out-of-process model servers that
// implement them. Each client is wrapped in a circuit breaker so a dead
// model server degrades the pipeline instead of stalling ingest.
package classifier

import (
	"context"
	"time"
)

// SpeciesResult is the species detector's answer for one image. Notes
// lists what the detector saw ("Detected animals: penguin (0.94)") and is
// carried onto the verdict.
type SpeciesResult struct {
	IsTarget bool   `json:"is_target"`
	Notes    string `json:"notes"`
}

// MoltResult is the molt classifier's probability pair. The two
// probabilities are independent model outputs and need not sum to one.
type MoltResult struct {
	MoltProb   float64 `json:"molt_prob"`
	NormalProb float64 `json:"normal_prob"`
}

// StageResult is the stage classifier's answer for a molting individual,
// one of Pre-molt, Mid-molt, or Post-molt.
type StageResult struct {
	Stage      string  `json:"stage"`
	Confidence float64 `json:"confidence"`
}

// StageFeatures are the tabular inputs the stage model was trained on.
// The model derives its seasonality features from Date server-side.
type StageFeatures struct {
	WeightKG float64   `json:"weight_kg"`
	Sex      string    `json:"sex,omitempty"`
	Date     time.Time `json:"date"`
}

// SpeciesDetector decides whether the photographed animal is the target
// species.
type SpeciesDetector interface {
	DetectSpecies(ctx context.Context, image []byte) (*SpeciesResult, error)
}

// MoltClassifier scores molt likelihood for a confirmed target-species
// image.
type MoltClassifier interface {
	ClassifyMolt(ctx context.Context, image []byte) (*MoltResult, error)
}

// StageClassifier names the molt stage from weight, sex, and observation
// date. It is the most fragile capability; callers must be prepared for it
// to fail and fall back.
type StageClassifier interface {
	ClassifyStage(ctx context.Context, features StageFeatures) (*StageResult, error)
}
