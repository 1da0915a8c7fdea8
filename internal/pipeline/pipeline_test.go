// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/mkhin/moltwatch/internal/classifier"
	"github.com/mkhin/moltwatch/internal/logging"
	"github.com/mkhin/moltwatch/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

type stubSpecies struct {
	result classifier.SpeciesResult
	err    error
	calls  int
}

func (s *stubSpecies) DetectSpecies(_ context.Context, _ []byte) (*classifier.SpeciesResult, error) {
	s.calls++
	return &s.result, s.err
}

type stubMolt struct {
	result classifier.MoltResult
	err    error
	calls  int
}

func (s *stubMolt) ClassifyMolt(_ context.Context, _ []byte) (*classifier.MoltResult, error) {
	s.calls++
	return &s.result, s.err
}

type stubStage struct {
	result classifier.StageResult
	err    error
	calls  int
	gotFea classifier.StageFeatures
}

func (s *stubStage) ClassifyStage(_ context.Context, f classifier.StageFeatures) (*classifier.StageResult, error) {
	s.calls++
	s.gotFea = f
	return &s.result, s.err
}

type stubWeights struct {
	weight float64
	found  bool
	err    error
}

func (s *stubWeights) PreviousWeight(_ context.Context, _ string) (float64, bool, error) {
	return s.weight, s.found, s.err
}

func penguinSpecies() *stubSpecies {
	return &stubSpecies{result: classifier.SpeciesResult{IsTarget: true, Notes: "Detected animals: penguin (0.93)"}}
}

func sample(weight float64) *models.Sample {
	return &models.Sample{
		RFID:       "A1B2C3",
		WeightKG:   weight,
		Sex:        "Female",
		CapturedAt: time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC),
		SourceKind: "station",
		Image:      []byte("imgbytes"),
	}
}

func TestEvaluateHealth(t *testing.T) {
	tests := []struct {
		name        string
		weight      float64
		moltProb    float64
		dailyChange float64
		want        string
	}{
		{"underweight", 2.9, 0.1, 0.0, models.HealthUnderweight},
		{"rapid weight loss", 4.0, 0.1, -0.3, models.HealthRapidWeightLoss},
		{"underweight wins over weight loss", 2.9, 0.1, -0.5, models.HealthUnderweight},
		{"molting", 4.0, 0.6, 0.0, models.HealthMolting},
		{"healthy", 4.5, 0.2, -0.1, models.HealthHealthy},
		{"boundary weight is healthy", 3.0, 0.1, 0.0, models.HealthHealthy},
		{"boundary change is healthy", 4.0, 0.1, -0.2, models.HealthHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateHealth(tt.weight, tt.moltProb, tt.dailyChange); got != tt.want {
				t.Errorf("EvaluateHealth(%v, %v, %v) = %q, want %q", tt.weight, tt.moltProb, tt.dailyChange, got, tt.want)
			}
		})
	}
}

func TestClassifyMoltingWithStage(t *testing.T) {
	stage := &stubStage{result: classifier.StageResult{Stage: models.StageMidMolt, Confidence: 0.88}}
	p := New(penguinSpecies(),
		&stubMolt{result: classifier.MoltResult{MoltProb: 0.55, NormalProb: 0.45}},
		stage,
		&stubWeights{weight: 4.3, found: true})

	v, err := p.Classify(context.Background(), sample(4.2))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if v.Species != models.SpeciesPenguin {
		t.Errorf("species = %q", v.Species)
	}
	if !v.Molting {
		t.Error("expected molting verdict")
	}
	if v.Confidence != 0.55 {
		t.Errorf("confidence = %v, want 0.55", v.Confidence)
	}
	if v.Stage != models.StageMidMolt {
		t.Errorf("stage = %q, want Mid-molt", v.Stage)
	}
	if v.Health != models.HealthMolting {
		t.Errorf("health = %q, want Molting", v.Health)
	}
	if v.StatusColor != models.StatusOrange {
		t.Errorf("status color = %q, want orange", v.StatusColor)
	}
	if v.DailyChange != -0.1 {
		t.Errorf("daily change = %v, want -0.1", v.DailyChange)
	}
	if stage.gotFea.WeightKG != 4.2 || stage.gotFea.Sex != "Female" {
		t.Errorf("stage features = %+v", stage.gotFea)
	}
	if want := "Detected animals: penguin (0.93) | ML Stage Confidence: 0.88"; v.Notes != want {
		t.Errorf("notes = %q, want %q", v.Notes, want)
	}
}

func TestClassifyFallbackStaging(t *testing.T) {
	tests := []struct {
		name      string
		moltProb  float64
		wantStage string
	}{
		{"below 0.7 stages early", 0.6, models.StageEarlyMolt},
		{"at or above 0.7 stages late", 0.8, models.StageLateMolt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(penguinSpecies(),
				&stubMolt{result: classifier.MoltResult{MoltProb: tt.moltProb, NormalProb: 1 - tt.moltProb}},
				&stubStage{err: errors.New("model offline")},
				&stubWeights{})

			v, err := p.Classify(context.Background(), sample(4.2))
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}

			if v.Stage != tt.wantStage {
				t.Errorf("stage = %q, want %q", v.Stage, tt.wantStage)
			}
			if v.Health != models.HealthMolting {
				t.Errorf("health = %q, want Molting", v.Health)
			}
			if v.StatusColor != models.StatusOrange {
				t.Errorf("status color = %q, want orange", v.StatusColor)
			}
			if want := "Detected animals: penguin (0.93) | Fallback staging used"; v.Notes != want {
				t.Errorf("notes = %q, want %q", v.Notes, want)
			}
		})
	}
}

func TestClassifyNonMoltingHealth(t *testing.T) {
	tests := []struct {
		name       string
		weight     float64
		prevWeight float64
		havePrev   bool
		wantHealth string
		wantColor  string
	}{
		{"underweight", 2.9, 0, false, models.HealthUnderweight, models.StatusRed},
		{"rapid weight loss", 4.0, 4.3, true, models.HealthRapidWeightLoss, models.StatusRed},
		{"healthy", 4.5, 4.5, true, models.HealthHealthy, models.StatusGreen},
		{"healthy without history", 4.5, 0, false, models.HealthHealthy, models.StatusGreen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(penguinSpecies(),
				&stubMolt{result: classifier.MoltResult{MoltProb: 0.1, NormalProb: 0.9}},
				&stubStage{},
				&stubWeights{weight: tt.prevWeight, found: tt.havePrev})

			v, err := p.Classify(context.Background(), sample(tt.weight))
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}

			if v.Molting {
				t.Error("expected non-molting verdict")
			}
			if v.Stage != models.StageNonMolting {
				t.Errorf("stage = %q, want Non-molting", v.Stage)
			}
			if v.Health != tt.wantHealth {
				t.Errorf("health = %q, want %q", v.Health, tt.wantHealth)
			}
			if v.StatusColor != tt.wantColor {
				t.Errorf("status color = %q, want %q", v.StatusColor, tt.wantColor)
			}
		})
	}
}

func TestClassifyDailyChangeRounding(t *testing.T) {
	p := New(penguinSpecies(),
		&stubMolt{result: classifier.MoltResult{MoltProb: 0.1, NormalProb: 0.9}},
		&stubStage{},
		&stubWeights{weight: 5.00, found: true})

	v, err := p.Classify(context.Background(), sample(4.76))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if v.DailyChange != -0.24 {
		t.Errorf("daily change = %v, want -0.24", v.DailyChange)
	}
	if v.Health != models.HealthRapidWeightLoss {
		t.Errorf("health = %q, want Rapid Weight Loss", v.Health)
	}
}

func TestClassifyNoHistoryZeroChange(t *testing.T) {
	p := New(penguinSpecies(),
		&stubMolt{result: classifier.MoltResult{MoltProb: 0.1, NormalProb: 0.9}},
		&stubStage{},
		&stubWeights{found: false})

	v, err := p.Classify(context.Background(), sample(4.2))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if v.DailyChange != 0 {
		t.Errorf("daily change = %v, want 0 for first sighting", v.DailyChange)
	}
}

func TestClassifyNotAPenguin(t *testing.T) {
	molt := &stubMolt{result: classifier.MoltResult{MoltProb: 0.9, NormalProb: 0.1}}
	stage := &stubStage{result: classifier.StageResult{Stage: models.StageMidMolt, Confidence: 0.9}}
	p := New(
		&stubSpecies{result: classifier.SpeciesResult{IsTarget: false, Notes: "Detected animals: skua (0.88)"}},
		molt, stage, &stubWeights{})

	v, err := p.Classify(context.Background(), sample(4.2))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if v.Species != models.SpeciesNotPenguin {
		t.Errorf("species = %q", v.Species)
	}
	if v.Stage != models.SpeciesNotPenguin {
		t.Errorf("stage = %q, want Not a Penguin", v.Stage)
	}
	if v.Health != models.HealthDanger {
		t.Errorf("health = %q, want Danger", v.Health)
	}
	if v.StatusColor != models.StatusRed {
		t.Errorf("status color = %q, want red", v.StatusColor)
	}
	if v.Molting {
		t.Error("non-target must not be marked molting")
	}
	if molt.calls != 0 {
		t.Errorf("molt classifier called %d times for non-target", molt.calls)
	}
	if stage.calls != 0 {
		t.Errorf("stage classifier called %d times for non-target", stage.calls)
	}
	if v.Notes != "Detected animals: skua (0.88)" {
		t.Errorf("notes = %q", v.Notes)
	}
}

func TestClassifyDegradedOnSpeciesFailure(t *testing.T) {
	molt := &stubMolt{result: classifier.MoltResult{MoltProb: 0.9, NormalProb: 0.1}}
	p := New(&stubSpecies{err: errors.New("connection refused")}, molt, &stubStage{}, &stubWeights{})

	v, err := p.Classify(context.Background(), sample(4.2))
	if err != nil {
		t.Fatalf("degraded classification must not error: %v", err)
	}

	if v.Stage != models.StageUnknown {
		t.Errorf("stage = %q, want Unknown", v.Stage)
	}
	if v.Health != models.HealthUnknown {
		t.Errorf("health = %q, want Unknown", v.Health)
	}
	if v.StatusColor != models.StatusBlack {
		t.Errorf("status color = %q, want black", v.StatusColor)
	}
	if v.WeightKG != 4.2 {
		t.Errorf("weight = %v, degraded verdict must keep the sample weight", v.WeightKG)
	}
	if v.Notes == "" {
		t.Error("degraded verdict must note the outage")
	}
	if molt.calls != 0 {
		t.Error("molt classifier must not run after species outage")
	}
}

func TestClassifyDegradedOnMoltFailure(t *testing.T) {
	stage := &stubStage{result: classifier.StageResult{Stage: models.StageMidMolt}}
	p := New(penguinSpecies(), &stubMolt{err: errors.New("timeout")}, stage, &stubWeights{})

	v, err := p.Classify(context.Background(), sample(4.2))
	if err != nil {
		t.Fatalf("degraded classification must not error: %v", err)
	}

	if v.Stage != models.StageUnknown || v.Health != models.HealthUnknown || v.StatusColor != models.StatusBlack {
		t.Errorf("verdict = stage %q health %q color %q, want Unknown/Unknown/black", v.Stage, v.Health, v.StatusColor)
	}
	if v.Species != models.SpeciesPenguin {
		t.Errorf("species = %q, species check already passed", v.Species)
	}
	if stage.calls != 0 {
		t.Error("stage classifier must not run after molt outage")
	}
}

func TestClassifyStorageFailure(t *testing.T) {
	p := New(penguinSpecies(),
		&stubMolt{result: classifier.MoltResult{MoltProb: 0.1, NormalProb: 0.9}},
		&stubStage{},
		&stubWeights{err: errors.New("database locked")})

	_, err := p.Classify(context.Background(), sample(4.2))
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError, got: %v", err)
	}
}

func TestClassifyZeroCapturedAtDefaultsToNow(t *testing.T) {
	p := New(penguinSpecies(),
		&stubMolt{result: classifier.MoltResult{MoltProb: 0.1, NormalProb: 0.9}},
		&stubStage{},
		&stubWeights{})

	s := sample(4.2)
	s.CapturedAt = time.Time{}
	before := time.Now()
	v, err := p.Classify(context.Background(), s)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if v.DetectionTime.Before(before) {
		t.Errorf("detection time %v not defaulted to now", v.DetectionTime)
	}
}
