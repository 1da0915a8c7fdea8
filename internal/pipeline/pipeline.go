// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

// Package pipeline chains the capability classifiers into one verdict per
// sample: species check, molt probability, stage assignment with
// deterministic fallback, and the health evaluation.
//
// The pipeline degrades rather than fails: a dead stage classifier falls
// back to threshold staging, and a dead species or molt model yields a
// persisted verdict with Unknown fields so the detection log never loses
// a weighed sample.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mkhin/moltwatch/internal/classifier"
	"github.com/mkhin/moltwatch/internal/logging"
	"github.com/mkhin/moltwatch/internal/metrics"
	"github.com/mkhin/moltwatch/internal/models"
)

// WeightLookup is the slice of the persistence gateway the pipeline
// needs: the individual's previous recorded weight, if any.
type WeightLookup interface {
	PreviousWeight(ctx context.Context, rfid string) (float64, bool, error)
}

// Pipeline runs one sample through the classifier chain.
type Pipeline struct {
	species classifier.SpeciesDetector
	molt    classifier.MoltClassifier
	stage   classifier.StageClassifier
	weights WeightLookup
}

// New assembles the pipeline from its capability classifiers and the
// previous-weight lookup.
func New(species classifier.SpeciesDetector, molt classifier.MoltClassifier, stage classifier.StageClassifier, weights WeightLookup) *Pipeline {
	return &Pipeline{
		species: species,
		molt:    molt,
		stage:   stage,
		weights: weights,
	}
}

// Classify produces the verdict for one sample. It returns an error only
// for storage failures on the previous-weight lookup; classifier outages
// degrade the verdict instead.
func (p *Pipeline) Classify(ctx context.Context, sample *models.Sample) (*models.Verdict, error) {
	start := time.Now()
	defer func() { metrics.PipelineDuration.Observe(time.Since(start).Seconds()) }()

	detectionTime := sample.CapturedAt
	if detectionTime.IsZero() {
		detectionTime = time.Now()
	}

	verdict := &models.Verdict{
		RFID:          sample.RFID,
		WeightKG:      sample.WeightKG,
		ImagePath:     sample.ImagePath,
		DetectionTime: detectionTime,
		Stage:         models.StageUnknown,
		Health:        models.HealthUnknown,
		StatusColor:   models.StatusBlack,
	}

	speciesRes, err := p.species.DetectSpecies(ctx, sample.Image)
	if err != nil {
		p.degrade(verdict, &CapabilityError{Stage: "species", Err: err})
		return verdict, nil
	}
	verdict.Notes = speciesRes.Notes

	if !speciesRes.IsTarget {
		verdict.Species = models.SpeciesNotPenguin
		verdict.Stage = models.SpeciesNotPenguin
		verdict.Health = models.HealthDanger
		verdict.StatusColor = models.StatusRed
		return verdict, nil
	}
	verdict.Species = models.SpeciesPenguin

	moltRes, err := p.molt.ClassifyMolt(ctx, sample.Image)
	if err != nil {
		p.degrade(verdict, &CapabilityError{Stage: "molt", Err: err})
		return verdict, nil
	}

	verdict.Molting = moltRes.MoltProb > moltRes.NormalProb
	verdict.Confidence = math.Max(moltRes.MoltProb, moltRes.NormalProb)

	prevWeight, havePrev, err := p.weights.PreviousWeight(ctx, sample.RFID)
	if err != nil {
		return nil, &StorageError{Op: "previous weight lookup", Err: err}
	}
	if havePrev {
		verdict.DailyChange = round2(sample.WeightKG - prevWeight)
	}

	if moltRes.MoltProb >= 0.5 {
		p.assignStage(ctx, sample, moltRes.MoltProb, detectionTime, verdict)
	} else {
		verdict.Stage = models.StageNonMolting
		verdict.Health = EvaluateHealth(sample.WeightKG, moltRes.MoltProb, verdict.DailyChange)
	}

	verdict.StatusColor = models.StatusColorFor(verdict.Health)
	return verdict, nil
}

// assignStage consults the stage classifier and falls back to threshold
// staging when it fails. Both paths mean the individual is molting.
func (p *Pipeline) assignStage(ctx context.Context, sample *models.Sample, moltProb float64, detectionTime time.Time, verdict *models.Verdict) {
	stageRes, err := p.stage.ClassifyStage(ctx, classifier.StageFeatures{
		WeightKG: sample.WeightKG,
		Sex:      sample.Sex,
		Date:     detectionTime,
	})
	if err == nil {
		verdict.Stage = stageRes.Stage
		verdict.Notes = fmt.Sprintf("%s | ML Stage Confidence: %.2f", verdict.Notes, stageRes.Confidence)
	} else {
		metrics.ClassifierFailures.WithLabelValues("stage").Inc()
		metrics.FallbackStagings.Inc()
		logging.Warn().Err(err).Str("rfid", sample.RFID).Float64("molt_prob", moltProb).
			Msg("stage classifier failed, using fallback staging")

		if moltProb < 0.7 {
			verdict.Stage = models.StageEarlyMolt
		} else {
			verdict.Stage = models.StageLateMolt
		}
		verdict.Notes = verdict.Notes + " | Fallback staging used"
	}
	verdict.Health = models.HealthMolting
}

// degrade records a species or molt outage on the verdict. The sample is
// still persisted so the weighing is never lost; stage, health, and color
// keep their Unknown defaults.
func (p *Pipeline) degrade(verdict *models.Verdict, capErr *CapabilityError) {
	metrics.ClassifierFailures.WithLabelValues(capErr.Stage).Inc()
	logging.Error().Err(capErr.Err).Str("rfid", verdict.RFID).Str("stage", capErr.Stage).
		Msg("classifier unavailable, recording degraded verdict")
	verdict.Notes = capErr.Error()
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
