// Moltwatch - Penguin Molt Detection and Colony Telemetry
// Copyright 2026 M. Khin (mkhin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkhin/moltwatch

package pipeline

import "github.com/mkhin/moltwatch/internal/models"

// EvaluateHealth applies the colony health rules, first match wins.
//
// The moltProb rule looks unreachable from Classify, which routes only
// moltProb < 0.5 samples here. It is kept because the evaluator is also
// used standalone by the manual-update path, where molt probability is
// not pre-branched.
func EvaluateHealth(weightKG, moltProb, dailyChange float64) string {
	switch {
	case weightKG < 3.0:
		return models.HealthUnderweight
	case dailyChange < -0.2:
		return models.HealthRapidWeightLoss
	case moltProb > 0.5:
		return models.HealthMolting
	default:
		return models.HealthHealthy
	}
}
