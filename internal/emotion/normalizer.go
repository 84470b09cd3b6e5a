// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package emotion

import (
	"math"
	"sort"

	"github.com/halcyonlabs/halcyon/internal/logging"
)

const (
	// neutralEnergy is the fallback energy level when no recognized
	// emotion carries probability mass.
	neutralEnergy = 0.5

	// maxEnergyHintDrift is the largest difference tolerated between a
	// caller-supplied energy hint and the computed value before the
	// computed value overrides the hint.
	maxEnergyHintDrift = 0.3
)

// Normalize converts raw emotion readings into a Context.
//
// Probabilities outside [0, 1] (or NaN) invalidate the reading: it is
// skipped with a warning and contributes to neither the energy level nor
// the dominant emotion. Unrecognized emotion names are kept as dominant
// candidates but excluded from the energy average. Empty or fully-unknown
// input yields the neutral fallback (energy 0.5, dominant neutral/0.5)
// rather than an error.
func Normalize(readings []Reading) Context {
	valid := make([]Reading, 0, len(readings))
	var weighted, mass float64

	for _, r := range readings {
		if math.IsNaN(r.Probability) || r.Probability < 0 || r.Probability > 1 {
			logging.Warn().
				Str("emotion", string(r.Name)).
				Float64("probability", r.Probability).
				Msg("ignoring emotion reading with out-of-range probability")
			continue
		}
		valid = append(valid, r)

		if w, ok := EnergyWeight(r.Name); ok {
			weighted += r.Probability * w
			mass += r.Probability
		}
	}

	energy := neutralEnergy
	if mass > 0 {
		energy = clamp01(weighted / mass)
	}

	return Context{
		Emotions:    valid,
		EnergyLevel: energy,
		Dominant:    dominantOf(valid),
	}
}

// NormalizeMap is a convenience wrapper for callers holding a probability
// map. Map iteration order is not stable in Go, so keys are sorted to keep
// dominant-emotion tie-breaking deterministic.
func NormalizeMap(probs map[Name]float64) Context {
	names := make([]Name, 0, len(probs))
	for n := range probs {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	readings := make([]Reading, 0, len(names))
	for _, n := range names {
		readings = append(readings, Reading{Name: n, Probability: probs[n]})
	}
	return Normalize(readings)
}

// ReconcileEnergy resolves a caller-supplied energy hint against the value
// computed from emotions. Hints that disagree with the computed value by
// more than 0.3 are discarded, protecting scoring from inconsistent
// upstream input.
func ReconcileEnergy(computed, hint float64) float64 {
	if math.IsNaN(hint) || hint < 0 || hint > 1 {
		logging.Warn().
			Float64("hint", hint).
			Msg("ignoring out-of-range energy hint")
		return computed
	}
	if math.Abs(hint-computed) > maxEnergyHintDrift {
		logging.Warn().
			Float64("hint", hint).
			Float64("computed", computed).
			Msg("energy hint disagrees with computed level, using computed")
		return computed
	}
	return hint
}

// dominantOf selects the highest-probability reading, ties broken by input
// order. Empty input defaults to neutral at the fallback energy.
func dominantOf(readings []Reading) Dominant {
	if len(readings) == 0 {
		return Dominant{Name: Neutral, Probability: neutralEnergy}
	}

	best := readings[0]
	for _, r := range readings[1:] {
		if r.Probability > best.Probability {
			best = r
		}
	}
	return Dominant{Name: best.Name, Probability: best.Probability}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
