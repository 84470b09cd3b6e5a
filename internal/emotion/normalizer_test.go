// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package emotion

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		readings     []Reading
		wantEnergy   float64
		wantDominant Name
		wantDomProb  float64
	}{
		{
			name: "happy dominant with mixed probabilities",
			readings: []Reading{
				{Name: Happy, Probability: 0.8},
				{Name: Neutral, Probability: 0.2},
			},
			// (0.8*0.8 + 0.2*0.5) / 1.0 = 0.74
			wantEnergy:   0.74,
			wantDominant: Happy,
			wantDomProb:  0.8,
		},
		{
			name:         "empty input falls back to neutral",
			readings:     nil,
			wantEnergy:   0.5,
			wantDominant: Neutral,
			wantDomProb:  0.5,
		},
		{
			name: "single sad reading",
			readings: []Reading{
				{Name: Sad, Probability: 1.0},
			},
			wantEnergy:   0.1,
			wantDominant: Sad,
			wantDomProb:  1.0,
		},
		{
			name: "tie broken by input order",
			readings: []Reading{
				{Name: Angry, Probability: 0.5},
				{Name: Happy, Probability: 0.5},
			},
			// (0.5*0.4 + 0.5*0.8) / 1.0 = 0.6
			wantEnergy:   0.6,
			wantDominant: Angry,
			wantDomProb:  0.5,
		},
		{
			name: "out-of-range probability skipped",
			readings: []Reading{
				{Name: Happy, Probability: 1.7},
				{Name: Sad, Probability: 0.4},
			},
			wantEnergy:   0.1,
			wantDominant: Sad,
			wantDomProb:  0.4,
		},
		{
			name: "NaN probability skipped",
			readings: []Reading{
				{Name: Happy, Probability: math.NaN()},
				{Name: Fearful, Probability: 0.3},
			},
			wantEnergy:   0.2,
			wantDominant: Fearful,
			wantDomProb:  0.3,
		},
		{
			name: "all readings invalid falls back to neutral",
			readings: []Reading{
				{Name: Happy, Probability: -0.2},
				{Name: Sad, Probability: 2.0},
			},
			wantEnergy:   0.5,
			wantDominant: Neutral,
			wantDomProb:  0.5,
		},
		{
			name: "unrecognized emotion excluded from energy but dominant-eligible",
			readings: []Reading{
				{Name: Name("nostalgic"), Probability: 0.9},
				{Name: Happy, Probability: 0.1},
			},
			// Energy mass comes only from happy: 0.1*0.8/0.1 = 0.8.
			wantEnergy:   0.8,
			wantDominant: Name("nostalgic"),
			wantDomProb:  0.9,
		},
		{
			name: "zero probability readings keep neutral energy",
			readings: []Reading{
				{Name: Happy, Probability: 0},
				{Name: Sad, Probability: 0},
			},
			wantEnergy:   0.5,
			wantDominant: Happy,
			wantDomProb:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.readings)

			if !almostEqual(got.EnergyLevel, tt.wantEnergy) {
				t.Errorf("EnergyLevel = %f, want %f", got.EnergyLevel, tt.wantEnergy)
			}
			if got.Dominant.Name != tt.wantDominant {
				t.Errorf("Dominant.Name = %q, want %q", got.Dominant.Name, tt.wantDominant)
			}
			if !almostEqual(got.Dominant.Probability, tt.wantDomProb) {
				t.Errorf("Dominant.Probability = %f, want %f", got.Dominant.Probability, tt.wantDomProb)
			}
			if got.EnergyLevel < 0 || got.EnergyLevel > 1 {
				t.Errorf("EnergyLevel = %f outside [0, 1]", got.EnergyLevel)
			}
		})
	}
}

func TestNormalizeMapDeterministic(t *testing.T) {
	probs := map[Name]float64{
		Happy:     0.5,
		Angry:     0.5,
		Surprised: 0.5,
	}

	first := NormalizeMap(probs)
	for range 50 {
		got := NormalizeMap(probs)
		if got.Dominant.Name != first.Dominant.Name {
			t.Fatalf("Dominant.Name = %q, want stable %q", got.Dominant.Name, first.Dominant.Name)
		}
		if !almostEqual(got.EnergyLevel, first.EnergyLevel) {
			t.Fatalf("EnergyLevel = %f, want stable %f", got.EnergyLevel, first.EnergyLevel)
		}
	}

	// Sorted-key tie-breaking: angry < happy < surprised.
	if first.Dominant.Name != Angry {
		t.Errorf("Dominant.Name = %q, want %q (first sorted key among ties)", first.Dominant.Name, Angry)
	}
}

func TestReconcileEnergy(t *testing.T) {
	tests := []struct {
		name     string
		computed float64
		hint     float64
		want     float64
	}{
		{name: "close hint wins", computed: 0.6, hint: 0.7, want: 0.7},
		{name: "hint near drift boundary wins", computed: 0.5, hint: 0.75, want: 0.75},
		{name: "divergent hint discarded", computed: 0.2, hint: 0.9, want: 0.2},
		{name: "negative hint discarded", computed: 0.4, hint: -0.1, want: 0.4},
		{name: "hint above one discarded", computed: 0.4, hint: 1.5, want: 0.4},
		{name: "NaN hint discarded", computed: 0.4, hint: math.NaN(), want: 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReconcileEnergy(tt.computed, tt.hint); !almostEqual(got, tt.want) {
				t.Errorf("ReconcileEnergy(%f, %f) = %f, want %f", tt.computed, tt.hint, got, tt.want)
			}
		})
	}
}

func TestContextProbability(t *testing.T) {
	ctx := Normalize([]Reading{
		{Name: Happy, Probability: 0.6},
		{Name: Sad, Probability: 0.4},
	})

	if got := ctx.Probability(Happy); !almostEqual(got, 0.6) {
		t.Errorf("Probability(happy) = %f, want 0.6", got)
	}
	if got := ctx.Probability(Disgusted); got != 0 {
		t.Errorf("Probability(disgusted) = %f, want 0", got)
	}
}
