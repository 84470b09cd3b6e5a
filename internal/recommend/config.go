// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package recommend

import (
	"fmt"
	"time"
)

// Factor names used in weight tables and score breakdowns.
const (
	// FactorEmotion is the probability-weighted emotion tag overlap.
	FactorEmotion = "emotion"
	// FactorEnergy is the closeness of candidate and context energy.
	FactorEnergy = "energy"
	// FactorAcceptance is the historical acceptance rate.
	FactorAcceptance = "acceptance"
	// FactorRating is the optional static rating, normalized.
	FactorRating = "rating"
	// FactorPreference is the preferred-category overlap ratio.
	FactorPreference = "preference"
	// FactorNovelty rewards candidates not recently recommended.
	FactorNovelty = "novelty"
	// FactorEmotionAppropriateness is the emotion fit used by theme
	// tables; it shares the emotion-match computation.
	FactorEmotionAppropriateness = "emotion_appropriateness"

	// Task multipliers, produced by the task domain shaper.
	FactorPriority    = "priority"
	FactorUrgency     = "urgency"
	FactorCorrelation = "correlation"
	FactorComplexity  = "complexity"
)

// CompositionKind selects how a domain combines its factors.
type CompositionKind string

const (
	// CompositionAdditive combines factors as a weighted sum.
	CompositionAdditive CompositionKind = "additive"
	// CompositionMultiplicative combines factors as a product of
	// weighted terms (factor^weight), with the energy factor as base.
	CompositionMultiplicative CompositionKind = "multiplicative"
)

// FactorWeights maps factor names to their weights within a table.
type FactorWeights map[string]float64

// Clone returns a copy of the weight table.
func (w FactorWeights) Clone() FactorWeights {
	out := make(FactorWeights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// DomainTable is one domain's scoring configuration.
type DomainTable struct {
	// Composition selects the factor composition strategy.
	Composition CompositionKind `json:"composition"`

	// Weights is the factor weight table. For additive tables weights
	// are relative contributions; for multiplicative tables they are
	// exponents on each multiplier (1.0 = use as-is, 0 = disable).
	Weights FactorWeights `json:"weights"`
}

// Config contains all configuration for candidate scoring.
type Config struct {
	// Tables holds the per-domain weight tables. Domains are
	// configuration, not hardcoded logic: the scorer is table-agnostic.
	Tables map[Domain]DomainTable `json:"tables"`

	// PreferenceBonus is added once per overlapping preferred category,
	// after composition and before the recency penalty.
	// Default: 0.1.
	PreferenceBonus float64 `json:"preference_bonus"`

	// RecencyPenaltyBase is the decay multiplier applied once per
	// recent recommendation of the same candidate.
	// Default: 0.8.
	RecencyPenaltyBase float64 `json:"recency_penalty_base"`

	// RecencyPenaltyWindow is how far back repeats are counted.
	// Default: 2h.
	RecencyPenaltyWindow time.Duration `json:"recency_penalty_window"`
}

// DefaultConfig returns the reference weight tables and penalties.
func DefaultConfig() *Config {
	return &Config{
		Tables: map[Domain]DomainTable{
			DomainMusic: {
				Composition: CompositionAdditive,
				Weights: FactorWeights{
					FactorEmotion:    0.4,
					FactorEnergy:     0.3,
					FactorAcceptance: 0.2,
					FactorRating:     0.1,
				},
			},
			DomainTheme: {
				Composition: CompositionAdditive,
				Weights: FactorWeights{
					FactorEnergy:                 0.3,
					FactorPreference:             0.4,
					FactorEmotionAppropriateness: 0.2,
					FactorNovelty:                0.1,
				},
			},
			DomainTask: {
				Composition: CompositionMultiplicative,
				Weights: FactorWeights{
					FactorEnergy:      1.0,
					FactorPriority:    1.0,
					FactorUrgency:     1.0,
					FactorCorrelation: 1.0,
					FactorComplexity:  1.0,
				},
			},
		},
		PreferenceBonus:      0.1,
		RecencyPenaltyBase:   0.8,
		RecencyPenaltyWindow: 2 * time.Hour,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one domain table is required")
	}
	for domain, table := range c.Tables {
		switch table.Composition {
		case CompositionAdditive, CompositionMultiplicative:
		default:
			return fmt.Errorf("tables.%s: unknown composition %q", domain, table.Composition)
		}
		if len(table.Weights) == 0 {
			return fmt.Errorf("tables.%s: empty weight table", domain)
		}
		for factor, weight := range table.Weights {
			if weight < 0 {
				return fmt.Errorf("tables.%s.%s: weight must be non-negative, got %f", domain, factor, weight)
			}
		}
	}
	if c.PreferenceBonus < 0 {
		return fmt.Errorf("preference_bonus must be non-negative, got %f", c.PreferenceBonus)
	}
	if c.RecencyPenaltyBase <= 0 || c.RecencyPenaltyBase > 1 {
		return fmt.Errorf("recency_penalty_base must be in (0, 1], got %f", c.RecencyPenaltyBase)
	}
	if c.RecencyPenaltyWindow <= 0 {
		return fmt.Errorf("recency_penalty_window must be positive, got %v", c.RecencyPenaltyWindow)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := &Config{
		Tables:               make(map[Domain]DomainTable, len(c.Tables)),
		PreferenceBonus:      c.PreferenceBonus,
		RecencyPenaltyBase:   c.RecencyPenaltyBase,
		RecencyPenaltyWindow: c.RecencyPenaltyWindow,
	}
	for domain, table := range c.Tables {
		out.Tables[domain] = DomainTable{
			Composition: table.Composition,
			Weights:     table.Weights.Clone(),
		}
	}
	return out
}
