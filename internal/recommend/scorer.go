// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/halcyonlabs/halcyon/internal/clock"
	"github.com/halcyonlabs/halcyon/internal/emotion"
)

const (
	// neutralFactor is the value a factor takes when its input is
	// unknown (no tags, no rating, no feedback).
	neutralFactor = 0.5

	// noMatchFactor is the emotion-match value when a candidate carries
	// tags but none of them appear in the context.
	noMatchFactor = 0.1
)

// Shaper contributes domain-specific factors and reasons for a candidate.
// The scorer itself is weight-table-agnostic; shapers are how domains
// inject multipliers like task urgency without the scorer knowing about
// due dates.
type Shaper interface {
	// Domain returns the domain this shaper serves.
	Domain() Domain

	// Shape returns extra factor values and reason strings for the
	// candidate. Returned factors participate in composition if the
	// domain's weight table names them.
	Shape(ctx emotion.Context, cand Candidate, model *PreferenceModel) (map[string]float64, []string)
}

// Scorer ranks candidate pools against a normalized emotion context.
// Scoring is pure and deterministic: identical inputs (context, pool,
// preference snapshot, history) produce identical rankings and scores.
// It is safe for concurrent use.
type Scorer struct {
	cfg     *Config
	clk     clock.Clock
	logger  zerolog.Logger
	shapers map[Domain]Shaper
}

// NewScorer creates a scorer with the given configuration and clock.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewScorer(cfg *Config, clk clock.Clock, logger zerolog.Logger) (*Scorer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if clk == nil {
		clk = clock.System{}
	}

	return &Scorer{
		cfg:     cfg,
		clk:     clk,
		logger:  logger.With().Str("component", "scorer").Logger(),
		shapers: make(map[Domain]Shaper),
	}, nil
}

// RegisterShaper attaches a domain shaper. Registering a second shaper
// for the same domain replaces the first.
func (s *Scorer) RegisterShaper(sh Shaper) {
	s.shapers[sh.Domain()] = sh
	s.logger.Info().Str("domain", string(sh.Domain())).Msg("registered domain shaper")
}

// Config returns a copy of the scorer configuration.
func (s *Scorer) Config() *Config {
	return s.cfg.Clone()
}

// Score ranks the candidate pool against the context. The result is
// sorted by score descending, ties broken by candidate insertion order,
// deduplicated by candidate ID (first occurrence wins). An empty pool is
// not an error; it yields an empty ranked slice.
//
// model and history may be nil, in which case the preference bonus and
// recency penalty are neutral.
func (s *Scorer) Score(ctx emotion.Context, candidates []Candidate, model *PreferenceModel, history *History) []ScoredCandidate {
	scored := make([]ScoredCandidate, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))

	for i := range candidates {
		cand := candidates[i]
		if _, dup := seen[cand.ID]; dup {
			continue
		}
		seen[cand.ID] = struct{}{}

		scored = append(scored, s.scoreOne(ctx, cand, model, history))
	}

	sortScored(scored)
	return scored
}

// scoreOne computes the full factor set and composed score for a single
// candidate.
//
//nolint:gocritic // hugeParam: cand passed by value for immutability
func (s *Scorer) scoreOne(ctx emotion.Context, cand Candidate, model *PreferenceModel, history *History) ScoredCandidate {
	factors, reasons := s.baseFactors(ctx, cand, model, history)

	if sh, ok := s.shapers[cand.Domain]; ok {
		extra, extraReasons := sh.Shape(ctx, cand, model)
		for name, v := range extra {
			factors[name] = v
		}
		reasons = append(reasons, extraReasons...)
	}

	table, ok := s.cfg.Tables[cand.Domain]
	if !ok {
		s.logger.Warn().
			Str("domain", string(cand.Domain)).
			Msg("no weight table for domain, using neutral additive fallback")
		table = DomainTable{
			Composition: CompositionAdditive,
			Weights: FactorWeights{
				FactorEmotion:    1,
				FactorEnergy:     1,
				FactorAcceptance: 1,
			},
		}
	}

	score := compose(table, factors)

	// Preference bonus: additive, applied after composition so a strong
	// category match can lift a candidate above its weighted base.
	overlap := categoryOverlap(cand.Categories, model)
	if overlap > 0 {
		score += s.cfg.PreferenceBonus * float64(overlap)
		reasons = append(reasons, fmt.Sprintf("matches %d preferred categories", overlap))
	}

	// Recency penalty: exponential decay per repeat inside the window.
	// Discourages repetition without hard exclusion.
	if repeats := s.recentRepeats(cand.ID, history); repeats > 0 {
		penalty := math.Pow(s.cfg.RecencyPenaltyBase, float64(repeats))
		score *= penalty
		reasons = append(reasons, fmt.Sprintf("recommended %dx recently", repeats))
	}

	return ScoredCandidate{
		Candidate: cand,
		Score:     clamp01(score),
		Factors:   factors,
		Reasons:   reasons,
	}
}

// baseFactors computes the universal factor set shared by all domains.
//
//nolint:gocritic // hugeParam: cand passed by value for immutability
func (s *Scorer) baseFactors(ctx emotion.Context, cand Candidate, model *PreferenceModel, history *History) (map[string]float64, []string) {
	factors := make(map[string]float64, 8)
	reasons := make([]string, 0, 4)

	emotionMatch, matched := emotionMatchFactor(ctx, cand.EmotionTags)
	factors[FactorEmotion] = emotionMatch
	factors[FactorEmotionAppropriateness] = emotionMatch
	if len(matched) > 0 {
		reasons = append(reasons, "suits your "+strings.Join(matched, ", ")+" mood")
	}

	energyMatch := 1 - math.Min(1, math.Abs(cand.MidEnergy()-ctx.EnergyLevel))
	factors[FactorEnergy] = energyMatch
	if energyMatch >= 0.8 {
		reasons = append(reasons, "fits your current energy")
	}

	factors[FactorAcceptance] = cand.EffectiveAcceptance()

	factors[FactorRating] = neutralFactor
	if cand.HasRating {
		factors[FactorRating] = clamp01(cand.Rating / 5)
	}

	factors[FactorPreference] = preferenceFactor(cand.Categories, model)

	novelty := 1.0
	if repeats := s.recentRepeats(cand.ID, history); repeats > 0 {
		novelty = math.Pow(s.cfg.RecencyPenaltyBase, float64(repeats))
	}
	factors[FactorNovelty] = novelty

	return factors, reasons
}

// recentRepeats counts how often the candidate was recommended within the
// recency window.
func (s *Scorer) recentRepeats(candidateID string, history *History) int {
	if history == nil {
		return 0
	}
	cutoff := s.clk.Now().Add(-s.cfg.RecencyPenaltyWindow)
	return history.CountSince(candidateID, cutoff)
}

// compose combines factors according to the domain table.
func compose(table DomainTable, factors map[string]float64) float64 {
	if table.Composition == CompositionMultiplicative {
		return composeMultiplicative(table.Weights, factors)
	}
	return composeAdditive(table.Weights, factors)
}

// composeAdditive returns the weighted average of the named factors.
// Factors missing from the computed set contribute the neutral value.
// Accumulation runs in sorted key order: float addition is not
// associative, so map iteration order would make repeated calls drift
// in the last bits and flip ties.
func composeAdditive(weights FactorWeights, factors map[string]float64) float64 {
	var sum, mass float64
	for _, name := range sortedWeightNames(weights) {
		w := weights[name]
		v, ok := factors[name]
		if !ok {
			v = neutralFactor
		}
		sum += w * v
		mass += w
	}
	if mass == 0 {
		return neutralFactor
	}
	return sum / mass
}

// composeMultiplicative multiplies factor^weight terms with the energy
// factor as the base. Factors missing from the computed set are treated
// as 1.0 (no effect), so a domain can name multipliers its shaper only
// sometimes produces. Sorted key order keeps the product bit-identical
// across calls.
func composeMultiplicative(weights FactorWeights, factors map[string]float64) float64 {
	score := 1.0
	for _, name := range sortedWeightNames(weights) {
		v, ok := factors[name]
		if !ok {
			continue
		}
		score *= math.Pow(v, weights[name])
	}
	return score
}

// sortedWeightNames returns the table's factor names with non-zero
// weights in sorted order.
func sortedWeightNames(weights FactorWeights) []string {
	names := make([]string, 0, len(weights))
	for name, w := range weights {
		if w == 0 {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// emotionMatchFactor computes the probability-weighted tag overlap. It
// returns the average probability across matched tags, the fixed low
// constant when tags exist but none match, and the neutral value when the
// candidate carries no tags. Matched tag names are returned sorted for
// stable reason strings.
func emotionMatchFactor(ctx emotion.Context, tags []emotion.Name) (float64, []string) {
	if len(tags) == 0 {
		return neutralFactor, nil
	}

	var sum float64
	matched := make([]string, 0, len(tags))
	for _, tag := range tags {
		if p := ctx.Probability(tag); p > 0 {
			sum += p
			matched = append(matched, string(tag))
		}
	}
	if len(matched) == 0 {
		return noMatchFactor, nil
	}
	sort.Strings(matched)
	return sum / float64(len(matched)), matched
}

// preferenceFactor is the fraction of the candidate's categories the user
// prefers, neutral when the candidate is uncategorized.
func preferenceFactor(categories []string, model *PreferenceModel) float64 {
	if len(categories) == 0 || model == nil {
		return neutralFactor
	}
	return float64(categoryOverlap(categories, model)) / float64(len(categories))
}

// categoryOverlap counts candidate categories present in the preferred set.
func categoryOverlap(categories []string, model *PreferenceModel) int {
	if model == nil {
		return 0
	}
	n := 0
	for _, c := range categories {
		if model.HasCategory(c) {
			n++
		}
	}
	return n
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
