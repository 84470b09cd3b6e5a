// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package domains

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/halcyonlabs/halcyon/internal/discovery"
	"github.com/halcyonlabs/halcyon/internal/emotion"
	"github.com/halcyonlabs/halcyon/internal/recommend"
)

// ThemeRecommender wraps the shared scorer with theme-preset queries.
// Theme scoring leans on the preference and novelty factors: visual
// themes change rarely, so repetition weighs heavier than raw mood fit.
type ThemeRecommender struct {
	base
	discovery *discovery.Client
}

// NewThemeRecommender creates a theme recommender. The discovery client
// is optional.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewThemeRecommender(scorer *recommend.Scorer, repo recommend.ItemRepository, disc *discovery.Client, logger zerolog.Logger) *ThemeRecommender {
	return &ThemeRecommender{
		base: base{
			domain: recommend.DomainTheme,
			scorer: scorer,
			repo:   repo,
			logger: logger.With().Str("component", "theme-recommender").Logger(),
		},
		discovery: disc,
	}
}

// Recommend scores persisted theme presets against the context, topping
// up from external discovery when the pool is empty. Discovery failures
// degrade to persisted presets only.
func (r *ThemeRecommender) Recommend(ctx context.Context, ectx emotion.Context, model *recommend.PreferenceModel, history *recommend.History, limit int) ([]recommend.ScoredCandidate, error) {
	candidates, err := r.repo.FetchCandidates(ctx, recommend.DomainTheme, recommend.Filter{})
	if err != nil {
		return nil, fmt.Errorf("fetch theme candidates: %w", err)
	}

	if len(candidates) == 0 && r.discovery != nil {
		candidates = r.discover(ctx, ectx)
	}

	return r.rank(ectx, candidates, model, history, limit), nil
}

// discover queries the external search API for mood-matching presets.
func (r *ThemeRecommender) discover(ctx context.Context, ectx emotion.Context) []recommend.Candidate {
	items, err := r.discovery.Search(ctx, moodQuery(ectx)+" theme")
	if err != nil {
		r.logger.Warn().Err(err).Msg("discovery unavailable, using persisted presets only")
		return nil
	}

	candidates := make([]recommend.Candidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, themeCandidate(item, ectx))
	}
	return candidates
}

// themeCandidate converts a discovered item into a theme candidate.
// Low-energy contexts map to dark presets.
func themeCandidate(item discovery.RawItem, ectx emotion.Context) recommend.Candidate {
	return recommend.Candidate{
		ID:          "discovered:" + item.ExternalID,
		Domain:      recommend.DomainTheme,
		Title:       item.Title,
		Categories:  item.Categories,
		EmotionTags: []emotion.Name{ectx.Dominant.Name},
		EnergyAffinity: recommend.EnergyRange{
			Low:  clamp01(ectx.EnergyLevel - 0.25),
			High: clamp01(ectx.EnergyLevel + 0.25),
		},
		Theme: &recommend.ThemeAttributes{
			Palette: item.Title,
			Dark:    ectx.EnergyLevel < 0.4,
		},
	}
}
