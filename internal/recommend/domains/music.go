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

// MusicRecommender wraps the shared scorer with playlist-pool queries and
// best-effort external discovery when the persisted pool runs dry.
type MusicRecommender struct {
	base
	discovery *discovery.Client
}

// NewMusicRecommender creates a music recommender. The discovery client
// is optional; without it an empty persisted pool simply yields an empty
// ranking.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewMusicRecommender(scorer *recommend.Scorer, repo recommend.ItemRepository, disc *discovery.Client, logger zerolog.Logger) *MusicRecommender {
	return &MusicRecommender{
		base: base{
			domain: recommend.DomainMusic,
			scorer: scorer,
			repo:   repo,
			logger: logger.With().Str("component", "music-recommender").Logger(),
		},
		discovery: disc,
	}
}

// Recommend scores persisted playlists against the context, topping up
// the pool from external discovery when it is empty. Discovery failures
// degrade to the persisted pool and are never surfaced to the caller.
func (r *MusicRecommender) Recommend(ctx context.Context, ectx emotion.Context, model *recommend.PreferenceModel, history *recommend.History, limit int) ([]recommend.ScoredCandidate, error) {
	candidates, err := r.repo.FetchCandidates(ctx, recommend.DomainMusic, recommend.Filter{})
	if err != nil {
		return nil, fmt.Errorf("fetch playlist candidates: %w", err)
	}

	if len(candidates) == 0 && r.discovery != nil {
		candidates = r.discover(ctx, ectx)
	}

	return r.rank(ectx, candidates, model, history, limit), nil
}

// discover queries the external search API for mood-matching playlists.
func (r *MusicRecommender) discover(ctx context.Context, ectx emotion.Context) []recommend.Candidate {
	query := moodQuery(ectx) + " playlist"
	items, err := r.discovery.Search(ctx, query)
	if err != nil {
		r.logger.Warn().Err(err).Msg("discovery unavailable, using persisted candidates only")
		return nil
	}

	candidates := make([]recommend.Candidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, playlistCandidate(item, ectx))
	}
	return candidates
}

// playlistCandidate converts a discovered item into a scoreable playlist
// candidate. Discovered items start with no feedback history; their
// energy affinity centers on the current context so a fresh discovery is
// always relevant to the mood that triggered it.
func playlistCandidate(item discovery.RawItem, ectx emotion.Context) recommend.Candidate {
	affinity := recommend.EnergyRange{
		Low:  clamp01(ectx.EnergyLevel - 0.2),
		High: clamp01(ectx.EnergyLevel + 0.2),
	}
	if item.Energy > 0 && item.Energy <= 1 {
		affinity = recommend.EnergyRange{
			Low:  clamp01(item.Energy - 0.1),
			High: clamp01(item.Energy + 0.1),
		}
	}

	return recommend.Candidate{
		ID:             "discovered:" + item.ExternalID,
		Domain:         recommend.DomainMusic,
		Title:          item.Title,
		Categories:     item.Categories,
		EmotionTags:    []emotion.Name{ectx.Dominant.Name},
		EnergyAffinity: affinity,
		Playlist: &recommend.PlaylistAttributes{
			SourceURI: item.ExternalID,
		},
	}
}

// moodQuery maps a context onto a deterministic search phrase.
func moodQuery(ectx emotion.Context) string {
	var tone string
	switch {
	case ectx.EnergyLevel >= 0.7:
		tone = "upbeat"
	case ectx.EnergyLevel >= 0.4:
		tone = "steady"
	default:
		tone = "calm"
	}
	return tone + " " + string(ectx.Dominant.Name)
}
