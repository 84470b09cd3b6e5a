// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package domains

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/halcyonlabs/halcyon/internal/emotion"
	"github.com/halcyonlabs/halcyon/internal/metrics"
	"github.com/halcyonlabs/halcyon/internal/recommend"
)

// base carries the pieces every domain recommender shares: the scorer,
// the item repository, and ranking bookkeeping.
type base struct {
	domain recommend.Domain
	scorer *recommend.Scorer
	repo   recommend.ItemRepository
	logger zerolog.Logger
}

// rank scores a pool, truncates to limit, and updates metrics. A zero or
// negative limit returns the full ranking.
func (b *base) rank(ectx emotion.Context, candidates []recommend.Candidate, model *recommend.PreferenceModel, history *recommend.History, limit int) []recommend.ScoredCandidate {
	start := time.Now()

	ranked := b.scorer.Score(ectx, candidates, model, history)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	metrics.RecommendationsTotal.WithLabelValues(string(b.domain)).Inc()
	metrics.CandidatesScored.WithLabelValues(string(b.domain)).Add(float64(len(candidates)))
	metrics.ScoringDuration.WithLabelValues(string(b.domain)).Observe(time.Since(start).Seconds())

	b.logger.Debug().
		Int("candidates", len(candidates)).
		Int("returned", len(ranked)).
		Float64("energy", ectx.EnergyLevel).
		Str("dominant", string(ectx.Dominant.Name)).
		Msg("ranked candidates")

	return ranked
}
