// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

/*
Package recommend scores pools of candidate items (tasks, playlists,
theme presets) against a normalized emotion context.

Each candidate is evaluated on a shared factor set — emotion tag match,
energy closeness, historical acceptance, preferred-category overlap, and
novelty — plus whatever extra factors its domain's Shaper contributes.
Factors are combined per domain through configurable weight tables
supporting two composition strategies: weighted additive (music, theme)
and multiplicative (task). A flat preference bonus and an exponential
recency penalty are applied after composition, and the final score is
clamped to [0, 1].

Scoring is deterministic: given identical inputs, including the
preference model snapshot and recommendation history, the ranking and
scores are exactly reproducible. Ranking ties are broken by candidate
insertion order and duplicate candidate IDs are collapsed to the first
occurrence.

The package has no dependencies on storage; candidate pools arrive
through the narrow ItemRepository interface implemented elsewhere.
*/
package recommend
