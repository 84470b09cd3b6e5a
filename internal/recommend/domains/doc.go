// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

/*
Package domains provides the thin per-domain adapters around the shared
candidate scorer.

Each adapter owns its candidate-pool query, its reason-string generation,
and any domain factors its weight table needs: the task shaper produces
the priority, urgency, correlation, and complexity multipliers of the
multiplicative task model; music and theme rely on the universal additive
factors plus best-effort external discovery when their persisted pools
are empty.

DeriveScheduleAttributes is the pure derivation the repository layer runs
before each task write, so derived fields (complexity, optimal energy)
never go stale and the scorer stays free of persistence side effects.
*/
package domains
