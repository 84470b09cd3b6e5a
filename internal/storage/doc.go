// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

/*
Package storage provides the repository implementations behind the
engine's narrow persistence interfaces.

MemoryStore backs tests and embedded use; BadgerStore persists the
candidate pool and per-user preference models in an embedded BadgerDB,
keyed by prefix so each domain's pool is one range scan. Both stores
refresh derived task schedule attributes on every candidate write, so
complexity and optimal-energy values can never drift from the fields
they are derived from.
*/
package storage
