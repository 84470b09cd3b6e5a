// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package learner

import (
	"context"
	"time"

	"github.com/halcyonlabs/halcyon/internal/emotion"
	"github.com/halcyonlabs/halcyon/internal/recommend"
)

// Outcome classifies how the user responded to a recommendation.
type Outcome int

const (
	// OutcomeAccepted indicates the recommendation was taken as-is.
	OutcomeAccepted Outcome = iota
	// OutcomeRejected indicates the recommendation was declined.
	OutcomeRejected
	// OutcomeModified indicates the user took an adjusted version.
	// Informationally neutral: it must not move acceptance rates.
	OutcomeModified
	// OutcomeIgnored indicates the recommendation was never acted on.
	// Neutral as well; treating it as rejection corrupts acceptance
	// averages.
	OutcomeIgnored
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeModified:
		return "modified"
	case OutcomeIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// valid reports whether o is a known outcome.
func (o Outcome) valid() bool {
	return o >= OutcomeAccepted && o <= OutcomeIgnored
}

// Alternative is the user's replacement choice attached to a rejection.
type Alternative struct {
	// Category is the category of what the user chose instead.
	Category string `json:"category,omitempty"`

	// Energy is the energy level of the alternative, if known.
	Energy float64 `json:"energy,omitempty"`

	// HasEnergy reports whether Energy is set.
	HasEnergy bool `json:"has_energy,omitempty"`
}

// FeedbackEvent is one user response to a shown recommendation. It is an
// append-only audit value: created by the caller, consumed exactly once
// by the learner, never mutated afterward.
type FeedbackEvent struct {
	// Context is the emotion context the recommendation was made in.
	Context emotion.Context `json:"context"`

	// CandidateID identifies the recommended candidate.
	CandidateID string `json:"candidate_id"`

	// Outcome is the user's response.
	Outcome Outcome `json:"outcome"`

	// Alternative is the user's replacement choice, for rejections.
	Alternative *Alternative `json:"alternative,omitempty"`

	// OccurredAt is when the feedback was given.
	OccurredAt time.Time `json:"occurred_at"`
}

// PreferenceRepository is the narrow interface over external preference
// persistence.
type PreferenceRepository interface {
	// LoadPreferenceModel returns the user's model, or a fresh empty
	// model for unknown users.
	LoadPreferenceModel(ctx context.Context, userID string) (*recommend.PreferenceModel, error)

	// SavePreferenceModel writes the user's model back.
	SavePreferenceModel(ctx context.Context, userID string, model *recommend.PreferenceModel) error
}
