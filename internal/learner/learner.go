// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

// Package learner turns user feedback into preference-model and
// candidate-affinity updates so future scoring improves.
//
// Acceptance rates move through a weighted running average (weight 0.3 on
// the new sample), candidate energy estimates drift slowly toward or away
// from the context energy, and the per-user preference model accumulates
// preferred categories, polarity-tagged energy samples, and
// category-emotion affinities. Updates for the same user are serialized
// through a per-user lock; different users proceed in parallel.
package learner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/halcyonlabs/halcyon/internal/emotion"
	"github.com/halcyonlabs/halcyon/internal/metrics"
	"github.com/halcyonlabs/halcyon/internal/recommend"
)

const (
	// sampleWeight is the weight of a new feedback sample in the
	// acceptance running average: new = (1-w)*old + w*sample.
	sampleWeight = 0.3

	// driftPull is how far an accepted candidate's energy estimate
	// moves toward the context energy: new = (1-p)*old + p*context.
	driftPull = 0.2

	// rejectDriftStep is the relative step a rejected candidate's
	// energy estimate moves away from the context energy.
	rejectDriftStep = 0.05

	// neutralScore seeds averages that have no samples yet.
	neutralScore = 0.5
)

// ErrInvalidFeedback is returned for malformed feedback events.
var ErrInvalidFeedback = errors.New("invalid feedback event")

// Learner applies feedback events against persisted state.
// It is safe for concurrent use; mutations to one user's preference
// model are serialized internally.
type Learner struct {
	prefs  PreferenceRepository
	items  recommend.ItemRepository
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a learner over the given repositories.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(prefs PreferenceRepository, items recommend.ItemRepository, logger zerolog.Logger) *Learner {
	return &Learner{
		prefs:  prefs,
		items:  items,
		logger: logger.With().Str("component", "learner").Logger(),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Apply consumes one feedback event for a user: it loads the preference
// model, applies the update, and writes both the model and the mutated
// candidate back. The whole read-modify-write runs under the user's lock
// so concurrent feedback for the same user cannot lose updates.
//
// Repository failures propagate to the caller; the learner does not retry.
//
//nolint:gocritic // hugeParam: fb/cand passed by value for immutability
func (l *Learner) Apply(ctx context.Context, userID string, fb FeedbackEvent, cand recommend.Candidate) (*recommend.PreferenceModel, recommend.Candidate, error) {
	if err := validate(userID, fb, cand); err != nil {
		return nil, cand, err
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	model, err := l.prefs.LoadPreferenceModel(ctx, userID)
	if err != nil {
		return nil, cand, fmt.Errorf("load preference model: %w", err)
	}
	if model == nil {
		model = recommend.NewPreferenceModel(userID)
	}

	updatedCand := ApplyToModel(fb, model, cand)

	if err := l.prefs.SavePreferenceModel(ctx, userID, model); err != nil {
		return nil, cand, fmt.Errorf("save preference model: %w", err)
	}
	if acceptanceMoved(fb.Outcome) {
		if err := l.items.PersistCandidateMutation(ctx, updatedCand); err != nil {
			return nil, cand, fmt.Errorf("persist candidate mutation: %w", err)
		}
	}

	metrics.FeedbackTotal.WithLabelValues(fb.Outcome.String()).Inc()
	l.logger.Debug().
		Str("user", userID).
		Str("candidate", cand.ID).
		Str("outcome", fb.Outcome.String()).
		Float64("acceptance", updatedCand.AcceptanceRate).
		Msg("feedback applied")

	return model, updatedCand, nil
}

// ApplyToModel is the pure update step: it mutates the model in place and
// returns the updated candidate. Exposed so callers that manage their own
// persistence (and locking) can reuse the learning rules.
//
//nolint:gocritic // hugeParam: fb/cand passed by value for immutability
func ApplyToModel(fb FeedbackEvent, model *recommend.PreferenceModel, cand recommend.Candidate) recommend.Candidate {
	switch fb.Outcome {
	case OutcomeAccepted:
		cand = applyAccepted(fb, model, cand)
	case OutcomeRejected:
		cand = applyRejected(fb, model, cand)
	case OutcomeModified, OutcomeIgnored:
		// Recorded for analytics only. Neither moves the acceptance
		// rate: ignoring a suggestion is not rejecting it.
	}

	model.UpdatedAt = fb.OccurredAt
	return cand
}

// applyAccepted reinforces everything about the accepted candidate.
//
//nolint:gocritic // hugeParam: fb/cand passed by value for immutability
func applyAccepted(fb FeedbackEvent, model *recommend.PreferenceModel, cand recommend.Candidate) recommend.Candidate {
	cand.AcceptanceRate = runningAverage(cand.EffectiveAcceptance(), 1.0)
	cand.FeedbackCount++

	// Energy drift: nudge the point estimate toward the energy the
	// user accepted at. Slow by design so one outlier cannot swing a
	// stable attribute.
	old := cand.MidEnergy()
	cand.PointEnergy = clamp01((1-driftPull)*old + driftPull*fb.Context.EnergyLevel)
	cand.HasPointEnergy = true

	dominant := fb.Context.Dominant.Name
	model.AppendEnergySample(dominant, recommend.EnergySample{
		Value:    fb.Context.EnergyLevel,
		Polarity: recommend.Positive,
	})
	for _, category := range cand.Categories {
		model.AddCategory(category)
		bumpAffinity(model, category, dominant, 1.0)
	}

	return cand
}

// applyRejected weakens the candidate and, when the user chose an
// alternative, merges its hints into the preference model.
//
//nolint:gocritic // hugeParam: fb/cand passed by value for immutability
func applyRejected(fb FeedbackEvent, model *recommend.PreferenceModel, cand recommend.Candidate) recommend.Candidate {
	cand.AcceptanceRate = runningAverage(cand.EffectiveAcceptance(), 0.0)
	cand.FeedbackCount++

	// Energy drift: nudge the estimate away from the rejected context
	// energy.
	old := cand.MidEnergy()
	if old <= fb.Context.EnergyLevel {
		cand.PointEnergy = clamp01(old * (1 - rejectDriftStep))
	} else {
		cand.PointEnergy = clamp01(old * (1 + rejectDriftStep))
	}
	cand.HasPointEnergy = true

	dominant := fb.Context.Dominant.Name

	// The rejected energy level is a negative example for this emotion.
	// Kept in a distinguishable bucket via polarity: averaging it in
	// with positive samples would corrupt future estimates.
	model.AppendEnergySample(dominant, recommend.EnergySample{
		Value:    fb.Context.EnergyLevel,
		Polarity: recommend.Negative,
	})
	for _, category := range cand.Categories {
		bumpAffinity(model, category, dominant, 0.0)
	}

	if alt := fb.Alternative; alt != nil {
		model.AddCategory(alt.Category)
		if alt.Category != "" {
			bumpAffinity(model, alt.Category, dominant, 1.0)
		}
		if alt.HasEnergy {
			model.AppendEnergySample(dominant, recommend.EnergySample{
				Value:    clamp01(alt.Energy),
				Polarity: recommend.Positive,
			})
		}
	}

	return cand
}

// bumpAffinity moves a (category, emotion) affinity toward the sample.
func bumpAffinity(model *recommend.PreferenceModel, category string, n emotion.Name, sample float64) {
	if model.CategoryEmotionAffinity == nil {
		model.CategoryEmotionAffinity = make(map[string]recommend.CategoryAffinity)
	}
	key := recommend.AffinityKey(category, n)
	aff := model.CategoryEmotionAffinity[key]
	old := aff.Score
	if aff.Samples == 0 {
		old = neutralScore
	}
	aff.Score = runningAverage(old, sample)
	aff.Samples++
	model.CategoryEmotionAffinity[key] = aff
}

// runningAverage folds a new sample into an exponential running average.
func runningAverage(old, sample float64) float64 {
	return (1-sampleWeight)*old + sampleWeight*sample
}

// acceptanceMoved reports whether the outcome mutates candidate state.
func acceptanceMoved(o Outcome) bool {
	return o == OutcomeAccepted || o == OutcomeRejected
}

// validate fails fast on malformed feedback.
//
//nolint:gocritic // hugeParam: fb/cand passed by value for immutability
func validate(userID string, fb FeedbackEvent, cand recommend.Candidate) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user id", ErrInvalidFeedback)
	}
	if fb.CandidateID == "" {
		return fmt.Errorf("%w: empty candidate id", ErrInvalidFeedback)
	}
	if fb.CandidateID != cand.ID {
		return fmt.Errorf("%w: feedback for candidate %q applied to candidate %q", ErrInvalidFeedback, fb.CandidateID, cand.ID)
	}
	if !fb.Outcome.valid() {
		return fmt.Errorf("%w: unknown outcome %d", ErrInvalidFeedback, int(fb.Outcome))
	}
	return nil
}

// userLock returns the mutex serializing updates for a user.
func (l *Learner) userLock(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[userID] = lock
	}
	return lock
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
