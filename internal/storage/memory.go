// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/halcyonlabs/halcyon/internal/recommend"
	"github.com/halcyonlabs/halcyon/internal/recommend/domains"
)

// MemoryStore is the in-memory repository implementation. It backs
// tests and embedded deployments that do not need persistence across
// restarts. Safe for concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	candidates map[string]recommend.Candidate
	models     map[string]*recommend.PreferenceModel
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		candidates: make(map[string]recommend.Candidate),
		models:     make(map[string]*recommend.PreferenceModel),
	}
}

// PutCandidate inserts or replaces a candidate. Task candidates get
// their derived schedule attributes recomputed before the write so the
// stored complexity and optimal energy can never go stale.
func (s *MemoryStore) PutCandidate(_ context.Context, cand recommend.Candidate) error {
	if cand.ID == "" {
		return fmt.Errorf("candidate id is required")
	}
	deriveTaskAttributes(&cand)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[cand.ID] = cand
	return nil
}

// DeleteCandidate removes a candidate. Unknown IDs are a no-op. The
// domain argument keeps the signature aligned with the persistent store.
func (s *MemoryStore) DeleteCandidate(_ context.Context, _ recommend.Domain, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.candidates, id)
	return nil
}

// FetchCandidates returns the domain's candidate pool, filtered and
// sorted by ID for deterministic ordering.
func (s *MemoryStore) FetchCandidates(_ context.Context, domain recommend.Domain, filter recommend.Filter) ([]recommend.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []recommend.Candidate
	for _, cand := range s.candidates {
		if cand.Domain != domain || !matchesFilter(cand, filter) {
			continue
		}
		out = append(out, cand)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if filter.MaxResults > 0 && len(out) > filter.MaxResults {
		out = out[:filter.MaxResults]
	}
	return out, nil
}

// PersistCandidateMutation writes back a candidate's learned fields.
func (s *MemoryStore) PersistCandidateMutation(_ context.Context, cand recommend.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.candidates[cand.ID]
	if !ok {
		return fmt.Errorf("candidate %s: %w", cand.ID, ErrNotFound)
	}
	applyMutation(&stored, cand)
	s.candidates[cand.ID] = stored
	return nil
}

// LoadPreferenceModel returns a copy of the user's model, or nil for
// unknown users.
func (s *MemoryStore) LoadPreferenceModel(_ context.Context, userID string) (*recommend.PreferenceModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	model, ok := s.models[userID]
	if !ok {
		return nil, nil
	}
	return model.Clone(), nil
}

// SavePreferenceModel stores a copy of the user's model.
func (s *MemoryStore) SavePreferenceModel(_ context.Context, userID string, model *recommend.PreferenceModel) error {
	if model == nil {
		return fmt.Errorf("nil preference model")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[userID] = model.Clone()
	return nil
}

// matchesFilter reports whether the candidate passes the category
// restriction.
func matchesFilter(cand recommend.Candidate, filter recommend.Filter) bool {
	if len(filter.Categories) == 0 {
		return true
	}
	for _, want := range filter.Categories {
		for _, have := range cand.Categories {
			if want == have {
				return true
			}
		}
	}
	return false
}

// applyMutation copies only the learned affinity fields onto the stored
// candidate, so a stale snapshot from the learner cannot clobber
// descriptive attributes edited elsewhere.
func applyMutation(stored *recommend.Candidate, mutated recommend.Candidate) {
	stored.AcceptanceRate = mutated.AcceptanceRate
	stored.FeedbackCount = mutated.FeedbackCount
	stored.PointEnergy = mutated.PointEnergy
	stored.HasPointEnergy = mutated.HasPointEnergy
	stored.LastRecommendedAt = mutated.LastRecommendedAt
}

// deriveTaskAttributes refreshes the derived schedule fields on task
// candidates before a write.
func deriveTaskAttributes(cand *recommend.Candidate) {
	if cand.Domain != recommend.DomainTask || cand.Task == nil {
		return
	}
	complexity, optimal := domains.DeriveScheduleAttributes(*cand.Task)
	cand.Task.Complexity = complexity
	cand.Task.OptimalEnergy = optimal
}
