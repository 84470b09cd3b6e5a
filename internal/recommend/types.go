// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package recommend

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/halcyonlabs/halcyon/internal/emotion"
)

// Domain identifies a recommendation domain.
type Domain string

// Supported recommendation domains.
const (
	DomainTask  Domain = "task"
	DomainMusic Domain = "music"
	DomainTheme Domain = "theme"
)

// EnergyRange is a candidate's energy affinity interval.
// Invariant: 0 <= Low <= High <= 1.
type EnergyRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Mid returns the midpoint of the range.
func (r EnergyRange) Mid() float64 {
	return (r.Low + r.High) / 2
}

// Valid reports whether the range satisfies its invariant.
func (r EnergyRange) Valid() bool {
	return r.Low >= 0 && r.High <= 1 && r.Low <= r.High
}

// TaskAttributes carries task-specific shaping inputs.
type TaskAttributes struct {
	// Priority is the user-assigned priority, 1 (lowest) to 5.
	Priority int `json:"priority"`

	// DueAt is the task deadline, if any.
	DueAt *time.Time `json:"due_at,omitempty"`

	// EstimatedMinutes is the expected effort.
	EstimatedMinutes int `json:"estimated_minutes"`

	// Complexity is the derived complexity score in [0, 1].
	// Recomputed by the repository layer on each write.
	Complexity float64 `json:"complexity"`

	// OptimalEnergy is the derived energy level at which the task is
	// best attempted, in [0, 1]. Recomputed on each write.
	OptimalEnergy float64 `json:"optimal_energy"`
}

// PlaylistAttributes carries playlist-specific metadata.
type PlaylistAttributes struct {
	Genre      string `json:"genre,omitempty"`
	TrackCount int    `json:"track_count,omitempty"`
	SourceURI  string `json:"source_uri,omitempty"`
}

// ThemeAttributes carries theme-preset-specific metadata.
type ThemeAttributes struct {
	Palette string `json:"palette,omitempty"`
	Dark    bool   `json:"dark,omitempty"`
}

// Candidate is a recommendable item: a task, a playlist, or a theme
// preset. All variants share the capability set the scorer consumes; the
// per-domain attribute structs carry variant-specific shaping inputs.
//
// Candidates are owned by external storage. The engine reads a snapshot
// and writes back only the mutable affinity fields (acceptance rate,
// point energy) after learning.
type Candidate struct {
	// ID uniquely identifies the candidate within its domain.
	ID string `json:"id"`

	// Domain is the recommendation domain this candidate belongs to.
	Domain Domain `json:"domain"`

	// Title is the display name.
	Title string `json:"title"`

	// Categories are free-form grouping labels matched against the
	// user's preferred categories.
	Categories []string `json:"categories,omitempty"`

	// EmotionTags lists the emotions this candidate suits.
	EmotionTags []emotion.Name `json:"emotion_tags,omitempty"`

	// EnergyAffinity is the energy interval this candidate suits.
	EnergyAffinity EnergyRange `json:"energy_affinity"`

	// PointEnergy is the learned point energy estimate. Preferred over
	// the affinity midpoint when set. Drifts slowly under feedback.
	PointEnergy float64 `json:"point_energy,omitempty"`

	// HasPointEnergy reports whether PointEnergy has been learned.
	HasPointEnergy bool `json:"has_point_energy,omitempty"`

	// AcceptanceRate is the exponentially-averaged fraction of times
	// this candidate was accepted when recommended.
	AcceptanceRate float64 `json:"acceptance_rate"`

	// FeedbackCount is the number of acceptance-moving feedback events
	// recorded. Zero means AcceptanceRate is unset and the scorer uses
	// its neutral default.
	FeedbackCount int `json:"feedback_count"`

	// Rating is an optional static quality rating on a 0-5 scale.
	Rating float64 `json:"rating,omitempty"`

	// HasRating reports whether Rating is set.
	HasRating bool `json:"has_rating,omitempty"`

	// LastRecommendedAt is when this candidate was last surfaced.
	LastRecommendedAt *time.Time `json:"last_recommended_at,omitempty"`

	// Task is set for DomainTask candidates.
	Task *TaskAttributes `json:"task,omitempty"`

	// Playlist is set for DomainMusic candidates.
	Playlist *PlaylistAttributes `json:"playlist,omitempty"`

	// Theme is set for DomainTheme candidates.
	Theme *ThemeAttributes `json:"theme,omitempty"`
}

// MidEnergy returns the candidate's point energy estimate when learned,
// otherwise the midpoint of its affinity range.
func (c *Candidate) MidEnergy() float64 {
	if c.HasPointEnergy {
		return c.PointEnergy
	}
	return c.EnergyAffinity.Mid()
}

// EffectiveAcceptance returns the acceptance rate, or the neutral default
// when no feedback has been recorded yet.
func (c *Candidate) EffectiveAcceptance() float64 {
	if c.FeedbackCount == 0 {
		return neutralFactor
	}
	return c.AcceptanceRate
}

// ScoredCandidate pairs a candidate with its normalized score and the
// reason trace explaining it. Ephemeral, produced per scoring call.
type ScoredCandidate struct {
	Candidate Candidate `json:"candidate"`

	// Score is the final combined score in [0, 1].
	Score float64 `json:"score"`

	// Factors is the per-factor breakdown before composition.
	Factors map[string]float64 `json:"factors,omitempty"`

	// Reasons is the ordered, human-readable explanation trace.
	Reasons []string `json:"reasons,omitempty"`
}

// Polarity tags an energy sample as a positive or negative example.
// Negative samples come from rejections and must never be averaged in
// with positive ones.
type Polarity int

const (
	// Positive marks an energy level the user responded well to.
	Positive Polarity = iota
	// Negative marks an energy level the user rejected.
	Negative
)

// String returns a human-readable polarity name.
func (p Polarity) String() string {
	switch p {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	default:
		return "unknown"
	}
}

// EnergySample is one observed energy level with its polarity.
type EnergySample struct {
	Value    float64  `json:"value"`
	Polarity Polarity `json:"polarity"`
}

// CategoryAffinity is the learned strength of a (category, emotion) pair.
type CategoryAffinity struct {
	// Score is the running affinity in [0, 1].
	Score float64 `json:"score"`

	// Samples is the number of feedback events behind Score.
	Samples int `json:"samples"`
}

// maxEnergyHistory bounds each per-emotion energy history.
// Oldest samples are dropped on overflow; most recent is last.
const maxEnergyHistory = 20

// PreferenceModel is the per-user learned state biasing future scoring.
// Mutated only by the learner, under the learner's per-user lock.
type PreferenceModel struct {
	UserID string `json:"user_id"`

	// PreferredCategories is the set of categories the user has
	// historically accepted. Insertion order is irrelevant.
	PreferredCategories []string `json:"preferred_categories,omitempty"`

	// EmotionEnergyHistory maps each emotion to recent energy samples,
	// bounded at maxEnergyHistory, most-recent-last.
	EmotionEnergyHistory map[emotion.Name][]EnergySample `json:"emotion_energy_history,omitempty"`

	// CategoryEmotionAffinity maps "category|emotion" keys to learned
	// affinities.
	CategoryEmotionAffinity map[string]CategoryAffinity `json:"category_emotion_affinity,omitempty"`

	// UpdatedAt is when the model last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPreferenceModel creates an empty preference model for a user.
func NewPreferenceModel(userID string) *PreferenceModel {
	return &PreferenceModel{
		UserID:                  userID,
		EmotionEnergyHistory:    make(map[emotion.Name][]EnergySample),
		CategoryEmotionAffinity: make(map[string]CategoryAffinity),
	}
}

// AffinityKey builds the map key for a (category, emotion) pair.
func AffinityKey(category string, n emotion.Name) string {
	return category + "|" + string(n)
}

// HasCategory reports whether the category is in the preferred set.
func (m *PreferenceModel) HasCategory(category string) bool {
	for _, c := range m.PreferredCategories {
		if c == category {
			return true
		}
	}
	return false
}

// AddCategory adds a category to the preferred set if absent.
func (m *PreferenceModel) AddCategory(category string) {
	if category == "" || m.HasCategory(category) {
		return
	}
	m.PreferredCategories = append(m.PreferredCategories, category)
}

// AppendEnergySample records an energy sample for an emotion, dropping
// the oldest sample when the bounded history overflows.
func (m *PreferenceModel) AppendEnergySample(n emotion.Name, s EnergySample) {
	if m.EmotionEnergyHistory == nil {
		m.EmotionEnergyHistory = make(map[emotion.Name][]EnergySample)
	}
	history := append(m.EmotionEnergyHistory[n], s)
	if len(history) > maxEnergyHistory {
		history = history[len(history)-maxEnergyHistory:]
	}
	m.EmotionEnergyHistory[n] = history
}

// Clone returns a deep copy of the model.
func (m *PreferenceModel) Clone() *PreferenceModel {
	out := &PreferenceModel{
		UserID:                  m.UserID,
		PreferredCategories:     append([]string(nil), m.PreferredCategories...),
		EmotionEnergyHistory:    make(map[emotion.Name][]EnergySample, len(m.EmotionEnergyHistory)),
		CategoryEmotionAffinity: make(map[string]CategoryAffinity, len(m.CategoryEmotionAffinity)),
		UpdatedAt:               m.UpdatedAt,
	}
	for n, samples := range m.EmotionEnergyHistory {
		out.EmotionEnergyHistory[n] = append([]EnergySample(nil), samples...)
	}
	for k, v := range m.CategoryEmotionAffinity {
		out.CategoryEmotionAffinity[k] = v
	}
	return out
}

// History tracks when candidates were recently recommended. It backs the
// recency penalty and is safe for concurrent use.
type History struct {
	mu      sync.Mutex
	entries map[string][]time.Time
}

// NewHistory creates an empty recommendation history.
func NewHistory() *History {
	return &History{entries: make(map[string][]time.Time)}
}

// Record notes that the candidate was recommended at t.
func (h *History) Record(candidateID string, t time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[candidateID] = append(h.entries[candidateID], t)
}

// CountSince returns how many times the candidate was recommended at or
// after cutoff, pruning entries older than cutoff as a side effect.
func (h *History) CountSince(candidateID string, cutoff time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.entries[candidateID][:0]
	for _, t := range h.entries[candidateID] {
		if !t.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(h.entries, candidateID)
		return 0
	}
	h.entries[candidateID] = kept
	return len(kept)
}

// Filter narrows a candidate fetch.
type Filter struct {
	// Categories restricts results to candidates carrying at least one
	// of the given categories. Empty means no restriction.
	Categories []string

	// MaxResults caps the number of returned candidates. Zero means no
	// cap.
	MaxResults int
}

// ItemRepository is the narrow interface over external item storage.
// Implementations live outside the engine core.
type ItemRepository interface {
	// FetchCandidates returns the candidate pool for a domain.
	FetchCandidates(ctx context.Context, domain Domain, filter Filter) ([]Candidate, error)

	// PersistCandidateMutation writes back a candidate's mutable
	// affinity fields after learning.
	PersistCandidateMutation(ctx context.Context, cand Candidate) error
}

// sortScored sorts descending by score; ties keep insertion order.
func sortScored(items []ScoredCandidate) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
}
