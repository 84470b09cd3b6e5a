// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package domains

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/halcyonlabs/halcyon/internal/clock"
	"github.com/halcyonlabs/halcyon/internal/emotion"
	"github.com/halcyonlabs/halcyon/internal/recommend"
)

// Urgency multipliers by due-date proximity.
const (
	urgencyOverdue    = 1.5
	urgencyDueToday   = 1.4
	urgencyTomorrow   = 1.3
	urgencyWithin3d   = 1.2
	urgencyWithinWeek = 1.1
	urgencyNone       = 1.0
)

// TaskShaper contributes the multiplicative factors of the task scoring
// model: priority, due-date urgency, historical emotion correlation, and
// complexity appropriateness.
type TaskShaper struct {
	clk clock.Clock
}

// NewTaskShaper creates a task shaper using the given clock for due-date
// proximity.
func NewTaskShaper(clk clock.Clock) *TaskShaper {
	if clk == nil {
		clk = clock.System{}
	}
	return &TaskShaper{clk: clk}
}

// Domain returns DomainTask.
func (*TaskShaper) Domain() recommend.Domain {
	return recommend.DomainTask
}

// Shape computes the task multipliers for one candidate.
//
//nolint:gocritic // hugeParam: cand passed by value for immutability
func (s *TaskShaper) Shape(ctx emotion.Context, cand recommend.Candidate, model *recommend.PreferenceModel) (map[string]float64, []string) {
	attrs := cand.Task
	if attrs == nil {
		return nil, nil
	}

	factors := make(map[string]float64, 4)
	var reasons []string

	factors[recommend.FactorPriority] = priorityMultiplier(attrs.Priority)
	if attrs.Priority >= 4 {
		reasons = append(reasons, "high priority")
	}

	urgency := urgencyMultiplier(s.clk.Now(), attrs.DueAt)
	factors[recommend.FactorUrgency] = urgency
	switch urgency {
	case urgencyOverdue:
		reasons = append(reasons, "overdue")
	case urgencyDueToday:
		reasons = append(reasons, "due today")
	case urgencyTomorrow:
		reasons = append(reasons, "due tomorrow")
	}

	factors[recommend.FactorCorrelation] = correlationMultiplier(ctx, cand.Categories, model)

	complexity := complexityMultiplier(attrs.OptimalEnergy, ctx.EnergyLevel)
	factors[recommend.FactorComplexity] = complexity
	if complexity >= 1.1 {
		reasons = append(reasons, "good complexity for your energy")
	}

	return factors, reasons
}

// priorityMultiplier maps priority 1..5 onto a [0.95, 1.15] multiplier.
func priorityMultiplier(priority int) float64 {
	if priority < 1 {
		priority = 1
	}
	if priority > 5 {
		priority = 5
	}
	return 0.9 + 0.05*float64(priority)
}

// urgencyMultiplier boosts tasks by due-date proximity: overdue 1.5,
// due today 1.4, due tomorrow 1.3, within 3 days 1.2, within a week 1.1,
// otherwise no boost. Day boundaries are computed in UTC.
func urgencyMultiplier(now time.Time, dueAt *time.Time) float64 {
	if dueAt == nil {
		return urgencyNone
	}

	days := daysUntil(now, *dueAt)
	switch {
	case days < 0:
		return urgencyOverdue
	case days == 0:
		return urgencyDueToday
	case days == 1:
		return urgencyTomorrow
	case days <= 3:
		return urgencyWithin3d
	case days <= 7:
		return urgencyWithinWeek
	default:
		return urgencyNone
	}
}

// daysUntil returns whole calendar days from now to due, negative when
// the due date has passed.
func daysUntil(now, due time.Time) int {
	nowDay := now.UTC().Truncate(24 * time.Hour)
	dueDay := due.UTC().Truncate(24 * time.Hour)
	return int(dueDay.Sub(nowDay) / (24 * time.Hour))
}

// correlationMultiplier reflects how well the task's categories have
// historically landed under the current dominant emotion. Affinity 0.5
// is neutral (multiplier 1.0); strong affinity lifts up to 1.2, strong
// aversion drops to 0.8. No recorded affinity leaves the score untouched.
func correlationMultiplier(ctx emotion.Context, categories []string, model *recommend.PreferenceModel) float64 {
	if model == nil || len(categories) == 0 {
		return 1.0
	}

	var sum float64
	var n int
	for _, c := range categories {
		if aff, ok := model.CategoryEmotionAffinity[recommend.AffinityKey(c, ctx.Dominant.Name)]; ok && aff.Samples > 0 {
			sum += aff.Score
			n++
		}
	}
	if n == 0 {
		return 1.0
	}
	return 0.8 + 0.4*(sum/float64(n))
}

// complexityMultiplier rewards tasks whose optimal energy sits close to
// the user's current energy, in [0.8, 1.2].
func complexityMultiplier(optimalEnergy, contextEnergy float64) float64 {
	return 0.8 + 0.4*(1-math.Min(1, math.Abs(optimalEnergy-contextEnergy)))
}

// DeriveScheduleAttributes recomputes a task's derived attributes from
// its static ones. It is a pure function invoked by the repository layer
// before each task write, keeping the scorer free of persistence side
// effects.
//
// Complexity grows with estimated effort (saturating at four hours) and
// priority; the optimal energy for a task rises with its complexity.
func DeriveScheduleAttributes(attrs recommend.TaskAttributes) (complexity, optimalEnergy float64) {
	effort := math.Min(1, float64(attrs.EstimatedMinutes)/240)

	priority := attrs.Priority
	if priority < 1 {
		priority = 1
	}
	if priority > 5 {
		priority = 5
	}

	complexity = clamp01(0.7*effort + 0.3*float64(priority-1)/4)
	optimalEnergy = clamp01(0.35 + 0.5*complexity)
	return complexity, optimalEnergy
}

// TaskRecommender wraps the shared scorer with task-pool queries.
type TaskRecommender struct {
	base
}

// NewTaskRecommender creates a task recommender.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTaskRecommender(scorer *recommend.Scorer, repo recommend.ItemRepository, logger zerolog.Logger) *TaskRecommender {
	return &TaskRecommender{base: base{
		domain: recommend.DomainTask,
		scorer: scorer,
		repo:   repo,
		logger: logger.With().Str("component", "task-recommender").Logger(),
	}}
}

// Recommend scores the user's open tasks against the context.
func (r *TaskRecommender) Recommend(ctx context.Context, ectx emotion.Context, model *recommend.PreferenceModel, history *recommend.History, limit int) ([]recommend.ScoredCandidate, error) {
	candidates, err := r.repo.FetchCandidates(ctx, recommend.DomainTask, recommend.Filter{})
	if err != nil {
		return nil, fmt.Errorf("fetch task candidates: %w", err)
	}
	return r.rank(ectx, candidates, model, history, limit), nil
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
