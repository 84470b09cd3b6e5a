// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package recommend

import (
	"io"
	"math"
	"testing"
	"time"

	"github.com/halcyonlabs/halcyon/internal/clock"
	"github.com/halcyonlabs/halcyon/internal/emotion"
	"github.com/halcyonlabs/halcyon/internal/logging"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func testScorer(t *testing.T, clk clock.Clock) *Scorer {
	t.Helper()
	s, err := NewScorer(nil, clk, logging.NewTestLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewScorer() error = %v", err)
	}
	return s
}

func happyContext() emotion.Context {
	return emotion.Normalize([]emotion.Reading{
		{Name: emotion.Happy, Probability: 0.8},
		{Name: emotion.Neutral, Probability: 0.2},
	})
}

func musicCandidate(id string) Candidate {
	return Candidate{
		ID:          id,
		Domain:      DomainMusic,
		Title:       "Upbeat Mix",
		Categories:  []string{"focus"},
		EmotionTags: []emotion.Name{emotion.Happy},
		EnergyAffinity: EnergyRange{
			Low:  0.6,
			High: 0.88,
		},
	}
}

func TestNewScorerValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "nil config uses defaults", cfg: nil, wantErr: false},
		{name: "default config valid", cfg: DefaultConfig(), wantErr: false},
		{
			name:    "empty tables rejected",
			cfg:     &Config{PreferenceBonus: 0.1, RecencyPenaltyBase: 0.8, RecencyPenaltyWindow: time.Hour},
			wantErr: true,
		},
		{
			name: "unknown composition rejected",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.Tables[DomainMusic] = DomainTable{Composition: "harmonic", Weights: FactorWeights{FactorEnergy: 1}}
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "negative weight rejected",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.Tables[DomainMusic].Weights[FactorEnergy] = -0.5
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "recency base above one rejected",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.RecencyPenaltyBase = 1.2
				return cfg
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScorer(tt.cfg, nil, logging.NewTestLogger(io.Discard))
			if (err != nil) != tt.wantErr {
				t.Errorf("NewScorer() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScoreDeterminism(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	s := testScorer(t, clk)
	s.RegisterShaper(staticShaper{
		domain: DomainTask,
		factors: map[string]float64{
			FactorPriority:   1.1,
			FactorUrgency:    1.2,
			FactorComplexity: 0.9,
		},
	})
	ctx := happyContext()

	candidates := []Candidate{
		musicCandidate("a"),
		musicCandidate("b"),
		{ID: "c", Domain: DomainMusic, EnergyAffinity: EnergyRange{Low: 0.1, High: 0.3}},
		{ID: "d", Domain: DomainTask, EnergyAffinity: EnergyRange{Low: 0.5, High: 0.7}},
	}
	model := NewPreferenceModel("u1")
	model.AddCategory("focus")
	history := NewHistory()
	history.Record("a", clk.Now().Add(-30*time.Minute))

	first := s.Score(ctx, candidates, model, history)

	// Bitwise equality, not tolerance: float accumulation order must not
	// depend on map iteration, so repeated runs may never differ in the
	// last bit. Enough repetitions to make order variation overwhelmingly
	// likely to surface if it exists.
	for run := range 1000 {
		got := s.Score(ctx, candidates, model, history)
		if len(got) != len(first) {
			t.Fatalf("run %d: len = %d, want %d", run, len(got), len(first))
		}
		for i := range got {
			if got[i].Candidate.ID != first[i].Candidate.ID {
				t.Fatalf("run %d position %d: ID %q, want %q", run, i, got[i].Candidate.ID, first[i].Candidate.ID)
			}
			if got[i].Score != first[i].Score {
				t.Fatalf("run %d position %d: score %.20g, want %.20g", run, i, got[i].Score, first[i].Score)
			}
		}
	}
}

func TestScoreBounds(t *testing.T) {
	s := testScorer(t, nil)
	ctx := happyContext()

	candidates := []Candidate{
		musicCandidate("match"),
		{ID: "mismatch", Domain: DomainMusic, EmotionTags: []emotion.Name{emotion.Sad}, EnergyAffinity: EnergyRange{Low: 0, High: 0.05}},
		{ID: "rated", Domain: DomainMusic, Rating: 5, HasRating: true, EnergyAffinity: EnergyRange{Low: 0.7, High: 0.8}},
		{ID: "untagged", Domain: DomainTheme, EnergyAffinity: EnergyRange{Low: 0.4, High: 0.6}},
	}
	model := NewPreferenceModel("u1")
	model.AddCategory("focus")

	for _, sc := range s.Score(ctx, candidates, model, nil) {
		if sc.Score < 0 || sc.Score > 1 {
			t.Errorf("candidate %q score = %f outside [0, 1]", sc.Candidate.ID, sc.Score)
		}
		for name, v := range sc.Factors {
			if v < 0 {
				t.Errorf("candidate %q factor %q = %f, want >= 0", sc.Candidate.ID, name, v)
			}
		}
	}
}

func TestScoreDeduplicatesByID(t *testing.T) {
	s := testScorer(t, nil)

	a := musicCandidate("dup")
	b := musicCandidate("dup")
	b.Title = "Second Occurrence"

	scored := s.Score(happyContext(), []Candidate{a, b}, nil, nil)
	if len(scored) != 1 {
		t.Fatalf("len(scored) = %d, want 1", len(scored))
	}
	if scored[0].Candidate.Title != "Upbeat Mix" {
		t.Errorf("kept title %q, want first occurrence", scored[0].Candidate.Title)
	}
}

func TestScoreStableTieOrder(t *testing.T) {
	s := testScorer(t, nil)

	// Identical attributes produce identical scores; stable sort must
	// keep insertion order.
	candidates := []Candidate{musicCandidate("first"), musicCandidate("second"), musicCandidate("third")}
	for i := range candidates {
		candidates[i].Title = "Same"
	}

	scored := s.Score(happyContext(), candidates, nil, nil)
	wantOrder := []string{"first", "second", "third"}
	for i, want := range wantOrder {
		if scored[i].Candidate.ID != want {
			t.Errorf("position %d = %q, want %q", i, scored[i].Candidate.ID, want)
		}
	}
}

func TestAdditiveCompositionKnownValue(t *testing.T) {
	s := testScorer(t, nil)

	// Full emotion match (single tag at p=1.0), exact energy match, no
	// feedback, no rating:
	// 0.4*1.0 + 0.3*1.0 + 0.2*0.5 + 0.1*0.5 = 0.85
	ctx := emotion.Normalize([]emotion.Reading{{Name: emotion.Happy, Probability: 1.0}})
	cand := Candidate{
		ID:             "known",
		Domain:         DomainMusic,
		EmotionTags:    []emotion.Name{emotion.Happy},
		EnergyAffinity: EnergyRange{Low: 0.8, High: 0.8},
	}

	scored := s.Score(ctx, []Candidate{cand}, nil, nil)
	if !almostEqual(scored[0].Score, 0.85) {
		t.Errorf("score = %f, want 0.85", scored[0].Score)
	}
}

func TestEmotionMatchFactor(t *testing.T) {
	s := testScorer(t, nil)
	ctx := happyContext()

	tests := []struct {
		name string
		tags []emotion.Name
		want float64
	}{
		{name: "no tags neutral", tags: nil, want: 0.5},
		{name: "tags without match low", tags: []emotion.Name{emotion.Sad, emotion.Angry}, want: 0.1},
		{name: "matched tag averages probabilities", tags: []emotion.Name{emotion.Happy}, want: 0.8},
		{
			name: "mixed tags average only matches",
			tags: []emotion.Name{emotion.Happy, emotion.Neutral},
			want: 0.5, // (0.8 + 0.2) / 2
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand := musicCandidate("x")
			cand.EmotionTags = tt.tags

			scored := s.Score(ctx, []Candidate{cand}, nil, nil)
			if got := scored[0].Factors[FactorEmotion]; !almostEqual(got, tt.want) {
				t.Errorf("emotion factor = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestPreferenceBonus(t *testing.T) {
	s := testScorer(t, nil)
	ctx := happyContext()
	cand := musicCandidate("pref")

	without := s.Score(ctx, []Candidate{cand}, nil, nil)[0].Score

	model := NewPreferenceModel("u1")
	model.AddCategory("focus")
	with := s.Score(ctx, []Candidate{cand}, model, nil)[0]

	// One overlapping category: +0.1, plus the preference factor is not
	// part of the music table so the base is unchanged.
	if !almostEqual(with.Score, without+0.1) {
		t.Errorf("score with preference = %f, want %f", with.Score, without+0.1)
	}

	found := false
	for _, reason := range with.Reasons {
		if reason == "matches 1 preferred categories" {
			found = true
		}
	}
	if !found {
		t.Errorf("Reasons = %v, want preference reason", with.Reasons)
	}
}

func TestRecencyPenalty(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	s := testScorer(t, clk)
	ctx := happyContext()

	fresh := musicCandidate("fresh")
	repeated := musicCandidate("repeated")

	history := NewHistory()
	for i := range 3 {
		history.Record("repeated", start.Add(time.Duration(i)*10*time.Minute))
	}
	clk.Set(start.Add(time.Hour))

	scored := s.Score(ctx, []Candidate{fresh, repeated}, nil, history)

	byID := map[string]ScoredCandidate{}
	for _, sc := range scored {
		byID[sc.Candidate.ID] = sc
	}

	if byID["repeated"].Score >= byID["fresh"].Score {
		t.Errorf("repeated score %f not below fresh score %f", byID["repeated"].Score, byID["fresh"].Score)
	}
	// base^3 = 0.8^3 = 0.512
	want := byID["fresh"].Score * 0.512
	if !almostEqual(byID["repeated"].Score, want) {
		t.Errorf("repeated score = %f, want %f", byID["repeated"].Score, want)
	}

	// Once the window passes, the penalty disappears.
	clk.Set(start.Add(3 * time.Hour))
	scored = s.Score(ctx, []Candidate{fresh, repeated}, nil, history)
	if !almostEqual(scored[0].Score, scored[1].Score) {
		t.Errorf("scores after window differ: %f vs %f", scored[0].Score, scored[1].Score)
	}
}

func TestMultiplicativeComposition(t *testing.T) {
	s := testScorer(t, nil)

	// Without a registered shaper, the task table sees only the factors
	// it names that the base set provides (energy); missing multipliers
	// are skipped. Exact energy match = 1.0 → score 1.0 before clamp.
	ctx := emotion.Normalize([]emotion.Reading{{Name: emotion.Happy, Probability: 1.0}})
	cand := Candidate{
		ID:             "t1",
		Domain:         DomainTask,
		EnergyAffinity: EnergyRange{Low: 0.8, High: 0.8},
	}

	scored := s.Score(ctx, []Candidate{cand}, nil, nil)
	if !almostEqual(scored[0].Score, 1.0) {
		t.Errorf("score = %f, want 1.0", scored[0].Score)
	}
}

type staticShaper struct {
	domain  Domain
	factors map[string]float64
}

func (sh staticShaper) Domain() Domain { return sh.domain }
func (sh staticShaper) Shape(emotion.Context, Candidate, *PreferenceModel) (map[string]float64, []string) {
	return sh.factors, []string{"static shaper"}
}

func TestShaperFactorsParticipate(t *testing.T) {
	s := testScorer(t, nil)
	s.RegisterShaper(staticShaper{
		domain: DomainTask,
		factors: map[string]float64{
			FactorPriority: 1.2,
			FactorUrgency:  1.5,
		},
	})

	ctx := emotion.Normalize([]emotion.Reading{{Name: emotion.Happy, Probability: 1.0}})
	cand := Candidate{
		ID:             "t1",
		Domain:         DomainTask,
		EnergyAffinity: EnergyRange{Low: 0.6, High: 0.6},
	}

	scored := s.Score(ctx, []Candidate{cand}, nil, nil)

	// energy = 1 - |0.6 - 0.8| = 0.8; 0.8 * 1.2 * 1.5 = 1.44 → clamped.
	if !almostEqual(scored[0].Score, 1.0) {
		t.Errorf("score = %f, want clamped 1.0", scored[0].Score)
	}
	if !almostEqual(scored[0].Factors[FactorUrgency], 1.5) {
		t.Errorf("urgency factor = %f, want 1.5", scored[0].Factors[FactorUrgency])
	}

	found := false
	for _, r := range scored[0].Reasons {
		if r == "static shaper" {
			found = true
		}
	}
	if !found {
		t.Errorf("Reasons = %v, want shaper reason included", scored[0].Reasons)
	}
}

func TestEmptyPoolIsNotAnError(t *testing.T) {
	s := testScorer(t, nil)
	scored := s.Score(happyContext(), nil, nil, nil)
	if len(scored) != 0 {
		t.Errorf("len(scored) = %d, want 0", len(scored))
	}
}
