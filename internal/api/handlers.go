// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/halcyonlabs/halcyon/internal/emotion"
	"github.com/halcyonlabs/halcyon/internal/learner"
	"github.com/halcyonlabs/halcyon/internal/notify"
	"github.com/halcyonlabs/halcyon/internal/present"
	"github.com/halcyonlabs/halcyon/internal/recommend"
)

// defaultLimit caps a recommendation response when the request does not
// say how many it wants.
const defaultLimit = 5

// recommendRequest is the body of POST /api/v1/recommend/{domain}.
type recommendRequest struct {
	UserID     string             `json:"user_id"`
	Emotions   []emotion.Reading  `json:"emotions"`
	EmotionMap map[string]float64 `json:"emotion_map,omitempty"`
	EnergyHint *float64           `json:"energy_hint,omitempty"`
	Limit      int                `json:"limit,omitempty"`
	Tone       string             `json:"tone,omitempty"`
	Seed       int64              `json:"seed,omitempty"`
}

// recommendation is one ranked item in the response.
type recommendation struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons,omitempty"`
	Message string   `json:"message,omitempty"`
}

// recommendResponse is the body of a successful recommendation call.
type recommendResponse struct {
	Domain      string           `json:"domain"`
	EnergyLevel float64          `json:"energy_level"`
	Dominant    string           `json:"dominant_emotion"`
	Items       []recommendation `json:"items"`
}

// handleRecommend normalizes the submitted emotion readings, ranks the
// domain's candidate pool, and records the returned items in the user's
// recency history.
func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}

	ectx := s.normalizeRequest(&req)
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	model, err := s.prefs.LoadPreferenceModel(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	history := s.history(req.UserID)

	domain := recommend.Domain(chi.URLParam(r, "domain"))
	scored, err := s.recommend(r.Context(), domain, ectx, model, history, limit)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errUnknownDomain) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err)
		return
	}

	now := s.clk.Now()
	items := make([]recommendation, 0, len(scored))
	for _, sc := range scored {
		history.Record(sc.Candidate.ID, now)
		items = append(items, recommendation{
			ID:      sc.Candidate.ID,
			Title:   sc.Candidate.Title,
			Score:   sc.Score,
			Reasons: sc.Reasons,
			Message: present.Render(sc.Candidate.Title, parseTone(req.Tone), req.Seed),
		})
	}

	s.writeJSON(w, http.StatusOK, recommendResponse{
		Domain:      string(domain),
		EnergyLevel: ectx.EnergyLevel,
		Dominant:    string(ectx.Dominant.Name),
		Items:       items,
	})
}

// errUnknownDomain marks a recommendation request for a domain without a
// recommender.
var errUnknownDomain = errors.New("unknown recommendation domain")

// recommend dispatches to the domain recommender.
func (s *Server) recommend(ctx context.Context, domain recommend.Domain, ectx emotion.Context, model *recommend.PreferenceModel, history *recommend.History, limit int) ([]recommend.ScoredCandidate, error) {
	switch domain {
	case recommend.DomainTask:
		return s.task.Recommend(ctx, ectx, model, history, limit)
	case recommend.DomainMusic:
		return s.music.Recommend(ctx, ectx, model, history, limit)
	case recommend.DomainTheme:
		return s.theme.Recommend(ctx, ectx, model, history, limit)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownDomain, domain)
	}
}

// normalizeRequest builds the emotion context from whichever input form
// the request used, applying the energy hint reconciliation when a hint
// is present.
func (s *Server) normalizeRequest(req *recommendRequest) emotion.Context {
	var ectx emotion.Context
	if len(req.Emotions) > 0 {
		ectx = emotion.Normalize(req.Emotions)
	} else {
		probs := make(map[emotion.Name]float64, len(req.EmotionMap))
		for name, p := range req.EmotionMap {
			probs[emotion.Name(name)] = p
		}
		ectx = emotion.NormalizeMap(probs)
	}

	if req.EnergyHint != nil {
		ectx.EnergyLevel = emotion.ReconcileEnergy(ectx.EnergyLevel, *req.EnergyHint)
	}
	return ectx
}

// feedbackRequest is the body of POST /api/v1/feedback.
type feedbackRequest struct {
	UserID      string               `json:"user_id"`
	CandidateID string               `json:"candidate_id"`
	Domain      string               `json:"domain"`
	Outcome     string               `json:"outcome"`
	Emotions    []emotion.Reading    `json:"emotions"`
	Alternative *learner.Alternative `json:"alternative,omitempty"`
}

// handleFeedback applies one feedback event through the learner.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	outcome, err := parseOutcome(req.Outcome)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	cand, err := s.findCandidate(r.Context(), recommend.Domain(req.Domain), req.CandidateID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}

	event := learner.FeedbackEvent{
		Context:     emotion.Normalize(req.Emotions),
		CandidateID: req.CandidateID,
		Outcome:     outcome,
		Alternative: req.Alternative,
		OccurredAt:  s.clk.Now(),
	}

	_, updated, err := s.learn.Apply(r.Context(), req.UserID, event, cand)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, learner.ErrInvalidFeedback) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"candidate_id":    updated.ID,
		"acceptance_rate": updated.AcceptanceRate,
		"feedback_count":  updated.FeedbackCount,
	})
}

// notifyRequest is the body of POST /api/v1/notifications.
type notifyRequest struct {
	Category string `json:"category"`
	Priority string `json:"priority,omitempty"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

// handleNotify schedules one notification and reports its state.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	n := &notify.Notification{
		Category: notify.Category(req.Category),
		Title:    req.Title,
		Body:     req.Body,
	}
	if req.Priority == "high" {
		n.Priority = notify.PriorityHigh
	}

	decision, err := s.notify.Schedule(r.Context(), n)
	if err != nil {
		// Admission errors are the caller's fault; a sender failure is a
		// downstream problem and must not read as a bad request.
		status := http.StatusBadRequest
		if errors.Is(err, notify.ErrDeliveryFailed) {
			status = http.StatusBadGateway
		}
		s.writeError(w, status, err)
		return
	}

	resp := map[string]any{
		"id":    decision.Notification.ID,
		"state": decision.State.String(),
	}
	if decision.State == notify.StateQueued {
		resp["retry_after"] = decision.Wait.String()
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

// findCandidate locates a candidate by ID within its domain pool.
func (s *Server) findCandidate(ctx context.Context, domain recommend.Domain, id string) (recommend.Candidate, error) {
	pool, err := s.repo.FetchCandidates(ctx, domain, recommend.Filter{})
	if err != nil {
		return recommend.Candidate{}, err
	}
	for _, cand := range pool {
		if cand.ID == id {
			return cand, nil
		}
	}
	return recommend.Candidate{}, fmt.Errorf("candidate %q not found in domain %q", id, domain)
}

// parseOutcome maps the wire outcome string to the learner enum.
func parseOutcome(s string) (learner.Outcome, error) {
	switch s {
	case "accepted":
		return learner.OutcomeAccepted, nil
	case "rejected":
		return learner.OutcomeRejected, nil
	case "modified":
		return learner.OutcomeModified, nil
	case "ignored":
		return learner.OutcomeIgnored, nil
	default:
		return 0, fmt.Errorf("unknown outcome %q", s)
	}
}

// parseTone maps the wire tone string to a presentation tone.
func parseTone(s string) present.Tone {
	switch s {
	case "coach":
		return present.ToneCoach
	case "minimal":
		return present.ToneMinimal
	default:
		return present.ToneWarm
	}
}

// writeJSON writes a JSON response body.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("response encode failed")
	}
}

// writeError writes a JSON error body.
func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
	} else {
		s.logger.Debug().Err(err).Msg("request rejected")
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
