// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

// Package api provides the HTTP surface over the engine: recommendation
// queries, feedback ingestion, and notification scheduling, routed with
// Chi.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/halcyonlabs/halcyon/internal/clock"
	"github.com/halcyonlabs/halcyon/internal/learner"
	"github.com/halcyonlabs/halcyon/internal/notify"
	"github.com/halcyonlabs/halcyon/internal/recommend"
	"github.com/halcyonlabs/halcyon/internal/recommend/domains"
)

// Server holds the engine collaborators the HTTP handlers dispatch to.
type Server struct {
	task   *domains.TaskRecommender
	music  *domains.MusicRecommender
	theme  *domains.ThemeRecommender
	learn  *learner.Learner
	notify *notify.Engine
	repo   recommend.ItemRepository
	prefs  learner.PreferenceRepository
	clk    clock.Clock
	logger zerolog.Logger

	// Recommendation history is per-user, in-memory, and feeds the
	// recency penalty. Restart clears it, which only means the penalty
	// starts cold.
	mu        sync.Mutex
	histories map[string]*recommend.History
}

// NewServer wires the handlers to their collaborators.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewServer(
	task *domains.TaskRecommender,
	music *domains.MusicRecommender,
	theme *domains.ThemeRecommender,
	learn *learner.Learner,
	notifyEngine *notify.Engine,
	repo recommend.ItemRepository,
	prefs learner.PreferenceRepository,
	clk clock.Clock,
	logger zerolog.Logger,
) *Server {
	if clk == nil {
		clk = clock.System{}
	}
	return &Server{
		task:      task,
		music:     music,
		theme:     theme,
		learn:     learn,
		notify:    notifyEngine,
		repo:      repo,
		prefs:     prefs,
		clk:       clk,
		logger:    logger.With().Str("component", "api").Logger(),
		histories: make(map[string]*recommend.History),
	}
}

// RouteConfig tunes the router's outer middleware.
type RouteConfig struct {
	// CORSOrigins lists allowed cross-origin hosts. Empty denies all
	// cross-origin requests.
	CORSOrigins []string

	// RateLimitRequests caps requests per client IP per window. Zero
	// disables HTTP-level throttling; the notification engine keeps its
	// own per-category limits either way.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Stream, when set, is mounted as the notification stream endpoint.
	Stream http.Handler
}

// Routes builds the router.
func (s *Server) Routes(rc RouteConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rc.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         86400,
	}))
	if rc.RateLimitRequests > 0 {
		window := rc.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		r.Use(httprate.LimitByIP(rc.RateLimitRequests, window))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/recommend/{domain}", s.handleRecommend)
		r.Post("/feedback", s.handleFeedback)
		r.Post("/notifications", s.handleNotify)
		if rc.Stream != nil {
			r.Method(http.MethodGet, "/notifications/stream", rc.Stream)
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// history returns the user's recommendation history, creating it on
// first use.
func (s *Server) history(userID string) *recommend.History {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.histories[userID]
	if !ok {
		h = recommend.NewHistory()
		s.histories[userID] = h
	}
	return h
}
