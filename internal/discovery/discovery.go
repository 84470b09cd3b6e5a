// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

// Package discovery wraps the external playlist/theme search API behind a
// circuit breaker. Discovery is strictly best-effort: an open breaker or
// a failed search degrades recommendations to already-persisted
// candidates and never propagates as a hard scoring failure.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/halcyonlabs/halcyon/internal/metrics"
)

// RawItem is an externally discovered item before it becomes a candidate.
type RawItem struct {
	// ExternalID identifies the item at the provider.
	ExternalID string `json:"external_id"`

	// Title is the display name.
	Title string `json:"title"`

	// Kind is the provider's item kind (playlist, theme).
	Kind string `json:"kind"`

	// Categories are provider-supplied grouping labels.
	Categories []string `json:"categories,omitempty"`

	// Energy is the provider's energy estimate in [0, 1], if any.
	Energy float64 `json:"energy,omitempty"`
}

// Searcher is the external search collaborator. Implementations live
// outside the engine core.
type Searcher interface {
	// Search returns raw items matching the query.
	Search(ctx context.Context, query string) ([]RawItem, error)
}

// Client wraps a Searcher with a circuit breaker so a flapping provider
// cannot slow every recommendation request.
type Client struct {
	searcher Searcher
	cb       *gobreaker.CircuitBreaker[[]RawItem]
	logger   zerolog.Logger
}

// NewClient creates a breaker-protected discovery client.
//
// Breaker configuration: opens after a 60% failure rate over at least 5
// requests, holds open for 1 minute, then allows 2 probe requests in
// half-open state.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewClient(searcher Searcher, logger zerolog.Logger) *Client {
	log := logger.With().Str("component", "discovery").Logger()

	cb := gobreaker.NewCircuitBreaker[[]RawItem](gobreaker.Settings{
		Name:        "discovery-search",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("discovery breaker state change")
			metrics.DiscoveryBreakerState.Set(stateToFloat(to))
		},
	})

	return &Client{
		searcher: searcher,
		cb:       cb,
		logger:   log,
	}
}

// Search runs a query through the breaker. Errors are returned so callers
// can log them, but callers must treat them as a degraded-mode signal,
// not a failure of scoring.
func (c *Client) Search(ctx context.Context, query string) ([]RawItem, error) {
	if c.searcher == nil {
		return nil, fmt.Errorf("no searcher configured")
	}

	items, err := c.cb.Execute(func() ([]RawItem, error) {
		return c.searcher.Search(ctx, query)
	})
	if err != nil {
		return nil, fmt.Errorf("discovery search %q: %w", query, err)
	}

	c.logger.Debug().Str("query", query).Int("results", len(items)).Msg("discovery search complete")
	return items, nil
}

// stateToFloat maps breaker states onto the gauge encoding.
func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
