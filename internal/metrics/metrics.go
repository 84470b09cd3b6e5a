// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

// Package metrics provides Prometheus instrumentation for the
// recommendation and notification engine.
//
// Exposed metric families:
//   - halcyon_recommendations_total{domain}: scoring requests served
//   - halcyon_scoring_duration_seconds{domain}: scoring latency
//   - halcyon_candidates_scored_total{domain}: candidates evaluated
//   - halcyon_feedback_total{outcome}: feedback events by outcome
//   - halcyon_notifications_total{category,state}: notification decisions
//   - halcyon_notification_queue_depth: current deferred-notification count
//   - halcyon_discovery_breaker_state: external search breaker state
//     (0=closed, 1=open, 2=half-open)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecommendationsTotal counts scoring requests served per domain.
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halcyon_recommendations_total",
			Help: "Total recommendation requests served",
		},
		[]string{"domain"},
	)

	// ScoringDuration observes scoring latency per domain.
	ScoringDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "halcyon_scoring_duration_seconds",
			Help:    "Duration of candidate scoring in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"domain"},
	)

	// CandidatesScored counts candidates evaluated per domain.
	CandidatesScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halcyon_candidates_scored_total",
			Help: "Total candidates evaluated by the scorer",
		},
		[]string{"domain"},
	)

	// FeedbackTotal counts feedback events by outcome.
	FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halcyon_feedback_total",
			Help: "Total feedback events applied, by outcome",
		},
		[]string{"outcome"},
	)

	// NotificationsTotal counts terminal notification decisions.
	// state is one of sent, queued, dropped.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halcyon_notifications_total",
			Help: "Notification scheduling decisions by category and state",
		},
		[]string{"category", "state"},
	)

	// QueueDepth tracks the current number of deferred notifications.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "halcyon_notification_queue_depth",
			Help: "Current number of notifications waiting in the retry queue",
		},
	)

	// DiscoveryBreakerState tracks the external search circuit breaker.
	// 0=closed, 1=open, 2=half-open.
	DiscoveryBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "halcyon_discovery_breaker_state",
			Help: "External discovery circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
	)
)
