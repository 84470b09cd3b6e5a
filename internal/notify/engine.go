// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/halcyonlabs/halcyon/internal/clock"
	"github.com/halcyonlabs/halcyon/internal/metrics"
)

// Engine errors.
var (
	// ErrNilNotification is returned when Schedule receives nil.
	ErrNilNotification = errors.New("nil notification")

	// ErrEmptyPayload is returned when a notification has neither
	// title nor body.
	ErrEmptyPayload = errors.New("notification has no title or body")

	// ErrDeliveryFailed wraps sender errors so callers can tell a
	// downstream delivery failure from a rejected request.
	ErrDeliveryFailed = errors.New("notification delivery failed")
)

// Decision is the outcome of one Schedule or Drain call.
type Decision struct {
	// State is where the notification ended up.
	State State

	// Notification is the affected notification. Nil when a drain
	// call found the queue empty.
	Notification *Notification

	// Wait is the earliest retry delay when State is StateQueued.
	Wait time.Duration
}

// Engine decides whether each notification is sent now, deferred, or
// dropped. It is an explicit object: callers construct one per process
// and share it, there is no package-level instance. Safe for concurrent
// use.
type Engine struct {
	cfg     *Config
	limiter *RateLimiter
	queue   *queue
	sender  Sender
	clk     clock.Clock
	logger  zerolog.Logger
}

// NewEngine creates a notification engine. A nil cfg selects defaults.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, sender Sender, clk clock.Clock, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid notify config: %w", err)
	}
	if sender == nil {
		return nil, errors.New("sender is required")
	}
	if clk == nil {
		clk = clock.System{}
	}

	return &Engine{
		cfg:     cfg.Clone(),
		limiter: NewRateLimiter(cfg.RateLimits, clk),
		queue:   newQueue(cfg.QueueMaxSize),
		sender:  sender,
		clk:     clk,
		logger:  logger.With().Str("component", "notify-engine").Logger(),
	}, nil
}

// Schedule admits one notification: sends it immediately when its
// category window has capacity, otherwise queues it for a later drain.
// The returned decision reports the resulting state and, when queued,
// the earliest retry delay.
func (e *Engine) Schedule(ctx context.Context, n *Notification) (Decision, error) {
	if n == nil {
		return Decision{}, ErrNilNotification
	}
	if n.Title == "" && n.Body == "" {
		return Decision{Notification: n}, ErrEmptyPayload
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = e.clk.Now()
	}

	allowed, wait, err := e.limiter.CheckAndReserve(n.Category)
	if err != nil {
		return Decision{Notification: n}, err
	}

	if !allowed {
		e.enqueue(n, wait)
		return Decision{State: StateQueued, Notification: n, Wait: wait}, nil
	}

	if err := e.send(ctx, n); err != nil {
		return Decision{State: StateSent, Notification: n}, err
	}
	return Decision{State: StateSent, Notification: n}, nil
}

// Drain processes the head of the retry queue: entries older than the
// configured age are dropped without retry, and at most one fresh entry
// is sent per call. A decision with a nil Notification means the queue
// was empty.
//
// The single-send discipline keeps a burst of deferred notifications
// from arriving all at once the moment a window reopens.
func (e *Engine) Drain(ctx context.Context) (Decision, error) {
	for {
		head, ok := e.queue.pop()
		if !ok {
			return Decision{}, nil
		}

		n := head.Notification
		if e.clk.Now().Sub(head.EnqueuedAt) > e.cfg.QueueMaxAge {
			metrics.NotificationsTotal.WithLabelValues(string(n.Category), StateDropped.String()).Inc()
			e.logger.Info().
				Str("id", n.ID).
				Str("category", string(n.Category)).
				Msg("stale notification dropped")
			return Decision{State: StateDropped, Notification: n}, nil
		}

		allowed, wait, err := e.limiter.CheckAndReserve(n.Category)
		if err != nil {
			// Config changed underneath a queued entry; drop it and
			// keep draining rather than wedging the queue head.
			metrics.NotificationsTotal.WithLabelValues(string(n.Category), StateDropped.String()).Inc()
			e.logger.Warn().Err(err).Str("id", n.ID).Msg("dropping unroutable queued notification")
			continue
		}
		if !allowed {
			e.queue.requeueFront(head)
			return Decision{State: StateQueued, Notification: n, Wait: wait}, nil
		}

		if err := e.send(ctx, n); err != nil {
			return Decision{State: StateSent, Notification: n}, err
		}
		return Decision{State: StateSent, Notification: n}, nil
	}
}

// QueueDepth returns the number of deferred notifications.
func (e *Engine) QueueDepth() int {
	return e.queue.len()
}

// enqueue defers a notification, recording any eviction the bound forced.
func (e *Engine) enqueue(n *Notification, wait time.Duration) {
	evicted := e.queue.push(n, e.clk.Now())
	metrics.NotificationsTotal.WithLabelValues(string(n.Category), StateQueued.String()).Inc()
	e.logger.Debug().
		Str("id", n.ID).
		Str("category", string(n.Category)).
		Dur("retry_after", wait).
		Msg("notification rate limited, queued")

	if evicted != nil {
		metrics.NotificationsTotal.WithLabelValues(string(evicted.Category), StateDropped.String()).Inc()
		e.logger.Info().
			Str("id", evicted.ID).
			Str("category", string(evicted.Category)).
			Msg("queue full, oldest notification evicted")
	}
}

// send hands the notification to the delivery collaborator. The rate
// limit slot stays consumed even when delivery fails: retrying a failed
// send is the sender's concern, not the admission controller's.
func (e *Engine) send(ctx context.Context, n *Notification) error {
	if err := e.sender.Send(ctx, n); err != nil {
		e.logger.Error().Err(err).Str("id", n.ID).Msg("notification delivery failed")
		return fmt.Errorf("%w: send notification %s: %w", ErrDeliveryFailed, n.ID, err)
	}
	metrics.NotificationsTotal.WithLabelValues(string(n.Category), StateSent.String()).Inc()
	e.logger.Debug().
		Str("id", n.ID).
		Str("category", string(n.Category)).
		Msg("notification sent")
	return nil
}
