// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package notify

import (
	"context"
	"fmt"
	"time"
)

// Category partitions notifications for rate limiting. Categories are
// independent: filling one window never blocks another.
type Category string

// Built-in notification categories.
const (
	CategoryGeneral  Category = "general"
	CategoryWellness Category = "wellness"
)

// Priority orders queued notifications. Higher priority entries are
// promoted ahead of normal ones when deferred.
type Priority int

const (
	// PriorityNormal is the default.
	PriorityNormal Priority = iota
	// PriorityHigh promotes a deferred notification ahead of normal
	// ones in the retry queue.
	PriorityHigh
)

// State is a notification's position in its lifecycle:
// Requested → {Sent | Queued} → (Queued → Sent | Queued → Dropped).
// Sent and Dropped are terminal.
type State int

const (
	// StateRequested is the initial state before admission control.
	StateRequested State = iota
	// StateSent means the notification was handed to the sender.
	StateSent
	// StateQueued means the notification was deferred by rate limiting.
	StateQueued
	// StateDropped means the notification aged out or was evicted.
	StateDropped
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateRequested:
		return "requested"
	case StateSent:
		return "sent"
	case StateQueued:
		return "queued"
	case StateDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Notification is one message awaiting a delivery decision.
type Notification struct {
	// ID uniquely identifies the notification. Assigned on Schedule
	// when empty.
	ID string `json:"id"`

	// Category selects the rate-limit window.
	Category Category `json:"category"`

	// Priority orders the notification within the retry queue.
	Priority Priority `json:"priority"`

	// Title is the short headline.
	Title string `json:"title"`

	// Body is the message text.
	Body string `json:"body"`

	// CreatedAt is when the notification was requested.
	CreatedAt time.Time `json:"created_at"`
}

// Sender is the delivery collaborator. Transport (push, websocket) is
// out of the engine's scope; the engine only decides whether and when.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

// Limit is one category's sliding-window admission rule: at most Count
// sends per rolling Window.
type Limit struct {
	Count  int           `json:"count"`
	Window time.Duration `json:"window"`
}

// Config contains notification engine configuration.
type Config struct {
	// RateLimits maps each category to its admission rule.
	// Defaults: general 2 per 5 minutes, wellness 1 per hour.
	RateLimits map[Category]Limit `json:"rate_limits"`

	// QueueMaxSize is the hard cap on deferred notifications. The
	// oldest entry is evicted when a new one would exceed it.
	// Default: 50.
	QueueMaxSize int `json:"queue_max_size"`

	// QueueMaxAge is how long a deferred notification stays eligible.
	// Older entries are dropped on drain instead of being sent.
	// Default: 1h.
	QueueMaxAge time.Duration `json:"queue_max_age"`

	// DrainInterval is how often the supervised drainer runs.
	// Default: 30s.
	DrainInterval time.Duration `json:"drain_interval"`
}

// DefaultConfig returns the reference rate limits and queue bounds.
func DefaultConfig() *Config {
	return &Config{
		RateLimits: map[Category]Limit{
			CategoryGeneral:  {Count: 2, Window: 5 * time.Minute},
			CategoryWellness: {Count: 1, Window: time.Hour},
		},
		QueueMaxSize:  50,
		QueueMaxAge:   time.Hour,
		DrainInterval: 30 * time.Second,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.RateLimits) == 0 {
		return fmt.Errorf("at least one rate-limit category is required")
	}
	for category, limit := range c.RateLimits {
		if limit.Count < 1 {
			return fmt.Errorf("rate_limits.%s: count must be positive, got %d", category, limit.Count)
		}
		if limit.Window <= 0 {
			return fmt.Errorf("rate_limits.%s: window must be positive, got %v", category, limit.Window)
		}
	}
	if c.QueueMaxSize < 1 {
		return fmt.Errorf("queue_max_size must be positive, got %d", c.QueueMaxSize)
	}
	if c.QueueMaxAge <= 0 {
		return fmt.Errorf("queue_max_age must be positive, got %v", c.QueueMaxAge)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := &Config{
		RateLimits:    make(map[Category]Limit, len(c.RateLimits)),
		QueueMaxSize:  c.QueueMaxSize,
		QueueMaxAge:   c.QueueMaxAge,
		DrainInterval: c.DrainInterval,
	}
	for category, limit := range c.RateLimits {
		out.RateLimits[category] = limit
	}
	return out
}
