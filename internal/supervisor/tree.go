// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

// Package supervisor wraps suture for the daemon's long-running
// services. One flat tree is enough here: the drainer and the HTTP
// endpoint fail independently and each restarts on its own.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor restart parameters.
type TreeConfig struct {
	// FailureThreshold is the number of failures before backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the failure decay rate in seconds. Default: 30
	FailureDecay float64

	// FailureBackoff is how long to wait once the threshold trips.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's documented defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree supervises the daemon's services and restarts them on failure.
type Tree struct {
	root *suture.Supervisor
}

// NewTree creates a supervisor tree logging restart events through the
// given slog logger.
func NewTree(logger *slog.Logger, cfg TreeConfig) *Tree {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5.0
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = 30.0
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = 15 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	// sutureslog's hook constructor has a pointer receiver.
	handler := &sutureslog.Handler{Logger: logger}

	root := suture.New("halcyon", suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	})

	return &Tree{root: root}
}

// Add registers a service with the tree.
func (t *Tree) Add(svc suture.Service) {
	t.root.Add(svc)
}

// Serve runs the tree until the context is canceled, returning the
// tree's terminal error.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}
