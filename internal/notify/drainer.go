// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Drainer periodically drains the engine's retry queue. It implements
// suture.Service so the supervision tree restarts it on failure.
type Drainer struct {
	engine   *Engine
	interval time.Duration
	logger   zerolog.Logger
}

// NewDrainer creates a drainer ticking at the engine's configured
// interval.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewDrainer(engine *Engine, logger zerolog.Logger) *Drainer {
	interval := engine.cfg.DrainInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Drainer{
		engine:   engine,
		interval: interval,
		logger:   logger.With().Str("component", "notify-drainer").Logger(),
	}
}

// Serve runs the drain loop until the context is canceled. Each tick
// drains repeatedly until the queue is empty, blocked by a rate limit,
// or a delivery fails; errors are logged and the loop continues, since
// a broken sender should not take down the supervision tree.
func (d *Drainer) Serve(ctx context.Context) error {
	d.logger.Info().Dur("interval", d.interval).Msg("notification drainer started")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("notification drainer stopping")
			return ctx.Err()
		case <-ticker.C:
			d.drainTick(ctx)
		}
	}
}

// drainTick drains until nothing more can move this tick.
func (d *Drainer) drainTick(ctx context.Context) {
	for {
		decision, err := d.engine.Drain(ctx)
		if err != nil {
			d.logger.Warn().Err(err).Msg("drain delivery failed")
			return
		}
		if decision.Notification == nil || decision.State == StateQueued {
			return
		}
	}
}

// String names the service in supervisor logs.
func (d *Drainer) String() string {
	return "notify-drainer"
}
