// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/halcyonlabs/halcyon/internal/clock"
)

// RateLimiter enforces per-category sliding-window admission.
// Each category keeps its own window of send timestamps; categories
// never interfere with each other. Safe for concurrent use.
type RateLimiter struct {
	clk    clock.Clock
	limits map[Category]Limit

	mu      sync.Mutex
	windows map[Category][]time.Time
}

// NewRateLimiter creates a limiter over the given per-category rules.
func NewRateLimiter(limits map[Category]Limit, clk clock.Clock) *RateLimiter {
	owned := make(map[Category]Limit, len(limits))
	for category, limit := range limits {
		owned[category] = limit
	}
	return &RateLimiter{
		clk:     clk,
		limits:  owned,
		windows: make(map[Category][]time.Time),
	}
}

// CheckAndReserve atomically checks the category's window and, when
// capacity remains, records the send timestamp. The check and the
// reservation are one critical section so two concurrent callers can
// never both claim the last slot.
//
// When denied, wait is the duration until the oldest recorded timestamp
// leaves the window, i.e. the earliest instant a retry can succeed.
func (rl *RateLimiter) CheckAndReserve(category Category) (allowed bool, wait time.Duration, err error) {
	limit, ok := rl.limits[category]
	if !ok {
		return false, 0, fmt.Errorf("unknown notification category %q", category)
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clk.Now()
	window := rl.prune(category, now, limit.Window)

	if len(window) < limit.Count {
		rl.windows[category] = append(window, now)
		return true, 0, nil
	}

	// window is full and pruned, so window[0] is the oldest live stamp.
	wait = limit.Window - now.Sub(window[0])
	return false, wait, nil
}

// prune discards timestamps that have left the sliding window, keeping
// memory proportional to the category's count limit. Caller holds mu.
func (rl *RateLimiter) prune(category Category, now time.Time, span time.Duration) []time.Time {
	window := rl.windows[category]
	cut := 0
	for cut < len(window) && now.Sub(window[cut]) >= span {
		cut++
	}
	if cut > 0 {
		window = append(window[:0], window[cut:]...)
		rl.windows[category] = window
	}
	return window
}
