// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

// Package clock provides an injectable time source so rate limits, recency
// penalties, and queue aging can be tested with a simulated clock.
package clock

import (
	"sync"
	"time"
)

// Clock is the minimal time source the engine depends on.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// System is a Clock backed by the real wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time {
	return time.Now()
}

// Fake is a manually controlled Clock for deterministic tests.
// It is safe for concurrent use.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake creates a Fake clock frozen at the given instant.
func NewFake(at time.Time) *Fake {
	return &Fake{now: at}
}

// Now returns the current fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set moves the fake clock to the given instant.
func (f *Fake) Set(at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = at
}
