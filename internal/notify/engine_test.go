// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/halcyonlabs/halcyon/internal/clock"
	"github.com/halcyonlabs/halcyon/internal/logging"
)

// captureSender records delivered notifications.
type captureSender struct {
	sent []*Notification
	err  error
}

func (s *captureSender) Send(_ context.Context, n *Notification) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, n)
	return nil
}

func testEngine(t *testing.T, cfg *Config, clk clock.Clock) (*Engine, *captureSender) {
	t.Helper()
	sender := &captureSender{}
	engine, err := NewEngine(cfg, sender, clk, logging.NewTestLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine, sender
}

func notification(category Category, title string) *Notification {
	return &Notification{Category: category, Title: title}
}

func TestScheduleValidation(t *testing.T) {
	engine, _ := testEngine(t, nil, clock.NewFake(time.Unix(0, 0)))
	ctx := context.Background()

	t.Run("nil notification", func(t *testing.T) {
		_, err := engine.Schedule(ctx, nil)
		if !errors.Is(err, ErrNilNotification) {
			t.Errorf("error = %v, want ErrNilNotification", err)
		}
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := engine.Schedule(ctx, &Notification{Category: CategoryGeneral})
		if !errors.Is(err, ErrEmptyPayload) {
			t.Errorf("error = %v, want ErrEmptyPayload", err)
		}
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := engine.Schedule(ctx, notification("gossip", "hi"))
		if err == nil {
			t.Error("error = nil, want unknown category error")
		}
	})

	t.Run("id and created time assigned", func(t *testing.T) {
		n := notification(CategoryGeneral, "hi")
		decision, err := engine.Schedule(ctx, n)
		if err != nil {
			t.Fatalf("Schedule() error = %v", err)
		}
		if decision.Notification.ID == "" {
			t.Error("ID not assigned")
		}
		if decision.Notification.CreatedAt.IsZero() {
			t.Error("CreatedAt not assigned")
		}
	})
}

func TestRateLimitExactness(t *testing.T) {
	// general allows 2 per 5 minutes: limit+1 sends within the window
	// yield exactly limit Sent and one Queued.
	clk := clock.NewFake(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	engine, sender := testEngine(t, nil, clk)
	ctx := context.Background()

	var states []State
	for i := range 3 {
		decision, err := engine.Schedule(ctx, notification(CategoryGeneral, fmt.Sprintf("n%d", i)))
		if err != nil {
			t.Fatalf("Schedule(%d) error = %v", i, err)
		}
		states = append(states, decision.State)
		clk.Advance(time.Minute)
	}

	want := []State{StateSent, StateSent, StateQueued}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, states[i], want[i])
		}
	}
	if len(sender.sent) != 2 {
		t.Errorf("delivered = %d, want 2", len(sender.sent))
	}

	// After the window passes, the category admits again.
	clk.Advance(5 * time.Minute)
	decision, err := engine.Schedule(ctx, notification(CategoryGeneral, "later"))
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if decision.State != StateSent {
		t.Errorf("state after window = %v, want Sent", decision.State)
	}
}

func TestCategoriesAreIndependent(t *testing.T) {
	clk := clock.NewFake(time.Unix(1000, 0))
	engine, _ := testEngine(t, nil, clk)
	ctx := context.Background()

	// Exhaust wellness (1/hour).
	first, _ := engine.Schedule(ctx, notification(CategoryWellness, "breathe"))
	second, _ := engine.Schedule(ctx, notification(CategoryWellness, "stretch"))
	if first.State != StateSent || second.State != StateQueued {
		t.Fatalf("wellness states = %v, %v, want Sent, Queued", first.State, second.State)
	}

	// General must be unaffected.
	decision, err := engine.Schedule(ctx, notification(CategoryGeneral, "news"))
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if decision.State != StateSent {
		t.Errorf("general state = %v, want Sent", decision.State)
	}
}

func TestQueuedDecisionCarriesWaitHint(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	engine, _ := testEngine(t, nil, clk)
	ctx := context.Background()

	engine.Schedule(ctx, notification(CategoryWellness, "first")) //nolint:errcheck
	clk.Advance(10 * time.Minute)

	decision, err := engine.Schedule(ctx, notification(CategoryWellness, "second"))
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if decision.State != StateQueued {
		t.Fatalf("state = %v, want Queued", decision.State)
	}
	if decision.Wait != 50*time.Minute {
		t.Errorf("Wait = %v, want 50m", decision.Wait)
	}
}

func TestQueueBound(t *testing.T) {
	// 55 deferred notifications against maxSize=50 keep the 50 most
	// recent; the five oldest are evicted.
	clk := clock.NewFake(time.Unix(0, 0))
	cfg := DefaultConfig()
	engine, _ := testEngine(t, cfg, clk)
	ctx := context.Background()

	// Fill the wellness window so everything else queues.
	engine.Schedule(ctx, notification(CategoryWellness, "opener")) //nolint:errcheck

	for i := range 55 {
		clk.Advance(time.Second)
		decision, err := engine.Schedule(ctx, notification(CategoryWellness, fmt.Sprintf("q%d", i)))
		if err != nil {
			t.Fatalf("Schedule(%d) error = %v", i, err)
		}
		if decision.State != StateQueued {
			t.Fatalf("Schedule(%d) state = %v, want Queued", i, decision.State)
		}
	}

	if got := engine.QueueDepth(); got != 50 {
		t.Fatalf("QueueDepth() = %d, want 50", got)
	}

	// Walk the queue out through drains; with the clock jumping past the
	// max age every entry surfaces as Dropped, which exposes the queue
	// order. The survivors must be exactly q5..q54: oldest evicted first.
	var surfaced []string
	for {
		clk.Advance(61 * time.Minute)
		decision, err := engine.Drain(ctx)
		if err != nil {
			t.Fatalf("Drain() error = %v", err)
		}
		if decision.Notification == nil {
			break
		}
		if decision.State != StateDropped {
			t.Fatalf("state = %v, want Dropped after aging past max age", decision.State)
		}
		surfaced = append(surfaced, decision.Notification.Title)
	}

	if len(surfaced) != 50 {
		t.Fatalf("surfaced %d entries, want 50", len(surfaced))
	}
	for i, title := range surfaced {
		if want := fmt.Sprintf("q%d", i+5); title != want {
			t.Fatalf("surfaced[%d] = %q, want %q", i, title, want)
		}
	}
}

func TestQueueEvictsOldestFirst(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	cfg := DefaultConfig()
	cfg.QueueMaxSize = 3
	engine, _ := testEngine(t, cfg, clk)
	ctx := context.Background()

	engine.Schedule(ctx, notification(CategoryWellness, "opener")) //nolint:errcheck

	for i := range 5 {
		clk.Advance(time.Second)
		engine.Schedule(ctx, notification(CategoryWellness, fmt.Sprintf("q%d", i))) //nolint:errcheck
	}

	if got := engine.QueueDepth(); got != 3 {
		t.Fatalf("QueueDepth() = %d, want 3", got)
	}

	// Reopen the window and drain one: the head must be q2, the oldest
	// survivor.
	clk.Advance(61 * time.Minute)
	decision, err := engine.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if decision.State != StateDropped && decision.State != StateSent {
		t.Fatalf("state = %v, want a head decision", decision.State)
	}
	if decision.Notification.Title != "q2" {
		t.Errorf("head = %q, want q2", decision.Notification.Title)
	}
}

func TestWellnessScenario(t *testing.T) {
	// Two wellness schedules at t=0 and t=10min: Sent then Queued.
	// A drain at t=65min delivers the queued one.
	start := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	engine, sender := testEngine(t, nil, clk)
	ctx := context.Background()

	first, err := engine.Schedule(ctx, notification(CategoryWellness, "hydrate"))
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if first.State != StateSent {
		t.Fatalf("first state = %v, want Sent", first.State)
	}

	clk.Set(start.Add(10 * time.Minute))
	second, err := engine.Schedule(ctx, notification(CategoryWellness, "walk"))
	if err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if second.State != StateQueued {
		t.Fatalf("second state = %v, want Queued", second.State)
	}

	clk.Set(start.Add(65 * time.Minute))
	decision, err := engine.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if decision.State != StateSent {
		t.Errorf("drain state = %v, want Sent", decision.State)
	}
	if decision.Notification.Title != "walk" {
		t.Errorf("drained %q, want walk", decision.Notification.Title)
	}
	if len(sender.sent) != 2 {
		t.Errorf("delivered = %d, want 2", len(sender.sent))
	}
}

func TestDrainDropsStaleHead(t *testing.T) {
	start := time.Unix(0, 0)
	clk := clock.NewFake(start)
	engine, sender := testEngine(t, nil, clk)
	ctx := context.Background()

	engine.Schedule(ctx, notification(CategoryWellness, "opener")) //nolint:errcheck
	engine.Schedule(ctx, notification(CategoryWellness, "stale")) //nolint:errcheck

	// Entry waits past the max age: dropped, not sent.
	clk.Set(start.Add(2 * time.Hour))
	decision, err := engine.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if decision.State != StateDropped {
		t.Errorf("state = %v, want Dropped", decision.State)
	}
	if decision.Notification.Title != "stale" {
		t.Errorf("dropped %q, want stale", decision.Notification.Title)
	}
	if len(sender.sent) != 1 {
		t.Errorf("delivered = %d, want only the opener", len(sender.sent))
	}
}

func TestDrainStopsOnDenial(t *testing.T) {
	start := time.Unix(0, 0)
	clk := clock.NewFake(start)
	engine, _ := testEngine(t, nil, clk)
	ctx := context.Background()

	engine.Schedule(ctx, notification(CategoryWellness, "opener")) //nolint:errcheck
	engine.Schedule(ctx, notification(CategoryWellness, "waiting")) //nolint:errcheck

	// Window still full: the head is requeued, order preserved.
	clk.Set(start.Add(30 * time.Minute))
	decision, err := engine.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if decision.State != StateQueued {
		t.Fatalf("state = %v, want Queued", decision.State)
	}
	if engine.QueueDepth() != 1 {
		t.Errorf("QueueDepth() = %d, want 1", engine.QueueDepth())
	}
	if decision.Wait != 30*time.Minute {
		t.Errorf("Wait = %v, want 30m", decision.Wait)
	}
}

func TestDrainEmptyQueue(t *testing.T) {
	engine, _ := testEngine(t, nil, clock.NewFake(time.Unix(0, 0)))

	decision, err := engine.Drain(context.Background())
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if decision.Notification != nil {
		t.Errorf("Notification = %+v, want nil for empty queue", decision.Notification)
	}
}

func TestDrainSendsExactlyOne(t *testing.T) {
	start := time.Unix(0, 0)
	clk := clock.NewFake(start)
	cfg := DefaultConfig()
	// Two-per-window so a single drain could in principle send twice.
	cfg.RateLimits[CategoryWellness] = Limit{Count: 2, Window: time.Hour}
	engine, sender := testEngine(t, cfg, clk)
	ctx := context.Background()

	engine.Schedule(ctx, notification(CategoryWellness, "a")) //nolint:errcheck
	engine.Schedule(ctx, notification(CategoryWellness, "b")) //nolint:errcheck
	engine.Schedule(ctx, notification(CategoryWellness, "c")) //nolint:errcheck
	engine.Schedule(ctx, notification(CategoryWellness, "d")) //nolint:errcheck

	// Exactly at the window edge: the stamps have left the window but
	// the queued entries have not yet exceeded the max age.
	clk.Set(start.Add(60 * time.Minute))
	decision, err := engine.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if decision.State != StateSent || decision.Notification.Title != "c" {
		t.Errorf("decision = %v %q, want Sent c", decision.State, decision.Notification.Title)
	}
	if len(sender.sent) != 3 {
		t.Errorf("delivered = %d, want 3 (two scheduled + one drained)", len(sender.sent))
	}
	if engine.QueueDepth() != 1 {
		t.Errorf("QueueDepth() = %d, want 1", engine.QueueDepth())
	}
}

func TestHighPriorityPromoted(t *testing.T) {
	start := time.Unix(0, 0)
	clk := clock.NewFake(start)
	engine, _ := testEngine(t, nil, clk)
	ctx := context.Background()

	engine.Schedule(ctx, notification(CategoryWellness, "opener")) //nolint:errcheck
	engine.Schedule(ctx, notification(CategoryWellness, "normal")) //nolint:errcheck

	urgent := notification(CategoryWellness, "urgent")
	urgent.Priority = PriorityHigh
	engine.Schedule(ctx, urgent) //nolint:errcheck

	clk.Set(start.Add(60 * time.Minute))
	decision, err := engine.Drain(ctx)
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if decision.State != StateSent {
		t.Fatalf("state = %v, want Sent", decision.State)
	}
	if decision.Notification.Title != "urgent" {
		t.Errorf("head = %q, want urgent promoted ahead of normal", decision.Notification.Title)
	}
}

func TestSenderFailurePropagates(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	sender := &captureSender{err: errors.New("push service down")}
	engine, err := NewEngine(nil, sender, clk, logging.NewTestLogger(io.Discard))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	_, err = engine.Schedule(context.Background(), notification(CategoryGeneral, "hi"))
	if err == nil || !errors.Is(err, sender.err) {
		t.Errorf("Schedule() error = %v, want wrapped sender error", err)
	}
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Errorf("Schedule() error = %v, want ErrDeliveryFailed in chain", err)
	}
}

func TestStateStrings(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateRequested, "requested"},
		{StateSent, "sent"},
		{StateQueued, "queued"},
		{StateDropped, "dropped"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults valid", mutate: func(*Config) {}, wantErr: false},
		{name: "no categories", mutate: func(c *Config) { c.RateLimits = nil }, wantErr: true},
		{
			name:    "zero count",
			mutate:  func(c *Config) { c.RateLimits[CategoryGeneral] = Limit{Count: 0, Window: time.Minute} },
			wantErr: true,
		},
		{
			name:    "zero window",
			mutate:  func(c *Config) { c.RateLimits[CategoryGeneral] = Limit{Count: 1} },
			wantErr: true,
		},
		{name: "zero queue size", mutate: func(c *Config) { c.QueueMaxSize = 0 }, wantErr: true},
		{name: "zero max age", mutate: func(c *Config) { c.QueueMaxAge = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
