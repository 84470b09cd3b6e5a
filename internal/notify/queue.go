// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package notify

import (
	"sync"
	"time"

	"github.com/halcyonlabs/halcyon/internal/metrics"
)

// entry is one deferred notification with its enqueue time. Staleness
// is judged from EnqueuedAt, not CreatedAt: the age limit bounds how
// long a message waits for a rate-limit slot, not its total lifetime.
type entry struct {
	Notification *Notification
	EnqueuedAt   time.Time
}

// queue is the bounded FIFO of rate-limited notifications. High-priority
// entries sit ahead of normal ones; within a priority class order is
// strictly arrival order. When full, the entry that has waited longest
// is evicted to make room.
type queue struct {
	mu      sync.Mutex
	entries []entry
	max     int
}

func newQueue(maxSize int) *queue {
	return &queue{max: maxSize}
}

// push appends the notification, promoting high-priority entries ahead
// of all normal-priority ones. Returns the evicted notification when
// the bound forced one out, else nil.
func (q *queue) push(n *Notification, now time.Time) *Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	var evicted *Notification
	if len(q.entries) >= q.max {
		oldest := q.oldestIndexLocked()
		evicted = q.entries[oldest].Notification
		q.entries = append(q.entries[:oldest], q.entries[oldest+1:]...)
	}

	e := entry{Notification: n, EnqueuedAt: now}
	if n.Priority == PriorityHigh {
		// Insert after the last existing high-priority entry so
		// same-priority arrivals stay FIFO.
		pos := 0
		for pos < len(q.entries) && q.entries[pos].Notification.Priority == PriorityHigh {
			pos++
		}
		q.entries = append(q.entries, entry{})
		copy(q.entries[pos+1:], q.entries[pos:])
		q.entries[pos] = e
	} else {
		q.entries = append(q.entries, e)
	}

	metrics.QueueDepth.Set(float64(len(q.entries)))
	return evicted
}

// pop removes and returns the head entry, or false when empty.
func (q *queue) pop() (entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return entry{}, false
	}
	head := q.entries[0]
	q.entries = append(q.entries[:0], q.entries[1:]...)
	metrics.QueueDepth.Set(float64(len(q.entries)))
	return head, true
}

// requeueFront puts an entry back at the head, preserving its original
// enqueue time so staleness accounting is unaffected.
func (q *queue) requeueFront(e entry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = append([]entry{e}, q.entries...)
	metrics.QueueDepth.Set(float64(len(q.entries)))
}

// len returns the current depth.
func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// oldestIndexLocked finds the entry that has waited longest. Caller
// holds mu and guarantees the queue is non-empty.
func (q *queue) oldestIndexLocked() int {
	oldest := 0
	for i := 1; i < len(q.entries); i++ {
		if q.entries[i].EnqueuedAt.Before(q.entries[oldest].EnqueuedAt) {
			oldest = i
		}
	}
	return oldest
}
