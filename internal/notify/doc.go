// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

/*
Package notify implements rate-limited notification scheduling.

The Engine is the single entry point: Schedule admits a notification
against its category's sliding window and either sends it immediately or
defers it into a bounded retry queue; Drain releases deferred
notifications one at a time as windows reopen, dropping entries that
waited longer than the configured age.

Rate limits are per category and fully independent. The default policy
allows two general notifications per five minutes and one wellness
notification per hour, the queue holds at most fifty entries with the
longest-waiting entry evicted on overflow, and queued entries expire
after one hour.

Delivery transport is behind the Sender interface; the engine decides
whether and when, never how. All time arithmetic goes through
clock.Clock so tests drive the windows deterministically.
*/
package notify
