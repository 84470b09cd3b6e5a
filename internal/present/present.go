// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

// Package present renders recommendation messages for display.
//
// Rendering is a pure function of (message, tone, seed): all phrasing
// variety comes from the caller-supplied seed, so two calls with the
// same inputs always produce the same string. Keeping randomness out of
// scoring and behind an explicit seed here is what makes both layers
// testable.
package present

import (
	"math/rand"
	"strings"
	"unicode"
)

// Tone selects the rendering style.
type Tone int

const (
	// ToneWarm prepends an encouraging phrase.
	ToneWarm Tone = iota
	// ToneCoach prepends a direct, action-oriented phrase.
	ToneCoach
	// ToneMinimal strips any prefix and truncates to the first
	// sentence, capped at minimalMaxLen characters.
	ToneMinimal
)

// minimalMaxLen caps ToneMinimal output length in runes.
const minimalMaxLen = 80

// Phrase pools are ordered; selection is an index from the seeded
// generator, so pool order is part of the rendering contract.
var (
	warmPrefixes = []string{
		"Here's a thought:",
		"You might enjoy this:",
		"Something for right now:",
		"A small suggestion:",
	}

	coachPrefixes = []string{
		"Next up:",
		"Try this:",
		"Good moment for this:",
		"Worth a shot:",
	}
)

// Render formats a message in the given tone. The seed fully determines
// phrasing choices; passing the same (message, tone, seed) triple always
// yields the same output. Empty messages render empty.
func Render(message string, tone Tone, seed int64) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return ""
	}

	switch tone {
	case ToneMinimal:
		return truncateSentence(message, minimalMaxLen)
	case ToneCoach:
		return pick(coachPrefixes, seed) + " " + message
	default:
		return pick(warmPrefixes, seed) + " " + message
	}
}

// pick selects a phrase using a generator owned by this call, so
// package state never leaks between renders.
func pick(pool []string, seed int64) string {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // presentation variety, not crypto
	return pool[rng.Intn(len(pool))]
}

// truncateSentence returns the first sentence of s, capped at max runes.
// The cap cuts at the preceding word boundary so output never ends
// mid-word, with a trailing ellipsis marking the cut.
func truncateSentence(s string, maxRunes int) string {
	if i := strings.IndexAny(s, ".!?"); i >= 0 {
		s = s[:i+1]
	}

	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}

	cut := maxRunes
	for cut > 0 && !unicode.IsSpace(runes[cut-1]) {
		cut--
	}
	if cut == 0 {
		cut = maxRunes
	}
	return strings.TrimRightFunc(string(runes[:cut]), unicode.IsSpace) + "…"
}
