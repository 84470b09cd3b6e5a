// Halcyon - Emotion-Adaptive Wellness Recommendation Engine
// Copyright 2026 Halcyon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/halcyonlabs/halcyon

package present

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestRenderDeterministic(t *testing.T) {
	for _, tone := range []Tone{ToneWarm, ToneCoach, ToneMinimal} {
		first := Render("Take a short walk", tone, 42)
		for range 20 {
			if got := Render("Take a short walk", tone, 42); got != first {
				t.Fatalf("Render(tone=%d) varied across calls: %q vs %q", tone, got, first)
			}
		}
	}
}

func TestRenderSeedSelectsPrefix(t *testing.T) {
	seen := make(map[string]bool)
	for seed := int64(0); seed < 64; seed++ {
		out := Render("Take a short walk", ToneWarm, seed)
		if !strings.HasSuffix(out, " Take a short walk") {
			t.Fatalf("Render() = %q, message body altered", out)
		}
		prefix := strings.TrimSuffix(out, " Take a short walk")
		found := false
		for _, p := range warmPrefixes {
			if prefix == p {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("prefix %q not in warm pool", prefix)
		}
		seen[prefix] = true
	}
	if len(seen) < 2 {
		t.Errorf("64 seeds produced %d distinct prefixes, want variety", len(seen))
	}
}

func TestRenderCoachUsesCoachPool(t *testing.T) {
	out := Render("Queue up a playlist", ToneCoach, 7)
	matched := false
	for _, p := range coachPrefixes {
		if strings.HasPrefix(out, p+" ") {
			matched = true
			break
		}
	}
	if !matched {
		t.Errorf("Render(coach) = %q, no coach prefix", out)
	}
}

func TestRenderEmptyMessage(t *testing.T) {
	if got := Render("", ToneWarm, 1); got != "" {
		t.Errorf("Render(empty) = %q, want empty", got)
	}
	if got := Render("   \t ", ToneMinimal, 1); got != "" {
		t.Errorf("Render(whitespace) = %q, want empty", got)
	}
}

func TestRenderMinimalFirstSentence(t *testing.T) {
	got := Render("Stretch for five minutes. Then get water.", ToneMinimal, 0)
	if got != "Stretch for five minutes." {
		t.Errorf("Render(minimal) = %q, want first sentence only", got)
	}
}

func TestRenderMinimalTruncatesLongMessage(t *testing.T) {
	long := strings.Repeat("breathe deeply and slowly ", 10)
	got := Render(long, ToneMinimal, 0)

	if !strings.HasSuffix(got, "…") {
		t.Errorf("Render(minimal long) = %q, want trailing ellipsis", got)
	}
	if n := utf8.RuneCountInString(got); n > minimalMaxLen+1 {
		t.Errorf("rune length = %d, want <= %d plus ellipsis", n, minimalMaxLen)
	}
	if strings.HasSuffix(strings.TrimSuffix(got, "…"), " ") {
		t.Errorf("Render(minimal long) = %q, trailing space before ellipsis", got)
	}
	// Cutting at a word boundary means the trimmed output is a prefix of
	// the message ending on a complete word.
	body := strings.TrimSuffix(got, "…")
	if !strings.HasPrefix(long, body+" ") {
		t.Errorf("truncation split a word: %q", body)
	}
}

func TestRenderMinimalShortMessageUntouched(t *testing.T) {
	if got := Render("Take a break", ToneMinimal, 0); got != "Take a break" {
		t.Errorf("Render(minimal short) = %q, want unchanged", got)
	}
}
