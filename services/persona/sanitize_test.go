// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package persona

import (
	"strings"
	"testing"
)

func TestSanitize_StripGreeting(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "greeting with em dash",
			in:   "Hi — I'm Howard Tullman. Focus on execution.",
			want: "Focus on execution.",
		},
		{
			name: "greeting with period",
			in:   "Hi, this is Howard Tullman. Ship fast.",
			want: "Ship fast.",
		},
		{
			name: "no greeting untouched",
			in:   "Focus on execution.",
			want: "Focus on execution.",
		},
		{
			// "history" starts with "hi" but the name sits past the
			// 80-character window, so nothing is stripped.
			name: "name outside the window stays",
			in:   "History matters. " + strings.Repeat("x ", 50) + "Howard Tullman said so.",
			want: "History matters. " + strings.Repeat("x ", 50) + "Howard Tullman said so.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.in)
			if got != Sanitize(tt.want) {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, Sanitize(tt.want))
			}
		})
	}
}

func TestSanitize_FoundedAndRan(t *testing.T) {
	got := Sanitize("I founded or ran a dozen companies.")
	if got != "I founded and ran a dozen companies." {
		t.Fatalf("got %q", got)
	}
}

func TestSanitize_RemovesBannedPhrases(t *testing.T) {
	got := Sanitize("Basically, you should ship. Hopefully it works. Furthermore, measure everything.")
	for _, bad := range []string{"Basically", "Hopefully", "Furthermore", "basically"} {
		if strings.Contains(got, bad) {
			t.Errorf("banned phrase %q survived: %q", bad, got)
		}
	}
	if strings.Contains(got, "  ") {
		t.Errorf("double space left behind: %q", got)
	}
}

func TestSanitize_FirstPersonOpeners(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Chicago is a builder's town.", "I love Chicago because it is a builder's town."},
		{"Chicago has real talent.", "I value Chicago because it has real talent."},
		{"The city is underrated.", "I love the city because it is underrated."},
		{"It has everything founders need.", "I value it because it has everything founders need."},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitize_BulletRewrite(t *testing.T) {
	in := "- **Grit**: The city has range.\n- Chicago rewards builders.\n- I keep my network here.\n- "
	got := Sanitize(in)
	lines := strings.Split(got, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 bullet lines, got %d: %q", len(lines), got)
	}
	wants := []string{
		"- I has range.",
		"- I love Chicago rewards builders.",
		"- I keep my network here.",
		"- I like it.",
	}
	for i, w := range wants {
		if lines[i] != w {
			t.Errorf("line %d = %q, want %q", i, lines[i], w)
		}
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"Hi — I'm Howard Tullman. Chicago is home.\n\n- The city has grit.\n- ",
		"Basically, I founded or ran 1871. Hopefully that counts.",
		"It is what it is.",
		"Plain answer with nothing to fix.",
		"",
		// Removing one duplicated phrase abuts the leftovers into a new
		// banned phrase, which a single Sanitize call must also remove.
		"We were sort sort of of ready to ship.",
		"I i mean mean it, ship now.",
		"You you know know the answer.",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Errorf("not idempotent for %q:\n once: %q\ntwice: %q", in, once, twice)
		}
	}
}

func TestSanitize_RemovesReformedBannedPhrases(t *testing.T) {
	// "sort sort of of" loses its inner "sort of" first, leaving "sort  of"
	// that collapses back into a banned phrase. One pass must clear it.
	got := Sanitize("We were sort sort of of ready to ship.")
	if got != "We were ready to ship." {
		t.Fatalf("got %q, want %q", got, "We were ready to ship.")
	}
	got = Sanitize("I i mean mean it, ship now.")
	if strings.Contains(strings.ToLower(got), "i mean") {
		t.Fatalf("reformed phrase survived: %q", got)
	}
}

func TestSanitize_WhitespaceNormalization(t *testing.T) {
	got := Sanitize("Line one.\n\n\n\nLine two.   Spaced.")
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("triple newline survived: %q", got)
	}
	if strings.Contains(got, "  ") {
		t.Errorf("double space survived: %q", got)
	}
}
