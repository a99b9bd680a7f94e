// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package persona

import (
	"regexp"
	"strings"
)

// =============================================================================
// Style Sanitizer
// =============================================================================

// personaFullName and the prefix used to detect a leading self-introduction.
const (
	personaFullName   = "howard tullman"
	personaNamePrefix = "howard t"
	greetingWindow    = 80
)

// bannedPhrases are filler/hedge phrases removed case-insensitively.
var bannedPhrases = []string{
	"as an ai", "as a large language model", "in conclusion",
	"it depends", "hopefully", "furthermore", "moreover", "additionally",
	"basically", "actually", "honestly", "frankly", "literally",
	"sort of", "kind of", "i mean", "you know",
}

var bannedPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(bannedPhrases))
	for _, p := range bannedPhrases {
		out = append(out, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(p)))
	}
	return out
}()

var (
	multiSpace   = regexp.MustCompile(`[ \t]{2,}`)
	multiNewline = regexp.MustCompile(`\n{3,}`)

	openerChicagoIs  = regexp.MustCompile(`(?im)^\s*Chicago\s+is\b`)
	openerChicagoHas = regexp.MustCompile(`(?im)^\s*Chicago\s+has\b`)
	openerCityIs     = regexp.MustCompile(`(?im)^\s*The\s+city\s+is\b`)
	openerCityHas    = regexp.MustCompile(`(?im)^\s*The\s+city\s+has\b`)
	openerItIs       = regexp.MustCompile(`(?im)^\s*It\s+is\b`)
	openerItHas      = regexp.MustCompile(`(?im)^\s*It\s+has\b`)

	bulletLine   = regexp.MustCompile(`(?m)^\s*(?:\d+\.\s*|[-*•]\s*).*$`)
	bulletToken  = regexp.MustCompile(`^\s*(?:\d+\.\s*|[-*•]\s*)`)
	boldLeadIn   = regexp.MustCompile(`^\s*\*\*[^*]+\*\*\s*:\s*`)
	bulletCity   = regexp.MustCompile(`^(T|t)he\s+city\b`)
	bulletChi    = regexp.MustCompile(`^Chicago\b`)
	firstPerson  = regexp.MustCompile(`(?i)^i\b`)
	innerSpaces  = regexp.MustCompile(`\s{2,}`)
)

// Sanitize enforces persona voice on answer text.
//
// Description:
//
//	Pure and total: never fails, never returns empty given non-empty
//	input. Applied exactly once to every answer the cascade produces
//	except the pre-sanitized guardrail constant. Transform order:
//	 1. Strip a leading self-introduction greeting.
//	 2. Fixed phrase substitutions ("founded or ran" -> "founded and ran").
//	 3. Remove banned filler phrases; collapse leftover double spaces.
//	 4. Rewrite impersonal paragraph openers and bullet lines to first
//	    person.
//	 5. Normalize whitespace.
//
//	Idempotent: Sanitize(Sanitize(x)) == Sanitize(x). Each transform
//	leaves its own output fixed, so the pipeline composes.
func Sanitize(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return t
	}
	t = stripGreeting(t)
	t = strings.ReplaceAll(t, "founded or ran", "founded and ran")
	t = removeBanned(t)
	t = firstPersonVoice(t)
	t = multiSpace.ReplaceAllString(t, " ")
	t = multiNewline.ReplaceAllString(t, "\n\n")
	return strings.TrimSpace(t)
}

// stripGreeting removes a leading "Hi — I'm Howard Tullman" style intro.
//
// Description:
//
//	Fires only when the text starts with "hi" and the persona name
//	appears within the first 80 characters. Consumes the name plus any
//	trailing punctuation and dashes, then returns the remainder.
func stripGreeting(text string) string {
	t := strings.TrimLeft(text, " \t\n")
	low := strings.ToLower(t)
	if !strings.HasPrefix(low, "hi") {
		return text
	}
	window := low
	if len(window) > greetingWindow {
		window = window[:greetingWindow]
	}
	i := strings.Index(window, personaNamePrefix)
	if i == -1 {
		return text
	}
	k := i + len(personaFullName)
	if k > len(t) {
		k = len(t)
	}
	for k < len(t) {
		r := t[k]
		if r == '.' || r == '!' || r == ' ' || r == '-' {
			k++
			continue
		}
		// En and em dashes (UTF-8 multi-byte).
		if strings.HasPrefix(t[k:], "–") || strings.HasPrefix(t[k:], "—") {
			k += len("–")
			continue
		}
		break
	}
	return strings.TrimLeft(t[k:], " \t\n")
}

// removeBanned strips banned phrases and collapses the leftover spacing.
//
// Runs to a fixpoint: removing a phrase can abut its leftover neighbors
// into a fresh banned phrase ("sort sort of of" -> "sort  of"), which
// only another pass catches. Each pass strictly shortens the text, so
// the loop terminates.
func removeBanned(text string) string {
	for {
		next := text
		for _, re := range bannedPatterns {
			next = re.ReplaceAllString(next, "")
		}
		next = strings.TrimSpace(innerSpaces.ReplaceAllStringFunc(next, func(s string) string {
			if strings.Contains(s, "\n") {
				return s
			}
			return " "
		}))
		if next == text {
			return next
		}
		text = next
	}
}

// firstPersonVoice rewrites impersonal openers and bullet lines to begin
// with a first-person stance verb.
func firstPersonVoice(text string) string {
	s := text
	s = openerChicagoIs.ReplaceAllString(s, "I love Chicago because it is")
	s = openerChicagoHas.ReplaceAllString(s, "I value Chicago because it has")
	s = openerCityIs.ReplaceAllString(s, "I love the city because it is")
	s = openerCityHas.ReplaceAllString(s, "I value the city because it has")
	s = openerItIs.ReplaceAllString(s, "I love it because it is")
	s = openerItHas.ReplaceAllString(s, "I value it because it has")

	s = bulletLine.ReplaceAllStringFunc(s, rewriteBullet)
	return s
}

func rewriteBullet(line string) string {
	core := bulletToken.ReplaceAllString(line, "")
	core = boldLeadIn.ReplaceAllString(core, "")
	core = bulletCity.ReplaceAllString(core, "I")
	core = bulletChi.ReplaceAllString(core, "I love Chicago")
	core = strings.TrimSpace(innerSpaces.ReplaceAllString(core, " "))
	if core == "" {
		return "- I like it."
	}
	if !firstPerson.MatchString(core) {
		core = "I " + strings.ToLower(core[:1]) + core[1:]
	}
	return "- " + core
}
