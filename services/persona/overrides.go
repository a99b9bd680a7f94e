// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package persona

import "regexp"

// =============================================================================
// Identity / Topic Overrides
// =============================================================================

// override pairs a high-precision pattern with an authored answer. These
// win over lexical lookup because they are exact by construction and must
// not be drowned out by fuzzy corpus noise.
type override struct {
	pattern *regexp.Regexp
	answer  string
}

// Overrides are matched against the lowercased query.
var identityOverrides = []override{
	{
		pattern: regexp.MustCompile(`\bwho\s+is\s+howard\s+tullman\??`),
		answer:  "I’m a serial entrepreneur, investor, and educator. I’ve led multiple tech companies, ran 1871 in Chicago, and spent decades building teams, backing founders, and writing about execution.",
	},
	{
		pattern: regexp.MustCompile(`\bwhy\b.*\bai\s+strategy\b|\bwhy\s+do\s+i\s+need\s+an\s+ai\s+strategy\??`),
		answer:  "Because it drives results: faster execution, lower cost, and clear differentiation. Start with a 12-month roadmap, pick 2–3 high-value use cases, ship a small win in 30–60 days, then scale what works.",
	},
	{
		pattern: regexp.MustCompile(`\b(kendall)\b.*(changed|change|under\s+your\s+leadership)`),
		answer:  "At Kendall I focused on speed, relevance, and outcomes—tighter industry ties, more real-world projects, measurable results, and higher expectations for students, faculty, and partners.",
	},
}

var topicOverrides = []override{
	{
		pattern: regexp.MustCompile(`\b(relativity|einstein)\b.*\b(ten|10|child|kid|kids|student)\b|\bteach\b.*\brelativity\b`),
		answer:  "Imagine you’re on a very fast train. You toss a ball; to you it looks normal, but to someone outside it moves differently. Relativity says time and distance can look different depending on speed and gravity. Go faster or be near something heavy, and clocks tick a little differently. That’s it: motion and gravity change what we see as time and space.",
	},
}

// identityLink is the canonical reference chip for who-is queries.
var identityLink = Link{
	Title: "Wikipedia: Howard Tullman",
	URL:   "https://en.wikipedia.org/wiki/Howard_Tullman",
}

// LookupOverride checks the identity then topic tables, in order.
//
// Inputs:
//   - queryLower: The query, already lowercased.
//
// Outputs:
//   - string: The authored answer, empty on no match.
//   - bool: Whether an identity override matched (callers attach the
//     canonical identity chip in that case).
func LookupOverride(queryLower string) (string, bool) {
	for _, o := range identityOverrides {
		if o.pattern.MatchString(queryLower) {
			return o.answer, true
		}
	}
	for _, o := range topicOverrides {
		if o.pattern.MatchString(queryLower) {
			return o.answer, false
		}
	}
	return "", false
}

// =============================================================================
// Lifespan Stubs
// =============================================================================

// Small rule-of-thumb answers for common "how long do X live" questions,
// used when generation is unavailable so the cascade still says something
// useful instead of dropping straight to the terminal fallback.
var lifespanStubs = []override{
	{
		pattern: regexp.MustCompile(`\bhow\s+long\s+do\s+dogs?\s+live`),
		answer:  "Most dogs live about 10–13 years. Smaller breeds often reach 12–16; giant breeds are closer to 7–10. Care, genetics, and size drive the spread.",
	},
	{
		pattern: regexp.MustCompile(`\bhow\s+long\s+do\s+cats?\s+live`),
		answer:  "Indoor cats often reach 12–15 years and many live past 16; outdoor cats trend shorter. Care and genetics matter.",
	},
	{
		pattern: regexp.MustCompile(`\bhow\s+long\s+do\s+humans?\s+live|\blife\s+expectancy\b`),
		answer:  "In the U.S., life expectancy is roughly mid-70s to low-80s depending on sex and region. Health, lifestyle, and access drive the spread.",
	},
}

// LifespanStub returns a canned lifespan answer, or "".
func LifespanStub(queryLower string) string {
	for _, o := range lifespanStubs {
		if o.pattern.MatchString(queryLower) {
			return o.answer
		}
	}
	return ""
}
