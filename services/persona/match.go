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
// Lexical Matcher
// =============================================================================

var stopWords = func() map[string]struct{} {
	words := strings.Fields(
		"a an and are as at be but by for from had has have i if in is it its of on or our so than that the their then there these they this to under was were what when where which who why will with you your")
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

// Tokenize extracts lowercase alphanumeric tokens longer than two
// characters, excluding stop words.
func Tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range wordPattern.FindAllString(strings.ToLower(s), -1) {
		if len(t) <= 2 {
			continue
		}
		if _, stop := stopWords[t]; stop {
			continue
		}
		out[t] = struct{}{}
	}
	return out
}

// Jaccard computes |a ∩ b| / |a ∪ b|. Symmetric by construction.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Matcher scores queries against curated pairs.
//
// Thread Safety: Matcher is immutable after construction.
type Matcher struct {
	cfg MatcherConfig
}

// NewMatcher creates a Matcher with the given thresholds.
func NewMatcher(cfg MatcherConfig) *Matcher {
	return &Matcher{cfg: cfg}
}

// normalizeQuestion lowercases and collapses whitespace; this is a pair's
// lookup identity.
func normalizeQuestion(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Lookup finds the best curated answer for a query.
//
// Description:
//
//	Three passes over the pairs, cheapest first:
//	 1. Exact: normalized question equals normalized query. First
//	    occurrence wins; file order is priority order.
//	 2. Containment: either normalized string contains the other, with a
//	    minimum-length guard on the shorter side.
//	 3. Jaccard token overlap, with the salience-keyword boost applied
//	    when the keyword appears on both sides, accepted only at or
//	    above the configured threshold.
//
// Outputs:
//   - string: The matched answer, empty on no acceptable match.
//   - float64: The winning score (1.0 for exact and containment).
func (m *Matcher) Lookup(pairs []QAPair, query string) (string, float64) {
	p := normalizeQuestion(query)
	if p == "" {
		return "", 0
	}

	for i := range pairs {
		if normalizeQuestion(pairs[i].Question) == p {
			return pairs[i].Answer, 1.0
		}
	}

	for i := range pairs {
		q := normalizeQuestion(pairs[i].Question)
		if q == "" {
			continue
		}
		// Containment needs enough text to be meaningful here; shorter
		// fragments only qualify at the relaxed stage.
		shorter := len(p)
		if len(q) < shorter {
			shorter = len(q)
		}
		if shorter >= m.cfg.MinContainmentLen && (strings.Contains(q, p) || strings.Contains(p, q)) {
			return pairs[i].Answer, 1.0
		}
	}

	tq := Tokenize(query)
	if len(tq) == 0 {
		return "", 0
	}
	_, qHasKey := tq[m.cfg.SalienceKeyword]

	best := ""
	bestScore := 0.0
	for i := range pairs {
		tp := Tokenize(pairs[i].Question)
		if len(tp) == 0 {
			continue
		}
		score := Jaccard(tq, tp)
		if qHasKey {
			if _, ok := tp[m.cfg.SalienceKeyword]; ok {
				score += m.cfg.SalienceBoost
			}
		}
		if score > bestScore {
			bestScore = score
			best = pairs[i].Answer
		}
	}
	if bestScore >= m.cfg.AcceptThreshold {
		return best, bestScore
	}
	return "", 0
}

// LookupFuzzy runs the typo-tolerant string-distance pass.
//
// Description:
//
//	Only called when Lookup fails. Uses normalized edit-distance
//	similarity against each normalized question with the stricter fuzzy
//	cutoff, catching misspellings of otherwise-exact questions.
func (m *Matcher) LookupFuzzy(pairs []QAPair, query string) (string, float64) {
	p := normalizeQuestion(query)
	if p == "" {
		return "", 0
	}
	best := ""
	bestScore := 0.0
	for i := range pairs {
		q := normalizeQuestion(pairs[i].Question)
		if q == "" {
			continue
		}
		sim := similarity(p, q)
		if sim > bestScore {
			bestScore = sim
			best = pairs[i].Answer
		}
	}
	if bestScore >= m.cfg.FuzzyCutoff {
		return best, bestScore
	}
	return "", 0
}

// LookupRelaxed is the last-resort substring pass over pairs, used by the
// cascade after generation has failed.
func (m *Matcher) LookupRelaxed(pairs []QAPair, query string) string {
	p := normalizeQuestion(query)
	if p == "" {
		return ""
	}
	for i := range pairs {
		q := normalizeQuestion(pairs[i].Question)
		if q == "" {
			continue
		}
		if strings.Contains(q, p) || strings.Contains(p, q) {
			return pairs[i].Answer
		}
	}
	return ""
}

// similarity is 1 - levenshtein(a,b)/max(len). Runs on runes so accented
// characters count as one edit.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(ra, rb))/float64(maxLen)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			cur[j] = min
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
