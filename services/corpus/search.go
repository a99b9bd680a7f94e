// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package corpus

import (
	"regexp"
	"sort"
	"strings"
)

// =============================================================================
// Scored Search & Weave Assembly
// =============================================================================

// SearchConfig tunes corpus ranking and weave assembly.
//
// Fields:
//   - TopK: Number of top-ranked chunks woven into context.
//   - WeaveBudget: Total character budget for the woven context.
//   - ExcerptLen: Per-chunk excerpt truncation length.
//   - MaxSources: Cap on links returned alongside the weave.
//   - AffinityKeyword: Substring of a chunk's source name or text that
//     marks it as persona-affiliated.
//   - AffinityBonus: Fixed score bonus for persona-affiliated chunks.
type SearchConfig struct {
	TopK            int
	WeaveBudget     int
	ExcerptLen      int
	MaxSources      int
	AffinityKeyword string
	AffinityBonus   int
}

// DefaultSearchConfig returns the reference ranking policy.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		TopK:            6,
		WeaveBudget:     1800,
		ExcerptLen:      400,
		MaxSources:      4,
		AffinityKeyword: "tullman",
		AffinityBonus:   5,
	}
}

// Query tokens must be reasonably long; short function words add noise.
var termPattern = regexp.MustCompile(`[a-z0-9]{4,}`)

var wsPattern = regexp.MustCompile(`\s+`)

// queryTerms extracts the scoring terms from a raw query.
func queryTerms(query string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, t := range termPattern.FindAllString(strings.ToLower(query), -1) {
		terms[t] = struct{}{}
	}
	return terms
}

// Score computes a chunk's relevance to the query terms: keyword
// frequency over the chunk text plus the affinity bonus when the chunk
// is persona-affiliated. Uses the lowered text the store cached at load
// time rather than lowering per request.
func (cfg SearchConfig) Score(terms map[string]struct{}, c *Chunk) int {
	low := c.lowerText()
	if low == "" {
		return 0
	}
	score := 0
	if cfg.AffinityKeyword != "" &&
		strings.Contains(strings.ToLower(c.SourceName)+" "+low, cfg.AffinityKeyword) {
		score += cfg.AffinityBonus
	}
	for t := range terms {
		score += strings.Count(low, t)
	}
	return score
}

// Search ranks the corpus against a query and assembles woven context.
//
// Description:
//
//	Full scan over the in-memory corpus: every chunk with a positive
//	score competes, the top K are excerpted into a bulleted weave bounded
//	by the character budget, and their URLs become candidate citation
//	links, deduplicated by URL in rank order.
//
//	A chunk whose only score contribution is the affinity bonus still
//	ranks, matching the reference policy of preferring persona material
//	when a query is sparse.
//
// Inputs:
//   - store: The corpus store; loaded lazily on first search.
//   - query: Raw user query.
//
// Outputs:
//   - string: The woven context ("- excerpt" per line). Empty when
//     nothing scored.
//   - []Link: Candidate citation links, capped at MaxSources.
func (cfg SearchConfig) Search(store *Store, query string) (string, []Link) {
	terms := queryTerms(query)
	rows := store.Rows()

	type scored struct {
		score int
		idx   int
	}
	var hits []scored
	for i := range rows {
		if s := cfg.Score(terms, &rows[i]); s > 0 {
			hits = append(hits, scored{score: s, idx: i})
		}
	}
	// Stable keeps file order among equal scores, so earlier records win ties.
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })

	var parts []string
	var links []Link
	seen := make(map[string]struct{})
	total := 0
	for n, h := range hits {
		if n >= cfg.TopK {
			break
		}
		r := &rows[h.idx]
		txt := strings.TrimSpace(r.Text)
		if txt == "" {
			continue
		}
		snip := wsPattern.ReplaceAllString(txt, " ")
		if len(snip) > cfg.ExcerptLen {
			snip = snip[:cfg.ExcerptLen]
		}
		parts = append(parts, "- "+snip)

		if u := strings.TrimSpace(r.URL); u != "" {
			if _, dup := seen[u]; !dup {
				seen[u] = struct{}{}
				title := strings.TrimSpace(r.Title)
				if title == "" {
					title = strings.TrimSpace(r.SourceName)
				}
				if title == "" {
					title = u
				}
				links = append(links, Link{Title: title, URL: u})
			}
		}

		total += len(snip)
		if total >= cfg.WeaveBudget {
			break
		}
	}
	if len(links) > cfg.MaxSources {
		links = links[:cfg.MaxSources]
	}
	return strings.Join(parts, "\n"), links
}
