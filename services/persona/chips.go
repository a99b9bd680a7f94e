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

	"github.com/tullmanai/cascade/services/corpus"
)

// Link is a citation chip surfaced alongside an answer.
type Link = corpus.Link

// =============================================================================
// Citation Filter
// =============================================================================

// allowedDomains is the persona-affiliated host allow-list (suffix match).
var allowedDomains = []string{
	"howardtullman.com", "tullman.blogspot.com", "blogspot.com",
	"inc.com", "northwestern.edu", "wikipedia.org",
}

// excludedMarkers drop links whose title carries ingestion artifacts.
var excludedMarkers = []string{"chunk", "top toady", "roberts"}

// politicalKeywords gate politics-adjacent links on non-political queries.
var politicalKeywords = []string{"israel", "gaza", "hamas", "putin", "trump", "election", "politic"}

// aiTerms must appear in a link when the query implies a strategy ask.
var aiTerms = []string{"ai", "artificial intelligence", "strategy", "roadmap", "plan", "llm", "automation", "table stakes", "table-stakes"}

// strategyTriggers in the query activate the aiTerms requirement.
var strategyTriggers = []string{"ai strategy", "table stakes", "ai roadmap", "ai plan"}

var (
	schemePrefix = regexp.MustCompile(`^https?://`)
	chunkSuffix  = regexp.MustCompile(`(?i)\s*-?\s*chunk\s*\d+\s*$`)
)

// isPolitical reports whether text contains a politics keyword.
func isPolitical(text string) bool {
	t := strings.ToLower(text)
	for _, k := range politicalKeywords {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

// CleanTitle strips trailing "chunk N" ingestion artifacts and re-cases
// all-caps titles.
func CleanTitle(t string) string {
	if t == "" {
		return "Source"
	}
	t = strings.TrimSpace(chunkSuffix.ReplaceAllString(t, ""))
	if t == "" {
		return "Source"
	}
	if t == strings.ToUpper(t) && t != strings.ToLower(t) {
		return strings.Title(strings.ToLower(t)) //nolint:staticcheck // persona titles are ASCII
	}
	return t
}

// FilterChips applies the citation policy to candidate links.
//
// Description:
//
//	Keeps only allow-listed hosts, drops ingestion artifacts, gates
//	politics-adjacent links unless the query itself is political, and
//	requires an AI/strategy term when the query is a strategy ask.
//	Deduplicates by lowercased URL preserving first-seen order, caps at
//	maxChips, and cleans titles on the way out.
//
//	Never returns more than maxChips entries and never a host outside
//	the allow-list, for any input.
func FilterChips(query string, links []Link, maxChips int) []Link {
	q := strings.ToLower(query)
	requireAI := false
	for _, k := range strategyTriggers {
		if strings.Contains(q, k) {
			requireAI = true
			break
		}
	}
	allowPolitics := isPolitical(q)

	out := make([]Link, 0, maxChips)
	seen := make(map[string]struct{})
	for _, l := range links {
		u := strings.TrimSpace(l.URL)
		if u == "" {
			continue
		}
		host := strings.ToLower(strings.SplitN(schemePrefix.ReplaceAllString(u, ""), "/", 2)[0])
		allowed := false
		for _, d := range allowedDomains {
			if strings.HasSuffix(host, d) {
				allowed = true
				break
			}
		}
		if !allowed {
			continue
		}

		title := strings.TrimSpace(l.Title)
		if title == "" {
			title = u
		}
		lt := strings.ToLower(title)
		lu := strings.ToLower(u)

		skip := false
		for _, x := range excludedMarkers {
			if strings.Contains(lt, x) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		if !allowPolitics && (isPolitical(lt) || isPolitical(lu)) {
			continue
		}
		if requireAI {
			hasTerm := false
			for _, k := range aiTerms {
				if strings.Contains(lt+lu, k) {
					hasTerm = true
					break
				}
			}
			if !hasTerm {
				continue
			}
		}

		if _, dup := seen[lu]; dup {
			continue
		}
		seen[lu] = struct{}{}
		out = append(out, Link{Title: CleanTitle(title), URL: u})
		if len(out) >= maxChips {
			break
		}
	}
	return out
}
