// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// =============================================================================
// Rule Engine
// =============================================================================

// ForcedStage names a lookup the rules force ahead of the default cascade.
type ForcedStage string

const (
	ForcedNone     ForcedStage = ""
	ForcedGolden   ForcedStage = "golden"
	ForcedExamples ForcedStage = "examples"
)

// defaultDenyMessage is used when the rule document omits deny_message.
const defaultDenyMessage = "I don’t discuss that. Please ask me something else."

// RuleSet is the operator-controlled pattern document.
//
// Description:
//
//	Patterns are regular expressions; a malformed pattern degrades to
//	case-insensitive substring matching so rule-authoring mistakes never
//	crash the service.
type RuleSet struct {
	DenyPatterns  []string `json:"deny_patterns"`
	ForceGolden   []string `json:"force_golden"`
	ForceExamples []string `json:"force_examples"`
	DenyMessage   string   `json:"deny_message"`
}

// RuleVerdict is the outcome of evaluating the rules against a query.
type RuleVerdict struct {
	Denied      bool
	DenyMessage string
	Forced      ForcedStage
}

// LoadRules reads the rule document fresh from disk.
//
// Description:
//
//	Rules are deliberately NOT cached across requests so operator edits
//	take effect immediately. A missing or malformed file yields an empty
//	rule set, never an error.
func LoadRules(path string) RuleSet {
	var rs RuleSet
	data, err := os.ReadFile(path)
	if err != nil {
		return rs
	}
	if err := json.Unmarshal(data, &rs); err != nil {
		return rs
	}
	return rs
}

// SaveRules atomically replaces the rule document (write-temp-then-rename).
func SaveRules(path string, rs RuleSet) error {
	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return fmt.Errorf("rules: marshaling: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("rules: creating dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("rules: writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rules: replacing %s: %w", path, err)
	}
	return nil
}

// Evaluate matches the query against the rule set.
//
// Description:
//
//	Denial takes precedence over any forced stage. Forced-examples is
//	checked before forced-golden, matching the reference ordering.
func (rs RuleSet) Evaluate(query string) RuleVerdict {
	if patternsMatch(rs.DenyPatterns, query) {
		msg := rs.DenyMessage
		if msg == "" {
			msg = defaultDenyMessage
		}
		return RuleVerdict{Denied: true, DenyMessage: msg}
	}
	if patternsMatch(rs.ForceExamples, query) {
		return RuleVerdict{Forced: ForcedExamples}
	}
	if patternsMatch(rs.ForceGolden, query) {
		return RuleVerdict{Forced: ForcedGolden}
	}
	return RuleVerdict{}
}

// patternsMatch tries each pattern as a case-insensitive regex, degrading
// to substring containment when the pattern fails to compile.
func patternsMatch(patterns []string, query string) bool {
	for _, pat := range patterns {
		if pat == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + pat)
		if err != nil {
			if strings.Contains(strings.ToLower(query), strings.ToLower(pat)) {
				return true
			}
			continue
		}
		if re.MatchString(query) {
			return true
		}
	}
	return false
}
