// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesEvaluate_DenyPrecedence(t *testing.T) {
	rs := RuleSet{
		DenyPatterns: []string{`\bsalary\b`},
		ForceGolden:  []string{`salary`},
	}
	v := rs.Evaluate("what is your salary")
	assert.True(t, v.Denied)
	assert.Equal(t, defaultDenyMessage, v.DenyMessage)
	assert.Equal(t, ForcedNone, v.Forced)
}

func TestRulesEvaluate_CustomDenyMessage(t *testing.T) {
	rs := RuleSet{DenyPatterns: []string{"crypto"}, DenyMessage: "Not my lane."}
	v := rs.Evaluate("thoughts on crypto?")
	assert.True(t, v.Denied)
	assert.Equal(t, "Not my lane.", v.DenyMessage)
}

func TestRulesEvaluate_ForcedExamplesBeforeGolden(t *testing.T) {
	rs := RuleSet{
		ForceExamples: []string{"mentor"},
		ForceGolden:   []string{"mentor"},
	}
	v := rs.Evaluate("who was your mentor")
	assert.Equal(t, ForcedExamples, v.Forced)
}

func TestRulesEvaluate_CaseInsensitive(t *testing.T) {
	rs := RuleSet{ForceGolden: []string{"KENDALL"}}
	v := rs.Evaluate("tell me about kendall")
	assert.Equal(t, ForcedGolden, v.Forced)
}

func TestRulesEvaluate_MalformedPatternDegradesToSubstring(t *testing.T) {
	rs := RuleSet{DenyPatterns: []string{"[invalid("}}
	assert.False(t, rs.Evaluate("harmless question").Denied)
	assert.True(t, rs.Evaluate("this contains [invalid( literally").Denied)
}

func TestLoadRules_MissingAndMalformedAreEmpty(t *testing.T) {
	empty := LoadRules(filepath.Join(t.TempDir(), "missing.json"))
	assert.Empty(t, empty.DenyPatterns)

	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	broken := LoadRules(path)
	assert.Empty(t, broken.DenyPatterns)
	assert.False(t, broken.Evaluate("anything").Denied)
}

func TestSaveLoadRules_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "rules.json")
	rs := RuleSet{
		DenyPatterns:  []string{`\bpolitics\b`},
		ForceGolden:   []string{"kendall"},
		ForceExamples: []string{"1871"},
		DenyMessage:   "Pass.",
	}
	require.NoError(t, SaveRules(path, rs))

	got := LoadRules(path)
	assert.Equal(t, rs, got)

	// No temp file left behind.
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestRulesFreshPerLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, SaveRules(path, RuleSet{DenyPatterns: []string{"alpha"}}))
	assert.True(t, LoadRules(path).Evaluate("alpha topic").Denied)

	// Operator edits apply on the very next load.
	require.NoError(t, SaveRules(path, RuleSet{}))
	assert.False(t, LoadRules(path).Evaluate("alpha topic").Denied)
}
