// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package persona

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// Tuning Feedback
// =============================================================================

// Correction is one operator decision about a drafted answer.
type Correction struct {
	Prompt    string   `json:"prompt"`
	Draft     string   `json:"draft"`
	Decision  string   `json:"decision"` // "ok" | "rewrite" | "not_me"
	Edited    string   `json:"edited,omitempty"`
	AddRules  []string `json:"add_rules,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
	Status    string   `json:"status,omitempty"` // review queue: pending/approved/rejected
	TS        int64    `json:"ts"`
}

// Tuner owns the corrections log and the style-rule list.
//
// Description:
//
//	Corrections append to a JSONL log; short style deltas ("avoid X",
//	"prefer Y") merge into a deduplicated JSON list the operator can
//	review. Rule writes are atomic.
//
// Thread Safety: Tuner is safe for concurrent use.
type Tuner struct {
	mu              sync.Mutex
	correctionsPath string
	stylePath       string
}

// NewTuner creates a Tuner over the corrections log and style-rule file.
func NewTuner(correctionsPath, stylePath string) *Tuner {
	return &Tuner{correctionsPath: correctionsPath, stylePath: stylePath}
}

// StyleRules returns the current style-rule list; missing or malformed
// files yield an empty list.
func (t *Tuner) StyleRules() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readRulesLocked()
}

// SetStyleRules atomically replaces the style-rule list.
func (t *Tuner) SetStyleRules(rules []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeRulesLocked(rules)
}

// RecordFeedback logs a correction and merges any new style rules.
//
// Outputs:
//   - string: The final text to show the operator (edited over draft).
//   - error: Non-nil if the log append fails; rule-merge failures only log.
func (t *Tuner) RecordFeedback(c Correction) (string, error) {
	c.TS = time.Now().Unix()
	if c.Status == "" {
		c.Status = "pending"
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(t.correctionsPath), 0o755); err != nil {
		return "", fmt.Errorf("tuner: creating dir: %w", err)
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("tuner: marshaling correction: %w", err)
	}
	f, err := os.OpenFile(t.correctionsPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("tuner: opening corrections log: %w", err)
	}
	_, werr := f.Write(append(b, '\n'))
	f.Close()
	if werr != nil {
		return "", fmt.Errorf("tuner: appending correction: %w", werr)
	}

	if len(c.AddRules) > 0 {
		merged := t.readRulesLocked()
		have := make(map[string]struct{}, len(merged))
		for _, r := range merged {
			have[r] = struct{}{}
		}
		for _, r := range c.AddRules {
			r = strings.TrimSpace(r)
			if r == "" {
				continue
			}
			if _, ok := have[r]; !ok {
				merged = append(merged, r)
				have[r] = struct{}{}
			}
		}
		if err := t.writeRulesLocked(merged); err != nil {
			return "", err
		}
	}

	final := strings.TrimSpace(c.Edited)
	if final == "" {
		final = strings.TrimSpace(c.Draft)
	}
	return final, nil
}

// ReviewCounts summarizes the corrections log by review status.
func (t *Tuner) ReviewCounts() map[string]int {
	counts := map[string]int{"pending": 0, "approved": 0, "rejected": 0, "total": 0}
	f, err := os.Open(t.correctionsPath)
	if err != nil {
		return counts
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var c Correction
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			continue
		}
		counts["total"]++
		switch strings.ToLower(c.Status) {
		case "approved":
			counts["approved"]++
		case "rejected":
			counts["rejected"]++
		default:
			counts["pending"]++
		}
	}
	return counts
}

func (t *Tuner) readRulesLocked() []string {
	data, err := os.ReadFile(t.stylePath)
	if err != nil {
		return nil
	}
	var rules []string
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil
	}
	return rules
}

func (t *Tuner) writeRulesLocked(rules []string) error {
	if err := os.MkdirAll(filepath.Dir(t.stylePath), 0o755); err != nil {
		return fmt.Errorf("tuner: creating dir: %w", err)
	}
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("tuner: marshaling rules: %w", err)
	}
	tmp := t.stylePath + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("tuner: writing temp rules: %w", err)
	}
	if err := os.Rename(tmp, t.stylePath); err != nil {
		return fmt.Errorf("tuner: replacing rules: %w", err)
	}
	return nil
}
