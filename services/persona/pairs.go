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
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// =============================================================================
// Curated Q/A Pairs
// =============================================================================

// Pair origins, recorded in the JSONL "source" field.
const (
	OriginSeed     = "seed"
	OriginEdit     = "operator edit"
	OriginRestored = "restored"
)

// QAPair is one curated question/answer record.
//
// Description:
//
//	Pairs are immutable once written except via full-file replace with a
//	.bak backup. File order is lookup priority order and must be
//	preserved: the matcher scans in order and the first qualifying match
//	wins.
type QAPair struct {
	Question string `json:"prompt"`
	Answer   string `json:"response"`
	Date     string `json:"date,omitempty"`
	Origin   string `json:"source,omitempty"`
}

// PairStore owns one curated pair file (golden or examples).
//
// Thread Safety: PairStore is safe for concurrent use; loads are
// deduplicated through singleflight.
type PairStore struct {
	path string

	mu     sync.RWMutex
	pairs  []QAPair
	loaded bool
	dirty  bool

	group singleflight.Group
}

// NewPairStore creates a PairStore over a JSONL pair file.
func NewPairStore(path string) *PairStore {
	return &PairStore{path: path}
}

// Path returns the backing file path.
func (ps *PairStore) Path() string { return ps.path }

// MarkDirty flags the cached pairs as stale.
func (ps *PairStore) MarkDirty() {
	ps.mu.Lock()
	ps.dirty = true
	ps.mu.Unlock()
}

// Pairs returns the loaded pairs in file order, loading lazily.
//
// Description:
//
//	Missing files and malformed lines degrade to fewer pairs, never an
//	error. Records without both a question and an answer are skipped.
func (ps *PairStore) Pairs() []QAPair {
	ps.mu.RLock()
	if ps.loaded && !ps.dirty {
		pairs := ps.pairs
		ps.mu.RUnlock()
		return pairs
	}
	ps.mu.RUnlock()

	v, _, _ := ps.group.Do("load", func() (interface{}, error) {
		pairs := readPairs(ps.path)
		ps.mu.Lock()
		ps.pairs = pairs
		ps.loaded = true
		ps.dirty = false
		ps.mu.Unlock()
		return pairs, nil
	})
	return v.([]QAPair)
}

// Len returns the number of loaded pairs.
func (ps *PairStore) Len() int { return len(ps.Pairs()) }

// ReplaceAll rewrites the pair file with replace-and-backup semantics.
//
// Description:
//
//	The previous file is renamed to <path>.bak (one backup generation),
//	then the new pairs are written through a temp file and renamed into
//	place so a concurrent reader never sees a torn file.
func (ps *PairStore) ReplaceAll(pairs []QAPair) error {
	if err := os.MkdirAll(filepath.Dir(ps.path), 0o755); err != nil {
		return fmt.Errorf("pairs: creating dir: %w", err)
	}

	var sb strings.Builder
	for _, p := range pairs {
		b, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("pairs: marshaling pair: %w", err)
		}
		sb.Write(b)
		sb.WriteByte('\n')
	}

	tmp := ps.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("pairs: writing temp file: %w", err)
	}
	if _, err := os.Stat(ps.path); err == nil {
		if err := os.Rename(ps.path, ps.path+".bak"); err != nil {
			slog.Warn("Pair backup failed", slog.String("path", ps.path), slog.String("error", err.Error()))
		}
	}
	if err := os.Rename(tmp, ps.path); err != nil {
		return fmt.Errorf("pairs: replacing %s: %w", ps.path, err)
	}

	ps.mu.Lock()
	ps.pairs = pairs
	ps.loaded = true
	ps.dirty = false
	ps.mu.Unlock()
	return nil
}

func readPairs(path string) []QAPair {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var pairs []QAPair
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var p QAPair
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			continue
		}
		p.Question = strings.TrimSpace(p.Question)
		p.Answer = strings.TrimSpace(p.Answer)
		if p.Question == "" || p.Answer == "" {
			continue
		}
		pairs = append(pairs, p)
	}
	return pairs
}

// =============================================================================
// Q:/A: Text Round-Trip (admin editing surface)
// =============================================================================

// RenderPairsText formats pairs as the operator-editable Q:/A: document.
func RenderPairsText(pairs []QAPair) string {
	blocks := make([]string, 0, len(pairs))
	for _, p := range pairs {
		blocks = append(blocks, fmt.Sprintf("Q: %s\nA: %s", p.Question, p.Answer))
	}
	return strings.Join(blocks, "\n\n")
}

// ParsePairsText parses an edited Q:/A: document back into pairs.
//
// Description:
//
//	A pair opens with "Q:" and closes at the next "Q:" or a blank line
//	after its answer. Continuation lines attach to whichever of the
//	question or answer is currently open, so multi-line answers survive
//	the round trip. Each parsed pair is stamped with the operator-edit
//	origin and the current time.
func ParsePairsText(raw string) []QAPair {
	now := time.Now().Format("2006-01-02T15:04:05")
	lines := strings.Split(raw, "\n")
	lines = append(lines, "")

	var pairs []QAPair
	var q, a string
	var haveQ, haveA bool
	flush := func() {
		if haveQ && haveA && strings.TrimSpace(q) != "" && strings.TrimSpace(a) != "" {
			pairs = append(pairs, QAPair{
				Question: strings.TrimSpace(q),
				Answer:   strings.TrimSpace(a),
				Date:     now,
				Origin:   OriginEdit,
			})
		}
		q, a = "", ""
		haveQ, haveA = false, false
	}

	for _, ln := range lines {
		ln = strings.TrimRight(ln, " \t")
		switch {
		case strings.HasPrefix(ln, "Q:"):
			flush()
			q = strings.TrimSpace(ln[2:])
			haveQ = true
		case strings.HasPrefix(ln, "A:"):
			a = strings.TrimSpace(ln[2:])
			haveA = true
		case ln == "":
			flush()
		default:
			if haveA {
				a = strings.TrimSpace(a + "\n" + ln)
			} else if haveQ {
				q = strings.TrimSpace(q + "\n" + ln)
			}
		}
	}
	return pairs
}
