// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
	"golang.org/x/sync/singleflight"
)

// maxRows bounds how many JSONL records are loaded into memory.
const maxRows = 20000

// Admin note chunking mirrors the ingestion defaults.
const (
	adminChunkSize    = 1200
	adminChunkOverlap = 120
)

// Store owns the in-memory copy of the content corpus.
//
// Description:
//
//	The corpus JSONL is loaded lazily on first use and shared across
//	requests. A fsnotify watcher marks the store dirty when the file
//	changes on disk (ingestion runs, operator edits), and the next read
//	reloads it. Reload can also be forced via the admin surface.
//
// Thread Safety: Store is safe for concurrent use. Loads are deduplicated
// through singleflight so concurrent first reads parse the file once.
type Store struct {
	path string

	mu     sync.RWMutex
	rows   []Chunk
	loaded bool
	dirty  bool

	group   singleflight.Group
	watcher *fsnotify.Watcher
}

// NewStore creates a Store over a JSONL corpus file. The file may not
// exist yet; an absent file loads as an empty corpus.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Watch starts a fsnotify watcher on the corpus file's directory.
//
// Description:
//
//	Watches the parent directory rather than the file itself because
//	atomic replaces (write-temp-then-rename) swap the inode out from
//	under a file-level watch. Any event touching the corpus file marks
//	the store dirty.
//
// Outputs:
//   - error: Non-nil if the watcher cannot be created or the directory
//     cannot be watched.
func (s *Store) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("corpus: creating watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("corpus: watching %s: %w", dir, err)
	}
	s.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) == filepath.Clean(s.path) {
					slog.Info("Corpus file changed, marking stale",
						slog.String("path", s.path),
						slog.String("op", ev.Op.String()),
					)
					s.MarkDirty()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("Corpus watcher error", slog.String("error", err.Error()))
			}
		}
	}()
	return nil
}

// Close stops the fsnotify watcher if one is running.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// MarkDirty flags the in-memory rows as stale; the next read reloads.
func (s *Store) MarkDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Rows returns the loaded corpus, loading or reloading it as needed.
//
// Description:
//
//	A missing or partially unreadable corpus file degrades to fewer rows,
//	never to an error; malformed JSONL lines are skipped. This keeps the
//	resolution cascade alive when ingestion is mid-write.
func (s *Store) Rows() []Chunk {
	s.mu.RLock()
	if s.loaded && !s.dirty {
		rows := s.rows
		s.mu.RUnlock()
		return rows
	}
	s.mu.RUnlock()

	// Concurrent callers share one parse.
	v, _, _ := s.group.Do("load", func() (interface{}, error) {
		rows := readJSONL(s.path)
		s.mu.Lock()
		s.rows = rows
		s.loaded = true
		s.dirty = false
		s.mu.Unlock()
		slog.Info("Corpus loaded", slog.Int("rows", len(rows)), slog.String("path", s.path))
		return rows, nil
	})
	return v.([]Chunk)
}

// Reload forces a fresh parse of the corpus file.
func (s *Store) Reload() int {
	s.MarkDirty()
	return len(s.Rows())
}

// Len returns the number of loaded chunks.
func (s *Store) Len() int {
	return len(s.Rows())
}

// Stats returns chunk counts keyed by source_type. Chunks without a
// source_type count as "unknown".
func (s *Store) Stats() map[string]int {
	counts := make(map[string]int)
	for _, r := range s.Rows() {
		t := r.SourceType
		if t == "" {
			t = "unknown"
		}
		counts[t]++
	}
	return counts
}

// Append adds chunks to the corpus file and the in-memory copy.
//
// Description:
//
//	Records are written in one buffered append so a concurrent reader
//	never observes a torn line. The in-memory rows are extended in place
//	rather than marked dirty, keeping the appended chunks searchable
//	immediately without a full reparse.
func (s *Store) Append(chunks ...Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("corpus: creating data dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("corpus: opening %s for append: %w", s.path, err)
	}
	defer f.Close()

	// Lower once here, not per search.
	for i := range chunks {
		chunks[i].textLower = strings.ToLower(chunks[i].Text)
	}

	var sb strings.Builder
	for _, c := range chunks {
		b, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("corpus: marshaling chunk %s: %w", c.ID, err)
		}
		sb.Write(b)
		sb.WriteByte('\n')
	}
	if _, err := f.WriteString(sb.String()); err != nil {
		return fmt.Errorf("corpus: appending to %s: %w", s.path, err)
	}

	s.mu.Lock()
	if s.loaded {
		s.rows = append(s.rows, chunks...)
	}
	s.mu.Unlock()
	return nil
}

// AppendText splits an operator note into chunks and appends them.
//
// Description:
//
//	Backs the admin index-text endpoint. Long notes are split with the
//	same size/overlap policy ingestion uses so admin notes and ingested
//	documents rank comparably.
//
// Outputs:
//   - int: Number of chunks appended.
//   - error: Non-nil if splitting or the file append fails.
func (s *Store) AppendText(title, text string, tags []string) (int, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "(admin note)"
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("corpus: empty text")
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(adminChunkSize),
		textsplitter.WithChunkOverlap(adminChunkOverlap),
	)
	parts, err := splitter.SplitText(text)
	if err != nil {
		return 0, fmt.Errorf("corpus: splitting admin note: %w", err)
	}

	allTags := append([]string{"tullman_ai", "admin"}, tags...)
	chunks := make([]Chunk, 0, len(parts))
	for i, part := range parts {
		idx := i + 1
		chunks = append(chunks, Chunk{
			ID:         uuid.NewString(),
			Title:      fmt.Sprintf("%s chunk %d", title, idx),
			SourcePath: "admin",
			SourceName: "admin",
			SourceType: "admin",
			Part:       fmt.Sprintf("chunk_%d", idx),
			Text:       part,
			Tags:       allTags,
			Hash:       Fingerprint("admin::"+title, idx, part),
		})
	}
	if err := s.Append(chunks...); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func readJSONL(path string) []Chunk {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Corpus file unreadable", slog.String("path", path), slog.String("error", err.Error()))
		}
		return nil
	}
	defer f.Close()

	var rows []Chunk
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var c Chunk
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			continue
		}
		c.textLower = strings.ToLower(c.Text)
		rows = append(rows, c)
		if len(rows) >= maxRows {
			break
		}
	}
	if err := sc.Err(); err != nil {
		slog.Warn("Corpus scan stopped early", slog.String("path", path), slog.String("error", err.Error()))
	}
	return rows
}
