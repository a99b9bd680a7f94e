// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package corpus provides read-mostly access to the ingested content
// corpus: a newline-delimited JSON file of pre-chunked text records,
// scored search with persona-affinity ranking, and atomic appends for
// operator-indexed notes.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Chunk is one ingested content record.
//
// Description:
//
//	Chunks are created by ingestion and by the admin index-text endpoint.
//	The service only reads them; re-ingestion is deduplicated against Hash,
//	a stable fingerprint of the source path, chunk index, and the first
//	400 characters of text.
type Chunk struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	SourcePath string   `json:"source_path"`
	SourceName string   `json:"source_name"`
	SourceType string   `json:"source_type"`
	Part       string   `json:"part"`
	Text       string   `json:"text"`
	Tags       []string `json:"tags"`
	Hash       string   `json:"hash"`
	URL        string   `json:"url,omitempty"`

	// textLower caches strings.ToLower(Text). The store fills it when a
	// chunk enters memory so scoring never re-lowers per request.
	textLower string
}

// lowerText returns the chunk text lowered for matching, falling back to
// lowering on demand for chunks built outside the store.
func (c *Chunk) lowerText() string {
	if c.textLower != "" {
		return c.textLower
	}
	return strings.ToLower(c.Text)
}

// Fingerprint computes the dedup hash for a chunk position within a source.
func Fingerprint(sourcePath string, index int, text string) string {
	head := text
	if len(head) > 400 {
		head = head[:400]
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s::chunk::%d::%s", sourcePath, index, head)))
	return hex.EncodeToString(sum[:])
}

// Link is a (title, url) citation pair derived from a chunk. Links are
// never persisted; their lifetime is one response.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}
