// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// =============================================================================
// Voiceprint
// =============================================================================

// DefaultVoiceprint is the built-in persona system prompt, used when no
// voiceprint file exists.
const DefaultVoiceprint = "You are Howard Tullman. Write in first person (I, my). " +
	"No greetings. The FIRST sentence must directly answer the question. " +
	"If the question implies an audience (e.g., a 10-year-old), match that level. " +
	"Use prior context and the JSON WEAVE only if they improve accuracy—otherwise ignore them. " +
	"Be direct, practical, operator-minded. Prefer 'founded and ran' (never 'founded or ran'). " +
	"If you cite, use short chips (Title - URL). Return clean Markdown."

// Voiceprint manages the persona system prompt with staging/prod files.
//
// Description:
//
//	Reads prefer the staging file when it holds non-empty text, then the
//	prod file, then the built-in default. Writes go to staging with
//	replace or append semantics and keep one .bak backup of the previous
//	staging content.
//
// Thread Safety: Voiceprint is safe for concurrent use; file writes are
// serialized and atomic (write-temp-then-rename).
type Voiceprint struct {
	mu          sync.Mutex
	stagingPath string
	prodPath    string
}

// NewVoiceprint creates a Voiceprint over the staging and prod paths.
func NewVoiceprint(stagingPath, prodPath string) *Voiceprint {
	return &Voiceprint{stagingPath: stagingPath, prodPath: prodPath}
}

// Load returns the active voiceprint text and which path supplied it
// (empty for the built-in default).
func (v *Voiceprint) Load() (string, string) {
	for _, p := range []string{v.stagingPath, v.prodPath} {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if t := strings.TrimSpace(string(data)); t != "" {
			return t, p
		}
	}
	return DefaultVoiceprint, ""
}

// Set writes voiceprint text to staging.
//
// Inputs:
//   - text: The new text. Trailing whitespace is trimmed.
//   - appendMode: When true, text is appended to the existing staging
//     content separated by a blank line; otherwise it replaces it.
//
// Outputs:
//   - int: Bytes written.
//   - error: Non-nil if the write fails.
func (v *Voiceprint) Set(text string, appendMode bool) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	text = strings.TrimRight(text, " \t\n")
	old := ""
	if appendMode {
		if data, err := os.ReadFile(v.stagingPath); err == nil {
			old = strings.TrimRight(string(data), " \t\n")
		}
	}
	sep := ""
	if old != "" && text != "" {
		sep = "\n\n"
	}
	out := strings.TrimRight(old+sep+text, " \t\n") + "\n"

	if err := os.MkdirAll(filepath.Dir(v.stagingPath), 0o755); err != nil {
		return 0, fmt.Errorf("voiceprint: creating dir: %w", err)
	}
	if data, err := os.ReadFile(v.stagingPath); err == nil {
		// One backup generation of the previous value.
		_ = os.WriteFile(v.stagingPath+".bak", data, 0o644)
	}
	tmp := v.stagingPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(out), 0o644); err != nil {
		return 0, fmt.Errorf("voiceprint: writing temp file: %w", err)
	}
	if err := os.Rename(tmp, v.stagingPath); err != nil {
		return 0, fmt.Errorf("voiceprint: replacing staging: %w", err)
	}
	return len(out), nil
}
