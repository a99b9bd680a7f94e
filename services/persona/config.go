// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package persona implements the persona answer service: the resolution
// cascade that routes each question through rules, curated-pair lookup,
// corpus retrieval, and generation, then sanitizes and cites the result.
package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
//
// Description:
//
//	Loaded from YAML at startup with environment overrides for the knobs
//	operators tune most (model, listen address, data dir). The matcher
//	and ranking thresholds are empirically chosen defaults, exposed here
//	rather than hard-coded.
type Config struct {
	// ListenAddr is the HTTP bind address.
	ListenAddr string `yaml:"listen_addr" validate:"required"`

	// DataDir roots all persisted state (corpus, pairs, rules, voiceprint).
	DataDir string `yaml:"data_dir" validate:"required"`

	// CorpusFile, PairsFile, GoldenFile, RulesFile are resolved against
	// DataDir when relative.
	CorpusFile string `yaml:"corpus_file"`
	PairsFile  string `yaml:"pairs_file"`
	GoldenFile string `yaml:"golden_file"`
	RulesFile  string `yaml:"rules_file"`

	// VoiceprintStaging and VoiceprintProd hold the persona system prompt;
	// staging is preferred when non-empty.
	VoiceprintStaging string `yaml:"voiceprint_staging"`
	VoiceprintProd    string `yaml:"voiceprint_prod"`

	// CorrectionsFile and StyleRulesFile back the tuning feedback loop.
	CorrectionsFile string `yaml:"corrections_file"`
	StyleRulesFile  string `yaml:"style_rules_file"`

	Matcher    MatcherConfig    `yaml:"matcher"`
	Search     SearchSettings   `yaml:"search"`
	Sessions   SessionConfig    `yaml:"sessions"`
	Generation GenerationConfig `yaml:"generation"`
	Citations  CitationConfig   `yaml:"citations"`
}

// MatcherConfig tunes the lexical matcher.
type MatcherConfig struct {
	// AcceptThreshold is the minimum Jaccard score for a curated-pair hit.
	AcceptThreshold float64 `yaml:"accept_threshold" validate:"gt=0,lte=1"`
	// FuzzyCutoff is the minimum normalized string similarity for the
	// typo-tolerant pass.
	FuzzyCutoff float64 `yaml:"fuzzy_cutoff" validate:"gt=0,lte=1"`
	// SalienceKeyword gets a score boost when present on both sides.
	SalienceKeyword string  `yaml:"salience_keyword"`
	SalienceBoost   float64 `yaml:"salience_boost" validate:"gte=0"`
	// MinContainmentLen is the shortest normalized string the strict
	// lookup accepts for substring containment; shorter fragments defer
	// to the relaxed pass. Zero disables the guard.
	MinContainmentLen int `yaml:"min_containment_len" validate:"gte=0"`
}

// SearchSettings tunes corpus retrieval.
type SearchSettings struct {
	TopK        int `yaml:"top_k" validate:"gt=0"`
	WeaveBudget int `yaml:"weave_budget" validate:"gt=0"`
	ExcerptLen  int `yaml:"excerpt_len" validate:"gt=0"`
	MaxSources  int `yaml:"max_sources" validate:"gt=0"`
}

// SessionConfig bounds the session store.
type SessionConfig struct {
	MaxTurns    int `yaml:"max_turns" validate:"gt=0"`
	MaxSessions int `yaml:"max_sessions" validate:"gt=0"`
	// PriorTurns is how many recent turns feed the generation prompt.
	PriorTurns int `yaml:"prior_turns" validate:"gt=0"`
}

// GenerationConfig tunes the model-fallback adapter.
type GenerationConfig struct {
	// Models is the ordered fallback list. An empty first entry is filled
	// from OPENAI_MODEL at load time.
	Models            []string      `yaml:"models"`
	Temperature       float32       `yaml:"temperature" validate:"gte=0,lte=2"`
	AttemptTimeout    time.Duration `yaml:"attempt_timeout" validate:"gt=0"`
	RequestsPerMinute int           `yaml:"requests_per_minute" validate:"gte=0"`
}

// CitationConfig tunes the citation filter.
type CitationConfig struct {
	MaxChips int `yaml:"max_chips" validate:"gt=0"`
}

// DefaultConfig returns the reference policy values.
func DefaultConfig() Config {
	return Config{
		ListenAddr:        ":8080",
		DataDir:           "data",
		CorpusFile:        "content/content.jsonl",
		PairsFile:         "voiceprint_seed.jsonl",
		GoldenFile:        "golden.jsonl",
		RulesFile:         "rules.json",
		VoiceprintStaging: "voiceprint_staging.txt",
		VoiceprintProd:    "voiceprint_prod.txt",
		CorrectionsFile:   "corrections.jsonl",
		StyleRulesFile:    "style_rules.json",
		Matcher: MatcherConfig{
			AcceptThreshold:   0.42,
			FuzzyCutoff:       0.86,
			SalienceKeyword:   "kendall",
			SalienceBoost:     0.25,
			MinContainmentLen: 10,
		},
		Search: SearchSettings{
			TopK:        6,
			WeaveBudget: 1800,
			ExcerptLen:  400,
			MaxSources:  4,
		},
		Sessions: SessionConfig{
			MaxTurns:    16,
			MaxSessions: 200,
			PriorTurns:  8,
		},
		Generation: GenerationConfig{
			Models:         []string{"gpt-5-thinking", "gpt-4o", "gpt-4o-mini"},
			Temperature:    0.2,
			AttemptTimeout: 45 * time.Second,
		},
		Citations: CitationConfig{
			MaxChips: 2,
		},
	}
}

// LoadConfig reads a YAML config file, applies environment overrides, and
// validates the result.
//
// Description:
//
//	A missing file is not an error; defaults apply. Environment overrides:
//	CASCADE_LISTEN_ADDR, CASCADE_DATA_DIR, CASCADE_ACCEPT_THRESHOLD, and
//	OPENAI_MODEL (prepended to the generation fallback list).
//
// Outputs:
//   - Config: The merged configuration with file paths resolved.
//   - error: Non-nil if the file is malformed or validation fails.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if v := os.Getenv("CASCADE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("CASCADE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("CASCADE_ACCEPT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Matcher.AcceptThreshold = f
		}
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.Generation.Models = append([]string{v}, cfg.Generation.Models...)
	}

	cfg.CorpusFile = resolvePath(cfg.DataDir, cfg.CorpusFile)
	cfg.PairsFile = resolvePath(cfg.DataDir, cfg.PairsFile)
	cfg.GoldenFile = resolvePath(cfg.DataDir, cfg.GoldenFile)
	cfg.RulesFile = resolvePath(cfg.DataDir, cfg.RulesFile)
	cfg.VoiceprintStaging = resolvePath(cfg.DataDir, cfg.VoiceprintStaging)
	cfg.VoiceprintProd = resolvePath(cfg.DataDir, cfg.VoiceprintProd)
	cfg.CorrectionsFile = resolvePath(cfg.DataDir, cfg.CorrectionsFile)
	cfg.StyleRulesFile = resolvePath(cfg.DataDir, cfg.StyleRulesFile)

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("config: validation: %w", err)
	}
	return cfg, nil
}

func resolvePath(dataDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dataDir, p)
}
