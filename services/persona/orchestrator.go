// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package persona

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tullmanai/cascade/services/corpus"
	"github.com/tullmanai/cascade/services/llm"
)

// =============================================================================
// Resolution Orchestrator
// =============================================================================

// Cascade stage names, used for logging and metrics.
const (
	StageGuardrail      = "guardrail"
	StageDeny           = "deny"
	StageForced         = "forced"
	StageOverride       = "override"
	StageGolden         = "golden"
	StageExamples       = "examples"
	StageGenerated      = "generated"
	StageGeneratedPlain = "generated_plain"
	StageLifespan       = "lifespan"
	StageRelaxed        = "relaxed"
	StageFallback       = "fallback"
)

// FallbackResponse is the guaranteed terminal backstop.
const FallbackResponse = "Give me one detail (timeframe, scope, or result) and I’ll answer directly."

// Generator drafts persona answers; nil means no provider is configured.
type Generator interface {
	Draft(ctx context.Context, voiceprint, prior, prompt, weave string, links []llm.LinkRef) (string, error)
}

// Resolution is the outcome of one cascade run.
type Resolution struct {
	Answer  string
	Sources []Link
	Stage   string
	Ruled   bool
}

// Service wires the cascade's collaborators together.
//
// Description:
//
//	One Service is shared across all requests. The corpus and pair
//	stores are read-mostly; rules load fresh per request so operator
//	edits apply immediately.
//
// Thread Safety: Service is safe for concurrent use.
type Service struct {
	cfg       Config
	corpus    *corpus.Store
	searchCfg corpus.SearchConfig
	golden    *PairStore
	examples  *PairStore
	matcher   *Matcher
	sessions  *SessionStore
	voice     *Voiceprint
	tuner     *Tuner
	gen       Generator
	tracer    trace.Tracer
}

// NewService assembles a Service from config and collaborators.
//
// Inputs:
//   - cfg: Loaded configuration.
//   - store: The corpus store.
//   - gen: Generation adapter; nil disables the generation stages.
func NewService(cfg Config, store *corpus.Store, gen Generator) *Service {
	return &Service{
		cfg:    cfg,
		corpus: store,
		searchCfg: corpus.SearchConfig{
			TopK:            cfg.Search.TopK,
			WeaveBudget:     cfg.Search.WeaveBudget,
			ExcerptLen:      cfg.Search.ExcerptLen,
			MaxSources:      cfg.Search.MaxSources,
			AffinityKeyword: "tullman",
			AffinityBonus:   5,
		},
		golden:   NewPairStore(cfg.GoldenFile),
		examples: NewPairStore(cfg.PairsFile),
		matcher:  NewMatcher(cfg.Matcher),
		sessions: NewSessionStore(cfg.Sessions.MaxTurns, cfg.Sessions.MaxSessions),
		voice:    NewVoiceprint(cfg.VoiceprintStaging, cfg.VoiceprintProd),
		tuner:    NewTuner(cfg.CorrectionsFile, cfg.StyleRulesFile),
		gen:      gen,
		tracer:   otel.Tracer("cascade/persona"),
	}
}

// Accessors for the HTTP surface.

func (s *Service) Sessions() *SessionStore { return s.sessions }
func (s *Service) Corpus() *corpus.Store   { return s.corpus }
func (s *Service) Golden() *PairStore      { return s.golden }
func (s *Service) Examples() *PairStore    { return s.examples }
func (s *Service) Voice() *Voiceprint      { return s.voice }
func (s *Service) Tuner() *Tuner           { return s.tuner }
func (s *Service) Config() Config          { return s.cfg }

// Reload re-reads all read-mostly stores from disk.
func (s *Service) Reload() {
	s.corpus.Reload()
	s.golden.MarkDirty()
	s.examples.MarkDirty()
}

// Resolve runs the cascade for one query.
//
// Description:
//
//	Stages run strictly in order; the first stage producing text wins.
//	Every produced answer passes the style sanitizer and citation filter
//	exactly once before return. The guardrail's fixed string is exempt:
//	it is pre-written to satisfy style policy.
//
//	A forced stage that misses falls through to the default cascade
//	rather than terminating; forcing is a preference, not an exclusivity
//	lock.
//
// Inputs:
//   - ctx: Request context.
//   - query: Trimmed, non-empty user prompt.
//   - turns: Session history for the generation prompt. May be nil.
//
// Outputs:
//   - Resolution: The final answer, its sources, and the winning stage.
func (s *Service) Resolve(ctx context.Context, query string, turns []Turn) Resolution {
	ctx, span := s.tracer.Start(ctx, "persona.resolve")
	defer span.End()

	res := s.resolve(ctx, query, turns)
	span.SetAttributes(
		attribute.String("cascade.stage", res.Stage),
		attribute.Int("cascade.sources", len(res.Sources)),
	)
	resolutionsTotal.WithLabelValues(res.Stage).Inc()
	slog.Info("Resolved",
		slog.String("stage", res.Stage),
		slog.Int("answer_len", len(res.Answer)),
		slog.Int("sources", len(res.Sources)),
	)
	return res
}

func (s *Service) resolve(ctx context.Context, query string, turns []Turn) Resolution {
	// 1. Guardrail: fixed pre-sanitized response, skip everything else.
	if Blocked(query) {
		return Resolution{Answer: GuardrailResponse, Stage: StageGuardrail, Ruled: true}
	}

	// 2/3. Rules, loaded fresh so operator edits apply immediately.
	rules := LoadRules(s.cfg.RulesFile)
	verdict := rules.Evaluate(query)
	if verdict.Denied {
		return s.finish(query, verdict.DenyMessage, nil, StageDeny, true)
	}
	switch verdict.Forced {
	case ForcedExamples:
		if ans := s.matcher.LookupRelaxed(s.examples.Pairs(), query); ans != "" {
			return s.finish(query, ans, nil, StageForced, false)
		}
	case ForcedGolden:
		if ans, _ := s.lookupWithFuzzy(s.golden.Pairs(), query); ans != "" {
			return s.finish(query, ans, nil, StageForced, false)
		}
	}

	// 4. Identity/topic overrides: authored exact answers beat fuzzy noise.
	lower := strings.ToLower(query)
	if ans, isIdentity := LookupOverride(lower); ans != "" {
		var links []Link
		if isIdentity {
			links = []Link{identityLink}
		}
		return s.finish(query, ans, links, StageOverride, false)
	}

	// 5. Lexical lookup over curated pairs: golden first, then examples.
	if ans, _ := s.lookupWithFuzzy(s.golden.Pairs(), query); ans != "" {
		return s.finish(query, ans, nil, StageGolden, false)
	}
	if ans, _ := s.lookupWithFuzzy(s.examples.Pairs(), query); ans != "" {
		return s.finish(query, ans, nil, StageExamples, false)
	}

	// 6/7. Corpus weave + generation, then plain generation.
	if s.gen != nil {
		voiceprint, _ := s.voice.Load()
		prior := Prior(turns, s.cfg.Sessions.PriorTurns)
		weave, links := s.searchCfg.Search(s.corpus, query)

		start := time.Now()
		hints := make([]llm.LinkRef, 0, len(links))
		for _, l := range links {
			hints = append(hints, llm.LinkRef{Title: l.Title, URL: l.URL})
		}
		draft, err := s.gen.Draft(ctx, voiceprint, prior, query, weave, hints)
		if err == nil && draft != "" {
			generationLatencySeconds.Observe(time.Since(start).Seconds())
			stage := StageGenerated
			if weave == "" {
				stage = StageGeneratedPlain
			}
			return s.finish(query, draft, links, stage, false)
		}

		if weave != "" {
			// Plain persona call without corpus context.
			draft, err = s.gen.Draft(ctx, voiceprint, prior, query, "", nil)
			if err == nil && draft != "" {
				generationLatencySeconds.Observe(time.Since(start).Seconds())
				return s.finish(query, draft, nil, StageGeneratedPlain, false)
			}
		}
		generationLatencySeconds.Observe(time.Since(start).Seconds())
		generationFailuresTotal.Inc()
		slog.Warn("Generation exhausted, continuing cascade", slog.String("error", errString(err)))
	}

	// Rule-of-thumb stubs keep common factual asks useful while
	// generation is down.
	if ans := LifespanStub(lower); ans != "" {
		return s.finish(query, ans, nil, StageLifespan, false)
	}

	// 8. Relaxed substring pass over examples.
	if ans := s.matcher.LookupRelaxed(s.examples.Pairs(), query); ans != "" {
		return s.finish(query, ans, nil, StageRelaxed, false)
	}

	// 9. Terminal fallback: always succeeds.
	return s.finish(query, FallbackResponse, nil, StageFallback, false)
}

// lookupWithFuzzy runs the standard lookup, then the typo-tolerant pass.
func (s *Service) lookupWithFuzzy(pairs []QAPair, query string) (string, float64) {
	if ans, score := s.matcher.Lookup(pairs, query); ans != "" {
		return ans, score
	}
	return s.matcher.LookupFuzzy(pairs, query)
}

// finish funnels every non-guardrail answer through the sanitizer and the
// citation filter exactly once.
func (s *Service) finish(query, answer string, links []Link, stage string, ruled bool) Resolution {
	return Resolution{
		Answer:  Sanitize(answer),
		Sources: FilterChips(query, links, s.cfg.Citations.MaxChips),
		Stage:   stage,
		Ruled:   ruled,
	}
}

func errString(err error) string {
	if err == nil {
		return "empty draft"
	}
	return err.Error()
}
