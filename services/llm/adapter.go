// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// Generation Adapter
// =============================================================================

// LinkRef is a citation hint passed into the generation prompt.
type LinkRef struct {
	Title string
	URL   string
}

// AdapterConfig configures the model-fallback generation adapter.
//
// Fields:
//   - Models: Ordered model identifiers to try. The first entry is usually
//     the operator-configured override; the rest are fixed defaults.
//   - Temperature: Sampling temperature applied to every attempt.
//   - AttemptTimeout: Per-model timeout. One slow provider must not consume
//     the whole request budget.
//   - RequestsPerMinute: Token-bucket rate applied across all attempts.
//     Zero disables rate limiting.
type AdapterConfig struct {
	Models            []string
	Temperature       float32
	AttemptTimeout    time.Duration
	RequestsPerMinute int
}

// DefaultAdapterConfig returns the reference generation policy.
func DefaultAdapterConfig(envModel string) AdapterConfig {
	models := []string{}
	if envModel != "" {
		models = append(models, envModel)
	}
	models = append(models, "gpt-5-thinking", "gpt-4o", "gpt-4o-mini")
	return AdapterConfig{
		Models:         models,
		Temperature:    0.2,
		AttemptTimeout: 45 * time.Second,
	}
}

// Adapter drafts persona answers by walking an ordered model-fallback list.
//
// Description:
//
//	Each model gets exactly one attempt; any failure (timeout, auth,
//	malformed response, empty text) advances to the next model. Only when
//	every model fails does Draft return an error, and callers treat that
//	as a soft failure of the generation stage, not of the request.
//
// Thread Safety: Adapter is safe for concurrent use after construction.
type Adapter struct {
	clients         map[string]ChatClient
	defaultProvider string
	cfg             AdapterConfig
	limiter         *rate.Limiter
}

// NewAdapter creates an Adapter over per-provider chat clients.
//
// Inputs:
//   - clients: ChatClient per provider name (ProviderOpenAI, ProviderAnthropic).
//   - defaultProvider: Provider used for models whose prefix is unrecognized.
//   - cfg: Fallback list and generation policy.
//
// Outputs:
//   - *Adapter: The configured adapter.
//   - error: Non-nil if no clients are supplied or the default provider has
//     no client.
func NewAdapter(clients map[string]ChatClient, defaultProvider string, cfg AdapterConfig) (*Adapter, error) {
	if len(clients) == 0 {
		return nil, fmt.Errorf("llm: adapter requires at least one chat client")
	}
	if _, ok := clients[defaultProvider]; !ok {
		return nil, fmt.Errorf("llm: no client registered for default provider %q", defaultProvider)
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}
	return &Adapter{
		clients:         clients,
		defaultProvider: defaultProvider,
		cfg:             cfg,
		limiter:         limiter,
	}, nil
}

// HasProvider reports whether a client is registered for the provider.
func (a *Adapter) HasProvider(provider string) bool {
	_, ok := a.clients[provider]
	return ok
}

// BuildUserMessage assembles the PRIOR_CONTEXT / PROMPT / WEAVE / LINKS
// user-message layout.
//
// Description:
//
//	Prior turns always appear, "(none)" when the session is new. The weave
//	and links sections are omitted entirely when empty so short questions
//	produce short prompts.
func BuildUserMessage(prior, prompt, weave string, links []LinkRef) string {
	var sb strings.Builder
	sb.WriteString("PRIOR_CONTEXT:\n")
	if prior == "" {
		sb.WriteString("(none)")
	} else {
		sb.WriteString(prior)
	}
	sb.WriteString("\n\nPROMPT:\n")
	sb.WriteString(prompt)
	if weave != "" {
		sb.WriteString("\n\nWEAVE:\n")
		sb.WriteString(weave)
	}
	linkMD := formatLinks(links)
	if linkMD != "" {
		sb.WriteString("\n\nLINKS:\n")
		sb.WriteString(linkMD)
	}
	return sb.String()
}

func formatLinks(links []LinkRef) string {
	var lines []string
	for _, l := range links {
		u := strings.TrimSpace(l.URL)
		if u == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", strings.TrimSpace(l.Title), u))
	}
	return strings.Join(lines, "\n")
}

// Draft generates an answer in the persona voice.
//
// Description:
//
//	Sends the voiceprint as the system message and the assembled
//	PRIOR_CONTEXT/PROMPT/WEAVE/LINKS block as the user message, trying
//	each configured model in order until one returns non-empty text.
//
// Inputs:
//   - ctx: Request context; bounds the whole fallback walk.
//   - voiceprint: Persona system prompt.
//   - prior: Prior session turns, already joined "role: text".
//   - prompt: The user's question.
//   - weave: Woven corpus context, may be empty.
//   - links: Citation hints, may be empty.
//
// Outputs:
//   - string: Draft answer text.
//   - error: Non-nil only when every model in the fallback list failed.
//
// Thread Safety: This method is safe for concurrent use.
func (a *Adapter) Draft(ctx context.Context, voiceprint, prior, prompt, weave string, links []LinkRef) (string, error) {
	messages := []Message{
		{Role: "system", Content: voiceprint},
		{Role: "user", Content: BuildUserMessage(prior, prompt, weave, links)},
	}
	temp := a.cfg.Temperature
	params := GenerationParams{Temperature: &temp}

	var lastErr error
	for _, model := range a.cfg.Models {
		if model == "" {
			continue
		}
		client := a.clientFor(model)
		if client == nil {
			continue
		}
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("llm: rate limiter wait: %w", err)
			}
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if a.cfg.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, a.cfg.AttemptTimeout)
		}
		params.ModelOverride = model
		slog.Info("Generation attempt", slog.String("model", model))
		text, err := client.Chat(attemptCtx, messages, params)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			lastErr = err
			slog.Warn("Generation attempt failed",
				slog.String("model", model),
				slog.String("error", SafeLogString(err.Error())),
			)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			lastErr = fmt.Errorf("llm: model %s returned empty text", model)
			continue
		}
		return text, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("llm: no usable models configured")
	}
	return "", fmt.Errorf("llm: all models failed: %w", lastErr)
}

// clientFor picks the client matching the model's inferred provider,
// falling back to the default provider's client. Returns nil when the
// inferred provider has no registered client and differs from the default.
func (a *Adapter) clientFor(model string) ChatClient {
	provider := InferProvider(model)
	if provider == "" {
		provider = a.defaultProvider
	}
	if c, ok := a.clients[provider]; ok {
		return c
	}
	return nil
}
