// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides the generation adapter for the persona answer
// service: provider-agnostic chat clients (OpenAI, Anthropic) built on raw
// net/http, and an Adapter that walks an ordered model-fallback list to
// draft an answer in the persona voice.
//
// Thread Safety:
//
//	All exported types in this package are safe for concurrent use after
//	construction.
package llm

import (
	"context"
	"strings"
)

// Provider constants for supported generation backends.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Message is one turn of a conversation sent to a provider.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// GenerationParams holds provider-agnostic per-request options.
//
// Description:
//
//	Zero values mean "omit from the wire request and use the provider
//	default". ModelOverride routes a single request to a different model
//	than the one the client was constructed with; the fallback chain in
//	Adapter relies on this to try several models on one client.
type GenerationParams struct {
	Temperature   *float32
	MaxTokens     *int
	ModelOverride string
}

// ChatClient is the minimal interface the resolution cascade needs from a
// generation backend.
//
// Thread Safety: Implementations must be safe for concurrent use.
type ChatClient interface {
	// Chat sends messages and returns the assistant's response text.
	Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error)
}

// InferProvider maps a model identifier to its provider by prefix.
//
// Description:
//
//	"gpt-*" and "o*-mini" style names belong to OpenAI, "claude-*" to
//	Anthropic. Unknown prefixes return "" and the adapter treats the
//	model as belonging to the default provider.
func InferProvider(model string) string {
	if strings.HasPrefix(model, "claude-") {
		return ProviderAnthropic
	}
	if strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "o1-") || strings.HasPrefix(model, "o3-") {
		return ProviderOpenAI
	}
	return ""
}
