// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/awnumar/memguard"
)

// =============================================================================
// Anthropic Wire Types
// =============================================================================

const (
	anthropicAPIVersion     = "2023-06-01"
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1/messages"

	// Anthropic requires max_tokens; this matches the answer length the
	// persona prompt asks for with comfortable headroom.
	defaultAnthropicMaxTokens = 1024
)

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float32           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID      string             `json:"id"`
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// =============================================================================
// Client Implementation
// =============================================================================

// AnthropicClient implements ChatClient for Claude models using raw net/http.
//
// Thread Safety: AnthropicClient is safe for concurrent use.
type AnthropicClient struct {
	httpClient *http.Client
	apiKey     *memguard.Enclave
	model      string
	baseURL    string
}

// NewAnthropicClientWithConfig creates an AnthropicClient with explicit
// configuration. Useful for testing with mock servers.
func NewAnthropicClientWithConfig(apiKey, model, baseURL string) *AnthropicClient {
	return &AnthropicClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		apiKey:     memguard.NewEnclave([]byte(apiKey)),
		model:      model,
		baseURL:    baseURL,
	}
}

// NewAnthropicClient creates a new AnthropicClient from environment variables.
//
// Description:
//
//	Reads ANTHROPIC_API_KEY and CLAUDE_MODEL from the environment, falling
//	back to the container secret mount when the env var is unset.
//
// Outputs:
//   - *AnthropicClient: The configured client.
//   - error: Non-nil if no API key can be found.
func NewAnthropicClient() (*AnthropicClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	model := os.Getenv("CLAUDE_MODEL")

	if apiKey == "" {
		secretPath := "/run/secrets/anthropic_api_key"
		if content, err := os.ReadFile(secretPath); err == nil {
			apiKey = strings.TrimSpace(string(content))
			slog.Info("Read Anthropic API Key from container secrets")
		}
	}

	if apiKey == "" {
		slog.Warn("Anthropic API Key is missing.")
		return nil, fmt.Errorf("anthropic: API key is missing (ANTHROPIC_API_KEY)")
	}

	if model == "" {
		model = "claude-3-5-sonnet-20240620"
		slog.Info("CLAUDE_MODEL not set, defaulting to", "model", model)
	}

	return NewAnthropicClientWithConfig(apiKey, model, defaultAnthropicBaseURL), nil
}

// Chat implements ChatClient using the Anthropic messages API.
//
// Description:
//
//	System messages are lifted out of the message list into the top-level
//	system field, which is where the Anthropic API expects them.
//
// Thread Safety: This method is safe for concurrent use.
func (a *AnthropicClient) Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error) {
	model := a.model
	if params.ModelOverride != "" {
		model = params.ModelOverride
	}

	slog.Debug("Chat via Anthropic", slog.String("model", model), slog.Int("messages", len(messages)))

	var apiMessages []anthropicMessage
	var systemPrompt string
	for _, msg := range messages {
		if strings.ToLower(msg.Role) == "system" {
			systemPrompt = msg.Content
			continue
		}
		apiMessages = append(apiMessages, anthropicMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	reqPayload := anthropicRequest{
		Model:     model,
		Messages:  apiMessages,
		System:    systemPrompt,
		MaxTokens: defaultAnthropicMaxTokens,
	}
	if params.Temperature != nil {
		reqPayload.Temperature = params.Temperature
	}
	if params.MaxTokens != nil {
		reqPayload.MaxTokens = *params.MaxTokens
	}

	reqBody, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("anthropic: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.baseURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("anthropic: creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	key, err := a.apiKey.Open()
	if err != nil {
		return "", fmt.Errorf("anthropic: opening API key enclave: %w", err)
	}
	defer key.Destroy()
	httpReq.Header.Set("x-api-key", key.String())

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("anthropic: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("anthropic: reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic: API returned status %d: %s", resp.StatusCode, SafeLogString(string(bodyBytes)))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return "", fmt.Errorf("anthropic: parsing response JSON: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("anthropic: API error: %s - %s", apiResp.Error.Type, SafeLogString(apiResp.Error.Message))
	}

	var sb strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic: returned no text content")
	}

	return sb.String(), nil
}
