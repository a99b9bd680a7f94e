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
	"strings"
	"testing"
)

// scriptedClient returns canned results keyed by ModelOverride.
type scriptedClient struct {
	answers map[string]string
	errs    map[string]error
	calls   []string
}

func (s *scriptedClient) Chat(_ context.Context, _ []Message, params GenerationParams) (string, error) {
	s.calls = append(s.calls, params.ModelOverride)
	if err, ok := s.errs[params.ModelOverride]; ok {
		return "", err
	}
	return s.answers[params.ModelOverride], nil
}

func newTestAdapter(t *testing.T, client ChatClient, models ...string) *Adapter {
	t.Helper()
	a, err := NewAdapter(map[string]ChatClient{ProviderOpenAI: client}, ProviderOpenAI, AdapterConfig{
		Models:      models,
		Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("NewAdapter: %v", err)
	}
	return a
}

func TestDraft_FirstModelWins(t *testing.T) {
	client := &scriptedClient{answers: map[string]string{"gpt-4o": "answer one"}}
	a := newTestAdapter(t, client, "gpt-4o", "gpt-4o-mini")

	got, err := a.Draft(context.Background(), "vp", "", "q", "", nil)
	if err != nil {
		t.Fatalf("Draft returned error: %v", err)
	}
	if got != "answer one" {
		t.Errorf("Draft = %q, want %q", got, "answer one")
	}
	if len(client.calls) != 1 {
		t.Errorf("calls = %v, want a single attempt", client.calls)
	}
}

func TestDraft_FallsBackOnFailure(t *testing.T) {
	client := &scriptedClient{
		errs:    map[string]error{"gpt-5-thinking": fmt.Errorf("model not found")},
		answers: map[string]string{"gpt-4o": "fallback answer"},
	}
	a := newTestAdapter(t, client, "gpt-5-thinking", "gpt-4o")

	got, err := a.Draft(context.Background(), "vp", "", "q", "", nil)
	if err != nil {
		t.Fatalf("Draft returned error: %v", err)
	}
	if got != "fallback answer" {
		t.Errorf("Draft = %q, want fallback answer", got)
	}
	if len(client.calls) != 2 {
		t.Errorf("calls = %v, want two attempts", client.calls)
	}
}

func TestDraft_EmptyTextAdvances(t *testing.T) {
	client := &scriptedClient{answers: map[string]string{
		"gpt-5-thinking": "   ",
		"gpt-4o":         "real answer",
	}}
	a := newTestAdapter(t, client, "gpt-5-thinking", "gpt-4o")

	got, err := a.Draft(context.Background(), "vp", "", "q", "", nil)
	if err != nil {
		t.Fatalf("Draft returned error: %v", err)
	}
	if got != "real answer" {
		t.Errorf("Draft = %q, blank text should not be accepted", got)
	}
}

func TestDraft_AllModelsFail(t *testing.T) {
	client := &scriptedClient{errs: map[string]error{
		"gpt-4o":      fmt.Errorf("timeout"),
		"gpt-4o-mini": fmt.Errorf("auth"),
	}}
	a := newTestAdapter(t, client, "gpt-4o", "gpt-4o-mini")

	_, err := a.Draft(context.Background(), "vp", "", "q", "", nil)
	if err == nil {
		t.Fatal("Draft should fail when every model fails")
	}
	if !strings.Contains(err.Error(), "all models failed") {
		t.Errorf("error = %v, want all-models-failed", err)
	}
}

func TestDraft_SkipsModelsWithoutClient(t *testing.T) {
	// Only an OpenAI client registered; the claude model has no client and
	// must be skipped without counting as a failure.
	client := &scriptedClient{answers: map[string]string{"gpt-4o-mini": "ok"}}
	a := newTestAdapter(t, client, "claude-3-5-sonnet-20240620", "gpt-4o-mini")

	got, err := a.Draft(context.Background(), "vp", "", "q", "", nil)
	if err != nil {
		t.Fatalf("Draft returned error: %v", err)
	}
	if got != "ok" {
		t.Errorf("Draft = %q", got)
	}
	if len(client.calls) != 1 || client.calls[0] != "gpt-4o-mini" {
		t.Errorf("calls = %v, claude model should be skipped", client.calls)
	}
}

func TestBuildUserMessage_Layout(t *testing.T) {
	got := BuildUserMessage("user: hi assistant: hello", "what is 1871?", "- excerpt", []LinkRef{
		{Title: "Bio", URL: "https://www.howardtullman.com/"},
	})
	for _, section := range []string{"PRIOR_CONTEXT:\n", "PROMPT:\nwhat is 1871?", "WEAVE:\n- excerpt", "LINKS:\n- Bio: https://www.howardtullman.com/"} {
		if !strings.Contains(got, section) {
			t.Errorf("message missing %q:\n%s", section, got)
		}
	}
}

func TestBuildUserMessage_OmitsEmptySections(t *testing.T) {
	got := BuildUserMessage("", "q", "", nil)
	if !strings.Contains(got, "PRIOR_CONTEXT:\n(none)") {
		t.Errorf("empty prior should render (none):\n%s", got)
	}
	if strings.Contains(got, "WEAVE:") || strings.Contains(got, "LINKS:") {
		t.Errorf("empty weave/links sections should be omitted:\n%s", got)
	}
}

func TestInferProvider(t *testing.T) {
	cases := map[string]string{
		"gpt-4o":                     ProviderOpenAI,
		"gpt-5-thinking":             ProviderOpenAI,
		"o1-preview":                 ProviderOpenAI,
		"claude-3-5-sonnet-20240620": ProviderAnthropic,
		"mystery-model":              "",
	}
	for model, want := range cases {
		if got := InferProvider(model); got != want {
			t.Errorf("InferProvider(%q) = %q, want %q", model, got, want)
		}
	}
}
