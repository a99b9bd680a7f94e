// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"strings"
	"testing"
)

func TestSafeLogString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "anthropic key",
			input: "error: sk-ant-REDACTED returned 401",
			want:  "error: [REDACTED:anthropic_key] returned 401",
		},
		{
			name:  "openai key",
			input: "bad key sk-abcdefghijklmnopqrstuv in request",
			want:  "bad key [REDACTED:openai_key] in request",
		},
		{
			name:  "bearer token",
			input: "Authorization: Bearer abc123def456ghi789",
			want:  "Authorization: [REDACTED:bearer_token]",
		},
		{
			name:  "no secrets",
			input: "normal log message",
			want:  "normal log message",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeLogString(tt.input); got != tt.want {
				t.Errorf("SafeLogString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSafeLogString_AnthropicBeforeOpenAI(t *testing.T) {
	got := SafeLogString("sk-ant-REDACTED")
	if strings.Contains(got, "openai") {
		t.Errorf("anthropic key matched the openai pattern: %q", got)
	}
	if got != "[REDACTED:anthropic_key]" {
		t.Errorf("got %q", got)
	}
}
