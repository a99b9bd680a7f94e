// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"regexp"
)

// redactionPattern pairs a compiled regex with a replacement label.
type redactionPattern struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// redactionPatterns is the ordered list of secret patterns to redact.
//
// IMPORTANT: Order matters. The Anthropic pattern must appear BEFORE the
// OpenAI pattern because both start with "sk-"; otherwise an Anthropic key
// is only partially redacted.
var redactionPatterns = []redactionPattern{
	{
		Pattern:     regexp.MustCompile(`sk-ant-api03-[A-Za-z0-9_-]{20,}`),
		Replacement: "[REDACTED:anthropic_key]",
	},
	{
		Pattern:     regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
		Replacement: "[REDACTED:openai_key]",
	},
	{
		Pattern:     regexp.MustCompile(`Bearer\s+[A-Za-z0-9._-]{10,}`),
		Replacement: "[REDACTED:bearer_token]",
	},
	{
		Pattern:     regexp.MustCompile(`key=[A-Za-z0-9._-]{10,}`),
		Replacement: "key=[REDACTED]",
	},
}

// SafeLogString redacts known secret patterns from a string before logging.
//
// Description:
//
//	Provider error bodies occasionally echo request headers back. Every
//	error string derived from a provider response passes through here so
//	API keys never reach the logs.
//
// Inputs:
//   - s: The string to redact. Empty string is valid and returns empty.
//
// Outputs:
//   - string: The input with all matched secret patterns replaced.
//
// Thread Safety: This function is safe for concurrent use.
func SafeLogString(s string) string {
	if s == "" {
		return s
	}
	for _, p := range redactionPatterns {
		s = p.Pattern.ReplaceAllString(s, p.Replacement)
	}
	return s
}
