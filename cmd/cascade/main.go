// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command cascade runs the Howard Tullman persona answer service.
//
// The server resolves questions through a layered cascade: guardrails,
// operator rules, curated Q/A lookup, corpus-grounded generation, and a
// guaranteed fallback, then serves the result over HTTP.
//
// Usage:
//
//	cascade serve
//	cascade serve --config config.yaml --debug
//	cascade ask "why do I need an AI strategy?"
//
// With generation enabled:
//
//	OPENAI_API_KEY=sk-... OPENAI_MODEL=gpt-4o cascade serve
//	ANTHROPIC_API_KEY=sk-ant-... cascade serve
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "cascade",
	Short:        "Howard Tullman persona answer service",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
