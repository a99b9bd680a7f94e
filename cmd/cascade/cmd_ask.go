// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	askAddr    string
	askSession string
)

var (
	answerStyle  = lipgloss.NewStyle().Bold(true)
	sourceStyle  = lipgloss.NewStyle().Faint(true)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	sessionStyle = lipgloss.NewStyle().Faint(true).Italic(true)
)

var askCmd = &cobra.Command{
	Use:   "ask [question...]",
	Short: "Ask the running server one question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askAddr, "addr", "http://localhost:8080", "Base URL of the running server")
	askCmd.Flags().StringVar(&askSession, "session", "", "Session id to continue a conversation")
	rootCmd.AddCommand(askCmd)
}

type askRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"session_id,omitempty"`
}

type askResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
	Sources   []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"sources"`
}

func runAsk(_ *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	body, err := json.Marshal(askRequest{Prompt: question, SessionID: askSession})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Post(strings.TrimRight(askAddr, "/")+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("contacting server at %s: %w", askAddr, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}

	var out askResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	fmt.Println(headerStyle.Render("Howard says:"))
	fmt.Println(answerStyle.Render(out.Answer))
	if len(out.Sources) > 0 {
		fmt.Println()
		for _, s := range out.Sources {
			fmt.Println(sourceStyle.Render(fmt.Sprintf("  %s - %s", s.Title, s.URL)))
		}
	}
	fmt.Println()
	fmt.Println(sessionStyle.Render("session: " + out.SessionID))
	return nil
}
