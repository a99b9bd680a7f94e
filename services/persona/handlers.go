// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package persona

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ServiceTag identifies this build in /meta and /retrieve responses.
const ServiceTag = "tullman-cascade v1.0"

// ErrorResponse is the JSON error shape.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
	Sources   []Link `json:"sources"`
}

// Handlers exposes the cascade over HTTP.
type Handlers struct {
	svc *Service
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleChat resolves a prompt within a session.
//
// Description:
//
//	POST /chat {prompt, session_id?} -> {answer, session_id, sources}.
//	Creates a session when none is supplied. History is appended exactly
//	once per request (one user turn, one assistant turn) regardless of
//	which cascade branch answered. Any panic during orchestration is
//	converted to a generic server-error answer rather than a 500 body
//	the frontend cannot render.
func (h *Handlers) HandleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Code: "bad_request"})
		return
	}

	query := strings.TrimSpace(req.Prompt)
	sid, turns := h.svc.Sessions().GetOrCreate(req.SessionID)
	if query == "" {
		c.JSON(http.StatusOK, ChatResponse{Answer: "Ask a question first.", SessionID: sid, Sources: []Link{}})
		return
	}

	answer := ""
	sources := []Link{}
	func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Chat orchestration panic",
					slog.Any("panic", r),
					slog.String("query", query),
				)
				answer = "Sorry - server error. Please try again."
				sources = []Link{}
			}
		}()
		res := h.svc.Resolve(c.Request.Context(), query, turns)
		answer = res.Answer
		if res.Sources != nil {
			sources = res.Sources
		}
	}()

	h.svc.Sessions().Append(sid, query, answer)
	c.JSON(http.StatusOK, ChatResponse{Answer: answer, SessionID: sid, Sources: sources})
}

// HandleRetrieve is the sessionless resolution endpoint.
//
// Description:
//
//	POST /retrieve {prompt|q|text} -> {answer, response, ruled, service}.
//	The answer is duplicated under both "answer" and "response" for
//	older frontends.
func (h *Handlers) HandleRetrieve(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		body = map[string]any{}
	}
	query := ""
	for _, k := range []string{"prompt", "q", "text"} {
		if v, ok := body[k].(string); ok && strings.TrimSpace(v) != "" {
			query = strings.TrimSpace(v)
			break
		}
	}
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty prompt", Code: "bad_request"})
		return
	}

	res := h.svc.Resolve(c.Request.Context(), query, nil)
	c.JSON(http.StatusOK, gin.H{
		"answer":   res.Answer,
		"response": res.Answer,
		"ruled":    res.Ruled,
		"service":  ServiceTag,
	})
}

// HandleHealth reports corpus size broken down by source type.
func (h *Handlers) HandleHealth(c *gin.Context) {
	counts := h.svc.Corpus().Stats()
	total := 0
	for _, n := range counts {
		total += n
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "total": total, "counts": counts})
}

// HandleMeta reports the service tag and active guardrail patterns.
func (h *Handlers) HandleMeta(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": ServiceTag,
		"rules":   GuardrailPatterns,
		"ts":      time.Now().Format("2006-01-02T15:04:05"),
	})
}

// =============================================================================
// Admin: curated pairs
// =============================================================================

// HandleExamplesTextGet renders the example pairs as a Q:/A: document.
func (h *Handlers) HandleExamplesTextGet(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "text": RenderPairsText(h.svc.Examples().Pairs())})
}

// HandleExamplesTextPost replaces the example pairs from an edited Q:/A:
// document, keeping one .bak of the previous file.
func (h *Handlers) HandleExamplesTextPost(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Code: "bad_request"})
		return
	}
	pairs := ParsePairsText(body.Text)
	if err := h.svc.Examples().ReplaceAll(pairs); err != nil {
		slog.Error("Example replace failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "write failed", Code: "io_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(pairs)})
}

// =============================================================================
// Admin: voiceprint
// =============================================================================

// HandleVoiceprintGet returns the active voiceprint text and its source path.
func (h *Handlers) HandleVoiceprintGet(c *gin.Context) {
	text, path := h.svc.Voice().Load()
	c.JSON(http.StatusOK, gin.H{"ok": true, "text": text, "path": path})
}

// HandleVoiceprintPut writes voiceprint text to staging with replace or
// append semantics.
func (h *Handlers) HandleVoiceprintPut(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
		Mode string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Code: "bad_request"})
		return
	}
	n, err := h.svc.Voice().Set(body.Text, strings.EqualFold(body.Mode, "append"))
	if err != nil {
		slog.Error("Voiceprint write failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "write failed", Code: "io_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "bytes": n})
}

// =============================================================================
// Admin: corpus
// =============================================================================

// HandleIndexText appends an operator note to the corpus, splitting long
// notes into multiple chunks.
func (h *Handlers) HandleIndexText(c *gin.Context) {
	var body struct {
		Title string   `json:"title"`
		Text  string   `json:"text"`
		Tags  []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Code: "bad_request"})
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty text", Code: "bad_request"})
		return
	}
	n, err := h.svc.Corpus().AppendText(body.Title, body.Text, body.Tags)
	if err != nil {
		slog.Error("Index text failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "write failed", Code: "io_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "added": n})
}

// HandleReload forces a fresh load of the corpus and pair stores.
func (h *Handlers) HandleReload(c *gin.Context) {
	h.svc.Reload()
	c.JSON(http.StatusOK, gin.H{"ok": true, "corpus": h.svc.Corpus().Len()})
}

// =============================================================================
// Admin: rules
// =============================================================================

// HandleRulesGet returns the current rule document.
func (h *Handlers) HandleRulesGet(c *gin.Context) {
	c.JSON(http.StatusOK, LoadRules(h.svc.Config().RulesFile))
}

// HandleRulesPut atomically replaces the rule document.
func (h *Handlers) HandleRulesPut(c *gin.Context) {
	var rs RuleSet
	if err := c.ShouldBindJSON(&rs); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Code: "bad_request"})
		return
	}
	if err := SaveRules(h.svc.Config().RulesFile, rs); err != nil {
		slog.Error("Rule replace failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "write failed", Code: "io_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// =============================================================================
// Admin: tuning
// =============================================================================

// HandleReviewCount summarizes the corrections log by review status.
func (h *Handlers) HandleReviewCount(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "counts": h.svc.Tuner().ReviewCounts()})
}

// HandleTuneFeedback logs an operator correction and merges style rules.
func (h *Handlers) HandleTuneFeedback(c *gin.Context) {
	var fb Correction
	if err := c.ShouldBindJSON(&fb); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Code: "bad_request"})
		return
	}
	final, err := h.svc.Tuner().RecordFeedback(fb)
	if err != nil {
		slog.Error("Feedback record failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "write failed", Code: "io_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "final": final})
}

// HandleTuneRulesGet returns the style-rule list.
func (h *Handlers) HandleTuneRulesGet(c *gin.Context) {
	rules := h.svc.Tuner().StyleRules()
	if rules == nil {
		rules = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// HandleTuneRulesPut replaces the style-rule list.
func (h *Handlers) HandleTuneRulesPut(c *gin.Context) {
	var body struct {
		Rules []string `json:"rules"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body", Code: "bad_request"})
		return
	}
	if err := h.svc.Tuner().SetStyleRules(body.Rules); err != nil {
		slog.Error("Style rule replace failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "write failed", Code: "io_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "count": len(body.Rules)})
}
