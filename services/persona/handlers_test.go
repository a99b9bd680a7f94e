// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package persona

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(t *testing.T, gen Generator) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := testService(t, gen)
	router := gin.New()
	RegisterRoutes(router.Group("/"), NewHandlers(svc))
	return router, svc
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestChat_EmptyPromptMintsSession(t *testing.T) {
	router, _ := testRouter(t, nil)
	w := doJSON(t, router, http.MethodPost, "/chat", ChatRequest{Prompt: "   "})
	require.Equal(t, http.StatusOK, w.Code)

	out := decode(t, w)
	assert.Equal(t, "Ask a question first.", out["answer"])
	assert.NotEmpty(t, out["session_id"])
}

func TestChat_SessionHistoryAccumulates(t *testing.T) {
	router, svc := testRouter(t, nil)
	require.NoError(t, svc.Golden().ReplaceAll([]QAPair{
		{Question: "What is grit?", Answer: "Showing up after losing."},
	}))

	w := doJSON(t, router, http.MethodPost, "/chat", ChatRequest{Prompt: "what is grit?"})
	out := decode(t, w)
	assert.Equal(t, "Showing up after losing.", out["answer"])
	sid, _ := out["session_id"].(string)
	require.NotEmpty(t, sid)

	// Second request on the same session: exactly one user/assistant pair
	// was recorded for the first.
	doJSON(t, router, http.MethodPost, "/chat", ChatRequest{Prompt: "what is grit?", SessionID: sid})
	_, turns := svc.Sessions().GetOrCreate(sid)
	require.Len(t, turns, 4)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "what is grit?", turns[0].Text)
	assert.Equal(t, "assistant", turns[1].Role)
}

func TestChat_InvalidJSON(t *testing.T) {
	router, _ := testRouter(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString("{broken"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetrieve_AcceptsAliasKeys(t *testing.T) {
	router, svc := testRouter(t, nil)
	require.NoError(t, svc.Golden().ReplaceAll([]QAPair{
		{Question: "What is grit?", Answer: "Showing up after losing."},
	}))

	for _, key := range []string{"prompt", "q", "text"} {
		w := doJSON(t, router, http.MethodPost, "/retrieve", map[string]string{key: "what is grit?"})
		require.Equal(t, http.StatusOK, w.Code, "key %s", key)
		out := decode(t, w)
		assert.Equal(t, "Showing up after losing.", out["answer"])
		assert.Equal(t, out["answer"], out["response"])
		assert.Equal(t, ServiceTag, out["service"])
		assert.Equal(t, false, out["ruled"])
	}
}

func TestRetrieve_EmptyPromptRejected(t *testing.T) {
	router, _ := testRouter(t, nil)
	w := doJSON(t, router, http.MethodPost, "/retrieve", map[string]string{"prompt": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRetrieve_RuledFlagOnGuardrail(t *testing.T) {
	router, _ := testRouter(t, nil)
	w := doJSON(t, router, http.MethodPost, "/retrieve", map[string]string{"q": "what is the meaning of life"})
	out := decode(t, w)
	assert.Equal(t, GuardrailResponse, out["answer"])
	assert.Equal(t, true, out["ruled"])
}

func TestHealthAndMeta(t *testing.T) {
	router, _ := testRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, float64(0), out["total"])

	w = doJSON(t, router, http.MethodGet, "/meta", nil)
	require.Equal(t, http.StatusOK, w.Code)
	out = decode(t, w)
	assert.Equal(t, ServiceTag, out["service"])
	assert.NotEmpty(t, out["rules"])
	assert.NotEmpty(t, out["ts"])
}

func TestAdminExamplesTextRoundTrip(t *testing.T) {
	router, svc := testRouter(t, nil)
	require.NoError(t, svc.Examples().ReplaceAll([]QAPair{
		{Question: "Old question?", Answer: "Old answer."},
	}))

	w := doJSON(t, router, http.MethodGet, "/admin/api/examples_text", nil)
	out := decode(t, w)
	assert.Contains(t, out["text"], "Q: Old question?")

	w = doJSON(t, router, http.MethodPost, "/admin/api/examples_text", map[string]string{
		"text": "Q: New question?\nA: New answer.",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])

	pairs := svc.Examples().Pairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, "New question?", pairs[0].Question)
	assert.Equal(t, OriginEdit, pairs[0].Origin)
}

func TestAdminVoiceprint(t *testing.T) {
	router, _ := testRouter(t, nil)

	w := doJSON(t, router, http.MethodGet, "/admin/api/voiceprint", nil)
	assert.Equal(t, DefaultVoiceprint, decode(t, w)["text"])

	w = doJSON(t, router, http.MethodPut, "/admin/api/voiceprint", map[string]string{
		"text": "be direct", "mode": "replace",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPut, "/admin/api/voiceprint", map[string]string{
		"text": "no greetings", "mode": "append",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/admin/api/voiceprint", nil)
	out := decode(t, w)
	assert.Equal(t, "be direct\n\nno greetings", out["text"])
	assert.NotEmpty(t, out["path"])
}

func TestAdminIndexText(t *testing.T) {
	router, svc := testRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/admin/api/index_text", map[string]any{
		"title": "Board notes",
		"text":  "Always tie the ask to a number the board already tracks.",
		"tags":  []string{"boards"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["added"])
	assert.Equal(t, 1, svc.Corpus().Len())

	w = doJSON(t, router, http.MethodPost, "/admin/api/index_text", map[string]string{"text": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRules(t *testing.T) {
	router, _ := testRouter(t, nil)

	w := doJSON(t, router, http.MethodPut, "/admin/api/rules", RuleSet{
		DenyPatterns: []string{"politics"},
		DenyMessage:  "Pass.",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/admin/api/rules", nil)
	var rs RuleSet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rs))
	assert.Equal(t, []string{"politics"}, rs.DenyPatterns)
	assert.Equal(t, "Pass.", rs.DenyMessage)

	// The rule applies on the very next chat request.
	w = doJSON(t, router, http.MethodPost, "/chat", ChatRequest{Prompt: "your take on politics"})
	assert.Equal(t, "Pass.", decode(t, w)["answer"])
}

func TestAdminReload(t *testing.T) {
	router, _ := testRouter(t, nil)
	w := doJSON(t, router, http.MethodPost, "/admin/reload", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ok"])
}

func TestAdminTuneFlow(t *testing.T) {
	router, _ := testRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/admin/tune/feedback", Correction{
		Prompt:   "what matters",
		Draft:    "draft",
		Decision: "rewrite",
		Edited:   "edited",
		AddRules: []string{"avoid hedging"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "edited", decode(t, w)["final"])

	w = doJSON(t, router, http.MethodGet, "/admin/tune/rules", nil)
	out := decode(t, w)
	assert.Equal(t, []any{"avoid hedging"}, out["rules"])

	w = doJSON(t, router, http.MethodPut, "/admin/tune/rules", map[string][]string{
		"rules": {"short sentences"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/admin/api/review_count", nil)
	counts := decode(t, w)["counts"].(map[string]any)
	assert.Equal(t, float64(1), counts["total"])
	assert.Equal(t, float64(1), counts["pending"])
}
