// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package persona

import (
	"container/list"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// =============================================================================
// Session Store
// =============================================================================

// Turn is one (role, text) entry in a session's history.
type Turn struct {
	Role string
	Text string
}

type session struct {
	id    string
	turns []Turn
	elem  *list.Element
}

// SessionStore holds bounded per-conversation history with LRU eviction.
//
// Description:
//
//	Sessions are created on first request without an id and destroyed
//	only by eviction when the live-session cap is exceeded. Turn history
//	is capped per session; appending past the cap evicts the oldest turn
//	(FIFO). Eviction may race a request still holding that session's id;
//	history is best-effort and the request simply continues with a fresh
//	session on its next call.
//
// Thread Safety: SessionStore is safe for concurrent use.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	order    *list.List // front = least recently used
	maxTurns int
	maxSess  int

	evictions uint64
}

// NewSessionStore creates a store with the given caps.
func NewSessionStore(maxTurns, maxSessions int) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
		order:    list.New(),
		maxTurns: maxTurns,
		maxSess:  maxSessions,
	}
}

// GetOrCreate returns the session for id, creating one when id is empty
// or unknown. Touches the session's LRU position.
//
// Outputs:
//   - string: The session id (freshly minted uuid4 hex for new sessions).
//   - []Turn: A copy of the session's history at call time.
func (st *SessionStore) GetOrCreate(id string) (string, []Turn) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if id != "" {
		if s, ok := st.sessions[id]; ok {
			st.order.MoveToBack(s.elem)
			return id, append([]Turn(nil), s.turns...)
		}
	}
	if id == "" {
		id = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	s := &session{id: id}
	s.elem = st.order.PushBack(s)
	st.sessions[id] = s
	st.evictLocked()
	return id, nil
}

// Append atomically records one user turn and one assistant turn.
//
// Description:
//
//	Both turns land under one lock acquisition so concurrent requests
//	for the same session never interleave their pairs. Appending to an
//	evicted or unknown id is a silent no-op (best-effort history).
func (st *SessionStore) Append(id, userText, assistantText string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return
	}
	s.turns = append(s.turns, Turn{Role: "user", Text: userText}, Turn{Role: "assistant", Text: assistantText})
	for len(s.turns) > st.maxTurns {
		s.turns = s.turns[1:]
	}
	st.order.MoveToBack(s.elem)
}

// Prior joins the last n turns as "role: text" for the generation prompt.
func Prior(turns []Turn, n int) string {
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		parts = append(parts, t.Role+": "+t.Text)
	}
	return strings.Join(parts, " ")
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Evictions returns the count of evicted sessions since startup.
func (st *SessionStore) Evictions() uint64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.evictions
}

func (st *SessionStore) evictLocked() {
	for len(st.sessions) > st.maxSess {
		front := st.order.Front()
		if front == nil {
			return
		}
		victim := front.Value.(*session)
		st.order.Remove(front)
		delete(st.sessions, victim.id)
		st.evictions++
		sessionEvictions.Inc()
	}
}
