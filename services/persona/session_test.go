// Copyright (C) 2025 Tullman AI (ops@tullman.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package persona

import (
	"fmt"
	"testing"
)

func TestSessionGetOrCreate(t *testing.T) {
	st := NewSessionStore(16, 10)

	id, turns := st.GetOrCreate("")
	if id == "" {
		t.Fatal("expected a minted session id")
	}
	if len(turns) != 0 {
		t.Fatalf("fresh session has %d turns", len(turns))
	}

	st.Append(id, "hello", "world")
	id2, turns := st.GetOrCreate(id)
	if id2 != id {
		t.Fatalf("existing id not honored: %q vs %q", id2, id)
	}
	if len(turns) != 2 || turns[0].Role != "user" || turns[1].Role != "assistant" {
		t.Fatalf("turns = %v", turns)
	}

	// Unknown id gets a fresh session under that id.
	id3, turns := st.GetOrCreate("nonexistent")
	if id3 != "nonexistent" || len(turns) != 0 {
		t.Fatalf("unknown id handling: %q %v", id3, turns)
	}
}

func TestSessionTurnCapFIFO(t *testing.T) {
	st := NewSessionStore(4, 10)
	id, _ := st.GetOrCreate("")
	for i := 0; i < 5; i++ {
		st.Append(id, fmt.Sprintf("u%d", i), fmt.Sprintf("a%d", i))
	}
	_, turns := st.GetOrCreate(id)
	if len(turns) != 4 {
		t.Fatalf("turn cap violated: %d turns", len(turns))
	}
	// Oldest pairs evicted; the newest two survive in order.
	if turns[0].Text != "u3" || turns[3].Text != "a4" {
		t.Fatalf("FIFO order wrong: %v", turns)
	}
}

func TestSessionLRUEviction(t *testing.T) {
	st := NewSessionStore(16, 3)
	first, _ := st.GetOrCreate("")
	second, _ := st.GetOrCreate("")
	third, _ := st.GetOrCreate("")

	// Touch the first so the second becomes LRU.
	st.GetOrCreate(first)
	st.GetOrCreate("")

	if st.Len() != 3 {
		t.Fatalf("live sessions = %d, want 3", st.Len())
	}
	if st.Evictions() != 1 {
		t.Fatalf("evictions = %d, want 1", st.Evictions())
	}

	// The evicted session's id is gone: appending is a silent no-op.
	st.Append(second, "late", "entry")
	if _, turns := st.GetOrCreate(first); turns != nil && len(turns) != 0 {
		t.Fatalf("survivor history corrupted: %v", turns)
	}
	_ = third
}

func TestSessionAppendUnknownIDIsNoop(t *testing.T) {
	st := NewSessionStore(16, 10)
	st.Append("ghost", "u", "a") // must not panic or create a session
	if st.Len() != 0 {
		t.Fatalf("no-op append created a session")
	}
}

func TestSessionHistoryCopyIsolated(t *testing.T) {
	st := NewSessionStore(16, 10)
	id, _ := st.GetOrCreate("")
	st.Append(id, "u0", "a0")
	_, turns := st.GetOrCreate(id)
	turns[0].Text = "mutated"
	_, again := st.GetOrCreate(id)
	if again[0].Text != "u0" {
		t.Fatal("GetOrCreate must return a copy of the history")
	}
}

func TestPrior(t *testing.T) {
	turns := []Turn{
		{Role: "user", Text: "one"},
		{Role: "assistant", Text: "two"},
		{Role: "user", Text: "three"},
	}
	if got := Prior(turns, 2); got != "assistant: two user: three" {
		t.Fatalf("Prior = %q", got)
	}
	if got := Prior(turns, 10); got != "user: one assistant: two user: three" {
		t.Fatalf("Prior full = %q", got)
	}
	if got := Prior(nil, 8); got != "" {
		t.Fatalf("Prior(nil) = %q", got)
	}
}
