// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"testing"
	"time"
)

func TestEventLogFirstLastActivity(t *testing.T) {
	l := NewEventLog()
	if got := l.FirstActivity(); !got.IsZero() {
		t.Errorf("FirstActivity() on empty log = %v, want zero", got)
	}
	if got := l.LastActivity(); !got.IsZero() {
		t.Errorf("LastActivity() on empty log = %v, want zero", got)
	}

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.Append(Event{ID: "1", OccurredAt: base})
	l.Append(Event{ID: "2", OccurredAt: base.Add(time.Hour)})
	l.Append(Event{ID: "3", OccurredAt: base.Add(30 * time.Minute)})

	if got, want := l.FirstActivity(), base; !got.Equal(want) {
		t.Errorf("FirstActivity() = %v, want %v", got, want)
	}
	if got, want := l.LastActivity(), base.Add(time.Hour); !got.Equal(want) {
		t.Errorf("LastActivity() = %v, want %v", got, want)
	}
}

// TestEventLogFirstActivityAfterMerge confirms FirstActivity scans the whole
// log for the minimum OccurredAt rather than trusting append order: Merge
// can introduce an event (pulled from a durable store) that predates
// whatever was appended locally first.
func TestEventLogFirstActivityAfterMerge(t *testing.T) {
	l := NewEventLog()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.Append(Event{ID: "local-1", OccurredAt: base})

	earlier := base.Add(-time.Hour)
	l.Merge([]Event{{ID: "merged-1", OccurredAt: earlier}})

	if got := l.FirstActivity(); !got.Equal(earlier) {
		t.Errorf("FirstActivity() after merge = %v, want %v", got, earlier)
	}
	if got := l.LastActivity(); !got.Equal(base) {
		t.Errorf("LastActivity() after merge = %v, want %v", got, base)
	}
}
