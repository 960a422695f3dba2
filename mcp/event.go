// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/mcp-core/jsonrpc"
)

// EventKind tags the four event variants a session's log can hold (spec §3).
type EventKind string

const (
	EventClientMessage EventKind = "client-message"
	EventServerMessage EventKind = "server-message"
	EventChannelStarted EventKind = "channel-started"
	EventChannelEnded   EventKind = "channel-ended"
)

// Event is a single entry in a session's append-only log. Every event has a
// unique, monotonically assigned ID sortable within its session.
type Event struct {
	ID         string          `json:"id"`
	Kind       EventKind       `json:"kind"`
	OccurredAt time.Time       `json:"occurredAt"`
	RecordedAt time.Time       `json:"recordedAt,omitempty"`
	ChannelID  string          `json:"channelId,omitempty"`
	Envelope   json.RawMessage `json:"envelope,omitempty"`

	// ResponseToRequestID correlates a server-message response (or any event
	// produced while servicing a request) back to the request it belongs to,
	// so resumption can replay exactly the events tied to one in-flight call.
	ResponseToRequestID string `json:"responseToRequestId,omitempty"`
}

// eventIDCounter produces sortable, unique, monotonically increasing event
// ids scoped to a single process. It is intentionally a plain counter
// (rather than a random id) so that "locate lastEventId" and "replay
// subsequent events" (spec §4.1) reduce to an integer comparison.
type eventIDCounter struct{ n int64 }

func (c *eventIDCounter) next() string {
	return fmt.Sprintf("%020d", atomic.AddInt64(&c.n, 1))
}

// EventLog is the append-only, deduplicated, ordered history of events that
// belong to one session (spec §3, §4.1). It is not safe for concurrent use
// on its own; callers serialize access with the owning session's mutex.
type EventLog struct {
	counter eventIDCounter
	events  []Event
	seen    map[string]int // event id -> index, for O(1) de-duplication
}

// NewEventLog creates an empty event log.
func NewEventLog() *EventLog {
	return &EventLog{seen: make(map[string]int)}
}

// Append assigns a fresh id to ev (if it doesn't already have one) and adds
// it to the log. It returns the finalized event.
func (l *EventLog) Append(ev Event) Event {
	if ev.ID == "" {
		ev.ID = l.counter.next()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	if idx, ok := l.seen[ev.ID]; ok {
		l.events[idx] = ev
		return ev
	}
	l.seen[ev.ID] = len(l.events)
	l.events = append(l.events, ev)
	return ev
}

// Merge appends events from an external source (the store's push/pull
// channel), deduplicating by id (spec §4.1: "MUST deduplicate by event.id").
func (l *EventLog) Merge(evs []Event) {
	for _, ev := range evs {
		if _, ok := l.seen[ev.ID]; ok {
			continue
		}
		l.seen[ev.ID] = len(l.events)
		l.events = append(l.events, ev)
	}
}

// All returns a snapshot slice of every event in the log, in append order.
func (l *EventLog) All() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// FirstActivity and LastActivity return the min/max OccurredAt across all
// events (spec §8 property 1), or the zero time if the log is empty.
func (l *EventLog) FirstActivity() time.Time {
	if len(l.events) == 0 {
		return time.Time{}
	}
	t := l.events[0].OccurredAt
	for _, ev := range l.events[1:] {
		if ev.OccurredAt.Before(t) {
			t = ev.OccurredAt
		}
	}
	return t
}

func (l *EventLog) LastActivity() time.Time {
	if len(l.events) == 0 {
		return time.Time{}
	}
	t := l.events[0].OccurredAt
	for _, ev := range l.events[1:] {
		if ev.OccurredAt.After(t) {
			t = ev.OccurredAt
		}
	}
	return t
}

// indexOf returns the index of the event with the given id, or -1.
func (l *EventLog) indexOf(id string) int {
	if idx, ok := l.seen[id]; ok {
		return idx
	}
	return -1
}

// ResumeFrom implements the resumption algorithm of spec §4.1: locate
// lastEventID, find the request it answers (responseToRequestId R), and
// return every subsequent event also tagged with R. If lastEventID is empty
// or not found, resumption has no point and an empty slice is returned (no
// error: "treat as no resume point").
func (l *EventLog) ResumeFrom(lastEventID string) []Event {
	if lastEventID == "" {
		return nil
	}
	idx := l.indexOf(lastEventID)
	if idx < 0 {
		return nil
	}
	r := l.events[idx].ResponseToRequestID
	if r == "" {
		return nil
	}
	var out []Event
	for _, ev := range l.events[idx+1:] {
		if ev.ResponseToRequestID == r {
			out = append(out, ev)
		}
	}
	return out
}

// decodeEnvelope decodes an event's envelope as a jsonrpc.Message, for
// callers that need to re-deliver it on a live channel.
func decodeEnvelope(ev Event) (jsonrpc.Message, error) {
	if len(ev.Envelope) == 0 {
		return nil, nil
	}
	return jsonrpc.DecodeMessage(ev.Envelope)
}
