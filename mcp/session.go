// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"encoding/json"
	"io/fs"
	"log"
	"sync"
	"time"

	"github.com/modelcontextprotocol/mcp-core/jsonrpc"
)

// SessionState is the durable projection of a session: everything needed to
// rehydrate a Session after a process restart. It is what a SessionStore
// persists (spec §3's "Session" data model).
type SessionState struct {
	InitializeParams   *InitializeParams   `json:"initializeParams"`
	ClientInfo         *Implementation     `json:"clientInfo,omitempty"`
	ServerInfo         *Implementation     `json:"serverInfo,omitempty"`
	ServerCapabilities *ServerCapabilities `json:"serverCapabilities,omitempty"`
	ProtocolVersion    string              `json:"protocolVersion"`
	UserID             *string             `json:"userId,omitempty"`
	LogLevel           LoggingLevel        `json:"logLevel,omitempty"`

	// Subscriptions is this session's own subscription URI set. It is
	// retained across pause/resume so that a later resume restores
	// subscriptions without the caller re-issuing resources/subscribe
	// (spec §4.3 "pause" semantics).
	Subscriptions []string `json:"subscriptions,omitempty"`

	// Events is the session's full append-only event log.
	Events []Event `json:"events,omitempty"`
}

// SessionStore is the durable backing store for session state (spec §2's
// "Session store" component). It loads, stores and deletes a whole
// SessionState; it has no per-event append and no subscribe operation, and
// eviction is a Delete issued by the Server.
type SessionStore interface {
	// Load retrieves the session state for the given session ID.
	// If there is none, it returns nil, fs.ErrNotExist.
	Load(ctx context.Context, sessionID string) (*SessionState, error)
	// Store saves the session state for the given session ID.
	Store(ctx context.Context, sessionID string, state *SessionState) error
	// Delete removes the session state for the given session ID.
	Delete(ctx context.Context, sessionID string) error
}

// MemorySessionStore is the in-memory reference SessionStore adapter (spec
// §1 Non-goals: "storage backends beyond an in-memory reference adapter").
// It is safe for concurrent use.
type MemorySessionStore struct {
	mu    sync.Mutex
	store map[string]*SessionState
}

// NewMemorySessionStore creates a new MemorySessionStore.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{store: make(map[string]*SessionState)}
}

func (s *MemorySessionStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.store[sessionID]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return state, nil
}

func (s *MemorySessionStore) Store(ctx context.Context, sessionID string, state *SessionState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[sessionID] = state
	return nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, sessionID)
	return nil
}

// Channel is a transport attachment capable of delivering a message to the
// other party right now. A Session has at most one attached Channel at a
// time; when none is attached, replies are durable-only and wait for resume
// (spec §4.1: "If no channel is attached, the message is durably persisted
// and delivered on the next resume").
type Channel interface {
	// Write delivers msg on this channel. An error indicates the channel is
	// no longer usable; per spec §5 "Backpressure" this is swallowed by the
	// caller, not propagated as a request failure.
	Write(ctx context.Context, msg jsonrpc.Message) error
	// ID identifies this channel attachment, used as Event.ChannelID.
	ID() string
}

// Session is the in-memory projection over a session's durable state: the
// event log, activity tracking, the pending-request registry, and the
// currently attached channel (spec §2 "Session object", §3 "Session").
type Session struct {
	id string

	mu                 sync.Mutex
	userID             *string
	protocolVersion    string
	clientInfo         *Implementation
	serverInfo         *Implementation
	clientCapabilities *ClientCapabilities
	serverCapabilities *ServerCapabilities
	logLevel           LoggingLevel
	subscriptions      map[string]bool
	log                *EventLog

	// streamChannel is the persistent delivery channel for this session: a
	// live GET/SSE stream (or a WebSocket connection), attached for the
	// lifetime of the connection and the target of server-initiated pushes
	// (spec §4.1 "channel").
	streamChannel Channel

	// requestChannel is a short-lived collector attached only for the
	// duration of a single streamable-HTTP POST dispatch cycle. It takes
	// priority over streamChannel so a POST's own replies are captured by
	// that POST's response rather than stolen from (and then severed from)
	// whatever persistent stream happens to be attached at the same time.
	requestChannel Channel

	// logger receives best-effort diagnostics that must never block or fail
	// a request: a dropped channel write, a failed onSessionInitialized
	// hook. Always non-nil (newSession defaults it to log.Default()).
	logger *log.Logger

	pending *pendingRegistry

	// cancel is called by cancelAllPending when the session is terminated
	// (Open Question (a)). The context it cancels is not passed to handlers;
	// in-flight handlers are canceled through the pending registry.
	cancel context.CancelFunc
}

// newSession constructs a fresh in-memory Session, not yet persisted. A nil
// logger defaults to log.Default() so callers never need a nil check.
func newSession(id string, cancel context.CancelFunc, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		id:            id,
		log:           NewEventLog(),
		pending:       newPendingRegistry(),
		subscriptions: make(map[string]bool),
		cancel:        cancel,
		logger:        logger,
	}
}

// ID returns the session's immutable id.
func (s *Session) ID() string { return s.id }

// UserID returns the owning user id, or nil for an anonymous session.
func (s *Session) UserID() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// FirstActivity and LastActivity are derived from the event log (spec §3
// "Derived, not stored").
func (s *Session) FirstActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.FirstActivity()
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.LastActivity()
}

// attachChannel installs ch as the persistent live delivery channel (a GET
// hanging-stream reconnect or a WebSocket connection) and appends a
// channel-started event, unless suppressStart is set (spec §4.3: resuming
// from the active map does not emit channel-started).
func (s *Session) attachChannel(ch Channel, suppressStart bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamChannel = ch
	if !suppressStart {
		s.log.Append(Event{Kind: EventChannelStarted, ChannelID: ch.ID()})
	}
}

// detachChannel removes the persistent live channel and appends a
// channel-ended event.
func (s *Session) detachChannel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var channelID string
	if s.streamChannel != nil {
		channelID = s.streamChannel.ID()
	}
	s.streamChannel = nil
	s.log.Append(Event{Kind: EventChannelEnded, ChannelID: channelID})
}

// attachRequestChannel installs ch as the request-scoped collector for the
// duration of one streamable-HTTP POST dispatch cycle (or the initial
// "initialize" exchange), without disturbing any persistent streamChannel
// that may also be attached and without appending a channel-started event:
// this attachment is an implementation detail, not the kind of
// connect/disconnect spec §4.1's channel-started/channel-ended events are
// meant to record.
func (s *Session) attachRequestChannel(ch Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestChannel = ch
}

// detachChannelQuiet removes the request-scoped collector (if any) without
// appending a channel-ended event and without touching streamChannel, so a
// POST that finishes while a GET/SSE stream is open leaves that stream's
// delivery channel intact.
func (s *Session) detachChannelQuiet() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestChannel = nil
}

// RecordClientMessage appends an inbound client-message event and returns
// it. responseToRequestID is set when the inbound message is itself a reply
// to a server-to-client request.
func (s *Session) RecordClientMessage(raw []byte, responseToRequestID string) Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Append(Event{
		Kind:                EventClientMessage,
		Envelope:            append([]byte(nil), raw...),
		ResponseToRequestID: responseToRequestID,
	})
}

// Reply appends a server-message event for msg and, if a channel is
// currently attached, writes it there too (spec §4.1 "session.reply").
// requestChannel (a POST's own response collector) takes priority over
// streamChannel (a persistent GET/SSE or WebSocket connection), so a reply
// produced while dispatching a POST is captured by that POST's own response
// rather than pushed out over a concurrently open stream. Write failures are
// swallowed: the event remains durable and is redelivered on resume (spec §5
// "Backpressure").
func (s *Session) Reply(ctx context.Context, msg jsonrpc.Message, responseToRequestID string) error {
	raw, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	ev := s.log.Append(Event{
		Kind:                EventServerMessage,
		Envelope:            raw,
		ResponseToRequestID: responseToRequestID,
	})
	ch := s.requestChannel
	if ch == nil {
		ch = s.streamChannel
	}
	logger := s.logger
	s.mu.Unlock()
	if ch != nil {
		if err := ch.Write(ctx, msg); err != nil {
			logger.Printf("session %s: dropped channel write, will redeliver on resume: %v", s.id, err)
		}
	}
	_ = ev
	return nil
}

// replyDirect writes msg to the currently attached channel (requestChannel
// taking priority over streamChannel, as in Reply) without appending
// anything to the event log. Used for "ping", which spec §4.2 requires to
// be answered immediately without participating in resumption bookkeeping.
// If no channel is attached the reply is simply dropped, matching a ping's
// fire-and-forget nature.
func (s *Session) replyDirect(ctx context.Context, msg jsonrpc.Message) error {
	s.mu.Lock()
	ch := s.requestChannel
	if ch == nil {
		ch = s.streamChannel
	}
	logger := s.logger
	s.mu.Unlock()
	if ch == nil {
		return nil
	}
	if err := ch.Write(ctx, msg); err != nil {
		logger.Printf("session %s: dropped channel write for ping reply: %v", s.id, err)
	}
	return nil
}

// NotifyProgress sends a notifications/progress message tied to the current
// request (mcp/progress.go's ServerRequest.Progress, generalized to route
// through Reply so progress is recorded and replayed on resume).
func (s *Session) NotifyProgress(ctx context.Context, params *ProgressNotificationParams) error {
	b, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return s.Reply(ctx, &jsonrpc.Notification{Method: "notifications/progress", Params: b}, "")
}

// CancelRequest cancels the pending request with the given id (triggered by
// an inbound notifications/cancelled, spec §4.2).
func (s *Session) CancelRequest(id string) bool {
	return s.pending.cancelRequest(id)
}

// cancelAllPending cancels every in-flight request belonging to this
// session and invokes the session-scoped context cancellation (Open
// Question (a)).
func (s *Session) cancelAllPending() {
	s.pending.cancelAll()
	if s.cancel != nil {
		s.cancel()
	}
}

// subscriptionSnapshot returns the session's own subscription URI set, for
// persistence in SessionState.
func (s *Session) subscriptionSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.subscriptions))
	for uri := range s.subscriptions {
		out = append(out, uri)
	}
	return out
}

func (s *Session) addSubscription(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[uri] = true
}

func (s *Session) removeSubscription(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, uri)
}

// toState snapshots the session into its durable SessionState.
func (s *Session) toState() *SessionState {
	subs := s.subscriptionSnapshot()
	s.mu.Lock()
	defer s.mu.Unlock()
	return &SessionState{
		InitializeParams: &InitializeParams{
			Capabilities:    s.clientCapabilities,
			ClientInfo:      s.clientInfo,
			ProtocolVersion: s.protocolVersion,
		},
		ClientInfo:         s.clientInfo,
		ServerInfo:         s.serverInfo,
		ServerCapabilities: s.serverCapabilities,
		ProtocolVersion:    s.protocolVersion,
		UserID:             s.userID,
		LogLevel:           s.logLevel,
		Subscriptions:      subs,
		Events:             s.log.All(),
	}
}

// hydrateFrom restores a Session's in-memory fields from a loaded
// SessionState, used by resume (spec §4.3 step 3).
func (s *Session) hydrateFrom(state *SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = state.UserID
	s.protocolVersion = state.ProtocolVersion
	s.clientInfo = state.ClientInfo
	s.serverInfo = state.ServerInfo
	s.serverCapabilities = state.ServerCapabilities
	s.logLevel = state.LogLevel
	s.log.Merge(state.Events)
	for _, uri := range state.Subscriptions {
		s.subscriptions[uri] = true
	}
}

// resumeEvents returns the events to replay for a reconnecting channel that
// supplies lastEventID (spec §4.1 resumption algorithm, steps 1-3).
func (s *Session) resumeEvents(lastEventID string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.ResumeFrom(lastEventID)
}

