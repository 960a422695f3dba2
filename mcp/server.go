// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/modelcontextprotocol/mcp-core/jsonrpc"
)

// protocolVersions is the ordered list of protocol versions this server
// understands, newest first (spec §6 "Versioned protocol list").
var protocolVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

func supportsVersion(v string) bool {
	for _, pv := range protocolVersions {
		if pv == v {
			return true
		}
	}
	return false
}

// ServerRequest wraps one inbound request together with the Session and
// ServerSession that received it, so a handler can reply out of band
// (progress, sampling) without threading extra parameters through every
// signature.
type ServerRequest[P Params] struct {
	Session *ServerSession
	Params  P
}

// ServerSession is a server's live view of one client session: the
// session's event log and pending registry (via Session), plus the
// server-side bookkeeping a handler needs (owning Server, logging level).
type ServerSession struct {
	server  *Server
	session *Session
}

// ID returns the underlying session's id.
func (ss *ServerSession) ID() string { return ss.session.ID() }

// NotifyProgress sends a progress notification tied to the session.
func (ss *ServerSession) NotifyProgress(ctx context.Context, params *ProgressNotificationParams) error {
	return ss.session.NotifyProgress(ctx, params)
}

// Log sends a notifications/message logging notification if params' level
// is at or above the session's configured minimum level (spec §4.2
// logging/setLevel).
func (ss *ServerSession) Log(ctx context.Context, params *LoggingMessageParams) error {
	if !ss.server.loggingEnabled(ss.session, params.Level) {
		return nil
	}
	b, err := encodeParams(params)
	if err != nil {
		return err
	}
	return ss.session.Reply(ctx, &jsonrpc.Notification{Method: "notifications/message", Params: b}, "")
}

// Server holds the registries (tools, resources, prompts) and active
// sessions for one MCP server instance (spec §2 "Server engine", §4.3
// "Session lifecycle").
type Server struct {
	Implementation *Implementation
	Capabilities   *ServerCapabilities

	store     SessionStore
	subs      *subscriptionIndex
	tools     *toolRegistry
	resources   *resourceRegistry
	prompts     *promptRegistry
	completions *completionRegistry

	mu       sync.Mutex
	active   map[string]*Session // sessions with a live attached channel
	onInit   func(*ServerSession)

	idleTimeout time.Duration

	// logger receives best-effort diagnostics: a panicking
	// onSessionInitialized hook, a failed broadcast, an eviction error.
	// None of these ever fail the request that triggered them. Always
	// non-nil.
	logger *log.Logger
}

// ServerOptions configures a new Server.
type ServerOptions struct {
	// Store is the durable session backend. Defaults to a fresh
	// MemorySessionStore.
	Store SessionStore
	// IdleTimeout is how long a session may go without activity before
	// cleanupInactiveSessions evicts it. Zero disables eviction.
	IdleTimeout time.Duration
	// OnSessionInitialized, if set, is invoked synchronously once a
	// session completes initialize (spec §4.3 "onSessionInitialized hook").
	OnSessionInitialized func(*ServerSession)
	// Logger receives best-effort diagnostic output. Defaults to
	// log.Default() when nil; never used for anything that affects a
	// request's outcome.
	Logger *log.Logger
}

// NewServer creates a Server that advertises impl as its implementation
// info and caps as its capabilities.
func NewServer(impl *Implementation, caps *ServerCapabilities, opts *ServerOptions) *Server {
	if opts == nil {
		opts = &ServerOptions{}
	}
	store := opts.Store
	if store == nil {
		store = NewMemorySessionStore()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		Implementation: impl,
		Capabilities:   caps,
		store:          store,
		subs:           newSubscriptionIndex(),
		tools:          newToolRegistry(),
		resources:      newResourceRegistry(),
		prompts:        newPromptRegistry(),
		completions:    newCompletionRegistry(),
		active:         make(map[string]*Session),
		onInit:         opts.OnSessionInitialized,
		idleTimeout:    opts.IdleTimeout,
		logger:         logger,
	}
}

// AddTool registers a tool with an untyped handler.
func (s *Server) AddTool(t *Tool, h ToolHandler) error {
	st, err := newServerTool(t, h)
	if err != nil {
		return err
	}
	s.wireToolChange()
	s.tools.add(st)
	return nil
}

// AddTypedTool registers a tool whose schema is inferred from Go types.
func AddTypedTool[In, Out any](s *Server, t *Tool, h TypedToolHandler[In, Out]) error {
	st, err := newTypedServerTool(t, h)
	if err != nil {
		return err
	}
	s.wireToolChange()
	s.tools.add(st)
	return nil
}

// RemoveTool unregisters a tool by name.
func (s *Server) RemoveTool(name string) bool {
	return s.tools.remove(name)
}

func (s *Server) wireToolChange() {
	s.tools.mu.Lock()
	if s.tools.onChange == nil {
		s.tools.onChange = func() { s.broadcastListChanged(context.Background(), "notifications/tools/list_changed") }
	}
	s.tools.mu.Unlock()
}

// broadcastListChanged notifies every session with a live channel of a
// list_changed event (spec §4.4).
func (s *Server) broadcastListChanged(ctx context.Context, method string) {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.active))
	for _, sess := range s.active {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()
	params := &ListChangedParams{}
	b, err := encodeParams(params)
	if err != nil {
		return
	}
	for _, sess := range sessions {
		if err := sess.Reply(ctx, &jsonrpc.Notification{Method: method, Params: b}, ""); err != nil {
			s.logger.Printf("broadcasting %s to session %s: %v", method, sess.ID(), err)
		}
	}
}

// loggingEnabled reports whether a log message at level should be delivered
// to sess, per its configured minimum logging level.
func (s *Server) loggingEnabled(sess *Session, level LoggingLevel) bool {
	sess.mu.Lock()
	min := sess.logLevel
	sess.mu.Unlock()
	if min == "" {
		return true
	}
	return loggingLevelRank(level) >= loggingLevelRank(min)
}

var loggingLevelOrder = []LoggingLevel{
	LoggingLevelDebug, LoggingLevelInfo, LoggingLevelNotice, LoggingLevelWarning,
	LoggingLevelError, LoggingLevelCritical, LoggingLevelAlert, LoggingLevelEmergency,
}

func loggingLevelRank(l LoggingLevel) int {
	for i, lv := range loggingLevelOrder {
		if lv == l {
			return i
		}
	}
	return 0
}

// runOnInit invokes the OnSessionInitialized hook, recovering a panic so
// that a buggy hook cannot fail the initialize request it was notified of
// (spec §4.3 "onSessionInitialized hook" is best-effort, not part of the
// request's success path).
func (s *Server) runOnInit(ss *ServerSession) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("session %s: onSessionInitialized hook panicked: %v", ss.ID(), r)
		}
	}()
	s.onInit(ss)
}

// initializeSession creates a brand-new Session for an initialize request
// (spec §4.3 step "initializeSession"). userID is nil for an anonymous
// session (no bearer token presented, or the resource gate is disabled).
func (s *Server) initializeSession(ctx context.Context, sessionID string, userID *string, params *InitializeParams) (*ServerSession, *InitializeResult, error) {
	version := params.ProtocolVersion
	if !supportsVersion(version) {
		version = protocolVersions[0]
	}
	sctx, cancel := context.WithCancel(context.Background())
	_ = sctx
	sess := newSession(sessionID, cancel, s.logger)
	sess.userID = userID
	sess.protocolVersion = version
	sess.clientInfo = params.ClientInfo
	sess.clientCapabilities = params.Capabilities
	sess.serverInfo = s.Implementation
	sess.serverCapabilities = s.Capabilities

	if err := s.store.Store(ctx, sessionID, sess.toState()); err != nil {
		return nil, nil, fmt.Errorf("storing new session: %w", err)
	}

	ss := &ServerSession{server: s, session: sess}
	if s.onInit != nil {
		s.runOnInit(ss)
	}
	return ss, &InitializeResult{
		Capabilities:    s.Capabilities,
		ProtocolVersion: version,
		ServerInfo:      s.Implementation,
	}, nil
}

// handleInitialize runs an "initialize" request to completion for a
// session-less transport request: it creates the session, records the
// inbound request, produces the response through the ordinary Reply path
// (so it is durably logged like any other server message), and returns the
// encoded response envelope for the transport to deliver however it sees
// fit (an HTTP response body, the first frame of a WebSocket connection,
// ...). The channel used is attached only long enough to capture the
// reply; callers that want a persistent channel for the new session
// should attach their own afterward.
func (s *Server) handleInitialize(ctx context.Context, userID *string, rawReq []byte, reqID jsonrpc.ID, params *InitializeParams) (*ServerSession, []byte, error) {
	sessionID := randText()
	ss, result, err := s.initializeSession(ctx, sessionID, userID, params)
	if err != nil {
		return nil, nil, err
	}
	collector := newHTTPChannel()
	ss.session.attachRequestChannel(collector)
	ss.session.RecordClientMessage(rawReq, "")
	b, err := json.Marshal(result)
	if err != nil {
		return nil, nil, err
	}
	if err := ss.session.Reply(ctx, &jsonrpc.Response{ID: reqID, Result: b}, reqID.String()); err != nil {
		return nil, nil, err
	}
	ss.session.detachChannelQuiet()
	close(collector.msgs)
	msg := <-collector.msgs
	data, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		return nil, nil, err
	}
	return ss, data, nil
}

// authorizeSession enforces spec §4.9's session-ownership rule: a session
// created with a non-nil userId may only be resumed, attached to, or
// terminated by a request carrying that same userId. An anonymous session
// (owner nil) is open to any caller.
func authorizeSession(ctx context.Context, owner *string) error {
	if owner == nil {
		return nil
	}
	caller := UserIDFromContext(ctx)
	if caller == nil || *caller != *owner {
		return ErrAuthorizationFailed
	}
	return nil
}

// resume implements spec §4.3's three-step resumption: (1) check the
// active-sessions map first, reusing the live Session if one is already
// attached, (2) otherwise load the session's durable state and hydrate a
// fresh in-memory Session from it, (3) attach the caller's channel and
// replay events since lastEventID. Every path is gated by authorizeSession
// before the caller's channel is attached.
func (s *Server) resume(ctx context.Context, sessionID string, lastEventID string, ch Channel) (*ServerSession, []Event, error) {
	s.mu.Lock()
	sess, alreadyActive := s.active[sessionID]
	s.mu.Unlock()

	if !alreadyActive {
		state, err := s.store.Load(ctx, sessionID)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
		}
		if err := authorizeSession(ctx, state.UserID); err != nil {
			return nil, nil, err
		}
		_, cancel := context.WithCancel(context.Background())
		fresh := newSession(sessionID, cancel, s.logger)
		fresh.hydrateFrom(state)
		s.mu.Lock()
		if existing, ok := s.active[sessionID]; ok {
			sess = existing
			alreadyActive = true
		} else {
			s.active[sessionID] = fresh
			sess = fresh
		}
		s.mu.Unlock()
	}

	if err := authorizeSession(ctx, sess.UserID()); err != nil {
		return nil, nil, err
	}

	sess.attachChannel(ch, alreadyActive)
	replay := sess.resumeEvents(lastEventID)
	return &ServerSession{server: s, session: sess}, replay, nil
}

// attachForRequest attaches ch to sessionID for the duration of a single
// request/response cycle (spec §4.1's "channel" concept applied to a
// streamable-HTTP POST, which is not itself a connect/disconnect event
// worth recording). It loads the session into memory if needed but, unlike
// resume, never replays history: a POST only ever wants prior to this
// request its own dispatch responses, not the full backlog a GET
// reconnect wants. Gated by authorizeSession, same as resume.
func (s *Server) attachForRequest(ctx context.Context, sessionID string, ch Channel) (*ServerSession, error) {
	s.mu.Lock()
	sess, ok := s.active[sessionID]
	s.mu.Unlock()
	if !ok {
		state, err := s.store.Load(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSessionNotFound, err)
		}
		if err := authorizeSession(ctx, state.UserID); err != nil {
			return nil, err
		}
		_, cancel := context.WithCancel(context.Background())
		fresh := newSession(sessionID, cancel, s.logger)
		fresh.hydrateFrom(state)
		s.mu.Lock()
		if existing, ok2 := s.active[sessionID]; ok2 {
			sess = existing
		} else {
			s.active[sessionID] = fresh
			sess = fresh
		}
		s.mu.Unlock()
	}
	if err := authorizeSession(ctx, sess.UserID()); err != nil {
		return nil, err
	}
	sess.attachRequestChannel(ch)
	return &ServerSession{server: s, session: sess}, nil
}

// pause detaches a session's channel and persists its state, without
// terminating it (spec §4.3 "pause").
func (s *Server) pause(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.active[sessionID]
	delete(s.active, sessionID)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	sess.detachChannel()
	return s.store.Store(ctx, sessionID, sess.toState())
}

// authorizedTerminate is the client-facing entry point for ending a
// session (a streamable-HTTP DELETE or a WebSocket close): it enforces
// authorizeSession before delegating to terminate. cleanupInactiveSessions
// calls terminate directly because idle eviction is a host-driven
// administrative action with no authenticated caller to check against.
func (s *Server) authorizedTerminate(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.active[sessionID]
	s.mu.Unlock()
	var owner *string
	if ok {
		owner = sess.UserID()
	} else {
		state, err := s.store.Load(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSessionNotFound, err)
		}
		owner = state.UserID
	}
	if err := authorizeSession(ctx, owner); err != nil {
		return err
	}
	return s.terminate(ctx, sessionID)
}

// terminate cancels every pending request for the session immediately
// (Open Question (a): terminate does not wait for handlers to observe
// cancellation) and removes all durable and in-memory traces of it.
func (s *Server) terminate(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.active[sessionID]
	delete(s.active, sessionID)
	s.mu.Unlock()
	if ok {
		sess.cancelAllPending()
		sess.detachChannel()
	}
	s.subs.removeSession(sessionID)
	return s.store.Delete(ctx, sessionID)
}

// cleanupInactiveSessions evicts sessions whose LastActivity is older than
// the server's idle timeout. It is meant to be invoked periodically by the
// owner of the Server (spec §4.3 "idle eviction"); this module does not
// itself run a background loop.
func (s *Server) cleanupInactiveSessions(ctx context.Context, now time.Time) []string {
	if s.idleTimeout <= 0 {
		return nil
	}
	s.mu.Lock()
	var stale []string
	for id, sess := range s.active {
		if now.Sub(sess.LastActivity()) > s.idleTimeout {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()
	for _, id := range stale {
		if err := s.terminate(ctx, id); err != nil {
			s.logger.Printf("evicting idle session %s: %v", id, err)
		}
	}
	return stale
}

// userIDContextKey is the context key the resource gate (oauthproxy.Gate)
// uses to attach the authenticated user id before a transport hands a
// request to initializeSession or attachForRequest.
type userIDContextKey struct{}

// WithUserID returns a context carrying id as the authenticated user for
// the current request, for a resource gate to set before invoking the
// transport handler.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, id)
}

// UserIDFromContext returns the user id attached by WithUserID, or nil if
// the request is anonymous.
func UserIDFromContext(ctx context.Context) *string {
	if id, ok := ctx.Value(userIDContextKey{}).(string); ok {
		return &id
	}
	return nil
}

// encodeParams marshals a Params/notification payload to JSON, used when
// building outbound jsonrpc.Notification envelopes.
func encodeParams(v any) ([]byte, error) {
	return json.Marshal(v)
}
