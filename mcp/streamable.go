// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/modelcontextprotocol/mcp-core/jsonrpc"
)

// StreamableHTTPHandler is an http.Handler implementing the streamable HTTP
// transport (spec §4.1): POST delivers client messages and returns the
// server's replies either as a single JSON body or as a text/event-stream;
// GET opens a long-lived event stream for out-of-band server messages and,
// via Last-Event-ID, resumes a session's event log from where a prior
// stream left off (spec §4.3 "resume").
type StreamableHTTPHandler struct {
	server *Server
}

// NewStreamableHTTPHandler returns a handler serving server's sessions.
func NewStreamableHTTPHandler(server *Server) *StreamableHTTPHandler {
	return &StreamableHTTPHandler{server: server}
}

func (h *StreamableHTTPHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	accept := strings.Split(strings.Join(req.Header.Values("Accept"), ","), ",")
	var jsonOK, streamOK bool
	for _, c := range accept {
		switch strings.TrimSpace(c) {
		case "application/json":
			jsonOK = true
		case "text/event-stream":
			streamOK = true
		}
	}
	if req.Method == http.MethodGet {
		if !streamOK {
			http.Error(w, "Accept must contain 'text/event-stream' for GET requests", http.StatusBadRequest)
			return
		}
	} else if req.Method == http.MethodPost && (!jsonOK || !streamOK) {
		http.Error(w, "Accept must contain both 'application/json' and 'text/event-stream'", http.StatusBadRequest)
		return
	}

	sessionID := req.Header.Get("Mcp-Session-Id")

	switch req.Method {
	case http.MethodDelete:
		if sessionID == "" {
			http.Error(w, "DELETE requires an Mcp-Session-Id header", http.StatusBadRequest)
			return
		}
		if err := h.server.authorizedTerminate(req.Context(), sessionID); err != nil {
			if errors.Is(err, ErrAuthorizationFailed) {
				http.Error(w, "not authorized to terminate this session", http.StatusForbidden)
				return
			}
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet:
		if sessionID == "" {
			http.Error(w, "GET requires an Mcp-Session-Id header", http.StatusBadRequest)
			return
		}
		h.serveGET(w, req, sessionID)
	case http.MethodPost:
		h.servePOST(w, req, sessionID)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		http.Error(w, "unsupported method", http.StatusMethodNotAllowed)
	}
}

// serveGET opens (or resumes) the hanging event stream for sessionID.
func (h *StreamableHTTPHandler) serveGET(w http.ResponseWriter, req *http.Request, sessionID string) {
	lastEventID := req.Header.Get("Last-Event-ID")
	ch := newHTTPChannel()
	_, replay, err := h.server.resume(req.Context(), sessionID, lastEventID, ch)
	if err != nil {
		if errors.Is(err, ErrAuthorizationFailed) {
			http.Error(w, "not authorized to resume this session", http.StatusForbidden)
			return
		}
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	defer h.server.pause(context.Background(), sessionID)

	w.Header().Set("Mcp-Session-Id", sessionID)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for _, ev := range replay {
		if ev.Kind != EventServerMessage {
			continue
		}
		writeEvent(w, sseEvent{id: ev.ID, data: ev.Envelope})
	}

	for {
		select {
		case msg, ok := <-ch.msgs:
			if !ok {
				return
			}
			data, err := jsonrpc.EncodeMessage(msg)
			if err != nil {
				continue
			}
			if _, err := writeEvent(w, sseEvent{id: ch.nextEventID(), data: data}); err != nil {
				return
			}
		case <-req.Context().Done():
			return
		}
	}
}

// servePOST decodes the request body's batch of client messages, dispatches
// each through the session, and writes back whatever replies were produced:
// a single JSON body if exactly one was produced and the client did not
// require streaming, a 202 Accepted with no body if none were produced
// (pure notifications), or a short-lived SSE stream otherwise.
func (h *StreamableHTTPHandler) servePOST(w http.ResponseWriter, req *http.Request, sessionID string) {
	if req.Header.Get("Last-Event-ID") != "" {
		http.Error(w, "can't send Last-Event-ID for POST request", http.StatusBadRequest)
		return
	}
	req.Body = http.MaxBytesReader(w, req.Body, DefaultMaxBodyBytes)
	body, err := io.ReadAll(req.Body)
	if err != nil {
		if isMaxBytesError(err) {
			writeRequestBodyTooLarge(w)
			return
		}
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, "POST requires a non-empty body", http.StatusBadRequest)
		return
	}
	raws, err := splitBatch(body)
	if err != nil {
		http.Error(w, fmt.Sprintf("malformed payload: %v", err), http.StatusBadRequest)
		return
	}

	ctx := req.Context()

	if sessionID == "" {
		h.serveInitialize(w, ctx, raws)
		return
	}

	ch := newHTTPChannel()
	ss, err := h.server.attachForRequest(ctx, sessionID, ch)
	if err != nil {
		if errors.Is(err, ErrAuthorizationFailed) {
			http.Error(w, "not authorized to use this session", http.StatusForbidden)
			return
		}
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	defer ss.session.detachChannelQuiet()

	for _, raw := range raws {
		if err := h.server.HandleMessage(ctx, ss, raw); err != nil {
			http.Error(w, "failed to handle message", http.StatusInternalServerError)
			return
		}
	}
	close(ch.msgs)

	var replies [][]byte
	for msg := range ch.msgs {
		data, err := jsonrpc.EncodeMessage(msg)
		if err != nil {
			continue
		}
		replies = append(replies, data)
	}

	w.Header().Set("Mcp-Session-Id", sessionID)
	switch len(replies) {
	case 0:
		w.WriteHeader(http.StatusAccepted)
	case 1:
		w.Header().Set("Content-Type", "application/json")
		w.Write(replies[0])
	default:
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache, no-transform")
		for i, data := range replies {
			writeEvent(w, sseEvent{id: fmt.Sprintf("%d", i), data: data})
		}
	}
}

// serveInitialize handles the one request a session-less POST may carry:
// an "initialize" request establishing a new session.
func (h *StreamableHTTPHandler) serveInitialize(w http.ResponseWriter, ctx context.Context, raws [][]byte) {
	if len(raws) != 1 {
		http.Error(w, "the first request of a session must be a single initialize request", http.StatusBadRequest)
		return
	}
	msg, err := jsonrpc.DecodeMessage(raws[0])
	if err != nil {
		http.Error(w, fmt.Sprintf("malformed payload: %v", err), http.StatusBadRequest)
		return
	}
	reqMsg, ok := msg.(*jsonrpc.Request)
	if !ok || reqMsg.Method != "initialize" {
		http.Error(w, "a new session must begin with an initialize request", http.StatusBadRequest)
		return
	}
	var params InitializeParams
	if err := decodeParams(reqMsg.Params, &params); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ss, data, err := h.server.handleInitialize(ctx, UserIDFromContext(ctx), raws[0], reqMsg.ID, &params)
	if err != nil {
		http.Error(w, "failed to initialize session", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Mcp-Session-Id", ss.ID())
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// splitBatch decodes a streamable-HTTP POST body, which may be a single
// JSON-RPC envelope or a JSON array of them, into individual raw envelopes.
func splitBatch(body []byte) ([][]byte, error) {
	trimmed := body
	for len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\t' || trimmed[0] == '\n' || trimmed[0] == '\r') {
		trimmed = trimmed[1:]
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return [][]byte{body}, nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, err
	}
	out := make([][]byte, len(raws))
	for i, r := range raws {
		out[i] = r
	}
	return out, nil
}

// httpChannel is a Channel backed by a buffered Go channel, used to collect
// the messages a dispatch cycle (or a live GET stream) writes for eventual
// delivery over HTTP.
type httpChannel struct {
	id      string
	msgs    chan jsonrpc.Message
	eventID atomic.Int64
}

func newHTTPChannel() *httpChannel {
	return &httpChannel{id: randText(), msgs: make(chan jsonrpc.Message, 64)}
}

func (c *httpChannel) ID() string { return c.id }

func (c *httpChannel) Write(ctx context.Context, msg jsonrpc.Message) error {
	select {
	case c.msgs <- msg:
		return nil
	default:
		return fmt.Errorf("streamable http: channel %s is full", c.id)
	}
}

func (c *httpChannel) nextEventID() string {
	return fmt.Sprintf("%s_%d", c.id, c.eventID.Add(1))
}
