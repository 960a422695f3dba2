// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/modelcontextprotocol/mcp-core/jsonrpc"
)

// WebSocketServerTransport serves a Server's sessions over a single
// long-lived WebSocket connection per session, using the 'mcp' subprotocol.
// Where the streamable HTTP transport attaches and detaches a channel per
// request, a WebSocket connection is itself the channel for the lifetime of
// the socket (spec §4.1's channel concept applied to a persistent duplex
// transport rather than a request/response one).
type WebSocketServerTransport struct {
	server   *Server
	upgrader websocket.Upgrader
}

// NewWebSocketServerTransport returns a transport serving server's sessions.
func NewWebSocketServerTransport(server *Server) *WebSocketServerTransport {
	return &WebSocketServerTransport{
		server: server,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{"mcp"},
			CheckOrigin:  func(r *http.Request) bool { return true },
		},
	}
}

func (t *WebSocketServerTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, fmt.Sprintf("WebSocket upgrade failed: %v", err), http.StatusBadRequest)
		return
	}
	defer conn.Close()

	ch := &wsChannel{conn: conn, id: randText()}
	ctx := r.Context()
	sessionID := r.Header.Get("Mcp-Session-Id")

	var ss *ServerSession
	if sessionID == "" {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := jsonrpc.DecodeMessage(data)
		if err != nil {
			return
		}
		reqMsg, ok := msg.(*jsonrpc.Request)
		if !ok || reqMsg.Method != "initialize" {
			return
		}
		var params InitializeParams
		if err := decodeParams(reqMsg.Params, &params); err != nil {
			return
		}
		var respData []byte
		ss, respData, err = t.server.handleInitialize(ctx, UserIDFromContext(ctx), data, reqMsg.ID, &params)
		if err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, respData); err != nil {
			return
		}
		ss.session.attachChannel(ch, false)
		t.server.mu.Lock()
		t.server.active[ss.ID()] = ss.session
		t.server.mu.Unlock()
		sessionID = ss.ID()
	} else {
		lastEventID := r.Header.Get("Last-Event-ID")
		var replay []Event
		ss, replay, err = t.server.resume(ctx, sessionID, lastEventID, ch)
		if err != nil {
			return
		}
		for _, ev := range replay {
			if ev.Kind != EventServerMessage {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, ev.Envelope); err != nil {
				return
			}
		}
	}
	defer t.server.pause(context.Background(), sessionID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := t.server.HandleMessage(ctx, ss, data); err != nil {
			return
		}
	}
}

// wsChannel adapts a gorilla websocket connection to the Channel interface.
type wsChannel struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsChannel) ID() string { return c.id }

func (c *wsChannel) Write(ctx context.Context, msg jsonrpc.Message) error {
	data, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WebSocketClientTransport dials a streamable MCP server's WebSocket
// endpoint and exposes it as a Channel plus a read loop, for a Client
// connector (mcp/client.go) to drive.
type WebSocketClientTransport struct {
	URL    string
	Dialer *websocket.Dialer
	Header http.Header
}

// Dial establishes the WebSocket connection and returns its Channel and
// a function reading the next inbound message, blocking until one
// arrives or the connection closes.
func (t *WebSocketClientTransport) Dial(ctx context.Context) (*wsChannel, func() (jsonrpc.Message, error), error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	dialer.Subprotocols = []string{"mcp"}
	conn, resp, err := dialer.DialContext(ctx, t.URL, t.Header)
	if err != nil {
		if resp != nil {
			return nil, nil, fmt.Errorf("websocket connection failed: %w (status: %d)", err, resp.StatusCode)
		}
		return nil, nil, fmt.Errorf("websocket connection failed: %w", err)
	}
	ch := &wsChannel{conn: conn, id: randText()}
	read := func() (jsonrpc.Message, error) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("websocket read error: %w", err)
		}
		return jsonrpc.DecodeMessage(data)
	}
	return ch, read, nil
}
