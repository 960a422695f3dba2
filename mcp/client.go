// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/mcp-core/auth"
	"github.com/modelcontextprotocol/mcp-core/jsonrpc"
)

// ConnState is the client connector's transport state machine (spec §4.5):
// Disconnected -> Connecting -> Connected -> Disconnecting, with reconnects
// re-entering Connecting.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// reservedInitializeID is the fixed request id the client connector uses
// for the initialize call, so a server can recognize it even before a
// session id exists to correlate by.
var reservedInitializeID = jsonrpc.StringID("0")

// Client is a streamable-HTTP client connector (spec §4.5): it owns one
// session against one server, sends requests over POST, and ingests
// server-initiated messages (replies that don't fit in the POST response,
// notifications, and server-to-client requests) from the hanging GET
// event stream, reconnecting it with Last-Event-Id and backoff (spec
// §4.6/§4.7).
type Client struct {
	Implementation *Implementation
	Capabilities   *ClientCapabilities

	baseURL string
	httpc   *http.Client

	// OAuthHandler, if set, is consulted before every request for a bearer
	// token and given a chance to run the OAuth flow when a request comes
	// back 401 or 403 (spec §4.5, §4.8): the request is retried once after
	// a successful Authorize call.
	OAuthHandler auth.OAuthHandler

	// OnNotification, if set, is invoked for every inbound notification
	// other than the ones this connector handles itself.
	OnNotification func(method string, params json.RawMessage)
	// OnRequest, if set, answers server-to-client requests (e.g.
	// roots/list, sampling/createMessage). Non-goal: content generation
	// itself is not implemented; a host wires its own sampler here.
	OnRequest func(ctx context.Context, method string, params json.RawMessage) (Result, error)

	mu          sync.Mutex
	state       ConnState
	sessionID   string
	lastEventID string
	serverRetry time.Duration

	pending *pendingRegistry

	streamCancel context.CancelFunc
	streamDone   chan struct{}
}

// NewClient returns a Client speaking to the streamable HTTP endpoint at
// baseURL. httpc defaults to http.DefaultClient.
func NewClient(impl *Implementation, caps *ClientCapabilities, baseURL string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = http.DefaultClient
	}
	return &Client{
		Implementation: impl,
		Capabilities:   caps,
		baseURL:        baseURL,
		httpc:          httpc,
		pending:        newPendingRegistry(),
	}
}

func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect opens the transport, sends initialize with the reserved id, and
// transitions to Connected once InitializeResult arrives (spec §4.5
// "connect()").
func (c *Client) Connect(ctx context.Context) (*InitializeResult, error) {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil, fmt.Errorf("connect: already %s", c.state)
	}
	c.state = StateConnecting
	c.mu.Unlock()

	params := &InitializeParams{
		Capabilities:    c.Capabilities,
		ClientInfo:      c.Implementation,
		ProtocolVersion: protocolVersions[0],
	}
	req := &jsonrpc.Request{ID: reservedInitializeID, Method: "initialize"}
	var err error
	req.Params, err = json.Marshal(params)
	if err != nil {
		c.setState(StateDisconnected)
		return nil, err
	}

	pr, cctx := c.pending.register(ctx, reservedInitializeID.String(), "initialize")
	if _, err := c.postEnvelope(cctx, req); err != nil {
		c.pending.cancelRequest(reservedInitializeID.String())
		c.setState(StateDisconnected)
		return nil, err
	}
	raw, err := pr.wait(cctx)
	if err != nil {
		c.setState(StateDisconnected)
		return nil, err
	}
	var result InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.setState(StateDisconnected)
		return nil, err
	}

	c.setState(StateConnected)
	c.startStream()
	_ = c.Notify(ctx, "notifications/initialized", &struct{}{})
	return &result, nil
}

// Disconnect sends a best-effort notifications/session/terminated
// notification and stops the event stream (spec §4.5 "disconnect()").
// Errors sending the notification are silently ignored.
func (c *Client) Disconnect(ctx context.Context, reason string) {
	c.setState(StateDisconnecting)
	_ = c.Notify(ctx, "notifications/session/terminated", map[string]string{
		"sessionId": c.sessionIDSnapshot(),
		"reason":    reason,
	})
	c.mu.Lock()
	cancel := c.streamCancel
	done := c.streamDone
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	c.setState(StateDisconnected)
}

func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) sessionIDSnapshot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// setBearerToken attaches the OAuthHandler's current token, if any, to req.
// A handler with no token yet (first request, before any Authorize call) is
// not an error: the request goes out unauthenticated and a 401 drives the
// flow below.
func (c *Client) setBearerToken(ctx context.Context, req *http.Request) error {
	if c.OAuthHandler == nil {
		return nil
	}
	ts, err := c.OAuthHandler.TokenSource(ctx)
	if err != nil {
		return err
	}
	if ts == nil {
		return nil
	}
	tok, err := ts.Token()
	if err != nil || tok == nil {
		return nil
	}
	tok.SetAuthHeader(req)
	return nil
}

// doAuthenticated sends req, and on a 401 or 403 response runs one
// OAuthHandler.Authorize round before retrying the request exactly once
// (spec §4.8 "client-side OAuth handler invoked by the client connector on
// 401"). newReq rebuilds req for the retry, since a request with a body
// cannot be resent as-is.
func (c *Client) doAuthenticated(ctx context.Context, req *http.Request, newReq func() (*http.Request, error)) (*http.Response, error) {
	if err := c.setBearerToken(ctx, req); err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	if c.OAuthHandler == nil || (resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden) {
		return resp, nil
	}
	if err := c.OAuthHandler.Authorize(ctx, req, resp); err != nil {
		return nil, err
	}
	retry, err := newReq()
	if err != nil {
		return nil, err
	}
	if err := c.setBearerToken(ctx, retry); err != nil {
		return nil, err
	}
	return c.httpc.Do(retry)
}

// Call sends a request and blocks for its result, injecting a progress
// token equal to the assigned request id (spec §4.5 "send(envelope)").
func (c *Client) Call(ctx context.Context, method string, params Params, result Result) error {
	id := c.pending.newID()
	if params != nil {
		params.SetProgressToken(id)
	}
	var paramsRaw json.RawMessage
	var err error
	if params != nil {
		paramsRaw, err = json.Marshal(params)
		if err != nil {
			return err
		}
	}
	req := &jsonrpc.Request{ID: jsonrpc.StringID(id), Method: method, Params: paramsRaw}

	pr, cctx := c.pending.register(ctx, id, method)
	if _, err := c.postEnvelope(cctx, req); err != nil {
		c.pending.cancelRequest(id)
		return err
	}
	raw, err := pr.wait(cctx)
	if err != nil {
		return err
	}
	if result == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, result)
}

// Notify sends a one-way notification; the server is not expected to
// reply.
func (c *Client) Notify(ctx context.Context, method string, params any) error {
	var raw json.RawMessage
	var err error
	if params != nil {
		raw, err = json.Marshal(params)
		if err != nil {
			return err
		}
	}
	_, err = c.postEnvelope(ctx, &jsonrpc.Notification{Method: method, Params: raw})
	return err
}

// postEnvelope sends one JSON-RPC envelope over POST and processes
// whatever the response contains (a single JSON reply, an SSE burst, or a
// bare 202 Accepted). It reports whether the server merely accepted the
// message for out-of-band delivery.
func (c *Client) postEnvelope(ctx context.Context, msg jsonrpc.Message) (accepted bool, err error) {
	data, err := jsonrpc.EncodeMessage(msg)
	if err != nil {
		return false, err
	}
	newPostReq := func() (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("Accept", "application/json, text/event-stream")
		if sid := c.sessionIDSnapshot(); sid != "" {
			r.Header.Set("Mcp-Session-Id", sid)
		}
		return r, nil
	}
	httpReq, err := newPostReq()
	if err != nil {
		return false, err
	}

	resp, err := c.doAuthenticated(ctx, httpReq, newPostReq)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		c.mu.Lock()
		c.sessionID = sid
		c.mu.Unlock()
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		return true, nil
	case http.StatusOK:
		ct := resp.Header.Get("Content-Type")
		if strings.HasPrefix(ct, "text/event-stream") {
			c.ingestStream(resp.Body)
			return true, nil
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false, err
		}
		c.handleInbound(body)
		return false, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("unexpected status %s: %s", resp.Status, string(body))
	}
}

// handleInbound decodes one raw envelope and routes it: a response
// resolves a pending Call, a request is answered via OnRequest, a
// notification goes to OnNotification.
func (c *Client) handleInbound(raw []byte) {
	msg, err := jsonrpc.DecodeMessage(raw)
	if err != nil {
		return
	}
	switch m := msg.(type) {
	case *jsonrpc.Response:
		var rpcErr *jsonrpc.WireError
		if m.Error != nil {
			rpcErr = m.Error
		}
		c.pending.resolve(m.ID.String(), m.Result, rpcErr)
	case *jsonrpc.Notification:
		if c.OnNotification != nil {
			c.OnNotification(m.Method, m.Params)
		}
	case *jsonrpc.Request:
		if c.OnRequest == nil {
			return
		}
		go func() {
			result, err := c.OnRequest(context.Background(), m.Method, m.Params)
			resp := &jsonrpc.Response{ID: m.ID}
			if err != nil {
				resp.Error = NewWireError(err)
			} else {
				resp.Result, _ = json.Marshal(result)
			}
			_, _ = c.postEnvelope(context.Background(), resp)
		}()
	}
}

// ingestStream decodes a text/event-stream body using the same SSE framing
// the server side writes with, tracking lastEventID and the
// server-suggested retry delay per spec §4.6.
func (c *Client) ingestStream(r io.Reader) {
	for ev, err := range scanEvents(r) {
		if err != nil {
			return
		}
		if ev.id != "" {
			c.mu.Lock()
			c.lastEventID = ev.id
			c.mu.Unlock()
		}
		if ev.hasRetry {
			c.mu.Lock()
			c.serverRetry = ev.retry
			c.mu.Unlock()
		}
		if len(ev.data) > 0 {
			c.handleInbound(ev.data)
		}
	}
}

// startStream launches the long-lived GET reader that ingests
// out-of-band server messages, reconnecting with backoff on every drop
// (spec §4.6 "reconnect policy").
func (c *Client) startStream() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.mu.Lock()
	c.streamCancel = cancel
	c.streamDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		for attempt := 0; ; attempt++ {
			if ctx.Err() != nil {
				return
			}
			if err := c.streamOnce(ctx); err != nil {
				c.mu.Lock()
				delay := c.serverRetry
				c.mu.Unlock()
				if delay == 0 {
					delay = retryBackoff(attempt)
				}
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return
				}
				continue
			}
			attempt = -1 // reset backoff after a clean (non-error) stream close
		}
	}()
}

// streamOnce opens one hanging GET connection and ingests it until it
// closes or errs.
func (c *Client) streamOnce(ctx context.Context) error {
	newGetReq := func() (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
		if err != nil {
			return nil, err
		}
		r.Header.Set("Accept", "text/event-stream")
		r.Header.Set("Mcp-Session-Id", c.sessionIDSnapshot())
		c.mu.Lock()
		lastEventID := c.lastEventID
		c.mu.Unlock()
		if lastEventID != "" {
			r.Header.Set("Last-Event-Id", lastEventID)
		}
		return r, nil
	}
	httpReq, err := newGetReq()
	if err != nil {
		return err
	}

	resp, err := c.doAuthenticated(ctx, httpReq, newGetReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("event stream returned %s: %s", resp.Status, string(body))
	}
	c.ingestStream(resp.Body)
	return nil
}
