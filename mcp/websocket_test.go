// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/mcp-core/jsonrpc"
)

func newTestWebSocketServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := NewServer(&Implementation{Name: "fake-server", Version: "1.0.0"}, &ServerCapabilities{}, nil)
	transport := NewWebSocketServerTransport(server)
	srv := httptest.NewServer(transport)
	t.Cleanup(srv.Close)
	return srv
}

func TestWebSocketServerTransportInitialize(t *testing.T) {
	srv := newTestWebSocketServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	client := &WebSocketClientTransport{URL: wsURL}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch, read, err := client.Dial(ctx)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer ch.conn.Close()

	params := &InitializeParams{
		ClientInfo:      &Implementation{Name: "fake-client", Version: "1.0.0"},
		ProtocolVersion: protocolVersions[0],
	}
	paramsRaw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("encoding params: %v", err)
	}
	req := &jsonrpc.Request{ID: jsonrpc.StringID("1"), Method: "initialize", Params: paramsRaw}
	if err := ch.Write(ctx, req); err != nil {
		t.Fatalf("Write(initialize): %v", err)
	}

	msg, err := read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	resp, ok := msg.(*jsonrpc.Response)
	if !ok {
		t.Fatalf("got %T, want *jsonrpc.Response", msg)
	}
	if resp.Error != nil {
		t.Fatalf("initialize returned error: %v", resp.Error)
	}
	var result InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("decoding InitializeResult: %v", err)
	}
	if result.ServerInfo.Name != "fake-server" {
		t.Errorf("ServerInfo.Name = %q, want fake-server", result.ServerInfo.Name)
	}
}
