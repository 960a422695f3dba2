// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/mcp-core/jsonrpc"
)

// TestNotifyResourceUpdateDeliversToSubscriber exercises the subscription
// round trip end to end: subscribe over a streamable-HTTP POST, then call
// NotifyResourceUpdate (the operation a host invokes when a resource it
// serves changes) and confirm a subscribed session's open GET stream
// receives exactly one notifications/resources/updated event.
func TestNotifyResourceUpdateDeliversToSubscriber(t *testing.T) {
	server := NewServer(&Implementation{Name: "fake-server", Version: "1.0.0"}, &ServerCapabilities{}, nil)
	handler := NewStreamableHTTPHandler(server)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sessionID := initializeSession(t, srv)

	const uri = "file:///a.txt"
	subParams, _ := json.Marshal(&SubscribeParams{URI: uri})
	resp := postEnvelope(t, srv, sessionID, &jsonrpc.Request{ID: jsonrpc.StringID("2"), Method: "resources/subscribe", Params: subParams})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("subscribe status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	getReq.Header.Set("Mcp-Session-Id", sessionID)
	getReq.Header.Set("Accept", "text/event-stream")
	getResp, err := srv.Client().Do(getReq)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer getResp.Body.Close()

	server.NotifyResourceUpdate(context.Background(), uri)

	scanner := bufio.NewScanner(getResp.Body)
	var dataLine string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			dataLine = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanning SSE stream: %v", err)
	}
	if dataLine == "" {
		t.Fatal("no event received after NotifyResourceUpdate")
	}

	msg, err := jsonrpc.DecodeMessage([]byte(dataLine))
	if err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	notif, ok := msg.(*jsonrpc.Notification)
	if !ok || notif.Method != "notifications/resources/updated" {
		t.Fatalf("got %#v, want notifications/resources/updated notification", msg)
	}
	var params ResourceUpdatedNotificationParams
	if err := json.Unmarshal(notif.Params, &params); err != nil {
		t.Fatalf("unmarshal params: %v", err)
	}
	if params.URI != uri {
		t.Errorf("notified URI = %q, want %q", params.URI, uri)
	}
}
