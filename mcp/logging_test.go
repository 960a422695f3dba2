// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/mcp-core/jsonrpc"
)

func TestOnSessionInitializedPanicIsRecoveredAndLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	server := NewServer(&Implementation{Name: "fake-server", Version: "1.0.0"}, &ServerCapabilities{}, &ServerOptions{
		Logger: logger,
		OnSessionInitialized: func(ss *ServerSession) {
			panic("boom")
		},
	})

	params := &InitializeParams{ClientInfo: &Implementation{Name: "fake-client", Version: "1.0.0"}, ProtocolVersion: protocolVersions[0]}
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	reqID := jsonrpc.StringID("1")
	rawReq, _ := jsonrpc.EncodeMessage(&jsonrpc.Request{ID: reqID, Method: "initialize", Params: raw})

	ss, data, err := server.handleInitialize(context.Background(), nil, rawReq, reqID, params)
	if err != nil {
		t.Fatalf("handleInitialize: %v", err)
	}
	if ss == nil || len(data) == 0 {
		t.Fatal("handleInitialize returned no session/response despite the panic being recovered")
	}
	if !strings.Contains(buf.String(), "onSessionInitialized hook panicked") {
		t.Errorf("log output = %q, want a panic-recovery message", buf.String())
	}
}

type droppingChannel struct{ id string }

func (c *droppingChannel) Write(ctx context.Context, msg jsonrpc.Message) error {
	return context.DeadlineExceeded
}
func (c *droppingChannel) ID() string { return c.id }

func TestReplyLogsDroppedChannelWrite(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	sess := newSession("sess-1", func() {}, logger)
	sess.attachChannel(&droppingChannel{id: "ch-1"}, true)

	if err := sess.Reply(context.Background(), &jsonrpc.Notification{Method: "notifications/message"}, ""); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if !strings.Contains(buf.String(), "dropped channel write") {
		t.Errorf("log output = %q, want a dropped-write message", buf.String())
	}
}

func TestNewSessionDefaultsLoggerWhenNil(t *testing.T) {
	sess := newSession("sess-1", func() {}, nil)
	if sess.logger == nil {
		t.Error("logger defaulted to nil, want log.Default()")
	}
}
