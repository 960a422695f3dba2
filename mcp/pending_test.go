// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/modelcontextprotocol/mcp-core/internal/jsonrpc2"
)

func TestPendingRegistryResolve(t *testing.T) {
	r := newPendingRegistry()
	pr, cctx := r.register(context.Background(), "1", "tools/call")
	if r.len() != 1 {
		t.Fatalf("len() = %d, want 1", r.len())
	}

	if !r.resolve("1", []byte(`{"ok":true}`), nil) {
		t.Fatal("resolve returned false for a registered id")
	}
	if r.len() != 0 {
		t.Fatalf("len() = %d after resolve, want 0", r.len())
	}

	raw, err := pr.wait(cctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Errorf("wait returned %q", raw)
	}
}

func TestPendingRegistryResolveUnknownID(t *testing.T) {
	r := newPendingRegistry()
	if r.resolve("missing", nil, nil) {
		t.Error("resolve returned true for an unregistered id")
	}
}

func TestPendingRegistryResolveWithError(t *testing.T) {
	r := newPendingRegistry()
	pr, cctx := r.register(context.Background(), "1", "tools/call")
	wireErr := &jsonrpc2.WireError{Code: -32000, Message: "boom"}
	r.resolve("1", nil, wireErr)

	_, err := pr.wait(cctx)
	if err == nil {
		t.Fatal("wait returned nil error, want the resolved rpc error")
	}
}

func TestPendingRegistryCancelRequest(t *testing.T) {
	r := newPendingRegistry()
	pr, cctx := r.register(context.Background(), "1", "tools/call")
	if !r.cancelRequest("1") {
		t.Fatal("cancelRequest returned false for a registered id")
	}
	if r.len() != 0 {
		t.Fatalf("len() = %d after cancel, want 0", r.len())
	}
	if _, err := pr.wait(cctx); err != context.Canceled {
		t.Errorf("wait error = %v, want context.Canceled", err)
	}
	if r.cancelRequest("1") {
		t.Error("cancelRequest returned true for an already-removed id")
	}
}

func TestPendingRegistryCancelAll(t *testing.T) {
	r := newPendingRegistry()
	_, ctx1 := r.register(context.Background(), "1", "a")
	pr2, ctx2 := r.register(context.Background(), "2", "b")
	r.cancelAll()
	if r.len() != 0 {
		t.Fatalf("len() = %d after cancelAll, want 0", r.len())
	}
	for _, ctx := range []context.Context{ctx1, ctx2} {
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("context not canceled after cancelAll")
		}
	}
	if _, err := pr2.wait(ctx2); err != context.Canceled {
		t.Errorf("pr2.wait error = %v, want context.Canceled", err)
	}
}

func TestPendingRegistryNewIDMonotonic(t *testing.T) {
	r := newPendingRegistry()
	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		id := r.newID()
		if seen[id] {
			t.Fatalf("newID returned duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestPendingRequestWaitContextDone(t *testing.T) {
	r := newPendingRegistry()
	pr, cctx := r.register(context.Background(), "1", "tools/call")
	ctx, cancel := context.WithTimeout(cctx, 10*time.Millisecond)
	defer cancel()
	if _, err := pr.wait(ctx); err == nil {
		t.Fatal("wait returned nil error after caller context deadline")
	}
}
