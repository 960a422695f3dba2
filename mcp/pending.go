// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/modelcontextprotocol/mcp-core/internal/jsonrpc2"
)

// PendingRequest tracks one outbound request awaiting a reply, or one
// inbound request awaiting cancellation (spec §3). Ids may be numeric
// counters (outbound) or externally supplied strings (inbound, including
// the reserved initialize id).
type PendingRequest struct {
	ID        string
	Method    string
	StartedAt time.Time

	cancel context.CancelFunc
	result chan pendingResult
}

type pendingResult struct {
	raw []byte
	err error
}

// pendingRegistry is the per-connector/per-session map of in-flight
// requests, grounded on the teacher's serverTasks bookkeeping
// (mcp/tasks_server.go: a sequence counter plus a mutex-guarded map).
type pendingRegistry struct {
	mu      sync.Mutex
	next    int64
	entries map[string]*PendingRequest
}

func newPendingRegistry() *pendingRegistry {
	return &pendingRegistry{entries: make(map[string]*PendingRequest)}
}

// newID returns a fresh monotonic numeric id as a string, for outbound
// requests that don't supply their own id.
func (r *pendingRegistry) newID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	return fmt.Sprintf("%d", r.next)
}

// register adds a PendingRequest with the given id and method, returning it
// together with a context derived from ctx that cancelRequest and cancelAll
// cancel.
func (r *pendingRegistry) register(ctx context.Context, id, method string) (*PendingRequest, context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	pr := &PendingRequest{
		ID:        id,
		Method:    method,
		StartedAt: time.Now(),
		cancel:    cancel,
		result:    make(chan pendingResult, 1),
	}
	r.mu.Lock()
	r.entries[id] = pr
	r.mu.Unlock()
	return pr, cctx
}

// resolve delivers a reply to the pending request with the given id, if one
// exists. It returns false if there was no matching pending request (an
// unsolicited or late-duplicate reply).
func (r *pendingRegistry) resolve(id string, result []byte, rpcErr *jsonrpc2.WireError) bool {
	r.mu.Lock()
	pr, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	var err error
	if rpcErr != nil {
		err = rpcErr
	}
	pr.result <- pendingResult{raw: result, err: err}
	return true
}

// cancelRequest cancels the pending request with the given id, if any, and removes
// it from the registry. It reports whether a request was found.
func (r *pendingRegistry) cancelRequest(id string) bool {
	r.mu.Lock()
	pr, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	pr.cancel()
	return true
}

// cancelAll cancels every pending request, used by Server.terminate through
// Session.cancelAllPending (spec §5 "Cancellation").
func (r *pendingRegistry) cancelAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*PendingRequest)
	r.mu.Unlock()
	for _, pr := range entries {
		pr.cancel()
	}
}

// wait blocks until the pending request resolves, its context is canceled,
// or the context passed to wait is done.
func (r *PendingRequest) wait(ctx context.Context) ([]byte, error) {
	select {
	case res := <-r.result:
		return res.raw, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// len reports the number of pending requests, for tests and diagnostics.
func (r *pendingRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
