// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"sync"
)

// CompletionHandler returns candidate values for one prompt or resource
// argument given its partial value and any already-resolved arguments.
type CompletionHandler func(ctx context.Context, req *ServerRequest[*CompleteParams]) (*CompletionResultDetails, error)

type completionKey struct {
	refType string
	name    string
}

// completionRegistry maps (ref.type, ref.name-or-uri) to its handler.
type completionRegistry struct {
	mu       sync.Mutex
	handlers map[completionKey]CompletionHandler
}

func newCompletionRegistry() *completionRegistry {
	return &completionRegistry{handlers: make(map[completionKey]CompletionHandler)}
}

func (r *completionRegistry) set(refType, name string, h CompletionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[completionKey{refType, name}] = h
}

func (r *completionRegistry) get(refType, name string) (CompletionHandler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handlers[completionKey{refType, name}]
	return h, ok
}

// AddPromptCompletion registers a completion handler for one argument of
// the named prompt.
func (s *Server) AddPromptCompletion(promptName string, h CompletionHandler) {
	s.completions.set("ref/prompt", promptName, h)
}

// AddResourceCompletion registers a completion handler for one argument of
// the resource template identified by uri.
func (s *Server) AddResourceCompletion(uri string, h CompletionHandler) {
	s.completions.set("ref/resource", uri, h)
}

// complete dispatches completion/complete to the registered handler for
// p.Ref. An unregistered reference yields an empty candidate list rather
// than an error, matching clients' expectation that completion is always
// best-effort.
func (s *Server) complete(ctx context.Context, ss *ServerSession, p *CompleteParams) (*CompleteResult, error) {
	if p.Ref == nil {
		return &CompleteResult{}, nil
	}
	name := p.Ref.Name
	if p.Ref.Type == "ref/resource" {
		name = p.Ref.URI
	}
	h, ok := s.completions.get(p.Ref.Type, name)
	if !ok {
		return &CompleteResult{}, nil
	}
	req := &ServerRequest[*CompleteParams]{Session: ss, Params: p}
	details, err := h(ctx, req)
	if err != nil {
		return nil, err
	}
	if details == nil {
		details = &CompletionResultDetails{}
	}
	return &CompleteResult{Completion: *details}, nil
}
