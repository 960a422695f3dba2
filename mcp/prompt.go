// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"fmt"
	"sync"
)

// PromptHandler renders a prompt given its arguments. Argument validation
// beyond presence of required names, and the content actually produced, are
// application-provided.
type PromptHandler func(ctx context.Context, req *ServerRequest[*GetPromptParams]) (*GetPromptResult, error)

type serverPrompt struct {
	prompt  *Prompt
	handler PromptHandler
}

// promptRegistry holds registered prompts in registration order.
type promptRegistry struct {
	mu       sync.Mutex
	byName   map[string]*serverPrompt
	order    []string
	onChange func()
}

func newPromptRegistry() *promptRegistry {
	return &promptRegistry{byName: make(map[string]*serverPrompt)}
}

func (r *promptRegistry) add(sp *serverPrompt) {
	r.mu.Lock()
	name := sp.prompt.Name
	if _, exists := r.byName[name]; !exists {
		r.order = append(r.order, name)
	}
	r.byName[name] = sp
	onChange := r.onChange
	r.mu.Unlock()
	if onChange != nil {
		onChange()
	}
}

func (r *promptRegistry) remove(name string) bool {
	r.mu.Lock()
	_, ok := r.byName[name]
	if ok {
		delete(r.byName, name)
		for i, n := range r.order {
			if n == name {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	onChange := r.onChange
	r.mu.Unlock()
	if ok && onChange != nil {
		onChange()
	}
	return ok
}

func (r *promptRegistry) get(name string) (*serverPrompt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, ok := r.byName[name]
	return sp, ok
}

func (r *promptRegistry) list() []*Prompt {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Prompt, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].prompt)
	}
	return out
}

// AddPrompt registers a prompt with its rendering handler.
func (s *Server) AddPrompt(p *Prompt, h PromptHandler) {
	s.promptOnChange()
	s.prompts.add(&serverPrompt{prompt: p, handler: h})
}

// RemovePrompt unregisters a prompt by name.
func (s *Server) RemovePrompt(name string) bool {
	return s.prompts.remove(name)
}

func (s *Server) promptOnChange() {
	s.prompts.mu.Lock()
	if s.prompts.onChange == nil {
		s.prompts.onChange = func() { s.broadcastListChanged(context.Background(), "notifications/prompts/list_changed") }
	}
	s.prompts.mu.Unlock()
}

// requiredArgsPresent checks that every required argument of p is present
// as a key in args, whatever its value (spec-level validation; the prompt's own
// rendering logic is application-provided).
func requiredArgsPresent(p *Prompt, args map[string]string) error {
	for _, a := range p.Arguments {
		if a.Required {
			if _, ok := args[a.Name]; !ok {
				return fmt.Errorf("%w: missing required argument %q", ErrInvalidParams, a.Name)
			}
		}
	}
	return nil
}

// getPrompt dispatches prompts/get to the registered handler.
func (s *Server) getPrompt(ctx context.Context, ss *ServerSession, p *GetPromptParams) (*GetPromptResult, error) {
	sp, ok := s.prompts.get(p.Name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown prompt %q", ErrResourceNotFound, p.Name)
	}
	if err := requiredArgsPresent(sp.prompt, p.Arguments); err != nil {
		return nil, err
	}
	req := &ServerRequest[*GetPromptParams]{Session: ss, Params: p}
	return sp.handler(ctx, req)
}
