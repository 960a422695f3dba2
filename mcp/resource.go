// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/mcp-core/jsonrpc"
)

// ResourceHandler reads the contents of uri. A host registers one per
// concrete resource (or per template) via AddResource/AddResourceTemplate;
// the handler's own logic for locating and rendering content is
// application-provided.
type ResourceHandler func(ctx context.Context, req *ServerRequest[*ReadResourceParams]) (*ReadResourceResult, error)

type serverResource struct {
	resource *Resource
	handler  ResourceHandler
}

type serverResourceTemplate struct {
	template *ResourceTemplate
	handler  ResourceHandler
}

// resourceRegistry holds concrete resources and URI templates, preserving
// registration order for resources/list and resources/templates/list.
type resourceRegistry struct {
	mu        sync.Mutex
	byURI     map[string]*serverResource
	order     []string
	templates []*serverResourceTemplate
	onChange  func()
}

func newResourceRegistry() *resourceRegistry {
	return &resourceRegistry{byURI: make(map[string]*serverResource)}
}

func (r *resourceRegistry) add(sr *serverResource) {
	r.mu.Lock()
	uri := sr.resource.URI
	if _, exists := r.byURI[uri]; !exists {
		r.order = append(r.order, uri)
	}
	r.byURI[uri] = sr
	onChange := r.onChange
	r.mu.Unlock()
	if onChange != nil {
		onChange()
	}
}

func (r *resourceRegistry) remove(uri string) bool {
	r.mu.Lock()
	_, ok := r.byURI[uri]
	if ok {
		delete(r.byURI, uri)
		for i, u := range r.order {
			if u == uri {
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

func (r *resourceRegistry) addTemplate(st *serverResourceTemplate) {
	r.mu.Lock()
	r.templates = append(r.templates, st)
	onChange := r.onChange
	r.mu.Unlock()
	if onChange != nil {
		onChange()
	}
}

func (r *resourceRegistry) get(uri string) (*serverResource, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sr, ok := r.byURI[uri]
	return sr, ok
}

func (r *resourceRegistry) templateFor(uri string) (*serverResourceTemplate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.templates {
		if t.handler != nil {
			return t, true
		}
	}
	return nil, false
}

func (r *resourceRegistry) list() []*Resource {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Resource, 0, len(r.order))
	for _, uri := range r.order {
		out = append(out, r.byURI[uri].resource)
	}
	return out
}

func (r *resourceRegistry) listTemplates() []*ResourceTemplate {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ResourceTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t.template)
	}
	return out
}

// AddResource registers a concrete resource with its read handler.
func (s *Server) AddResource(r *Resource, h ResourceHandler) {
	s.resourceOnChange()
	s.resources.add(&serverResource{resource: r, handler: h})
}

// AddResourceTemplate registers a URI template whose instances are all
// served by h.
func (s *Server) AddResourceTemplate(t *ResourceTemplate, h ResourceHandler) {
	s.resourceOnChange()
	s.resources.addTemplate(&serverResourceTemplate{template: t, handler: h})
}

// RemoveResource unregisters a concrete resource by URI.
func (s *Server) RemoveResource(uri string) bool {
	return s.resources.remove(uri)
}

func (s *Server) resourceOnChange() {
	s.resources.mu.Lock()
	if s.resources.onChange == nil {
		s.resources.onChange = func() { s.broadcastListChanged(context.Background(), "notifications/resources/list_changed") }
	}
	s.resources.mu.Unlock()
}

// readResource dispatches resources/read to the registered handler for the
// matching concrete resource, falling back to the first registered
// template handler (template matching itself is application-provided,
// since it depends on the URI scheme in use).
func (s *Server) readResource(ctx context.Context, ss *ServerSession, p *ReadResourceParams) (*ReadResourceResult, error) {
	req := &ServerRequest[*ReadResourceParams]{Session: ss, Params: p}
	if sr, ok := s.resources.get(p.URI); ok {
		return sr.handler(ctx, req)
	}
	if st, ok := s.resources.templateFor(p.URI); ok {
		return st.handler(ctx, req)
	}
	return nil, fmt.Errorf("%w: %s", ErrResourceNotFound, p.URI)
}

// NotifyResourceUpdate sends resources/updated to every session subscribed
// to uri. It is the operation a host calls when a resource it serves
// changes (spec §4.4). Per design decision, duplicate notifications for the
// same (session, uri) pair within a short window are not coalesced: every
// call sends a fresh notification.
func (s *Server) NotifyResourceUpdate(ctx context.Context, uri string) {
	for _, sessionID := range s.subs.subscribers(uri) {
		s.mu.Lock()
		sess, ok := s.active[sessionID]
		s.mu.Unlock()
		if !ok {
			continue
		}
		b, err := encodeParams(&ResourceUpdatedNotificationParams{URI: uri})
		if err != nil {
			continue
		}
		_ = sess.Reply(ctx, &jsonrpc.Notification{Method: "notifications/resources/updated", Params: b}, "")
	}
}
