// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// ToolHandler handles a tools/call request for one registered tool. args is
// the raw, schema-validated arguments object.
type ToolHandler func(ctx context.Context, req *ServerRequest[*CallToolParams], args json.RawMessage) (*CallToolResult, error)

// TypedToolHandler is a ToolHandler whose input and output are concrete Go
// types rather than raw JSON, inferred into a schema via reflection.
type TypedToolHandler[In, Out any] func(context.Context, *ServerRequest[*CallToolParams], In) (*CallToolResult, Out, error)

// serverTool is the internal, resolved registration behind a public Tool.
type serverTool struct {
	tool           *Tool
	handler        ToolHandler
	inputResolved  *jsonschema.Resolved
	outputResolved *jsonschema.Resolved
}

// newServerTool resolves t's schemas and pairs them with h. The resulting
// serverTool's call method validates arguments before h runs and converts
// h's errors to an in-band CallToolResult with IsError set, not a JSON-RPC
// error, so tool execution failures reach the model instead of failing the
// protocol exchange.
func newServerTool(t *Tool, h ToolHandler) (*serverTool, error) {
	if t.InputSchema == nil {
		return nil, errors.New("missing input schema")
	}
	st := &serverTool{tool: t, handler: h}
	resolved, err := t.InputSchema.Resolve(&jsonschema.ResolveOptions{ValidateDefaults: true})
	if err != nil {
		return nil, fmt.Errorf("resolving input schema for tool %q: %w", t.Name, err)
	}
	st.inputResolved = resolved
	if t.OutputSchema != nil {
		resolved, err := t.OutputSchema.Resolve(&jsonschema.ResolveOptions{ValidateDefaults: true})
		if err != nil {
			return nil, fmt.Errorf("resolving output schema for tool %q: %w", t.Name, err)
		}
		st.outputResolved = resolved
	}
	return st, nil
}

// newTypedServerTool infers t's input/output schemas from the Go generic
// parameters In/Out and adapts h into the untyped ToolHandler shape.
func newTypedServerTool[In, Out any](t *Tool, h TypedToolHandler[In, Out]) (*serverTool, error) {
	if t.InputSchema == nil {
		schema, err := jsonschema.For[In](nil)
		if err != nil {
			return nil, fmt.Errorf("inferring input schema for tool %q: %w", t.Name, err)
		}
		t.InputSchema = schema
	}
	if t.OutputSchema == nil {
		var zero Out
		if _, isResult := any(zero).(Result); !isResult {
			schema, err := jsonschema.For[Out](nil)
			if err == nil {
				t.OutputSchema = schema
			}
		}
	}
	raw := func(ctx context.Context, req *ServerRequest[*CallToolParams], args json.RawMessage) (*CallToolResult, error) {
		var in In
		if len(args) > 0 {
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
			}
		}
		res, out, err := h(ctx, req, in)
		if err != nil {
			return nil, err
		}
		if res == nil {
			res = &CallToolResult{}
		}
		if res.StructuredContent == nil {
			res.StructuredContent = out
		}
		return res, nil
	}
	return newServerTool(t, raw)
}

// toolRegistry holds the tools a Server exposes, preserving registration
// order for tools/list.
type toolRegistry struct {
	mu      sync.Mutex
	byName  map[string]*serverTool
	order   []string
	onChange func()
}

func newToolRegistry() *toolRegistry {
	return &toolRegistry{byName: make(map[string]*serverTool)}
}

// add registers or replaces a tool and fires onChange, triggering a
// tools/list_changed notification.
func (r *toolRegistry) add(st *serverTool) {
	r.mu.Lock()
	name := st.tool.Name
	if _, exists := r.byName[name]; !exists {
		r.order = append(r.order, name)
	}
	r.byName[name] = st
	onChange := r.onChange
	r.mu.Unlock()
	if onChange != nil {
		onChange()
	}
}

// remove unregisters a tool by name, reporting whether it was present.
func (r *toolRegistry) remove(name string) bool {
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

// get looks up a tool by name.
func (r *toolRegistry) get(name string) (*serverTool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.byName[name]
	return st, ok
}

// list returns every registered Tool in registration order.
func (r *toolRegistry) list() []*Tool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].tool)
	}
	return out
}

// call validates args against the tool's resolved input schema, invokes the
// handler, and validates the result's structured content against the
// output schema if one is registered.
func (st *serverTool) call(ctx context.Context, req *ServerRequest[*CallToolParams], args json.RawMessage) (*CallToolResult, error) {
	var validated json.RawMessage
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	if err := unmarshalSchema(args, st.inputResolved, &validated); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	res, err := st.handler(ctx, req, validated)
	if err != nil {
		return &CallToolResult{
			Content: []Content{&TextContent{Text: err.Error()}},
			IsError: true,
		}, nil
	}
	if res == nil {
		res = &CallToolResult{}
	}
	if st.outputResolved != nil && res.StructuredContent != nil {
		if err := st.outputResolved.Validate(res.StructuredContent); err != nil {
			return nil, fmt.Errorf("tool %q produced invalid output: %w", st.tool.Name, err)
		}
	}
	return res, nil
}

// unmarshalSchema decodes data, applies the resolved schema's defaults,
// validates the result, and stores it re-encoded as JSON in v.
func unmarshalSchema(data json.RawMessage, resolved *jsonschema.Resolved, v *json.RawMessage) error {
	var m any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if resolved != nil {
		if err := resolved.ApplyDefaults(&m); err != nil {
			return err
		}
		if err := resolved.Validate(m); err != nil {
			return err
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	*v = b
	return nil
}
