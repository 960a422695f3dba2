// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/modelcontextprotocol/mcp-core/internal/jsonrpc2"
	"github.com/modelcontextprotocol/mcp-core/internal/mcpgodebug"
	"github.com/modelcontextprotocol/mcp-core/jsonrpc"
)

// defaultPageSize bounds every paginated list response. Cursors are the
// decimal string offset into the underlying slice: opaque to the caller,
// stable for the lifetime of one tools/list-style listing.
const defaultPageSize = 50

// paginate slices items starting at the offset cursor decodes to, and
// returns the next cursor (empty once exhausted).
func paginate[T any](items []T, cursor string) ([]T, string, error) {
	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return nil, "", fmt.Errorf("%w: invalid cursor", ErrInvalidParams)
		}
		offset = n
	}
	if offset > len(items) {
		return nil, "", fmt.Errorf("%w: cursor out of range", ErrInvalidParams)
	}
	end := offset + defaultPageSize
	var next string
	if end < len(items) {
		next = strconv.Itoa(end)
	} else {
		end = len(items)
	}
	return items[offset:end], next, nil
}

// requestHandler processes one request's raw params and returns a Result.
type requestHandler func(ctx context.Context, ss *ServerSession, raw json.RawMessage) (Result, error)

// notificationHandler processes one notification's raw params.
type notificationHandler func(ctx context.Context, ss *ServerSession, raw json.RawMessage)

// dispatchTable is the exact method -> handler map for server-bound
// requests (spec §4.2). Built lazily per Server so that handlers can close
// over s.
func (s *Server) dispatchTable() map[string]requestHandler {
	return map[string]requestHandler{
		"tools/list": func(ctx context.Context, ss *ServerSession, raw json.RawMessage) (Result, error) {
			var p ListToolsParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			page, next, err := paginate(s.tools.list(), p.Cursor)
			if err != nil {
				return nil, err
			}
			return &ListToolsResult{ListResult: ListResult{NextCursor: next}, Tools: page}, nil
		},
		"tools/call": func(ctx context.Context, ss *ServerSession, raw json.RawMessage) (Result, error) {
			var p CallToolParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			st, ok := s.tools.get(p.Name)
			if !ok {
				return nil, fmt.Errorf("%w: unknown tool %q", ErrResourceNotFound, p.Name)
			}
			req := &ServerRequest[*CallToolParams]{Session: ss, Params: &p}
			return st.call(ctx, req, p.Arguments)
		},
		"resources/list": func(ctx context.Context, ss *ServerSession, raw json.RawMessage) (Result, error) {
			var p ListResourcesParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			page, next, err := paginate(s.resources.list(), p.Cursor)
			if err != nil {
				return nil, err
			}
			return &ListResourcesResult{ListResult: ListResult{NextCursor: next}, Resources: page}, nil
		},
		"resources/templates/list": func(ctx context.Context, ss *ServerSession, raw json.RawMessage) (Result, error) {
			var p ListResourceTemplatesParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			page, next, err := paginate(s.resources.listTemplates(), p.Cursor)
			if err != nil {
				return nil, err
			}
			return &ListResourceTemplatesResult{ListResult: ListResult{NextCursor: next}, ResourceTemplates: page}, nil
		},
		"resources/read": func(ctx context.Context, ss *ServerSession, raw json.RawMessage) (Result, error) {
			var p ReadResourceParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			return s.readResource(ctx, ss, &p)
		},
		"resources/subscribe": func(ctx context.Context, ss *ServerSession, raw json.RawMessage) (Result, error) {
			var p SubscribeParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			s.subs.subscribe(p.URI, ss.ID())
			ss.session.addSubscription(p.URI)
			return &SubscribeResult{}, nil
		},
		"resources/unsubscribe": func(ctx context.Context, ss *ServerSession, raw json.RawMessage) (Result, error) {
			var p UnsubscribeParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			s.subs.unsubscribe(p.URI, ss.ID())
			ss.session.removeSubscription(p.URI)
			return &UnsubscribeResult{}, nil
		},
		"prompts/list": func(ctx context.Context, ss *ServerSession, raw json.RawMessage) (Result, error) {
			var p ListPromptsParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			page, next, err := paginate(s.prompts.list(), p.Cursor)
			if err != nil {
				return nil, err
			}
			return &ListPromptsResult{ListResult: ListResult{NextCursor: next}, Prompts: page}, nil
		},
		"prompts/get": func(ctx context.Context, ss *ServerSession, raw json.RawMessage) (Result, error) {
			var p GetPromptParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			return s.getPrompt(ctx, ss, &p)
		},
		"completion/complete": func(ctx context.Context, ss *ServerSession, raw json.RawMessage) (Result, error) {
			var p CompleteParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			return s.complete(ctx, ss, &p)
		},
		"logging/setLevel": func(ctx context.Context, ss *ServerSession, raw json.RawMessage) (Result, error) {
			var p SetLoggingLevelParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			ss.session.mu.Lock()
			ss.session.logLevel = p.Level
			ss.session.mu.Unlock()
			return &SetLoggingLevelResult{}, nil
		},
	}
}

// notificationTable is the method -> handler map for server-bound
// notifications (spec §4.2).
func (s *Server) notificationTable() map[string]notificationHandler {
	return map[string]notificationHandler{
		"notifications/cancelled": func(ctx context.Context, ss *ServerSession, raw json.RawMessage) {
			var p CancelledParams
			if err := decodeParams(raw, &p); err != nil {
				return
			}
			ss.session.CancelRequest(fmt.Sprint(p.RequestID))
		},
		"notifications/initialized": func(ctx context.Context, ss *ServerSession, raw json.RawMessage) {},
	}
}

// decodeParams strictly decodes raw into p, tolerating an absent (empty)
// params object. MCPGODEBUG=strictparams=0 relaxes this to a plain
// json.Unmarshal, for interop with clients that send duplicate or
// differently-cased keys a strict decode would reject.
func decodeParams(raw json.RawMessage, p any) error {
	if len(raw) == 0 {
		return nil
	}
	if mcpgodebug.Value("strictparams") == "0" {
		if err := json.Unmarshal(raw, p); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		return nil
	}
	if err := jsonrpc2.StrictUnmarshal(raw, p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// HandleMessage is the protocol router's entry point: it decodes one raw
// client message, records it in the session's event log, and either
// dispatches a request/notification or resolves a pending outbound
// request with an inbound response (spec §4.2).
//
// ping is special-cased: spec §4.2 requires it to "reply {} immediately;
// do NOT record in event log", so it never reaches RecordClientMessage or
// Session.Reply and is answered by a direct channel write instead.
func (s *Server) HandleMessage(ctx context.Context, ss *ServerSession, raw []byte) error {
	msg, err := jsonrpc.DecodeMessage(raw)
	if err != nil {
		we := jsonrpc2.NewError(CodeParseError, err.Error(), nil)
		return ss.session.Reply(ctx, &jsonrpc.Response{Error: we}, "")
	}

	switch m := msg.(type) {
	case *jsonrpc.Request:
		if m.Method == "ping" {
			b, err := json.Marshal(&PingResult{})
			if err != nil {
				return err
			}
			return ss.session.replyDirect(ctx, &jsonrpc.Response{ID: m.ID, Result: b})
		}
		ss.session.RecordClientMessage(raw, "")
		return s.dispatch(ctx, ss, m)
	case *jsonrpc.Notification:
		ss.session.RecordClientMessage(raw, "")
		if h, ok := s.notificationTable()[m.Method]; ok {
			h(ctx, ss, m.Params)
		}
		return nil
	case *jsonrpc.Response:
		ss.session.RecordClientMessage(raw, "")
		id := m.ID.String()
		var rpcErr *jsonrpc2.WireError
		if m.Error != nil {
			rpcErr = m.Error
		}
		ss.session.pending.resolve(id, m.Result, rpcErr)
		return nil
	default:
		return nil
	}
}

// dispatch runs one request through the method table and writes its
// response (or error) back via Session.Reply, tagging the reply with the
// request's id for resumption correlation (spec §4.1).
func (s *Server) dispatch(ctx context.Context, ss *ServerSession, req *jsonrpc.Request) error {
	reqID := req.ID.String()
	handler, ok := s.dispatchTable()[req.Method]
	if !ok {
		return ss.session.Reply(ctx, &jsonrpc.Response{
			ID:    req.ID,
			Error: unknownMethodWireError(req.Method),
		}, reqID)
	}

	_, cancelCtx := ss.session.pending.register(ctx, reqID, req.Method)
	result, err := handler(cancelCtx, ss, req.Params)
	// Release the registry entry and its context now that the handler has
	// returned; a notifications/cancelled arriving after this point finds
	// nothing to cancel.
	ss.session.pending.cancelRequest(reqID)

	if err != nil {
		return ss.session.Reply(ctx, &jsonrpc.Response{ID: req.ID, Error: NewWireError(err)}, reqID)
	}
	b, err := json.Marshal(result)
	if err != nil {
		return ss.session.Reply(ctx, &jsonrpc.Response{ID: req.ID, Error: NewWireError(err)}, reqID)
	}
	return ss.session.Reply(ctx, &jsonrpc.Response{ID: req.ID, Result: b}, reqID)
}
