// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package jsonrpc2

import "errors"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Sentinel errors for the standard codes, matched with errors.Is by callers
// that need to distinguish request-shape failures from handler failures.
var (
	ErrParse          = errors.New("parse error")
	ErrInvalidRequest = errors.New("invalid request")
	ErrMethodNotFound = errors.New("method not found")
	ErrInvalidParams  = errors.New("invalid params")
	ErrInternal       = errors.New("internal error")
)

// codeForSentinel maps a sentinel error to its wire code. Unknown errors map
// to CodeInternalError.
func codeForSentinel(err error) int64 {
	switch {
	case errors.Is(err, ErrParse):
		return CodeParseError
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	case errors.Is(err, ErrMethodNotFound):
		return CodeMethodNotFound
	case errors.Is(err, ErrInvalidParams):
		return CodeInvalidParams
	default:
		return CodeInternalError
	}
}

// NewErrorFromGo builds a WireError from a Go error, using a stable code for
// recognized sentinels and CodeInternalError otherwise.
func NewErrorFromGo(err error) *WireError {
	if err == nil {
		return nil
	}
	var we *WireError
	if errors.As(err, &we) {
		return we
	}
	return NewError(codeForSentinel(err), err.Error(), nil)
}
