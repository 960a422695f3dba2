// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/mcp-core/internal/jsonrpc2"
)

// Standard JSON-RPC 2.0 codes, re-exported here so callers need only import
// the mcp package.
const (
	CodeParseError     = jsonrpc2.CodeParseError
	CodeInvalidRequest = jsonrpc2.CodeInvalidRequest
	CodeMethodNotFound = jsonrpc2.CodeMethodNotFound
	CodeInvalidParams  = jsonrpc2.CodeInvalidParams
	CodeInternalError  = jsonrpc2.CodeInternalError
)

// MCP-specific error codes, chosen from the JSON-RPC reserved
// implementation-defined server-error range (-32000 to -32099), per spec §6.
const (
	CodeAuthorizationFailed = -32001
	CodeResourceNotFound    = -32002
	CodeSessionExpired      = -32003
	CodeSessionNotFound     = -32004
)

// Sentinel errors for the handler-facing error taxonomy (spec §7). Handlers
// return one of these (or a wrapped variant) to control the error code of
// the reply envelope; any other error becomes CodeInternalError.
var (
	ErrInvalidParams      = jsonrpc2.ErrInvalidParams
	ErrMethodNotFound     = jsonrpc2.ErrMethodNotFound
	ErrInvalidRequest     = jsonrpc2.ErrInvalidRequest
	ErrInternal           = jsonrpc2.ErrInternal
	ErrAuthorizationFailed = errors.New("authorization failed")
	ErrResourceNotFound    = errors.New("resource not found")
	ErrSessionExpired      = errors.New("session expired")
	ErrSessionNotFound     = errors.New("session not found")
)

// WireError is a JSON-RPC 2.0 error object.
type WireError = jsonrpc2.WireError

// NewWireError builds a WireError from a Go error, mapping recognized
// sentinels to their stable codes and everything else to CodeInternalError.
func NewWireError(err error) *WireError {
	if err == nil {
		return nil
	}
	var we *WireError
	if errors.As(err, &we) {
		return we
	}
	code := int64(CodeInternalError)
	switch {
	case errors.Is(err, ErrParse):
		code = CodeParseError
	case errors.Is(err, ErrInvalidRequest):
		code = CodeInvalidRequest
	case errors.Is(err, ErrMethodNotFound):
		code = CodeMethodNotFound
	case errors.Is(err, ErrInvalidParams):
		code = CodeInvalidParams
	case errors.Is(err, ErrAuthorizationFailed):
		code = CodeAuthorizationFailed
	case errors.Is(err, ErrResourceNotFound):
		code = CodeResourceNotFound
	case errors.Is(err, ErrSessionExpired):
		code = CodeSessionExpired
	case errors.Is(err, ErrSessionNotFound):
		code = CodeSessionNotFound
	}
	return jsonrpc2.NewError(code, err.Error(), nil)
}

// ErrParse is re-exported for symmetry with the other sentinels above.
var ErrParse = jsonrpc2.ErrParse

// unknownMethodWireError builds the method-not-found error envelope with
// the exact message format the wire protocol uses: "Unknown request: foo/bar".
func unknownMethodWireError(method string) *WireError {
	return jsonrpc2.NewError(CodeMethodNotFound, fmt.Sprintf("Unknown request: %s", method), nil)
}
