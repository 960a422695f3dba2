// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package jsonrpc re-exports the JSON-RPC 2.0 envelope types used on the
// wire, so that transport implementations outside this module (custom
// net.Conn framings, test doubles, alternate HTTP routers) can construct and
// inspect messages without importing the internal codec package directly.
package jsonrpc

import "github.com/modelcontextprotocol/mcp-core/internal/jsonrpc2"

type (
	// Message is the common interface satisfied by Request, Response, and
	// Notification.
	Message = jsonrpc2.Message
	// Request is a JSON-RPC call expecting a matching Response.
	Request = jsonrpc2.Request
	// Response carries the result of a Request.
	Response = jsonrpc2.Response
	// Notification is a one-way message with no ID.
	Notification = jsonrpc2.Notification
	// ID is a JSON-RPC request identifier.
	ID = jsonrpc2.ID
	// WireError is the JSON-RPC 2.0 error object.
	WireError = jsonrpc2.WireError
)

// Int64ID creates a new ID with an integer value.
func Int64ID(i int64) ID { return jsonrpc2.Int64ID(i) }

// StringID creates a new ID with a string value.
func StringID(s string) ID { return jsonrpc2.StringID(s) }

// EncodeMessage encodes a Message as a JSON-RPC 2.0 envelope.
func EncodeMessage(msg Message) ([]byte, error) { return jsonrpc2.EncodeMessage(msg) }

// DecodeMessage decodes a single JSON-RPC 2.0 envelope.
func DecodeMessage(data []byte) (Message, error) { return jsonrpc2.DecodeMessage(data) }

// DecodeBatch decodes a single envelope or a JSON-RPC 2.0 batch array.
func DecodeBatch(data []byte) ([]Message, error) { return jsonrpc2.DecodeBatch(data) }
