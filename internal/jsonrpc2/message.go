// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package jsonrpc2 implements the JSON-RPC 2.0 message envelope used by the
// MCP wire protocol: requests, responses, notifications, and the batching
// and strict-validation rules layered on top of them.
package jsonrpc2

import (
	"encoding/json"
	"fmt"
)

// ID is a JSON-RPC request identifier: either a string or an integer.
// The zero ID is invalid and is never sent on the wire.
type ID struct {
	name   string
	number int64
	isSet  bool
	isStr  bool
}

// Int64ID creates a new ID with an integer value.
func Int64ID(i int64) ID { return ID{number: i, isSet: true} }

// StringID creates a new ID with a string value.
func StringID(s string) ID { return ID{name: s, isSet: true, isStr: true} }

// IsValid reports whether the ID was explicitly set.
func (id ID) IsValid() bool { return id.isSet }

// Raw returns the underlying value of the ID, as a string or an int64.
func (id ID) Raw() any {
	if !id.isSet {
		return nil
	}
	if id.isStr {
		return id.name
	}
	return id.number
}

func (id ID) String() string {
	if id.isStr {
		return id.name
	}
	return fmt.Sprintf("%d", id.number)
}

func (id ID) MarshalJSON() ([]byte, error) {
	if !id.isSet {
		return []byte("null"), nil
	}
	if id.isStr {
		return json.Marshal(id.name)
	}
	return json.Marshal(id.number)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	*id = ID{}
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID{name: s, isSet: true, isStr: true}
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("jsonrpc2: invalid id %s: %w", data, err)
	}
	*id = ID{number: n, isSet: true}
	return nil
}

// Message is the common interface satisfied by Request, Response, and
// Notification: the three shapes a JSON-RPC 2.0 envelope can take.
type Message interface {
	isMessage()
}

// Request is a JSON-RPC call that expects a Response carrying the same ID.
type Request struct {
	ID     ID              `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

func (*Request) isMessage() {}

// IsCall reports whether this request expects a response. All Request
// values constructed through normal decoding have a valid ID and so always
// expect a response; the method exists for symmetry with Notification.
func (r *Request) IsCall() bool { return r.ID.IsValid() }

// Response carries the result of a Request with a matching ID. Exactly one
// of Result or Error is set.
type Response struct {
	ID     ID              `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *WireError      `json:"error,omitempty"`
}

func (*Response) isMessage() {}

// Notification is a one-way message: it has no ID and receives no Response.
type Notification struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

func (*Notification) isMessage() {}

// WireError is the JSON-RPC 2.0 error object.
type WireError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *WireError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// NewError builds a WireError, marshaling data into the Data field if it is
// non-nil.
func NewError(code int64, message string, data any) *WireError {
	we := &WireError{Code: code, Message: message}
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			we.Data = b
		}
	}
	return we
}
