// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package jsonrpc2

import (
	"encoding/json"
	"fmt"
)

// wireEnvelope is the superset of fields that can appear on any of the three
// message shapes; decoding probes which fields are present to decide which
// concrete type to produce.
type wireEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *WireError      `json:"error,omitempty"`
}

// DecodeMessage decodes a single JSON-RPC 2.0 envelope using strict
// validation (see StrictUnmarshal): unknown fields and case-variant
// duplicate keys are rejected.
func DecodeMessage(data []byte) (Message, error) {
	var env wireEnvelope
	if err := StrictUnmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("jsonrpc2: decode: %w", err)
	}
	switch {
	case env.Method != "" && env.ID != nil:
		return &Request{ID: *env.ID, Method: env.Method, Params: env.Params}, nil
	case env.Method != "":
		return &Notification{Method: env.Method, Params: env.Params}, nil
	case env.ID != nil:
		return &Response{ID: *env.ID, Result: env.Result, Error: env.Error}, nil
	default:
		return nil, fmt.Errorf("jsonrpc2: decode: envelope has neither method nor id")
	}
}

// EncodeMessage encodes a Request, Response, or Notification as a JSON-RPC
// 2.0 envelope, adding the required "jsonrpc":"2.0" field.
func EncodeMessage(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case *Request:
		return json.Marshal(struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      ID              `json:"id"`
			Method  string          `json:"method"`
			Params  json.RawMessage `json:"params,omitempty"`
		}{"2.0", m.ID, m.Method, m.Params})
	case *Response:
		return json.Marshal(struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      ID              `json:"id"`
			Result  json.RawMessage `json:"result,omitempty"`
			Error   *WireError      `json:"error,omitempty"`
		}{"2.0", m.ID, m.Result, m.Error})
	case *Notification:
		return json.Marshal(struct {
			JSONRPC string          `json:"jsonrpc"`
			Method  string          `json:"method"`
			Params  json.RawMessage `json:"params,omitempty"`
		}{"2.0", m.Method, m.Params})
	default:
		return nil, fmt.Errorf("jsonrpc2: encode: unknown message type %T", msg)
	}
}

// DecodeBatch decodes either a single envelope or a JSON array of envelopes,
// as permitted by JSON-RPC 2.0 batching.
func DecodeBatch(data []byte) ([]Message, error) {
	trimmed := trimLeadingSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("jsonrpc2: empty message")
	}
	if trimmed[0] != '[' {
		msg, err := DecodeMessage(data)
		if err != nil {
			return nil, err
		}
		return []Message{msg}, nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("jsonrpc2: decode batch: %w", err)
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("jsonrpc2: empty batch")
	}
	msgs := make([]Message, 0, len(raws))
	for _, raw := range raws {
		msg, err := DecodeMessage(raw)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func trimLeadingSpace(b []byte) []byte {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r') {
		i++
	}
	return b[i:]
}
