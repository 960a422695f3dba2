// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"encoding/json"
	"fmt"
)

// Content is implemented by the content block types that can appear in a
// tool result, prompt message, or sampling message. Rendering of image and
// audio content is a Non-goal; only text content is implemented, but the
// interface is kept open so a host can add its own content types.
type Content interface {
	MarshalJSON() ([]byte, error)
	fromWire(*wireContent) error
}

// TextContent is a plain-text content block.
type TextContent struct {
	Annotations *Annotations `json:"annotations,omitempty"`
	Text        string       `json:"text"`
}

type wireContent struct {
	Type        string          `json:"type"`
	Text        string          `json:"text,omitempty"`
	Annotations *Annotations    `json:"annotations,omitempty"`
	Data        json.RawMessage `json:"-"`
}

func (c *TextContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(&wireContent{
		Type:        "text",
		Text:        c.Text,
		Annotations: c.Annotations,
	})
}

func (c *TextContent) fromWire(w *wireContent) error {
	if w.Type != "text" {
		return fmt.Errorf("mcp: expected content type %q, got %q", "text", w.Type)
	}
	c.Text = w.Text
	c.Annotations = w.Annotations
	return nil
}

// contentFromWire decodes a single content block, given its allow-list of
// recognized types. Only "text" is implemented; any other type, even one on
// the allow-list, yields an error.
func contentFromWire(raw json.RawMessage, allowed []string) (Content, error) {
	var w wireContent
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("mcp: decoding content: %w", err)
	}
	ok := false
	for _, t := range allowed {
		if t == w.Type {
			ok = true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("mcp: content type %q is not permitted here", w.Type)
	}
	switch w.Type {
	case "text":
		c := &TextContent{}
		if err := c.fromWire(&w); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("mcp: content type %q is not supported", w.Type)
	}
}

func contentsFromWire(raws []json.RawMessage, allowed []string) ([]Content, error) {
	out := make([]Content, 0, len(raws))
	for _, raw := range raws {
		c, err := contentFromWire(raw, allowed)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

var allowedToolContent = []string{"text"}

// UnmarshalJSON decodes a tools/call result, restricting content blocks to
// the types this module renders.
func (r *CallToolResult) UnmarshalJSON(data []byte) error {
	var wire struct {
		Meta
		Content           []json.RawMessage `json:"content"`
		IsError           bool              `json:"isError,omitempty"`
		StructuredContent any               `json:"structuredContent,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	contents, err := contentsFromWire(wire.Content, allowedToolContent)
	if err != nil {
		return err
	}
	r.Meta = wire.Meta
	r.Content = contents
	r.IsError = wire.IsError
	r.StructuredContent = wire.StructuredContent
	return nil
}

var allowedPromptContent = []string{"text"}

// UnmarshalJSON decodes a single prompt message, restricting its content
// block to the types this module renders.
func (m *PromptMessage) UnmarshalJSON(data []byte) error {
	var wire struct {
		Content json.RawMessage `json:"content"`
		Role    Role            `json:"role"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	c, err := contentFromWire(wire.Content, allowedPromptContent)
	if err != nil {
		return err
	}
	m.Content = c
	m.Role = wire.Role
	return nil
}
