// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package jsonrpc2

import (
	"errors"
	"fmt"
	"testing"
)

func TestIDRawAndString(t *testing.T) {
	if got := Int64ID(7).Raw(); got != int64(7) {
		t.Errorf("Int64ID(7).Raw() = %v, want int64(7)", got)
	}
	if got := StringID("x").Raw(); got != "x" {
		t.Errorf(`StringID("x").Raw() = %v, want "x"`, got)
	}
	if got := (ID{}).Raw(); got != nil {
		t.Errorf("zero ID.Raw() = %v, want nil", got)
	}
	if (ID{}).IsValid() {
		t.Error("zero ID.IsValid() = true, want false")
	}
	if !Int64ID(1).IsValid() {
		t.Error("Int64ID(1).IsValid() = false, want true")
	}
	if got := Int64ID(42).String(); got != "42" {
		t.Errorf("Int64ID(42).String() = %q, want %q", got, "42")
	}
	if got := StringID("abc").String(); got != "abc" {
		t.Errorf("StringID(%q).String() = %q", "abc", got)
	}
}

func TestIDMarshalUnmarshalJSON(t *testing.T) {
	cases := []ID{Int64ID(5), StringID("req-1"), {}}
	for _, id := range cases {
		b, err := id.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON(%v): %v", id, err)
		}
		var got ID
		if err := got.UnmarshalJSON(b); err != nil {
			t.Fatalf("UnmarshalJSON(%s): %v", b, err)
		}
		if got != id {
			t.Errorf("round trip %v -> %s -> %v", id, b, got)
		}
	}
}

func TestIDUnmarshalJSONInvalid(t *testing.T) {
	var id ID
	if err := id.UnmarshalJSON([]byte(`{"bad":true}`)); err == nil {
		t.Error("expected an error decoding an object as an ID")
	}
}

func TestWireErrorError(t *testing.T) {
	e := NewError(-32600, "Invalid Request", nil)
	if got, want := e.Error(), "Invalid Request (code -32600)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestNewErrorMarshalsData(t *testing.T) {
	e := NewError(1, "oops", map[string]string{"key": "value"})
	if len(e.Data) == 0 {
		t.Fatal("Data was not populated")
	}
}

func TestEncodeDecodeMessageRequest(t *testing.T) {
	req := &Request{ID: Int64ID(1), Method: "ping"}
	data, err := EncodeMessage(req)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	msg, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	got, ok := msg.(*Request)
	if !ok {
		t.Fatalf("got %T, want *Request", msg)
	}
	if got.Method != "ping" || got.ID.Raw() != int64(1) {
		t.Errorf("got = %+v", got)
	}
}

func TestEncodeDecodeMessageNotification(t *testing.T) {
	data, err := EncodeMessage(&Notification{Method: "notifications/initialized"})
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	msg, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if _, ok := msg.(*Notification); !ok {
		t.Fatalf("got %T, want *Notification", msg)
	}
}

func TestEncodeDecodeMessageResponse(t *testing.T) {
	data, err := EncodeMessage(&Response{ID: StringID("1"), Result: []byte(`{"ok":true}`)})
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	msg, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	resp, ok := msg.(*Response)
	if !ok {
		t.Fatalf("got %T, want *Response", msg)
	}
	if resp.ID.Raw() != "1" {
		t.Errorf("ID = %v, want %q", resp.ID.Raw(), "1")
	}
}

func TestDecodeMessageRejectsEmptyEnvelope(t *testing.T) {
	if _, err := DecodeMessage([]byte(`{"jsonrpc":"2.0"}`)); err == nil {
		t.Error("expected an error for an envelope with neither method nor id")
	}
}

func TestEncodeMessageRejectsUnknownType(t *testing.T) {
	if _, err := EncodeMessage(nil); err == nil {
		t.Error("expected an error encoding a nil message")
	}
}

func TestDecodeBatchSingle(t *testing.T) {
	msgs, err := DecodeBatch([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
}

func TestDecodeBatchArray(t *testing.T) {
	msgs, err := DecodeBatch([]byte(`[{"jsonrpc":"2.0","id":1,"method":"a"},{"jsonrpc":"2.0","id":2,"method":"b"}]`))
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
}

func TestDecodeBatchRejectsEmpty(t *testing.T) {
	if _, err := DecodeBatch(nil); err == nil {
		t.Error("expected an error for empty input")
	}
	if _, err := DecodeBatch([]byte(`[]`)); err == nil {
		t.Error("expected an error for an empty batch array")
	}
}

func TestStrictUnmarshalRejectsUnknownField(t *testing.T) {
	type target struct {
		Name string `json:"name"`
	}
	var v target
	if err := StrictUnmarshal([]byte(`{"name":"a","extra":1}`), &v); err == nil {
		t.Error("expected an error for an unknown field")
	}
}

func TestStrictUnmarshalRejectsCaseVariantDuplicateKeys(t *testing.T) {
	type target struct {
		Name string `json:"name"`
	}
	var v target
	if err := StrictUnmarshal([]byte(`{"name":"a","Name":"b"}`), &v); err == nil {
		t.Error("expected an error for case-variant duplicate keys")
	}
}

func TestStrictUnmarshalRejectsFieldCaseMismatch(t *testing.T) {
	type target struct {
		Name string `json:"name"`
	}
	var v target
	if err := StrictUnmarshal([]byte(`{"Name":"a"}`), &v); err == nil {
		t.Error("expected an error for a case-mismatched field name")
	}
}

func TestStrictUnmarshalAcceptsWellFormedInput(t *testing.T) {
	type target struct {
		Name string `json:"name"`
		N    int    `json:"n,omitempty"`
	}
	var v target
	if err := StrictUnmarshal([]byte(`{"name":"a","n":3}`), &v); err != nil {
		t.Fatalf("StrictUnmarshal: %v", err)
	}
	if v.Name != "a" || v.N != 3 {
		t.Errorf("v = %+v", v)
	}
}

func TestNewErrorFromGoNil(t *testing.T) {
	if got := NewErrorFromGo(nil); got != nil {
		t.Errorf("NewErrorFromGo(nil) = %v, want nil", got)
	}
}

func TestNewErrorFromGoPassesThroughWireError(t *testing.T) {
	we := NewError(CodeInvalidParams, "bad params", nil)
	if got := NewErrorFromGo(we); got != we {
		t.Errorf("NewErrorFromGo did not pass through an existing *WireError unchanged")
	}
}

func TestNewErrorFromGoMapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		code int64
	}{
		{ErrParse, CodeParseError},
		{ErrInvalidRequest, CodeInvalidRequest},
		{ErrMethodNotFound, CodeMethodNotFound},
		{ErrInvalidParams, CodeInvalidParams},
		{errors.New("unrecognized"), CodeInternalError},
		{fmt.Errorf("wrapped: %w", ErrMethodNotFound), CodeMethodNotFound},
	}
	for _, c := range cases {
		we := NewErrorFromGo(c.err)
		if we.Code != c.code {
			t.Errorf("NewErrorFromGo(%v).Code = %d, want %d", c.err, we.Code, c.code)
		}
	}
}

func TestStrictUnmarshalChecksNestedDuplicateKeys(t *testing.T) {
	type inner struct {
		Value string `json:"value"`
	}
	type target struct {
		Inner inner `json:"inner"`
	}
	var v target
	if err := StrictUnmarshal([]byte(`{"inner":{"value":"a","Value":"b"}}`), &v); err == nil {
		t.Error("expected an error for a case-variant duplicate key nested inside an object")
	}
}
