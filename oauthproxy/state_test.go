// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauthproxy

import (
	"strings"
	"testing"
	"time"
)

func TestStateSignerRoundTrip(t *testing.T) {
	signer, err := newStateSigner([]byte(strings.Repeat("a", 32)), 0)
	if err != nil {
		t.Fatalf("newStateSigner: %v", err)
	}

	ps := ProxyState{
		ClientID:      "client-1",
		RedirectURI:   "https://client.example/cb",
		OriginalState: "xyz",
		CodeChallenge: "abc123",
	}
	raw, err := signer.encode(ps)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := signer.decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ClientID != ps.ClientID || decoded.RedirectURI != ps.RedirectURI || decoded.OriginalState != ps.OriginalState {
		t.Errorf("decoded = %+v, want matching %+v", decoded, ps)
	}
}

func TestStateSignerRejectsTampering(t *testing.T) {
	signer, err := newStateSigner([]byte(strings.Repeat("a", 32)), 0)
	if err != nil {
		t.Fatalf("newStateSigner: %v", err)
	}
	raw, err := signer.encode(ProxyState{ClientID: "client-1"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	tampered := raw[:len(raw)-1] + "x"
	if _, err := signer.decode(tampered); err == nil {
		t.Error("decode accepted a tampered token")
	}
}

func TestStateSignerRejectsExpired(t *testing.T) {
	signer, err := newStateSigner([]byte(strings.Repeat("a", 32)), time.Nanosecond)
	if err != nil {
		t.Fatalf("newStateSigner: %v", err)
	}
	raw, err := signer.encode(ProxyState{ClientID: "client-1"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := signer.decode(raw); err == nil {
		t.Error("decode accepted an expired token")
	}
}

func TestNewStateSignerRejectsShortSecret(t *testing.T) {
	if _, err := newStateSigner([]byte("too-short"), 0); err == nil {
		t.Error("newStateSigner accepted a secret shorter than the minimum")
	}
}

func TestNewStateSignerDefaultsExpiry(t *testing.T) {
	signer, err := newStateSigner([]byte(strings.Repeat("a", 32)), 0)
	if err != nil {
		t.Fatalf("newStateSigner: %v", err)
	}
	if signer.expiry != defaultStateExpiry {
		t.Errorf("expiry = %v, want default %v", signer.expiry, defaultStateExpiry)
	}
}
