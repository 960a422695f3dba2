// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauthex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestWellKnownCandidatesNoPath(t *testing.T) {
	u := mustParseURL(t, "https://example.com")
	got := wellKnownCandidates(u)
	want := []string{"https://example.com/.well-known/oauth-authorization-server"}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("wellKnownCandidates = %v, want %v", got, want)
	}
}

func TestWellKnownCandidatesWithPath(t *testing.T) {
	u := mustParseURL(t, "https://example.com/tenant1")
	got := wellKnownCandidates(u)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0] != "https://example.com/.well-known/oauth-authorization-server/tenant1" {
		t.Errorf("candidate[0] = %q", got[0])
	}
	if got[1] != "https://example.com/tenant1/.well-known/oauth-authorization-server" {
		t.Errorf("candidate[1] = %q", got[1])
	}
}

func TestGetAuthServerMetaSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/oauth-authorization-server" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 issuerFor(r),
			"authorization_endpoint": issuerFor(r) + "/authorize",
			"token_endpoint":         issuerFor(r) + "/token",
		})
	}))
	defer srv.Close()

	meta, err := GetAuthServerMeta(context.Background(), srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("GetAuthServerMeta: %v", err)
	}
	if meta == nil {
		t.Fatal("GetAuthServerMeta returned nil metadata")
	}
	if meta.TokenEndpoint != srv.URL+"/token" {
		t.Errorf("TokenEndpoint = %q", meta.TokenEndpoint)
	}
}

func TestGetAuthServerMetaNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	meta, err := GetAuthServerMeta(context.Background(), srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("GetAuthServerMeta: %v", err)
	}
	if meta != nil {
		t.Errorf("meta = %+v, want nil when no metadata document exists", meta)
	}
}

func TestGetAuthServerMetaRejectsDisallowedScheme(t *testing.T) {
	if _, err := GetAuthServerMeta(context.Background(), "ftp://example.com", nil); err == nil {
		t.Error("expected an error for a non-http(s) issuer")
	}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q): %v", raw, err)
	}
	return u
}

func issuerFor(r *http.Request) string {
	scheme := "http"
	return scheme + "://" + r.Host
}
