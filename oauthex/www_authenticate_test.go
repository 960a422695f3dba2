// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauthex

import "testing"

func TestParseWWWAuthenticate(t *testing.T) {
	cs, err := ParseWWWAuthenticate([]string{`Bearer realm="example", error="invalid_token", scope="a b"`})
	if err != nil {
		t.Fatalf("ParseWWWAuthenticate: %v", err)
	}
	if len(cs) != 1 {
		t.Fatalf("got %d challenges, want 1", len(cs))
	}
	c := cs[0]
	if c.Scheme != "Bearer" {
		t.Errorf("Scheme = %q, want Bearer", c.Scheme)
	}
	if c.Params["realm"] != "example" || c.Params["error"] != "invalid_token" || c.Params["scope"] != "a b" {
		t.Errorf("Params = %+v", c.Params)
	}
}

func TestParseWWWAuthenticateMultipleSchemes(t *testing.T) {
	cs, err := ParseWWWAuthenticate([]string{`Bearer realm="a", Basic realm="b"`})
	if err != nil {
		t.Fatalf("ParseWWWAuthenticate: %v", err)
	}
	if len(cs) != 2 {
		t.Fatalf("got %d challenges, want 2", len(cs))
	}
	if cs[0].Scheme != "Bearer" || cs[1].Scheme != "Basic" {
		t.Errorf("schemes = %q, %q", cs[0].Scheme, cs[1].Scheme)
	}
}

func TestParseWWWAuthenticateMultipleHeaderValues(t *testing.T) {
	cs, err := ParseWWWAuthenticate([]string{`Bearer realm="a"`, `Basic realm="b"`})
	if err != nil {
		t.Fatalf("ParseWWWAuthenticate: %v", err)
	}
	if len(cs) != 2 {
		t.Fatalf("got %d challenges, want 2", len(cs))
	}
}

func TestResourceMetadataURL(t *testing.T) {
	cs := []challenge{{Scheme: "Bearer", Params: map[string]string{"resource_metadata": "https://example.com/.well-known/oauth-protected-resource"}}}
	if got := ResourceMetadataURL(cs); got != "https://example.com/.well-known/oauth-protected-resource" {
		t.Errorf("ResourceMetadataURL = %q", got)
	}
	if got := ResourceMetadataURL(nil); got != "" {
		t.Errorf("ResourceMetadataURL(nil) = %q, want empty", got)
	}
}

func TestScopes(t *testing.T) {
	cs := []challenge{{Scheme: "bearer", Params: map[string]string{"scope": "mcp:read mcp:write"}}}
	got := Scopes(cs)
	want := []string{"mcp:read", "mcp:write"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Scopes = %v, want %v", got, want)
	}
}

func TestScopesNoBearerChallenge(t *testing.T) {
	cs := []challenge{{Scheme: "Basic", Params: map[string]string{"scope": "x"}}}
	if got := Scopes(cs); got != nil {
		t.Errorf("Scopes = %v, want nil for a non-bearer challenge", got)
	}
}
