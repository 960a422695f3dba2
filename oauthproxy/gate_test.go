// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauthproxy

import "testing"

func TestIsGateExempt(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/oauth/token", true},
		{"/.well-known/oauth-authorization-server", true},
		{"/health", true},
		{"/management/status", true},
		{"/mcp", false},
		{"/tools/call", false},
	}
	for _, c := range cases {
		if got := isGateExempt(c.path); got != c.want {
			t.Errorf("isGateExempt(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestHasAllScopes(t *testing.T) {
	if !hasAllScopes("mcp:read mcp:write", []string{"mcp:read"}) {
		t.Error("expected granted scopes to satisfy a subset requirement")
	}
	if hasAllScopes("mcp:read", []string{"mcp:read", "mcp:write"}) {
		t.Error("expected missing scope to fail the requirement")
	}
	if !hasAllScopes("anything", nil) {
		t.Error("expected no required scopes to always pass")
	}
}
