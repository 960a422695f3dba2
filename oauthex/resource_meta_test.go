// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauthex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGetProtectedResourceMetadataValidatesResource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"resource":"https://wrong.example"}`))
	}))
	defer srv.Close()

	_, err := GetProtectedResourceMetadata(context.Background(), ProtectedResourceMetadataURL{
		URL:      srv.URL,
		Resource: "https://resource.example",
	}, srv.Client())
	if err == nil {
		t.Error("expected an error when the resource field does not match")
	}
}

func TestGetProtectedResourceMetadataSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"resource":"https://resource.example","authorization_servers":["https://as.example"]}`))
	}))
	defer srv.Close()

	prm, err := GetProtectedResourceMetadata(context.Background(), ProtectedResourceMetadataURL{
		URL:      srv.URL,
		Resource: "https://resource.example",
	}, srv.Client())
	if err != nil {
		t.Fatalf("GetProtectedResourceMetadata: %v", err)
	}
	if len(prm.AuthorizationServers) != 1 || prm.AuthorizationServers[0] != "https://as.example" {
		t.Errorf("AuthorizationServers = %v", prm.AuthorizationServers)
	}
}

func TestGetProtectedResourceMetadataRejectsBadAuthServerScheme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"resource":"https://resource.example","authorization_servers":["javascript:alert(1)"]}`))
	}))
	defer srv.Close()

	_, err := GetProtectedResourceMetadata(context.Background(), ProtectedResourceMetadataURL{
		URL:      srv.URL,
		Resource: "https://resource.example",
	}, srv.Client())
	if err == nil {
		t.Error("expected an error for a disallowed authorization_servers scheme")
	}
}

func TestProtectedResourceMetadataURLsNoHeaderURL(t *testing.T) {
	got := ProtectedResourceMetadataURLs("", "https://resource.example/mcp")
	want := []ProtectedResourceMetadataURL{
		{URL: "https://resource.example/.well-known/oauth-protected-resource/mcp", Resource: "https://resource.example/mcp"},
		{URL: "https://resource.example/.well-known/oauth-protected-resource", Resource: "https://resource.example"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ProtectedResourceMetadataURLs(...) mismatch (-want +got):\n%s", diff)
	}
}

func TestProtectedResourceMetadataURLsWithHeaderURL(t *testing.T) {
	got := ProtectedResourceMetadataURLs("https://resource.example/.well-known/oauth-protected-resource", "https://resource.example/mcp")
	want := []ProtectedResourceMetadataURL{
		{URL: "https://resource.example/.well-known/oauth-protected-resource", Resource: "https://resource.example/mcp"},
		{URL: "https://resource.example/.well-known/oauth-protected-resource/mcp", Resource: "https://resource.example/mcp"},
		{URL: "https://resource.example/.well-known/oauth-protected-resource", Resource: "https://resource.example"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ProtectedResourceMetadataURLs(...) mismatch (-want +got):\n%s", diff)
	}
}
