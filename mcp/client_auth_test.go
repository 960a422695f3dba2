// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelcontextprotocol/mcp-core/auth"
	"github.com/modelcontextprotocol/mcp-core/jsonrpc"
	"golang.org/x/oauth2"
)

// fakeInitializeResponse writes a successful initialize response for req.
func fakeInitializeResponse(w http.ResponseWriter, req *jsonrpc.Request) {
	result := &InitializeResult{
		Capabilities:    &ServerCapabilities{},
		ProtocolVersion: protocolVersions[0],
		ServerInfo:      &Implementation{Name: "fake-server", Version: "1.0.0"},
	}
	raw, _ := json.Marshal(result)
	resp := &jsonrpc.Response{ID: req.ID, Result: raw}
	data, _ := jsonrpc.EncodeMessage(resp)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Mcp-Session-Id", "test-session-1")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// TestClientAttachesOAuthBearerToken checks that a Client with an
// OAuthHandler already holding a token attaches it to every outgoing
// request, without needing to go through a 401 round trip first.
func TestClientAttachesOAuthBearerToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			<-r.Context().Done()
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer preset-token" {
			t.Errorf("Authorization header = %q, want Bearer preset-token", got)
		}
		body, _ := io.ReadAll(r.Body)
		msg, _ := jsonrpc.DecodeMessage(body)
		req, ok := msg.(*jsonrpc.Request)
		if !ok || req.Method != "initialize" {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		fakeInitializeResponse(w, req)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewClient(&Implementation{Name: "fake-client", Version: "1.0.0"}, &ClientCapabilities{}, srv.URL, srv.Client())
	c.OAuthHandler = &auth.FakeOAuthHandler{Token: &oauth2.Token{AccessToken: "preset-token"}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	c.Disconnect(context.Background(), "test done")
}

// statefulOAuthHandler starts with no token and issues one the first time
// Authorize is called, simulating a real OAuth flow completing after a 401.
type statefulOAuthHandler struct {
	token      *oauth2.Token
	authorized bool
}

func (h *statefulOAuthHandler) isOAuthHandler() {}

func (h *statefulOAuthHandler) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if h.token == nil {
		return nil, nil
	}
	return oauth2.StaticTokenSource(h.token), nil
}

func (h *statefulOAuthHandler) Authorize(ctx context.Context, req *http.Request, resp *http.Response) error {
	defer resp.Body.Close()
	h.authorized = true
	h.token = &oauth2.Token{AccessToken: "issued-after-401"}
	return nil
}

var _ auth.OAuthHandler = (*statefulOAuthHandler)(nil)

// TestClientReauthorizesOn401 checks that a Client whose first request
// comes back 401 invokes OAuthHandler.Authorize and retries the request
// once with the newly issued token, rather than failing the call.
func TestClientReauthorizesOn401(t *testing.T) {
	var firstAttempt = true
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			<-r.Context().Done()
			return
		}
		if firstAttempt {
			firstAttempt = false
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer issued-after-401" {
			t.Errorf("retry Authorization header = %q, want Bearer issued-after-401", got)
		}
		body, _ := io.ReadAll(r.Body)
		msg, _ := jsonrpc.DecodeMessage(body)
		req, ok := msg.(*jsonrpc.Request)
		if !ok || req.Method != "initialize" {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		fakeInitializeResponse(w, req)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	h := &statefulOAuthHandler{}
	c := NewClient(&Implementation{Name: "fake-client", Version: "1.0.0"}, &ClientCapabilities{}, srv.URL, srv.Client())
	c.OAuthHandler = h

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !h.authorized {
		t.Error("Authorize was never called")
	}
	c.Disconnect(context.Background(), "test done")
}
