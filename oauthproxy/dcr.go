// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauthproxy

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/modelcontextprotocol/mcp-core/internal/mcpgodebug"
	"github.com/modelcontextprotocol/mcp-core/internal/util"
)

// registrationRequest is the Dynamic Client Registration request body
// (spec §4.8.1), a subset of RFC 7591 section 2.
type registrationRequest struct {
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
}

// registrationResponse is the proxy's own registration response, returning
// the client secret once in the clear (spec §4.8.1).
type registrationResponse struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret,omitempty"`
	ClientSecretExpiresAt   int64    `json:"client_secret_expires_at"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	Scope                   string   `json:"scope,omitempty"`
}

var allowedGrantTypes = map[string]bool{"authorization_code": true, "refresh_token": true}
var allowedResponseTypes = map[string]bool{"code": true}
var allowedAuthMethods = map[string]bool{"client_secret_basic": true, "client_secret_post": true, "none": true}

// validateRedirectURI enforces spec §4.8.1: https required except
// http://localhost and http://127.0.0.1, and no fragment component.
// MCPGODEBUG=relaxedredirect=1 widens the http exception to any loopback
// address (e.g. http://[::1]:PORT, a port-per-run local dev callback
// server), for local development against this proxy.
func validateRedirectURI(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Fragment != "" {
		return false
	}
	if u.Scheme == "https" {
		return true
	}
	if u.Scheme == "http" {
		host := u.Hostname()
		if host == "localhost" || host == "127.0.0.1" {
			return true
		}
		if mcpgodebug.Value("relaxedredirect") == "1" {
			return util.IsLoopback(u.Host)
		}
	}
	return false
}

// handleRegister implements spec §4.8.1.
func (p *Proxy) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeOAuthError(w, http.StatusMethodNotAllowed, "invalid_request", "POST required")
		return
	}
	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	if len(req.RedirectURIs) == 0 {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "redirect_uris is required")
		return
	}
	for _, u := range req.RedirectURIs {
		if !validateRedirectURI(u) {
			writeOAuthError(w, http.StatusBadRequest, "invalid_redirect_uri", "redirect URI must be https, or http://localhost|127.0.0.1, with no fragment: "+u)
			return
		}
	}
	grantTypes := req.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = []string{"authorization_code"}
	}
	for _, g := range grantTypes {
		if !allowedGrantTypes[g] {
			writeOAuthError(w, http.StatusBadRequest, "invalid_client_metadata", "unsupported grant_type: "+g)
			return
		}
	}
	responseTypes := req.ResponseTypes
	if len(responseTypes) == 0 {
		responseTypes = []string{"code"}
	}
	for _, rt := range responseTypes {
		if !allowedResponseTypes[rt] {
			writeOAuthError(w, http.StatusBadRequest, "invalid_client_metadata", "unsupported response_type: "+rt)
			return
		}
	}
	authMethod := req.TokenEndpointAuthMethod
	if authMethod == "" {
		authMethod = "client_secret_basic"
	}
	if !allowedAuthMethods[authMethod] {
		writeOAuthError(w, http.StatusBadRequest, "invalid_client_metadata", "unsupported token_endpoint_auth_method: "+authMethod)
		return
	}
	if p.AllowedScopes != nil {
		for _, sc := range strings.Fields(req.Scope) {
			if !p.AllowedScopes[sc] {
				writeOAuthError(w, http.StatusBadRequest, "invalid_scope", "scope not allowed: "+sc)
				return
			}
		}
	}

	clientID := "proxy_" + randomHex(16)
	client := &RegisteredClient{
		ClientID:          clientID,
		RedirectURIs:      req.RedirectURIs,
		GrantTypes:        grantTypes,
		ResponseTypes:     responseTypes,
		TokenEndpointAuth: authMethod,
		Scope:             req.Scope,
		CreatedAt:         time.Now(),
	}

	var secret string
	if authMethod != "none" {
		secret = randomHex(32)
		client.ClientSecretHash = hashSecret(secret)
	}

	if err := p.Storage.PutClient(r.Context(), client); err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	resp := registrationResponse{
		ClientID:                clientID,
		ClientSecret:            secret,
		ClientSecretExpiresAt:   0,
		RedirectURIs:            req.RedirectURIs,
		GrantTypes:              grantTypes,
		ResponseTypes:           responseTypes,
		TokenEndpointAuthMethod: authMethod,
		Scope:                   req.Scope,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand failing is unrecoverable
	}
	return hex.EncodeToString(b)
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
