// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauthproxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// introspectionResponse is the RFC 7662 introspection response shape.
type introspectionResponse struct {
	Active   bool   `json:"active"`
	ClientID string `json:"client_id,omitempty"`
	Scope    string `json:"scope,omitempty"`
	Username string `json:"username,omitempty"`
	Exp      int64  `json:"exp,omitempty"`
}

// handleIntrospect implements spec §4.8.5: forward to the upstream
// introspection endpoint, enriching an active result with the proxy's own
// notion of client_id when a local token mapping exists.
func (p *Proxy) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	if _, err := p.authenticateClient(r); err != nil {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client", err.Error())
		return
	}
	token := r.PostForm.Get("token")
	if token == "" {
		writeJSON(w, http.StatusOK, introspectionResponse{Active: false})
		return
	}

	result, err := p.introspectUpstream(r.Context(), token)
	if err != nil || !result.Active {
		writeJSON(w, http.StatusOK, introspectionResponse{Active: false})
		return
	}
	if mapping, err := p.Storage.GetToken(r.Context(), hashSecret(token)); err == nil {
		result.ClientID = mapping.ClientID
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRevoke implements spec §4.8.5: forward to upstream and always
// delete the local token mapping, regardless of upstream outcome (RFC 7009
// "always 200").
func (p *Proxy) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	if _, err := p.authenticateClient(r); err != nil {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client", err.Error())
		return
	}
	token := r.PostForm.Get("token")
	if token != "" {
		_ = p.Storage.DeleteToken(r.Context(), hashSecret(token))
		if p.upstream.RevocationEndpoint != "" {
			form := url.Values{}
			form.Set("token", token)
			form.Set("client_id", p.UpstreamClientID)
			if p.UpstreamClientSecret != "" {
				form.Set("client_secret", p.UpstreamClientSecret)
			}
			req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, p.upstream.RevocationEndpoint, strings.NewReader(form.Encode()))
			if err == nil {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				if resp, err := p.httpClient().Do(req); err == nil {
					resp.Body.Close()
				}
			}
		}
	}
	w.WriteHeader(http.StatusOK)
}

// introspectUpstream calls the external Authorization Server's
// introspection endpoint directly, used both by handleIntrospect and by
// the resource-server gate's external-AS mode.
func (p *Proxy) introspectUpstream(ctx context.Context, token string) (*introspectionResponse, error) {
	form := url.Values{}
	form.Set("token", token)
	form.Set("client_id", p.UpstreamClientID)
	if p.UpstreamClientSecret != "" {
		form.Set("client_secret", p.UpstreamClientSecret)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.upstream.IntrospectionEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := p.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var result introspectionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
