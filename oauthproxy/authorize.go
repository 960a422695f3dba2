// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauthproxy

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// authCodeExpiry is how long a locally-issued authorization code mapping
// survives before the token endpoint must consume it (spec §4.8.3
// "expiresAt=now+600s").
const authCodeExpiry = 600 * time.Second

// handleAuthorize implements spec §4.8.2: validate the proxy client and
// its redirect URI, encode a ProxyState, and redirect to the external
// Authorization Server.
func (p *Proxy) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID := q.Get("client_id")
	redirectURI := q.Get("redirect_uri")
	state := q.Get("state")

	client, err := p.Storage.GetClient(r.Context(), clientID)
	if err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_client", "unknown client_id")
		return
	}
	if !containsString(client.RedirectURIs, redirectURI) {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "redirect_uri is not registered for this client")
		return
	}

	scope := q.Get("scope")
	if p.AllowedScopes != nil && !scopeAllowed(scope, p.AllowedScopes) {
		redirectWithError(w, r, redirectURI, "invalid_scope", "requested scope is not allowed", state)
		return
	}

	ps := ProxyState{
		ClientID:            clientID,
		RedirectURI:         redirectURI,
		OriginalState:       state,
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
		Scope:               scope,
	}
	signed, err := p.stateSigner.encode(ps)
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	up := url.Values{}
	up.Set("client_id", p.UpstreamClientID)
	up.Set("redirect_uri", p.CallbackURL)
	up.Set("response_type", "code")
	if scope != "" {
		up.Set("scope", scope)
	}
	up.Set("state", signed)
	if cc := q.Get("code_challenge"); cc != "" {
		up.Set("code_challenge", cc)
		up.Set("code_challenge_method", q.Get("code_challenge_method"))
	}

	target := p.upstream.AuthorizationEndpoint + "?" + up.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

// handleCallback implements spec §4.8.3: verify the returned state,
// forward upstream errors, and mint a local authorization code mapping on
// success.
func (p *Proxy) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawState := q.Get("state")
	if rawState == "" {
		http.Error(w, "missing state", http.StatusBadRequest)
		return
	}
	ps, err := p.stateSigner.decode(rawState)
	if err != nil {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	if upstreamErr := q.Get("error"); upstreamErr != "" {
		redirectWithError(w, r, ps.RedirectURI, upstreamErr, q.Get("error_description"), ps.OriginalState)
		return
	}

	code := q.Get("code")
	if code == "" {
		redirectWithError(w, r, ps.RedirectURI, "server_error", "authorization server returned no code", ps.OriginalState)
		return
	}

	localCode := "code_" + randomHex(24)
	now := time.Now()
	err = p.Storage.PutAuthCode(r.Context(), localCode, &AuthCodeMapping{
		ClientID:            ps.ClientID,
		RedirectURI:         ps.RedirectURI,
		CodeChallenge:       ps.CodeChallenge,
		CodeChallengeMethod: ps.CodeChallengeMethod,
		Scope:               ps.Scope,
		IssuedAt:            now,
		ExpiresAt:           now.Add(authCodeExpiry),
		UpstreamCode:        code,
	})
	if err != nil {
		redirectWithError(w, r, ps.RedirectURI, "server_error", err.Error(), ps.OriginalState)
		return
	}

	out := url.Values{}
	out.Set("code", localCode)
	if ps.OriginalState != "" {
		out.Set("state", ps.OriginalState)
	}
	http.Redirect(w, r, ps.RedirectURI+"?"+out.Encode(), http.StatusFound)
}

func redirectWithError(w http.ResponseWriter, r *http.Request, redirectURI, errCode, errDesc, state string) {
	v := url.Values{}
	v.Set("error", errCode)
	if errDesc != "" {
		v.Set("error_description", errDesc)
	}
	if state != "" {
		v.Set("state", state)
	}
	http.Redirect(w, r, redirectURI+"?"+v.Encode(), http.StatusFound)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func scopeAllowed(scope string, allowed map[string]bool) bool {
	for _, sc := range strings.Fields(scope) {
		if !allowed[sc] {
			return false
		}
	}
	return true
}

func writeOAuthError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q,"error_description":%q}`, code, desc)
}
