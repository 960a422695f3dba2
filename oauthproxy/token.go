// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauthproxy

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// tokenResponse mirrors the upstream token endpoint's response shape
// (spec §4.8.4 "Return the upstream response verbatim"), just enough of it
// to read expires_in/refresh_token for local bookkeeping before
// re-emitting the body untouched.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// handleToken implements spec §4.8.4.
func (p *Proxy) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	client, err := p.authenticateClient(r)
	if err != nil {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client", err.Error())
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		p.handleAuthCodeGrant(w, r, client)
	case "refresh_token":
		p.handleRefreshGrant(w, r, client)
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "grant_type must be authorization_code or refresh_token")
	}
}

func (p *Proxy) handleAuthCodeGrant(w http.ResponseWriter, r *http.Request, client *RegisteredClient) {
	code := r.PostForm.Get("code")
	if code == "" {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "code is required")
		return
	}
	mapping, err := p.Storage.ConsumeAuthCode(r.Context(), code)
	if err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "unknown or expired code")
		return
	}
	if mapping.ClientID != client.ClientID {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "code was not issued to this client")
		return
	}
	if mapping.CodeChallenge != "" {
		verifier := r.PostForm.Get("code_verifier")
		if !verifyPKCE(mapping.CodeChallenge, mapping.CodeChallengeMethod, verifier) {
			writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "code_verifier does not match code_challenge")
			return
		}
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", mapping.UpstreamCode)
	form.Set("redirect_uri", p.CallbackURL)
	p.forwardTokenRequest(w, r, form, client, mapping.Scope)
}

func (p *Proxy) handleRefreshGrant(w http.ResponseWriter, r *http.Request, client *RegisteredClient) {
	refreshToken := r.PostForm.Get("refresh_token")
	if refreshToken == "" {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	if scope := r.PostForm.Get("scope"); scope != "" {
		form.Set("scope", scope)
	}
	p.forwardTokenRequest(w, r, form, client, "")
}

// forwardTokenRequest exchanges form at the upstream token endpoint using
// the proxy's own credentials, persists local token mappings for whatever
// tokens come back, and relays the upstream response body verbatim.
func (p *Proxy) forwardTokenRequest(w http.ResponseWriter, r *http.Request, form url.Values, client *RegisteredClient, scope string) {
	form.Set("client_id", p.UpstreamClientID)
	if p.UpstreamClientSecret != "" {
		form.Set("client_secret", p.UpstreamClientSecret)
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, p.upstream.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient().Do(req)
	if err != nil {
		writeOAuthError(w, http.StatusBadGateway, "server_error", "upstream token request failed: "+err.Error())
		return
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		writeOAuthError(w, http.StatusBadGateway, "server_error", "reading upstream response: "+err.Error())
		return
	}

	if resp.StatusCode == http.StatusOK {
		var tr tokenResponse
		if json.Unmarshal(body, &tr) == nil && tr.AccessToken != "" {
			now := time.Now()
			expiresAt := now
			if tr.ExpiresIn > 0 {
				expiresAt = now.Add(time.Duration(tr.ExpiresIn) * time.Second)
			}
			_ = p.Storage.PutToken(r.Context(), hashSecret(tr.AccessToken), &TokenMapping{
				ClientID:  client.ClientID,
				TokenType: "access_token",
				Scope:     scope,
				IssuedAt:  now,
				ExpiresAt: expiresAt,
			})
			if tr.RefreshToken != "" {
				_ = p.Storage.PutToken(r.Context(), hashSecret(tr.RefreshToken), &TokenMapping{
					ClientID:  client.ClientID,
					TokenType: "refresh_token",
					Scope:     scope,
					IssuedAt:  now,
				})
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	w.Write(body)
}

// authenticateClient implements spec §4.8.4's "authenticate the client via
// Basic header or form body (client_secret_basic or client_secret_post)".
func (p *Proxy) authenticateClient(r *http.Request) (*RegisteredClient, error) {
	clientID, secret, ok := r.BasicAuth()
	if !ok {
		clientID = r.PostForm.Get("client_id")
		secret = r.PostForm.Get("client_secret")
	}
	if clientID == "" {
		return nil, ErrInvalidClient
	}
	client, err := p.Storage.GetClient(r.Context(), clientID)
	if err != nil {
		return nil, ErrInvalidClient
	}
	if client.TokenEndpointAuth == "none" {
		return client, nil
	}
	if subtle.ConstantTimeCompare([]byte(hashSecret(secret)), []byte(client.ClientSecretHash)) != 1 {
		return nil, ErrInvalidClient
	}
	return client, nil
}

// verifyPKCE checks code_verifier against the stored challenge, per spec
// §4.8.4: S256 (base64url(SHA-256(verifier)) == challenge) or plain
// equality.
func verifyPKCE(challenge, method, verifier string) bool {
	if verifier == "" {
		return false
	}
	if method == "" || strings.EqualFold(method, "S256") {
		sum := sha256.Sum256([]byte(verifier))
		computed := base64.RawURLEncoding.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
	}
	return subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) == 1
}
