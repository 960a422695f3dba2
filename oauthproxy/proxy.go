// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauthproxy

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/mcp-core/oauthex"
)

// Config configures a Proxy.
type Config struct {
	// Issuer is the external Authorization Server's issuer URL, used for
	// RFC 8414 metadata discovery.
	Issuer string
	// UpstreamClientID and UpstreamClientSecret are the proxy's own
	// credentials with the external Authorization Server.
	UpstreamClientID     string
	UpstreamClientSecret string
	// CallbackURL is the proxy's own /oauth/callback URL, registered with
	// the external Authorization Server as a redirect URI.
	CallbackURL string
	// StateSecret signs the ProxyState JWT; must be at least 32 bytes.
	StateSecret string
	// StateExpiry overrides the ProxyState JWT lifetime (default 600s).
	StateExpiry time.Duration
	// AllowedScopes, if non-empty, restricts both registration and
	// authorization requests to this scope set.
	AllowedScopes []string
	// ExternalIntrospection selects the gate's verification mode: true
	// introspects every request against the external AS (with caching);
	// false (default) looks up the proxy's own token mappings.
	ExternalIntrospection bool
	// RequiredScopes gates access to the wrapped handler.
	RequiredScopes []string
	// HTTPClient is used for all upstream calls; defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
	// Storage is the durable backend; defaults to NewMemoryStorage().
	Storage Storage
}

// Proxy is the OAuth 2.1 authorization proxy and resource-server gate
// (spec §4.8): it terminates DCR and the authorization-code dance locally
// and forwards the token exchange to an external Authorization Server.
type Proxy struct {
	Storage               Storage
	UpstreamClientID      string
	UpstreamClientSecret  string
	CallbackURL           string
	AllowedScopes         map[string]bool
	ExternalIntrospection bool

	upstream    *oauthex.AuthServerMeta
	stateSigner *stateSigner
	limiter     *clientLimiter
	httpc       *http.Client
	gate        *Gate
}

// NewProxy discovers the external Authorization Server's metadata and
// returns a Proxy ready to serve.
func NewProxy(ctx context.Context, cfg Config) (*Proxy, error) {
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = http.DefaultClient
	}
	meta, err := oauthex.GetAuthServerMeta(ctx, cfg.Issuer, httpc)
	if err != nil {
		return nil, fmt.Errorf("oauthproxy: discovering authorization server metadata: %w", err)
	}
	if meta == nil {
		return nil, fmt.Errorf("oauthproxy: no authorization server metadata found for issuer %q", cfg.Issuer)
	}
	if meta.TokenEndpoint == "" || meta.AuthorizationEndpoint == "" {
		return nil, fmt.Errorf("oauthproxy: authorization server metadata is missing required endpoints")
	}

	signer, err := newStateSigner([]byte(cfg.StateSecret), cfg.StateExpiry)
	if err != nil {
		return nil, err
	}

	storage := cfg.Storage
	if storage == nil {
		storage = NewMemoryStorage()
	}

	var allowed map[string]bool
	if len(cfg.AllowedScopes) > 0 {
		allowed = make(map[string]bool, len(cfg.AllowedScopes))
		for _, s := range cfg.AllowedScopes {
			allowed[s] = true
		}
	}

	p := &Proxy{
		Storage:               storage,
		UpstreamClientID:      cfg.UpstreamClientID,
		UpstreamClientSecret:  cfg.UpstreamClientSecret,
		CallbackURL:           cfg.CallbackURL,
		AllowedScopes:         allowed,
		ExternalIntrospection: cfg.ExternalIntrospection,
		upstream:              meta,
		stateSigner:           signer,
		limiter:               newClientLimiter(5, 10),
		httpc:                 httpc,
	}
	p.gate = newGate(p)
	p.gate.RequiredScopes = cfg.RequiredScopes
	if meta.IntrospectionEndpoint == "" {
		return nil, fmt.Errorf("oauthproxy: authorization server metadata has no introspection_endpoint")
	}
	if len(meta.CodeChallengeMethodsSupported) > 0 && !meta.SupportsPKCES256() {
		log.Printf("oauthproxy: authorization server %q advertises code_challenge_methods_supported without S256; PKCE verification against it may fail", cfg.Issuer)
	}
	return p, nil
}

func (p *Proxy) httpClient() *http.Client { return p.httpc }

// Gate returns the resource-server gate middleware wrapping this proxy's
// authorization state, for the caller to apply to the MCP transport
// handler.
func (p *Proxy) Gate() *Gate { return p.gate }

// Handler returns the http.Handler serving the proxy's own OAuth endpoints
// (registration, authorize, callback, token, introspect, revoke) under
// /oauth/.
func (p *Proxy) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/register", p.handleRegister)
	mux.HandleFunc("/oauth/authorize", p.handleAuthorize)
	mux.HandleFunc("/oauth/callback", p.handleCallback)
	mux.HandleFunc("/oauth/token", p.limitByClientID(p.handleToken))
	mux.HandleFunc("/oauth/introspect", p.limitByClientID(p.handleIntrospect))
	mux.HandleFunc("/oauth/revoke", p.limitByClientID(p.handleRevoke))
	return mux
}
