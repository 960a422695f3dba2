// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package oauthex implements the OAuth 2.1 metadata, discovery, and
// dynamic client registration types an MCP client or proxy needs to
// authorize against an external Authorization Server: RFC 8414
// (authorization server metadata), RFC 9728 (protected resource
// metadata), and RFC 7591 (dynamic client registration).
package oauthex

// AuthServerMeta is an OAuth 2.0 Authorization Server Metadata document, as
// defined by RFC 8414 section 2.
type AuthServerMeta struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	RegistrationEndpoint              string   `json:"registration_endpoint,omitempty"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint,omitempty"`
	RevocationEndpoint                string   `json:"revocation_endpoint,omitempty"`
	JWKSURI                           string   `json:"jwks_uri,omitempty"`
	ScopesSupported                   []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported            []string `json:"response_types_supported,omitempty"`
	GrantTypesSupported               []string `json:"grant_types_supported,omitempty"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported,omitempty"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported,omitempty"`
	// ClientIDMetadataDocumentSupported reports support for SEP-991 Client
	// ID Metadata Documents as an alternative to dynamic registration.
	ClientIDMetadataDocumentSupported bool `json:"client_id_metadata_document_supported,omitempty"`
}

// SupportsPKCES256 reports whether the server advertises S256 PKCE, a
// hard requirement for MCP authorization servers (spec §4.8.2).
// CodeChallengeMethodsSupported is an optional RFC 8414 field, so its
// absence does not necessarily mean the server lacks S256 support, only
// that it left the metadata silent about it.
func (m *AuthServerMeta) SupportsPKCES256() bool {
	for _, c := range m.CodeChallengeMethodsSupported {
		if c == "S256" {
			return true
		}
	}
	return false
}

// ClientRegistrationMetadata is the client metadata sent in a Dynamic
// Client Registration request, per RFC 7591 section 2.
type ClientRegistrationMetadata struct {
	ClientName              string   `json:"client_name,omitempty"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
}

// ClientRegistrationResponse is the registration response from the
// Authorization Server, per RFC 7591 section 3.2.1.
type ClientRegistrationResponse struct {
	ClientID                string `json:"client_id"`
	ClientSecret            string `json:"client_secret,omitempty"`
	ClientName              string `json:"client_name,omitempty"`
	TokenEndpointAuthMethod string `json:"token_endpoint_auth_method,omitempty"`
}

// clientRegistrationError is the standard OAuth error response shape
// (RFC 6749 section 5.2), returned by a registration endpoint on failure.
type clientRegistrationError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ProtectedResourceMetadata is an OAuth 2.0 Protected Resource Metadata
// document, as defined by RFC 9728 section 2.
type ProtectedResourceMetadata struct {
	Resource                string   `json:"resource"`
	AuthorizationServers    []string `json:"authorization_servers,omitempty"`
	ScopesSupported         []string `json:"scopes_supported,omitempty"`
	BearerMethodsSupported  []string `json:"bearer_methods_supported,omitempty"`
}
