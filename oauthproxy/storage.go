// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package oauthproxy implements an OAuth 2.1 authorization proxy and
// resource-server gate sitting in front of an MCP server: it terminates
// Dynamic Client Registration and the authorization-code flow locally,
// forwards the code/token exchange to an external Authorization Server,
// and gates incoming requests on a bearer token (spec §4.8).
package oauthproxy

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RegisteredClient is a client the proxy itself has registered (spec
// §4.8.1), as distinct from any client registration the upstream
// Authorization Server has for the proxy.
type RegisteredClient struct {
	ClientID          string
	ClientSecretHash  string // sha-256 hex digest; empty for auth method "none"
	RedirectURIs      []string
	GrantTypes        []string
	ResponseTypes     []string
	TokenEndpointAuth string
	Scope             string
	CreatedAt         time.Time
}

// AuthCodeMapping is the proxy's own bookkeeping for one issued
// authorization code, consumed exactly once at the token endpoint (spec
// §4.8.3/§4.8.4).
type AuthCodeMapping struct {
	ClientID            string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
	Scope               string
	IssuedAt            time.Time
	ExpiresAt           time.Time

	// UpstreamCode is the authorization code the external Authorization
	// Server itself issued for this flow, exchanged at the token endpoint
	// using the proxy's own credentials (spec §4.8.4).
	UpstreamCode string
}

// TokenMapping records which proxy client a token (identified by the
// sha-256 hash of its value, never the value itself) was issued to, for
// the resource-server gate's proxy-mode lookup (spec §4.8.4/§4.8.6).
type TokenMapping struct {
	ClientID  string
	TokenType string // "access_token" or "refresh_token"
	Scope     string
	IssuedAt  time.Time
	ExpiresAt time.Time // zero means never expires (refresh tokens)
}

// Storage is the proxy's durable backend for registered clients, issued
// authorization codes, and issued token mappings (spec §3's four in-memory
// tables, minus the introspection cache which is gate-local since it is a
// pure performance cache rather than authorization state).
type Storage interface {
	PutClient(ctx context.Context, c *RegisteredClient) error
	GetClient(ctx context.Context, clientID string) (*RegisteredClient, error)

	PutAuthCode(ctx context.Context, code string, m *AuthCodeMapping) error
	// ConsumeAuthCode atomically finds and deletes the mapping for code,
	// per spec §5 "consumeAuthCode MUST be atomic find-and-delete".
	ConsumeAuthCode(ctx context.Context, code string) (*AuthCodeMapping, error)

	PutToken(ctx context.Context, tokenHash string, m *TokenMapping) error
	GetToken(ctx context.Context, tokenHash string) (*TokenMapping, error)
	DeleteToken(ctx context.Context, tokenHash string) error
}

// MemoryStorage is the in-memory reference Storage adapter, mirroring
// mcp.MemorySessionStore's map-plus-mutex shape.
type MemoryStorage struct {
	mu      sync.Mutex
	clients map[string]*RegisteredClient
	codes   map[string]*AuthCodeMapping
	tokens  map[string]*TokenMapping
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		clients: make(map[string]*RegisteredClient),
		codes:   make(map[string]*AuthCodeMapping),
		tokens:  make(map[string]*TokenMapping),
	}
}

func (s *MemoryStorage) PutClient(ctx context.Context, c *RegisteredClient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ClientID] = c
	return nil
}

func (s *MemoryStorage) GetClient(ctx context.Context, clientID string) (*RegisteredClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
	}
	return c, nil
}

func (s *MemoryStorage) PutAuthCode(ctx context.Context, code string, m *AuthCodeMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = m
	return nil
}

func (s *MemoryStorage) ConsumeAuthCode(ctx context.Context, code string) (*AuthCodeMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.codes[code]
	if !ok {
		return nil, ErrInvalidGrant
	}
	delete(s.codes, code)
	if time.Now().After(m.ExpiresAt) {
		return nil, ErrInvalidGrant
	}
	return m, nil
}

func (s *MemoryStorage) PutToken(ctx context.Context, tokenHash string, m *TokenMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = m
	return nil
}

func (s *MemoryStorage) GetToken(ctx context.Context, tokenHash string) (*TokenMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.tokens[tokenHash]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return m, nil
}

func (s *MemoryStorage) DeleteToken(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, tokenHash)
	return nil
}
