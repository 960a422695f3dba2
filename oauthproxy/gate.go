// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauthproxy

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/mcp-core/mcp"
)

// introspectionCacheTTL is the default TTL for cached external-AS
// introspection results (spec §4.8.6 "default 300s").
const introspectionCacheTTL = 300 * time.Second

// introspectionCachePruneThreshold triggers an opportunistic prune of
// expired cache entries from within introspectCached itself, so memory use
// stays bounded even when a host never calls PruneIntrospectionCache.
const introspectionCachePruneThreshold = 10000

// skippedPrefixes are request paths the gate never authenticates (spec
// §4.8.6): the OAuth endpoints themselves, discovery metadata, health
// checks, and management endpoints.
var skippedPrefixes = []string{"/oauth/", "/.well-known/", "/health", "/management/"}

func isGateExempt(path string) bool {
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

type cachedIntrospection struct {
	result    *introspectionResponse
	expiresAt time.Time
}

// Gate is the resource-server middleware (spec §4.8.6): it extracts the
// bearer token, authorizes it either against the proxy's own token
// mappings or by introspecting the external Authorization Server, and
// attaches the resulting user id to the request context via
// mcp.WithUserID before delegating to next.
type Gate struct {
	proxy *Proxy
	// RequiredScopes, if non-empty, must all be present in the token's
	// scope for a request to be let through.
	RequiredScopes []string

	mu    sync.Mutex
	cache map[string]cachedIntrospection
}

func newGate(p *Proxy) *Gate {
	return &Gate{proxy: p, cache: make(map[string]cachedIntrospection)}
}

// Wrap returns an http.Handler that gates requests to next.
func (g *Gate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isGateExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			writeUnauthorized(w, http.StatusUnauthorized, "invalid_token", "missing bearer token", nil)
			return
		}

		var scope, userID string
		var authorized bool
		if g.proxy.ExternalIntrospection {
			result, err := g.introspectCached(r.Context(), token)
			if err != nil || !result.Active {
				writeUnauthorized(w, http.StatusUnauthorized, "invalid_token", "token is invalid or expired", nil)
				return
			}
			scope = result.Scope
			userID = result.Username
			if userID == "" {
				userID = result.ClientID
			}
			authorized = true
		} else {
			mapping, err := g.proxy.Storage.GetToken(r.Context(), hashSecret(token))
			if err != nil || mapping.TokenType != "access_token" {
				writeUnauthorized(w, http.StatusUnauthorized, "invalid_token", "token is invalid", nil)
				return
			}
			if !mapping.ExpiresAt.IsZero() && time.Now().After(mapping.ExpiresAt) {
				writeUnauthorized(w, http.StatusUnauthorized, "invalid_token", "token has expired", nil)
				return
			}
			scope = mapping.Scope
			userID = mapping.ClientID
			authorized = true
		}
		if !authorized {
			writeUnauthorized(w, http.StatusUnauthorized, "invalid_token", "token is invalid", nil)
			return
		}

		if len(g.RequiredScopes) > 0 && !hasAllScopes(scope, g.RequiredScopes) {
			status := http.StatusForbidden
			if g.proxy.ExternalIntrospection {
				status = http.StatusUnauthorized
			}
			writeUnauthorized(w, status, "insufficient_scope", "token lacks required scope", g.RequiredScopes)
			return
		}

		ctx := mcp.WithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (g *Gate) introspectCached(ctx context.Context, token string) (*introspectionResponse, error) {
	g.mu.Lock()
	entry, ok := g.cache[token]
	g.mu.Unlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.result, nil
	}

	result, err := g.proxy.introspectUpstream(ctx, token)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.cache[token] = cachedIntrospection{result: result, expiresAt: time.Now().Add(introspectionCacheTTL)}
	// Opportunistic prune on the write path bounds the cache between
	// PruneIntrospectionCache calls even if the host never wires one up.
	if len(g.cache) > introspectionCachePruneThreshold {
		g.pruneLocked(time.Now())
	}
	g.mu.Unlock()
	return result, nil
}

// PruneIntrospectionCache removes every expired external-AS introspection
// cache entry. Like mcp.Server's cleanupInactiveSessions, this module never
// runs a background loop itself; a host embedding the proxy is expected to
// call this periodically (e.g. once a minute) to bound the cache's memory
// under sustained traffic from many distinct bearer tokens.
func (g *Gate) PruneIntrospectionCache(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pruneLocked(now)
}

func (g *Gate) pruneLocked(now time.Time) int {
	pruned := 0
	for token, entry := range g.cache {
		if now.After(entry.expiresAt) {
			delete(g.cache, token)
			pruned++
		}
	}
	return pruned
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

func hasAllScopes(granted string, required []string) bool {
	have := make(map[string]bool)
	for _, s := range strings.Fields(granted) {
		have[s] = true
	}
	for _, r := range required {
		if !have[r] {
			return false
		}
	}
	return true
}

// writeUnauthorized writes the WWW-Authenticate challenge and JSON error
// body for a rejected request, at the given HTTP status. Callers pick the
// status: spec §4.8.6 assigns different ones to the same errCode depending
// on whether the gate is running in proxy or external-AS mode.
func writeUnauthorized(w http.ResponseWriter, status int, errCode, desc string, scopes []string) {
	parts := []string{`realm="MCP Server"`, fmt.Sprintf("error=%q", errCode)}
	if desc != "" {
		parts = append(parts, fmt.Sprintf("error_description=%q", desc))
	}
	if len(scopes) > 0 {
		parts = append(parts, fmt.Sprintf("scope=%q", strings.Join(scopes, " ")))
	}
	w.Header().Set("WWW-Authenticate", "Bearer "+strings.Join(parts, ", "))
	writeJSON(w, status, map[string]string{"error": errCode, "error_description": desc})
}
