// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauthproxy

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// clientLimiter hands out a per-client-id token bucket, bounding
// brute-force grant and introspection attempts against a single
// registered client (an ambient concern the spec is silent on but that
// every production OAuth endpoint needs).
type clientLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	return &clientLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *clientLimiter) allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// limitByClientID wraps h, rejecting requests over the per-client rate
// limit with 429 before the handler sees them. The client id is read from
// Basic auth or the form body, matching the same two places
// authenticateClient looks.
func (p *Proxy) limitByClientID(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID, _, ok := r.BasicAuth()
		if !ok {
			_ = r.ParseForm()
			clientID = r.PostForm.Get("client_id")
		}
		if clientID == "" {
			clientID = r.RemoteAddr
		}
		if !p.limiter.allow(clientID) {
			writeOAuthError(w, http.StatusTooManyRequests, "slow_down", "rate limit exceeded")
			return
		}
		h(w, r)
	}
}
