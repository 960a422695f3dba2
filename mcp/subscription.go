// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"sync"
	"time"
)

// subscriptionIndex is the server-wide reverse map from resource URI to the
// set of session ids subscribed to it (spec §3, §4.4). It takes no lock
// nested under a session's lock (spec §5).
type subscriptionIndex struct {
	mu   sync.Mutex
	byURI map[string]map[string]bool
}

func newSubscriptionIndex() *subscriptionIndex {
	return &subscriptionIndex{byURI: make(map[string]map[string]bool)}
}

// subscribe adds sessionID to the set of subscribers for uri.
func (x *subscriptionIndex) subscribe(uri, sessionID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	set, ok := x.byURI[uri]
	if !ok {
		set = make(map[string]bool)
		x.byURI[uri] = set
	}
	set[sessionID] = true
}

// unsubscribe removes sessionID from the set of subscribers for uri,
// dropping the URI entry entirely once its set becomes empty.
func (x *subscriptionIndex) unsubscribe(uri, sessionID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	set, ok := x.byURI[uri]
	if !ok {
		return
	}
	delete(set, sessionID)
	if len(set) == 0 {
		delete(x.byURI, uri)
	}
}

// subscribers returns a snapshot of the session ids subscribed to uri.
func (x *subscriptionIndex) subscribers(uri string) []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	set, ok := x.byURI[uri]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// removeSession removes sessionID from every URI entry in the index, used
// by terminate and so by idle eviction (spec §4.3). pause does not call it:
// a paused session stays in the index.
func (x *subscriptionIndex) removeSession(sessionID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for uri, set := range x.byURI {
		if set[sessionID] {
			delete(set, sessionID)
			if len(set) == 0 {
				delete(x.byURI, uri)
			}
		}
	}
}

// listCacheEntry is one cell of the client-side list cache (spec §3).
type listCacheEntry struct {
	data      any
	expiresAt time.Time
}

// listCacheKey identifies a cached list by the server it came from and the
// kind of list.
type listCacheKey struct {
	serverName string
	listType   string
}

// listCache is the client-side two-level (serverName, listType) -> {data,
// expiresAt} cache (spec §3). Eviction is lazy on read and on explicit
// invalidation; writes reset the TTL.
type listCache struct {
	mu      sync.Mutex
	entries map[listCacheKey]listCacheEntry
}

func newListCache() *listCache {
	return &listCache{entries: make(map[listCacheKey]listCacheEntry)}
}

// Get returns the cached data for (serverName, listType), or (nil, false) if
// absent or expired. An expired entry is evicted as a side effect of the read.
func (c *listCache) Get(serverName, listType string) (any, bool) {
	key := listCacheKey{serverName, listType}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.data, true
}

// Set stores data for (serverName, listType) with the given TTL, resetting
// any previous expiry.
func (c *listCache) Set(serverName, listType string, data any, ttl time.Duration) {
	key := listCacheKey{serverName, listType}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = listCacheEntry{data: data, expiresAt: time.Now().Add(ttl)}
}

// Invalidate evicts the cached entry for (serverName, listType), used when a
// list_changed notification arrives (spec §4.4).
func (c *listCache) Invalidate(serverName, listType string) {
	key := listCacheKey{serverName, listType}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
