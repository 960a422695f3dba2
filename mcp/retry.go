// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import "time"

// retryBackoffBase and retryBackoffCap bound the exponential backoff a
// client transport uses between reconnect attempts (spec §4.6 "resumable
// stream reconnect").
const (
	retryBackoffBase = 50 * time.Millisecond
	retryBackoffCap  = 1000 * time.Millisecond
)

// retryBackoff returns the delay before reconnect attempt n (0-indexed):
// min(50ms * 2^n, 1000ms).
func retryBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := retryBackoffBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= retryBackoffCap {
			return retryBackoffCap
		}
	}
	return d
}
