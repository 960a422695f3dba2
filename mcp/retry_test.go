// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"testing"
	"time"
)

func TestRetryBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 50 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1000 * time.Millisecond}, // capped
		{6, 1000 * time.Millisecond},
		{100, 1000 * time.Millisecond},
		{-1, 50 * time.Millisecond}, // negative treated as 0
	}
	for _, c := range cases {
		if got := retryBackoff(c.attempt); got != c.want {
			t.Errorf("retryBackoff(%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}

func TestRetryBackoffNeverExceedsCap(t *testing.T) {
	for attempt := 0; attempt < 64; attempt++ {
		if got := retryBackoff(attempt); got > retryBackoffCap {
			t.Fatalf("retryBackoff(%d) = %v, exceeds cap %v", attempt, got, retryBackoffCap)
		}
	}
}
