// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"errors"
	"testing"
)

func TestWrapfNoOpOnNilError(t *testing.T) {
	var err error
	Wrapf(&err, "f(%q)", "x")
	if err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

func TestWrapfWrapsNonNilError(t *testing.T) {
	err := errors.New("boom")
	Wrapf(&err, "f(%q)", "x")
	if err == nil {
		t.Fatal("err is nil, want a wrapped error")
	}
	want := `f("x"): boom`
	if err.Error() != want {
		t.Errorf("err = %q, want %q", err.Error(), want)
	}
}

func TestWrapfPreservesUnwrap(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := sentinel
	Wrapf(&err, "context")
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is lost the original sentinel after Wrapf")
	}
}

func TestIsLoopback(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:8080", true},
		{"localhost:8080", true},
		{"localhost", true},
		{"[::1]:8080", true},
		{"example.com:443", false},
		{"10.0.0.5:80", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsLoopback(c.addr); got != c.want {
			t.Errorf("IsLoopback(%q) = %v, want %v", c.addr, got, c.want)
		}
	}
}
