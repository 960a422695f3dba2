// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// This file implements Authorization Server Metadata discovery.
// See https://www.rfc-editor.org/rfc/rfc8414.html.

package oauthex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// GetAuthServerMeta fetches the Authorization Server Metadata document for
// issuer (RFC 8414). For an issuer with a path component it tries the
// well-known path inserted between the host and that path first, then the
// well-known path appended after it; for an issuer without a path it tries
// only the well-known path at the root (see wellKnownCandidates). It returns
// (nil, nil) if no metadata document is found at any candidate, so callers
// can fall back to other discovery mechanisms.
func GetAuthServerMeta(ctx context.Context, issuer string, c *http.Client) (*AuthServerMeta, error) {
	if err := checkURLScheme(issuer); err != nil {
		return nil, err
	}
	u, err := url.Parse(issuer)
	if err != nil {
		return nil, fmt.Errorf("invalid issuer %q: %w", issuer, err)
	}

	for _, candidate := range wellKnownCandidates(u) {
		meta, err := getJSON[AuthServerMeta](ctx, c, candidate, 1<<20)
		if err == nil {
			if meta.Issuer != "" && meta.Issuer != issuer {
				return nil, fmt.Errorf("issuer mismatch: requested %q, metadata says %q", issuer, meta.Issuer)
			}
			return meta, nil
		}
	}
	return nil, nil
}

// wellKnownCandidates returns the ordered list of well-known metadata URLs
// to try for issuer u, per RFC 8414 section 3.1: path-preserving first
// (.well-known segment inserted before any path), then path-appending.
func wellKnownCandidates(u *url.URL) []string {
	const wellKnown = ".well-known/oauth-authorization-server"
	path := strings.Trim(u.Path, "/")
	base := *u
	base.RawQuery = ""
	base.Fragment = ""
	if path == "" {
		base.Path = "/" + wellKnown
		return []string{base.String()}
	}
	preserving := base
	preserving.Path = "/" + wellKnown + "/" + path
	appending := base
	appending.Path = "/" + path + "/" + wellKnown
	return []string{preserving.String(), appending.String()}
}
