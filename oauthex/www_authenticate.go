// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauthex

import (
	"fmt"
	"strings"
)

// challenge is one parsed WWW-Authenticate challenge: a scheme (e.g.
// "Bearer") plus its auth-param key/value pairs (RFC 7235 section 2.1,
// RFC 6750 section 3).
type challenge struct {
	Scheme string
	Params map[string]string
}

// ParseWWWAuthenticate parses the (possibly multi-valued) WWW-Authenticate
// header into its individual challenges.
func ParseWWWAuthenticate(values []string) ([]challenge, error) {
	var out []challenge
	for _, v := range values {
		cs, err := parseChallenges(v)
		if err != nil {
			return nil, err
		}
		out = append(out, cs...)
	}
	return out, nil
}

// parseChallenges parses one header value, which may itself contain
// multiple comma-separated challenges (one per scheme).
func parseChallenges(v string) ([]challenge, error) {
	var out []challenge
	rest := strings.TrimSpace(v)
	for rest != "" {
		scheme, tail, ok := cutToken(rest)
		if !ok {
			return nil, fmt.Errorf("oauthex: malformed WWW-Authenticate challenge: %q", v)
		}
		params := make(map[string]string)
		tail = strings.TrimSpace(tail)
		for tail != "" {
			if strings.HasPrefix(tail, ",") {
				tail = strings.TrimSpace(tail[1:])
			}
			key, afterKey, ok := cutToken(tail)
			if !ok || !strings.HasPrefix(strings.TrimSpace(afterKey), "=") {
				// Not a key=value pair: treat the remainder as the start of
				// the next scheme and stop consuming params for this one.
				break
			}
			afterKey = strings.TrimSpace(afterKey)[1:]
			val, afterVal := cutQuotedOrToken(strings.TrimSpace(afterKey))
			params[key] = val
			tail = afterVal
		}
		out = append(out, challenge{Scheme: scheme, Params: params})
		rest = strings.TrimSpace(tail)
		rest = strings.TrimPrefix(rest, ",")
		rest = strings.TrimSpace(rest)
	}
	return out, nil
}

// cutToken splits s at the first run of whitespace or '=', returning the
// leading token and the remainder (including the separator).
func cutToken(s string) (token, rest string, ok bool) {
	i := strings.IndexAny(s, " \t=,")
	if i < 0 {
		return s, "", s != ""
	}
	if s[:i] == "" {
		return "", s, false
	}
	return s[:i], s[i:], true
}

// cutQuotedOrToken consumes either a quoted-string or a bare token from
// the start of s, returning its unquoted value and the remainder.
func cutQuotedOrToken(s string) (value, rest string) {
	if strings.HasPrefix(s, `"`) {
		end := strings.Index(s[1:], `"`)
		if end < 0 {
			return s[1:], ""
		}
		return s[1 : end+1], s[end+2:]
	}
	i := strings.IndexAny(s, " \t,")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}
