// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauthproxy

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// minStateSecretLen is the spec's "configurable 32-byte minimum secret"
// requirement for the state-signing key (spec §4.8.2).
const minStateSecretLen = 32

// defaultStateExpiry is the default lifetime of a ProxyState JWT (spec
// §4.8.2 "default 600s expiry").
const defaultStateExpiry = 600 * time.Second

// ProxyState is the authorization request context carried, HS256-signed,
// through the redirect to the external Authorization Server and back
// (spec §4.8.2/§4.8.3).
type ProxyState struct {
	ClientID            string `json:"clientId"`
	RedirectURI         string `json:"redirectUri"`
	OriginalState       string `json:"originalState,omitempty"`
	CodeChallenge       string `json:"codeChallenge,omitempty"`
	CodeChallengeMethod string `json:"codeChallengeMethod,omitempty"`
	Scope               string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// stateSigner signs and verifies ProxyState JWTs.
type stateSigner struct {
	secret []byte
	expiry time.Duration
}

func newStateSigner(secret []byte, expiry time.Duration) (*stateSigner, error) {
	if len(secret) < minStateSecretLen {
		return nil, fmt.Errorf("oauthproxy: state secret must be at least %d bytes", minStateSecretLen)
	}
	if expiry <= 0 {
		expiry = defaultStateExpiry
	}
	return &stateSigner{secret: secret, expiry: expiry}, nil
}

// encode signs s, stamping IssuedAt/ExpiresAt from the signer's expiry.
func (sg *stateSigner) encode(s ProxyState) (string, error) {
	now := time.Now()
	s.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sg.expiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, s)
	return token.SignedString(sg.secret)
}

// decode verifies and parses a ProxyState JWT, rejecting expired or
// tampered tokens.
func (sg *stateSigner) decode(raw string) (*ProxyState, error) {
	var s ProxyState
	_, err := jwt.ParseWithClaims(raw, &s, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return sg.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid state: %w", err)
	}
	return &s, nil
}
