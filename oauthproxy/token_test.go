// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package oauthproxy

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestVerifyPKCES256(t *testing.T) {
	verifier := "a-random-code-verifier-value-1234567890"
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	if !verifyPKCE(challenge, "S256", verifier) {
		t.Error("verifyPKCE rejected a matching S256 pair")
	}
	if !verifyPKCE(challenge, "", verifier) {
		t.Error("verifyPKCE should default to S256 when method is empty")
	}
	if verifyPKCE(challenge, "S256", "wrong-verifier") {
		t.Error("verifyPKCE accepted a mismatched verifier")
	}
}

func TestVerifyPKCEPlain(t *testing.T) {
	if !verifyPKCE("plain-value", "plain", "plain-value") {
		t.Error("verifyPKCE rejected a matching plain pair")
	}
	if verifyPKCE("plain-value", "plain", "other") {
		t.Error("verifyPKCE accepted a mismatched plain pair")
	}
}

func TestVerifyPKCEEmptyVerifierRejected(t *testing.T) {
	if verifyPKCE("anything", "S256", "") {
		t.Error("verifyPKCE accepted an empty verifier")
	}
}
