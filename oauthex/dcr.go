// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// This file implements Dynamic Client Registration.
// See https://www.rfc-editor.org/rfc/rfc7591.html.

package oauthex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// RegisterClient performs Dynamic Client Registration (RFC 7591) against
// registrationEndpoint, registering a client with the given metadata.
func RegisterClient(ctx context.Context, registrationEndpoint string, meta *ClientRegistrationMetadata, c *http.Client) (*ClientRegistrationResponse, error) {
	if registrationEndpoint == "" {
		return nil, fmt.Errorf("server metadata does not contain a registration_endpoint")
	}
	if c == nil {
		c = http.DefaultClient
	}
	body, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling client registration metadata: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, registrationEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var oauthErr clientRegistrationError
		if json.Unmarshal(respBody, &oauthErr) == nil && oauthErr.Error != "" {
			return nil, fmt.Errorf("registration failed: %s (%s)", oauthErr.Error, oauthErr.ErrorDescription)
		}
		return nil, fmt.Errorf("registration failed with status %s", resp.Status)
	}
	var out ClientRegistrationResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decoding registration response: %w", err)
	}
	if out.ClientID == "" {
		return nil, fmt.Errorf("registration response is missing required 'client_id' field")
	}
	return &out, nil
}
