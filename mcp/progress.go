// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"context"
	"errors"
)

// ErrNoProgressToken is returned by Progress when the originating request
// did not carry a _meta.progressToken, so there is nowhere to report to.
var ErrNoProgressToken = errors.New("request has no progress token")

// Progress sends a notifications/progress update correlated to the
// progress token the request was made with, if any.
func (r *ServerRequest[P]) Progress(ctx context.Context, message string, progress, total float64) error {
	token := r.Params.GetProgressToken()
	if token == nil {
		return ErrNoProgressToken
	}
	return r.Session.NotifyProgress(ctx, &ProgressNotificationParams{
		ProgressToken: token,
		Message:       message,
		Progress:      progress,
		Total:         total,
	})
}
