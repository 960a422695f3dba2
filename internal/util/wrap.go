// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package util

import "fmt"

// Wrapf wraps *err with a message built from format and args, if *err is
// non-nil. It is meant to be called from a defer, after naming the error
// return value, so that a function's error always carries its own name and
// arguments without every return site needing to repeat them:
//
//	func f(ctx context.Context, id string) (_ *Thing, err error) {
//		defer util.Wrapf(&err, "f(%q)", id)
//		...
//	}
func Wrapf(err *error, format string, args ...any) {
	if *err == nil {
		return
	}
	*err = fmt.Errorf(format+": %w", append(args, *err)...)
}
