// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
	"strconv"
	"time"
)

// sseEvent is one Server-Sent Event: an optional id, an optional event
// name, a data payload (one JSON-RPC envelope per spec §4.1), and an
// optional server-suggested reconnect delay (the `retry` field).
type sseEvent struct {
	id    string
	name  string
	data  []byte
	retry time.Duration
	hasRetry bool
}

// writeEvent writes e to w in the text/event-stream wire format, flushing
// immediately if w supports it.
func writeEvent(w io.Writer, e sseEvent) (int, error) {
	var buf bytes.Buffer
	if e.id != "" {
		fmt.Fprintf(&buf, "id: %s\n", e.id)
	}
	if e.name != "" {
		fmt.Fprintf(&buf, "event: %s\n", e.name)
	}
	for _, line := range bytes.Split(e.data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	n, err := w.Write(buf.Bytes())
	if f, ok := w.(interface{ Flush() }); ok {
		f.Flush()
	}
	return n, err
}

// scanEvents parses a text/event-stream body into a sequence of sseEvent.
// It follows the WHATWG EventSource parsing algorithm closely enough for
// the single-field-per-line shape this module ever writes: id, event, and
// data fields, blank line terminated.
func scanEvents(r io.Reader) iter.Seq2[sseEvent, error] {
	return func(yield func(sseEvent, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		var cur sseEvent
		var data bytes.Buffer
		haveData := false
		var retry time.Duration
		haveRetry := false
		flush := func() bool {
			if !haveData {
				return true
			}
			cur.data = append([]byte(nil), bytes.TrimSuffix(data.Bytes(), []byte("\n"))...)
			cur.retry = retry
			cur.hasRetry = haveRetry
			ok := yield(cur, nil)
			cur = sseEvent{}
			data.Reset()
			haveData = false
			return ok
		}
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				if !flush() {
					return
				}
				continue
			}
			field, value, _ := cutColon(line)
			switch field {
			case "id":
				cur.id = value
			case "event":
				cur.name = value
			case "data":
				data.WriteString(value)
				data.WriteByte('\n')
				haveData = true
			case "retry":
				if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
					retry = time.Duration(ms) * time.Millisecond
					haveRetry = true
				}
			}
		}
		if err := scanner.Err(); err != nil {
			yield(sseEvent{}, err)
			return
		}
		flush()
		yield(sseEvent{}, io.EOF)
	}
}

// cutColon splits an SSE field line at its first colon, trimming exactly
// one leading space from the value per the spec's field parsing rules.
func cutColon(line string) (field, value string, ok bool) {
	for i := 0; i < len(line); i++ {
		if line[i] == ':' {
			v := line[i+1:]
			if len(v) > 0 && v[0] == ' ' {
				v = v[1:]
			}
			return line[:i], v, true
		}
	}
	return line, "", false
}
