// Package sse reads line-delimited server-sent event streams.
package sse

import (
	"bytes"
	"strings"
)

const (
	dataPrefix = "data:"
	// DoneSentinel marks the logical end of a stream. It carries no payload.
	DoneSentinel = "[DONE]"
)

// LineSplitter accumulates raw stream chunks and yields complete lines.
//
// Lines are cut on the byte '\n', which never occurs inside a multi-byte
// UTF-8 sequence, so a character split across two chunks is reassembled
// before its line is handed out. The fragment after the last newline stays
// buffered until more bytes arrive.
type LineSplitter struct {
	buf []byte
}

// Feed appends chunk and returns every line it completed, in stream order,
// without their trailing newline.
func (s *LineSplitter) Feed(chunk []byte) []string {
	s.buf = append(s.buf, chunk...)

	var lines []string
	for {
		idx := bytes.IndexByte(s.buf, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, string(s.buf[:idx]))
		s.buf = s.buf[idx+1:]
	}

	if len(s.buf) == 0 {
		s.buf = nil
	}
	return lines
}

// Pending returns the number of buffered bytes not yet terminated by a newline.
func (s *LineSplitter) Pending() int {
	return len(s.buf)
}

// Reset drops any buffered partial line.
func (s *LineSplitter) Reset() {
	s.buf = nil
}

// ParseDataLine extracts the payload of a data line. ok is false for lines
// without the data prefix (comments, keep-alives, other fields) and for the
// done sentinel.
func ParseDataLine(line string) (payload string, ok bool) {
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}

	payload = strings.TrimSpace(line[len(dataPrefix):])
	if payload == DoneSentinel {
		return "", false
	}
	return payload, true
}
