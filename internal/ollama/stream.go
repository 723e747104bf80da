// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"time"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader splits a streaming response body into NDJSON lines.
//
// Reading and decoding are separate steps so callers can act between them
// (the session checks its cancel flag after a line arrives and before it is
// consumed).
type StreamReader struct {
	body   io.ReadCloser
	reader *bufio.Reader
	lines  int
}

// NewStreamReader creates a new stream reader over body.
func NewStreamReader(body io.ReadCloser) *StreamReader {
	return &StreamReader{
		body:   body,
		reader: bufio.NewReaderSize(body, 16*1024),
	}
}

// NextLine returns the next non-blank line without its trailing newline.
// It returns io.EOF once the body is exhausted. A final line that is not
// newline-terminated is still returned before io.EOF.
//
// Lines are not length-limited, unlike bufio.Scanner.
func (s *StreamReader) NextLine() ([]byte, error) {
	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			// A partial line cut by a transport error is not a chunk.
			return nil, &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: err}
		}
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			s.lines++
			return line, nil
		}
		if err != nil {
			return nil, io.EOF
		}
	}
}

// Lines returns how many non-blank lines have been read.
func (s *StreamReader) Lines() int {
	return s.lines
}

// Close releases the underlying body.
func (s *StreamReader) Close() error {
	return s.body.Close()
}

// =============================================================================
// DECODING
// =============================================================================

// DecodeFragment parses one NDJSON line of a /api/generate stream.
//
// Invalid JSON yields ErrTypeMalformedChunk. A line carrying a non-empty
// "error" field yields ErrTypeProtocol.
func DecodeFragment(line []byte) (Fragment, error) {
	var raw generateLine
	if err := json.Unmarshal(line, &raw); err != nil {
		return Fragment{}, &ClientError{
			Type:    ErrTypeMalformedChunk,
			Message: "received invalid JSON from Ollama",
			Cause:   err,
		}
	}

	if raw.Error != "" {
		return Fragment{}, &ClientError{Type: ErrTypeProtocol, Message: raw.Error}
	}

	frag := Fragment{
		Done:       raw.Done,
		DoneReason: raw.DoneReason,
		Model:      raw.Model,
	}
	if raw.Response != nil {
		frag.Text = *raw.Response
		frag.HasText = true
	}

	if raw.Done {
		frag.TotalDuration = time.Duration(raw.TotalDuration)
		frag.LoadDuration = time.Duration(raw.LoadDuration)
		frag.EvalDuration = time.Duration(raw.EvalDuration)
		frag.EvalCount = raw.EvalCount
	}

	return frag, nil
}
