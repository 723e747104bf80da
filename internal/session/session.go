// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jeranaias/ollamacode/internal/ollama"
)

// =============================================================================
// SESSION
// =============================================================================

// Session is one request/response lifecycle.
type Session struct {
	ID     string
	Model  string
	Prompt string

	// Written by the worker. Read them on the foreground only after the
	// terminal event.
	StartedAt time.Time
	EndedAt   time.Time

	text   strings.Builder
	length int
	stats  Stats

	cancelled atomic.Bool
	abort     chan struct{}
	abortOnce sync.Once
}

// New creates a session for model and prompt.
func New(model, prompt string) *Session {
	return &Session{
		ID:     uuid.NewString(),
		Model:  model,
		Prompt: prompt,
		abort:  make(chan struct{}),
	}
}

// Cancel requests cooperative cancellation. It is safe to call from any
// goroutine, any number of times. The worker observes it before processing
// the next line; an in-flight read is aborted too.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
	s.abortOnce.Do(func() { close(s.abort) })
}

// Cancelled reports whether Cancel was called.
func (s *Session) Cancelled() bool {
	return s.cancelled.Load()
}

// aborted is closed by the first Cancel.
func (s *Session) aborted() <-chan struct{} {
	return s.abort
}

// append adds a fragment and returns the new cumulative character count.
// The count grows by the fragment's rune count; the buffer is never re-measured.
func (s *Session) append(fragment string) int {
	s.text.WriteString(fragment)
	s.length += utf8.RuneCountInString(fragment)
	return s.length
}

// Text returns the accumulated response.
func (s *Session) Text() string {
	return s.text.String()
}

// Len returns the accumulated response length in characters.
func (s *Session) Len() int {
	return s.length
}

// Stats returns the server-reported statistics of the final fragment.
func (s *Session) Stats() Stats {
	return s.stats
}

// Duration returns EndedAt - StartedAt, or zero while still running.
func (s *Session) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// =============================================================================
// STATS
// =============================================================================

// Stats is what Ollama reports on the done fragment. Zero when the stream
// ended without one (cancelled, or closed early).
type Stats struct {
	Model         string
	DoneReason    string
	EvalCount     int
	EvalDuration  time.Duration
	TotalDuration time.Duration
	LoadDuration  time.Duration
	Lines         int
}

// TokensPerSecond returns the generation speed, or 0 if unknown.
func (s Stats) TokensPerSecond() float64 {
	return ollama.Fragment{EvalCount: s.EvalCount, EvalDuration: s.EvalDuration}.TokensPerSecond()
}

func statsFrom(f ollama.Fragment, lines int) Stats {
	return Stats{
		Model:         f.Model,
		DoneReason:    f.DoneReason,
		EvalCount:     f.EvalCount,
		EvalDuration:  f.EvalDuration,
		TotalDuration: f.TotalDuration,
		LoadDuration:  f.LoadDuration,
		Lines:         lines,
	}
}
