// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches response fragments for rendering.
// Fragments accumulate until a flush is allowed, either because the frame
// limiter has a token or because batchSize fragments are waiting.
//
// This keeps redraws at or below the configured frame rate however fast the
// model produces tokens.
type StreamingBuffer struct {
	mu        sync.Mutex
	buffer    strings.Builder
	pending   int
	batchSize int
	limiter   *rate.Limiter
}

const (
	defaultBatchSize = 15
	defaultMaxFPS    = 30
)

// NewStreamingBuffer creates a buffer that flushes at most maxFPS times per
// second. maxFPS outside 1..120 falls back to 30.
func NewStreamingBuffer(maxFPS int) *StreamingBuffer {
	if maxFPS <= 0 || maxFPS > 120 {
		maxFPS = defaultMaxFPS
	}
	return &StreamingBuffer{
		batchSize: defaultBatchSize,
		limiter:   rate.NewLimiter(rate.Limit(maxFPS), 1),
	}
}

// Write adds a fragment to the buffer.
func (sb *StreamingBuffer) Write(fragment string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.WriteString(fragment)
	sb.pending++
}

// Flush returns the accumulated content if a flush is due.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	if sb.pending < sb.batchSize && !sb.limiter.Allow() {
		return "", false
	}
	return sb.takeLocked(), true
}

// ForceFlush returns everything buffered regardless of the limiter.
// Use it when the stream ends.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	return sb.takeLocked(), true
}

func (sb *StreamingBuffer) takeLocked() string {
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.pending = 0
	return content
}

// Reset drops buffered content. Use it when starting a new response.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.buffer.Reset()
	sb.pending = 0
}

// Pending returns the number of fragments waiting to be flushed.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.pending
}

// SetMaxFPS updates the frame rate cap. Values outside 1..120 are ignored.
func (sb *StreamingBuffer) SetMaxFPS(fps int) {
	if fps <= 0 || fps > 120 {
		return
	}
	sb.limiter.SetLimit(rate.Limit(fps))
}

// Interval returns the tick period matching the frame rate cap.
func (sb *StreamingBuffer) Interval() time.Duration {
	return time.Duration(float64(time.Second) / float64(sb.limiter.Limit()))
}

// =============================================================================
// STREAMING TICK COMMAND
// =============================================================================

// streamTickCmd schedules the next render tick.
func streamTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return streamTickMsg{Time: t}
	})
}
