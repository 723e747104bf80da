// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStreamingBuffer_FlushIsRateLimited(t *testing.T) {
	sb := NewStreamingBuffer(1)

	sb.Write("Hel")
	sb.Write("lo")
	text, ok := sb.Flush()
	assert.True(t, ok, "first flush uses the burst token")
	assert.Equal(t, "Hello", text)
	assert.Equal(t, 0, sb.Pending())

	sb.Write(" world")
	_, ok = sb.Flush()
	assert.False(t, ok, "second flush within the same second is held back")
	assert.Equal(t, 1, sb.Pending())

	text, ok = sb.ForceFlush()
	assert.True(t, ok)
	assert.Equal(t, " world", text)
}

func TestStreamingBuffer_BatchSizeBypassesLimiter(t *testing.T) {
	sb := NewStreamingBuffer(1)
	sb.Write("x")
	_, ok := sb.Flush()
	assert.True(t, ok)

	for i := 0; i < defaultBatchSize; i++ {
		sb.Write("y")
	}
	text, ok := sb.Flush()
	assert.True(t, ok)
	assert.Equal(t, strings.Repeat("y", defaultBatchSize), text)
}

func TestStreamingBuffer_Empty(t *testing.T) {
	sb := NewStreamingBuffer(30)

	_, ok := sb.Flush()
	assert.False(t, ok)
	_, ok = sb.ForceFlush()
	assert.False(t, ok)
}

func TestStreamingBuffer_Reset(t *testing.T) {
	sb := NewStreamingBuffer(30)
	sb.Write("stale")
	sb.Reset()

	assert.Equal(t, 0, sb.Pending())
	_, ok := sb.ForceFlush()
	assert.False(t, ok)
}

func TestStreamingBuffer_Interval(t *testing.T) {
	tests := []struct {
		name string
		fps  int
		want time.Duration
	}{
		{"ten", 10, 100 * time.Millisecond},
		{"zero falls back to 30", 0, time.Second / 30},
		{"too high falls back to 30", 500, time.Second / 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sb := NewStreamingBuffer(tt.fps)
			assert.InDelta(t, float64(tt.want), float64(sb.Interval()), float64(time.Microsecond))
		})
	}
}

func TestStreamingBuffer_SetMaxFPS(t *testing.T) {
	sb := NewStreamingBuffer(30)

	sb.SetMaxFPS(20)
	assert.Equal(t, 50*time.Millisecond, sb.Interval())

	sb.SetMaxFPS(0)
	sb.SetMaxFPS(121)
	assert.Equal(t, 50*time.Millisecond, sb.Interval(), "invalid values are ignored")
}
