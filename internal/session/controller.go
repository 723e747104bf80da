// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/ollamacode/internal/extract"
	"github.com/jeranaias/ollamacode/internal/metrics"
)

var (
	// ErrBusy is returned by Send while a session is active. The new
	// request is dropped, not queued.
	ErrBusy = errors.New("a request is already in progress")

	// ErrEmptyPrompt is returned by Send for a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")
)

// DefaultEventBuffer is the event channel capacity.
const DefaultEventBuffer = 256

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the active session. All methods except Events must be
// called from a single foreground goroutine; the worker only ever talks
// to it through the event channel.
type Controller struct {
	ingestor  *Ingestor
	extractor *extract.Extractor
	log       zerolog.Logger
	metrics   *metrics.Metrics

	events    chan Event
	quit      chan struct{}
	closeOnce sync.Once

	active *Session
}

// NewController creates a controller. Logging and metrics follow the
// ingestor's configuration.
func NewController(in *Ingestor, ex *extract.Extractor) *Controller {
	if ex == nil {
		ex = extract.New()
	}
	return &Controller{
		ingestor:  in,
		extractor: ex,
		log:       in.log,
		metrics:   in.metrics,
		events:    make(chan Event, DefaultEventBuffer),
		quit:      make(chan struct{}),
	}
}

// Events returns the channel the worker reports on. Every received event
// must be passed to Dispatch.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Busy reports whether a session is active.
func (c *Controller) Busy() bool {
	return c.active != nil
}

// Active returns the active session, or nil.
func (c *Controller) Active() *Session {
	return c.active
}

// Send starts a new session on a worker goroutine. It returns ErrBusy
// without side effects if a session is already active.
func (c *Controller) Send(ctx context.Context, model, prompt string) (*Session, error) {
	if c.active != nil {
		return nil, ErrBusy
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	s := New(model, prompt)
	c.active = s

	cb := Callbacks{
		OnChunk: func(text string, length int) {
			c.emit(ChunkEvent{SessionID: s.ID, Text: text, Length: length})
		},
		OnComplete: func(text string, cancelled bool) {
			c.emit(CompleteEvent{
				SessionID: s.ID,
				Model:     s.Model,
				Text:      text,
				Cancelled: cancelled,
				Stats:     s.Stats(),
				StartedAt: s.StartedAt,
				EndedAt:   s.EndedAt,
				Length:    s.Len(),
			})
		},
		OnError: func(kind ErrorKind, message string) {
			c.emit(ErrorEvent{SessionID: s.ID, Kind: kind, Message: message})
		},
	}

	go c.ingestor.Run(ctx, s, cb)
	return s, nil
}

// emit runs on the worker. It blocks while the channel is full so no
// event is lost, unless the controller is closed.
func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.quit:
	}
}

// SetExtractor replaces the extractor used for later responses. Call it
// from the foreground goroutine.
func (c *Controller) SetExtractor(ex *extract.Extractor) {
	if ex != nil {
		c.extractor = ex
	}
}

// Cancel requests cancellation of the active session. It reports whether
// there was one. The session still ends with a CompleteEvent.
func (c *Controller) Cancel() bool {
	if c.active == nil {
		return false
	}
	c.active.Cancel()
	return true
}

// Dispatch applies ev to the controller state on the foreground. A
// terminal event clears the active session; a CompleteEvent (cancelled or
// not) is run through the extractor and its blocks are returned.
func (c *Controller) Dispatch(ev Event) []extract.CodeBlock {
	if ev.Terminal() && c.active != nil && c.active.ID == ev.Session() {
		c.active = nil
	}

	e, ok := ev.(CompleteEvent)
	if !ok {
		return nil
	}

	blocks := c.extractor.Extract(e.Text)
	c.metrics.BlocksExtracted(len(blocks))
	c.log.Debug().
		Str("session", e.SessionID).
		Int("blocks", len(blocks)).
		Bool("cancelled", e.Cancelled).
		Msg("extracted code blocks")
	return blocks
}

// Close cancels the active session and releases a worker blocked on a
// full event channel. Events sent after Close are dropped.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		if c.active != nil {
			c.active.Cancel()
		}
		close(c.quit)
	})
}
