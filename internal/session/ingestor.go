// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/ollamacode/internal/metrics"
	"github.com/jeranaias/ollamacode/internal/ollama"
)

// =============================================================================
// ERROR KINDS
// =============================================================================

// ErrorKind classifies a failed session. Cancellation is not an error.
type ErrorKind int

const (
	// ConnectionError covers refused connections, DNS failures, timeouts
	// and streams cut mid-read.
	ConnectionError ErrorKind = iota + 1

	// ProtocolError covers non-2xx statuses and in-band {"error": ...} lines.
	ProtocolError

	// MalformedChunk is an undecodable stream line.
	MalformedChunk
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case ConnectionError:
		return "ConnectionError"
	case ProtocolError:
		return "ProtocolError"
	case MalformedChunk:
		return "MalformedChunk"
	default:
		return "UnknownError"
	}
}

// kindOf maps a transport error to its session error kind.
func kindOf(err error) ErrorKind {
	switch ollama.TypeOf(err) {
	case ollama.ErrTypeConnection:
		return ConnectionError
	case ollama.ErrTypeMalformedChunk:
		return MalformedChunk
	default:
		return ProtocolError
	}
}

// =============================================================================
// CALLBACKS
// =============================================================================

// Callbacks receive the progress of one run. They are invoked on the
// worker goroutine, in order, and never concurrently.
type Callbacks struct {
	// OnChunk receives each non-empty fragment and the cumulative length.
	OnChunk func(text string, cumulativeLength int)

	// CancelRequested is polled once per received line, after the line is
	// read and before it is processed. Session.Cancel is always honoured
	// whether or not this is set.
	CancelRequested func() bool

	// OnComplete fires on done, end of stream or cancellation.
	OnComplete func(finalText string, wasCancelled bool)

	// OnError fires on any failure. No retry is attempted.
	OnError func(kind ErrorKind, message string)
}

// =============================================================================
// INGESTOR
// =============================================================================

// Opener starts a streaming generate request. *ollama.Client implements it.
type Opener interface {
	OpenGenerate(ctx context.Context, req ollama.GenerateRequest) (*ollama.StreamReader, error)
}

// Pinger is the optional preflight check. *ollama.Client implements it.
type Pinger interface {
	CheckRunning(ctx context.Context) error
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithIdleTimeout aborts a run when no line arrives for d. Zero disables it.
func WithIdleTimeout(d time.Duration) Option {
	return func(in *Ingestor) { in.idleTimeout = d }
}

// WithPreflight checks server reachability before each run.
func WithPreflight(p Pinger) Option {
	return func(in *Ingestor) { in.pinger = p }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(in *Ingestor) { in.log = log }
}

// WithMetrics records chunk and session metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(in *Ingestor) { in.metrics = m }
}

// Ingestor reads a generate stream into a Session.
// One Ingestor may run many sessions, including concurrently.
type Ingestor struct {
	opener      Opener
	pinger      Pinger
	idleTimeout time.Duration
	log         zerolog.Logger
	metrics     *metrics.Metrics
}

// NewIngestor creates an Ingestor over opener.
func NewIngestor(opener Opener, opts ...Option) *Ingestor {
	in := &Ingestor{
		opener: opener,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// BeginStream starts a session against endpoint on a new goroutine and
// returns it immediately. Cancel the returned session to stop it.
func BeginStream(ctx context.Context, endpoint, model, prompt string, cb Callbacks) *Session {
	s := New(model, prompt)
	client := ollama.NewClient(endpoint)
	go NewIngestor(client).Run(ctx, s, cb)
	return s
}

// Run drives s until the stream ends, fails or is cancelled. It blocks
// and reports exactly once through cb.OnComplete or cb.OnError.
func (in *Ingestor) Run(ctx context.Context, s *Session, cb Callbacks) {
	s.StartedAt = time.Now()
	in.metrics.SessionStarted()

	log := in.log.With().Str("session", s.ID).Str("model", s.Model).Logger()
	log.Debug().Int("prompt_len", len(s.Prompt)).Msg("session started")

	var once sync.Once
	complete := func(cancelled bool) {
		once.Do(func() {
			s.EndedAt = time.Now()
			outcome := metrics.OutcomeCompleted
			if cancelled {
				outcome = metrics.OutcomeCancelled
			}
			in.metrics.SessionEnded(outcome, s.Duration())
			log.Info().
				Bool("cancelled", cancelled).
				Int("len", s.Len()).
				Dur("elapsed", s.Duration()).
				Msg("session complete")
			if cb.OnComplete != nil {
				cb.OnComplete(s.Text(), cancelled)
			}
		})
	}
	fail := func(kind ErrorKind, message string) {
		once.Do(func() {
			s.EndedAt = time.Now()
			in.metrics.SessionEnded(metrics.OutcomeError, s.Duration())
			log.Warn().Str("kind", kind.String()).Str("error", message).Msg("session failed")
			if cb.OnError != nil {
				cb.OnError(kind, message)
			}
		})
	}
	cancelRequested := func() bool {
		if s.Cancelled() {
			return true
		}
		return cb.CancelRequested != nil && cb.CancelRequested()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Session.Cancel must also unblock a read stuck on the socket.
	go func() {
		select {
		case <-s.aborted():
			cancel()
		case <-ctx.Done():
		}
	}()

	// The idle deadline runs only while waiting on the server: through the
	// preflight and request, then around each NextLine. Time spent in the
	// callbacks does not count against it.
	var timedOut atomic.Bool
	var idle *time.Timer
	if in.idleTimeout > 0 {
		idle = time.AfterFunc(in.idleTimeout, func() {
			timedOut.Store(true)
			cancel()
		})
		defer idle.Stop()
	}
	arm := func() {
		if idle != nil && !timedOut.Load() {
			idle.Reset(in.idleTimeout)
		}
	}
	disarm := func() {
		if idle != nil {
			idle.Stop()
		}
	}

	// classify turns a transport failure into the terminal callback. A
	// failure caused by our own cancellation is a cancelled completion.
	classify := func(err error) {
		switch {
		case timedOut.Load():
			fail(ConnectionError, fmt.Sprintf("no data from Ollama for %s", in.idleTimeout))
		case s.Cancelled() || errors.Is(ctx.Err(), context.Canceled):
			complete(true)
		default:
			fail(kindOf(err), err.Error())
		}
	}

	if cancelRequested() {
		complete(true)
		return
	}

	if in.pinger != nil {
		if err := in.pinger.CheckRunning(ctx); err != nil {
			if ctx.Err() != nil {
				classify(err)
			} else {
				// Any preflight failure means the server cannot be used.
				fail(ConnectionError, err.Error())
			}
			return
		}
	}

	stream, err := in.opener.OpenGenerate(ctx, ollama.GenerateRequest{Model: s.Model, Prompt: s.Prompt})
	if err != nil {
		classify(err)
		return
	}
	defer stream.Close()

	for {
		arm()
		line, err := stream.NextLine()
		disarm()
		if errors.Is(err, io.EOF) {
			// Connection ended without done=true.
			s.stats.Lines = stream.Lines()
			complete(false)
			return
		}
		if err != nil {
			classify(err)
			return
		}

		if cancelRequested() {
			complete(true)
			return
		}

		frag, err := ollama.DecodeFragment(line)
		if err != nil {
			fail(kindOf(err), err.Error())
			return
		}

		if frag.Text != "" {
			before := s.Len()
			n := s.append(frag.Text)
			in.metrics.ChunkReceived(n - before)
			if cb.OnChunk != nil {
				cb.OnChunk(frag.Text, n)
			}
		}

		if frag.Done {
			s.stats = statsFrom(frag, stream.Lines())
			complete(false)
			return
		}
	}
}
