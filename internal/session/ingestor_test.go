// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/jeranaias/ollamacode/internal/ollama"
)

// =============================================================================
// FAKES
// =============================================================================

type openerFunc func(ctx context.Context, req ollama.GenerateRequest) (*ollama.StreamReader, error)

func (f openerFunc) OpenGenerate(ctx context.Context, req ollama.GenerateRequest) (*ollama.StreamReader, error) {
	return f(ctx, req)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) CheckRunning(ctx context.Context) error { return f(ctx) }

// linesOpener serves a fixed NDJSON body.
func linesOpener(lines ...string) openerFunc {
	return func(context.Context, ollama.GenerateRequest) (*ollama.StreamReader, error) {
		body := strings.Join(lines, "\n") + "\n"
		return ollama.NewStreamReader(io.NopCloser(strings.NewReader(body))), nil
	}
}

// stallingOpener writes lines and then blocks until the request context is
// cancelled, like an HTTP body whose server stopped sending.
func stallingOpener(lines ...string) openerFunc {
	return func(ctx context.Context, _ ollama.GenerateRequest) (*ollama.StreamReader, error) {
		pr, pw := io.Pipe()
		go func() {
			for _, l := range lines {
				if _, err := io.WriteString(pw, l+"\n"); err != nil {
					return
				}
			}
			<-ctx.Done()
			pw.CloseWithError(ctx.Err())
		}()
		return ollama.NewStreamReader(pr), nil
	}
}

func text(s string) string {
	b, _ := json.Marshal(s)
	return fmt.Sprintf(`{"model":"llama2","response":%s,"done":false}`, b)
}

const doneLine = `{"model":"llama2","response":"","done":true,"done_reason":"stop","eval_count":42,"eval_duration":2000000000}`

// recorder captures callbacks. Safe for use across goroutines.
type recorder struct {
	mu        sync.Mutex
	chunks    []string
	lengths   []int
	completes int
	errs      int
	final     string
	cancelled bool
	kind      ErrorKind
	message   string
	done      chan struct{}
	onChunk   func(n int)
}

func newRecorder() *recorder {
	return &recorder{done: make(chan struct{}, 4)}
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnChunk: func(text string, n int) {
			r.mu.Lock()
			r.chunks = append(r.chunks, text)
			r.lengths = append(r.lengths, n)
			hook := r.onChunk
			r.mu.Unlock()
			if hook != nil {
				hook(n)
			}
		},
		OnComplete: func(final string, cancelled bool) {
			r.mu.Lock()
			r.completes++
			r.final = final
			r.cancelled = cancelled
			r.mu.Unlock()
			r.done <- struct{}{}
		},
		OnError: func(kind ErrorKind, message string) {
			r.mu.Lock()
			r.errs++
			r.kind = kind
			r.message = message
			r.mu.Unlock()
			r.done <- struct{}{}
		},
	}
}

func (r *recorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("no terminal callback")
	}
}

func (r *recorder) terminals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completes + r.errs
}

// =============================================================================
// NORMAL TERMINATION
// =============================================================================

func TestRun_AccumulatesFragments(t *testing.T) {
	in := NewIngestor(linesOpener(text("Hel"), text("lo"), text(""), text(" wörld"), doneLine))
	s := New("llama2", "hi")
	rec := newRecorder()

	in.Run(context.Background(), s, rec.callbacks())

	assert.Equal(t, 1, rec.completes)
	assert.Equal(t, 0, rec.errs)
	assert.False(t, rec.cancelled)
	assert.Equal(t, "Hello wörld", rec.final)
	assert.Equal(t, []string{"Hel", "lo", " wörld"}, rec.chunks)
	assert.Equal(t, []int{3, 5, 11}, rec.lengths, "length counts characters, not bytes")
	assert.Equal(t, 11, s.Len())

	assert.Equal(t, 42, s.Stats().EvalCount)
	assert.Equal(t, "stop", s.Stats().DoneReason)
	assert.InDelta(t, 21.0, s.Stats().TokensPerSecond(), 0.01)
	assert.False(t, s.StartedAt.IsZero())
	assert.False(t, s.EndedAt.Before(s.StartedAt))
}

func TestRun_StopsAtDone(t *testing.T) {
	in := NewIngestor(linesOpener(text("a"), doneLine, text("ignored"), "not json"))
	rec := newRecorder()

	in.Run(context.Background(), New("m", "p"), rec.callbacks())

	assert.Equal(t, 1, rec.completes)
	assert.Equal(t, 0, rec.errs)
	assert.Equal(t, "a", rec.final)
}

func TestRun_EndOfStreamWithoutDone(t *testing.T) {
	in := NewIngestor(linesOpener(text("partial"), "", text(" answer")))
	rec := newRecorder()

	in.Run(context.Background(), New("m", "p"), rec.callbacks())

	assert.Equal(t, 1, rec.completes)
	assert.False(t, rec.cancelled)
	assert.Equal(t, "partial answer", rec.final)
}

func TestRun_RequestCarriesModelAndPrompt(t *testing.T) {
	var got ollama.GenerateRequest
	opener := openerFunc(func(ctx context.Context, req ollama.GenerateRequest) (*ollama.StreamReader, error) {
		got = req
		return linesOpener(doneLine)(ctx, req)
	})

	NewIngestor(opener).Run(context.Background(), New("mistral", "write code"), Callbacks{})

	assert.Equal(t, "mistral", got.Model)
	assert.Equal(t, "write code", got.Prompt)
}

// =============================================================================
// ERRORS
// =============================================================================

func TestRun_MalformedChunkAborts(t *testing.T) {
	in := NewIngestor(linesOpener(text("ok"), `{"response": "broken`, text("never")))
	rec := newRecorder()

	in.Run(context.Background(), New("m", "p"), rec.callbacks())

	assert.Equal(t, 0, rec.completes)
	assert.Equal(t, 1, rec.errs)
	assert.Equal(t, MalformedChunk, rec.kind)
	assert.Equal(t, []string{"ok"}, rec.chunks)
}

func TestRun_InBandErrorIsProtocolError(t *testing.T) {
	in := NewIngestor(linesOpener(text("a"), `{"error":"out of memory"}`))
	rec := newRecorder()

	in.Run(context.Background(), New("m", "p"), rec.callbacks())

	assert.Equal(t, 1, rec.errs)
	assert.Equal(t, ProtocolError, rec.kind)
	assert.Contains(t, rec.message, "out of memory")
}

func TestRun_HTTPStatusIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"model 'nope' not found"}`)
	}))
	defer srv.Close()

	rec := newRecorder()
	NewIngestor(ollama.NewClient(srv.URL)).Run(context.Background(), New("nope", "p"), rec.callbacks())

	assert.Equal(t, 1, rec.errs)
	assert.Equal(t, ProtocolError, rec.kind)
	assert.Contains(t, rec.message, "not found")
}

func TestRun_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	rec := newRecorder()
	NewIngestor(ollama.NewClient("http://"+addr)).Run(context.Background(), New("m", "p"), rec.callbacks())

	assert.Equal(t, 1, rec.errs)
	assert.Equal(t, ConnectionError, rec.kind)
}

func TestRun_PreflightFailure(t *testing.T) {
	opened := false
	opener := openerFunc(func(ctx context.Context, req ollama.GenerateRequest) (*ollama.StreamReader, error) {
		opened = true
		return linesOpener(doneLine)(ctx, req)
	})
	pinger := pingerFunc(func(context.Context) error {
		return &ollama.ClientError{Type: ollama.ErrTypeProtocol, StatusCode: 502, Message: "bad gateway"}
	})

	rec := newRecorder()
	NewIngestor(opener, WithPreflight(pinger)).Run(context.Background(), New("m", "p"), rec.callbacks())

	assert.False(t, opened)
	assert.Equal(t, 1, rec.errs)
	assert.Equal(t, ConnectionError, rec.kind)
}

func TestRun_IdleTimeout(t *testing.T) {
	rec := newRecorder()
	in := NewIngestor(stallingOpener(text("first")), WithIdleTimeout(50*time.Millisecond))

	start := time.Now()
	in.Run(context.Background(), New("m", "p"), rec.callbacks())

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, rec.errs)
	assert.Equal(t, ConnectionError, rec.kind)
	assert.Contains(t, rec.message, "no data")
	assert.Equal(t, []string{"first"}, rec.chunks)
}

func TestRun_IdleTimeoutOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, text("hi")+"\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	rec := newRecorder()
	in := NewIngestor(ollama.NewClient(srv.URL), WithIdleTimeout(100*time.Millisecond))
	in.Run(context.Background(), New("m", "p"), rec.callbacks())

	assert.Equal(t, 1, rec.errs)
	assert.Equal(t, ConnectionError, rec.kind)
}

// ctxLineReader hands out one line per Read and fails once ctx is done, so
// a cancelled request is observed on the next read even when more data is
// ready.
type ctxLineReader struct {
	ctx   context.Context
	lines []string
}

func (r *ctxLineReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	if len(r.lines) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.lines[0]+"\n")
	r.lines = r.lines[1:]
	return n, nil
}

func (r *ctxLineReader) Close() error { return nil }

func TestRun_SlowConsumerIsNotIdle(t *testing.T) {
	opener := openerFunc(func(ctx context.Context, _ ollama.GenerateRequest) (*ollama.StreamReader, error) {
		return ollama.NewStreamReader(&ctxLineReader{ctx: ctx, lines: []string{text("a"), text("b"), doneLine}}), nil
	})
	in := NewIngestor(opener, WithIdleTimeout(50*time.Millisecond))

	rec := newRecorder()
	rec.onChunk = func(n int) {
		if n == 1 {
			time.Sleep(200 * time.Millisecond)
		}
	}
	in.Run(context.Background(), New("m", "p"), rec.callbacks())

	assert.Equal(t, 0, rec.errs, rec.message)
	assert.Equal(t, 1, rec.completes)
	assert.False(t, rec.cancelled)
	assert.Equal(t, "ab", rec.final)
}

func TestRun_SteadyTrickleUnderIdleTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, s := range []string{"a", "b", "c", "d", "e", "f"} {
			io.WriteString(w, text(s)+"\n")
			w.(http.Flusher).Flush()
			time.Sleep(40 * time.Millisecond)
		}
		io.WriteString(w, doneLine+"\n")
	}))
	defer srv.Close()

	rec := newRecorder()
	in := NewIngestor(ollama.NewClient(srv.URL), WithIdleTimeout(150*time.Millisecond))
	in.Run(context.Background(), New("m", "p"), rec.callbacks())

	assert.Equal(t, 0, rec.errs, rec.message)
	assert.Equal(t, "abcdef", rec.final)
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestRun_CancelRequestedStopsBeforeNextLine(t *testing.T) {
	in := NewIngestor(linesOpener(text("a"), text("b"), text("c"), doneLine))
	rec := newRecorder()
	cb := rec.callbacks()
	cb.CancelRequested = func() bool { return len(rec.chunks) >= 2 }

	in.Run(context.Background(), New("m", "p"), cb)

	assert.Equal(t, 1, rec.completes)
	assert.True(t, rec.cancelled)
	assert.Equal(t, "ab", rec.final)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	opened := false
	opener := openerFunc(func(context.Context, ollama.GenerateRequest) (*ollama.StreamReader, error) {
		opened = true
		return nil, errors.New("unreachable")
	})
	s := New("m", "p")
	s.Cancel()
	s.Cancel()

	rec := newRecorder()
	NewIngestor(opener).Run(context.Background(), s, rec.callbacks())

	assert.False(t, opened)
	assert.Equal(t, 1, rec.completes)
	assert.True(t, rec.cancelled)
	assert.Empty(t, rec.final)
}

func TestRun_CancelUnblocksStalledRead(t *testing.T) {
	s := New("m", "p")
	rec := newRecorder()
	rec.onChunk = func(int) { s.Cancel() }

	go NewIngestor(stallingOpener(text("only"))).Run(context.Background(), s, rec.callbacks())
	rec.wait(t)

	assert.Equal(t, 1, rec.terminals())
	assert.True(t, rec.cancelled)
	assert.Equal(t, "only", rec.final)
	assert.True(t, s.Cancelled())
}

func TestRun_ParentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := newRecorder()
	rec.onChunk = func(int) { cancel() }

	NewIngestor(stallingOpener(text("x"))).Run(ctx, New("m", "p"), rec.callbacks())

	assert.Equal(t, 1, rec.completes)
	assert.True(t, rec.cancelled)
}

func TestBeginStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, text("print(1)")+"\n"+doneLine+"\n")
	}))
	defer srv.Close()

	rec := newRecorder()
	s := BeginStream(context.Background(), srv.URL, "llama2", "hi", rec.callbacks())
	require.NotNil(t, s)
	rec.wait(t)

	assert.Equal(t, 1, rec.completes)
	assert.Equal(t, "print(1)", rec.final)
	assert.Equal(t, "llama2", s.Model)
}

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "ConnectionError", ConnectionError.String())
	assert.Equal(t, "ProtocolError", ProtocolError.String())
	assert.Equal(t, "MalformedChunk", MalformedChunk.String())
	assert.Equal(t, "UnknownError", ErrorKind(0).String())
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestRun_ConcatenationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		frags := rapid.SliceOf(rapid.String()).Draw(t, "fragments")

		lines := make([]string, 0, len(frags)+1)
		for _, f := range frags {
			lines = append(lines, text(f))
		}
		lines = append(lines, doneLine)

		rec := newRecorder()
		s := New("m", "p")
		NewIngestor(linesOpener(lines...)).Run(context.Background(), s, rec.callbacks())

		want := strings.Join(frags, "")
		if rec.final != want {
			t.Fatalf("final %q, want %q", rec.final, want)
		}
		if s.Len() != len([]rune(want)) {
			t.Fatalf("length %d, want %d", s.Len(), len([]rune(want)))
		}
	})
}

func TestRun_CancelPrefixProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		frags := rapid.SliceOfN(rapid.StringN(1, 8, -1), 1, 20).Draw(t, "fragments")
		stopAfter := rapid.IntRange(0, len(frags)).Draw(t, "stopAfter")

		lines := make([]string, 0, len(frags)+1)
		for _, f := range frags {
			lines = append(lines, text(f))
		}
		lines = append(lines, doneLine)

		rec := newRecorder()
		cb := rec.callbacks()
		cb.CancelRequested = func() bool { return len(rec.chunks) >= stopAfter }
		NewIngestor(linesOpener(lines...)).Run(context.Background(), New("m", "p"), cb)

		full := strings.Join(frags, "")
		if !strings.HasPrefix(full, rec.final) {
			t.Fatalf("%q is not a prefix of %q", rec.final, full)
		}
		if !rec.cancelled {
			t.Fatalf("expected cancelled completion")
		}
	})
}

func TestRun_ExactlyOnceProperty(t *testing.T) {
	kinds := []string{"text", "empty", "blank", "malformed", "error", "done"}

	rapid.Check(t, func(t *rapid.T) {
		picks := rapid.SliceOf(rapid.SampledFrom(kinds)).Draw(t, "lines")
		cancelAt := rapid.IntRange(-1, len(picks)).Draw(t, "cancelAt")

		lines := make([]string, 0, len(picks))
		for _, k := range picks {
			switch k {
			case "text":
				lines = append(lines, text("x"))
			case "empty":
				lines = append(lines, text(""))
			case "blank":
				lines = append(lines, "   ")
			case "malformed":
				lines = append(lines, "{oops")
			case "error":
				lines = append(lines, `{"error":"boom"}`)
			case "done":
				lines = append(lines, doneLine)
			}
		}

		rec := newRecorder()
		cb := rec.callbacks()
		polls := 0
		cb.CancelRequested = func() bool {
			polls++
			return cancelAt >= 0 && polls > cancelAt
		}
		NewIngestor(linesOpener(lines...)).Run(context.Background(), New("m", "p"), cb)

		if n := rec.terminals(); n != 1 {
			t.Fatalf("%d terminal callbacks, want 1", n)
		}
	})
}
