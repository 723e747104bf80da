// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value sums every sample of the named family matching label (or all
// samples when label is empty).
func value(t *testing.T, m *Metrics, name, label string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if label != "" {
				match := false
				for _, lp := range metric.GetLabel() {
					if lp.GetValue() == label {
						match = true
					}
				}
				if !match {
					continue
				}
			}
			switch {
			case metric.Counter != nil:
				total += metric.GetCounter().GetValue()
			case metric.Gauge != nil:
				total += metric.GetGauge().GetValue()
			case metric.Histogram != nil:
				total += float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}

func TestMetrics_SessionLifecycle(t *testing.T) {
	m := New()

	m.SessionStarted()
	assert.Equal(t, 1.0, value(t, m, "ollamacode_active_sessions", ""))

	m.ChunkReceived(5)
	m.ChunkReceived(3)
	m.SessionEnded(OutcomeCancelled, 2*time.Second)

	assert.Equal(t, 0.0, value(t, m, "ollamacode_active_sessions", ""))
	assert.Equal(t, 2.0, value(t, m, "ollamacode_chunks_total", ""))
	assert.Equal(t, 8.0, value(t, m, "ollamacode_response_chars_total", ""))
	assert.Equal(t, 1.0, value(t, m, "ollamacode_sessions_total", OutcomeCancelled))
	assert.Equal(t, 0.0, value(t, m, "ollamacode_sessions_total", OutcomeCompleted))
	assert.Equal(t, 1.0, value(t, m, "ollamacode_session_duration_seconds", ""))
}

func TestMetrics_BlocksAndExports(t *testing.T) {
	m := New()
	m.BlocksExtracted(3)
	m.BlockExported("saved")
	m.BlockExported("saved")
	m.BlockExported("failed")

	assert.Equal(t, 3.0, value(t, m, "ollamacode_code_blocks_total", ""))
	assert.Equal(t, 2.0, value(t, m, "ollamacode_exports_total", "saved"))
	assert.Equal(t, 1.0, value(t, m, "ollamacode_exports_total", "failed"))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SessionStarted()
		m.ChunkReceived(1)
		m.SessionEnded(OutcomeError, time.Second)
		m.BlocksExtracted(1)
		m.BlockExported("saved")
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.BlocksExtracted(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ollamacode_code_blocks_total 2")
}

func TestMetrics_ServeAndShutdown(t *testing.T) {
	m := New()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.serve(ctx, ln, zerolog.Nop()) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "ollamacode_active_sessions")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mw("a"), mw("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}
