// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes Prometheus counters for streaming sessions,
// extraction and export.
//
// All methods are safe on a nil *Metrics, so components take an optional
// *Metrics and record unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Session outcomes used as the "outcome" label.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	sessionsTotal   *prometheus.CounterVec
	sessionDuration prometheus.Histogram
	activeSessions  prometheus.Gauge
	chunksTotal     prometheus.Counter
	charsTotal      prometheus.Counter
	blocksTotal     prometheus.Counter
	exportsTotal    *prometheus.CounterVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		sessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ollamacode_sessions_total",
				Help: "Total number of streaming sessions by outcome",
			},
			[]string{"outcome"}, // completed, cancelled, error
		),
		sessionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ollamacode_session_duration_seconds",
				Help:    "Wall time from send to the terminal event",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ollamacode_active_sessions",
				Help: "Sessions currently streaming (0 or 1)",
			},
		),
		chunksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ollamacode_chunks_total",
				Help: "Total number of non-empty fragments received",
			},
		),
		charsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ollamacode_response_chars_total",
				Help: "Total number of response characters received",
			},
		),
		blocksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ollamacode_code_blocks_total",
				Help: "Total number of code blocks extracted",
			},
		),
		exportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ollamacode_exports_total",
				Help: "Total number of block exports by status",
			},
			[]string{"status"}, // saved, cancelled, failed
		),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SessionStarted marks a session as streaming.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionEnded records a terminal event.
func (m *Metrics) SessionEnded(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
	m.sessionsTotal.WithLabelValues(outcome).Inc()
	m.sessionDuration.Observe(d.Seconds())
}

// ChunkReceived records one fragment of n characters.
func (m *Metrics) ChunkReceived(n int) {
	if m == nil {
		return
	}
	m.chunksTotal.Inc()
	m.charsTotal.Add(float64(n))
}

// BlocksExtracted records the block count of one response.
func (m *Metrics) BlocksExtracted(n int) {
	if m == nil {
		return
	}
	m.blocksTotal.Add(float64(n))
}

// BlockExported records one export result.
func (m *Metrics) BlockExported(status string) {
	if m == nil {
		return
	}
	m.exportsTotal.WithLabelValues(status).Inc()
}
