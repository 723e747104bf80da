// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
package ollama

import "time"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// GenerateRequest is the request body for /api/generate endpoint.
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// generateLine is one NDJSON object of a streaming /api/generate response.
// Response is a pointer so a line without the field can be told apart from
// an empty fragment.
type generateLine struct {
	Model         string  `json:"model"`
	Response      *string `json:"response"`
	Done          bool    `json:"done"`
	DoneReason    string  `json:"done_reason,omitempty"`
	Error         string  `json:"error,omitempty"`
	TotalDuration int64   `json:"total_duration,omitempty"` // nanoseconds
	LoadDuration  int64   `json:"load_duration,omitempty"`  // nanoseconds
	EvalCount     int     `json:"eval_count,omitempty"`     // number of tokens generated
	EvalDuration  int64   `json:"eval_duration,omitempty"`  // nanoseconds
}

// ModelInfo contains information about a model.
type ModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}

// ListModelsResponse is the response from /api/tags endpoint.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// OllamaError represents an error body from the Ollama API.
type OllamaError struct {
	Error string `json:"error"`
}

// =============================================================================
// STREAMING TYPES
// =============================================================================

// Fragment is one decoded unit of a streamed /api/generate response.
type Fragment struct {
	// Text carried by this line. Empty for keep-alive and final lines.
	Text string

	// HasText reports whether the line carried a "response" field at all.
	HasText bool

	// Done is set on the final line.
	Done       bool
	DoneReason string
	Model      string

	// Timing and token counts (only populated on the final line)
	TotalDuration time.Duration
	LoadDuration  time.Duration
	EvalDuration  time.Duration
	EvalCount     int
}

// TokensPerSecond calculates the generation speed reported by a final fragment.
func (f Fragment) TokensPerSecond() float64 {
	if f.EvalDuration <= 0 {
		return 0
	}
	return float64(f.EvalCount) / f.EvalDuration.Seconds()
}
