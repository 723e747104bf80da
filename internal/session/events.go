// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "time"

// =============================================================================
// EVENTS
// =============================================================================

// Event is sent from the worker to the foreground. Exactly one terminal
// event (CompleteEvent or ErrorEvent) ends each session.
type Event interface {
	// Session returns the ID of the session that produced the event.
	Session() string

	// Terminal reports whether this is the last event of the session.
	Terminal() bool
}

// ChunkEvent carries one non-empty fragment.
type ChunkEvent struct {
	SessionID string
	Text      string
	Length    int
}

// CompleteEvent ends a session normally or by cancellation.
type CompleteEvent struct {
	SessionID string
	Model     string
	Text      string
	Cancelled bool
	Stats     Stats
	StartedAt time.Time
	EndedAt   time.Time
	Length    int
}

// Duration returns the wall time of the session.
func (e CompleteEvent) Duration() time.Duration {
	return e.EndedAt.Sub(e.StartedAt)
}

// ErrorEvent ends a failed session.
type ErrorEvent struct {
	SessionID string
	Kind      ErrorKind
	Message   string
}

// Error implements error so an ErrorEvent can be returned directly.
func (e ErrorEvent) Error() string {
	return e.Kind.String() + ": " + e.Message
}

func (e ChunkEvent) Session() string    { return e.SessionID }
func (e CompleteEvent) Session() string { return e.SessionID }
func (e ErrorEvent) Session() string    { return e.SessionID }

func (ChunkEvent) Terminal() bool    { return false }
func (CompleteEvent) Terminal() bool { return true }
func (ErrorEvent) Terminal() bool    { return true }
