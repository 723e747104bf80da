// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session runs one streaming generate request at a time.
//
// A Session is the state of one request: its prompt, the text accumulated so
// far and a cancel flag. The Ingestor drives a Session from a worker
// goroutine and reports through Callbacks; exactly one of OnComplete or
// OnError fires per run. The Controller owns the single active Session on the
// foreground goroutine and turns worker callbacks into Events on a channel.
//
// # Key Types
//
//   - Session: one request/response lifecycle
//   - Ingestor: reads the NDJSON stream into a Session
//   - Controller: foreground owner, event channel, extraction on completion
//   - Event: ChunkEvent, CompleteEvent, ErrorEvent
//
// # Usage
//
//	ctrl := session.NewController(session.NewIngestor(client), extract.New())
//	if _, err := ctrl.Send(ctx, "llama2", prompt); err != nil {
//	    return err
//	}
//	for ev := range ctrl.Events() {
//	    blocks := ctrl.Dispatch(ev)
//	    ...
//	    if ev.Terminal() {
//	        break
//	    }
//	}
//
// # Concurrency
//
// The cancel flag is the only field written by the foreground while the
// worker runs. Text and timestamps are written by the worker and may be read
// by the foreground once the terminal event has been received.
package session
