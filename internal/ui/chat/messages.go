// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/ollamacode/internal/config"
	"github.com/jeranaias/ollamacode/internal/export"
	"github.com/jeranaias/ollamacode/internal/session"
)

// sessionEventMsg carries one worker event into the Update loop.
type sessionEventMsg struct {
	Event session.Event
}

// streamTickMsg drives batched rendering while streaming.
type streamTickMsg struct {
	Time time.Time
}

// modelsMsg delivers the model list. Err is set when the fallback list
// was used.
type modelsMsg struct {
	Models []string
	Err    error
}

// serverStatusMsg reports the startup reachability check.
type serverStatusMsg struct {
	Err error
}

// saveResultMsg reports one block written from the save prompt.
type saveResultMsg struct {
	Result export.Result
}

// ConfigChangedMsg applies a reloaded configuration. Send it with
// tea.Program.Send from a config.Watcher callback.
type ConfigChangedMsg struct {
	Config *config.Config
}
