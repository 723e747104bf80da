// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the interactive chat screen.

The screen is a single Bubble Tea model. A prompt is sent to the selected
Ollama model through a session.Controller; the response streams into a
viewport, batched by StreamingBuffer so redraws stay under the configured
frame rate. When the response completes (or is cancelled with esc) it is
rendered as markdown and its fenced code blocks are listed below it.

# Keys

	enter        send the prompt
	alt+enter    new line in the prompt
	esc          cancel the response, or leave the block list
	tab          move between prompt and block list
	up/down      move through blocks (j/k also work)
	space        select the block under the cursor
	a            select or clear all blocks
	s            save selected blocks
	ctrl+t       toggle night mode
	ctrl+n/p     next or previous model
	ctrl+c       quit

# Saving

Each selected block gets a path prompt pre-filled with its suggested
filename. esc skips a block; the remaining blocks are still offered.
Outcomes are shown next to the blocks and summarized in the status bar.

# Usage

	m := chat.New(chat.Options{
		Controller: ctrl,
		Server:     client,
		Writer:     &export.FileWriter{Dir: "."},
		Model:      "llama2",
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
*/
package chat
