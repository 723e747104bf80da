// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ollamacode/internal/export"
	"github.com/jeranaias/ollamacode/internal/extract"
	"github.com/jeranaias/ollamacode/internal/ui/components"
)

// =============================================================================
// SAVE PROMPT
// =============================================================================
//
// Selected blocks are saved one at a time. Each gets a path prompt filled
// with its suggested filename; esc skips the block without writing and
// the remaining blocks still get their prompt.

// startSave queues the selected blocks and prompts for the first one.
func (m Model) startSave() (tea.Model, tea.Cmd) {
	queue := m.blocks.Selected()
	if len(queue) == 0 {
		m.statusBar.Message = "No blocks selected (space to select)"
		return m, nil
	}
	m.saveQueue = queue
	m.saveResults = nil
	m.statusBar.Status = components.StatusSaving
	m.statusBar.Message = ""
	m.promptNext()
	m.setFocus(focusSave)
	return m, nil
}

// promptNext fills the prompt for the head of the queue.
func (m *Model) promptNext() {
	if len(m.saveQueue) == 0 {
		return
	}
	m.saveInput.SetValue(m.saveQueue[0].Filename)
	m.saveInput.CursorEnd()
}

func (m Model) handleSaveKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.saving || len(m.saveQueue) == 0 {
		return m, nil
	}
	block := m.saveQueue[0]

	switch {
	case key.Matches(msg, m.keys.Submit):
		path := strings.TrimSpace(m.saveInput.Value())
		if path == "" {
			return m.handleSaveResult(m.exporter().Dismiss(block))
		}
		m.saving = true
		return m, saveCmd(m.exporter(), block, path)

	case key.Matches(msg, m.keys.Cancel):
		return m.handleSaveResult(m.exporter().Dismiss(block))
	}

	var cmd tea.Cmd
	m.saveInput, cmd = m.saveInput.Update(msg)
	return m, cmd
}

// exporter binds a copy of the writer so a config reload cannot change
// it under a running save.
func (m Model) exporter() *export.Exporter {
	w := *m.writer
	return export.New(nil, &w,
		export.WithLogger(m.log),
		export.WithMetrics(m.metrics),
	)
}

func saveCmd(ex *export.Exporter, block extract.CodeBlock, path string) tea.Cmd {
	return func() tea.Msg {
		return saveResultMsg{Result: ex.Save(block, path)}
	}
}

// handleSaveResult records one outcome and moves to the next block.
func (m Model) handleSaveResult(r export.Result) (tea.Model, tea.Cmd) {
	m.saving = false
	m.saveResults = append(m.saveResults, r)
	m.blocks.Status[r.Block.Index] = resultNote(r)

	if len(m.saveQueue) > 0 {
		m.saveQueue = m.saveQueue[1:]
	}
	if len(m.saveQueue) > 0 {
		if r.Status == export.Failed {
			m.statusBar.Message = r.Err.Error()
		}
		m.promptNext()
		return m, nil
	}

	summary := export.Summarize(m.saveResults)
	m.statusBar.Status = components.StatusReady
	if summary.Failed > 0 {
		m.statusBar.Status = components.StatusError
	}
	m.statusBar.Message = "Export: " + summary.String()
	m.setFocus(focusBlocks)
	return m, nil
}

func resultNote(r export.Result) string {
	switch r.Status {
	case export.Saved:
		return fmt.Sprintf("saved to %s", r.Path)
	case export.Failed:
		return "failed"
	default:
		return r.Status.String()
	}
}
