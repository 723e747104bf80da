// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ollamacode/internal/extract"
	"github.com/jeranaias/ollamacode/internal/session"
	"github.com/jeranaias/ollamacode/internal/ui/components"
)

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.ready = true
		m.layout()
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionEventMsg:
		return m.handleSessionEvent(msg.Event)

	case streamTickMsg:
		return m.handleStreamTick()

	case spinner.TickMsg:
		if !m.Streaming() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case modelsMsg:
		return m.handleModels(msg)

	case serverStatusMsg:
		if msg.Err != nil {
			m.statusBar.Status = components.StatusError
			m.statusBar.Message = "Ollama not reachable: " + msg.Err.Error()
			m.log.Warn().Err(msg.Err).Msg("server check failed")
		}
		return m, nil

	case saveResultMsg:
		return m.handleSaveResult(msg.Result)

	case ConfigChangedMsg:
		return m.handleConfigChanged(msg)
	}

	return m.updateFocused(msg)
}

// updateFocused forwards unhandled messages to the focused input.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusInput:
		m.input, cmd = m.input.Update(msg)
	case focusSave:
		m.saveInput, cmd = m.saveInput.Update(msg)
	}
	return m, cmd
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.ctrl != nil {
			m.ctrl.Close()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Theme):
		m.theme.Toggle()
		m.rerender()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	switch m.focus {
	case focusBlocks:
		return m.handleBlocksKey(msg)
	case focusSave:
		return m.handleSaveKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Cancel):
		if m.ctrl != nil && m.ctrl.Cancel() {
			m.statusBar.Message = "Cancelling..."
		}
		return m, nil

	case key.Matches(msg, m.keys.FocusBlocks):
		if m.blocks.Len() > 0 {
			m.setFocus(focusBlocks)
		}
		return m, nil

	case key.Matches(msg, m.keys.NextModel):
		m.cycleModel(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevModel):
		m.cycleModel(-1)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleBlocksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.FocusBlocks), key.Matches(msg, m.keys.Cancel):
		m.setFocus(focusInput)
	case key.Matches(msg, m.keys.Up):
		m.blocks.Up()
	case key.Matches(msg, m.keys.Down):
		m.blocks.Down()
	case key.Matches(msg, m.keys.Toggle):
		m.blocks.Toggle()
	case key.Matches(msg, m.keys.SelectAll):
		m.blocks.SelectAll()
	case key.Matches(msg, m.keys.Save):
		return m.startSave()
	default:
		return m, nil
	}
	m.refreshViewport()
	return m, nil
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	m.blocks.Focused = f == focusBlocks
	if f == focusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
	if f == focusSave {
		m.saveInput.Focus()
	} else {
		m.saveInput.Blur()
	}
	m.layout()
	m.refreshViewport()
}

// cycleModel moves the selection through the model list. The selection
// is fixed while a response streams.
func (m *Model) cycleModel(step int) {
	if len(m.models) < 2 || m.Streaming() {
		return
	}
	m.modelIdx = (m.modelIdx + step + len(m.models)) % len(m.models)
	m.statusBar.Model = m.CurrentModel()
}

// =============================================================================
// SENDING
// =============================================================================

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.ctrl == nil {
		return m, nil
	}
	prompt := m.input.Value()

	s, err := m.ctrl.Send(context.Background(), m.CurrentModel(), prompt)
	switch {
	case errors.Is(err, session.ErrBusy):
		m.statusBar.Message = "A response is still streaming (esc to cancel)"
		return m, nil
	case errors.Is(err, session.ErrEmptyPrompt):
		return m, nil
	case err != nil:
		m.statusBar.Status = components.StatusError
		m.statusBar.Message = err.Error()
		return m, nil
	}

	m.log.Info().Str("session", s.ID).Str("model", s.Model).Msg("request sent")

	m.input.Reset()
	m.prompt = strings.TrimSpace(prompt)
	m.response = ""
	m.rendered = ""
	m.sessionID = s.ID
	m.buffer.Reset()
	m.blocks.SetBlocks(nil)
	m.info.Info = components.ResponseInfo{Start: time.Now()}
	m.statusBar.Status = components.StatusStreaming
	m.statusBar.Message = ""
	m.layout()
	m.refreshViewport()

	return m, tea.Batch(
		waitForEvent(m.ctrl.Events()),
		streamTickCmd(m.buffer.Interval()),
		m.spinner.Tick,
	)
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

func (m Model) handleSessionEvent(ev session.Event) (tea.Model, tea.Cmd) {
	blocks := m.ctrl.Dispatch(ev)

	switch e := ev.(type) {
	case session.ChunkEvent:
		m.buffer.Write(e.Text)
		m.info.Info.Length = e.Length
		return m, waitForEvent(m.ctrl.Events())

	case session.CompleteEvent:
		m.buffer.Reset()
		m.response = e.Text
		m.info.Info = components.ResponseInfo{
			Start:           e.StartedAt,
			End:             e.EndedAt,
			Length:          e.Length,
			Cancelled:       e.Cancelled,
			TokensPerSecond: e.Stats.TokensPerSecond(),
		}
		m.blocks.SetBlocks(blocks)
		m.statusBar.Status = components.StatusReady
		m.statusBar.Message = completionMessage(e, len(blocks))
		m.rerender()
		m.layout()
		m.refreshViewport()
		m.viewport.GotoTop()
		return m, nil

	case session.ErrorEvent:
		if text, ok := m.buffer.ForceFlush(); ok {
			m.response += text
		}
		m.info.Info.End = time.Now()
		m.statusBar.Status = components.StatusError
		m.statusBar.Message = e.Error()
		m.log.Warn().Str("session", e.SessionID).Str("kind", e.Kind.String()).Msg(e.Message)
		m.refreshViewport()
		return m, nil
	}
	return m, nil
}

func completionMessage(e session.CompleteEvent, blocks int) string {
	var b strings.Builder
	if e.Cancelled {
		b.WriteString("Cancelled. ")
	}
	switch blocks {
	case 0:
		b.WriteString("No code blocks found")
	case 1:
		b.WriteString("1 code block (tab to select)")
	default:
		fmt.Fprintf(&b, "%d code blocks (tab to select)", blocks)
	}
	return b.String()
}

// handleStreamTick flushes batched text and schedules the next tick
// while the response streams.
func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if !m.Streaming() {
		return m, nil
	}
	if text, ok := m.buffer.Flush(); ok {
		m.response += text
		m.refreshViewport()
		m.viewport.GotoBottom()
	}
	return m, streamTickCmd(m.buffer.Interval())
}

// =============================================================================
// MODELS AND CONFIG
// =============================================================================

func (m Model) handleModels(msg modelsMsg) (tea.Model, tea.Cmd) {
	current := m.CurrentModel()
	models := slices.Clone(msg.Models)
	idx := slices.Index(models, current)
	if idx < 0 && current != "" {
		models = append([]string{current}, models...)
		idx = 0
	}
	if idx < 0 {
		idx = 0
	}
	m.models = models
	m.modelIdx = idx
	m.statusBar.Model = m.CurrentModel()

	if msg.Err != nil {
		m.statusBar.Message = "Could not list models, using defaults"
		m.log.Warn().Err(msg.Err).Msg("model listing failed")
	}
	return m, nil
}

func (m Model) handleConfigChanged(msg ConfigChangedMsg) (tea.Model, tea.Cmd) {
	cfg := msg.Config
	if cfg == nil {
		return m, nil
	}
	m.theme.Apply(cfg.UI.Theme, cfg.UI.SyntaxStyle)
	m.buffer.SetMaxFPS(cfg.UI.MaxFPS)
	m.lineNumbers = cfg.UI.LineNumbers
	m.writer.Dir = cfg.Export.Dir
	m.writer.Overwrite = cfg.Export.Overwrite
	if m.ctrl != nil {
		opts := append(cfg.ExtractOptions(), extract.WithLogger(m.log))
		m.ctrl.SetExtractor(extract.New(opts...))
	}
	m.rerender()
	m.refreshViewport()
	m.statusBar.Message = "Configuration reloaded"
	m.log.Info().Msg("configuration applied")
	return m, nil
}
