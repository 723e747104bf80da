// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ollamacode/internal/ui/components"
	"github.com/jeranaias/ollamacode/internal/ui/styles"
)

// maxBlockListRows caps the block list height.
const maxBlockListRows = 8

// View renders the chat screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	sections := []string{m.renderHeader(), m.viewport.View()}
	if list := m.blocks.View(); list != "" {
		sections = append(sections, list)
	}
	if info := m.info.View(time.Now()); info != "" {
		sections = append(sections, info)
	}
	sections = append(sections, m.renderInput(), m.statusBar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	t := m.theme
	title := t.HeaderTitle.Render("ollamacode")
	model := t.HeaderModel.Render(m.CurrentModel())
	if m.Streaming() {
		model += " " + m.spinner.View()
	}
	if t.GetLayoutMode() == styles.LayoutNarrow {
		return t.Header.Width(m.width).MaxWidth(m.width).Render(model)
	}
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(model) - 2
	if gap < 1 {
		gap = 1
	}
	return t.Header.Width(m.width).MaxWidth(m.width).
		Render(title + strings.Repeat(" ", gap) + model)
}

func (m Model) renderInput() string {
	t := m.theme
	if m.focus == focusSave {
		var b strings.Builder
		if len(m.saveQueue) > 0 {
			cb := components.NewCodeBlock(t, m.saveQueue[0])
			b.WriteString(t.Muted.Render(cb.Title()))
			b.WriteString("\n")
		}
		b.WriteString(m.saveInput.View())
		b.WriteString("\n")
		b.WriteString(m.help.ShortHelpView(m.keys.SaveHelp()))
		return t.InputContainer.Width(m.width).Render(b.String())
	}
	return t.InputContainer.Width(m.width).Render(m.input.View())
}

// =============================================================================
// LAYOUT
// =============================================================================

// layout sizes the components for the window. The viewport takes what
// the fixed sections leave.
func (m *Model) layout() {
	w := m.width
	m.input.SetWidth(w - 2)
	m.saveInput.Width = w - lipgloss.Width(m.saveInput.Prompt) - 2
	m.help.Width = w
	m.blocks.Width = w
	m.info.Width = w
	m.statusBar.Width = w

	used := 1 + 1 // header, status bar
	used += m.input.Height() + 1
	if m.focus == focusSave {
		used = 1 + 1 + 3 + 1
	}
	if n := m.blocks.Len(); n > 0 {
		used += min(n, maxBlockListRows) + 3
	}
	if !m.info.Info.Start.IsZero() {
		used++
	}

	m.viewport.Width = w
	m.viewport.Height = max(m.height-used, 3)
}

// refreshViewport sets the viewport content for the current focus: the
// block under the cursor while browsing blocks, the exchange otherwise.
func (m *Model) refreshViewport() {
	if m.focus == focusBlocks {
		if b, ok := m.blocks.Current(); ok {
			cb := components.NewCodeBlock(m.theme, b)
			cb.MaxWidth = m.width
			cb.LineNumbers = m.lineNumbers
			m.viewport.SetContent(cb.Render())
			m.viewport.GotoTop()
			return
		}
	}
	m.viewport.SetContent(m.exchangeView())
}

func (m Model) exchangeView() string {
	t := m.theme
	if m.prompt == "" {
		return t.Muted.Render("Type a prompt and press enter. Code blocks in the answer can be saved to files.")
	}

	var b strings.Builder
	b.WriteString(t.Prompt.Render("> " + m.prompt))
	b.WriteString("\n\n")

	switch {
	case m.rendered != "":
		b.WriteString(m.rendered)
	case m.response != "":
		b.WriteString(t.Response.Width(max(m.width-2, 10)).Render(m.response))
	case m.Streaming():
		b.WriteString(t.Muted.Render("Waiting for the first token..."))
	}
	return b.String()
}

// rerender renders the completed response as markdown with the current
// palette. Raw text is shown if glamour fails.
func (m *Model) rerender() {
	if m.response == "" || m.Streaming() {
		m.rendered = ""
		return
	}
	m.rendered = renderMarkdown(m.response, m.theme.GlamourStyle(), max(m.width-4, 20))
	m.refreshViewport()
}

func renderMarkdown(content, style string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
