// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ollamacode/internal/ui/styles"
	"github.com/jeranaias/ollamacode/internal/util"
)

// =============================================================================
// STATUS
// =============================================================================

// Status represents the current application status
type Status int

const (
	StatusReady Status = iota
	StatusStreaming
	StatusSaving
	StatusError
)

// String returns the display string for the status
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusStreaming:
		return "Streaming..."
	case StatusSaving:
		return "Saving..."
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Icon returns an icon for the status
// ACCESSIBILITY: Uses distinct shapes alongside colors for colorblind users
func (s Status) Icon() string {
	switch s {
	case StatusReady:
		return styles.StatusIndicators.Success
	case StatusStreaming, StatusSaving:
		return "~"
	case StatusError:
		return styles.StatusIndicators.Error
	default:
		return "?"
	}
}

// =============================================================================
// STATUS BAR
// =============================================================================

// Shortcut is one key hint.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar is the bottom line: status, model, theme and key hints.
type StatusBar struct {
	Status    Status
	Model     string
	Message   string
	Width     int
	Shortcuts []Shortcut
	theme     *styles.Theme
}

// NewStatusBar creates a new StatusBar component
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{Width: 80, theme: theme}
}

// View renders the status bar. Shortcuts are dropped from the right until
// the line fits; the message is truncated last.
func (s *StatusBar) View() string {
	t := s.theme

	statusStyle := t.Success
	switch s.Status {
	case StatusStreaming, StatusSaving:
		statusStyle = t.Warning
	case StatusError:
		statusStyle = t.Error
	}

	left := []string{statusStyle.Render(s.Status.Icon() + " " + s.Status.String())}
	if s.Model != "" {
		left = append(left, t.HeaderModel.Render(s.Model))
	}
	mode := "night"
	if !t.IsDark {
		mode = "day"
	}
	left = append(left, t.Muted.Render(mode))
	leftStr := strings.Join(left, t.Muted.Render(" | "))

	avail := s.Width - 2 - lipgloss.Width(leftStr)

	var msg string
	if s.Message != "" && avail > 4 {
		msg = "  " + util.TruncateWidth(s.Message, avail-2)
		avail -= lipgloss.Width(msg)
	}

	var hints []string
	for _, sc := range s.Shortcuts {
		h := t.ShortcutKey.Render(sc.Key) + " " + t.ShortcutDesc.Render(sc.Desc)
		if lipgloss.Width(strings.Join(append(hints, h), "  "))+2 > avail {
			break
		}
		hints = append(hints, h)
	}
	right := strings.Join(hints, "  ")

	gap := s.Width - 2 - lipgloss.Width(leftStr+msg) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	line := leftStr + msg + strings.Repeat(" ", gap) + right
	return t.StatusBar.Width(s.Width).MaxWidth(s.Width).Render(line)
}
