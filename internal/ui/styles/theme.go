// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Mode is the configured mode; IsDark is what it resolved to.
	Mode         string
	IsDark       bool
	ColorProfile termenv.Profile

	// SyntaxStyle is the chroma style for code blocks.
	SyntaxStyle string

	// Layout dimensions
	Width  int
	Height int

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderModel lipgloss.Style

	Prompt   lipgloss.Style
	Response lipgloss.Style

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style

	BlockList     lipgloss.Style
	BlockItem     lipgloss.Style
	BlockCursor   lipgloss.Style
	BlockSelected lipgloss.Style

	CodeBlock     lipgloss.Style
	CodeLangBadge lipgloss.Style
	CodeLineNum   lipgloss.Style

	InfoBar   lipgloss.Style
	InfoLabel lipgloss.Style
	InfoValue lipgloss.Style

	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	Spinner lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
}

// NewTheme creates a theme for mode ("auto", "dark" or "light").
// "auto" asks the terminal for its background color.
func NewTheme(mode, syntaxStyle string) *Theme {
	return newTheme(mode, syntaxStyle, termenv.HasDarkBackground)
}

func newTheme(mode, syntaxStyle string, detect func() bool) *Theme {
	if syntaxStyle == "" {
		syntaxStyle = "monokai"
	}
	t := &Theme{
		ColorProfile: termenv.ColorProfile(),
		SyntaxStyle:  syntaxStyle,
	}
	t.SetMode(mode, detect)
	t.initStyles()
	return t
}

// SetMode switches the palette. AdaptiveColor values resolve against the
// lipgloss default renderer, so existing styles follow immediately.
func (t *Theme) SetMode(mode string, detect func() bool) {
	switch mode {
	case ModeDark:
		t.IsDark = true
	case ModeLight:
		t.IsDark = false
	default:
		mode = ModeAuto
		t.IsDark = detect == nil || detect()
	}
	t.Mode = mode
	lipgloss.SetHasDarkBackground(t.IsDark)
}

// Apply sets mode and syntax style from configuration.
func (t *Theme) Apply(mode, syntaxStyle string) {
	t.SetMode(mode, termenv.HasDarkBackground)
	if syntaxStyle != "" {
		t.SyntaxStyle = syntaxStyle
	}
}

// Toggle flips between dark and light. The result is always explicit.
func (t *Theme) Toggle() {
	if t.IsDark {
		t.SetMode(ModeLight, nil)
	} else {
		t.SetMode(ModeDark, nil)
	}
}

// GlamourStyle returns the glamour standard style matching the palette.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.HeaderModel = lipgloss.NewStyle().
		Foreground(Cyan)

	t.Prompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.Response = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Purple).
		PaddingLeft(1)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.BlockList = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.BlockItem = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.BlockCursor = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true)

	t.BlockSelected = lipgloss.NewStyle().
		Foreground(Emerald)

	t.CodeBlock = lipgloss.NewStyle().
		Background(SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.CodeLangBadge = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(OverlayDim).
		Padding(0, 1).
		Bold(true)

	t.CodeLineNum = lipgloss.NewStyle().
		Foreground(TextMuted).
		Width(4).
		Align(lipgloss.Right).
		MarginRight(1)

	t.InfoBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Padding(0, 1)

	t.InfoLabel = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.InfoValue = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	t.Muted = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Error = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.Warning = lipgloss.NewStyle().
		Foreground(Amber)

	t.Success = lipgloss.NewStyle().
		Foreground(Emerald)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
