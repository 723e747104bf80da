// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the ollamacode TUI.

All colors use Lip Gloss AdaptiveColor, so a single palette serves dark and
light terminals. The Theme decides which side is active: "auto" asks the
terminal through termenv, while "dark" and "light" force it. Toggle flips
the active side at runtime (night mode).

# Colors (colors.go)

  - Purple - response border, titles
  - Cyan - prompt, active model, shortcut keys
  - Emerald - saved blocks
  - Amber - warnings, cancelled sessions
  - Rose - errors

Status messages always carry an ASCII indicator ([OK], [X], [!], [i]) so
they never rely on color alone.

# Theme (theme.go)

	theme := styles.NewTheme(cfg.UI.Theme, cfg.UI.SyntaxStyle)
	header := theme.Header.Render("ollamacode")
	theme.Toggle()
*/
package styles
