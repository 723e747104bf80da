// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/jeranaias/ollamacode/internal/extract"
	"github.com/jeranaias/ollamacode/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// CodeBlock renders one extracted block for preview.
type CodeBlock struct {
	Block       extract.CodeBlock
	MaxWidth    int
	MaxLines    int
	LineNumbers bool
	theme       *styles.Theme
}

// NewCodeBlock creates a preview for block.
func NewCodeBlock(theme *styles.Theme, block extract.CodeBlock) CodeBlock {
	return CodeBlock{
		Block:    block,
		MaxWidth: 80,
		theme:    theme,
	}
}

// Title returns "Code Block i (filename)".
func (c CodeBlock) Title() string {
	return fmt.Sprintf("Code Block %d (%s)", c.Block.Index, c.Block.Filename)
}

// Render renders the highlighted block with a language badge.
// MaxLines > 0 cuts the preview and notes how many lines were hidden.
func (c CodeBlock) Render() string {
	code := c.Block.Content
	lines := strings.Split(Highlight(code, c.Block.Language, c.theme.SyntaxStyle), "\n")

	hidden := 0
	if c.MaxLines > 0 && len(lines) > c.MaxLines {
		hidden = len(lines) - c.MaxLines
		lines = lines[:c.MaxLines]
	}

	var b strings.Builder
	if c.Block.Language != "" {
		b.WriteString(c.theme.CodeLangBadge.Render(c.Block.Language))
		b.WriteString("\n")
	}
	for i, line := range lines {
		if c.LineNumbers {
			b.WriteString(c.theme.CodeLineNum.Render(fmt.Sprint(i + 1)))
		}
		b.WriteString(line)
		if i < len(lines)-1 {
			b.WriteString("\n")
		}
	}
	if hidden > 0 {
		b.WriteString("\n")
		b.WriteString(c.theme.Muted.Render(fmt.Sprintf("... %d more lines", hidden)))
	}

	maxWidth := c.MaxWidth - 4
	if maxWidth < 20 {
		maxWidth = 20
	}
	return c.theme.CodeBlock.MaxWidth(maxWidth).Render(b.String())
}

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// Highlight applies terminal syntax highlighting. An empty language is
// guessed from the code. On any failure the code is returned unchanged.
func Highlight(code, language, style string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	s := chromaStyles.Get(style)
	if s == nil {
		s = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, s, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
