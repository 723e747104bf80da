// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/ollamacode/internal/extract"
	"github.com/jeranaias/ollamacode/internal/ui/styles"
	"github.com/jeranaias/ollamacode/internal/util"
)

// BlockList shows the extracted blocks with selection checkboxes and a
// movable cursor. It owns the Selected flag of its blocks.
type BlockList struct {
	Blocks  []extract.CodeBlock
	Cursor  int
	Focused bool
	Width   int
	// Status holds a per-block note such as "saved" after export.
	Status map[int]string
	theme  *styles.Theme
}

// NewBlockList creates an empty list.
func NewBlockList(theme *styles.Theme) *BlockList {
	return &BlockList{Width: 80, Status: map[int]string{}, theme: theme}
}

// SetBlocks replaces the blocks and resets the cursor and notes.
func (l *BlockList) SetBlocks(blocks []extract.CodeBlock) {
	l.Blocks = blocks
	l.Cursor = 0
	l.Status = map[int]string{}
}

// Len returns the number of blocks.
func (l *BlockList) Len() int { return len(l.Blocks) }

// Up moves the cursor up, stopping at the first block.
func (l *BlockList) Up() {
	if l.Cursor > 0 {
		l.Cursor--
	}
}

// Down moves the cursor down, stopping at the last block.
func (l *BlockList) Down() {
	if l.Cursor < len(l.Blocks)-1 {
		l.Cursor++
	}
}

// Toggle flips the selection of the block under the cursor.
func (l *BlockList) Toggle() {
	if l.Cursor < len(l.Blocks) {
		l.Blocks[l.Cursor].Selected = !l.Blocks[l.Cursor].Selected
	}
}

// SelectAll selects every block, or clears them all when all are selected.
func (l *BlockList) SelectAll() {
	all := len(l.Blocks) > 0
	for _, b := range l.Blocks {
		all = all && b.Selected
	}
	for i := range l.Blocks {
		l.Blocks[i].Selected = !all
	}
}

// Current returns the block under the cursor.
func (l *BlockList) Current() (extract.CodeBlock, bool) {
	if l.Cursor < 0 || l.Cursor >= len(l.Blocks) {
		return extract.CodeBlock{}, false
	}
	return l.Blocks[l.Cursor], true
}

// Selected returns the selected blocks in order.
func (l *BlockList) Selected() []extract.CodeBlock {
	return extract.Selected(l.Blocks)
}

// View renders one line per block:
//
//	> [x] Code Block 1 (app.py)  python  saved
func (l *BlockList) View() string {
	if len(l.Blocks) == 0 {
		return ""
	}
	t := l.theme

	var lines []string
	for i, b := range l.Blocks {
		cursor := "  "
		if l.Focused && i == l.Cursor {
			cursor = "> "
		}
		text := fmt.Sprintf("%s%s Code Block %d (%s)", cursor, styles.Checkbox(b.Selected), b.Index, b.Filename)
		if b.Language != "" {
			text += "  " + b.Language
		}
		if note := l.Status[b.Index]; note != "" {
			text += "  " + note
		}
		text = util.TruncateWidth(text, l.Width-4)

		style := t.BlockItem
		switch {
		case l.Focused && i == l.Cursor:
			style = t.BlockCursor
		case b.Selected:
			style = t.BlockSelected
		}
		lines = append(lines, style.Render(text))
	}

	header := t.Muted.Render(fmt.Sprintf("%d code blocks  (tab focus, space select, a all, s save)", len(l.Blocks)))
	return t.BlockList.Render(header + "\n" + strings.Join(lines, "\n"))
}
