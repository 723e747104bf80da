// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

// =============================================================================
// NON-INTERACTIVE
// =============================================================================

// DirPrompter accepts every suggestion, placing it under Dir.
type DirPrompter struct {
	Dir string
}

// PromptPath returns Dir/suggested.
func (p DirPrompter) PromptPath(suggested string) (string, bool, error) {
	return filepath.Join(p.Dir, suggested), true, nil
}

// =============================================================================
// INTERACTIVE
// =============================================================================

// LineEditor is the part of *liner.State the prompter uses.
type LineEditor interface {
	PromptWithSuggestion(prompt, text string, pos int) (string, error)
}

// LinerPrompter asks on the terminal with the suggestion pre-filled.
// Ctrl+C or Ctrl+D dismisses the prompt.
type LinerPrompter struct {
	editor LineEditor
	label  func(suggested string) string
	closer io.Closer
}

// NewLinerPrompter opens a liner session on the terminal. Close it when done.
func NewLinerPrompter() *LinerPrompter {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	return &LinerPrompter{editor: line, closer: line}
}

// NewEditorPrompter wraps an existing line editor.
func NewEditorPrompter(editor LineEditor) *LinerPrompter {
	return &LinerPrompter{editor: editor}
}

// WithLabel sets the prompt label builder.
func (p *LinerPrompter) WithLabel(label func(suggested string) string) *LinerPrompter {
	p.label = label
	return p
}

// PromptPath asks for a destination, pre-filled with suggested.
func (p *LinerPrompter) PromptPath(suggested string) (string, bool, error) {
	label := fmt.Sprintf("Save %s as: ", suggested)
	if p.label != nil {
		label = p.label(suggested)
	}

	path, err := p.editor.PromptWithSuggestion(label, suggested, -1)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return "", false, nil
		}
		return "", false, err
	}

	path = strings.TrimSpace(path)
	return path, path != "", nil
}

// Close restores the terminal.
func (p *LinerPrompter) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
