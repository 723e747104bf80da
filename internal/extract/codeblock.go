// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

// CodeBlock is a fenced region discovered in a response.
type CodeBlock struct {
	// Index is the 1-based discovery position. Indices are contiguous.
	Index int

	// Language is the fence tag ("python" in ```python), possibly empty.
	Language string

	// Content is the text between the fences, trimmed.
	Content string

	// Filename is the suggested name. Never empty, never contains a path
	// separator, never "." or "..".
	Filename string

	// Selected is owned by the UI; the extractor always leaves it false.
	Selected bool
}

// Selected returns the blocks whose Selected flag is set, in order.
func Selected(blocks []CodeBlock) []CodeBlock {
	var out []CodeBlock
	for _, b := range blocks {
		if b.Selected {
			out = append(out, b)
		}
	}
	return out
}
