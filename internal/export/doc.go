// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes extracted code blocks to disk.
//
// An Exporter walks the selected blocks, asks a Prompter for each
// destination and hands the content to a Writer. Every block gets its own
// Result; a dismissed prompt or a failed write never stops the rest.
//
// # Prompters
//
//   - LinerPrompter: terminal prompt with the filename pre-filled
//   - DirPrompter: accepts every suggestion under a fixed directory
//   - PrompterFunc: adapts a function, used by the TUI
//
// # Usage
//
//	ex := export.New(export.DirPrompter{Dir: "out"}, &export.FileWriter{})
//	for _, r := range ex.Export(blocks) {
//	    fmt.Println(r.Block.Filename, r.Status)
//	}
package export
