// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions for ollamacode.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync, optional no-clobber
//
// String Utilities:
//   - TruncateWidth: terminal-column aware truncation
//
// Formatting:
//   - FormatCount, FormatDuration, FormatTimestamp, FormatRate
//
// # Usage
//
//	// Write an exported block without clobbering an existing file
//	err := util.AtomicWriteFile(path, data, 0644, false)
//	if errors.Is(err, util.ErrExists) {
//	    ...
//	}
//
//	// Fit a filename into a fixed-width column
//	label := util.TruncateWidth(block.Filename, 24)
package util
