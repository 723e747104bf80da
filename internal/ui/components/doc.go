// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the reusable UI pieces of the ollamacode TUI.
//
// Components are plain structs with a View method. They hold no Bubble Tea
// state of their own; the chat model owns them and forwards keys.
//
//   - BlockList: extracted code blocks with checkboxes and a cursor
//   - CodeBlock: chroma-highlighted preview of one block
//   - InfoBar: start, end, duration and length of the last response
//   - StatusBar: status, model, theme and key hints
package components
