// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli wires configuration, logging, metrics and the Ollama client
// into the ollamacode commands.
//
// # Commands
//
//   - (none): interactive chat screen
//   - ask: stream one answer to stdout, then save its code blocks
//   - models: list installed models, or the built-in fallback list
//   - extract: list or save the code blocks of a markdown file
//   - config: show, get, set, reset, path, keys
//   - version: build information
//
// Global flags (--config, --model, --url, --log-level, --metrics-addr)
// override the loaded configuration. Errors map to exit codes through
// ExitCode; models, extract and version accept --json.
package cli
