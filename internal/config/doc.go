// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for ollamacode.
//
// Supports TOML, YAML and JSON configuration formats, with sensible defaults,
// .env and environment variable overrides, validation and hot reload.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: Ollama URL, timeouts and preflight
//   - ExtractConfig: Filename resolution scope and fallback numbering
//   - Watcher: Reloads the config file when it changes
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (OLLAMACODE_*), including those from ./.env
//   - ~/.ollamacode/config.toml
//   - ~/.ollamacode/config.yaml
//   - ~/.ollamacode/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, path, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	url := cfg.Server.URL
//	idle := cfg.Server.IdleTimeout()
package config
