// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/ollamacode/internal/config"
	"github.com/jeranaias/ollamacode/internal/ollama"
	"github.com/jeranaias/ollamacode/internal/session"
	"github.com/jeranaias/ollamacode/internal/ui/styles"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the Ollama server could not be reached
	ExitNetworkError = 5
	// ExitStreamError indicates the server answered with an error status,
	// an in-band error or an undecodable stream
	ExitStreamError = 6
	// ExitExportError indicates at least one block could not be saved
	ExitExportError = 9
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports invalid arguments or flags.
type UsageError struct {
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	if e.Example != "" {
		return fmt.Sprintf("%s\nExample: %s", e.Reason, e.Example)
	}
	return e.Reason
}

// ConfigError wraps a failure to load or validate configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ExportError reports blocks that failed to save.
type ExportError struct {
	Failed int
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("%d block(s) could not be saved: %v", e.Failed, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	var configErr *ConfigError
	var validateErrs config.ValidateErrors
	var exportErr *ExportError
	var sessionErr session.ErrorEvent

	switch {
	case errors.As(err, &usageErr):
		return ExitUsageError
	case errors.As(err, &configErr), errors.As(err, &validateErrs):
		return ExitConfigError
	case errors.As(err, &exportErr):
		return ExitExportError
	case errors.As(err, &sessionErr):
		if sessionErr.Kind == session.ConnectionError {
			return ExitNetworkError
		}
		return ExitStreamError
	case ollama.IsConnection(err):
		return ExitNetworkError
	case ollama.IsProtocol(err), ollama.IsMalformedChunk(err):
		return ExitStreamError
	default:
		return ExitGeneralError
	}
}

// DisplayError prints err to w in the CLI's error style.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, styles.RenderError(err.Error()))
}
