// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog logger used by every component.
//
// The CLI logs to stderr through a console writer and, optionally, to a
// JSON file. The TUI must not write to the terminal it draws on, so it
// logs to the file only.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Options selects the sinks and level.
type Options struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string

	// File is an optional JSON log file, appended to. Parent directories
	// are created.
	File string

	// Console enables the human-readable writer on Out.
	Console bool

	// Out is the console destination; defaults to os.Stderr.
	Out io.Writer
}

// ParseLevel parses a level name. The empty string means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

// New builds a logger from opts. The returned closer releases the log file
// and is never nil. With no sink enabled the logger discards everything.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if opts.Console {
		out := opts.Out
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, consoleWriter(out))
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	if len(writers) == 0 {
		return zerolog.Nop(), closer, nil
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().
		Timestamp().
		Logger()
	return logger, closer, nil
}

// consoleWriter renders "15:04:05 [INFO] message |key|=value", coloured
// only when out is a terminal.
func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	cw := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		NoColor:    !isTerminal(out),
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("|%s|=", i)
		},
	}
	cw.FormatLevel = func(i interface{}) string {
		level := strings.ToUpper(fmt.Sprint(i))
		if cw.NoColor {
			return "[" + level + "]"
		}
		switch level {
		case "DEBUG":
			return "\033[36m[" + level + "]\033[0m"
		case "INFO":
			return "\033[32m[" + level + "]\033[0m"
		case "WARN":
			return "\033[33m[" + level + "]\033[0m"
		case "ERROR", "FATAL":
			return "\033[31m[" + level + "]\033[0m"
		default:
			return "[" + level + "]"
		}
	}
	return cw
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// DefaultFile returns ~/.ollamacode/ollamacode.log, or "" without a home
// directory.
func DefaultFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ollamacode", "ollamacode.log")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
