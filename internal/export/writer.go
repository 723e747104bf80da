// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/ollamacode/internal/util"
)

// ErrExists is returned when the destination exists and overwriting is off.
var ErrExists = util.ErrExists

// FileWriter writes blocks to the local filesystem.
// RELIABILITY: Atomic write with fsync prevents half-written files on crash
type FileWriter struct {
	// Dir resolves relative paths. Empty means the working directory.
	Dir string
	// Overwrite allows replacing an existing file.
	Overwrite bool
	// Perm is the mode of created files. Zero means 0644.
	Perm os.FileMode
}

// Resolve returns the absolute, NFC-normalized destination for path.
// A leading ~ expands to the home directory.
func (w *FileWriter) Resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("empty path")
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	// Filenames taken from model output may arrive decomposed; keep one form on disk.
	path = norm.NFC.String(path)

	if !filepath.IsAbs(path) && w.Dir != "" {
		path = filepath.Join(w.Dir, path)
	}
	return filepath.Abs(path)
}

// WriteFile writes data to path atomically, creating parent directories.
func (w *FileWriter) WriteFile(path string, data []byte) error {
	dest, err := w.Resolve(path)
	if err != nil {
		return err
	}

	perm := w.Perm
	if perm == 0 {
		perm = 0644
	}

	if err := util.AtomicWriteFile(dest, data, perm, w.Overwrite); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}
