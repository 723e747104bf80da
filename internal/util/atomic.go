// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrExists is returned by AtomicWriteFile when overwrite is false and the
// target already exists.
var ErrExists = errors.New("file already exists")

// beforePublish runs between writing the temp file and publishing it.
// Tests use it to create the target in that window.
var beforePublish = func(string) {}

// AtomicWriteFile writes data to path so that readers see either the old
// file or the complete new one:
//  1. write to a temp file in the same directory
//  2. fsync and close it
//  3. chmod, then rename over the target, or hard-link it into place when
//     overwrite is false so the existence check and the write are one step
//
// Missing parent directories are created with 0755. When overwrite is false
// an existing target is left untouched and ErrExists is returned, even if
// the target appears while the data is being written.
func AtomicWriteFile(path string, data []byte, perm os.FileMode, overwrite bool) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	if !overwrite {
		if _, err := os.Lstat(absPath); err == nil {
			return fmt.Errorf("%s: %w", absPath, ErrExists)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to stat target: %w", err)
		}
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	// Same directory as the target so the rename stays on one filesystem.
	f, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := f.Name()

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	// RELIABILITY: Sync to disk before rename
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync data to disk: %w", err)
	}

	// Close before rename - required on Windows
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Chmod(tempPath, perm); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}

	beforePublish(absPath)

	if overwrite {
		if err := os.Rename(tempPath, absPath); err != nil {
			return fmt.Errorf("failed to rename temp file: %w", err)
		}
		success = true
		return nil
	}

	// Link fails with EEXIST instead of replacing the target.
	if err := os.Link(tempPath, absPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", absPath, ErrExists)
		}
		// No hard links on this filesystem: exclusive create still refuses
		// to clobber, at the cost of atomicity.
		if err := writeExclusive(absPath, data, perm); err != nil {
			return err
		}
	}
	os.Remove(tempPath)
	success = true
	return nil
}

func writeExclusive(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrExists)
		}
		return fmt.Errorf("failed to create target: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync data to disk: %w", err)
	}
	return f.Close()
}
