// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "test.py")
	data := []byte("print('hello')")

	if err := AtomicWriteFile(path, data, 0644, false); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != string(data) {
		t.Errorf("Content mismatch: got %q, want %q", string(content), string(data))
	}
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "deep", "test.txt")

	if err := AtomicWriteFile(path, []byte("test data"), 0644, false); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("File not created: %v", err)
	}
}

func TestAtomicWriteFile_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")

	if err := AtomicWriteFile(path, []byte("initial"), 0644, false); err != nil {
		t.Fatalf("First write failed: %v", err)
	}

	err := AtomicWriteFile(path, []byte("refused"), 0644, false)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("Second write without overwrite: got %v, want ErrExists", err)
	}
	if content, _ := os.ReadFile(path); string(content) != "initial" {
		t.Errorf("Existing file changed: got %q", string(content))
	}

	if err := AtomicWriteFile(path, []byte("updated"), 0644, true); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}
	if content, _ := os.ReadFile(path); string(content) != "updated" {
		t.Errorf("Content not updated: got %q", string(content))
	}
}

func TestAtomicWriteFile_EmptyData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")

	if err := AtomicWriteFile(path, []byte{}, 0644, false); err != nil {
		t.Fatalf("AtomicWriteFile failed for empty data: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("File not created: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("Expected empty file, got size %d", info.Size())
	}
}

func TestAtomicWriteFile_NoTempLeftOnFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory targets behave differently on Windows")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatal(err)
	}
	// Non-empty directory so the rename over it fails.
	if err := os.WriteFile(filepath.Join(target, "x"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	if err := AtomicWriteFile(target, []byte("x"), 0644, true); err == nil {
		t.Fatal("expected rename over a directory to fail")
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if e.Name() != "target" {
			t.Errorf("leftover file %q", e.Name())
		}
	}
}

func TestAtomicWriteFile_TargetCreatedDuringWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "race.py")

	orig := beforePublish
	beforePublish = func(string) {
		if err := os.WriteFile(path, []byte("theirs"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	defer func() { beforePublish = orig }()

	err := AtomicWriteFile(path, []byte("ours"), 0644, false)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("err = %v, want ErrExists", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "theirs" {
		t.Errorf("target = %q, the concurrent file must not be replaced", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("leftover temp files: %d entries", len(entries))
	}
}

func TestAtomicWriteFile_NoOverwriteLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new.py")
	if err := AtomicWriteFile(path, []byte("x"), 0644, false); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != "new.py" {
		t.Errorf("entries = %v, want only new.py", entries)
	}
}

func TestAtomicWriteFile_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions only")
	}
	path := filepath.Join(t.TempDir(), "script.sh")
	if err := AtomicWriteFile(path, []byte("echo"), 0600, false); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateWidth(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		maxWidth int
		expected string
	}{
		{"ascii short", "hello", 10, "hello"},
		{"ascii exact", "hello", 5, "hello"},
		{"ascii truncate", "hello world", 8, "hello..."},
		{"cjk fits", "日本語", 6, "日本語"},
		{"cjk truncate", "日本語テキスト", 7, "日本..."},
		{"tiny", "hello", 2, "he"},
		{"zero width", "hello", 0, ""},
		{"empty", "", 5, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := TruncateWidth(tc.input, tc.maxWidth)
			if got != tc.expected {
				t.Errorf("TruncateWidth(%q, %d) = %q, want %q", tc.input, tc.maxWidth, got, tc.expected)
			}
			if runewidth.StringWidth(got) > tc.maxWidth && tc.maxWidth > 0 {
				t.Errorf("TruncateWidth(%q, %d) width %d exceeds limit", tc.input, tc.maxWidth, runewidth.StringWidth(got))
			}
		})
	}
}

// =============================================================================
// FORMAT TESTS
// =============================================================================

func TestFormatCount(t *testing.T) {
	testCases := map[int]string{
		0:       "0",
		999:     "999",
		1234:    "1,234",
		1234567: "1,234,567",
	}
	for n, want := range testCases {
		if got := FormatCount(n); got != want {
			t.Errorf("FormatCount(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	testCases := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "0ms"},
		{850 * time.Millisecond, "850ms"},
		{4200 * time.Millisecond, "4.2s"},
		{185 * time.Second, "3m05s"},
	}
	for _, tc := range testCases {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := FormatTimestamp(time.Time{}); got != "--:--:--" {
		t.Errorf("zero timestamp = %q", got)
	}
	ts := time.Date(2024, 5, 1, 9, 4, 5, 0, time.Local)
	if got := FormatTimestamp(ts); got != "09:04:05" {
		t.Errorf("FormatTimestamp = %q", got)
	}
}

func TestFormatRate(t *testing.T) {
	if got := FormatRate(0); got != "" {
		t.Errorf("FormatRate(0) = %q", got)
	}
	if got := FormatRate(1234.56); got != "1,234.6 tok/s" {
		t.Errorf("FormatRate = %q", got)
	}
}
