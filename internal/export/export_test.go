// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/peterh/liner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ollamacode/internal/extract"
	"github.com/jeranaias/ollamacode/internal/metrics"
)

// memWriter records writes and fails for paths in failOn.
type memWriter struct {
	files  map[string]string
	failOn map[string]bool
}

func newMemWriter(failOn ...string) *memWriter {
	w := &memWriter{files: map[string]string{}, failOn: map[string]bool{}}
	for _, p := range failOn {
		w.failOn[p] = true
	}
	return w
}

func (w *memWriter) WriteFile(path string, data []byte) error {
	if w.failOn[path] {
		return errors.New("disk full")
	}
	w.files[path] = string(data)
	return nil
}

func blocks(selected ...bool) []extract.CodeBlock {
	var out []extract.CodeBlock
	for i, sel := range selected {
		out = append(out, extract.CodeBlock{
			Index:    i + 1,
			Filename: string(rune('a'+i)) + ".py",
			Content:  "print(" + string(rune('a'+i)) + ")",
			Selected: sel,
		})
	}
	return out
}

func TestExport_OnlySelected(t *testing.T) {
	w := newMemWriter()
	ex := New(DirPrompter{}, w)

	results := ex.Export(blocks(true, false, true))

	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Block.Index)
	assert.Equal(t, 3, results[1].Block.Index)
	assert.Equal(t, map[string]string{"a.py": "print(a)", "c.py": "print(c)"}, w.files)
	for _, r := range results {
		assert.Equal(t, Saved, r.Status)
		assert.NoError(t, r.Err)
	}
}

func TestExport_NothingSelected(t *testing.T) {
	w := newMemWriter()
	results := New(DirPrompter{}, w).Export(blocks(false, false))
	assert.Empty(t, results)
	assert.Empty(t, w.files)
	assert.NoError(t, Err(results))
}

func TestExport_PromptDefaultsToFilename(t *testing.T) {
	var suggestions []string
	p := PrompterFunc(func(s string) (string, bool, error) {
		suggestions = append(suggestions, s)
		return s, true, nil
	})

	New(p, newMemWriter()).Export(blocks(true, true))
	assert.Equal(t, []string{"a.py", "b.py"}, suggestions)
}

func TestExport_FailuresDoNotAbort(t *testing.T) {
	w := newMemWriter("b.py")
	p := PrompterFunc(func(s string) (string, bool, error) {
		switch s {
		case "a.py":
			return "", false, nil
		case "c.py":
			return "", false, errors.New("tty gone")
		}
		return s, true, nil
	})

	results := New(p, w).Export(blocks(true, true, true, true))

	require.Len(t, results, 4)
	assert.Equal(t, Cancelled, results[0].Status)
	assert.Equal(t, Failed, results[1].Status)
	assert.Equal(t, "b.py", results[1].Path)
	assert.Equal(t, Failed, results[2].Status)
	assert.Equal(t, Saved, results[3].Status)
	assert.Equal(t, map[string]string{"d.py": "print(d)"}, w.files)

	assert.Equal(t, Summary{Saved: 1, Cancelled: 1, Failed: 2}, Summarize(results))
	err := Err(results)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "block 2 (b.py): disk full")
	assert.Contains(t, err.Error(), "tty gone")
}

func TestExport_BlankPathIsCancelled(t *testing.T) {
	p := PrompterFunc(func(string) (string, bool, error) { return "   ", true, nil })
	results := New(p, newMemWriter()).Export(blocks(true))
	assert.Equal(t, Cancelled, results[0].Status)
}

func TestExport_Metrics(t *testing.T) {
	m := metrics.New()
	w := newMemWriter("b.py")
	New(DirPrompter{}, w, WithMetrics(m)).Export(blocks(true, true, true))

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "ollamacode_exports_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			got[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"saved": 2, "failed": 1}, got)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "saved", Saved.String())
	assert.Equal(t, "cancelled", Cancelled.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", Status(0).String())
}

func TestFileWriter_WritesVerbatim(t *testing.T) {
	dir := t.TempDir()
	w := &FileWriter{Dir: dir}

	content := "def main():\n    pass"
	require.NoError(t, w.WriteFile("pkg/main.py", []byte(content)))

	got, err := os.ReadFile(filepath.Join(dir, "pkg", "main.py"))
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestFileWriter_Overwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.py")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	err := (&FileWriter{}).WriteFile(path, []byte("new"))
	assert.ErrorIs(t, err, ErrExists)
	got, _ := os.ReadFile(path)
	assert.Equal(t, "old", string(got), "existing file must be untouched")

	require.NoError(t, (&FileWriter{Overwrite: true}).WriteFile(path, []byte("new")))
	got, _ = os.ReadFile(path)
	assert.Equal(t, "new", string(got))
}

func TestFileWriter_Resolve(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	w := &FileWriter{Dir: "/srv/out"}

	tests := []struct {
		in, want string
	}{
		{"app.py", "/srv/out/app.py"},
		{"  sub/app.py ", "/srv/out/sub/app.py"},
		{"/tmp/abs.py", "/tmp/abs.py"},
		{"~/notes.py", filepath.Join(home, "notes.py")},
		// "e" + combining acute becomes the precomposed form.
		{"cafe\u0301.py", "/srv/out/caf\u00e9.py"},
	}
	for _, tt := range tests {
		got, err := w.Resolve(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := w.Resolve("  ")
	assert.Error(t, err)
}

func TestExport_EndToEndWithFileWriter(t *testing.T) {
	dir := t.TempDir()
	text := "**app.py**\n```python\nprint('hi')\n```\n```\nx = 1\n```\n"
	bs := extract.Extract(text)
	require.Len(t, bs, 2)
	bs[0].Selected = true
	bs[1].Selected = true

	results := New(DirPrompter{Dir: dir}, &FileWriter{}).Export(bs)
	require.NoError(t, Err(results))

	got, err := os.ReadFile(filepath.Join(dir, "app.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", string(got))
	_, err = os.Stat(filepath.Join(dir, "code_block_2.py"))
	assert.NoError(t, err)
}

// fakeEditor scripts PromptWithSuggestion answers.
type fakeEditor struct {
	answer string
	err    error
	got    struct {
		prompt, text string
		pos          int
	}
}

func (f *fakeEditor) PromptWithSuggestion(prompt, text string, pos int) (string, error) {
	f.got.prompt, f.got.text, f.got.pos = prompt, text, pos
	return f.answer, f.err
}

func TestLinerPrompter(t *testing.T) {
	tests := []struct {
		name     string
		answer   string
		err      error
		wantPath string
		wantOK   bool
		wantErr  bool
	}{
		{"accept suggestion", "app.py", nil, "app.py", true, false},
		{"edited", " src/app.py ", nil, "src/app.py", true, false},
		{"cleared", "", nil, "", false, false},
		{"ctrl+c", "", liner.ErrPromptAborted, "", false, false},
		{"ctrl+d", "", io.EOF, "", false, false},
		{"other error", "", errors.New("not a terminal"), "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ed := &fakeEditor{answer: tt.answer, err: tt.err}
			p := NewEditorPrompter(ed)

			path, ok, err := p.PromptPath("app.py")
			assert.Equal(t, tt.wantPath, path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantErr, err != nil)

			assert.Equal(t, "app.py", ed.got.text)
			assert.Equal(t, -1, ed.got.pos)
			assert.Contains(t, ed.got.prompt, "app.py")
			assert.NoError(t, p.Close())
		})
	}
}

func TestLinerPrompter_Label(t *testing.T) {
	ed := &fakeEditor{answer: "x.py"}
	p := NewEditorPrompter(ed).WithLabel(func(s string) string { return "[1] " + s + "> " })
	_, _, _ = p.PromptPath("x.py")
	assert.Equal(t, "[1] x.py> ", ed.got.prompt)
}
