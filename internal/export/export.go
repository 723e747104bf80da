// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jeranaias/ollamacode/internal/extract"
	"github.com/jeranaias/ollamacode/internal/metrics"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Prompter asks where a block should go. suggested is the block's filename.
// ok is false when the user dismissed the prompt.
type Prompter interface {
	PromptPath(suggested string) (path string, ok bool, err error)
}

// Writer persists block content.
type Writer interface {
	WriteFile(path string, data []byte) error
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(suggested string) (string, bool, error)

// PromptPath calls f.
func (f PrompterFunc) PromptPath(suggested string) (string, bool, error) {
	return f(suggested)
}

// =============================================================================
// RESULTS
// =============================================================================

// Status is the outcome for one block.
type Status int

const (
	// Saved means the content was written.
	Saved Status = iota + 1
	// Cancelled means the prompt was dismissed. Nothing was written.
	Cancelled
	// Failed means the prompt or the write returned an error.
	Failed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Saved:
		return "saved"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports what happened to one block.
type Result struct {
	Block  extract.CodeBlock
	Path   string
	Status Status
	Err    error
}

// Summary counts results by status.
type Summary struct {
	Saved, Cancelled, Failed int
}

// Summarize counts results by status.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Status {
		case Saved:
			s.Saved++
		case Cancelled:
			s.Cancelled++
		case Failed:
			s.Failed++
		}
	}
	return s
}

// String renders the summary for status lines.
func (s Summary) String() string {
	return fmt.Sprintf("%d saved, %d cancelled, %d failed", s.Saved, s.Cancelled, s.Failed)
}

// Err joins the errors of all failed results, or returns nil.
func Err(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Status == Failed {
			errs = append(errs, fmt.Errorf("block %d (%s): %w", r.Block.Index, r.Block.Filename, r.Err))
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// EXPORTER
// =============================================================================

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Exporter) { e.log = log }
}

// WithMetrics counts exports by status.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Exporter) { e.metrics = m }
}

// Exporter writes selected code blocks through a Prompter and a Writer.
type Exporter struct {
	prompter Prompter
	writer   Writer
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// New creates an Exporter.
func New(p Prompter, w Writer, opts ...Option) *Exporter {
	e := &Exporter{
		prompter: p,
		writer:   w,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export prompts for and writes every block with Selected set, in order.
// Unselected blocks are skipped and produce no Result. A cancelled prompt or
// a failed write never stops the remaining blocks.
func (e *Exporter) Export(blocks []extract.CodeBlock) []Result {
	var results []Result
	for _, b := range blocks {
		if !b.Selected {
			continue
		}
		results = append(results, e.exportOne(b))
	}

	e.log.Info().Str("summary", Summarize(results).String()).Msg("export finished")
	return results
}

func (e *Exporter) exportOne(b extract.CodeBlock) Result {
	path, ok, err := e.prompter.PromptPath(b.Filename)
	if err != nil {
		return e.record(Result{Block: b, Status: Failed, Err: fmt.Errorf("prompt: %w", err)})
	}
	if !ok || strings.TrimSpace(path) == "" {
		return e.Dismiss(b)
	}
	return e.Save(b, path)
}

// Dismiss records a block whose prompt was dismissed.
func (e *Exporter) Dismiss(b extract.CodeBlock) Result {
	return e.record(Result{Block: b, Status: Cancelled})
}

// Save writes one block to path without prompting.
func (e *Exporter) Save(b extract.CodeBlock, path string) Result {
	if err := e.writer.WriteFile(path, []byte(b.Content)); err != nil {
		return e.record(Result{Block: b, Path: path, Status: Failed, Err: err})
	}
	return e.record(Result{Block: b, Path: path, Status: Saved})
}

func (e *Exporter) record(r Result) Result {
	e.metrics.BlockExported(r.Status.String())

	ev := e.log.Debug()
	if r.Status == Failed {
		ev = e.log.Warn().Err(r.Err)
	}
	ev.Int("block", r.Block.Index).
		Str("filename", r.Block.Filename).
		Str("path", r.Path).
		Str("status", r.Status.String()).
		Msg("block export")
	return r
}
