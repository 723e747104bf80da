// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package extract finds fenced code blocks in a model response and suggests
// a filename for each one.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// fenceRe matches ```tag\n ... ``` non-greedily. A fence with no closing
// marker never matches.
var fenceRe = regexp.MustCompile("(?s)```([" + word + "]+)?\\n(.*?)```")

// =============================================================================
// OPTIONS
// =============================================================================

// Scope selects the text the marker matchers (bold, heading, colon) search.
type Scope int

const (
	// ScopePreceding searches from the end of the previous block to the end
	// of this block's opening fence, so a marker only names the block it
	// introduces.
	ScopePreceding Scope = iota

	// ScopeResponse searches the whole response for every block. The first
	// marker anywhere in the text names all blocks that reach the marker
	// matchers.
	ScopeResponse
)

// Fallback selects the counter used in generated names.
type Fallback int

const (
	// FallbackIndex generates code_block_<index>.py, unique per response.
	FallbackIndex Fallback = iota

	// FallbackTotal generates code_block_<count>.py with the total number of
	// blocks, so all unnamed blocks of one response share a name.
	FallbackTotal
)

// ParseScope converts a config value ("preceding", "response").
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "preceding":
		return ScopePreceding, nil
	case "response":
		return ScopeResponse, nil
	}
	return ScopePreceding, fmt.Errorf("unknown extract scope %q", s)
}

// ParseFallback converts a config value ("index", "total").
func ParseFallback(s string) (Fallback, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "index":
		return FallbackIndex, nil
	case "total":
		return FallbackTotal, nil
	}
	return FallbackIndex, fmt.Errorf("unknown extract fallback %q", s)
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithScope sets the marker search scope.
func WithScope(s Scope) Option {
	return func(e *Extractor) { e.scope = s }
}

// WithFallback sets the generated-name counter.
func WithFallback(f Fallback) Option {
	return func(e *Extractor) { e.fallback = f }
}

// WithMatchers replaces the matcher list. Order is precedence.
func WithMatchers(m ...Matcher) Option {
	return func(e *Extractor) { e.matchers = m }
}

// WithLogger attaches a logger for per-block resolution traces.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Extractor) { e.log = log }
}

// Compatible selects the behaviour of the original Python client:
// whole-response marker search and the shared fallback name.
func Compatible() Option {
	return func(e *Extractor) {
		e.scope = ScopeResponse
		e.fallback = FallbackTotal
	}
}

// =============================================================================
// EXTRACTOR
// =============================================================================

// Extractor turns response text into CodeBlocks. It holds no per-call state
// and is safe for concurrent use.
type Extractor struct {
	matchers []Matcher
	scope    Scope
	fallback Fallback
	log      zerolog.Logger
}

// New creates an Extractor with the default matchers, ScopePreceding and
// FallbackIndex, then applies opts.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		matchers: DefaultMatchers(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// fence is one regex match with byte offsets into the response.
type fence struct {
	start, openEnd, end int
	lang, body          string
}

func findFences(text string) []fence {
	idx := fenceRe.FindAllStringSubmatchIndex(text, -1)
	fences := make([]fence, 0, len(idx))
	for _, m := range idx {
		f := fence{start: m[0], openEnd: m[0] + 3, end: m[1]}
		if m[2] >= 0 {
			f.lang = text[m[2]:m[3]]
		}
		f.body = text[m[4]:m[5]]
		fences = append(fences, f)
	}
	return fences
}

// Extract returns one CodeBlock per closed fence in text, in order.
// It never fails; text without fences yields an empty slice.
func (e *Extractor) Extract(text string) []CodeBlock {
	fences := findFences(text)
	blocks := make([]CodeBlock, 0, len(fences))

	prevEnd := 0
	for i, f := range fences {
		content := strings.TrimSpace(f.body)

		scope := text
		if e.scope == ScopePreceding {
			scope = text[prevEnd:f.openEnd]
		}

		block := CodeBlock{
			Index:    i + 1,
			Language: f.lang,
			Content:  content,
		}
		block.Filename = e.resolve(scope, content, block.Index, len(fences))
		blocks = append(blocks, block)

		prevEnd = f.end
	}

	return blocks
}

// resolve runs the matchers in order and falls back to a generated name.
func (e *Extractor) resolve(scope, content string, index, total int) string {
	for _, m := range e.matchers {
		name := m.Match(scope, content)
		if name == "" {
			continue
		}
		if !validFilename(name) {
			e.log.Debug().Str("matcher", m.Name).Str("candidate", name).Msg("rejected filename candidate")
			continue
		}
		e.log.Debug().Int("block", index).Str("matcher", m.Name).Str("filename", name).Msg("resolved filename")
		return name
	}

	n := index
	if e.fallback == FallbackTotal {
		n = total
	}
	return fmt.Sprintf("code_block_%d.py", n)
}

// Extract runs the default Extractor over text.
func Extract(text string) []CodeBlock {
	return defaultExtractor.Extract(text)
}

var defaultExtractor = New()
