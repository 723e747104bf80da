// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"regexp"
	"strings"
)

// =============================================================================
// MATCHERS
// =============================================================================

// Matcher proposes a filename for one block.
//
// scope is the text searched for markers placed around the block (the whole
// response, or the stretch preceding the block's opening fence, depending
// on the extractor's Scope). content is the block's own trimmed content.
// An empty return means no suggestion.
type Matcher struct {
	Name  string
	Match func(scope, content string) string
}

// word matches a letter, digit or underscore in any script, so names like
// données.py or Café survive.
const word = `\p{L}\p{N}_`

// PERFORMANCE: Pre-compiled regex (compiled once at startup)
var (
	boldNameRe    = regexp.MustCompile(`\*\*([` + word + `.-]+)\*\*\s*` + "```")
	headingNameRe = regexp.MustCompile(`#{1,6}\s*(?:\d+\.)?\s*.*?` + "`([" + word + ".-]+)`")
	colonNameRe   = regexp.MustCompile(`(?:^|\n)([` + word + `.-]+):\s*` + "```")
	commentNameRe = regexp.MustCompile(`#\s*([` + word + `.-]+)`)
	classDeclRe   = regexp.MustCompile(`class\s+([` + word + `]+)`)
	funcDeclRe    = regexp.MustCompile(`def\s+([` + word + `]+)`)
)

// DefaultMatchers returns the filename heuristics in precedence order.
func DefaultMatchers() []Matcher {
	return []Matcher{
		{Name: "bold", Match: BoldName},
		{Name: "heading", Match: HeadingName},
		{Name: "colon", Match: ColonName},
		{Name: "comment", Match: CommentName},
		{Name: "class", Match: ClassName},
		{Name: "def", Match: FuncName},
	}
}

// BoldName matches a markdown-bold name right before a fence: **main.py** ```
func BoldName(scope, _ string) string {
	return firstGroup(boldNameRe, scope)
}

// HeadingName matches a heading mentioning an inline-code name:
// ### 2. The entry point `main.py`
func HeadingName(scope, _ string) string {
	return firstGroup(headingNameRe, scope)
}

// ColonName matches a bare "name:" line right before a fence.
// Only the start of the scope or a newline may precede the name.
func ColonName(scope, _ string) string {
	return firstGroup(colonNameRe, scope)
}

// CommentName takes the first token of a leading "# name" comment line.
func CommentName(_, content string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	if !strings.HasPrefix(first, "#") {
		return ""
	}
	return firstGroup(commentNameRe, first)
}

// ClassName names the block after its first class declaration.
func ClassName(_, content string) string {
	if name := firstGroup(classDeclRe, content); name != "" {
		return name + ".py"
	}
	return ""
}

// FuncName names the block after its first function declaration.
func FuncName(_, content string) string {
	if name := firstGroup(funcDeclRe, content); name != "" {
		return name + ".py"
	}
	return ""
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// validFilename rejects candidates that cannot be used as a bare file name.
func validFilename(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return false
	}
	return strings.Trim(name, ".") != ""
}
