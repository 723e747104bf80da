// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ollamacode/internal/extract"
	"github.com/jeranaias/ollamacode/internal/ui/components"
)

// blockJSON is one block in --json output.
type blockJSON struct {
	Index    int    `json:"index"`
	Language string `json:"language"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

func newExtractCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		show   bool
		opts   askOptions
	)

	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "List the code blocks in a saved answer",
		Long: `Find the fenced code blocks in a markdown file (or stdin) and suggest a
filename for each, the same way answers are handled after streaming.`,
		Example: `  ollamacode extract answer.md
  ollamacode extract --json < answer.md
  ollamacode extract --save-dir ./out --save 2 answer.md`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.readSource(args)
			if err != nil {
				return err
			}
			blocks := a.extractor().Extract(text)
			a.metrics.BlocksExtracted(len(blocks))

			out := cmd.OutOrStdout()
			if asJSON {
				return OutputJSON(out, "extract", func() (interface{}, error) {
					items := make([]blockJSON, 0, len(blocks))
					for _, b := range blocks {
						items = append(items, blockJSON{
							Index:    b.Index,
							Language: b.Language,
							Filename: b.Filename,
							Content:  b.Content,
						})
					}
					return items, nil
				})
			}

			printBlocks(out, blocks, show, a.cfg.UI.SyntaxStyle)
			if opts.saveDir == "" || len(blocks) == 0 {
				return nil
			}
			return a.saveBlocks(cmd.ErrOrStderr(), blocks, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&asJSON, "json", false, "print blocks as JSON")
	f.BoolVar(&show, "show", false, "print each block's content")
	f.StringVar(&opts.saveDir, "save-dir", "", "save blocks under this directory")
	f.IntSliceVar(&opts.save, "save", nil, "block numbers to save (default all)")
	f.BoolVar(&opts.overwrite, "overwrite", false, "replace existing files")
	return cmd
}

// readSource reads the named file, or stdin when no file is given.
func (a *app) readSource(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read %s: %w", args[0], err)
		}
		return string(data), nil
	}
	if isTerminal(a.stdin) {
		return "", &UsageError{Reason: "no input: pass a file or pipe markdown on stdin", Example: "ollamacode extract answer.md"}
	}
	data, err := io.ReadAll(a.stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func printBlocks(w io.Writer, blocks []extract.CodeBlock, show bool, syntaxStyle string) {
	if len(blocks) == 0 {
		fmt.Fprintln(w, "No code blocks found.")
		return
	}
	color := colorsEnabled(w)
	for _, b := range blocks {
		fmt.Fprintf(w, "Code Block %d (%s)", b.Index, b.Filename)
		if b.Language != "" {
			fmt.Fprintf(w, "  %s", b.Language)
		}
		fmt.Fprintln(w)
		if !show {
			continue
		}
		content := b.Content
		if color {
			content = components.Highlight(content, b.Language, syntaxStyle)
		}
		fmt.Fprintln(w, content)
		fmt.Fprintln(w)
	}
}
