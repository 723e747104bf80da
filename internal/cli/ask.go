// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ollamacode/internal/export"
	"github.com/jeranaias/ollamacode/internal/extract"
	"github.com/jeranaias/ollamacode/internal/session"
	"github.com/jeranaias/ollamacode/internal/ui/styles"
	"github.com/jeranaias/ollamacode/internal/util"
)

// askOptions holds the ask command flags.
type askOptions struct {
	saveDir   string
	save      []int
	noSave    bool
	render    bool
	overwrite bool
	file      string
}

func newAskCmd(a *app) *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Stream one answer to stdout and save its code blocks",
		Long: `Send one prompt, stream the answer to stdout and list the code blocks in it.

The prompt is read from the arguments, or from stdin when it is piped.
Ctrl+C stops the answer; the text received so far is kept.

On a terminal each block is offered with its suggested filename; edit
the path and press enter to save, or press Ctrl+C to skip the block.
With --save-dir every chosen block is written without prompting.`,
		Example: `  ollamacode ask "write a python script that prints the date"
  ollamacode ask --save-dir ./out "a flask app with a test file"
  echo "a bash backup script" | ollamacode ask --save 1 --save-dir .`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAsk(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.saveDir, "save-dir", "", "save blocks under this directory without prompting")
	f.IntSliceVar(&opts.save, "save", nil, "block numbers to save (default all)")
	f.BoolVar(&opts.noSave, "no-save", false, "list blocks but do not save any")
	f.BoolVar(&opts.render, "render", false, "render the finished answer as markdown instead of streaming it")
	f.BoolVar(&opts.overwrite, "overwrite", false, "replace existing files")
	f.StringVarP(&opts.file, "file", "f", "", "append the contents of a file to the prompt")
	return cmd
}

func (a *app) runAsk(cmd *cobra.Command, args []string, opts askOptions) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	prompt, err := a.readPrompt(args, opts.file)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	a.serveMetrics(ctx)

	client := a.client()
	ctrl := a.controller(client)
	defer ctrl.Close()

	s, err := ctrl.Send(ctx, a.cfg.DefaultModel, prompt)
	if err != nil {
		return err
	}
	a.log.Debug().Str("session", s.ID).Str("model", s.Model).Msg("request sent")

	// First Ctrl+C cancels the answer; the default handler is restored so
	// a second one exits.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		if _, ok := <-sigs; ok {
			signal.Stop(sigs)
			s.Cancel()
		}
	}()

	done, blocks, err := a.stream(ctrl, out, errOut, opts.render)
	signal.Stop(sigs)
	close(sigs)
	if err != nil {
		return err
	}

	printSummary(errOut, done, blocks)
	if len(blocks) == 0 || opts.noSave {
		return nil
	}
	return a.saveBlocks(errOut, blocks, opts)
}

// readPrompt joins args, or reads piped stdin when there are none.
func (a *app) readPrompt(args []string, file string) (string, error) {
	prompt := strings.TrimSpace(strings.Join(args, " "))
	if prompt == "" && !isTerminal(a.stdin) {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", fmt.Errorf("read prompt from stdin: %w", err)
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" {
		return "", &UsageError{
			Reason:  "no prompt given",
			Example: `ollamacode ask "write a hello world in go"`,
		}
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		prompt += "\n\n" + string(data)
	}
	return prompt, nil
}

// stream prints the answer as it arrives and returns the final event and
// the extracted blocks. With render set the text is held back and printed
// as markdown at the end.
func (a *app) stream(ctrl *session.Controller, out, errOut io.Writer, render bool) (session.CompleteEvent, []extract.CodeBlock, error) {
	for ev := range ctrl.Events() {
		blocks := ctrl.Dispatch(ev)

		switch e := ev.(type) {
		case session.ChunkEvent:
			if render {
				fmt.Fprintf(errOut, "\r%s chars", util.FormatCount(e.Length))
			} else {
				fmt.Fprint(out, e.Text)
			}

		case session.CompleteEvent:
			if render {
				fmt.Fprint(errOut, "\r\033[K")
				fmt.Fprintln(out, renderMarkdown(e.Text, terminalWidth(out), colorsEnabled(out)))
			} else if !strings.HasSuffix(e.Text, "\n") {
				fmt.Fprintln(out)
			}
			return e, blocks, nil

		case session.ErrorEvent:
			if render {
				fmt.Fprintln(errOut)
			}
			return session.CompleteEvent{}, nil, e
		}
	}
	return session.CompleteEvent{}, nil, fmt.Errorf("event stream closed")
}

// renderMarkdown renders content with glamour. Plain text is returned when
// color is off or rendering fails.
func renderMarkdown(content string, width int, color bool) string {
	if !color {
		return content
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

// printSummary writes the response info and the block list to w.
func printSummary(w io.Writer, e session.CompleteEvent, blocks []extract.CodeBlock) {
	fmt.Fprintln(w)
	if e.Cancelled {
		fmt.Fprintln(w, styles.RenderWarning("cancelled, keeping the partial answer"))
	}
	line := fmt.Sprintf("Start %s  End %s  Duration %s  Length %s chars",
		util.FormatTimestamp(e.StartedAt),
		util.FormatTimestamp(e.EndedAt),
		util.FormatDuration(e.Duration()),
		util.FormatCount(e.Length))
	if rate := util.FormatRate(e.Stats.TokensPerSecond()); rate != "" {
		line += "  " + rate
	}
	fmt.Fprintln(w, line)

	if len(blocks) == 0 {
		fmt.Fprintln(w, "No code blocks found.")
		return
	}
	for _, b := range blocks {
		lang := b.Language
		if lang == "" {
			lang = "text"
		}
		fmt.Fprintf(w, "  Code Block %d (%s)  %s, %d lines\n",
			b.Index, b.Filename, lang, strings.Count(b.Content, "\n")+1)
	}
}

// =============================================================================
// SAVING
// =============================================================================

// selectBlocks marks the blocks named in indexes, or all of them.
func selectBlocks(blocks []extract.CodeBlock, indexes []int) ([]extract.CodeBlock, error) {
	out := make([]extract.CodeBlock, len(blocks))
	copy(out, blocks)

	if len(indexes) == 0 {
		for i := range out {
			out[i].Selected = true
		}
		return out, nil
	}
	for _, n := range indexes {
		if n < 1 || n > len(out) {
			return nil, &UsageError{Reason: fmt.Sprintf("--save %d: there are %d code blocks", n, len(out))}
		}
		out[n-1].Selected = true
	}
	return out, nil
}

func (a *app) saveBlocks(w io.Writer, blocks []extract.CodeBlock, opts askOptions) error {
	selected, err := selectBlocks(blocks, opts.save)
	if err != nil {
		return err
	}

	overwrite := opts.overwrite || a.cfg.Export.Overwrite
	var (
		prompter export.Prompter
		writer   *export.FileWriter
	)
	switch {
	case opts.saveDir != "":
		prompter = export.DirPrompter{Dir: opts.saveDir}
		writer = &export.FileWriter{Overwrite: overwrite}
	case IsTTY():
		lp := export.NewLinerPrompter()
		defer lp.Close()
		prompter = lp
		writer = &export.FileWriter{Dir: a.cfg.Export.Dir, Overwrite: overwrite}
	default:
		if len(opts.save) > 0 {
			return &TTYRequiredError{Operation: "choose paths (use --save-dir)"}
		}
		return nil
	}

	ex := export.New(prompter, writer,
		export.WithLogger(a.log),
		export.WithMetrics(a.metrics),
	)
	results := ex.Export(selected)
	printResults(w, writer, results)

	summary := export.Summarize(results)
	if summary.Failed > 0 {
		return &ExportError{Failed: summary.Failed, Err: export.Err(results)}
	}
	return nil
}

func printResults(w io.Writer, fw *export.FileWriter, results []export.Result) {
	for _, r := range results {
		name := fmt.Sprintf("Code Block %d (%s)", r.Block.Index, r.Block.Filename)
		switch r.Status {
		case export.Saved:
			path := r.Path
			if abs, err := fw.Resolve(r.Path); err == nil {
				path = abs
			}
			fmt.Fprintln(w, styles.RenderSuccess(name+" saved to "+path))
		case export.Cancelled:
			fmt.Fprintln(w, styles.RenderInfo(name+" skipped"))
		case export.Failed:
			fmt.Fprintln(w, styles.RenderError(name+": "+r.Err.Error()))
		}
	}
	fmt.Fprintln(w, export.Summarize(results).String())
}
