// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/jeranaias/ollamacode/internal/export"
	"github.com/jeranaias/ollamacode/internal/extract"
	"github.com/jeranaias/ollamacode/internal/metrics"
	"github.com/jeranaias/ollamacode/internal/session"
	"github.com/jeranaias/ollamacode/internal/ui/components"
	"github.com/jeranaias/ollamacode/internal/ui/styles"
)

// Server is the part of the Ollama client the UI needs outside of
// streaming. *ollama.Client implements it.
type Server interface {
	CheckRunning(ctx context.Context) error
	ModelNamesOrFallback(ctx context.Context) ([]string, error)
}

// Options configures a chat Model.
type Options struct {
	Controller *session.Controller
	Server     Server
	// Writer receives saved blocks. Its Dir and Overwrite follow config
	// reloads.
	Writer  *export.FileWriter
	Metrics *metrics.Metrics
	Theme   *styles.Theme

	// Model is preselected in the model list.
	Model       string
	MaxFPS      int
	LineNumbers bool
	Log         zerolog.Logger
}

// focus is the part of the screen that receives keys.
type focus int

const (
	focusInput focus = iota
	focusBlocks
	focusSave
)

// requestTimeout bounds the model listing and reachability checks.
const requestTimeout = 5 * time.Second

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen: a prompt, the
// streamed response, the extracted code blocks and the save prompt.
type Model struct {
	ctrl    *session.Controller
	server  Server
	writer  *export.FileWriter
	metrics *metrics.Metrics
	log     zerolog.Logger

	theme *styles.Theme
	keys  KeyMap

	input     textarea.Model
	viewport  viewport.Model
	spinner   spinner.Model
	help      help.Model
	saveInput textinput.Model

	blocks    *components.BlockList
	info      *components.InfoBar
	statusBar *components.StatusBar

	buffer *StreamingBuffer

	// Model selection
	models   []string
	modelIdx int

	// Current exchange. response holds the raw text; rendered is the
	// markdown rendering made once the response completes.
	prompt    string
	response  string
	rendered  string
	sessionID string

	// Save prompt state
	saveQueue   []extract.CodeBlock
	saveResults []export.Result
	saving      bool

	focus       focus
	lineNumbers bool
	width       int
	height      int
	ready       bool
	quitting    bool
}

// New creates a chat model.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ModeAuto, "")
	}
	writer := opts.Writer
	if writer == nil {
		writer = &export.FileWriter{}
	}

	ta := textarea.New()
	ta.Placeholder = "Ask for some code..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = 8192
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	// ASCII frames render the same on every terminal
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	si := textinput.New()
	si.Prompt = "Save as: "
	si.CharLimit = 1024

	var models []string
	if opts.Model != "" {
		models = []string{opts.Model}
	}

	m := Model{
		ctrl:        opts.Controller,
		server:      opts.Server,
		writer:      writer,
		metrics:     opts.Metrics,
		log:         opts.Log,
		theme:       theme,
		keys:        DefaultKeyMap(),
		input:       ta,
		viewport:    vp,
		spinner:     sp,
		help:        help.New(),
		saveInput:   si,
		blocks:      components.NewBlockList(theme),
		info:        components.NewInfoBar(theme),
		statusBar:   components.NewStatusBar(theme),
		buffer:      NewStreamingBuffer(opts.MaxFPS),
		models:      models,
		lineNumbers: opts.LineNumbers,
		width:       80,
		height:      24,
	}
	m.statusBar.Model = opts.Model
	m.statusBar.Shortcuts = shortcuts(m.keys.ShortHelp())
	return m
}

// Init starts the cursor blink and the startup checks.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		listModelsCmd(m.server),
		checkServerCmd(m.server),
	)
}

// CurrentModel returns the selected model name.
func (m Model) CurrentModel() string {
	if m.modelIdx < len(m.models) {
		return m.models[m.modelIdx]
	}
	return ""
}

// Response returns the raw text of the current response.
func (m Model) Response() string {
	return m.response
}

// Blocks returns the extracted blocks with their selection state.
func (m Model) Blocks() []extract.CodeBlock {
	return m.blocks.Blocks
}

// Streaming reports whether a response is in progress.
func (m Model) Streaming() bool {
	return m.ctrl != nil && m.ctrl.Busy()
}

// =============================================================================
// COMMANDS
// =============================================================================

// waitForEvent reads the next worker event. Exactly one is outstanding
// while a session runs.
func waitForEvent(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return sessionEventMsg{Event: ev}
	}
}

func listModelsCmd(s Server) tea.Cmd {
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		names, err := s.ModelNamesOrFallback(ctx)
		return modelsMsg{Models: names, Err: err}
	}
}

func checkServerCmd(s Server) tea.Cmd {
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return serverStatusMsg{Err: s.CheckRunning(ctx)}
	}
}

func shortcuts(bindings []key.Binding) []components.Shortcut {
	out := make([]components.Shortcut, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		out = append(out, components.Shortcut{Key: h.Key, Desc: h.Desc})
	}
	return out
}
