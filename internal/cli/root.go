// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ollamacode/internal/config"
	"github.com/jeranaias/ollamacode/internal/extract"
	"github.com/jeranaias/ollamacode/internal/logging"
	"github.com/jeranaias/ollamacode/internal/metrics"
	"github.com/jeranaias/ollamacode/internal/ollama"
	"github.com/jeranaias/ollamacode/internal/session"
)

// skipSetup marks commands that run without configuration or logging.
const skipSetup = "skip-setup"

// globalFlags override the loaded configuration.
type globalFlags struct {
	configPath  string
	model       string
	url         string
	logLevel    string
	metricsAddr string
}

// app is the state shared by all commands, populated in
// PersistentPreRunE.
type app struct {
	flags globalFlags

	cfg     *config.Config
	cfgPath string
	log     zerolog.Logger
	closer  io.Closer
	metrics *metrics.Metrics

	// stdin is read for piped prompts.
	stdin io.Reader
}

// NewRootCmd builds the command tree. Running the root command starts the
// interactive chat.
func NewRootCmd() *cobra.Command {
	return newRootCmd(os.Stdin)
}

func newRootCmd(stdin io.Reader) *cobra.Command {
	a := &app{stdin: stdin, log: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "ollamacode",
		Short: "Chat with a local Ollama model and save the code it writes",
		Long: `ollamacode streams answers from a local Ollama server, finds the fenced
code blocks in them, suggests a filename for each and saves the ones you pick.

Run without a command to start the interactive chat.`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipSetup] != "" {
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.teardown()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runTUI(cmd)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Reason: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "config file (.toml, .yaml or .json)")
	pf.StringVarP(&a.flags.model, "model", "m", "", "model to use")
	pf.StringVar(&a.flags.url, "url", "", "Ollama server URL")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	pf.StringVar(&a.flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(
		newAskCmd(a),
		newModelsCmd(a),
		newExtractCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	err := NewRootCmd().ExecuteContext(context.Background())
	if err != nil {
		DisplayError(os.Stderr, err)
	}
	return ExitCode(err)
}

// =============================================================================
// SETUP
// =============================================================================

// setup loads configuration, applies flag overrides and opens the logger.
// The chat screen logs to a file only; other commands log to stderr.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, path, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.cfgPath = path

	opts := logging.Options{Level: cfg.Log.Level, File: cfg.Log.File}
	if cmd == cmd.Root() {
		if opts.File == "" {
			opts.File = logging.DefaultFile()
		}
	} else {
		opts.Console = true
		opts.Out = cmd.ErrOrStderr()
	}
	log, closer, err := logging.New(opts)
	if err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	a.log = log
	a.closer = closer
	a.metrics = metrics.New()

	a.log.Debug().Str("config", path).Str("url", cfg.Server.URL).Msg("configuration loaded")
	return nil
}

func (a *app) loadConfig() (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path = a.flags.configPath
		err  error
	)
	if path != "" {
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, path, &ConfigError{Path: path, Err: err}
	}
	if err := a.applyFlags(cfg); err != nil {
		return nil, path, &ConfigError{Path: path, Err: err}
	}
	return cfg, path, nil
}

// applyFlags copies explicitly set global flags over cfg and revalidates.
func (a *app) applyFlags(cfg *config.Config) error {
	if a.flags.model != "" {
		cfg.DefaultModel = a.flags.model
	}
	if a.flags.url != "" {
		cfg.Server.URL = a.flags.url
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	if a.flags.metricsAddr != "" {
		cfg.Metrics.Addr = a.flags.metricsAddr
	}
	return cfg.Validate()
}

func (a *app) teardown() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// =============================================================================
// WIRING
// =============================================================================

func (a *app) client() *ollama.Client {
	return ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:        a.cfg.Server.URL,
		ConnectTimeout: a.cfg.Server.ConnectTimeout(),
	})
}

func (a *app) extractor() *extract.Extractor {
	return extract.New(append(a.cfg.ExtractOptions(), extract.WithLogger(a.log))...)
}

func (a *app) controller(client *ollama.Client) *session.Controller {
	opts := []session.Option{
		session.WithIdleTimeout(a.cfg.Server.IdleTimeout()),
		session.WithLogger(a.log),
		session.WithMetrics(a.metrics),
	}
	if a.cfg.Server.Preflight {
		opts = append(opts, session.WithPreflight(client))
	}
	return session.NewController(session.NewIngestor(client, opts...), a.extractor())
}

// serveMetrics exposes /metrics until ctx ends when an address is set.
func (a *app) serveMetrics(ctx context.Context) {
	addr := a.cfg.Metrics.Addr
	if addr == "" {
		return
	}
	go func() {
		if err := a.metrics.Serve(ctx, addr, a.log); err != nil {
			a.log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
}
