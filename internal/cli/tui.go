// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/ollamacode/internal/config"
	"github.com/jeranaias/ollamacode/internal/export"
	"github.com/jeranaias/ollamacode/internal/ui/chat"
	"github.com/jeranaias/ollamacode/internal/ui/styles"
)

// runTUI starts the chat screen on the alternate screen buffer. Edits to
// the config file are applied while it runs.
func (a *app) runTUI(cmd *cobra.Command) error {
	if !IsTTY() {
		return &TTYRequiredError{Operation: "start the chat screen"}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	a.serveMetrics(ctx)

	cfg := a.cfg
	client := a.client()
	ctrl := a.controller(client)
	defer ctrl.Close()

	m := chat.New(chat.Options{
		Controller: ctrl,
		Server:     client,
		Writer: &export.FileWriter{
			Dir:       cfg.Export.Dir,
			Overwrite: cfg.Export.Overwrite,
		},
		Metrics:     a.metrics,
		Theme:       styles.NewTheme(cfg.UI.Theme, cfg.UI.SyntaxStyle),
		Model:       cfg.DefaultModel,
		MaxFPS:      cfg.UI.MaxFPS,
		LineNumbers: cfg.UI.LineNumbers,
		Log:         a.log,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())

	if a.cfgPath != "" {
		w, err := config.Watch(a.cfgPath, func(next *config.Config) {
			if err := a.applyFlags(next); err != nil {
				a.log.Warn().Err(err).Msg("reloaded config rejected")
				return
			}
			p.Send(chat.ConfigChangedMsg{Config: next})
		}, a.log)
		if err != nil {
			a.log.Warn().Err(err).Str("path", a.cfgPath).Msg("config watch disabled")
		} else {
			defer w.Close()
		}
	}

	a.log.Info().Str("model", cfg.DefaultModel).Str("url", cfg.Server.URL).Msg("starting chat")
	_, err := p.Run()
	return err
}
