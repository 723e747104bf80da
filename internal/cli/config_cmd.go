// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ollamacode/internal/config"
	"github.com/jeranaias/ollamacode/internal/ui/styles"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
		Long: `Show or change configuration.

Settings are read from --config, or the first of ~/.ollamacode/config.toml,
config.yaml and config.json, then OLLAMACODE_* environment variables and
flags. "set" and "reset" edit the file only.`,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(cmd.OutOrStdout(), a.cfg.String())
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one effective value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.cfg.Get(args[0])
			if err != nil {
				return &UsageError{Reason: err.Error(), Example: "ollamacode config get server.url"}
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}

	set := &cobra.Command{
		Use:         "set <key> <value>",
		Short:       "Change one value in the config file",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.editablePath()
			if err != nil {
				return err
			}
			cfg, err := loadFileOnly(path)
			if err != nil {
				return &ConfigError{Path: path, Err: err}
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return &UsageError{Reason: err.Error(), Example: "ollamacode config set ui.theme dark"}
			}
			if err := cfg.Validate(); err != nil {
				return &ConfigError{Path: path, Err: err}
			}
			if err := config.Save(cfg, path); err != nil {
				return &ConfigError{Path: path, Err: err}
			}
			fmt.Fprintln(cmd.ErrOrStderr(), styles.RenderSuccess(fmt.Sprintf("%s = %s (%s)", args[0], args[1], path)))
			return nil
		},
	}

	reset := &cobra.Command{
		Use:         "reset",
		Short:       "Write the default configuration to the config file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := a.editablePath()
			if err != nil {
				return err
			}
			if err := config.Save(config.Default(), path); err != nil {
				return &ConfigError{Path: path, Err: err}
			}
			fmt.Fprintln(cmd.ErrOrStderr(), styles.RenderSuccess("defaults written to "+path))
			return nil
		},
	}

	path := &cobra.Command{
		Use:         "path",
		Short:       "Print the config file that is read",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.editablePath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}

	keys := &cobra.Command{
		Use:         "keys",
		Short:       "List every settable key",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(config.GetAllKeys(), "\n"))
			return nil
		},
	}

	cmd.AddCommand(show, get, set, reset, path, keys)
	return cmd
}

// editablePath returns --config, the first existing search path, or the
// default TOML path.
func (a *app) editablePath() (string, error) {
	if a.flags.configPath != "" {
		return a.flags.configPath, nil
	}
	for _, p := range config.SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return config.ConfigPath("toml")
}

// loadFileOnly reads path over the defaults without environment overrides,
// so that saving it back does not capture them. A missing file yields the
// defaults.
func loadFileOnly(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = config.LoadJSON(cfg, path)
	case ".yaml", ".yml":
		err = config.LoadYAML(cfg, path)
	default:
		err = config.LoadTOML(cfg, path)
	}
	return cfg, err
}
