// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/ollamacode/internal/ui/styles"
)

// modelsTimeout bounds the model listing request.
const modelsTimeout = 10 * time.Second

// modelList is the --json payload of the models command.
type modelList struct {
	Models   []string `json:"models"`
	Default  string   `json:"default"`
	Fallback bool     `json:"fallback"`
}

func newModelsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models installed on the Ollama server",
		Long: `List the models installed on the Ollama server.

When the server cannot be reached, or has no models, a built-in list is
shown instead and marked as such.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, listErr := a.listModels(cmd.Context())
			if asJSON {
				return OutputJSON(cmd.OutOrStdout(), "models", func() (interface{}, error) {
					return list, nil
				})
			}

			out := cmd.OutOrStdout()
			if listErr != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), styles.RenderWarning("could not list models ("+listErr.Error()+"), showing defaults"))
			}
			for _, name := range list.Models {
				marker := "  "
				if name == list.Default {
					marker = "* "
				}
				fmt.Fprintln(out, marker+name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func (a *app) listModels(ctx context.Context) (modelList, error) {
	ctx, cancel := context.WithTimeout(ctx, modelsTimeout)
	defer cancel()

	names, err := a.client().ModelNamesOrFallback(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("model listing failed")
	}
	return modelList{
		Models:   names,
		Default:  a.cfg.DefaultModel,
		Fallback: err != nil,
	}, err
}
