// ollamacode - chat with a local Ollama model and save the code it writes.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"os"

	"github.com/jeranaias/ollamacode/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
