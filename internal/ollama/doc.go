// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
//
// Only the two endpoints the code chat needs are covered: the model list
// (/api/tags) and streaming generation (/api/generate).
//
// # Key Types
//
//   - Client: HTTP client for Ollama API communication
//   - StreamReader: newline-delimited JSON line reader over a response body
//   - Fragment: one decoded line of a generate stream
//   - ClientError: typed error (connection, protocol, malformed chunk)
//
// # Usage
//
//	client := ollama.NewClient("http://127.0.0.1:11434")
//	stream, err := client.OpenGenerate(ctx, ollama.GenerateRequest{
//	    Model:  "deepseek-coder-v2:latest",
//	    Prompt: "Write a CSV parser",
//	})
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for {
//	    line, err := stream.NextLine()
//	    if err == io.EOF {
//	        break
//	    }
//	    frag, err := ollama.DecodeFragment(line)
//	    ...
//	}
package ollama
