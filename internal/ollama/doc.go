// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the Ollama generate API.
//
// # Key Types
//
//   - Client: HTTP client for the Ollama server
//   - GenerateRequest: body of POST /api/generate
//   - StreamChunk: one decoded NDJSON line of a streaming reply
//   - StreamReader: line-by-line decoder that skips malformed lines
//   - ClientError: typed error (not running, timeout, model not found, ...)
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
//	    Endpoint: "http://localhost:11434/api/generate",
//	    Model:    "gemma2:2b",
//	})
//	err := client.GenerateStream(ctx, ollama.GenerateRequest{Prompt: prompt},
//	    func(chunk ollama.StreamChunk) {
//	        fmt.Print(chunk.Content)
//	    })
//
// Streaming requests use a dial/response-header timeout and an idle timeout
// between lines rather than a whole-request deadline, so long replies are
// not cut off while a stalled server still surfaces as ErrTimeout.
package ollama
