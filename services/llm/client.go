// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the model backends that turn an editing prompt
// into raw generation text. The default backend is a local Ollama
// daemon; an OpenAI-compatible backend can be selected for machines
// without a local model. Plan extraction and admission live in
// services/editplan; this package only moves text.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
)

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient defines the standard interface for any model backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// NewFromEnv selects a backend from GHOST_LLM_BACKEND. Unset or
// "ollama" picks the local daemon, "openai" the remote API.
func NewFromEnv() (LLMClient, error) {
	backend := strings.ToLower(os.Getenv("GHOST_LLM_BACKEND"))
	switch backend {
	case "", "ollama":
		return NewOllamaClient()
	case "openai":
		return NewOpenAIClient()
	default:
		return nil, fmt.Errorf("unknown LLM backend %q (want ollama or openai)", backend)
	}
}
