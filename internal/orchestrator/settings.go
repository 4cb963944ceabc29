// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"slices"

	"github.com/jeranaias/reasonchat/internal/config"
	"github.com/jeranaias/reasonchat/internal/ollama"
	"github.com/jeranaias/reasonchat/internal/section"
)

// SettingsFromConfig derives turn settings from the loaded configuration.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	policy, err := section.ParsePolicy(cfg.Stream.BoundaryPolicy)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Model:        cfg.API.Model,
		SystemPrompt: cfg.Prompt.System,
		TurnSuffix:   cfg.Prompt.TurnSuffix,
		Policy:       policy,
		Options:      optionsFromConfig(cfg.Generate),
	}, nil
}

func optionsFromConfig(g config.GenerateConfig) *ollama.Options {
	if g.IsZero() {
		return nil
	}
	return &ollama.Options{
		Temperature: g.Temperature,
		TopK:        g.TopK,
		TopP:        g.TopP,
		NumCtx:      g.NumCtx,
		NumPredict:  g.NumPredict,
		Seed:        g.Seed,
		Stop:        slices.Clone(g.Stop),
	}
}
