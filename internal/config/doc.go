// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for reasonchat.
//
// TOML, JSON and YAML files are supported, with defaults, environment
// variable overrides, validation and hot reload.
//
// # Key Types
//
//   - Config: the complete configuration
//   - APIConfig: Ollama endpoint, model and timeout
//   - GUIConfig: theme and font size
//   - Watcher: reloads the file when it changes on disk
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (REASONCHAT_*)
//   - ~/.reasonchat/config.toml
//   - ~/.reasonchat/config.json
//   - ~/.reasonchat/config.yaml
//   - Built-in defaults
//
// # Usage
//
//	cfg, path, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	cfg.ToggleTheme()
//	err = config.Save(cfg, path)
package config
