// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the application logger.
//
// The TUI owns the terminal, so logs go to a file (by default
// ~/.reasonchat/reasonchat.log) as JSON lines.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultFile is the log file name inside the config directory.
const DefaultFile = "reasonchat.log"

// Options configures New.
type Options struct {
	// Path of the log file. Empty means <Dir>/reasonchat.log.
	Path string
	// Dir is used when Path is empty.
	Dir string
	// Level is debug, info, warn or error.
	Level string
	// Debug forces debug level.
	Debug bool
}

// ParseLevel maps a level name to a zapcore.Level. Unknown names give info.
func ParseLevel(name string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// New builds a production JSON logger writing to the configured file.
func New(opts Options) (*zap.Logger, error) {
	path := opts.Path
	if path == "" {
		if opts.Dir == "" {
			return nil, fmt.Errorf("no log path or directory given")
		}
		path = filepath.Join(opts.Dir, DefaultFile)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(ParseLevel(opts.Level))
	if opts.Debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{path}
	config.ErrorOutputPaths = []string{path}
	config.Sampling = nil

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
