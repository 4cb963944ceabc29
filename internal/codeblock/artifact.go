// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package codeblock

import (
	"path/filepath"
	"strings"
)

// DefaultFilename is used when a block has no filename directive.
const DefaultFilename = "Untitled"

// Artifact is a code block extracted from a response.
type Artifact struct {
	// Language is the tag on the opening fence; empty when absent.
	Language string
	// Filename comes from the directive line, or DefaultFilename.
	Filename string
	// Body is the code between the fences.
	Body string
}

// HasFilename reports whether the block named its file.
func (a Artifact) HasFilename() bool {
	return a.Filename != "" && a.Filename != DefaultFilename
}

// Title is the preview heading, e.g. "Code Implementation - main.go".
func (a Artifact) Title() string {
	return "Code Implementation - " + a.Filename
}

// SuggestedName returns a file name safe to offer in a save prompt. Named
// artifacts keep their base name; unnamed ones get an extension derived
// from the language tag (".py" when unknown).
func (a Artifact) SuggestedName() string {
	if a.HasFilename() {
		name := filepath.Base(filepath.Clean(a.Filename))
		if name != "." && name != string(filepath.Separator) {
			return name
		}
	}
	return "untitled" + ExtensionFor(a.Language)
}

var extensions = map[string]string{
	"python":     ".py",
	"py":         ".py",
	"go":         ".go",
	"golang":     ".go",
	"javascript": ".js",
	"js":         ".js",
	"typescript": ".ts",
	"ts":         ".ts",
	"rust":       ".rs",
	"java":       ".java",
	"c":          ".c",
	"cpp":        ".cpp",
	"c++":        ".cpp",
	"csharp":     ".cs",
	"cs":         ".cs",
	"ruby":       ".rb",
	"php":        ".php",
	"bash":       ".sh",
	"sh":         ".sh",
	"shell":      ".sh",
	"sql":        ".sql",
	"html":       ".html",
	"css":        ".css",
	"json":       ".json",
	"yaml":       ".yaml",
	"yml":        ".yaml",
	"toml":       ".toml",
	"markdown":   ".md",
	"md":         ".md",
	"dockerfile": ".dockerfile",
}

// ExtensionFor maps a fence language tag to a file extension.
func ExtensionFor(language string) string {
	if ext, ok := extensions[strings.ToLower(language)]; ok {
		return ext
	}
	return ".py"
}
