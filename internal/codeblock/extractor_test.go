// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package codeblock

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_TwoBlocksInOrder(t *testing.T) {
	text := "Here is the server:\n" +
		"```python\n# Filename: server.py\nprint('hi')\n```\n" +
		"and a helper:\n" +
		"```go\npackage main\n```\n"

	got := Extract(text)
	want := []Artifact{
		{Language: "python", Filename: "server.py", Body: "# Filename: server.py\nprint('hi')\n"},
		{Language: "go", Filename: DefaultFilename, Body: "package main\n"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("artifacts mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_NoLanguageTag(t *testing.T) {
	got := Extract("```\nplain block\n```")
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].Language)
	assert.Equal(t, "plain block\n", got[0].Body)
}

func TestExtract_UnclosedBlockIgnored(t *testing.T) {
	assert.Empty(t, Extract("```python\nprint('never closed')\n"))
	assert.Empty(t, Extract("no code here"))
}

func TestExtract_NonOverlapping(t *testing.T) {
	text := "```a\none\n``` text ```b\ntwo\n```"
	got := Extract(text)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Language)
	assert.Equal(t, "b", got[1].Language)
}

func TestFindFilename_CommentStyles(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"hash", "# Filename: app.py\n", "app.py"},
		{"slashes", "// Filename: main.go\npackage main", "main.go"},
		{"sql", "-- Filename: schema.sql\n", "schema.sql"},
		{"block comment", "/* Filename: style.css */\n", "style.css"},
		{"html", "<!-- Filename: index.html -->\n", "index.html"},
		{"lisp", ";; Filename: init.el\n", "init.el"},
		{"indented and padded", "    #   Filename:   spaced name.txt   \n", "spaced name.txt"},
		{"case insensitive", "# filename: lower.rb\n", "lower.rb"},
		{"crlf", "# Filename: win.bat\r\nrem", "win.bat"},
		{"missing", "print('no directive')\n", DefaultFilename},
		{"not a comment", "Filename: nope.txt\n", DefaultFilename},
		{"first wins", "# Filename: a.py\n# Filename: b.py\n", "a.py"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FindFilename(tc.body))
		})
	}
}

func TestExtractor_PerChunkMissesSplitBlock(t *testing.T) {
	e := NewExtractor(false)
	assert.Empty(t, e.Feed("```go\npackage main\n"))
	assert.Empty(t, e.Feed("func main() {}\n```"))

	got := e.Feed("```sh\necho hi\n```")
	require.Len(t, got, 1)
	assert.Equal(t, "sh", got[0].Language)
}

func TestExtractor_BufferedFindsSplitBlock(t *testing.T) {
	e := NewExtractor(true)
	chunks := []string{"intro `", "``go\n// Filename: ", "main.go\npackage main\n`", "``\n outro ```py", "\nx = 1\n```"}

	var got []Artifact
	for _, c := range chunks {
		got = append(got, e.Feed(c)...)
	}
	got = append(got, e.Flush()...)

	want := []Artifact{
		{Language: "go", Filename: "main.go", Body: "// Filename: main.go\npackage main\n"},
		{Language: "py", Filename: DefaultFilename, Body: "x = 1\n"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("artifacts mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractor_BufferedReportsEachBlockOnce(t *testing.T) {
	e := NewExtractor(true)
	first := e.Feed("```a\n1\n```")
	require.Len(t, first, 1)
	assert.Empty(t, e.Feed(" more prose"))
	assert.Empty(t, e.Feed(" and more"))
	assert.Empty(t, e.pending, "prose without fences is not retained")
}

func TestExtractor_FlushDropsUnterminated(t *testing.T) {
	e := NewExtractor(true)
	assert.Empty(t, e.Feed("```go\nhalf"))
	assert.Empty(t, e.Flush())
	assert.Empty(t, e.Feed("\n```"), "flushed opener must not pair with a later fence")
}

func TestTrimPending(t *testing.T) {
	tests := []struct {
		in       string
		want     string
		wantSkip bool
	}{
		{in: "prose", want: ""},
		{in: "prose``", want: "``"},
		{in: "prose ```go\nx", want: "```go\nx"},
		{in: "```" + strings.Repeat("x", maxPending), want: "", wantSkip: true},
	}
	for _, tt := range tests {
		got, skip := trimPending(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.wantSkip, skip)
	}
}

func TestExtractor_OversizedBlockSkipsToItsClosingFence(t *testing.T) {
	e := NewExtractor(true)

	assert.Empty(t, e.Feed("```go\n"+strings.Repeat("x", maxPending)))
	assert.Empty(t, e.Feed("more of the same block\n`"))
	assert.Empty(t, e.Feed("``\nprose that is not code\n"))

	got := e.Feed("```py\nprint(1)\n```\n")
	require.Len(t, got, 1)
	assert.Equal(t, "py", got[0].Language)
	assert.Equal(t, "print(1)\n", got[0].Body)
	assert.Empty(t, e.Flush())
}

func TestArtifact_SuggestedName(t *testing.T) {
	tests := []struct {
		a    Artifact
		want string
	}{
		{Artifact{Filename: "main.go", Language: "go"}, "main.go"},
		{Artifact{Filename: "../../etc/passwd"}, "passwd"},
		{Artifact{Filename: DefaultFilename, Language: "go"}, "untitled.go"},
		{Artifact{Filename: DefaultFilename, Language: "TypeScript"}, "untitled.ts"},
		{Artifact{Filename: DefaultFilename}, "untitled.py"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.a.SuggestedName())
	}
}

func TestArtifact_Title(t *testing.T) {
	a := Artifact{Filename: "server.py"}
	assert.Equal(t, "Code Implementation - server.py", a.Title())
	assert.True(t, a.HasFilename())
	assert.False(t, Artifact{Filename: DefaultFilename}.HasFilename())
}
