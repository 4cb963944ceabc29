// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/reasonchat/internal/codeblock"
	"github.com/jeranaias/reasonchat/internal/config"
	"github.com/jeranaias/reasonchat/internal/ollama"
	"github.com/jeranaias/reasonchat/internal/orchestrator"
	"github.com/jeranaias/reasonchat/internal/storage"
)

// =============================================================================
// HELPERS
// =============================================================================

// withHome points the config directory at a temp dir and clears overrides.
func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, v := range []string{"REASONCHAT_OLLAMA_URL", "REASONCHAT_MODEL", "REASONCHAT_THEME", "REASONCHAT_LOG_LEVEL"} {
		t.Setenv(v, "")
	}
	return home
}

// execute runs the command tree with args and captures its output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	_, err := root.ExecuteC()
	return buf.String(), err
}

// fakeOllama serves /api/generate with the given response pieces and
// /api/tags with one model. Prompts are sent on the returned channel.
func fakeOllama(t *testing.T, pieces ...string) (string, <-chan string) {
	t.Helper()
	prompts := make(chan string, 8)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/generate":
			var req ollama.GenerateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			prompts <- req.Prompt
			for _, p := range pieces {
				line, _ := json.Marshal(map[string]any{"response": p, "done": false})
				fmt.Fprintln(w, string(line))
			}
			fmt.Fprintln(w, `{"response":"","done":true,"eval_count":4}`)
		case "/api/tags":
			fmt.Fprint(w, `{"models":[{"name":"gemma2:2b","size":1610612736},{"name":"llama3:8b","size":4661211136}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	t.Setenv("REASONCHAT_OLLAMA_URL", srv.URL+"/api/generate")
	return srv.URL, prompts
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_PrintsSectionsAndReply(t *testing.T) {
	withHome(t)
	_, prompts := fakeOllama(t, "<thinking>", "plan it", "</thinking>", "The answer.")

	out, err := execute(t, "", "ask", "what", "now?")
	require.NoError(t, err)

	assert.Contains(t, out, "Thinking:\nplan it")
	assert.Contains(t, out, "The answer.")
	assert.NotContains(t, out, "<thinking>")

	prompt := <-prompts
	assert.True(t, strings.HasSuffix(prompt, "Human: what now?\nAssistant:"), prompt)
	assert.True(t, strings.HasPrefix(prompt, "System: "))
}

func TestAsk_ReadsStdin(t *testing.T) {
	withHome(t)
	_, prompts := fakeOllama(t, "ok")

	_, err := execute(t, "  piped question \n", "ask", "-")
	require.NoError(t, err)
	assert.Contains(t, <-prompts, "Human: piped question\n")
}

func TestAsk_ArchivesTurn(t *testing.T) {
	home := withHome(t)
	fakeOllama(t, "archived reply")

	_, err := execute(t, "", "ask", "remember this")
	require.NoError(t, err)

	arch, err := storage.Open(filepath.Join(home, ".reasonchat", storage.DefaultFile))
	require.NoError(t, err)
	sessions, err := arch.List(context.Background(), 10)
	require.NoError(t, err)
	require.NoError(t, arch.Close())
	require.Len(t, sessions, 1)
	assert.Equal(t, 3, sessions[0].MessageCount)

	out, err := execute(t, "", "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, sessions[0].ID[:8])

	out, err = execute(t, "", "history", "show", sessions[0].ID[:8], "--format", "md")
	require.NoError(t, err)
	assert.Contains(t, out, "remember this")
	assert.Contains(t, out, "archived reply")

	out, err = execute(t, "", "history", "delete", sessions[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted session")

	out, err = execute(t, "", "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found.")
}

func TestAsk_ConnectionError(t *testing.T) {
	withHome(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	t.Setenv("REASONCHAT_OLLAMA_URL", url+"/api/generate")

	out, err := execute(t, "", "ask", "hello")
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(out, "Error in communication with Ollama"), out)

	var ee *ExitError
	require.ErrorAs(t, err, &ee)
	assert.True(t, ee.Reported)
	assert.Equal(t, ExitNetworkError, ee.Code)

	stderr := new(bytes.Buffer)
	assert.Equal(t, ExitNetworkError, reportError(stderr, err))
	assert.Empty(t, stderr.String())
}

func TestReportError(t *testing.T) {
	buf := new(bytes.Buffer)
	assert.Equal(t, ExitGeneralError, reportError(buf, errors.New("bad flag")))
	assert.Equal(t, "Error: bad flag\n", buf.String())

	buf.Reset()
	err := &ExitError{Code: ExitTimeoutError, Err: errors.New("slow")}
	assert.Equal(t, ExitTimeoutError, reportError(buf, err))
	assert.Equal(t, "Error: slow\n", buf.String())

	assert.Equal(t, ExitInterrupted, exitCodeFor(context.Canceled))
	assert.Equal(t, ExitTimeoutError, exitCodeFor(ollama.ErrTimeout))
	assert.Equal(t, ExitNetworkError, exitCodeFor(ollama.ErrNotRunning))
}

func TestAsk_SaveCode(t *testing.T) {
	withHome(t)
	fakeOllama(t, "Here:\n", "```go\n// Filename: hello.go\npackage main\n```\n")
	dir := t.TempDir()

	out, err := execute(t, "", "ask", "--save-code", dir, "write hello")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved ")

	data, err := os.ReadFile(filepath.Join(dir, "hello.go"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "package main")
}

func TestSaveArtifacts_RepeatedNames(t *testing.T) {
	dir := t.TempDir()
	sink := newConsoleSink(io.Discard, config.ThemeDark)
	sink.artifacts = codeblock.Extract("```python\nprint(1)\n```\n" +
		"```python\nprint(2)\n```\n" +
		"```go\n// Filename: main.go\npackage a\n```\n" +
		"```go\n// Filename: main.go\npackage b\n```\n")
	require.Len(t, sink.artifacts, 4)

	out := new(bytes.Buffer)
	require.NoError(t, saveArtifacts(out, sink, dir, &app{logger: zap.NewNop()}))

	want := map[string]string{
		"untitled.py":   "print(1)\n",
		"untitled-2.py": "print(2)\n",
		"main.go":       "// Filename: main.go\npackage a\n",
		"main-2.go":     "// Filename: main.go\npackage b\n",
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, len(want))
	for name, body := range want {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Equal(t, body, string(data), name)
		assert.Contains(t, out.String(), "Saved "+filepath.Join(dir, name))
	}
}

func TestUniqueName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "a.txt", uniqueName("a.txt", used))
	assert.Equal(t, "a-2.txt", uniqueName("a.txt", used))
	assert.Equal(t, "a-2-2.txt", uniqueName("a-2.txt", used))
	assert.Equal(t, "a-3.txt", uniqueName("a.txt", used))
	assert.Equal(t, "Makefile", uniqueName("Makefile", used))
	assert.Equal(t, "Makefile-2", uniqueName("Makefile", used))
}

func TestHistory_DisabledArchive(t *testing.T) {
	home := withHome(t)
	path := filepath.Join(home, "cfg.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage]\ndisabled = true\n"), 0600))

	_, err := execute(t, "", "--config", path, "history", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestReadPrompt(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "args", args: []string{"a", "b"}, want: "a b"},
		{name: "dash reads stdin", stdin: "from pipe\n", args: []string{"-"}, want: "from pipe"},
		{name: "no args reads stdin", stdin: "x", want: "x"},
		{name: "empty stdin", stdin: "  ", wantErr: true},
		{name: "blank args", args: []string{" "}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readPrompt(strings.NewReader(tt.stdin), tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// =============================================================================
// MODELS AND CONFIG
// =============================================================================

func TestModels(t *testing.T) {
	withHome(t)
	fakeOllama(t)

	out, err := execute(t, "", "models")
	require.NoError(t, err)
	assert.Contains(t, out, "* gemma2:2b")
	assert.Contains(t, out, "llama3:8b")
	assert.Contains(t, out, "1.5 GB")
}

func TestConfig_SetGetPath(t *testing.T) {
	home := withHome(t)

	out, err := execute(t, "", "config", "path")
	require.NoError(t, err)
	want := filepath.Join(home, ".reasonchat", "config.toml")
	assert.Equal(t, want, strings.TrimSpace(out))

	_, err = execute(t, "", "config", "set", "gui.theme", "light")
	require.NoError(t, err)
	_, err = execute(t, "", "config", "set", "gui.font_size", "14")
	require.NoError(t, err)

	out, err = execute(t, "", "config", "get", "gui.theme")
	require.NoError(t, err)
	assert.Equal(t, "light", strings.TrimSpace(out))

	out, err = execute(t, "", "config", "get", "gui.font_size")
	require.NoError(t, err)
	assert.Equal(t, "14", strings.TrimSpace(out))

	cfg, err := config.LoadFromPath(want)
	require.NoError(t, err)
	assert.Equal(t, config.ThemeLight, cfg.GUI.Theme)
}

func TestConfig_SetRejectsBadValues(t *testing.T) {
	withHome(t)

	_, err := execute(t, "", "config", "set", "gui.nope", "x")
	assert.Error(t, err)

	_, err = execute(t, "", "config", "set", "gui.theme", "purple")
	assert.Error(t, err)

	_, err = execute(t, "", "config", "set", "api.timeout", "soon")
	assert.Error(t, err)
}

func TestConfig_ShowAndModelFlag(t *testing.T) {
	withHome(t)

	out, err := execute(t, "", "--model", "qwen2.5:7b", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[api]")
	assert.Contains(t, out, `model = "qwen2.5:7b"`)
}

func TestExporterFor(t *testing.T) {
	for _, f := range []string{"", "text", "md", "markdown", "json"} {
		_, err := exporterFor(f)
		assert.NoError(t, err, f)
	}
	_, err := exporterFor("pdf")
	assert.Error(t, err)
}

// =============================================================================
// REPL
// =============================================================================

// scriptedInput returns lines in order, then io.EOF.
type scriptedInput struct {
	lines []string
}

func (s *scriptedInput) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func newTestREPL(lines ...string) (*repl, *bytes.Buffer) {
	gen := orchestrator.GeneratorFunc(func(ctx context.Context, req ollama.GenerateRequest, cb ollama.StreamCallback) error {
		cb(ollama.StreamChunk{Content: "<analyzing>"})
		cb(ollama.StreamChunk{Content: "check"})
		cb(ollama.StreamChunk{Content: "</analyzing>"})
		cb(ollama.StreamChunk{Content: "Reply text"})
		return nil
	})
	out := new(bytes.Buffer)
	return &repl{
		orch:   orchestrator.New(gen, nil, orchestrator.Options{}),
		in:     &scriptedInput{lines: lines},
		out:    out,
		sink:   newConsoleSink(out, config.ThemeDark),
		model:  "m",
		logger: zap.NewNop(),
	}, out
}

func TestREPL_Turn(t *testing.T) {
	r, out := newTestREPL("", "hello")
	require.NoError(t, r.run(context.Background()))

	s := out.String()
	assert.Contains(t, s, "Type /help for commands.")
	assert.Contains(t, s, "Analyzing:\ncheck")
	assert.Contains(t, s, "Reply text")
	assert.Equal(t, 3, r.orch.History().Len())
}

func TestREPL_Commands(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "chat.md")
	r, out := newTestREPL("hello", "/save "+logPath, "/clear", "/bogus", "/help", "/quit", "never sent")
	require.NoError(t, r.run(context.Background()))

	s := out.String()
	assert.Contains(t, s, "Chat log saved to "+logPath)
	assert.Contains(t, s, "Chat cleared.")
	assert.Contains(t, s, "Unknown command /bogus")
	assert.Contains(t, s, "/save <path>")
	assert.Equal(t, 0, r.orch.History().Len())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
