// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeranaias/reasonchat/internal/codeblock"
	"github.com/jeranaias/reasonchat/internal/config"
	"github.com/jeranaias/reasonchat/internal/conversation"
	"github.com/jeranaias/reasonchat/internal/ollama"
	"github.com/jeranaias/reasonchat/internal/section"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// scripted replays fixed chunks and records the last request.
type scripted struct {
	chunks []string
	err    error

	mu  sync.Mutex
	req ollama.GenerateRequest
}

func (s *scripted) GenerateStream(ctx context.Context, req ollama.GenerateRequest, cb ollama.StreamCallback) error {
	s.mu.Lock()
	s.req = req
	s.mu.Unlock()
	for _, c := range s.chunks {
		cb(ollama.StreamChunk{Content: c})
	}
	if s.err != nil {
		return s.err
	}
	cb(ollama.StreamChunk{Done: true, CompletionTokens: len(s.chunks), EvalDuration: time.Second})
	return nil
}

func (s *scripted) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.req.Prompt
}

// recorder implements every sink and keeps a readable log.
type recorder struct {
	mu        sync.Mutex
	log       []string
	errors    []string
	infos     []string
	artifacts []codeblock.Artifact
	completed *CompletedEvent
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.log = append(r.log, s)
	r.mu.Unlock()
}

func (r *recorder) AppendPlain(text string)     { r.add("plain:" + text) }
func (r *recorder) BeginSection(k section.Kind) { r.add("begin:" + string(k)) }
func (r *recorder) AppendToSection(k section.Kind, text string) {
	r.add("append:" + string(k) + ":" + text)
}
func (r *recorder) EndSection(k section.Kind, content string, recovered bool) {
	if recovered {
		r.add("end!:" + string(k) + ":" + content)
		return
	}
	r.add("end:" + string(k) + ":" + content)
}
func (r *recorder) NotifyError(m string) {
	r.mu.Lock()
	r.errors = append(r.errors, m)
	r.mu.Unlock()
}
func (r *recorder) NotifyInfo(m string) {
	r.mu.Lock()
	r.infos = append(r.infos, m)
	r.mu.Unlock()
}
func (r *recorder) OnArtifact(a codeblock.Artifact) {
	r.mu.Lock()
	r.artifacts = append(r.artifacts, a)
	r.mu.Unlock()
}
func (r *recorder) Complete(ev CompletedEvent) {
	r.mu.Lock()
	r.completed = &ev
	r.mu.Unlock()
}

func newTestOrchestrator(gen Generator) *Orchestrator {
	return New(gen, nil, Options{Settings: Settings{SystemPrompt: "S"}})
}

func drain(ch <-chan Event) []Event {
	var out []Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func notices(events []Event, level NoticeLevel) []NoticeEvent {
	var out []NoticeEvent
	for _, ev := range events {
		if n, ok := ev.(NoticeEvent); ok && n.Level == level {
			out = append(out, n)
		}
	}
	return out
}

func countArtifacts(events []Event) int {
	n := 0
	for _, ev := range events {
		if _, ok := ev.(ArtifactEvent); ok {
			n++
		}
	}
	return n
}

// =============================================================================
// TURN TESTS
// =============================================================================

func TestSend_CommitsTurnAndFormatsPrompt(t *testing.T) {
	defer goleak.VerifyNone(t)

	gen := &scripted{chunks: []string{"Hello", " there"}}
	o := newTestOrchestrator(gen)

	events := drain(o.Send(context.Background(), "hi"))

	assert.Equal(t, "System: S\nHuman: hi\nAssistant:", gen.lastPrompt())

	require.NotEmpty(t, events)
	done, ok := events[len(events)-1].(CompletedEvent)
	require.True(t, ok, "last event should be CompletedEvent, got %T", events[len(events)-1])
	assert.Equal(t, "Hello there", done.Response)
	assert.Len(t, done.Added, 3)

	assert.Equal(t, "System: S\nHuman: hi\nAssistant: Hello there", o.History().Format())
	assert.False(t, o.Busy())
}

func TestSend_SecondTurnDoesNotReseed(t *testing.T) {
	gen := &scripted{chunks: []string{"A1"}}
	o := newTestOrchestrator(gen)

	drain(o.Send(context.Background(), "U1"))
	gen.chunks = []string{"A2"}
	drain(o.Send(context.Background(), "U2"))

	assert.Equal(t, "System: S\nHuman: U1\nAssistant: A1\nHuman: U2\nAssistant:", gen.lastPrompt())
	assert.Equal(t, 5, o.History().Len())
}

func TestSend_ConnectionErrorLeavesHistoryUnchanged(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL + "/api/generate"
	srv.Close()

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{Endpoint: endpoint, Timeout: time.Second})
	o := newTestOrchestrator(client)

	events := drain(o.Send(context.Background(), "hi"))

	errs := notices(events, NoticeError)
	require.Len(t, errs, 1)
	assert.True(t, ollama.IsNotRunning(errs[0].Err))
	assert.Contains(t, errs[0].Message, "Error in communication with Ollama")
	assert.Empty(t, notices(events, NoticeInfo))
	assert.Zero(t, countArtifacts(events))
	assert.True(t, o.History().IsEmpty())
}

func TestSend_EmptyStreamLeavesHistoryUnchanged(t *testing.T) {
	o := newTestOrchestrator(&scripted{})

	events := drain(o.Send(context.Background(), "hi"))

	infos := notices(events, NoticeInfo)
	require.Len(t, infos, 1)
	assert.Equal(t, MsgNoResponse, infos[0].Message)
	assert.Empty(t, notices(events, NoticeError))
	assert.True(t, o.History().IsEmpty())
	for _, ev := range events {
		_, completed := ev.(CompletedEvent)
		assert.False(t, completed)
	}
}

func TestSend_MidStreamFailureKeepsPartialDisplayOnly(t *testing.T) {
	gen := &scripted{
		chunks: []string{"<thinking>", "half a thought"},
		err:    &ollama.ClientError{Type: ollama.ErrTypeConnection, Message: "stream interrupted"},
	}
	o := newTestOrchestrator(gen)
	rec := &recorder{}

	for ev := range o.Send(context.Background(), "hi") {
		Deliver(ev, rec, rec)
	}

	assert.Equal(t, []string{
		"begin:thinking",
		"append:thinking:half a thought",
		"end!:thinking:half a thought",
	}, rec.log)
	require.Len(t, rec.errors, 1)
	assert.Contains(t, rec.errors[0], "stream interrupted")
	assert.True(t, o.History().IsEmpty())
	assert.Nil(t, rec.completed)
}

func TestSend_RoutesSectionsAndArtifacts(t *testing.T) {
	gen := &scripted{chunks: []string{
		"<thinking>",
		"plan",
		"<implementing>",
		"```go\n// Filename: main.go\npackage main\n```",
		"</implementing>",
		"done",
	}}
	o := newTestOrchestrator(gen)
	rec := &recorder{}

	for ev := range o.Send(context.Background(), "build it") {
		Deliver(ev, rec, rec)
	}

	assert.Equal(t, []string{
		"begin:thinking",
		"append:thinking:plan",
		"end:thinking:plan",
		"begin:implementing",
		"append:implementing:```go\n// Filename: main.go\npackage main\n```",
		"end:implementing:```go\n// Filename: main.go\npackage main\n```",
		"plain:done",
	}, rec.log)

	require.Len(t, rec.artifacts, 1)
	assert.Equal(t, "go", rec.artifacts[0].Language)
	assert.Equal(t, "main.go", rec.artifacts[0].Filename)

	require.NotNil(t, rec.completed)
	assert.Equal(t, 6, rec.completed.Stats.Chunks)
}

func TestSend_BufferedPolicyFindsSplitMarkers(t *testing.T) {
	gen := &scripted{chunks: []string{"<think", "ing>deep</thin", "king>ok"}}
	o := New(gen, nil, Options{Settings: Settings{SystemPrompt: "S", Policy: section.PolicyBuffered}})
	rec := &recorder{}

	for ev := range o.Send(context.Background(), "q") {
		Deliver(ev, rec, rec)
	}

	assert.Equal(t, []string{
		"begin:thinking",
		"append:thinking:deep",
		"end:thinking:deep",
		"plain:ok",
	}, rec.log)
	assert.Equal(t, "<thinking>deep</thinking>ok", rec.completed.Response)
}

func TestSend_ClearDuringStreamDiscardsReply(t *testing.T) {
	o := newTestOrchestrator(nil)
	o.gen = GeneratorFunc(func(ctx context.Context, req ollama.GenerateRequest, cb ollama.StreamCallback) error {
		cb(ollama.StreamChunk{Content: "late"})
		o.History().Clear()
		return nil
	})

	events := drain(o.Send(context.Background(), "hi"))

	infos := notices(events, NoticeInfo)
	require.Len(t, infos, 1)
	assert.Equal(t, MsgDiscarded, infos[0].Message)
	assert.True(t, o.History().IsEmpty())
}

func TestSend_CancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	o := newTestOrchestrator(GeneratorFunc(func(ctx context.Context, req ollama.GenerateRequest, cb ollama.StreamCallback) error {
		<-ctx.Done()
		return ctx.Err()
	}))
	ctx, cancel := context.WithCancel(context.Background())
	ch := o.Send(ctx, "hi")
	cancel()

	events := drain(ch)
	infos := notices(events, NoticeInfo)
	require.Len(t, infos, 1)
	assert.Equal(t, MsgCancelled, infos[0].Message)
	assert.True(t, o.History().IsEmpty())
}

// =============================================================================
// ARCHIVE / SETTINGS / STREAM
// =============================================================================

type memArchive struct {
	session string
	msgs    []conversation.Message
	err     error
}

func (a *memArchive) AppendMessages(ctx context.Context, id string, msgs []conversation.Message) error {
	a.session = id
	a.msgs = append(a.msgs, msgs...)
	return a.err
}

func TestRun_ArchivesCommittedMessages(t *testing.T) {
	arch := &memArchive{}
	o := New(&scripted{chunks: []string{"A"}}, nil, Options{Settings: Settings{SystemPrompt: "S"}, Archive: arch})

	require.NoError(t, o.Run(context.Background(), "U", func(Event) {}))

	assert.Equal(t, o.History().SessionID(), arch.session)
	require.Len(t, arch.msgs, 3)
	assert.Equal(t, conversation.RoleAssistant, arch.msgs[2].Role)
}

func TestRun_ArchiveFailureDoesNotFailTurn(t *testing.T) {
	arch := &memArchive{err: errors.New("disk full")}
	o := New(&scripted{chunks: []string{"A"}}, nil, Options{Archive: arch})

	var completed bool
	err := o.Run(context.Background(), "U", func(ev Event) {
		if _, ok := ev.(CompletedEvent); ok {
			completed = true
		}
	})
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, 3, o.History().Len())
}

func TestConfigure_AppliesToNextTurn(t *testing.T) {
	gen := &scripted{chunks: []string{"A"}}
	o := newTestOrchestrator(gen)
	o.Configure(Settings{SystemPrompt: "New", TurnSuffix: "\nBot:", Model: "m2"})

	require.NoError(t, o.Run(context.Background(), "U", func(Event) {}))

	assert.Equal(t, "System: New\nHuman: U\nBot:", gen.lastPrompt())
	assert.Equal(t, "m2", gen.req.Model)
	assert.Equal(t, DefaultTurnSuffix, New(gen, nil, Options{}).Settings().TurnSuffix)
}

func TestStream_DeliversAndReturnsError(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := &ollama.ClientError{Type: ollama.ErrTypeTimeout, Message: "request timed out"}
	o := newTestOrchestrator(&scripted{chunks: []string{"partial"}, err: boom})
	rec := &recorder{}

	err := o.Stream(context.Background(), "hi", rec, nil)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"plain:partial"}, rec.log)
	require.Len(t, rec.errors, 1)
	assert.Contains(t, rec.errors[0], "timed out")
}

func TestStream_Success(t *testing.T) {
	defer goleak.VerifyNone(t)

	o := newTestOrchestrator(&scripted{chunks: []string{"a", "b"}})
	rec := &recorder{}

	require.NoError(t, o.Stream(context.Background(), "hi", rec, rec))
	assert.Equal(t, []string{"plain:a", "plain:b"}, rec.log)
	require.NotNil(t, rec.completed)
	assert.Equal(t, "ab", rec.completed.Response)
}

func TestRun_ConcurrentTurnsAreLogged(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	o := newTestOrchestrator(GeneratorFunc(func(ctx context.Context, req ollama.GenerateRequest, cb ollama.StreamCallback) error {
		started <- struct{}{}
		<-release
		cb(ollama.StreamChunk{Content: "x"})
		return nil
	}))

	first := o.Send(context.Background(), "one")
	<-started
	assert.True(t, o.Busy())
	second := o.Send(context.Background(), "two")
	<-started
	close(release)
	drain(first)
	drain(second)

	assert.False(t, o.Busy())
}

// =============================================================================
// DELIVER
// =============================================================================

func TestDeliver_NilArtifactSink(t *testing.T) {
	rec := &recorder{}
	assert.NotPanics(t, func() {
		Deliver(ArtifactEvent{Artifact: codeblock.Artifact{Body: "x"}}, rec, nil)
	})
	assert.Empty(t, rec.artifacts)
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not running", ollama.ErrNotRunning, "could not connect"},
		{"timeout", ollama.ErrTimeout, "timed out"},
		{"model", &ollama.ClientError{Type: ollama.ErrTypeModelNotFound, Message: "model 'x' not found"}, "ollama pull"},
		{"other", errors.New("weird"), "weird"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, describeError(tc.err), tc.want)
		})
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Stream.BoundaryPolicy = config.PolicyBuffered
	cfg.API.Model = "llama3"

	s, err := SettingsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "llama3", s.Model)
	assert.Equal(t, section.PolicyBuffered, s.Policy)
	assert.Equal(t, config.DefaultSystemPrompt, s.SystemPrompt)
	assert.Equal(t, DefaultTurnSuffix, s.TurnSuffix)

	cfg.Stream.BoundaryPolicy = "sometimes"
	_, err = SettingsFromConfig(cfg)
	assert.Error(t, err)
}

func TestSettingsFromConfig_SavedYAMLKeepsTurnFraming(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := config.Default()
	cfg.ToggleTheme()
	require.NoError(t, config.Save(cfg, path))

	loaded, err := config.LoadFromPath(path)
	require.NoError(t, err)
	s, err := SettingsFromConfig(loaded)
	require.NoError(t, err)
	require.Equal(t, DefaultTurnSuffix, s.TurnSuffix)

	s.SystemPrompt = "S"
	gen := &scripted{chunks: []string{"ok"}}
	o := New(gen, nil, Options{Settings: s})
	require.NoError(t, o.Run(context.Background(), "hi", func(Event) {}))
	assert.Equal(t, "System: S\nHuman: hi\nAssistant:", gen.lastPrompt())
}

func TestSettingsFromConfig_ForwardsGenerateOptions(t *testing.T) {
	cfg := config.Default()
	s, err := SettingsFromConfig(cfg)
	require.NoError(t, err)
	assert.Nil(t, s.Options)

	require.NoError(t, cfg.Set("generate.temperature", "0.3"))
	require.NoError(t, cfg.Set("generate.num_ctx", "8192"))
	require.NoError(t, cfg.Set("generate.stop", "Human:, User:"))
	s, err = SettingsFromConfig(cfg)
	require.NoError(t, err)
	require.NotNil(t, s.Options)

	gen := &scripted{chunks: []string{"ok"}}
	o := New(gen, nil, Options{Settings: s})
	require.NoError(t, o.Run(context.Background(), "hi", func(Event) {}))

	gen.mu.Lock()
	defer gen.mu.Unlock()
	require.NotNil(t, gen.req.Options)
	assert.Equal(t, ollama.Options{Temperature: 0.3, NumCtx: 8192, Stop: []string{"Human:", "User:"}}, *gen.req.Options)
}
