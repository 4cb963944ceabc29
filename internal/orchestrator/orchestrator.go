// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/reasonchat/internal/codeblock"
	"github.com/jeranaias/reasonchat/internal/conversation"
	"github.com/jeranaias/reasonchat/internal/ollama"
	"github.com/jeranaias/reasonchat/internal/section"
)

// DefaultTurnSuffix frames the prompt so the model answers as the assistant.
const DefaultTurnSuffix = "\nAssistant:"

// eventBuffer is the capacity of the channel returned by Send.
const eventBuffer = 64

// Generator streams a completion. *ollama.Client implements it.
type Generator interface {
	GenerateStream(ctx context.Context, req ollama.GenerateRequest, callback ollama.StreamCallback) error
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req ollama.GenerateRequest, callback ollama.StreamCallback) error

func (f GeneratorFunc) GenerateStream(ctx context.Context, req ollama.GenerateRequest, callback ollama.StreamCallback) error {
	return f(ctx, req, callback)
}

// Archive persists committed messages. Failures are logged and do not
// affect the turn.
type Archive interface {
	AppendMessages(ctx context.Context, sessionID string, msgs []conversation.Message) error
}

// Settings are the per-turn knobs. They may change between turns.
type Settings struct {
	// Model overrides the generator's default model when set.
	Model        string
	SystemPrompt string
	TurnSuffix   string
	Policy       section.Policy
	// Options are sampling parameters passed through to the model. Nil
	// keeps the model defaults.
	Options *ollama.Options
}

// Options configures an Orchestrator.
type Options struct {
	Settings
	Logger  *zap.Logger
	Archive Archive
}

// Orchestrator runs chat turns against a Generator.
type Orchestrator struct {
	gen     Generator
	history *conversation.History
	logger  *zap.Logger
	archive Archive

	mu       sync.RWMutex
	settings Settings

	inFlight atomic.Int32
}

// New creates an orchestrator. A nil history starts a fresh one.
func New(gen Generator, history *conversation.History, opts Options) *Orchestrator {
	if history == nil {
		history = conversation.NewHistory()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TurnSuffix == "" {
		opts.TurnSuffix = DefaultTurnSuffix
	}
	return &Orchestrator{
		gen:      gen,
		history:  history,
		logger:   logger.Named("orchestrator"),
		archive:  opts.Archive,
		settings: opts.Settings,
	}
}

// History returns the conversation history.
func (o *Orchestrator) History() *conversation.History {
	return o.history
}

// Settings returns the current settings.
func (o *Orchestrator) Settings() Settings {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.settings
}

// Configure replaces the settings used by subsequent turns.
func (o *Orchestrator) Configure(s Settings) {
	if s.TurnSuffix == "" {
		s.TurnSuffix = DefaultTurnSuffix
	}
	o.mu.Lock()
	o.settings = s
	o.mu.Unlock()
}

// Busy reports whether a turn is streaming.
func (o *Orchestrator) Busy() bool {
	return o.inFlight.Load() > 0
}

// Send starts a turn on a new goroutine. The returned channel is closed
// after the last event; the caller must drain it.
func (o *Orchestrator) Send(ctx context.Context, userMessage string) <-chan Event {
	ch := make(chan Event, eventBuffer)
	go func() {
		defer close(ch)
		_ = o.Run(ctx, userMessage, func(ev Event) { ch <- ev })
	}()
	return ch
}

// Stream runs a turn and delivers its events to the sinks from a second
// goroutine, returning once both are done.
func (o *Orchestrator) Stream(ctx context.Context, userMessage string, display DisplaySink, artifacts ArtifactSink) error {
	events := make(chan Event, eventBuffer)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(events)
		return o.Run(gctx, userMessage, func(ev Event) { events <- ev })
	})
	g.Go(func() error {
		for ev := range events {
			Deliver(ev, display, artifacts)
		}
		return nil
	})
	return g.Wait()
}

// Run executes a turn synchronously, calling emit for every event in
// order. It returns the transport error, if any, after it was reported
// through a NoticeEvent. An empty reply is not an error.
func (o *Orchestrator) Run(ctx context.Context, userMessage string, emit func(Event)) error {
	if n := o.inFlight.Add(1); n > 1 {
		o.logger.Warn("turn started while another is streaming", zap.Int32("in_flight", n))
	}
	defer o.inFlight.Add(-1)

	settings := o.Settings()
	turn := o.history.Stage(settings.SystemPrompt, userMessage)
	prompt := turn.Format() + settings.TurnSuffix

	classifier := section.New(settings.Policy)
	extractor := codeblock.NewExtractor(settings.Policy == section.PolicyBuffered)
	stats := ollama.NewStreamStats()
	var reply strings.Builder

	o.logger.Debug("turn started",
		zap.String("session", o.history.SessionID()),
		zap.Bool("seeded", turn.Seeded()),
		zap.Int("prompt_bytes", len(prompt)),
		zap.Stringer("policy", settings.Policy))

	err := o.gen.GenerateStream(ctx, ollama.GenerateRequest{
		Model:   settings.Model,
		Prompt:  prompt,
		Options: settings.Options,
	}, func(chunk ollama.StreamChunk) {
		stats.Record(chunk)
		if chunk.Content == "" {
			return
		}
		reply.WriteString(chunk.Content)
		for _, ev := range classifier.Feed(chunk.Content) {
			emit(SectionEvent{ev})
		}
		for _, a := range extractor.Feed(chunk.Content) {
			emit(ArtifactEvent{Artifact: a})
		}
	})

	if k, open := classifier.Current(); open {
		o.logger.Debug("closing unterminated section", zap.String("kind", string(k)))
	}
	for _, ev := range classifier.Close() {
		emit(SectionEvent{ev})
	}
	for _, a := range extractor.Flush() {
		emit(ArtifactEvent{Artifact: a})
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			o.logger.Info("turn cancelled", zap.Int("partial_bytes", reply.Len()))
			emit(NoticeEvent{Level: NoticeInfo, Message: MsgCancelled, Err: err})
			return err
		}
		o.logger.Error("turn failed", zap.Error(err), zap.Int("partial_bytes", reply.Len()))
		emit(NoticeEvent{Level: NoticeError, Message: describeError(err), Err: err})
		return err
	}

	response := reply.String()
	added, err := o.history.Commit(turn, response)
	switch {
	case errors.Is(err, conversation.ErrEmptyReply):
		o.logger.Warn("empty response from model")
		emit(NoticeEvent{Level: NoticeInfo, Message: MsgNoResponse})
		return nil
	case errors.Is(err, conversation.ErrStaleTurn):
		o.logger.Warn("discarding reply for cleared history")
		emit(NoticeEvent{Level: NoticeInfo, Message: MsgDiscarded})
		return nil
	case err != nil:
		o.logger.Error("commit failed", zap.Error(err))
		emit(NoticeEvent{Level: NoticeError, Message: err.Error(), Err: err})
		return err
	}

	if o.archive != nil {
		if aerr := o.archive.AppendMessages(ctx, o.history.SessionID(), added); aerr != nil {
			o.logger.Warn("archiving turn failed", zap.Error(aerr))
		}
	}

	o.logger.Debug("turn completed",
		zap.Int("reply_bytes", len(response)),
		zap.Int("completion_tokens", stats.CompletionTokens))
	emit(CompletedEvent{Response: response, Stats: stats, Added: added})
	return nil
}

// describeError turns a generator error into the line shown to the user.
func describeError(err error) string {
	switch {
	case ollama.IsNotRunning(err):
		return "Error in communication with Ollama: could not connect. Is `ollama serve` running?"
	case ollama.IsTimeout(err):
		return "Error in communication with Ollama: the request timed out."
	case ollama.IsModelNotFound(err):
		return "Error in communication with Ollama: " + err.Error() + ". Try `ollama pull <model>`."
	default:
		return "Error in communication with Ollama: " + err.Error()
	}
}
