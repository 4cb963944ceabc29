// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/jeranaias/reasonchat/internal/config"
	"github.com/jeranaias/reasonchat/internal/export"
	"github.com/jeranaias/reasonchat/internal/orchestrator"
	"github.com/jeranaias/reasonchat/internal/ui/components"
	"github.com/jeranaias/reasonchat/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat screen.
type State int

const (
	// StateReady accepts input.
	StateReady State = iota
	// StateStreaming is waiting for the model.
	StateStreaming
	// StateConfirmClear asks before clearing the chat.
	StateConfirmClear
	// StateSavingLog prompts for the chat log path.
	StateSavingLog
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateStreaming:
		return "streaming"
	case StateConfirmClear:
		return "confirm-clear"
	case StateSavingLog:
		return "saving-log"
	default:
		return "unknown"
	}
}

// Lines shown by the chat screen.
const (
	WelcomeMessage = "reasonchat initialized. Let's engineer robust solutions!"
	ClearedMessage = "Chat cleared. Ready for a new software engineering discourse!"
	ConfirmClear   = "Are you sure you want to clear the chat history? (y/n)"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options configures the chat screen.
type Options struct {
	Orchestrator *orchestrator.Orchestrator
	Config       *config.Config
	// ConfigPath is where appearance changes are saved. Empty writes the
	// default TOML file.
	ConfigPath string
	// Reloads delivers configs re-read from disk by a config.Watcher.
	Reloads <-chan *config.Config
	Logger  *zap.Logger
	// WorkDir resolves relative save paths.
	WorkDir string
}

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	orch    *orchestrator.Orchestrator
	cfg     *config.Config
	cfgPath string
	reloads <-chan *config.Config
	logger  *zap.Logger
	workDir string

	theme    *styles.Theme
	keys     KeyMap
	help     help.Model
	viewport viewport.Model
	input    textinput.Model
	saveAs   textinput.Model
	spinner  spinner.Model
	markdown *glamour.TermRenderer

	transcript *Transcript
	throttle   *renderThrottle
	preview    *components.Preview

	state    State
	prior    State
	events   <-chan orchestrator.Event
	cancel   context.CancelFunc
	status   string
	showHelp bool

	width, height int
	ready         bool
}

// New creates the chat screen.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	in := textinput.New()
	in.Placeholder = "Ask about code, design or debugging..."
	in.Prompt = "> "
	in.CharLimit = 0
	in.Focus()

	saveAs := textinput.New()
	saveAs.Prompt = "Save chat log as: "
	saveAs.CharLimit = 512

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		orch:       opts.Orchestrator,
		cfg:        cfg,
		cfgPath:    opts.ConfigPath,
		reloads:    opts.Reloads,
		logger:     logger.Named("chat"),
		workDir:    opts.WorkDir,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		input:      in,
		saveAs:     saveAs,
		spinner:    sp,
		transcript: NewTranscript(),
		throttle:   newRenderThrottle(),
	}
	m.applyTheme(cfg.GUI.Theme)
	m.transcript.NotifyInfo(WelcomeMessage)
	return m
}

// Init starts the cursor blink and the config reload listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForReload(m.reloads))
}

// State returns the current screen state.
func (m Model) State() State {
	return m.state
}

// Transcript returns the display sink.
func (m Model) Transcript() *Transcript {
	return m.transcript
}

// Config returns the live configuration.
func (m Model) Config() *config.Config {
	return m.cfg
}

// Status returns the status line text.
func (m Model) Status() string {
	return m.status
}

// Preview returns the open artifact preview, or nil.
func (m Model) Preview() *components.Preview {
	return m.preview
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamEventMsg:
		return m.handleStreamEvent(msg)

	case StreamDoneMsg:
		return m.handleStreamDone()

	case spinner.TickMsg:
		if m.state != StateStreaming && m.prior != StateStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.throttle.Pending() > 0 && m.throttle.Ready() {
			m.refresh()
		}
		return m, cmd

	case ConfigReloadedMsg:
		m.applyConfig(msg.Config)
		return m, waitForReload(m.reloads)

	case LogSavedMsg:
		if msg.Err != nil {
			m.logger.Warn("saving chat log failed", zap.Error(msg.Err))
			m.status = "Save failed: " + msg.Err.Error()
		} else {
			m.status = "Chat log saved to " + msg.Path
		}
		return m, nil

	case ConfigSavedMsg:
		if msg.Err != nil {
			m.logger.Warn("saving config failed", zap.Error(msg.Err))
			m.status = "Could not save settings: " + msg.Err.Error()
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	if m.preview != nil {
		cmds = append(cmds, m.preview.Update(msg))
	}
	if m.state == StateSavingLog {
		m.saveAs, cmd = m.saveAs.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height
	m.help.Width = msg.Width
	m.input.Width = max(msg.Width-6, 10)
	m.saveAs.Width = max(msg.Width-len(m.saveAs.Prompt)-6, 10)

	vh := m.viewportHeight()
	if !m.ready {
		m.viewport = viewport.New(msg.Width, vh)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vh
	}
	m.rebuildMarkdown()
	if m.preview != nil {
		m.preview.SetSize(msg.Width, msg.Height)
	}
	m.refresh()
	return m, nil
}

// viewportHeight leaves room for the header, live panel, input and status.
func (m Model) viewportHeight() int {
	reserved := 1 + 3 + 1
	if m.showHelp {
		reserved += 5
	}
	if _, _, open := m.transcript.Live(); open {
		reserved += panelHeight(m.cfg.GUI.FontSize) + 3
	}
	return max(m.height-reserved, 3)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.preview != nil {
		cmd := m.preview.Update(msg)
		if m.preview.Closed() {
			m.preview = nil
			m.openNextArtifact()
		}
		return m, cmd
	}

	switch m.state {
	case StateConfirmClear:
		return m.handleConfirmKey(msg)
	case StateSavingLog:
		return m.handleSaveKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.state == StateStreaming && m.cancel != nil {
			m.cancel()
			m.status = "Stopping..."
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Clear):
		m.prior, m.state = m.state, StateConfirmClear
		m.status = ConfirmClear
		return m, nil

	case key.Matches(msg, m.keys.SaveLog):
		m.prior, m.state = m.state, StateSavingLog
		m.saveAs.SetValue(export.DefaultFilename("reasonchat", ".txt"))
		m.saveAs.CursorEnd()
		m.input.Blur()
		return m, m.saveAs.Focus()

	case key.Matches(msg, m.keys.Preview):
		if !m.openNextArtifact() {
			m.status = "No code blocks to preview"
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleTheme):
		name := m.cfg.ToggleTheme()
		m.applyTheme(name)
		m.refresh()
		m.status = "Theme: " + name
		return m, saveConfigCmd(m.cfg.Clone(), m.cfgPath)

	case key.Matches(msg, m.keys.FontUp), key.Matches(msg, m.keys.FontDown):
		delta := 1
		if key.Matches(msg, m.keys.FontDown) {
			delta = -1
		}
		size := m.cfg.AdjustFontSize(delta)
		m.viewport.Height = m.viewportHeight()
		m.refresh()
		m.status = "Panel size " + strconv.Itoa(size)
		return m, saveConfigCmd(m.cfg.Clone(), m.cfgPath)

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.viewport.Height = m.viewportHeight()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "y", "enter":
		m.state = m.prior
		m.clear()
	case "n", "esc":
		m.state = m.prior
		m.status = ""
	}
	return m, nil
}

func (m Model) handleSaveKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.state = m.prior
		m.saveAs.Blur()
		m.status = ""
		return m, m.input.Focus()

	case tea.KeyEnter:
		path := strings.TrimSpace(m.saveAs.Value())
		if path == "" {
			m.status = "Enter a file name"
			return m, nil
		}
		if !filepath.IsAbs(path) && m.workDir != "" {
			path = filepath.Join(m.workDir, path)
		}
		m.state = m.prior
		m.saveAs.Blur()
		m.status = "Saving..."
		log := m.transcript.Export("reasonchat", m.cfg.API.Model)
		return m, tea.Batch(saveLogCmd(log, path), m.input.Focus())
	}

	var cmd tea.Cmd
	m.saveAs, cmd = m.saveAs.Update(msg)
	return m, cmd
}

// submit starts a turn with the input line.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if m.state == StateStreaming {
		m.status = "Wait for the current reply or press esc to stop it"
		return m, nil
	}
	if m.orch == nil {
		m.transcript.NotifyError("No model connection configured")
		m.refresh()
		return m, nil
	}

	m.input.Reset()
	m.transcript.AddUser(text)
	m.status = ""

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.events = m.orch.Send(ctx, text)
	m.state = StateStreaming
	m.throttle.Reset()
	m.refresh()

	m.logger.Debug("turn submitted", zap.Int("chars", len(text)))
	return m, tea.Batch(waitForEvent(m.events), m.spinner.Tick)
}

func (m Model) handleStreamEvent(msg StreamEventMsg) (tea.Model, tea.Cmd) {
	orchestrator.Deliver(msg.Event, m.transcript, m.transcript)

	switch ev := msg.Event.(type) {
	case orchestrator.SectionEvent:
		m.viewport.Height = m.viewportHeight()
	case orchestrator.ArtifactEvent:
		m.status = "Code block ready: " + ev.Artifact.Title() + " (ctrl+o to preview)"
	case orchestrator.CompletedEvent:
		if ev.Stats != nil {
			m.status = ev.Stats.Format()
		}
	}

	m.throttle.Mark()
	if m.throttle.Ready() {
		m.refresh()
	}
	return m, waitForEvent(m.events)
}

func (m Model) handleStreamDone() (tea.Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.events = nil
	if m.state == StateStreaming {
		m.state = StateReady
	} else if m.prior == StateStreaming {
		m.prior = StateReady
	}
	if m.status == "Stopping..." {
		m.status = ""
	}

	m.transcript.Finish()
	m.viewport.Height = m.viewportHeight()
	m.throttle.Reset()
	m.refresh()

	if m.preview == nil && m.state == StateReady {
		m.openNextArtifact()
	}
	return m, nil
}

// clear resets the conversation and the display.
func (m *Model) clear() {
	if m.orch != nil {
		m.orch.History().Clear()
	}
	m.transcript.Reset()
	m.transcript.NotifyInfo(ClearedMessage)
	m.status = ""
	m.viewport.Height = m.viewportHeight()
	m.refresh()
	m.logger.Info("chat cleared")
}

// openNextArtifact shows the oldest queued code block.
func (m *Model) openNextArtifact() bool {
	a, ok := m.transcript.NextArtifact()
	if !ok {
		return false
	}
	p := components.NewPreview(a, m.theme, m.width, m.height)
	p.Dir = m.workDir
	m.preview = p
	return true
}

// applyConfig takes over appearance and turn settings from a reloaded
// config. The model connection itself is not rebuilt.
func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	m.cfg = cfg
	m.applyTheme(cfg.GUI.Theme)
	if m.orch != nil {
		settings, err := orchestrator.SettingsFromConfig(cfg)
		if err != nil {
			m.logger.Warn("ignoring reloaded turn settings", zap.Error(err))
		} else {
			m.orch.Configure(settings)
		}
	}
	m.viewport.Height = m.viewportHeight()
	m.refresh()
	m.status = "Configuration reloaded"
	m.logger.Info("configuration reloaded", zap.String("theme", cfg.GUI.Theme), zap.Int("font_size", cfg.GUI.FontSize))
}

func (m *Model) applyTheme(name string) {
	m.theme = styles.NewTheme(name)
	m.spinner.Style = m.theme.AssistantLabel
	m.input.PromptStyle = m.theme.UserLabel
	m.help.Styles.ShortKey = m.theme.StatusKey
	m.help.Styles.ShortDesc = m.theme.StatusDesc
	m.help.Styles.FullKey = m.theme.StatusKey
	m.help.Styles.FullDesc = m.theme.StatusDesc
	if m.preview != nil {
		m.preview.SetTheme(m.theme)
	}
	m.rebuildMarkdown()
}

func (m *Model) rebuildMarkdown() {
	if m.width == 0 {
		return
	}
	md, err := newMarkdown(m.theme, m.width)
	if err != nil {
		m.logger.Warn("markdown renderer unavailable", zap.Error(err))
		md = nil
	}
	m.markdown = md
}

func (m *Model) renderer() renderer {
	return renderer{theme: m.theme, width: m.width, markdown: m.markdown}
}

// refresh rebuilds the viewport content, keeping the view pinned to the
// bottom when it already was.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom() || m.viewport.TotalLineCount() <= m.viewport.Height
	m.viewport.SetContent(m.renderer().Render(m.transcript))
	if atBottom {
		m.viewport.GotoBottom()
	}
}
