// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/aostock-tui/internal/agent"
	"github.com/jeranaias/aostock-tui/internal/config"
	"github.com/jeranaias/aostock-tui/internal/mention"
	"github.com/jeranaias/aostock-tui/internal/model"
	"github.com/jeranaias/aostock-tui/internal/storage"
	"github.com/jeranaias/aostock-tui/internal/ui/components"
	"github.com/jeranaias/aostock-tui/internal/ui/styles"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Backend is the part of the agent client the chat view uses.
type Backend interface {
	AssistantID() string
	BaseURL() string
	CreateThread(ctx context.Context) (*agent.Thread, error)
	GetThread(ctx context.Context, threadID string) (*agent.Thread, error)
	SearchThreads(ctx context.Context, assistantID string, limit int) ([]agent.Thread, error)
	StreamRun(ctx context.Context, threadID string, in agent.RunInput) (<-chan agent.StreamEvent, error)
}

// ThreadCache mirrors thread summaries locally.
type ThreadCache interface {
	Upsert(ctx context.Context, t storage.ThreadMeta) error
	Replace(ctx context.Context, assistantID string, threads []storage.ThreadMeta) error
}

// Options configures a Model.
type Options struct {
	Config    *config.Config
	Backend   Backend
	Directory *mention.Directory
	Theme     *styles.Theme

	// Optional
	Cache    ThreadCache
	Logger   *zap.Logger
	ThreadID string
	// NewBackend rebuilds the backend after a config reload. Nil keeps the
	// current backend.
	NewBackend func(*config.Config) Backend
}

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // A run is in progress
	StateError                  // The last run failed
)

// promptWidth is the display width of the input prompt plus the input
// container's left padding.
const promptWidth = 3

const requestTimeout = 30 * time.Second

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state State

	cfg        *config.Config
	backend    Backend
	newBackend func(*config.Config) Backend
	cache      ThreadCache
	logger     *zap.Logger

	// Styling and components
	theme      *styles.Theme
	md         *components.Markdown
	transcript *components.Transcript
	header     *components.Header
	statusBar  *components.StatusBar
	popup      *components.MentionPopup

	// Mentions
	dir     *mention.Directory
	mention *mention.Controller

	// Bubbles
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	keys     KeyMap

	// Conversation
	conv     *model.Conversation
	threadID string

	// Runs
	cancelMgr *cancelManager
	runSeq    int
	activeRun int
	events    <-chan agent.StreamEvent

	// Status
	notice  string
	lastErr error
	missing []string

	// Dimensions
	width  int
	height int
	ready  bool
}

// popupAnchor positions the popup when the controller opens a session.
type popupAnchor struct {
	popup *components.MentionPopup
	text  func() string
}

func (a *popupAnchor) Anchor(tokenStart int) {
	if a.text != nil {
		a.popup.Anchor(a.text(), tokenStart, promptWidth)
	}
}

// New creates a chat model.
func New(opts Options) (Model, error) {
	if opts.Backend == nil {
		return Model{}, errors.New("chat: backend is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	theme := opts.Theme
	if theme == nil {
		var err error
		if theme, err = styles.NewTheme(cfg.UI.Theme); err != nil {
			return Model{}, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about a stock, or type @ to pick an analyst..."
	ti.CharLimit = 4096
	ti.PromptStyle = theme.InputPrompt
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	popup := components.NewMentionPopup(theme, cfg.UI.PopupMaxVisible)
	anchor := &popupAnchor{popup: popup}
	ctrl := mention.New(opts.Directory,
		mention.WithAnchor(anchor),
		mention.WithOnSelect(func(m mention.Mentionable) {
			logger.Debug("MENTION_SELECTED", zap.String("id", m.ID))
		}))
	anchor.text = ctrl.Text

	md := components.NewMarkdown(76, theme.IsDark, cfg.UI.RenderMarkdown)
	header := components.NewHeader(theme)
	header.SetServer(opts.Backend.BaseURL())

	m := Model{
		state:      StateReady,
		cfg:        cfg,
		backend:    opts.Backend,
		newBackend: opts.NewBackend,
		cache:      opts.Cache,
		logger:     logger,
		theme:      theme,
		md:         md,
		transcript: components.NewTranscript(theme, md, opts.Directory),
		header:     header,
		statusBar:  components.NewStatusBar(theme),
		popup:      popup,
		dir:        opts.Directory,
		mention:    ctrl,
		input:      ti,
		viewport:   viewport.New(80, 20),
		spinner:    sp,
		keys:       DefaultKeyMap(),
		conv:       model.NewConversation(),
		threadID:   opts.ThreadID,
		cancelMgr:  newCancelManager(),
		missing:    cfg.Missing(),
	}
	m.statusBar.SetShortcuts(m.keys.shortcuts(false)...)
	return m, nil
}

// Init starts the cursor blink and loads the thread and history.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.threadID != "" {
		cmds = append(cmds, loadThread(m.backend, m.threadID))
	}
	if m.cache != nil {
		cmds = append(cmds, syncThreads(m.backend, m.cache, m.logger))
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// State returns the chat state.
func (m Model) State() State { return m.state }

// Conversation returns the displayed conversation.
func (m Model) Conversation() *model.Conversation { return m.conv }

// ThreadID returns the current thread, or "" before the first run.
func (m Model) ThreadID() string { return m.threadID }

// InputValue returns the text in the input line.
func (m Model) InputValue() string { return m.input.Value() }

// Session returns the mention suggestion state.
func (m Model) Session() mention.Session { return m.mention.Session() }

// Notice returns the last status notice.
func (m Model) Notice() string { return m.notice }

// IsStreaming reports whether a run is in progress.
func (m Model) IsStreaming() bool { return m.state == StateStreaming }
