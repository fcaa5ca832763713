// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/aostock-tui/internal/agent"
	"github.com/jeranaias/aostock-tui/internal/model"
	"github.com/jeranaias/aostock-tui/internal/storage"
	"github.com/jeranaias/aostock-tui/internal/ui/components"
)

// clipboardWrite is replaced in tests.
var clipboardWrite = clipboard.WriteAll

// =============================================================================
// UPDATE LOOP
// =============================================================================

// Update handles all Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		m, cmd = m.handleKey(msg)

	case tea.MouseMsg:
		if m.handleClick(msg) {
			break
		}
		m.viewport, cmd = m.viewport.Update(msg)

	case spinner.TickMsg:
		if m.state == StateStreaming {
			m.spinner, cmd = m.spinner.Update(msg)
		}

	case threadLoadedMsg:
		m.handleThreadLoaded(msg)

	case threadsSyncedMsg:
		if msg.err != nil {
			m.logger.Debug("thread history unavailable", zap.Error(msg.err))
		}

	case runStartedMsg:
		cmd = m.handleRunStarted(msg)

	case runFailedMsg:
		cmd = m.handleRunFailed(msg)

	case runEventMsg:
		cmd = m.handleRunEvent(msg)

	case runDoneMsg:
		cmd = m.handleRunDone(msg)

	case copiedMsg:
		if msg.err != nil {
			m.notice = "Copy failed: " + msg.err.Error()
		} else {
			m.notice = fmt.Sprintf("Copied reply to clipboard (%d chars)", msg.size)
		}

	case ConfigReloadedMsg:
		m.handleConfigReloaded(msg)

	default:
		m.input, cmd = m.input.Update(msg)
	}

	m.refresh()
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

// handleKey routes a key press. Keys the mention controller consumes never
// reach the textinput.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.cancelMgr.cancel()
		return m, tea.Quit
	}

	if k, ok := mentionKey(msg); ok && !msg.Alt {
		res := m.mention.HandleKey(k)
		if res.Handled {
			if res.Changed {
				m.input.SetValue(res.Text)
				m.input.SetCursor(res.Cursor)
			}
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Stop):
		if m.state == StateStreaming {
			m.stop()
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.NewThread):
		m.newThread()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyLastReply()

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	return m.updateInput(msg)
}

// handleClick accepts a suggestion clicked in the popup. Any other button
// press dismisses the list; wheel events scroll without touching it.
func (m *Model) handleClick(msg tea.MouseMsg) bool {
	if msg.Action != tea.MouseActionPress {
		return false
	}
	switch msg.Button {
	case tea.MouseButtonLeft:
		s := m.mention.Session()
		if i, ok := m.popup.ItemAt(s, msg.X, msg.Y-m.popupTop()); ok {
			if sel, ok := m.mention.Select(i); ok {
				m.input.SetValue(sel.Text)
				m.input.SetCursor(sel.Cursor)
			}
			return true
		}
		m.mention.Dismiss()
	case tea.MouseButtonMiddle, tea.MouseButtonRight:
		m.mention.Dismiss()
	}
	return false
}

// popupTop is the screen row of the popup's first line.
func (m Model) popupTop() int {
	return m.header.Height() + heightOf(m.bannerView()) + m.viewport.Height
}

// updateInput applies an ordinary edit and reports it to the controller.
func (m Model) updateInput(msg tea.Msg) (Model, tea.Cmd) {
	before, pos := m.input.Value(), m.input.Position()

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	if m.input.Value() != before || m.input.Position() != pos {
		m.mention.TextChanged(m.input.Value(), m.input.Position())
	}
	return m, cmd
}

// =============================================================================
// ACTIONS
// =============================================================================

// submit sends the input as a human message. Mentioned personas are
// recorded on the message; a single mention routes the run to that persona.
func (m Model) submit() (Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.state == StateStreaming {
		return m, nil
	}

	var ids []string
	for _, e := range m.dir.Mentions(text) {
		ids = append(ids, e.ID)
	}
	human := model.NewHumanMessage(text, ids...)

	messages := append(m.conv.PendingToolResponses(), human)
	m.conv.AddMessage(human)
	m.conv.Suggestions = nil

	m.input.Reset()
	m.mention.Reset()

	m.runSeq++
	m.activeRun = m.runSeq
	m.state = StateStreaming
	m.lastErr = nil
	m.notice = ""
	m.viewport.GotoBottom()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)

	m.logger.Info("SUBMIT",
		zap.String("thread", m.threadID),
		zap.Strings("mentions", ids),
		zap.Int("messages", len(messages)))

	in := agent.RunInput{Messages: messages, Assistant: human.AssistantHint()}
	return m, tea.Batch(m.spinner.Tick, startRun(ctx, m.backend, m.activeRun, m.threadID, in))
}

// stop cancels the active run. Events still in flight are ignored.
func (m *Model) stop() {
	m.cancelMgr.cancel()
	m.activeRun = 0
	m.state = StateReady
	m.notice = "Stopped."
}

// newThread clears the conversation. The thread is created on the next
// submit.
func (m *Model) newThread() {
	if m.state == StateStreaming {
		m.stop()
	}
	m.conv = model.NewConversation()
	m.threadID = ""
	m.lastErr = nil
	m.state = StateReady
	m.notice = "New thread."
	m.input.Reset()
	m.mention.Reset()
}

func (m *Model) copyLastReply() tea.Cmd {
	last := m.conv.LastAI()
	if last == nil || strings.TrimSpace(last.Content) == "" {
		m.notice = "Nothing to copy yet."
		return nil
	}
	content := last.Content
	return func() tea.Msg {
		return copiedMsg{size: len([]rune(content)), err: clipboardWrite(content)}
	}
}

// =============================================================================
// RUN EVENTS
// =============================================================================

func (m *Model) handleRunStarted(msg runStartedMsg) tea.Cmd {
	if msg.runID != m.activeRun {
		return nil
	}
	if msg.created || m.threadID == "" {
		m.adoptThread(msg.threadID)
	}
	m.events = msg.events
	return waitForEvent(msg.runID, msg.events)
}

func (m *Model) handleRunFailed(msg runFailedMsg) tea.Cmd {
	if msg.created {
		m.adoptThread(msg.threadID)
	}
	if msg.runID != m.activeRun {
		return nil
	}
	m.cancelMgr.cancel()
	m.activeRun = 0
	if errors.Is(msg.err, context.Canceled) {
		m.state = StateReady
		return nil
	}
	m.fail(msg.err)
	return nil
}

func (m *Model) handleRunEvent(msg runEventMsg) tea.Cmd {
	if msg.runID != m.activeRun {
		return nil
	}

	ev := msg.event
	switch ev.Type {
	case agent.EventMetadata:
		m.logger.Debug("RUN_METADATA", zap.String("run", ev.RunID))
	case agent.EventValues:
		if ev.State != nil {
			m.conv.Replace(ev.State.Messages)
			m.conv.Suggestions = ev.State.Suggestions
		}
	case agent.EventError:
		m.fail(ev.Err)
	}
	return waitForEvent(msg.runID, m.events)
}

func (m *Model) handleRunDone(msg runDoneMsg) tea.Cmd {
	if msg.runID != m.activeRun {
		return nil
	}
	m.cancelMgr.cancel()
	m.activeRun = 0
	m.events = nil
	if m.state == StateStreaming {
		m.state = StateReady
	}
	return cacheThread(m.cache, m.logger, m.threadMeta())
}

func (m *Model) fail(err error) {
	m.state = StateError
	m.lastErr = err
	switch {
	case errors.Is(err, agent.ErrAuthFailed):
		m.notice = "Authentication failed. Check server.api_key."
	case errors.Is(err, agent.ErrUnavailable):
		m.notice = "Agent server unreachable at " + m.backend.BaseURL() + "."
	case errors.Is(err, agent.ErrRateLimited):
		m.notice = "Rate limited by the agent server. Try again shortly."
	case err != nil:
		m.notice = err.Error()
	}
	m.logger.Warn("RUN_ERROR", zap.Error(err))
}

func (m *Model) adoptThread(threadID string) {
	if threadID == "" || threadID == m.threadID {
		return
	}
	m.threadID = threadID
	m.conv.ThreadID = threadID
}

func (m *Model) threadMeta() storage.ThreadMeta {
	title := m.conv.GetTitle()
	if last := m.conv.LastHuman(); title == "" && last != nil {
		title = last.Preview(80)
	}
	return storage.ThreadMeta{
		ID:          m.threadID,
		AssistantID: m.backend.AssistantID(),
		Title:       title,
		CreatedAt:   m.conv.CreatedAt,
		UpdatedAt:   time.Now(),
	}
}

// =============================================================================
// THREAD AND CONFIG
// =============================================================================

func (m *Model) handleThreadLoaded(msg threadLoadedMsg) {
	if msg.err != nil {
		m.fail(fmt.Errorf("load thread %s: %w", m.threadID, msg.err))
		m.threadID = ""
		return
	}
	if msg.thread == nil {
		return
	}
	st := msg.thread.State()
	m.conv = model.NewConversation()
	m.conv.ThreadID = msg.thread.ThreadID
	m.conv.CreatedAt = msg.thread.CreatedAt
	m.conv.Replace(st.Messages)
	m.conv.Suggestions = st.Suggestions
	m.threadID = msg.thread.ThreadID
	m.viewport.GotoBottom()
}

func (m *Model) handleConfigReloaded(msg ConfigReloadedMsg) {
	if msg.Err != nil {
		m.notice = "Config reload failed: " + msg.Err.Error()
		return
	}
	if msg.Config == nil {
		return
	}
	m.cfg = msg.Config
	m.missing = msg.Config.Missing()
	m.popup.SetMaxVisible(msg.Config.UI.PopupMaxVisible)
	m.rebuildMarkdown()
	if m.newBackend != nil && m.state != StateStreaming {
		if b := m.newBackend(msg.Config); b != nil {
			m.backend = b
			m.header.SetServer(b.BaseURL())
		}
	}
	m.notice = "Config reloaded."
	m.logger.Info("CONFIG_RELOADED")
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.ready = true
	m.theme.SetSize(width, height)
	m.header.SetWidth(width)
	m.statusBar.SetWidth(width)
	m.popup.SetWidth(width)
	m.input.Width = width - promptWidth - 3
	m.viewport.Width = width
	m.rebuildMarkdown()
}

func (m *Model) rebuildMarkdown() {
	wrap := m.width - 4
	if wrap < 20 {
		wrap = 76
	}
	m.md = components.NewMarkdown(wrap, m.theme.IsDark, m.cfg.UI.RenderMarkdown)
	m.transcript = components.NewTranscript(m.theme, m.md, m.dir)
	m.transcript.SetWidth(m.width)
}

// refresh re-renders the transcript and sizes the viewport to the space
// left by the other sections.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom()

	m.header.SetThread(m.conv.GetTitle())
	m.statusBar.Messages = len(m.conv.Visible())
	m.statusBar.SetShortcuts(m.keys.shortcuts(m.state == StateStreaming)...)
	m.statusBar.Spinner = ""
	switch m.state {
	case StateStreaming:
		m.statusBar.SetStatus(components.StatusStreaming)
		m.statusBar.Spinner = m.spinner.View()
	case StateError:
		m.statusBar.SetStatus(components.StatusError)
	default:
		m.statusBar.SetStatus(components.StatusReady)
	}

	if m.ready {
		fixed := m.header.Height() + heightOf(m.bannerView()) + m.popup.Height(m.mention.Session()) +
			heightOf(m.inputView()) + heightOf(m.statusBar.View()) + heightOf(m.noticeView())
		h := m.height - fixed
		if h < 1 {
			h = 1
		}
		m.viewport.Height = h
	}

	m.viewport.SetContent(m.transcript.Render(m.conv))
	if atBottom {
		m.viewport.GotoBottom()
	}
}
