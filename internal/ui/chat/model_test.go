// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/aostock-tui/internal/agent"
	"github.com/jeranaias/aostock-tui/internal/config"
	"github.com/jeranaias/aostock-tui/internal/mention"
	"github.com/jeranaias/aostock-tui/internal/model"
	"github.com/jeranaias/aostock-tui/internal/storage"
	"github.com/jeranaias/aostock-tui/internal/ui/styles"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeBackend struct {
	mu       sync.Mutex
	created  int
	runs     []agent.RunInput
	runCtx   context.Context
	threads  []agent.Thread
	thread   *agent.Thread
	stream   func(ctx context.Context, in agent.RunInput) (<-chan agent.StreamEvent, error)
	createFn func() (*agent.Thread, error)
}

func (f *fakeBackend) AssistantID() string { return "agent" }
func (f *fakeBackend) BaseURL() string     { return "http://agent.test" }

func (f *fakeBackend) CreateThread(ctx context.Context) (*agent.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	if f.createFn != nil {
		return f.createFn()
	}
	return &agent.Thread{ThreadID: "thread-1"}, nil
}

func (f *fakeBackend) GetThread(ctx context.Context, threadID string) (*agent.Thread, error) {
	if f.thread == nil || f.thread.ThreadID != threadID {
		return nil, agent.ErrThreadNotFound
	}
	return f.thread, nil
}

func (f *fakeBackend) SearchThreads(ctx context.Context, assistantID string, limit int) ([]agent.Thread, error) {
	return f.threads, nil
}

func (f *fakeBackend) StreamRun(ctx context.Context, threadID string, in agent.RunInput) (<-chan agent.StreamEvent, error) {
	f.mu.Lock()
	f.runs = append(f.runs, in)
	f.runCtx = ctx
	stream := f.stream
	f.mu.Unlock()
	if stream != nil {
		return stream(ctx, in)
	}
	return replyStream(in, "Buy below intrinsic value."), nil
}

// replyStream echoes the input and answers with one AI message.
func replyStream(in agent.RunInput, reply string) <-chan agent.StreamEvent {
	var msgs []*model.Message
	for _, m := range in.Messages {
		echo := *m
		echo.Mentions = nil
		msgs = append(msgs, &echo)
	}
	ai := model.NewMessage(model.RoleAI, reply)
	ai.Name = in.Assistant
	msgs = append(msgs, ai)

	ch := make(chan agent.StreamEvent, 3)
	ch <- agent.StreamEvent{Type: agent.EventMetadata, RunID: "run-1"}
	ch <- agent.StreamEvent{Type: agent.EventValues, State: &agent.State{
		Messages:    msgs,
		Suggestions: []string{"Compare with MSFT"},
	}}
	close(ch)
	return ch
}

type fakeCache struct {
	mu       sync.Mutex
	upserts  []storage.ThreadMeta
	replaced []storage.ThreadMeta
}

func (c *fakeCache) Upsert(ctx context.Context, t storage.ThreadMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upserts = append(c.upserts, t)
	return nil
}

func (c *fakeCache) Replace(ctx context.Context, assistantID string, threads []storage.ThreadMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaced = threads
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func completeConfig() *config.Config {
	cfg := config.Default()
	cfg.Data.APIKey = "data-key"
	cfg.Models.IntentRecognition.APIKey = "sk-intent"
	cfg.Models.Analysis.APIKey = "sk-analysis"
	return cfg
}

func newTestModel(t *testing.T, backend Backend, mutate ...func(*Options)) Model {
	t.Helper()
	theme, err := styles.NewTheme(styles.ModeDark)
	require.NoError(t, err)
	opts := Options{
		Config:    completeConfig(),
		Backend:   backend,
		Directory: mention.DefaultDirectory(),
		Theme:     theme,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	m, err := New(opts)
	require.NoError(t, err)
	return update(m, tea.WindowSizeMsg{Width: 80, Height: 24})
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

// drain executes cmd and feeds the chat's own messages back into the model
// until no work is left. Spinner and cursor ticks are dropped.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 100, "command loop did not settle")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case runStartedMsg, runEventMsg, runDoneMsg, runFailedMsg,
			threadLoadedMsg, threadsSyncedMsg, copiedMsg:
			next, c2 := m.Update(msg)
			m = next.(Model)
			queue = append(queue, c2)
		}
	}
	return m
}

// =============================================================================
// TESTS
// =============================================================================

func TestNew_RequiresBackend(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestMentionSelectionDoesNotSubmit(t *testing.T) {
	backend := &fakeBackend{}
	m := newTestModel(t, backend)

	m = typeText(m, "Ask @gra")
	s := m.Session()
	require.True(t, s.Active)
	require.Len(t, s.Candidates, 1)
	assert.Equal(t, "ben_graham", s.Candidates[0].ID)
	assert.Contains(t, m.View(), "Benjamin Graham")

	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Equal(t, "Ask @ben_graham ", m.InputValue())
	assert.False(t, m.Session().Active)
	assert.Empty(t, backend.runs)
	assert.False(t, m.IsStreaming())
}

func TestSubmit_RunsWithMentionHint(t *testing.T) {
	backend := &fakeBackend{}
	cache := &fakeCache{}
	m := newTestModel(t, backend, func(o *Options) { o.Cache = cache })

	m = typeText(m, "Ask @gra")
	m, _ = press(m, tea.KeyTab)
	m = typeText(m, "about AAPL")
	require.Equal(t, "Ask @ben_graham about AAPL", m.InputValue())

	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.True(t, m.IsStreaming())
	assert.Empty(t, m.InputValue())

	m = drain(t, m, cmd)

	assert.Equal(t, StateReady, m.State())
	assert.Equal(t, "thread-1", m.ThreadID())
	assert.Equal(t, 1, backend.created)

	require.Len(t, backend.runs, 1)
	run := backend.runs[0]
	assert.Equal(t, "ben_graham", run.Assistant)
	require.Len(t, run.Messages, 1)
	assert.Equal(t, []string{"ben_graham"}, run.Messages[0].Mentions)

	conv := m.Conversation()
	require.Len(t, conv.Visible(), 2)
	assert.Equal(t, []string{"ben_graham"}, conv.LastHuman().Mentions)
	assert.Equal(t, "Buy below intrinsic value.", conv.LastAI().Content)
	assert.Equal(t, []string{"Compare with MSFT"}, conv.Suggestions)
	assert.Contains(t, m.View(), "Compare with MSFT")

	require.Len(t, cache.upserts, 1)
	assert.Equal(t, "thread-1", cache.upserts[0].ID)
	assert.Equal(t, "agent", cache.upserts[0].AssistantID)

	// The second run reuses the thread.
	m = typeText(m, "and @warren_buffett vs @ben_graham")
	m, _ = press(m, tea.KeyEscape)
	m, cmd = press(m, tea.KeyEnter)
	m = drain(t, m, cmd)
	assert.Equal(t, 1, backend.created)
	require.Len(t, backend.runs, 2)
	// Two personas tagged, so no single-persona hint.
	assert.Equal(t, "", backend.runs[1].Assistant)
}

func TestSubmit_IgnoresBlankInput(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m = typeText(m, "   ")
	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.False(t, m.IsStreaming())
}

func TestEscapeClosesPopupAndBackspaceDeletesToken(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})

	m = typeText(m, "ping @ben_graham")
	require.True(t, m.Session().Active)

	m, _ = press(m, tea.KeyEscape)
	assert.False(t, m.Session().Active)
	assert.Equal(t, "ping @ben_graham", m.InputValue())

	m, _ = press(m, tea.KeyBackspace)
	assert.Equal(t, "ping ", m.InputValue())

	// Ordinary backspace once no token ends at the cursor.
	m, _ = press(m, tea.KeyBackspace)
	assert.Equal(t, "ping", m.InputValue())
}

func TestArrowKeysNavigatePopup(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m = typeText(m, "@")
	require.Equal(t, 0, m.Session().Selected)

	m, _ = press(m, tea.KeyDown)
	m, _ = press(m, tea.KeyDown)
	assert.Equal(t, 2, m.Session().Selected)

	m, _ = press(m, tea.KeyUp)
	assert.Equal(t, 1, m.Session().Selected)

	m, _ = press(m, tea.KeyEnter)
	assert.Equal(t, "@aswath_damodaran ", m.InputValue())
}

func TestStopCancelsRun(t *testing.T) {
	backend := &fakeBackend{
		stream: func(ctx context.Context, in agent.RunInput) (<-chan agent.StreamEvent, error) {
			ch := make(chan agent.StreamEvent)
			go func() {
				<-ctx.Done()
				close(ch)
			}()
			return ch, nil
		},
	}
	m := newTestModel(t, backend)
	m = typeText(m, "slow question")
	m, cmd := press(m, tea.KeyEnter)
	require.True(t, m.IsStreaming())

	// Start the run without waiting for events.
	var wait tea.Cmd
	for _, c := range cmd().(tea.BatchMsg) {
		if c == nil {
			continue
		}
		if started, ok := c().(runStartedMsg); ok {
			next, w := m.Update(started)
			m, wait = next.(Model), w
		}
	}
	require.NotNil(t, wait)

	m, _ = press(m, tea.KeyEscape)
	assert.False(t, m.IsStreaming())
	assert.Equal(t, "Stopped.", m.Notice())
	assert.Error(t, backend.runCtx.Err())

	// The closed stream of the stopped run is ignored.
	m = drain(t, m, wait)
	assert.Equal(t, StateReady, m.State())
}

func TestRunErrorEvent(t *testing.T) {
	backend := &fakeBackend{
		stream: func(ctx context.Context, in agent.RunInput) (<-chan agent.StreamEvent, error) {
			ch := make(chan agent.StreamEvent, 1)
			ch <- agent.StreamEvent{Type: agent.EventError, Err: errors.New("run failed: ticker not found")}
			close(ch)
			return ch, nil
		},
	}
	m := newTestModel(t, backend)
	m = typeText(m, "analyze ZZZZ")
	m, cmd := press(m, tea.KeyEnter)
	m = drain(t, m, cmd)

	assert.Equal(t, StateError, m.State())
	assert.Contains(t, m.Notice(), "ticker not found")
	assert.Contains(t, m.View(), "ticker not found")
}

func TestRunFailsToStart(t *testing.T) {
	backend := &fakeBackend{
		createFn: func() (*agent.Thread, error) {
			return nil, agent.ErrUnavailable
		},
	}
	m := newTestModel(t, backend)
	m = typeText(m, "hello")
	m, cmd := press(m, tea.KeyEnter)
	m = drain(t, m, cmd)

	assert.Equal(t, StateError, m.State())
	assert.Contains(t, m.Notice(), "unreachable")
	assert.Empty(t, m.ThreadID())
}

func TestNewThreadClearsConversation(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m = typeText(m, "hello")
	m, cmd := press(m, tea.KeyEnter)
	m = drain(t, m, cmd)
	require.Equal(t, "thread-1", m.ThreadID())

	m, _ = press(m, tea.KeyCtrlN)
	assert.Empty(t, m.ThreadID())
	assert.True(t, m.Conversation().IsEmpty())
	assert.Equal(t, "New thread.", m.Notice())
}

func TestCopyLastReply(t *testing.T) {
	var copied string
	orig := clipboardWrite
	clipboardWrite = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { clipboardWrite = orig })

	m := newTestModel(t, &fakeBackend{})

	m, cmd := press(m, tea.KeyCtrlY)
	assert.Nil(t, cmd)
	assert.Equal(t, "Nothing to copy yet.", m.Notice())

	m = typeText(m, "hello")
	m, cmd = press(m, tea.KeyEnter)
	m = drain(t, m, cmd)

	m, cmd = press(m, tea.KeyCtrlY)
	m = drain(t, m, cmd)
	assert.Equal(t, "Buy below intrinsic value.", copied)
	assert.Contains(t, m.Notice(), "Copied reply")
}

func TestLoadThreadOnInit(t *testing.T) {
	var thread agent.Thread
	require.NoError(t, json.Unmarshal([]byte(`{
		"thread_id": "t-42",
		"created_at": "2025-03-01T12:00:00Z",
		"updated_at": "2025-03-01T12:05:00Z",
		"values": {"messages": [
			{"id": "h1", "type": "human", "content": "Analyze NVDA"},
			{"id": "a1", "type": "ai", "content": "Strong momentum."}
		]}
	}`), &thread))

	backend := &fakeBackend{thread: &thread}
	cache := &fakeCache{}
	backend.threads = []agent.Thread{thread}
	m := newTestModel(t, backend, func(o *Options) {
		o.ThreadID = "t-42"
		o.Cache = cache
	})

	m = drain(t, m, m.Init())

	assert.Equal(t, "t-42", m.ThreadID())
	assert.Equal(t, "Strong momentum.", m.Conversation().LastAI().Content)
	require.Len(t, cache.replaced, 1)
	assert.Equal(t, "Analyze NVDA", cache.replaced[0].Title)
}

func TestLoadThreadMissing(t *testing.T) {
	m := newTestModel(t, &fakeBackend{}, func(o *Options) { o.ThreadID = "gone" })
	m = drain(t, m, m.Init())
	assert.Equal(t, StateError, m.State())
	assert.Empty(t, m.ThreadID())
}

func TestMissingSettingsBanner(t *testing.T) {
	rebuilt := 0
	m := newTestModel(t, &fakeBackend{}, func(o *Options) {
		o.Config = config.Default()
		o.NewBackend = func(*config.Config) Backend { rebuilt++; return &fakeBackend{} }
	})
	assert.Contains(t, m.View(), "Missing settings")
	assert.Contains(t, m.View(), "models.analysis.api_key")
	assert.NotContains(t, m.View(), "data.api_key")

	m = update(m, ConfigReloadedMsg{Config: completeConfig()})
	assert.NotContains(t, m.View(), "Missing settings")
	assert.Equal(t, 1, rebuilt)
	assert.Equal(t, "Config reloaded.", m.Notice())

	m = update(m, ConfigReloadedMsg{Err: errors.New("bad toml")})
	assert.Contains(t, m.Notice(), "bad toml")
}

func TestViewFillsWindow(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	assert.Equal(t, 24, lipgloss.Height(m.View()))

	m = typeText(m, "@")
	view := m.View()
	assert.Equal(t, 24, lipgloss.Height(view))
	assert.Contains(t, view, "more below")

	for _, line := range strings.Split(view, "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 80)
	}
}

func TestMouseClickDismissesPopup(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m = typeText(m, "@")
	require.True(t, m.Session().Active)

	m = update(m, tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.False(t, m.Session().Active)
	assert.Equal(t, "@", m.InputValue())
}

func TestMouseWheelKeepsPopup(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m = typeText(m, "@")
	require.True(t, m.Session().Active)

	for _, b := range []tea.MouseButton{tea.MouseButtonWheelDown, tea.MouseButtonWheelUp} {
		m = update(m, tea.MouseMsg{Action: tea.MouseActionPress, Button: b})
		assert.True(t, m.Session().Active, "button %v", b)
	}
	assert.Equal(t, "@", m.InputValue())
}

func TestMouseClickSelectsSuggestion(t *testing.T) {
	m := newTestModel(t, &fakeBackend{})
	m = typeText(m, "ask @")
	s := m.Session()
	require.True(t, s.Active)
	require.Greater(t, len(s.Candidates), 1)

	// Second row of the list: one line below the top border and first row.
	top := m.popupTop()
	m = update(m, tea.MouseMsg{
		Action: tea.MouseActionPress,
		Button: tea.MouseButtonLeft,
		X:      m.popup.Column() + 2,
		Y:      top + 2,
	})
	assert.False(t, m.Session().Active)
	assert.Equal(t, "ask "+s.Candidates[1].Token()+" ", m.InputValue())
}
