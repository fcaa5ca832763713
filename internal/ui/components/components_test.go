// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/aostock-tui/internal/mention"
	"github.com/jeranaias/aostock-tui/internal/model"
	"github.com/jeranaias/aostock-tui/internal/ui/styles"
)

func testTheme(t *testing.T) *styles.Theme {
	t.Helper()
	th, err := styles.NewTheme(styles.ModeDark)
	require.NoError(t, err)
	th.SetSize(100, 40)
	return th
}

func TestVisibleRange(t *testing.T) {
	tests := []struct {
		selected, n, max int
		start, end       int
	}{
		{0, 3, 8, 0, 3},
		{0, 18, 8, 0, 8},
		{9, 18, 8, 5, 13},
		{17, 18, 8, 10, 18},
	}
	for _, tt := range tests {
		start, end := VisibleRange(tt.selected, tt.n, tt.max)
		assert.Equal(t, tt.start, start, "start for selected=%d", tt.selected)
		assert.Equal(t, tt.end, end, "end for selected=%d", tt.selected)
		assert.True(t, tt.selected >= start && tt.selected < end)
	}
}

func TestMentionPopup_View(t *testing.T) {
	theme := testTheme(t)
	p := NewMentionPopup(theme, 4)
	p.SetWidth(100)

	assert.Empty(t, p.View(mention.Session{}))
	assert.Equal(t, 0, p.Height(mention.Session{}))

	dir := mention.DefaultDirectory()
	c := mention.New(dir)
	s := c.TextChanged("@", 1)
	require.True(t, s.Active)

	view := p.View(s)
	assert.Contains(t, view, "Warren Buffett")
	assert.Contains(t, view, "@warren_buffett")
	assert.Contains(t, view, "more below")
	assert.NotContains(t, view, "more above")
	// Four rows, one "more" line and the top and bottom border.
	assert.Equal(t, 7, p.Height(s))
}

func TestMentionPopup_Anchor(t *testing.T) {
	theme := testTheme(t)
	p := NewMentionPopup(theme, 8)
	p.SetWidth(100)

	p.Anchor("ask @", 4, 2)
	assert.Equal(t, 6, p.Column())

	// Wide characters take two columns.
	p.Anchor("株価 @", 3, 0)
	assert.Equal(t, 5, p.Column())

	s := mention.New(mention.DefaultDirectory()).TextChanged("ask @ben", 8)
	require.True(t, s.Active)
	p.Anchor("ask @ben", s.TokenStart, 2)
	first := strings.Split(p.View(s), "\n")[0]
	assert.True(t, strings.HasPrefix(first, strings.Repeat(" ", 6)), "popup starts at the anchor column: %q", first)

	// Never overflows the right edge.
	p.SetWidth(40)
	p.Anchor(strings.Repeat("x", 60)+" @", 61, 0)
	for _, line := range strings.Split(p.View(s), "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 40)
	}
}

func TestMentionPopup_ItemAt(t *testing.T) {
	theme := testTheme(t)
	p := NewMentionPopup(theme, 4)
	p.SetWidth(100)

	c := mention.New(mention.DefaultDirectory())
	s := c.TextChanged("@", 1)
	require.True(t, s.Active)

	tests := []struct {
		x, y   int
		want   int
		wantOK bool
	}{
		{2, 0, 0, false}, // top border
		{2, 1, 0, true},
		{2, 4, 3, true},
		{2, 5, 0, false}, // "more below"
		{200, 1, 0, false},
	}
	for _, tt := range tests {
		got, ok := p.ItemAt(s, tt.x, tt.y)
		assert.Equal(t, tt.wantOK, ok, "cell (%d,%d)", tt.x, tt.y)
		if tt.wantOK {
			assert.Equal(t, tt.want, got, "cell (%d,%d)", tt.x, tt.y)
		}
	}

	for i := 0; i < 5; i++ {
		c.Navigate(mention.Next)
	}
	s = c.Session()
	require.Equal(t, 5, s.Selected)
	_, ok := p.ItemAt(s, 2, 1)
	assert.False(t, ok, "more above line")
	got, ok := p.ItemAt(s, 2, 2)
	require.True(t, ok)
	assert.Equal(t, 3, got)

	_, ok = p.ItemAt(mention.Session{}, 2, 1)
	assert.False(t, ok)
}

func TestHighlightMentions(t *testing.T) {
	dir := mention.DefaultDirectory()
	style := lipgloss.NewStyle().Bold(true)

	plain := "ask @nobody and email@ben_graham"
	assert.Equal(t, plain, HighlightMentions(plain, dir, style))

	got := HighlightMentions("ask @ben_graham now", dir, style)
	assert.Contains(t, got, "@ben_graham")
	assert.True(t, strings.HasPrefix(got, "ask "))
	assert.True(t, strings.HasSuffix(got, " now"))

	assert.Equal(t, "@x", HighlightMentions("@x", nil, style))
}

func TestTranscript_Render(t *testing.T) {
	theme := testTheme(t)
	tr := NewTranscript(theme, NewMarkdown(80, true, false), mention.DefaultDirectory())
	tr.SetWidth(80)

	conv := model.NewConversation()
	conv.AddMessage(model.NewHumanMessage("what would @ben_graham buy?", "ben_graham"))
	hidden := model.NewMessage(model.RoleAI, "internal plan")
	hidden.Hidden = true
	conv.AddMessage(hidden)
	reply := model.NewMessage(model.RoleAI, "Net-nets.")
	reply.Name = "ben_graham"
	conv.AddMessage(reply)
	conv.Suggestions = []string{"Screen for net-nets"}

	out := tr.Render(conv)
	assert.Contains(t, out, "You")
	assert.Contains(t, out, "Benjamin Graham")
	assert.Contains(t, out, "Net-nets.")
	assert.NotContains(t, out, "internal plan")
	assert.Contains(t, out, "1. ")
	assert.Contains(t, out, "Screen for net-nets")

	assert.Empty(t, tr.Render(nil))
}

func TestMarkdown_Disabled(t *testing.T) {
	md := NewMarkdown(80, true, false)
	assert.False(t, md.Enabled())
	assert.Equal(t, "**bold**", md.Render("**bold**"))

	var nilMD *Markdown
	assert.Equal(t, "x", nilMD.Render("x"))
}

func TestHeaderAndStatusBar(t *testing.T) {
	theme := testTheme(t)

	h := NewHeader(theme)
	h.SetWidth(80)
	h.SetThread("Analyze AAPL\nsecond line")
	h.SetServer("localhost:2024")
	view := h.View()
	assert.Contains(t, view, "aostock")
	assert.Contains(t, view, "Analyze AAPL")
	assert.NotContains(t, view, "second line")
	assert.Equal(t, 1, h.Height())

	sb := NewStatusBar(theme)
	sb.SetWidth(30)
	sb.SetStatus(StatusStreaming)
	sb.SetShortcuts(Shortcut{"esc", "stop"}, Shortcut{"ctrl+n", "new thread"}, Shortcut{"ctrl+c", "quit"})
	out := sb.View()
	assert.Contains(t, out, "Analyzing...")
	assert.Contains(t, out, "esc")
	assert.NotContains(t, out, "quit")
	assert.LessOrEqual(t, lipgloss.Width(out), 30)
}
