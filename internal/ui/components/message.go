// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aostock-tui/internal/mention"
	"github.com/jeranaias/aostock-tui/internal/model"
	"github.com/jeranaias/aostock-tui/internal/ui/styles"
)

// =============================================================================
// MARKDOWN
// =============================================================================

// Markdown renders agent replies with glamour. A disabled or failed
// renderer returns its input unchanged.
type Markdown struct {
	renderer *glamour.TermRenderer
	width    int
}

// NewMarkdown creates a renderer that wraps at width. enabled false, or a
// renderer that cannot be built, yields plain text output.
func NewMarkdown(width int, dark, enabled bool) *Markdown {
	md := &Markdown{width: width}
	if !enabled {
		return md
	}
	style := "light"
	if dark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		md.renderer = r
	}
	return md
}

// Enabled reports whether markdown is rendered.
func (md *Markdown) Enabled() bool {
	return md != nil && md.renderer != nil
}

// Width returns the wrap width.
func (md *Markdown) Width() int {
	if md == nil {
		return 0
	}
	return md.width
}

// Render renders content, falling back to the raw text on error.
func (md *Markdown) Render(content string) string {
	if !md.Enabled() {
		return content
	}
	out, err := md.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript renders the visible messages of a conversation.
type Transcript struct {
	theme *styles.Theme
	md    *Markdown
	dir   *mention.Directory
	width int
}

// NewTranscript creates a transcript renderer. dir is used to highlight
// mention tokens in human messages and to label persona replies.
func NewTranscript(theme *styles.Theme, md *Markdown, dir *mention.Directory) *Transcript {
	return &Transcript{theme: theme, md: md, dir: dir, width: 80}
}

// SetWidth sets the wrap width.
func (t *Transcript) SetWidth(width int) {
	t.width = width
}

// Render renders every visible message followed by the server's follow-up
// suggestions.
func (t *Transcript) Render(conv *model.Conversation) string {
	if conv == nil {
		return ""
	}
	var blocks []string
	for _, msg := range conv.Visible() {
		if out := t.RenderMessage(msg); out != "" {
			blocks = append(blocks, out)
		}
	}
	if len(conv.Suggestions) > 0 {
		blocks = append(blocks, t.renderSuggestions(conv.Suggestions))
	}
	return strings.Join(blocks, "\n\n")
}

// RenderMessage renders a single message.
func (t *Transcript) RenderMessage(msg *model.Message) string {
	if msg == nil || !msg.Visible() {
		return ""
	}
	wrap := t.width - 2
	if wrap < 20 {
		wrap = 20
	}

	switch msg.Role {
	case model.RoleHuman:
		label := t.theme.HumanLabel.Render(msg.Role.DisplayName())
		body := t.theme.HumanText.Width(wrap).Render(HighlightMentions(msg.Content, t.dir, t.theme.MentionTag))
		return label + "\n" + body

	case model.RoleAI:
		label := t.theme.AILabel.Render(Speaker(msg, t.dir))
		return label + "\n" + t.theme.AIText.Render(t.md.Render(msg.Content))

	case model.RoleSystem:
		return t.theme.SystemText.Width(wrap).Render(msg.Content)
	}
	return ""
}

// Speaker labels a message with the persona that wrote it when the server
// names one that is in dir.
func Speaker(msg *model.Message, dir *mention.Directory) string {
	if msg.Name != "" {
		if m, ok := dir.Lookup(msg.Name); ok && m.DisplayName != "" {
			return m.DisplayName
		}
		return msg.Name
	}
	return msg.Role.DisplayName()
}

func (t *Transcript) renderSuggestions(suggestions []string) string {
	lines := make([]string, 0, len(suggestions)+1)
	lines = append(lines, t.theme.Thinking.Render("Suggested follow-ups:"))
	for i, s := range suggestions {
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, t.theme.Suggestion.Render(s)))
	}
	return strings.Join(lines, "\n")
}

// HighlightMentions styles every "@id" token of text whose id is in dir.
// A token starts at the beginning of the text or after whitespace and runs
// to the next whitespace.
func HighlightMentions(text string, dir *mention.Directory, style lipgloss.Style) string {
	if dir.Len() == 0 || !strings.ContainsRune(text, mention.Trigger) {
		return text
	}

	runes := []rune(text)
	var b strings.Builder
	for i := 0; i < len(runes); {
		if runes[i] != mention.Trigger || (i > 0 && !unicode.IsSpace(runes[i-1])) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		j := i + 1
		for j < len(runes) && !unicode.IsSpace(runes[j]) {
			j++
		}
		token := string(runes[i:j])
		if _, ok := dir.Lookup(string(runes[i+1 : j])); ok {
			b.WriteString(style.Render(token))
		} else {
			b.WriteString(token)
		}
		i = j
	}
	return b.String()
}
