// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aostock-tui/internal/mention"
	"github.com/jeranaias/aostock-tui/internal/ui/styles"
	"github.com/jeranaias/aostock-tui/internal/util"
)

// =============================================================================
// MENTION POPUP COMPONENT
// =============================================================================

// DefaultPopupMaxVisible is used when no limit is configured.
const DefaultPopupMaxVisible = 8

const (
	popupMinWidth  = 24
	popupNameWidth = 22
	popupIDWidth   = 20
)

// MentionPopup renders the suggestion list of a mention session above the
// input line, starting at the column of the "@" that opened it.
type MentionPopup struct {
	theme      *styles.Theme
	maxVisible int
	width      int
	column     int
}

// NewMentionPopup creates a popup showing at most maxVisible rows.
func NewMentionPopup(theme *styles.Theme, maxVisible int) *MentionPopup {
	if maxVisible <= 0 {
		maxVisible = DefaultPopupMaxVisible
	}
	return &MentionPopup{
		theme:      theme,
		maxVisible: maxVisible,
		width:      60,
	}
}

// SetWidth sets the available width.
func (p *MentionPopup) SetWidth(width int) {
	p.width = width
}

// SetMaxVisible sets the maximum number of visible rows.
func (p *MentionPopup) SetMaxVisible(n int) {
	if n > 0 {
		p.maxVisible = n
	}
}

// Anchor positions the popup at the display column of tokenStart within
// text. offset is the width of whatever precedes the text on screen, such
// as the prompt.
func (p *MentionPopup) Anchor(text string, tokenStart, offset int) {
	p.column = offset + util.ColumnOf(text, tokenStart)
}

// Column returns the anchored display column.
func (p *MentionPopup) Column() int {
	return p.column
}

// VisibleRange returns the window [start, end) of n rows that keeps
// selected roughly centred.
func VisibleRange(selected, n, maxVisible int) (int, int) {
	if n <= maxVisible {
		return 0, n
	}
	start := selected - maxVisible/2
	if start < 0 {
		start = 0
	}
	end := start + maxVisible
	if end > n {
		end = n
		start = end - maxVisible
	}
	return start, end
}

// View renders the popup for s, or "" when the session is closed.
func (p *MentionPopup) View(s mention.Session) string {
	if !s.Active || len(s.Candidates) == 0 {
		return ""
	}

	boxWidth := p.boxWidth()
	inner := boxWidth - 4 // border and padding
	start, end := VisibleRange(s.Selected, len(s.Candidates), p.maxVisible)

	rows := make([]string, 0, end-start+2)
	if start > 0 {
		rows = append(rows, p.theme.PopupMore.Render(fmt.Sprintf("  %d more above", start)))
	}
	for i := start; i < end; i++ {
		rows = append(rows, p.renderItem(s.Candidates[i], i == s.Selected, inner))
	}
	if end < len(s.Candidates) {
		rows = append(rows, p.theme.PopupMore.Render(fmt.Sprintf("  %d more below", len(s.Candidates)-end)))
	}

	box := p.theme.Popup.Width(inner + 2).Render(strings.Join(rows, "\n"))
	return lipgloss.NewStyle().MarginLeft(p.left(lipgloss.Width(box))).Render(box)
}

// left shifts the box right to the anchor, but never past the right edge.
func (p *MentionPopup) left(boxWidth int) int {
	column := p.column
	if p.width > 0 && column+boxWidth > p.width {
		column = p.width - boxWidth
	}
	if column < 0 {
		column = 0
	}
	return column
}

// ItemAt maps a cell (x, y), relative to the top-left corner of View(s), to
// the index of the candidate drawn there.
func (p *MentionPopup) ItemAt(s mention.Session, x, y int) (int, bool) {
	if !s.Active || len(s.Candidates) == 0 {
		return 0, false
	}
	boxWidth := p.boxWidth()
	left := p.left(boxWidth)
	if x < left || x >= left+boxWidth {
		return 0, false
	}

	start, end := VisibleRange(s.Selected, len(s.Candidates), p.maxVisible)
	row := y - 1 // top border
	if start > 0 {
		row-- // "more above"
	}
	if row < 0 || start+row >= end {
		return 0, false
	}
	return start + row, true
}

func (p *MentionPopup) boxWidth() int {
	w := p.width
	if w <= 0 {
		w = 60
	}
	if w > 80 {
		w = 80
	}
	if w < popupMinWidth {
		w = popupMinWidth
	}
	return w
}

// renderItem renders a single row: marker, display name, token and, when
// there is room, the description. Widths are measured on the plain text
// before styling.
func (p *MentionPopup) renderItem(m mention.Mentionable, selected bool, width int) string {
	marker := "  "
	if selected {
		marker = "> "
	}

	name := m.DisplayName
	if name == "" {
		name = m.ID
	}
	nameWidth := popupNameWidth
	if nameWidth > width-2 {
		nameWidth = width - 2
	}
	head := marker + util.PadWidth(util.TruncateWidth(name, nameWidth), nameWidth)
	used := util.StringWidth(head)

	var token, desc string
	if rest := width - used; rest > 2 {
		idWidth := popupIDWidth
		if idWidth > rest-1 {
			idWidth = rest - 1
		}
		token = " " + util.PadWidth(util.TruncateWidth(m.Token(), idWidth), idWidth)
		used += idWidth + 1
	}
	if rest := width - used; m.Description != "" && rest > 8 && !p.theme.Narrow() {
		desc = " " + util.TruncateWidth(m.Description, rest-1)
		used += util.StringWidth(desc)
	}
	pad := ""
	if used < width {
		pad = strings.Repeat(" ", width-used)
	}

	if selected {
		return p.theme.PopupSelected.Render(head + token + desc + pad)
	}
	return p.theme.PopupItem.Render(head) + p.theme.PopupID.Render(token) +
		p.theme.PopupDesc.Render(desc) + pad
}

// Height returns the number of screen lines View(s) occupies.
func (p *MentionPopup) Height(s mention.Session) int {
	v := p.View(s)
	if v == "" {
		return 0
	}
	return lipgloss.Height(v)
}
