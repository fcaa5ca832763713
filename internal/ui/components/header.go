// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aostock-tui/internal/ui/styles"
	"github.com/jeranaias/aostock-tui/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the single-line title bar: product name, thread title and the
// server it talks to.
type Header struct {
	Title       string
	ThreadTitle string
	Server      string
	Width       int
	theme       *styles.Theme
}

// NewHeader creates a new Header component with default values.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "aostock",
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetThread updates the thread title shown next to the brand.
func (h *Header) SetThread(title string) {
	h.ThreadTitle = title
}

// SetServer updates the server label.
func (h *Header) SetServer(server string) {
	h.Server = server
}

// View renders the header.
func (h *Header) View() string {
	width := h.Width
	if width < 20 {
		width = 20
	}
	inner := width - 2

	left := h.theme.HeaderTitle.Render(h.Title)
	used := util.StringWidth(h.Title)

	if h.ThreadTitle != "" && inner-used > 6 {
		title := util.TruncateWidth(util.FirstLine(h.ThreadTitle), inner-used-3)
		left += h.theme.HeaderMeta.Render(" | " + title)
		used += 3 + util.StringWidth(title)
	}

	right := ""
	if h.Server != "" && !h.theme.Narrow() && inner-used > util.StringWidth(h.Server)+2 {
		right = h.theme.HeaderMeta.Render(h.Server)
		used += util.StringWidth(h.Server)
	}

	gap := inner - used
	if gap < 0 {
		gap = 0
	}
	return h.theme.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

// Height returns the rendered height.
func (h *Header) Height() int {
	return lipgloss.Height(h.View())
}
