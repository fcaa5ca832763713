// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aostock-tui/internal/ui/styles"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the chat screen.
// Layout: header, [settings banner], transcript viewport, [popup],
// [notice], input, status bar. The viewport height is computed in refresh
// from the same pieces.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	parts := []string{m.header.View()}
	if banner := m.bannerView(); banner != "" {
		parts = append(parts, banner)
	}
	parts = append(parts, m.viewport.View())
	if popup := m.popup.View(m.mention.Session()); popup != "" {
		parts = append(parts, popup)
	}
	if notice := m.noticeView(); notice != "" {
		parts = append(parts, notice)
	}
	parts = append(parts, m.inputView(), m.statusBar.View())

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// bannerView warns about settings the server needs but the config lacks.
func (m Model) bannerView() string {
	if len(m.missing) == 0 {
		return ""
	}
	msg := "Missing settings: " + strings.Join(m.missing, ", ") +
		". Set them with `aostock config set <key> <value>`."
	return m.theme.WarningBanner.Width(m.width - 1).Render(styles.StatusIndicators.Warning + " " + msg)
}

func (m Model) noticeView() string {
	if m.notice == "" {
		return ""
	}
	if m.state == StateError {
		return m.theme.RenderError(m.notice)
	}
	return m.theme.Thinking.Render(m.notice)
}

func (m Model) inputView() string {
	return m.theme.InputContainer.Width(m.width).Render(m.input.View())
}

func heightOf(s string) int {
	if s == "" {
		return 0
	}
	return lipgloss.Height(s)
}
