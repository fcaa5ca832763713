// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aostock-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Status represents the current application status.
type Status int

const (
	StatusReady Status = iota
	StatusConnecting
	StatusStreaming
	StatusError
)

// String returns the display string for the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusConnecting:
		return "Connecting..."
	case StatusStreaming:
		return "Analyzing..."
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Icon returns a symbol for the status so it does not rely on color.
func (s Status) Icon() string {
	switch s {
	case StatusReady:
		return styles.StatusIndicators.Success
	case StatusError:
		return styles.StatusIndicators.Error
	default:
		return "~"
	}
}

// Shortcut is one key hint shown in the status bar.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar is the bottom line: status, message count and key hints.
type StatusBar struct {
	Status    Status
	Messages  int
	Width     int
	Shortcuts []Shortcut
	// Spinner replaces the status icon while a run is in progress.
	Spinner string
	theme   *styles.Theme
}

// NewStatusBar creates a new StatusBar component.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Status: StatusReady,
		Width:  80,
		theme:  theme,
	}
}

// SetWidth updates the bar width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetStatus updates the status.
func (s *StatusBar) SetStatus(status Status) {
	s.Status = status
}

// SetShortcuts replaces the key hints.
func (s *StatusBar) SetShortcuts(shortcuts ...Shortcut) {
	s.Shortcuts = shortcuts
}

// View renders the status bar. Key hints are dropped from the right until
// the line fits.
func (s *StatusBar) View() string {
	icon := s.Status.Icon()
	if s.Spinner != "" {
		icon = s.Spinner
	}
	status := icon + " " + s.Status.String()
	if s.Status == StatusError {
		status = s.theme.ErrorText.Render(status)
	}

	parts := []string{status}
	if s.Messages > 0 {
		parts = append(parts, formatCount(s.Messages, "msg"))
	}

	hints := make([]string, 0, len(s.Shortcuts))
	for _, sc := range s.Shortcuts {
		hints = append(hints, s.theme.ShortcutKey.Render(sc.Key)+" "+s.theme.ShortcutDesc.Render(sc.Desc))
	}

	line := strings.Join(parts, "  ")
	for n := len(hints); n >= 0; n-- {
		candidate := line
		if n > 0 {
			candidate += "  " + strings.Join(hints[:n], "  ")
		}
		if s.Width <= 0 || lipgloss.Width(candidate) <= s.Width-2 {
			line = candidate
			break
		}
	}
	return s.theme.StatusBar.Width(s.Width).Render(line)
}

func formatCount(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
