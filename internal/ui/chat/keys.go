// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/aostock-tui/internal/mention"
	"github.com/jeranaias/aostock-tui/internal/ui/components"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings of the chat view.
type KeyMap struct {
	Submit     key.Binding
	Stop       key.Binding
	NewThread  key.Binding
	Copy       key.Binding
	Quit       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Stop: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "stop"),
		),
		NewThread: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "new thread"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy reply"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("up", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("down", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
	}
}

// shortcuts returns the status bar hints for the current state.
func (k KeyMap) shortcuts(streaming bool) []components.Shortcut {
	first := k.Submit
	if streaming {
		first = k.Stop
	}
	out := make([]components.Shortcut, 0, 4)
	for _, b := range []key.Binding{first, k.NewThread, k.Copy, k.Quit} {
		h := b.Help()
		out = append(out, components.Shortcut{Key: h.Key, Desc: h.Desc})
	}
	return out
}

// mentionKey maps a terminal key press onto the controller's logical keys.
func mentionKey(msg tea.KeyMsg) (mention.Key, bool) {
	switch msg.Type {
	case tea.KeyUp:
		return mention.KeyArrowUp, true
	case tea.KeyDown:
		return mention.KeyArrowDown, true
	case tea.KeyEnter:
		return mention.KeyEnter, true
	case tea.KeyTab:
		return mention.KeyTab, true
	case tea.KeyEsc:
		return mention.KeyEscape, true
	case tea.KeyBackspace:
		return mention.KeyBackspace, true
	}
	return "", false
}
