// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mention

// Key is a logical key name delivered by the host widget.
type Key string

const (
	KeyArrowUp   Key = "ArrowUp"
	KeyArrowDown Key = "ArrowDown"
	KeyEnter     Key = "Enter"
	KeyTab       Key = "Tab"
	KeyEscape    Key = "Escape"
	KeyBackspace Key = "Backspace"
)

// KeyResult reports how a key press was consumed.
type KeyResult struct {
	// Handled means the host must not apply the key's default behaviour.
	Handled bool
	// Changed means Text and Cursor carry a new buffer for the widget.
	Changed bool
	Text    string
	Cursor  int
	// Selected is set when the key accepted a suggestion.
	Selected *Mentionable
}

// HandleKey routes a key press through the controller.
//
// While a session is open the arrow keys navigate, Enter and Tab accept the
// highlighted entry and Escape closes the list; Backspace is left to the
// host as an ordinary edit. While the session is closed only Backspace can be
// consumed, to delete a whole mention token. Keys are never consumed during
// an IME composition.
func (c *Controller) HandleKey(k Key) KeyResult {
	if c.composing {
		return KeyResult{}
	}

	if c.session.Active && len(c.session.Candidates) > 0 {
		switch k {
		case KeyArrowDown:
			c.Navigate(Next)
			return KeyResult{Handled: true}
		case KeyArrowUp:
			c.Navigate(Previous)
			return KeyResult{Handled: true}
		case KeyEnter, KeyTab:
			sel, ok := c.SelectCurrent()
			if !ok {
				return KeyResult{Handled: true}
			}
			chosen := sel.Mentioned
			return KeyResult{Handled: true, Changed: true, Text: sel.Text, Cursor: sel.Cursor, Selected: &chosen}
		case KeyEscape:
			c.Escape()
			return KeyResult{Handled: true}
		}
		return KeyResult{}
	}

	if k == KeyBackspace {
		if edit, ok := c.Backspace(c.cursor); ok {
			return KeyResult{Handled: true, Changed: true, Text: edit.Text, Cursor: edit.Cursor}
		}
	}
	return KeyResult{}
}
