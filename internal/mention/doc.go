// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mention implements @mention autocomplete for chat input.
//
// A Controller owns a text buffer, a cursor and a suggestion session over a
// static Directory of personas. Hosts feed it edits (TextChanged), logical
// key presses (HandleKey) and IME composition signals, and render the
// Session it returns.
//
// # Session rules
//
//   - Typing the trigger character "@" opens the list with every entry.
//   - While open, the text between the nearest "@" and the cursor filters
//     the list by case-insensitive substring on ID or display name.
//   - Whitespace between the "@" and the cursor, an empty filter result,
//     Escape or a selection closes the list.
//   - Accepting an entry replaces the typed token with "@id " and moves the
//     cursor past the trailing space.
//   - Backspace at the end of a complete token deletes the whole token.
//
// # Usage
//
//	c := mention.New(mention.DefaultDirectory(),
//	    mention.WithOnSelect(func(m mention.Mentionable) { tag(m.ID) }))
//	s := c.TextChanged("Hello @b", 8)
//	if s.Active {
//	    res := c.HandleKey(mention.KeyEnter)
//	    input.SetValue(res.Text)
//	    input.SetCursor(res.Cursor)
//	}
package mention
