// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mention

import "unicode"

// Trigger is the character that opens a suggestion session.
const Trigger = '@'

// =============================================================================
// SESSION VIEW-MODEL
// =============================================================================

// Session is the renderable state of the suggestion list.
type Session struct {
	// Active is true while the list should be displayed.
	Active bool
	// Query is the text typed after the trigger character.
	Query string
	// Candidates are the filtered entries, in directory order.
	Candidates []Mentionable
	// Selected indexes Candidates.
	Selected int
	// TokenStart is the rune offset of the trigger character.
	TokenStart int
}

// Current returns the highlighted candidate.
func (s Session) Current() (Mentionable, bool) {
	if !s.Active || s.Selected < 0 || s.Selected >= len(s.Candidates) {
		return Mentionable{}, false
	}
	return s.Candidates[s.Selected], true
}

// Direction is a navigation direction within the suggestion list.
type Direction int

const (
	Next Direction = iota
	Previous
)

// Selection is the outcome of accepting a suggestion.
type Selection struct {
	Text      string
	Cursor    int
	Mentioned Mentionable
}

// Edit is a text mutation the host must apply to its widget.
type Edit struct {
	Text   string
	Cursor int
}

// Anchor is implemented by hosts that position the suggestion list next to
// the mention token. Offsets are rune offsets into the text.
type Anchor interface {
	Anchor(tokenStart int)
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller interprets edits of an @mention-aware text input.
//
// It owns the text buffer, the cursor and the suggestion session. Offsets are
// rune offsets. All methods are total; they never fail and never panic on
// out-of-range input. A Controller is not safe for concurrent use; it is
// driven from the host's input event loop.
type Controller struct {
	dir      *Directory
	onSelect func(Mentionable)
	anchor   Anchor

	text      []rune
	cursor    int
	composing bool
	session   Session
}

// Option configures a Controller.
type Option func(*Controller)

// WithOnSelect installs the selection callback.
func WithOnSelect(fn func(Mentionable)) Option {
	return func(c *Controller) { c.onSelect = fn }
}

// WithAnchor installs the suggestion anchor.
func WithAnchor(a Anchor) Option {
	return func(c *Controller) { c.anchor = a }
}

// New creates a controller over dir. A nil or empty directory never opens a
// session.
func New(dir *Directory, opts ...Option) *Controller {
	c := &Controller{dir: dir}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Directory returns the directory the controller completes against.
func (c *Controller) Directory() *Directory { return c.dir }

// Text returns the current buffer.
func (c *Controller) Text() string { return string(c.text) }

// Cursor returns the current cursor offset.
func (c *Controller) Cursor() int { return c.cursor }

// Composing reports whether an IME composition is in progress.
func (c *Controller) Composing() bool { return c.composing }

// Session returns a copy of the suggestion state.
func (c *Controller) Session() Session {
	s := c.session
	if s.Candidates != nil {
		s.Candidates = append([]Mentionable(nil), s.Candidates...)
	}
	return s
}

// Reset empties the buffer and closes the session.
func (c *Controller) Reset() {
	c.text = nil
	c.cursor = 0
	c.composing = false
	c.close()
}

// TextChanged records an edit and re-derives the session from the text
// before the cursor.
func (c *Controller) TextChanged(text string, cursor int) Session {
	c.setBuffer(text, cursor)
	if !c.composing {
		c.derive()
	}
	return c.Session()
}

// CompositionStart suspends trigger detection until CompositionEnd.
// Intermediate composition text is recorded but never interpreted.
func (c *Controller) CompositionStart() {
	c.composing = true
}

// CompositionEnd resumes trigger detection and re-derives the session from
// the committed text.
func (c *Controller) CompositionEnd() Session {
	if c.composing {
		c.composing = false
		c.derive()
	}
	return c.Session()
}

// Navigate moves the selection circularly. It reports false when no session
// is active or there are no candidates.
func (c *Controller) Navigate(dir Direction) (int, bool) {
	n := len(c.session.Candidates)
	if !c.session.Active || n == 0 {
		return 0, false
	}
	c.clampSelected()
	switch dir {
	case Previous:
		c.session.Selected = (c.session.Selected - 1 + n) % n
	default:
		c.session.Selected = (c.session.Selected + 1) % n
	}
	return c.session.Selected, true
}

// SelectCurrent replaces the token being typed, from the trigger character
// through the cursor, with "@" + id + " " and closes the session. The cursor
// lands after the trailing space. The selection callback fires on success.
func (c *Controller) SelectCurrent() (Selection, bool) {
	if !c.session.Active || len(c.session.Candidates) == 0 {
		return Selection{}, false
	}
	c.clampSelected()
	chosen := c.session.Candidates[c.session.Selected]

	start, ok := c.tokenStart()
	if !ok {
		c.close()
		return Selection{}, false
	}

	insert := []rune(chosen.Token() + " ")
	text := make([]rune, 0, len(c.text)-(c.cursor-start)+len(insert))
	text = append(text, c.text[:start]...)
	text = append(text, insert...)
	text = append(text, c.text[c.cursor:]...)

	c.text = text
	c.cursor = start + len(insert)
	c.close()

	if c.onSelect != nil {
		c.onSelect(chosen)
	}
	return Selection{Text: string(c.text), Cursor: c.cursor, Mentioned: chosen}, true
}

// Select highlights candidate i and accepts it, as when the user clicks a
// row of the suggestion list. Out-of-range indexes clamp to 0.
func (c *Controller) Select(i int) (Selection, bool) {
	if !c.session.Active {
		return Selection{}, false
	}
	c.session.Selected = i
	c.clampSelected()
	return c.SelectCurrent()
}

// Escape closes the session without touching the text.
func (c *Controller) Escape() {
	c.close()
}

// Dismiss closes the session after an interaction outside the input, such as
// a click elsewhere in the UI.
func (c *Controller) Dismiss() {
	c.close()
}

// Backspace deletes a complete mention token ending at cursor in one step.
//
// It only applies while the session is closed. The token is the trigger
// character followed by one or more non-whitespace characters, preceded by
// start of text or whitespace. Only the text before the cursor is examined.
// When it reports false the host performs its ordinary deletion.
func (c *Controller) Backspace(cursor int) (Edit, bool) {
	if c.session.Active {
		return Edit{}, false
	}
	cursor = clamp(cursor, 0, len(c.text))

	start := cursor
	for start > 0 && !unicode.IsSpace(c.text[start-1]) {
		start--
	}
	if cursor-start < 2 || c.text[start] != Trigger {
		return Edit{}, false
	}

	text := make([]rune, 0, len(c.text)-(cursor-start))
	text = append(text, c.text[:start]...)
	text = append(text, c.text[cursor:]...)
	c.text = text
	c.cursor = start
	return Edit{Text: string(c.text), Cursor: c.cursor}, true
}

// =============================================================================
// INTERNALS
// =============================================================================

func (c *Controller) setBuffer(text string, cursor int) {
	c.text = []rune(text)
	c.cursor = clamp(cursor, 0, len(c.text))
}

// derive applies the session rules to the current buffer.
func (c *Controller) derive() {
	if c.dir.Len() == 0 {
		c.close()
		return
	}

	if c.cursor > 0 && c.text[c.cursor-1] == Trigger {
		c.open(c.cursor-1, "", c.dir.All(), true)
		return
	}

	if !c.session.Active {
		return
	}

	start, ok := c.tokenStart()
	if !ok {
		c.close()
		return
	}
	query := string(c.text[start+1 : c.cursor])
	candidates := c.dir.Filter(query)
	if len(candidates) == 0 {
		c.close()
		return
	}
	c.open(start, query, candidates, false)
}

// tokenStart scans backward from the cursor to the nearest trigger character
// with no whitespace in between.
func (c *Controller) tokenStart() (int, bool) {
	for i := c.cursor - 1; i >= 0; i-- {
		switch r := c.text[i]; {
		case unicode.IsSpace(r):
			return 0, false
		case r == Trigger:
			return i, true
		}
	}
	return 0, false
}

func (c *Controller) open(start int, query string, candidates []Mentionable, fresh bool) {
	if fresh || !c.session.Active || !sameIDs(c.session.Candidates, candidates) {
		c.session.Selected = 0
	}
	c.session.Active = true
	c.session.Query = query
	c.session.Candidates = candidates
	c.session.TokenStart = start
	c.clampSelected()
	if c.anchor != nil {
		c.anchor.Anchor(start)
	}
}

func (c *Controller) close() {
	c.session = Session{}
}

func (c *Controller) clampSelected() {
	if c.session.Selected < 0 || c.session.Selected >= len(c.session.Candidates) {
		c.session.Selected = 0
	}
}

func sameIDs(a, b []Mentionable) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
