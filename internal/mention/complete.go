// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mention

// Complete adapts the controller to readline-style word completers that
// replace the span between head and tail. pos is a rune offset into line.
//
// When the text before pos ends in an open mention token, head is the text
// before the trigger character, each completion is "@" + id + " " and tail is
// the text after pos. Otherwise there are no completions. The session is
// derived as if the whole line had just been typed.
func (c *Controller) Complete(line string, pos int) (head string, completions []string, tail string) {
	c.setBuffer(line, pos)
	c.composing = false

	start, ok := c.tokenStart()
	if !ok || c.dir.Len() == 0 {
		c.close()
		return string(c.text[:c.cursor]), nil, string(c.text[c.cursor:])
	}

	query := string(c.text[start+1 : c.cursor])
	candidates := c.dir.Filter(query)
	if len(candidates) == 0 {
		c.close()
		return string(c.text[:c.cursor]), nil, string(c.text[c.cursor:])
	}
	c.open(start, query, candidates, true)

	completions = make([]string, len(candidates))
	for i, m := range candidates {
		completions[i] = m.Token() + " "
	}
	return string(c.text[:start]), completions, string(c.text[c.cursor:])
}
