// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// MaxMessages is the maximum number of messages to keep in conversation history.
const MaxMessages = 1000

// ToolResponseContent is the placeholder sent for tool calls the client
// never answered.
const ToolResponseContent = "Successfully handled tool call."

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the client-side view of one agent thread.
type Conversation struct {
	// ThreadID is empty until the server creates the thread.
	ThreadID  string    `json:"thread_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []*Message `json:"messages"`

	// Suggestions are follow-up prompts offered by the server.
	Suggestions []string `json:"suggestions,omitempty"`
}

// NewConversation creates an empty conversation with no thread yet.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends msg and refreshes the title.
func (c *Conversation) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	c.updateTitle()
	c.pruneOldMessages()
}

// Replace swaps in the full message list streamed by the server. Mentions
// recorded locally on human messages survive when the server echoes the
// message back with the same ID.
func (c *Conversation) Replace(messages []*Message) {
	local := make(map[string]*Message, len(c.Messages))
	for _, m := range c.Messages {
		local[m.ID] = m
	}
	for _, m := range messages {
		if prev, ok := local[m.ID]; ok && len(m.Mentions) == 0 {
			m.Mentions = prev.Mentions
		}
	}
	c.Messages = messages
	c.UpdatedAt = time.Now()
	c.updateTitle()
	c.pruneOldMessages()
}

// LastAI returns the most recent visible AI message.
func (c *Conversation) LastAI() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if m := c.Messages[i]; m.Role == RoleAI && m.Visible() {
			return m
		}
	}
	return nil
}

// LastHuman returns the most recent human message.
func (c *Conversation) LastHuman() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleHuman {
			return c.Messages[i]
		}
	}
	return nil
}

// Visible returns the messages that should be rendered.
func (c *Conversation) Visible() []*Message {
	out := make([]*Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if m.Visible() {
			out = append(out, m)
		}
	}
	return out
}

// PendingToolResponses returns placeholder tool messages for AI tool calls
// that have no response yet. The server rejects a new human turn while a
// tool call is unanswered.
func (c *Conversation) PendingToolResponses() []*Message {
	var out []*Message
	for i, m := range c.Messages {
		if m.Role != RoleAI || len(m.ToolCalls) == 0 {
			continue
		}
		if i+1 < len(c.Messages) && c.Messages[i+1].Role == RoleTool {
			continue
		}
		for _, tc := range m.ToolCalls {
			resp := NewMessage(RoleTool, ToolResponseContent)
			resp.Name = tc.Name
			resp.ToolCallID = tc.ID
			resp.Hidden = true
			out = append(out, resp)
		}
	}
	return out
}

// Clear drops the thread binding and all messages.
func (c *Conversation) Clear() {
	*c = *NewConversation()
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty reports whether the conversation has no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitle derives a title from the first human message if not set.
func (c *Conversation) updateTitle() {
	if c.Title != "" {
		return
	}
	for _, msg := range c.Messages {
		if msg.Role == RoleHuman {
			c.Title = msg.Preview(50)
			return
		}
	}
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Conversation"
}

// pruneOldMessages keeps system messages and the newest MaxMessages others.
func (c *Conversation) pruneOldMessages() {
	if len(c.Messages) <= MaxMessages {
		return
	}

	var systemMessages, otherMessages []*Message
	for _, msg := range c.Messages {
		if msg.Role == RoleSystem {
			systemMessages = append(systemMessages, msg)
		} else {
			otherMessages = append(otherMessages, msg)
		}
	}
	if len(otherMessages) > MaxMessages {
		otherMessages = otherMessages[len(otherMessages)-MaxMessages:]
	}

	c.Messages = make([]*Message, 0, len(systemMessages)+len(otherMessages))
	c.Messages = append(c.Messages, systemMessages...)
	c.Messages = append(c.Messages, otherMessages...)
}
