// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role identifies the sender of a message. Values match the agent server's
// message "type" field.
type Role string

const (
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
	RoleTool   Role = "tool"
	RoleSystem Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleHuman:
		return "You"
	case RoleAI:
		return "Assistant"
	case RoleSystem:
		return "System"
	case RoleTool:
		return "Tool"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// ToolCall is a tool invocation requested by an AI message.
type ToolCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// Message represents a single message in a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Tool plumbing
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`

	// Hidden messages are kept in the thread but never rendered. The server
	// sets this through response_metadata.hide.
	Hidden bool `json:"hidden,omitempty"`

	// Mentions holds the persona IDs tagged in a human message, in order.
	Mentions []string `json:"mentions,omitempty"`
}

// NewMessage creates a message with a fresh ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewHumanMessage creates a human message tagged with the given persona IDs.
func NewHumanMessage(content string, mentions ...string) *Message {
	msg := NewMessage(RoleHuman, content)
	if len(mentions) > 0 {
		msg.Mentions = append([]string(nil), mentions...)
	}
	return msg
}

// NewSystemMessage creates a local system notice.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// AssistantHint returns the persona to route this message to: the single
// mentioned persona, or "" when none or several are mentioned.
func (m *Message) AssistantHint() string {
	if len(m.Mentions) == 1 {
		return m.Mentions[0]
	}
	return ""
}

// Visible reports whether the message should be rendered.
func (m *Message) Visible() bool {
	if m.Hidden {
		return false
	}
	// Tool results and bare tool-call turns carry no prose.
	if m.Role == RoleTool {
		return false
	}
	return !(m.Role == RoleAI && strings.TrimSpace(m.Content) == "" && len(m.ToolCalls) > 0)
}

// Preview returns a single-line preview of at most maxLen runes.
func (m *Message) Preview(maxLen int) string {
	content := strings.Join(strings.Fields(m.Content), " ")
	runes := []rune(content)
	if maxLen <= 0 || len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty reports whether the message has no content.
func (m *Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == ""
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func generateID() string {
	return uuid.NewString()
}
