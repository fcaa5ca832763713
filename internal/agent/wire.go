// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/jeranaias/aostock-tui/internal/model"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// ContentPart is one block of a message's content.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Content is message content. The server sends either a plain string or a
// list of typed parts; both decode into parts.
type Content []ContentPart

// UnmarshalJSON accepts a string or an array of parts.
func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Content{{Type: "text", Text: s}}
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*c = nil
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	*c = parts
	return nil
}

// Text joins the text parts.
func (c Content) Text() string {
	var b strings.Builder
	for _, p := range c {
		if p.Type == "text" || p.Type == "" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

type wireToolCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

type wireMessage struct {
	ID               string                 `json:"id,omitempty"`
	Type             string                 `json:"type"`
	Content          Content                `json:"content"`
	Name             string                 `json:"name,omitempty"`
	ToolCalls        []wireToolCall         `json:"tool_calls,omitempty"`
	ToolCallID       string                 `json:"tool_call_id,omitempty"`
	ResponseMetadata map[string]interface{} `json:"response_metadata,omitempty"`
}

func toWire(m *model.Message) wireMessage {
	w := wireMessage{
		ID:         m.ID,
		Type:       string(m.Role),
		Name:       m.Name,
		ToolCallID: m.ToolCallID,
	}
	if m.Content != "" {
		w.Content = Content{{Type: "text", Text: m.Content}}
	} else {
		w.Content = Content{}
	}
	for _, tc := range m.ToolCalls {
		w.ToolCalls = append(w.ToolCalls, wireToolCall(tc))
	}
	return w
}

func fromWire(w wireMessage) *model.Message {
	m := &model.Message{
		ID:         w.ID,
		Role:       model.Role(w.Type),
		Content:    w.Content.Text(),
		Timestamp:  time.Now(),
		Name:       w.Name,
		ToolCallID: w.ToolCallID,
	}
	if hide, ok := w.ResponseMetadata["hide"].(bool); ok && hide {
		m.Hidden = true
	}
	for _, tc := range w.ToolCalls {
		m.ToolCalls = append(m.ToolCalls, model.ToolCall(tc))
	}
	return m
}

func fromWireAll(ws []wireMessage) []*model.Message {
	out := make([]*model.Message, 0, len(ws))
	for _, w := range ws {
		out = append(out, fromWire(w))
	}
	return out
}

// =============================================================================
// THREADS AND STATE
// =============================================================================

// State is the thread state published by the agent graph.
type State struct {
	Messages    []*model.Message
	Suggestions []string
}

type wireState struct {
	Messages    []wireMessage `json:"messages"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

func (w wireState) state() State {
	return State{Messages: fromWireAll(w.Messages), Suggestions: w.Suggestions}
}

// Thread is a server-side conversation thread.
type Thread struct {
	ThreadID  string                 `json:"thread_id"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Values    *wireState             `json:"values,omitempty"`
}

// Title returns a display title: the first human message, or the thread ID.
func (t Thread) Title() string {
	if t.Values != nil {
		for _, m := range t.Values.Messages {
			if m.Type == string(model.RoleHuman) {
				if text := strings.Join(strings.Fields(m.Content.Text()), " "); text != "" {
					return text
				}
			}
		}
	}
	return t.ThreadID
}

// ServerInfo is the /info response. Fields vary between server versions, so
// it is kept as a raw map.
type ServerInfo map[string]interface{}

// State decodes the thread's last published values.
func (t Thread) State() State {
	if t.Values == nil {
		return State{}
	}
	return t.Values.state()
}
