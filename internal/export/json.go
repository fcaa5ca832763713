// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/aostock-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports conversations to indented JSON. Metadata and
// timestamps are always included.
type JSONExporter struct {
	options Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts Options) *JSONExporter {
	return &JSONExporter{options: opts}
}

type jsonThread struct {
	ThreadID    string        `json:"thread_id,omitempty"`
	AssistantID string        `json:"assistant_id,omitempty"`
	Title       string        `json:"title"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	ExportedAt  time.Time     `json:"exported_at"`
	Messages    []jsonMessage `json:"messages"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

type jsonMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Speaker   string    `json:"speaker"`
	Content   string    `json:"content"`
	Mentions  []string  `json:"mentions,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Export converts the visible messages of a conversation to JSON.
func (e *JSONExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}
	msgs := conv.Visible()
	if len(msgs) == 0 {
		return nil, ErrEmptyConversation
	}

	doc := jsonThread{
		ThreadID:    conv.ThreadID,
		AssistantID: e.options.AssistantID,
		Title:       conv.GetTitle(),
		CreatedAt:   conv.CreatedAt,
		UpdatedAt:   conv.UpdatedAt,
		ExportedAt:  e.options.now(),
		Messages:    make([]jsonMessage, 0, len(msgs)),
		Suggestions: conv.Suggestions,
	}
	for _, msg := range msgs {
		doc.Messages = append(doc.Messages, jsonMessage{
			ID:        msg.ID,
			Role:      string(msg.Role),
			Speaker:   speaker(msg, e.options.Directory),
			Content:   msg.Content,
			Mentions:  mentionsOf(msg, e.options.Directory),
			Timestamp: msg.Timestamp,
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}
