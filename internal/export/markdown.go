// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/aostock-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown.
type MarkdownExporter struct {
	options Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts Options) *MarkdownExporter {
	return &MarkdownExporter{options: opts}
}

// frontMatter is the YAML header of an exported thread.
type frontMatter struct {
	Title     string   `yaml:"title"`
	Thread    string   `yaml:"thread,omitempty"`
	Assistant string   `yaml:"assistant,omitempty"`
	Date      string   `yaml:"date"`
	Updated   string   `yaml:"updated"`
	Messages  int      `yaml:"messages"`
	Mentions  []string `yaml:"mentions,omitempty"`
	Exported  string   `yaml:"exported"`
	Generator string   `yaml:"generator"`
}

// Export converts a conversation to Markdown.
func (e *MarkdownExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}
	msgs := conv.Visible()
	if len(msgs) == 0 {
		return nil, ErrEmptyConversation
	}
	dir := e.options.Directory

	var sb strings.Builder

	if e.options.IncludeMetadata {
		fm := frontMatter{
			Title:     conv.GetTitle(),
			Thread:    conv.ThreadID,
			Assistant: e.options.AssistantID,
			Date:      conv.CreatedAt.Format(time.RFC3339),
			Updated:   conv.UpdatedAt.Format(time.RFC3339),
			Messages:  len(msgs),
			Mentions:  threadMentions(msgs, dir),
			Exported:  e.options.now().Format(time.RFC3339),
			Generator: "aostock",
		}
		data, err := yaml.Marshal(fm)
		if err != nil {
			return nil, fmt.Errorf("encode front matter: %w", err)
		}
		sb.WriteString("---\n")
		sb.Write(data)
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(conv.GetTitle())))

	if e.options.IncludeMetadata {
		sb.WriteString(fmt.Sprintf("- **Created**: %s\n", formatTimestamp(conv.CreatedAt)))
		sb.WriteString(fmt.Sprintf("- **Last Updated**: %s\n", formatTimestamp(conv.UpdatedAt)))
		sb.WriteString(fmt.Sprintf("- **Messages**: %d\n\n", len(msgs)))
	}

	sb.WriteString("## Conversation\n\n")
	for i, msg := range msgs {
		label := escapeMarkdown(speaker(msg, dir))
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Timestamp)))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", label))
		}

		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if i < len(msgs)-1 {
			sb.WriteString("---\n\n")
		}
	}

	if len(conv.Suggestions) > 0 {
		sb.WriteString("## Suggested follow-ups\n\n")
		for i, s := range conv.Suggestions {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, s))
		}
		sb.WriteString("\n")
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// escapeMarkdown escapes characters that would break formatting in
// headings.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(`#`, `\#`, `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}
