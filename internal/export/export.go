// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/aostock-tui/internal/mention"
	"github.com/jeranaias/aostock-tui/internal/model"
	"github.com/jeranaias/aostock-tui/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a conversation to one output format.
type Exporter interface {
	// Export converts a conversation to the target format.
	Export(conv *model.Conversation) ([]byte, error)

	// FileExtension returns the file extension, e.g. ".md".
	FileExtension() string
}

// Format names an export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ErrEmptyConversation is returned for conversations with nothing visible.
var ErrEmptyConversation = errors.New("conversation has no messages")

// ParseFormat accepts "markdown", "md" and "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md", "":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown export format %q (want markdown or json)", s)
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// Directory resolves persona display names and mention tokens.
	Directory *mention.Directory

	// AssistantID is recorded in the metadata.
	AssistantID string

	// IncludeMetadata adds the front matter block (Markdown only).
	IncludeMetadata bool

	// IncludeTimestamps adds per-message times (Markdown only).
	IncludeTimestamps bool

	// Now stamps the export. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() Options {
	return Options{
		Directory:       mention.DefaultDirectory(),
		IncludeMetadata: true,
	}
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// New returns the exporter for format.
func New(format Format, opts Options) (Exporter, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdownExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(opts), nil
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile writes conv into dir under a name derived from its title and
// returns the path. Files are written with 0600 permissions.
func ExportToFile(conv *model.Conversation, exporter Exporter, dir string) (string, error) {
	content, err := exporter.Export(conv)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	if dir == "" {
		dir = "."
	}
	filename := fmt.Sprintf("thread_%s_%s%s",
		sanitizeFilename(conv.GetTitle()),
		time.Now().Format("20060102_150405"),
		exporter.FileExtension())

	path := filepath.Join(dir, filename)
	if err := util.AtomicWriteFileWithDir(path, content, 0o600, 0o755); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename replaces characters that are invalid in filenames on
// common platforms and caps the length at 50 runes.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(strings.TrimSpace(s), 50)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "thread"
	}
	return b.String()
}

// speaker labels a message: persona display name for AI messages the
// server signs, otherwise the role's display name.
func speaker(msg *model.Message, dir *mention.Directory) string {
	if msg.Name != "" {
		if m, ok := dir.Lookup(msg.Name); ok && m.DisplayName != "" {
			return m.DisplayName
		}
		return msg.Name
	}
	return msg.Role.DisplayName()
}

// mentionsOf returns the persona IDs tagged in a human message. Messages
// fetched from the server carry no local tags, so the text is scanned.
func mentionsOf(msg *model.Message, dir *mention.Directory) []string {
	if msg.Role != model.RoleHuman {
		return nil
	}
	if len(msg.Mentions) > 0 {
		return msg.Mentions
	}
	var ids []string
	for _, m := range dir.Mentions(msg.Content) {
		ids = append(ids, m.ID)
	}
	return ids
}

// threadMentions collects mentions across the conversation, first use order.
func threadMentions(msgs []*model.Message, dir *mention.Directory) []string {
	seen := make(map[string]bool)
	var out []string
	for _, msg := range msgs {
		for _, id := range mentionsOf(msg, dir) {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
