// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jeranaias/aostock-tui/internal/mention"
	"github.com/jeranaias/aostock-tui/internal/model"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func testConversation() *model.Conversation {
	conv := model.NewConversation()
	conv.ThreadID = "t-1"
	conv.CreatedAt = fixedNow.Add(-time.Hour)
	conv.AddMessage(&model.Message{ID: "h1", Role: model.RoleHuman, Content: "@ben_graham: is #INTC a net-net?"})
	conv.AddMessage(&model.Message{ID: "a0", Role: model.RoleAI, Content: "routing", Hidden: true})
	conv.AddMessage(&model.Message{ID: "a1", Role: model.RoleAI, Name: "ben_graham", Content: "It trades above NCAV."})
	conv.AddMessage(&model.Message{ID: "h2", Role: model.RoleHuman, Content: "and @warren_buffett ?", Mentions: []string{"warren_buffett"}})
	conv.AddMessage(&model.Message{ID: "a2", Role: model.RoleAI, Name: "someone_else", Content: "No moat."})
	conv.Suggestions = []string{"Compare with AMD"}
	return conv
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.AssistantID = "agent"
	opts.Now = func() time.Time { return fixedNow }
	return opts
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatMarkdown, "md": FormatMarkdown, "Markdown": FormatMarkdown, "json": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("html")
	assert.Error(t, err)
}

func TestMarkdownExport(t *testing.T) {
	exp, err := New(FormatMarkdown, testOptions())
	require.NoError(t, err)
	assert.Equal(t, ".md", exp.FileExtension())

	data, err := exp.Export(testConversation())
	require.NoError(t, err)
	out := string(data)

	require.True(t, strings.HasPrefix(out, "---\n"))
	end := strings.Index(out[4:], "---\n")
	require.Positive(t, end)

	var fm frontMatter
	require.NoError(t, yaml.Unmarshal([]byte(out[4:4+end]), &fm))
	assert.Equal(t, "t-1", fm.Thread)
	assert.Equal(t, "agent", fm.Assistant)
	assert.Equal(t, 4, fm.Messages)
	assert.Equal(t, []string{"warren_buffett"}, fm.Mentions)
	assert.Equal(t, "aostock", fm.Generator)
	assert.Equal(t, fixedNow.Format(time.RFC3339), fm.Exported)

	assert.Contains(t, out, "### You\n\n@ben_graham: is #INTC a net-net?")
	assert.Contains(t, out, "### Benjamin Graham\n\nIt trades above NCAV.")
	assert.Contains(t, out, "### someone\\_else\n\nNo moat.")
	assert.NotContains(t, out, "routing")
	assert.Contains(t, out, "## Suggested follow-ups\n\n1. Compare with AMD\n")
}

func TestMarkdownExport_NoMetadata(t *testing.T) {
	opts := testOptions()
	opts.IncludeMetadata = false
	opts.IncludeTimestamps = true

	conv := model.NewConversation()
	conv.AddMessage(&model.Message{ID: "h1", Role: model.RoleHuman, Content: "hi", Timestamp: fixedNow})

	data, err := NewMarkdownExporter(opts).Export(conv)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.HasPrefix(out, "# hi\n\n## Conversation"))
	assert.Contains(t, out, "### You <sub>09:30:00</sub>")
}

func TestExport_Empty(t *testing.T) {
	conv := model.NewConversation()
	conv.AddMessage(&model.Message{ID: "x", Role: model.RoleAI, Content: "plan", Hidden: true})

	for _, f := range []Format{FormatMarkdown, FormatJSON} {
		exp, err := New(f, testOptions())
		require.NoError(t, err)
		_, err = exp.Export(conv)
		assert.ErrorIs(t, err, ErrEmptyConversation, f)
		_, err = exp.Export(nil)
		assert.Error(t, err, f)
	}
}

func TestJSONExport(t *testing.T) {
	exp, err := New(FormatJSON, testOptions())
	require.NoError(t, err)
	assert.Equal(t, ".json", exp.FileExtension())

	data, err := exp.Export(testConversation())
	require.NoError(t, err)

	var doc jsonThread
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "t-1", doc.ThreadID)
	assert.Equal(t, "agent", doc.AssistantID)
	assert.True(t, doc.ExportedAt.Equal(fixedNow))
	require.Len(t, doc.Messages, 4)

	// The first message was never tagged locally; its mention is found in
	// the text.
	assert.Equal(t, []string(nil), doc.Messages[0].Mentions, "trailing colon is part of the token")
	assert.Equal(t, "Benjamin Graham", doc.Messages[1].Speaker)
	assert.Equal(t, []string{"warren_buffett"}, doc.Messages[2].Mentions)
	assert.Equal(t, []string{"Compare with AMD"}, doc.Suggestions)
}

func TestMentionsOf_ScansText(t *testing.T) {
	dir := mention.DefaultDirectory()
	msg := &model.Message{Role: model.RoleHuman, Content: "ask @ben_graham and @nobody"}
	assert.Equal(t, []string{"ben_graham"}, mentionsOf(msg, dir))

	ai := &model.Message{Role: model.RoleAI, Content: "@ben_graham says"}
	assert.Nil(t, mentionsOf(ai, dir))
}

func TestExportToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := ExportToFile(testConversation(), NewJSONExporter(testOptions()), dir)
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "thread_@ben_graham-_is_#INTC_a_net-net-_"))
	assert.Equal(t, ".json", filepath.Ext(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "thread"},
		{"a/b\\c:d", "a-b-c-d"},
		{"hello world\n", "hello_world"},
		{"bell\x07", "bell-"},
		{strings.Repeat("x", 80), strings.Repeat("x", 47) + "..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), "%q", tt.in)
	}
}
