// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes agent threads to Markdown or JSON.
//
// # Supported Formats
//
//   - Markdown: YAML front matter, one section per visible message, then the
//     server's follow-up suggestions
//   - JSON: the visible messages with roles, speakers and mentions
//
// # Usage
//
//	exp, err := export.New(export.FormatMarkdown, export.Options{
//	    Directory:   mention.DefaultDirectory(),
//	    AssistantID: "agent",
//	})
//	data, err := exp.Export(conv)
package export
