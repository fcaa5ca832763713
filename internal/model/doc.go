// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Conversation: client view of one agent thread
//   - Message: single message with role, content and tagged mentions
//   - Role: human, ai, tool or system, matching the server's message types
//
// # Usage
//
//	conv := model.NewConversation()
//	msg := model.NewHumanMessage("@warren_buffett what about AAPL?", "warren_buffett")
//	conv.AddMessage(msg)
//	hint := msg.AssistantHint() // "warren_buffett"
package model
