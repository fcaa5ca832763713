// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the aostock command line.
//
// Commands:
//
//	aostock                      full-screen chat (same as "chat")
//	aostock chat [--thread ID]   full-screen chat; line mode without a TTY
//	aostock repl [--thread ID]   line-mode chat with @mention tab completion
//	aostock ask <message>        one question, reply on stdout
//	aostock threads list|delete  remote thread history, cached locally
//	aostock config show|get|set|path|keys
//	aostock assistants [filter]  the analysts that can be @mentioned
//
// Global flags are --config (settings file) and --verbose (debug logging).
package cli
