// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the main chat view of the aostock TUI.

The Model is a Bubble Tea model that talks to an agent server through
internal/agent and renders the thread with internal/ui/components.

# Input and mentions

The input line is a bubbles textinput driven through a mention.Controller:

  - Every edit is reported with TextChanged so the suggestion popup follows
    the text before the cursor.
  - Up, Down, Enter, Tab, Esc and Backspace go through HandleKey first.
    Keys it consumes never reach the textinput.
  - Enter submits only when no suggestion session is open.

# Runs

Submitting creates the thread on first use, appends any pending tool
responses plus the human message, and streams the run. Every values event
replaces the transcript with the server's state. Esc stops a run, Ctrl+N
starts a new thread, Ctrl+Y copies the last reply and Ctrl+C quits.

# Files

  - model.go: Model, Options, Init
  - update.go: Update loop and key routing
  - view.go: layout
  - streaming.go: run commands and event delivery
  - keys.go: key bindings and the mention key mapping
  - messages.go: tea.Msg types
  - cancel.go: run cancellation
*/
package chat
