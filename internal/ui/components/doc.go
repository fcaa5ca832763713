// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the visual pieces of the aostock chat screen.

# Components

Header (header.go) - Title bar with the thread title and server.
Transcript (message.go) - Renders visible messages; agent replies go through
glamour, mention tokens in human messages are highlighted.
MentionPopup (popup.go) - The @mention suggestion list, anchored at the
column of the "@" that opened it.
StatusBar (statusbar.go) - Run status and key hints.

All components take a *styles.Theme:

	theme, _ := styles.NewTheme(cfg.UI.Theme)
	popup := components.NewMentionPopup(theme, cfg.UI.PopupMaxVisible)
	popup.Anchor(input.Value(), session.TokenStart, promptWidth)
	view := popup.View(session)
*/
package components
