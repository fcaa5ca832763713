// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the aostock TUI.
//
// Colors are lipgloss AdaptiveColors. NewTheme resolves the light or dark
// variant from the ui.theme setting, asking the terminal through termenv
// when the setting is "auto".
package styles
