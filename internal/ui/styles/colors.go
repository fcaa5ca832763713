// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// All colors are AdaptiveColor so lipgloss picks the light or dark variant
// from the detected background.

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Teal - Brand color, prompt, mentions
var Teal = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}

// Indigo - Assistant replies, selections
var Indigo = lipgloss.AdaptiveColor{Light: "#4338CA", Dark: "#A5B4FC"}

// Gain - Positive figures, success
var Gain = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}

// Loss - Negative figures, errors
var Loss = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}

// Amber - Warnings, missing settings
var Amber = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// Surface - Popup and panel background
var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1B1D27"}

// SurfaceDim - Header and status bar background
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#14151C"}

// Overlay - Borders and separators
var Overlay = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#343746"}

// =============================================================================
// TEXT COLORS
// =============================================================================

// TextPrimary - Body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#E5E7EB"}

// TextSecondary - Labels
var TextSecondary = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"}

// TextMuted - Hints, timestamps
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"}

// TextInverse - Text on accent backgrounds
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#111827"}

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// StatusIndicatorSet pairs each status with a symbol so state is never
// conveyed by color alone.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
}

// StatusIndicators are the symbols used in banners and notices.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[!!]",
	Warning: "[!]",
	Info:    "[i]",
}
