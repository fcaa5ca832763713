// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme and the ui.theme config key.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	HumanLabel lipgloss.Style
	HumanText  lipgloss.Style
	AILabel    lipgloss.Style
	AIText     lipgloss.Style
	SystemText lipgloss.Style
	MentionTag lipgloss.Style

	// ==========================================================================
	// INPUT
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style

	// ==========================================================================
	// SUGGESTION POPUP
	// ==========================================================================

	Popup         lipgloss.Style
	PopupItem     lipgloss.Style
	PopupSelected lipgloss.Style
	PopupID       lipgloss.Style
	PopupDesc     lipgloss.Style
	PopupMore     lipgloss.Style

	// ==========================================================================
	// STATUS
	// ==========================================================================

	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	Spinner      lipgloss.Style
	Thinking     lipgloss.Style
	Suggestion   lipgloss.Style

	WarningBanner lipgloss.Style
	ErrorText     lipgloss.Style
	SuccessText   lipgloss.Style
}

// NewTheme creates a theme for mode (auto, dark or light). Auto asks the
// terminal for its background.
func NewTheme(mode string) (*Theme, error) {
	profile := termenv.ColorProfile()

	var isDark bool
	switch strings.ToLower(mode) {
	case "", ModeAuto:
		isDark = termenv.HasDarkBackground()
	case ModeDark:
		isDark = true
	case ModeLight:
		isDark = false
	default:
		return nil, fmt.Errorf("unknown theme %q (want auto, dark or light)", mode)
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{IsDark: isDark, ColorProfile: profile}
	t.initStyles()
	return t, nil
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal)

	t.HeaderMeta = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Messages
	t.HumanLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal)

	t.HumanText = lipgloss.NewStyle().
		Foreground(TextPrimary).
		PaddingLeft(2)

	t.AILabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo)

	t.AIText = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.SystemText = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		PaddingLeft(2)

	t.MentionTag = lipgloss.NewStyle().
		Foreground(Teal).
		Bold(true)

	// Input
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Teal).
		Bold(true)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Suggestion popup
	t.Popup = lipgloss.NewStyle().
		Background(Surface).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.PopupItem = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.PopupSelected = lipgloss.NewStyle().
		Background(Indigo).
		Foreground(TextInverse).
		Bold(true)

	t.PopupID = lipgloss.NewStyle().
		Foreground(Teal)

	t.PopupDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.PopupMore = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Status
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Teal).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Indigo)

	t.Thinking = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.Suggestion = lipgloss.NewStyle().
		Foreground(Indigo).
		Underline(true)

	t.WarningBanner = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Amber).
		PaddingLeft(1)

	t.ErrorText = lipgloss.NewStyle().
		Foreground(Loss).
		Bold(true)

	t.SuccessText = lipgloss.NewStyle().
		Foreground(Gain).
		Bold(true)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// Narrow reports whether descriptions should be dropped from the popup.
func (t *Theme) Narrow() bool {
	return t.Width > 0 && t.Width < 60
}

// RenderWarning renders a warning notice with its indicator.
func (t *Theme) RenderWarning(message string) string {
	return t.WarningBanner.Render(StatusIndicators.Warning + " " + message)
}

// RenderError renders an error notice with its indicator.
func (t *Theme) RenderError(message string) string {
	return t.ErrorText.Render(StatusIndicators.Error + " " + message)
}
