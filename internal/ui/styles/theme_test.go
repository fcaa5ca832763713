// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestNewTheme_Modes(t *testing.T) {
	dark, err := NewTheme(ModeDark)
	if err != nil {
		t.Fatalf("NewTheme(dark) error: %v", err)
	}
	if !dark.IsDark {
		t.Error("dark theme reports light background")
	}

	light, err := NewTheme("LIGHT")
	if err != nil {
		t.Fatalf("NewTheme(LIGHT) error: %v", err)
	}
	if light.IsDark {
		t.Error("light theme reports dark background")
	}

	if _, err := NewTheme("solarized"); err == nil {
		t.Error("expected error for unknown theme")
	}
}

func TestTheme_Narrow(t *testing.T) {
	th, _ := NewTheme(ModeDark)
	if th.Narrow() {
		t.Error("zero width should not be narrow")
	}
	th.SetSize(40, 20)
	if !th.Narrow() {
		t.Error("40 columns should be narrow")
	}
	th.SetSize(120, 40)
	if th.Narrow() {
		t.Error("120 columns should not be narrow")
	}
}

func TestTheme_RenderNotices(t *testing.T) {
	th, _ := NewTheme(ModeDark)

	if got := th.RenderWarning("settings missing"); !strings.Contains(got, StatusIndicators.Warning) || !strings.Contains(got, "settings missing") {
		t.Errorf("RenderWarning = %q", got)
	}
	if got := th.RenderError("stream failed"); !strings.Contains(got, StatusIndicators.Error) {
		t.Errorf("RenderError = %q", got)
	}
}
