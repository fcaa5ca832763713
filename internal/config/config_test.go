// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

// isolate points the config directory at a fresh temp dir and clears env
// overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AOSTOCK_HOME", dir)
	for _, env := range []string{
		"AOSTOCK_SERVER_URL", "AOSTOCK_ASSISTANT_ID", "AOSTOCK_API_KEY",
		"AOSTOCK_DATA_URL", "AOSTOCK_DATA_KEY", "AOSTOCK_LOG_LEVEL",
	} {
		t.Setenv(env, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

// =============================================================================
// GLOBAL ACCESS
// =============================================================================

// TestConfig_ConcurrentAccess tests that Global(), SetGlobal(), and ReloadGlobal()
// can be safely called concurrently without race conditions.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			c := Default()
			c.Server.AssistantID = "writer"
			SetGlobal(c)
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
		go func() {
			defer wg.Done()
			_ = ReloadGlobal()
		}()
	}
	wg.Wait()
}

func TestConfig_SetGlobalOverwrites(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	_ = Global()
	c := Default()
	c.Server.AssistantID = "ben_graham"
	SetGlobal(c)

	if got := Global().Server.AssistantID; got != "ben_graham" {
		t.Errorf("Global().Server.AssistantID = %q, want ben_graham", got)
	}
}

// =============================================================================
// DEFAULTS AND LOADING
// =============================================================================

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	if cfg.Server.APIURL != "http://localhost:2024" {
		t.Errorf("server.api_url = %q", cfg.Server.APIURL)
	}
	if cfg.Server.AssistantID != "agent" {
		t.Errorf("server.assistant_id = %q", cfg.Server.AssistantID)
	}
	if cfg.Data.APIURL != "http://127.0.0.1:8000/" || cfg.Data.APIKey != "test" {
		t.Errorf("data = %+v", cfg.Data)
	}
	if cfg.Models.IntentRecognition.Model != "gpt-4o-mini" || cfg.Models.Analysis.Model != "gpt-4o" {
		t.Errorf("models = %+v", cfg.Models)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.AssistantID != "agent" {
		t.Errorf("assistant_id = %q, want default", cfg.Server.AssistantID)
	}
}

func TestLoad_TOMLPartialFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), `
[server]
api_url = "https://agents.example.com/"
assistant_id = "warren_buffett"

[models.analysis]
api_key = "sk-analysis"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Unversioned file: migrated, trailing slash trimmed.
	if cfg.Server.APIURL != "https://agents.example.com" {
		t.Errorf("api_url = %q", cfg.Server.APIURL)
	}
	if cfg.Version != CurrentVersion {
		t.Errorf("version = %q, want %q", cfg.Version, CurrentVersion)
	}
	if cfg.Server.AssistantID != "warren_buffett" {
		t.Errorf("assistant_id = %q", cfg.Server.AssistantID)
	}
	if cfg.Models.Analysis.Model != "gpt-4o" {
		t.Errorf("analysis model default lost: %q", cfg.Models.Analysis.Model)
	}
	if cfg.Models.Analysis.APIKey != "sk-analysis" {
		t.Errorf("analysis key = %q", cfg.Models.Analysis.APIKey)
	}
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.json"), `{"version":"1","server":{"assistant_id":"ben_graham"}}`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.AssistantID != "ben_graham" {
		t.Errorf("assistant_id = %q", cfg.Server.AssistantID)
	}
}

func TestLoad_BrokenFileFallsBackToDefaults(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), "[server\napi_url = ")

	cfg, err := Load()
	if err == nil {
		t.Fatal("expected decode error")
	}
	if cfg == nil || cfg.Server.APIURL != "http://localhost:2024" {
		t.Errorf("expected default config alongside error, got %+v", cfg)
	}
}

func TestLoad_FixesPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "version = \"1\"\n")
	if err := os.Chmod(path, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %o, want 600", info.Mode().Perm())
	}
}

func TestLoad_UnsupportedVersion(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "version = \"9\"\n")

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected migration error")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("AOSTOCK_SERVER_URL", "https://override.example.com")
	t.Setenv("AOSTOCK_ASSISTANT_ID", "cathie_wood")
	t.Setenv("AOSTOCK_DATA_KEY", "data-key")
	t.Setenv("AOSTOCK_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.APIURL != "https://override.example.com" {
		t.Errorf("api_url = %q", cfg.Server.APIURL)
	}
	if cfg.Server.AssistantID != "cathie_wood" {
		t.Errorf("assistant_id = %q", cfg.Server.AssistantID)
	}
	if cfg.Data.APIKey != "data-key" {
		t.Errorf("data.api_key = %q", cfg.Data.APIKey)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
}

// =============================================================================
// SAVE
// =============================================================================

func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Models.IntentRecognition.APIKey = "sk-intent"
	cfg.Mentions.DirectoryFile = "/tmp/personas.yaml"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "# aostock configuration file") {
		t.Errorf("missing header:\n%s", data)
	}
	if runtime.GOOS != "windows" {
		info, _ := os.Stat(path)
		if info.Mode().Perm() != 0600 {
			t.Errorf("mode = %o, want 600", info.Mode().Perm())
		}
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty server url", func(c *Config) { c.Server.APIURL = "" }, "server.api_url"},
		{"bad scheme", func(c *Config) { c.Server.APIURL = "ftp://host" }, "server.api_url"},
		{"no host", func(c *Config) { c.Server.APIURL = "http://" }, "server.api_url"},
		{"empty assistant", func(c *Config) { c.Server.AssistantID = "  " }, "server.assistant_id"},
		{"empty data url", func(c *Config) { c.Data.APIURL = "" }, "data.api_url"},
		{"bad api base", func(c *Config) { c.Models.Analysis.APIBase = "nope" }, "models.analysis.api_base"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"popup too small", func(c *Config) { c.UI.PopupMaxVisible = 0 }, "ui.popup_max_visible"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"negative backups", func(c *Config) { c.Log.MaxBackups = -1 }, "log"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()

			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verrs ValidateErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidateErrors, got %v", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tc.wantErr {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %s in %v", tc.wantErr, verrs)
			}
		})
	}
}

func TestConfig_Missing(t *testing.T) {
	cfg := Default()
	got := cfg.Missing()
	want := []string{"models.intent_recognition.api_key", "models.analysis.api_key"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Missing() = %v, want %v", got, want)
	}

	cfg.Data.APIKey = ""
	cfg.Models.IntentRecognition.APIKey = "a"
	cfg.Models.Analysis.APIKey = "b"
	if got := cfg.Missing(); len(got) != 1 || got[0] != "data.api_key" {
		t.Errorf("Missing() = %v", got)
	}
}

// =============================================================================
// GET / SET
// =============================================================================

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("server.assistant_id", "peter_lynch"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cfg.Set("ui.popup_max_visible", "12"); err != nil {
		t.Fatalf("Set int: %v", err)
	}
	if err := cfg.Set("ui.render_markdown", "false"); err != nil {
		t.Fatalf("Set bool: %v", err)
	}
	if err := cfg.Set("models.intent_recognition.api_base", "https://llm.example.com/v1"); err != nil {
		t.Fatalf("Set nested: %v", err)
	}

	if v, _ := cfg.Get("server.assistant_id"); v != "peter_lynch" {
		t.Errorf("assistant_id = %v", v)
	}
	if cfg.UI.PopupMaxVisible != 12 {
		t.Errorf("popup_max_visible = %d", cfg.UI.PopupMaxVisible)
	}
	if cfg.UI.RenderMarkdown {
		t.Error("render_markdown should be false")
	}
	if cfg.Models.IntentRecognition.APIBase != "https://llm.example.com/v1" {
		t.Errorf("api_base = %q", cfg.Models.IntentRecognition.APIBase)
	}

	for _, bad := range []string{"", "server.nope", "server.api_url.deeper", "ui"} {
		if err := cfg.Set(bad, "x"); err == nil {
			t.Errorf("Set(%q) should fail", bad)
		}
	}
	if err := cfg.Set("ui.popup_max_visible", "many"); err == nil {
		t.Error("Set with non-integer should fail")
	}
}

func TestGetAllKeys_Resolve(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q): %v", key, err)
		}
	}
}

func TestConfig_StringRedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Server.APIKey = "lsv2-secret"
	cfg.Models.Analysis.APIKey = "sk-secret"

	s := cfg.String()
	if strings.Contains(s, "secret") {
		t.Errorf("String() leaked a key:\n%s", s)
	}
	if !strings.Contains(s, "[REDACTED]") {
		t.Errorf("String() should mark redacted keys:\n%s", s)
	}
	if cfg.Server.APIKey != "lsv2-secret" {
		t.Error("String() mutated the original config")
	}
}
