// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for aostock.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, validation and hot reload.
//
// # Key Types
//
//   - Config: main configuration structure
//   - ServerConfig: agent server location and credentials
//   - ModelsConfig: models forwarded to the server-side agents
//   - UIConfig, LogConfig: client preferences
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (AOSTOCK_*)
//   - ~/.aostock/config.toml
//   - ~/.aostock/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, key := range cfg.Missing() {
//	    fmt.Println("please set", key)
//	}
package config
