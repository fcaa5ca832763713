// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the application logger.
//
// The TUI owns the terminal, so logs go to a size-rotated JSON file under
// the config directory. Messages follow the "EVENT | detail" convention with
// structured fields:
//
//	log.Info("RUN_START", zap.String("thread", id), zap.Strings("mentions", ids))
package logging
