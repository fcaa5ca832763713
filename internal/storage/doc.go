// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage caches thread history for the aostock TUI.
//
// The server owns threads and their messages. This package keeps a local
// SQLite copy of the thread list (ID, persona, title, timestamps) so the
// history renders offline and before a remote search completes.
//
// # Usage
//
//	store, err := storage.Open(path)
//	defer store.Close()
//
//	err = store.Replace(ctx, assistantID, fromServer)
//	threads, err := store.List(ctx, assistantID, 0)
//
// # Storage Location
//
// The database lives at ~/.aostock/threads.db unless AOSTOCK_HOME is set.
package storage
