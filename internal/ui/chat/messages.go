// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/aostock-tui/internal/agent"
	"github.com/jeranaias/aostock-tui/internal/config"
)

// =============================================================================
// THREAD MESSAGES
// =============================================================================

// threadLoadedMsg delivers a thread fetched at startup.
type threadLoadedMsg struct {
	thread *agent.Thread
	err    error
}

// threadsSyncedMsg reports a remote thread search mirrored into the cache.
type threadsSyncedMsg struct {
	count int
	err   error
}

// =============================================================================
// RUN MESSAGES
// =============================================================================

// runStartedMsg signals that a run stream is open.
type runStartedMsg struct {
	runID    int
	threadID string
	created  bool
	events   <-chan agent.StreamEvent
}

// runEventMsg delivers one event of the run identified by runID.
type runEventMsg struct {
	runID int
	event agent.StreamEvent
}

// runDoneMsg signals that the run's event channel closed.
type runDoneMsg struct {
	runID int
}

// runFailedMsg reports a run that could not start. threadID is set when
// the thread was created before the failure.
type runFailedMsg struct {
	runID    int
	threadID string
	created  bool
	err      error
}

// =============================================================================
// MISC MESSAGES
// =============================================================================

// copiedMsg reports the result of a clipboard copy.
type copiedMsg struct {
	size int
	err  error
}

// ConfigReloadedMsg is sent by the host when the config file changes on
// disk.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}
