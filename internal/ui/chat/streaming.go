// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/aostock-tui/internal/agent"
	"github.com/jeranaias/aostock-tui/internal/storage"
)

// =============================================================================
// RUN COMMANDS
// =============================================================================

// startRun creates the thread when threadID is empty, then opens the run
// stream.
func startRun(ctx context.Context, backend Backend, runID int, threadID string, in agent.RunInput) tea.Cmd {
	return func() tea.Msg {
		created := false
		if threadID == "" {
			cctx, cancel := context.WithTimeout(ctx, requestTimeout)
			thread, err := backend.CreateThread(cctx)
			cancel()
			if err != nil {
				return runFailedMsg{runID: runID, err: err}
			}
			threadID = thread.ThreadID
			created = true
		}

		events, err := backend.StreamRun(ctx, threadID, in)
		if err != nil {
			return runFailedMsg{runID: runID, threadID: threadID, created: created, err: err}
		}
		return runStartedMsg{runID: runID, threadID: threadID, created: created, events: events}
	}
}

// waitForEvent delivers the next event of a run, or runDoneMsg once the
// channel closes.
func waitForEvent(runID int, events <-chan agent.StreamEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return runDoneMsg{runID: runID}
		}
		return runEventMsg{runID: runID, event: ev}
	}
}

// =============================================================================
// THREAD COMMANDS
// =============================================================================

func loadThread(backend Backend, threadID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		thread, err := backend.GetThread(ctx, threadID)
		return threadLoadedMsg{thread: thread, err: err}
	}
}

// syncThreads mirrors the assistant's remote threads into the cache.
func syncThreads(backend Backend, cache ThreadCache, logger *zap.Logger) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		assistantID := backend.AssistantID()
		threads, err := backend.SearchThreads(ctx, assistantID, 0)
		if err != nil {
			logger.Warn("THREAD_SYNC_FAILED", zap.Error(err))
			return threadsSyncedMsg{err: err}
		}
		if err := cache.Replace(ctx, assistantID, storage.FromThreads(assistantID, threads)); err != nil {
			logger.Warn("THREAD_SYNC_FAILED", zap.Error(err))
			return threadsSyncedMsg{err: err}
		}
		logger.Debug("THREAD_SYNC", zap.Int("threads", len(threads)))
		return threadsSyncedMsg{count: len(threads)}
	}
}

// cacheThread records a thread after a run. Errors are logged only.
func cacheThread(cache ThreadCache, logger *zap.Logger, meta storage.ThreadMeta) tea.Cmd {
	if cache == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cache.Upsert(ctx, meta); err != nil {
			logger.Warn("THREAD_CACHE_FAILED", zap.String("thread", meta.ID), zap.Error(err))
		}
		return nil
	}
}
