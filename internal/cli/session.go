// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/aostock-tui/internal/agent"
	"github.com/jeranaias/aostock-tui/internal/mention"
	"github.com/jeranaias/aostock-tui/internal/model"
	"github.com/jeranaias/aostock-tui/internal/storage"
)

// errNoReply is returned when a run ends without a new AI message.
var errNoReply = errors.New("agent returned no reply")

// runner is the slice of the agent client a line-mode session needs.
type runner interface {
	AssistantID() string
	CreateThread(ctx context.Context) (*agent.Thread, error)
	GetThread(ctx context.Context, threadID string) (*agent.Thread, error)
	StreamRun(ctx context.Context, threadID string, in agent.RunInput) (<-chan agent.StreamEvent, error)
}

// threadCache records threads after each turn.
type threadCache interface {
	Upsert(ctx context.Context, t storage.ThreadMeta) error
}

// =============================================================================
// LINE-MODE SESSION
// =============================================================================

// session is a conversation driven one line at a time, used by "ask" and
// "repl". It mirrors what the chat UI does on submit without the screen.
type session struct {
	backend runner
	dir     *mention.Directory
	cache   threadCache
	logger  *zap.Logger

	conv     *model.Conversation
	threadID string
}

func newSession(backend runner, dir *mention.Directory, cache threadCache, logger *zap.Logger) *session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &session{
		backend: backend,
		dir:     dir,
		cache:   cache,
		logger:  logger,
		conv:    model.NewConversation(),
	}
}

// resume binds the session to an existing thread and loads its messages.
func (s *session) resume(ctx context.Context, threadID string) error {
	thread, err := s.backend.GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	state := thread.State()
	s.conv = model.NewConversation()
	s.conv.ThreadID = thread.ThreadID
	s.conv.Replace(state.Messages)
	s.conv.Suggestions = state.Suggestions
	s.threadID = thread.ThreadID
	return nil
}

// send submits text as a human turn and waits for the run to finish. The
// returned message is the agent's reply.
func (s *session) send(ctx context.Context, text string) (*model.Message, error) {
	var ids []string
	for _, e := range s.dir.Mentions(text) {
		ids = append(ids, e.ID)
	}
	human := model.NewHumanMessage(text, ids...)
	messages := append(s.conv.PendingToolResponses(), human)
	s.conv.AddMessage(human)
	s.conv.Suggestions = nil

	if s.threadID == "" {
		thread, err := s.backend.CreateThread(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create thread: %w", err)
		}
		s.threadID = thread.ThreadID
		s.conv.ThreadID = thread.ThreadID
	}

	s.logger.Info("SUBMIT",
		zap.String("thread", s.threadID),
		zap.Strings("mentions", ids),
		zap.Int("messages", len(messages)))

	in := agent.RunInput{Messages: messages, Assistant: human.AssistantHint()}
	events, err := s.backend.StreamRun(ctx, s.threadID, in)
	if err != nil {
		return nil, err
	}

	var runErr error
	for ev := range events {
		switch ev.Type {
		case agent.EventValues:
			if ev.State != nil {
				s.conv.Replace(ev.State.Messages)
				s.conv.Suggestions = ev.State.Suggestions
			}
		case agent.EventError:
			runErr = ev.Err
		}
	}
	if runErr != nil {
		return nil, runErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.record(ctx)

	visible := s.conv.Visible()
	if len(visible) == 0 || visible[len(visible)-1].Role != model.RoleAI {
		return nil, errNoReply
	}
	return visible[len(visible)-1], nil
}

// record upserts the thread into the local cache. Failures are logged.
func (s *session) record(ctx context.Context) {
	if s.cache == nil {
		return
	}
	title := s.conv.GetTitle()
	if last := s.conv.LastHuman(); title == "" && last != nil {
		title = last.Preview(80)
	}
	meta := storage.ThreadMeta{
		ID:          s.threadID,
		AssistantID: s.backend.AssistantID(),
		Title:       title,
		CreatedAt:   s.conv.CreatedAt,
		UpdatedAt:   time.Now(),
	}
	if err := s.cache.Upsert(ctx, meta); err != nil {
		s.logger.Warn("THREAD_CACHE_FAILED", zap.String("thread", meta.ID), zap.Error(err))
	}
}
