// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/aostock-tui/internal/model"
)

// MaxEventSize caps a single SSE event. values events carry the whole
// thread, so this is generous.
const MaxEventSize = 8 * 1024 * 1024

// =============================================================================
// EVENTS
// =============================================================================

// Event types emitted by StreamRun.
const (
	EventMetadata = "metadata"
	EventValues   = "values"
	EventError    = "error"
	EventEnd      = "end"
)

// StreamEvent is one event of a run stream.
type StreamEvent struct {
	Type string
	// RunID is set on metadata events.
	RunID string
	// State is set on values events and holds the full thread state.
	State *State
	// Err is set on error events and on transport failures. It is the last
	// event before the channel closes.
	Err error
}

// RunInput is the input of one run.
type RunInput struct {
	// Messages are appended to the thread, usually pending tool responses
	// followed by the new human message.
	Messages []*model.Message
	// Assistant routes the run to a single persona. Empty lets the graph
	// decide.
	Assistant string
}

type runRequest struct {
	AssistantID string                 `json:"assistant_id"`
	Input       map[string]interface{} `json:"input"`
	StreamMode  []string               `json:"stream_mode"`
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent reads the next event and returns its type and data.
// Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var data []byte
	hasData := false

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && hasData {
				return eventType, data, nil
			}
			return "", nil, err
		}
		line = bytes.TrimRight(line, "\r\n")

		if len(line) == 0 {
			if hasData {
				return eventType, data, nil
			}
			eventType = ""
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[len("event:"):]))
		case bytes.HasPrefix(line, []byte("data:")):
			v := bytes.TrimPrefix(line[len("data:"):], []byte(" "))
			if hasData {
				data = append(data, '\n')
			}
			data = append(data, v...)
			hasData = true
			if len(data) > MaxEventSize {
				return "", nil, fmt.Errorf("event exceeded maximum size of %d bytes", MaxEventSize)
			}
		}
		// id:, retry: and ":" comments are ignored.
	}
}

// =============================================================================
// STREAMING RUNS
// =============================================================================

// StreamRun starts a run on threadID and streams its events. The channel is
// closed when the run ends, fails, or ctx is cancelled. Cancelling ctx is how
// a caller stops a run.
func (c *Client) StreamRun(ctx context.Context, threadID string, in RunInput) (<-chan StreamEvent, error) {
	if threadID == "" {
		return nil, fmt.Errorf("%w: empty thread id", ErrThreadNotFound)
	}

	input := map[string]interface{}{}
	msgs := make([]wireMessage, 0, len(in.Messages))
	for _, m := range in.Messages {
		msgs = append(msgs, toWire(m))
	}
	input["messages"] = msgs
	if in.Assistant != "" {
		input["assistant"] = in.Assistant
	}

	body := runRequest{
		AssistantID: c.assistantID,
		Input:       input,
		StreamMode:  []string{EventValues},
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/runs/stream", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	c.logger.Info("RUN_START",
		zap.String("thread", threadID),
		zap.String("assistant", in.Assistant),
		zap.Int("messages", len(in.Messages)))

	resp, err := c.streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := readResponse(resp.Body)
		return nil, newAPIError(resp.StatusCode, data)
	}

	events := make(chan StreamEvent)
	go c.pump(ctx, threadID, resp.Body, events)
	return events, nil
}

func (c *Client) pump(ctx context.Context, threadID string, body io.ReadCloser, events chan<- StreamEvent) {
	defer close(events)
	defer body.Close()

	// Closing the body unblocks a read stuck on a silent connection.
	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer stop()

	start := time.Now()
	send := func(ev StreamEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	reader := NewSSEReader(body)
	for {
		eventType, data, err := reader.ReadEvent()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				c.logger.Info("RUN_STOPPED", zap.String("thread", threadID), zap.Duration("elapsed", time.Since(start)))
			case errors.Is(err, io.EOF):
				c.logger.Info("RUN_END", zap.String("thread", threadID), zap.Duration("elapsed", time.Since(start)))
			default:
				c.logger.Warn("RUN_FAILED", zap.String("thread", threadID), zap.Error(err))
				send(StreamEvent{Type: EventError, Err: fmt.Errorf("stream read failed: %w", err)})
			}
			return
		}

		ev, ok := decodeEvent(eventType, data)
		if !ok {
			c.logger.Debug("RUN_EVENT_SKIPPED", zap.String("event", eventType))
			continue
		}
		if ev.Type == EventEnd {
			c.logger.Info("RUN_END", zap.String("thread", threadID), zap.Duration("elapsed", time.Since(start)))
			return
		}
		if !send(ev) {
			return
		}
		if ev.Type == EventError {
			c.logger.Warn("RUN_FAILED", zap.String("thread", threadID), zap.Error(ev.Err))
			return
		}
	}
}

// decodeEvent maps one SSE event onto a StreamEvent. Unknown event types
// and malformed payloads are skipped.
func decodeEvent(eventType string, data []byte) (StreamEvent, bool) {
	switch eventType {
	case EventMetadata:
		var meta struct {
			RunID string `json:"run_id"`
		}
		if err := json.Unmarshal(data, &meta); err != nil {
			return StreamEvent{}, false
		}
		return StreamEvent{Type: EventMetadata, RunID: meta.RunID}, true

	case EventValues:
		var ws wireState
		if err := json.Unmarshal(data, &ws); err != nil {
			return StreamEvent{}, false
		}
		st := ws.state()
		return StreamEvent{Type: EventValues, State: &st}, true

	case EventError:
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		msg := string(data)
		if json.Unmarshal(data, &payload) == nil {
			if payload.Message != "" {
				msg = payload.Message
			} else if payload.Error != "" {
				msg = payload.Error
			}
		}
		return StreamEvent{Type: EventError, Err: fmt.Errorf("run failed: %s", msg)}, true

	case EventEnd:
		return StreamEvent{Type: EventEnd}, true
	}
	return StreamEvent{}, false
}
