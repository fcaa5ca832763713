// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/aostock-tui/internal/config"
	"github.com/jeranaias/aostock-tui/internal/mention"
)

const historyFileName = "repl_history"

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader reads one line of input per prompt. io.EOF ends the session.
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// editor is a liner-backed reader with history and @mention tab
// completion.
type editor struct {
	line        *liner.State
	historyFile string
}

func newEditor(ctrl *mention.Controller) *editor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetTabCompletionStyle(liner.TabPrints)
	line.SetWordCompleter(ctrl.Complete)

	e := &editor{line: line}
	if dir, err := config.ConfigDir(); err == nil {
		e.historyFile = filepath.Join(dir, historyFileName)
		if f, err := os.Open(e.historyFile); err == nil {
			_, _ = line.ReadHistory(f)
			f.Close()
		}
	}
	return e
}

func (e *editor) Prompt(prompt string) (string, error) {
	input, err := e.line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		e.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with 0600 permissions and restores the terminal.
func (e *editor) Close() error {
	if e.historyFile != "" && config.EnsureConfigDir() == nil {
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = e.line.WriteHistory(f)
			f.Close()
		}
	}
	return e.line.Close()
}

// plainReader reads lines from a pipe without prompting.
type plainReader struct {
	scanner *bufio.Scanner
}

func newPlainReader(r io.Reader) *plainReader {
	return &plainReader{scanner: bufio.NewScanner(r)}
}

func (p *plainReader) Prompt(string) (string, error) {
	if p.scanner.Scan() {
		return p.scanner.Text(), nil
	}
	if err := p.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (p *plainReader) Close() error { return nil }

// =============================================================================
// REPL COMMAND
// =============================================================================

func newREPLCommand(a *app) *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Line-mode chat with @mention tab completion",
		Long: `Repl chats with the agent one line at a time.

Type @ and press Tab to complete an analyst name. Commands:
  /new          start a new thread
  /thread       print the current thread ID
  /assistants   list the analysts
  /quit         exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runREPL(cmd, threadID)
		},
	}
	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "thread ID to resume")
	return cmd
}

func (a *app) runREPL(cmd *cobra.Command, threadID string) error {
	if err := a.setup(); err != nil {
		return err
	}

	var in lineReader
	if interactive(cmd.InOrStdin(), cmd.OutOrStdout()) {
		in = newEditor(mention.New(a.dir))
	} else {
		in = newPlainReader(cmd.InOrStdin())
	}
	defer in.Close()

	return a.repl(cmd.Context(), in, cmd.OutOrStdout(), cmd.ErrOrStderr(), threadID)
}

// repl runs the read-send-print loop until EOF or /quit.
func (a *app) repl(ctx context.Context, in lineReader, out, errOut io.Writer, threadID string) error {
	warnMissing(errOut, a.cfg)

	sess := newSession(a.client(), a.dir, a.cache(), a.logger)
	p := newPrinter(out, a.cfg, a.dir)

	if threadID != "" {
		if err := sess.resume(ctx, threadID); err != nil {
			return fmt.Errorf("failed to load thread %s: %s", threadID, describeError(err, a.cfg))
		}
		if last := sess.conv.LastAI(); last != nil {
			p.reply(last)
		}
	}

	for {
		line, err := in.Prompt("aostock> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/new":
			sess = newSession(sess.backend, a.dir, sess.cache, a.logger)
			fmt.Fprintln(out, "New thread.")
			continue
		case line == "/thread":
			if sess.threadID == "" {
				fmt.Fprintln(out, "No thread yet.")
			} else {
				fmt.Fprintln(out, sess.threadID)
			}
			continue
		case line == "/assistants":
			printDirectory(out, a.dir)
			continue
		case strings.HasPrefix(line, "/"):
			p.errorf("unknown command %s", line)
			continue
		}

		runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		reply, err := sess.send(runCtx, line)
		stop()
		switch {
		case errors.Is(err, context.Canceled) && ctx.Err() == nil:
			fmt.Fprintln(out, "Stopped.")
		case err != nil:
			p.errorf("%s", describeError(err, a.cfg))
		default:
			p.reply(reply)
			p.suggestions(sess.conv.Suggestions)
		}
		fmt.Fprintln(out)
	}
}
