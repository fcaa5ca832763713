// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/aostock-tui/internal/util"
)

// maxStdinQuery caps a question piped on stdin.
const maxStdinQuery = 64 * 1024

// =============================================================================
// ASK COMMAND
// =============================================================================

func newAskCommand(a *app) *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Ask one question and print the reply",
		Long: `Ask sends a single message to the agent and prints the reply.

The message can mention an analyst with @id. Without arguments the message
is read from standard input.`,
		Example: `  aostock ask "@ben_graham is INTC a net-net?"
  echo "Summarize NVDA's last quarter" | aostock ask
  aostock ask --thread 6f1c... "and compared to AMD?"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" && !isTerminal(cmd.InOrStdin()) {
				data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxStdinQuery))
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				query = strings.TrimSpace(string(data))
			}
			if query == "" {
				return errors.New("no message given")
			}
			return a.runAsk(cmd, threadID, query)
		},
	}
	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "thread ID to continue")
	return cmd
}

func (a *app) runAsk(cmd *cobra.Command, threadID, query string) error {
	if err := a.setup(); err != nil {
		return err
	}
	warnMissing(cmd.ErrOrStderr(), a.cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sess := newSession(a.client(), a.dir, a.cache(), a.logger)
	if threadID != "" {
		if err := sess.resume(ctx, threadID); err != nil {
			return fmt.Errorf("failed to load thread %s: %s", threadID, describeError(err, a.cfg))
		}
	}

	a.logger.Debug("ASK", zap.String("query", util.TruncateRunes(query, 80)))
	reply, err := sess.send(ctx, query)
	if err != nil {
		return errors.New(describeError(err, a.cfg))
	}

	p := newPrinter(cmd.OutOrStdout(), a.cfg, a.dir)
	p.reply(reply)
	p.suggestions(sess.conv.Suggestions)
	if threadID == "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "thread: %s\n", sess.threadID)
	}
	return nil
}

// warnMissing prints the settings the agent needs but the config lacks.
func warnMissing(w io.Writer, cfg interface{ Missing() []string }) {
	missing := cfg.Missing()
	if len(missing) == 0 {
		return
	}
	fmt.Fprintf(w, "Warning: missing settings: %s\n", strings.Join(missing, ", "))
	fmt.Fprintln(w, "Set them with `aostock config set <key> <value>`.")
}
