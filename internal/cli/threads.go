// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/aostock-tui/internal/export"
	"github.com/jeranaias/aostock-tui/internal/storage"
	"github.com/jeranaias/aostock-tui/internal/util"
)

const (
	threadIDWidth   = 36
	threadTimeWidth = 16
)

// =============================================================================
// THREADS COMMAND
// =============================================================================

func newThreadsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List or delete conversation threads",
	}
	cmd.AddCommand(newThreadsListCommand(a), newThreadsDeleteCommand(a), newThreadsExportCommand(a))
	return cmd
}

func newThreadsListCommand(a *app) *cobra.Command {
	var (
		limit   int
		search  string
		offline bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List threads of the configured assistant",
		Long: `List fetches the assistant's threads from the agent server, refreshes
the local cache and prints them newest first. When the server cannot be
reached the cached list is printed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			threads, err := a.listThreads(cmd, limit, search, offline)
			if err != nil {
				return err
			}
			printThreads(cmd.OutOrStdout(), threads)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", storage.DefaultListLimit, "maximum threads to show")
	cmd.Flags().StringVarP(&search, "search", "s", "", "only threads whose title contains this text")
	cmd.Flags().BoolVar(&offline, "offline", false, "read the local cache without contacting the server")
	return cmd
}

// listThreads syncs the cache from the server, then reads it back. Without
// a cache the remote list is returned directly.
func (a *app) listThreads(cmd *cobra.Command, limit int, search string, offline bool) ([]storage.ThreadMeta, error) {
	ctx := cmd.Context()
	client := a.client()
	assistantID := client.AssistantID()
	store := a.threadStore()

	if !offline {
		remote, err := client.SearchThreads(ctx, assistantID, limit)
		switch {
		case err == nil && store == nil:
			return filterThreads(storage.FromThreads(assistantID, remote), search), nil
		case err == nil:
			if err := store.Replace(ctx, assistantID, storage.FromThreads(assistantID, remote)); err != nil {
				a.logger.Warn("THREAD_SYNC_FAILED", zap.Error(err))
			} else {
				a.logger.Debug("THREAD_SYNC", zap.Int("threads", len(remote)))
			}
		case store == nil:
			return nil, errors.New(describeError(err, a.cfg))
		default:
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s; showing cached threads\n", describeError(err, a.cfg))
		}
	}

	if store == nil {
		return nil, errors.New("thread cache unavailable")
	}
	return store.Search(ctx, assistantID, search, limit)
}

// filterThreads applies the --search filter when no cache is available.
func filterThreads(threads []storage.ThreadMeta, search string) []storage.ThreadMeta {
	if search == "" {
		return threads
	}
	out := threads[:0]
	for _, t := range threads {
		if containsFold(t.Title, search) {
			out = append(out, t)
		}
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func printThreads(w io.Writer, threads []storage.ThreadMeta) {
	if len(threads) == 0 {
		fmt.Fprintln(w, "No threads.")
		return
	}
	fmt.Fprintf(w, "%s  %s  %s\n",
		util.PadWidth("ID", threadIDWidth),
		util.PadWidth("UPDATED", threadTimeWidth),
		"TITLE")
	titleWidth := terminalWidth(w) - threadIDWidth - threadTimeWidth - 4
	for _, t := range threads {
		fmt.Fprintf(w, "%s  %s  %s\n",
			util.PadWidth(t.ID, threadIDWidth),
			util.PadWidth(t.UpdatedAt.Local().Format("2006-01-02 15:04"), threadTimeWidth),
			fit(w, util.FirstLine(t.Title), titleWidth))
	}
}

func newThreadsDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <thread-id>...",
		Short: "Delete threads on the server and from the cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			ctx := cmd.Context()
			client := a.client()
			store := a.threadStore()

			for _, id := range args {
				if err := client.DeleteThread(ctx, id); err != nil {
					return fmt.Errorf("failed to delete %s: %s", id, describeError(err, a.cfg))
				}
				if store != nil {
					if err := store.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
						a.logger.Warn("THREAD_CACHE_FAILED", zap.String("thread", id), zap.Error(err))
					}
				}
				a.logger.Info("THREAD_DELETED", zap.String("thread", id))
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return nil
		},
	}
}

func newThreadsExportCommand(a *app) *cobra.Command {
	var (
		format     string
		outputDir  string
		timestamps bool
	)

	cmd := &cobra.Command{
		Use:   "export <thread-id>",
		Short: "Export a thread as Markdown or JSON",
		Long: `Export fetches a thread from the agent server and prints it as Markdown
(the default) or JSON. With --output-dir the export is written to a new
file in that directory instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if err := a.setup(); err != nil {
				return err
			}

			client := a.client()
			sess := newSession(client, a.dir, nil, a.logger)
			if err := sess.resume(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to load thread %s: %s", args[0], describeError(err, a.cfg))
			}

			opts := export.DefaultOptions()
			opts.Directory = a.dir
			opts.AssistantID = client.AssistantID()
			opts.IncludeTimestamps = timestamps
			exp, err := export.New(f, opts)
			if err != nil {
				return err
			}

			if outputDir != "" {
				path, err := export.ExportToFile(sess.conv, exp, outputDir)
				if err != nil {
					return err
				}
				a.logger.Info("THREAD_EXPORTED", zap.String("thread", args[0]), zap.String("path", path))
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			}

			data, err := exp.Export(sess.conv)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "markdown or json")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "write a file here instead of printing")
	cmd.Flags().BoolVar(&timestamps, "timestamps", false, "include message times (markdown)")
	return cmd
}
