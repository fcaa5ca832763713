// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeranaias/aostock-tui/internal/mention"
	"github.com/jeranaias/aostock-tui/internal/util"
)

func newAssistantsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "assistants [filter]",
		Aliases: []string{"personas"},
		Short:   "List the analysts that can be @mentioned",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			dir, err := loadDirectory(a.cfg)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				printMentionables(cmd.OutOrStdout(), dir.Filter(args[0]))
				return nil
			}
			printDirectory(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

func printDirectory(w io.Writer, dir *mention.Directory) {
	printMentionables(w, dir.All())
}

func printMentionables(w io.Writer, entries []mention.Mentionable) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No matching assistants.")
		return
	}
	idWidth := 0
	for _, m := range entries {
		if n := util.StringWidth(m.Token()); n > idWidth {
			idWidth = n
		}
	}
	for _, m := range entries {
		line := util.PadWidth(m.Token(), idWidth) + "  " + m.DisplayName
		if m.Description != "" {
			line += " - " + m.Description
		}
		fmt.Fprintln(w, fit(w, line, terminalWidth(w)))
	}
}
