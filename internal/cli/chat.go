// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/aostock-tui/internal/agent"
	"github.com/jeranaias/aostock-tui/internal/config"
	"github.com/jeranaias/aostock-tui/internal/ui/chat"
	"github.com/jeranaias/aostock-tui/internal/ui/styles"
)

// =============================================================================
// CHAT COMMAND
// =============================================================================

func newChatCommand(a *app) *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Full-screen chat (the default command)",
		Long: `Chat opens the full-screen chat UI.

Keys: enter sends, esc stops a run or closes the mention list, ctrl+n
starts a new thread, ctrl+y copies the last reply, ctrl+c quits.

When standard input or output is not a terminal, chat falls back to
line mode (see "aostock repl").`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd, threadID)
		},
	}
	cmd.Flags().StringVarP(&threadID, "thread", "t", "", "thread ID to resume")
	return cmd
}

func (a *app) runChat(cmd *cobra.Command, threadID string) error {
	if !interactive(cmd.InOrStdin(), cmd.OutOrStdout()) {
		return a.runREPL(cmd, threadID)
	}
	if err := a.setup(); err != nil {
		return err
	}

	theme, err := styles.NewTheme(a.cfg.UI.Theme)
	if err != nil {
		return err
	}

	opts := chat.Options{
		Config:    a.cfg,
		Backend:   a.client(),
		Directory: a.dir,
		Theme:     theme,
		Logger:    a.logger,
		ThreadID:  threadID,
		NewBackend: func(cfg *config.Config) chat.Backend {
			return agent.New(cfg, agent.WithLogger(a.logger))
		},
	}
	if st := a.threadStore(); st != nil {
		opts.Cache = st
	}

	m, err := chat.New(opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.watchConfig(ctx, p)
	}()

	a.logger.Info("TUI_START", zap.String("server", a.cfg.Server.APIURL), zap.String("thread", threadID))
	_, err = p.Run()
	cancel()
	wg.Wait()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat UI: %w", err)
	}
	return nil
}

// watchConfig forwards config file changes to the running program until
// ctx is cancelled.
func (a *app) watchConfig(ctx context.Context, p *tea.Program) {
	if a.cfgPath == "" {
		return
	}
	if a.configPath == "" {
		if err := config.EnsureConfigDir(); err != nil {
			a.logger.Warn("CONFIG_WATCH_FAILED", zap.Error(err))
			return
		}
	}

	err := config.Watch(ctx, a.cfgPath, config.DefaultWatchDebounce, func(cfg *config.Config, err error) {
		p.Send(chat.ConfigReloadedMsg{Config: cfg, Err: err})
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		a.logger.Warn("CONFIG_WATCH_FAILED", zap.Error(err))
	}
}
