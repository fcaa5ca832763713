// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/aostock-tui/internal/agent"
	"github.com/jeranaias/aostock-tui/internal/config"
	"github.com/jeranaias/aostock-tui/internal/logging"
	"github.com/jeranaias/aostock-tui/internal/mention"
	"github.com/jeranaias/aostock-tui/internal/storage"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// APP CONTEXT
// =============================================================================

// app carries what the commands share: flags, config, logger and the
// persona directory. Commands call load or setup before using it.
type app struct {
	configPath string
	verbose    bool

	cfg      *config.Config
	cfgPath  string
	logger   *zap.Logger
	closeLog func() error
	dir      *mention.Directory
	store    *storage.ThreadStore
}

// load reads the config. With --config the named file is used; a missing
// file yields defaults so that "config set" can create it.
func (a *app) load() error {
	if a.cfg != nil {
		return nil
	}

	if a.configPath != "" {
		a.cfgPath = a.configPath
		if _, err := os.Stat(a.configPath); errors.Is(err, os.ErrNotExist) {
			a.cfg = config.Default()
			a.cfg.ApplyEnvOverrides()
			return nil
		}
		cfg, err := config.LoadFromPath(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
		return nil
	}

	path, err := defaultConfigPath()
	if err != nil {
		return err
	}
	a.cfgPath = path

	cfg, err := config.Load()
	if cfg == nil {
		return err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
	}
	a.cfg = cfg
	return nil
}

// setup loads the config, opens the log file and resolves the directory.
func (a *app) setup() error {
	if err := a.load(); err != nil {
		return err
	}
	if a.logger == nil {
		logger, closeFn, err := logging.New(a.cfg.Log, a.verbose)
		if err != nil {
			return err
		}
		a.logger, a.closeLog = logger, closeFn
	}
	if a.dir == nil {
		dir, err := loadDirectory(a.cfg)
		if err != nil {
			return err
		}
		a.dir = dir
	}
	return nil
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
		a.store = nil
	}
	if a.closeLog != nil {
		_ = a.closeLog()
		a.closeLog = nil
	}
}

func (a *app) client() *agent.Client {
	return agent.New(a.cfg, agent.WithLogger(a.logger))
}

// threadStore opens the local thread cache on first use. A cache that
// cannot be opened is logged and treated as absent.
func (a *app) threadStore() *storage.ThreadStore {
	if a.store != nil {
		return a.store
	}
	path, err := storage.DefaultPath()
	if err == nil {
		a.store, err = storage.Open(path)
	}
	if err != nil {
		a.logger.Warn("THREAD_CACHE_FAILED", zap.Error(err))
		return nil
	}
	return a.store
}

// cache returns the thread store as a threadCache, or a nil interface.
func (a *app) cache() threadCache {
	if st := a.threadStore(); st != nil {
		return st
	}
	return nil
}

// defaultConfigPath picks the file "config set" writes when no --config is
// given: an existing JSON file wins only when there is no TOML file.
func defaultConfigPath() (string, error) {
	tomlPath, err := config.ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	jsonPath, err := config.ConfigPathJSON()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath, nil
	}
	return tomlPath, nil
}

func loadDirectory(cfg *config.Config) (*mention.Directory, error) {
	if cfg.Mentions.DirectoryFile == "" {
		return mention.DefaultDirectory(), nil
	}
	dir, err := mention.LoadDirectory(cfg.Mentions.DirectoryFile)
	if err != nil {
		return nil, fmt.Errorf("mentions.directory_file: %w", err)
	}
	return dir, nil
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// newRootCommand builds the aostock command tree. Running it without a
// subcommand starts the chat UI.
func newRootCommand(a *app) *cobra.Command {
	var threadID string

	root := &cobra.Command{
		Use:   "aostock",
		Short: "Terminal client for the AI stock analysis agent",
		Long: `aostock chats with a remote stock analysis agent.

Type @ in the input to address one of the analyst personas, for example
"@ben_graham is AAPL trading below its net current asset value?".`,
		Example: `  # Start the chat UI
  aostock

  # Resume a thread
  aostock chat --thread 6f1c...

  # One-shot question
  aostock ask "@warren_buffett what moat does KO have?"

  # Set the data API key
  aostock config set data.api_key sk-...`,
		Version:       fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd, threadID)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default ~/.aostock/config.toml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.Flags().StringVarP(&threadID, "thread", "t", "", "thread ID to resume")

	root.AddCommand(
		newChatCommand(a),
		newREPLCommand(a),
		newAskCommand(a),
		newThreadsCommand(a),
		newConfigCommand(a),
		newAssistantsCommand(a),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{}
	defer a.close()

	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
