// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/aostock-tui/internal/config"
	"github.com/jeranaias/aostock-tui/internal/logging"
)

// =============================================================================
// CONFIG COMMAND
// =============================================================================

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Long: `Config reads and writes the settings file.

Keys use dot notation, for example server.api_url or
models.analysis.api_key. Run "aostock config keys" for the full list.`,
	}
	cmd.AddCommand(
		newConfigShowCommand(a),
		newConfigGetCommand(a),
		newConfigSetCommand(a),
		newConfigPathCommand(a),
		newConfigKeysCommand(),
	)
	return cmd
}

func newConfigShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config with credentials redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.cfg.String())
			if missing := a.cfg.Missing(); len(missing) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "missing: %s\n", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func newConfigGetCommand(a *app) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			v, err := a.cfg.Get(args[0])
			if err != nil {
				return err
			}
			if s, ok := v.(string); ok && config.IsSecretKey(args[0]) && !reveal {
				v = logging.Redact(s)
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print credentials in full")
	return cmd
}

func newConfigSetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting and save the file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			key, value := args[0], args[1]
			if err := a.cfg.Set(key, value); err != nil {
				return err
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			if err := saveConfig(a.cfg, a.cfgPath); err != nil {
				return err
			}
			shown := value
			if config.IsSecretKey(key) {
				shown = logging.Redact(value)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, shown)
			return nil
		},
	}
}

func newConfigPathCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.cfgPath)
			return nil
		},
	}
}

func newConfigKeysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List every settable key",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, k := range config.GetAllKeys() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
		},
	}
}

// saveConfig writes cfg in the format of path's extension.
func saveConfig(cfg *config.Config, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}
