// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fireasync/fbasync/internal/config"
	"github.com/fireasync/fbasync/internal/logging"
)

// appContext is the shared state every subcommand's RunE builds from
// persistent flags: a loaded Config and the zerolog.Logger derived from
// it.
type appContext struct {
	cfg *config.Config
	log zerolog.Logger
}

func newRootCommand() *cobra.Command {
	var configPath string
	app := &appContext{}

	root := &cobra.Command{
		Use:           "fbshell",
		Short:         "Demo client over the fbasync async database library",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.New(configPath)
			if err != nil {
				return err
			}
			app.cfg = cfg
			app.log = logging.New(logging.Options{
				Level:      cfg.LogLevel,
				FilePath:   cfg.LogPath,
				MaxSizeMB:  cfg.LogMaxSizeMB,
				MaxBackups: cfg.LogMaxBackups,
			})
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a fbshell.toml config file")

	root.AddCommand(newDemoCommand(app))
	root.AddCommand(newStatsCommand(app))
	root.AddCommand(newServeCommand(app))
	return root
}
