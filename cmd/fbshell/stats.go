// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fireasync/fbasync/dbclient"
)

// newStatsCommand opens a Connection and prints its server-reported
// identity alongside the worker's own bookkeeping counters.
func newStatsCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Open a connection and print its info fields and worker counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openDemoConnection(app)
			if err != nil {
				return fmt.Errorf("open: %w", err)
			}
			defer c.Shutdown(app.cfg.QueueTimeout())

			for _, f := range []struct {
				name  string
				field dbclient.InfoField
			}{
				{"server", dbclient.InfoServer},
				{"database", dbclient.InfoDatabase},
				{"user", dbclient.InfoUser},
			} {
				v, err := c.Info(f.field, app.cfg.QueueTimeout())
				if err != nil {
					return fmt.Errorf("info %s: %w", f.name, err)
				}
				cmd.Printf("%s: %s\n", f.name, v)
			}

			users, err := c.ConnectedUsers(app.cfg.QueueTimeout())
			if err != nil {
				return fmt.Errorf("connected users: %w", err)
			}
			cmd.Printf("connected users: %v\n", users)
			cmd.Printf("queue depth: %d, rows fetched: %d, commands processed: %d\n",
				c.QueueDepth(), c.RowsFetched(), c.CommandsProcessed())
			return nil
		},
	}
}
