// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fireasync/fbasync"
	"github.com/fireasync/fbasync/dbclient"
	"github.com/fireasync/fbasync/events"
	"github.com/fireasync/fbasync/variant"
)

// newDemoCommand seeds a table, streams it back through a dual-statement
// Buffer, and prints one lazily materialized row — exercising the
// Connection/Transaction/Statement/Buffer surface end to end.
func newDemoCommand(app *appContext) *cobra.Command {
	var rows int
	var peekIndex int

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Seed a table and fetch one row through a lazily materializing buffer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openDemoConnection(app)
			if err != nil {
				return fmt.Errorf("open: %w", err)
			}
			defer c.Shutdown(app.cfg.QueueTimeout())

			tx, err := c.NewTransaction(dbclient.ModeWrite, dbclient.IsolationConcurrency, dbclient.LockWait, nil, app.cfg.QueueTimeout())
			if err != nil {
				return fmt.Errorf("new transaction: %w", err)
			}
			if err := tx.StartSync(app.cfg.QueueTimeout()); err != nil {
				return fmt.Errorf("start transaction: %w", err)
			}

			create, err := tx.Prepare("CREATE TABLE customers(id INT, name VARCHAR(40))", app.cfg.QueueTimeout())
			if err != nil {
				return err
			}
			if _, err := create.ExecuteSync("", nil, false, app.cfg.QueueTimeout()); err != nil {
				return fmt.Errorf("create table: %w", err)
			}

			ins, err := tx.Prepare("INSERT INTO customers(id,name) VALUES(?,?)", app.cfg.QueueTimeout())
			if err != nil {
				return err
			}
			for i := 1; i <= rows; i++ {
				params := []variant.Variant{variant.NewInt(int32(i)), variant.NewText(fmt.Sprintf("customer-%d", i))}
				if _, err := ins.ExecuteSync("", params, false, app.cfg.QueueTimeout()); err != nil {
					return fmt.Errorf("insert row %d: %w", i, err)
				}
			}
			app.log.Info().Int("rows", rows).Msg("seeded table")

			keys, err := tx.Prepare("SELECT id FROM customers ORDER BY id", app.cfg.QueueTimeout())
			if err != nil {
				return err
			}
			data, err := tx.Prepare("SELECT id,name FROM customers WHERE id=?", app.cfg.QueueTimeout())
			if err != nil {
				return err
			}

			buf := fbasync.NewDualStatementBuffer(keys, data, 1, app.cfg.MaterializeTimeout())
			defer buf.Close()

			done := make(chan struct{})
			if rows == 0 {
				close(done)
			}
			unsub := buf.Subscribe(func(e events.Event) {
				if e.Kind == events.RowAppended && buf.Count() >= rows {
					select {
					case done <- struct{}{}:
					default:
					}
				}
			})
			defer unsub()

			if _, err := keys.ExecuteSync("", nil, true, app.cfg.QueueTimeout()); err != nil {
				return fmt.Errorf("start key fetch: %w", err)
			}
			<-done

			if peekIndex < 0 || peekIndex >= rows {
				return fmt.Errorf("peek index %d out of range [0,%d)", peekIndex, rows)
			}
			r, err := buf.Get(peekIndex)
			if err != nil {
				return fmt.Errorf("materialize row %d: %w", peekIndex, err)
			}
			cmd.Printf("row %d: id=%d name=%s\n", peekIndex, r.Get(1).AsInt32(), r.Get(2).AsString())
			return nil
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 100, "number of rows to seed")
	cmd.Flags().IntVar(&peekIndex, "peek", 0, "0-indexed row to lazily materialize and print")
	return cmd
}
