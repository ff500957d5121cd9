// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/fireasync/fbasync"
	"github.com/fireasync/fbasync/dbclient"
	"github.com/fireasync/fbasync/dbclient/memdb"
)

// openDemoConnection builds and opens a Connection against an in-memory
// database identified by app's configured DSN. memdb is the only
// dbclient.Database implementation fbshell ships with; a real deployment
// would dial a DBClient-speaking server instead.
func openDemoConnection(app *appContext) (*fbasync.Connection, error) {
	db := memdb.NewDatabase(memdb.NewEngine())
	c := fbasync.NewConnection(db, dbclient.ConnParams{
		Database: app.cfg.DSN,
		User:     app.cfg.Username,
		Password: app.cfg.Password,
	}, app.log)
	if err := c.OpenSync(app.cfg.QueueTimeout()); err != nil {
		return nil, err
	}
	return c, nil
}
