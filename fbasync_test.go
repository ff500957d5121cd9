// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package fbasync

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fireasync/fbasync/dbclient"
	"github.com/fireasync/fbasync/dbclient/memdb"
)

const testTimeout = 2 * time.Second

// newOpenConnection builds a Connection over a fresh in-memory database
// and opens it synchronously, failing the test on error.
func newOpenConnection(t *testing.T) *Connection {
	t.Helper()
	db := memdb.NewDatabase(memdb.NewEngine())
	c := NewConnection(db, dbclient.ConnParams{Database: "mem:test"}, zerolog.Nop())
	require.NoError(t, c.OpenSync(testTimeout))
	return c
}

// newActiveWriteTx starts a write transaction on c.
func newActiveWriteTx(t *testing.T, c *Connection) *Transaction {
	t.Helper()
	tx, err := c.NewTransaction(dbclient.ModeWrite, dbclient.IsolationConcurrency, dbclient.LockWait, nil, testTimeout)
	require.NoError(t, err)
	require.NoError(t, tx.StartSync(testTimeout))
	return tx
}
