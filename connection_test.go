// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package fbasync

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fireasync/fbasync/dbclient"
	"github.com/fireasync/fbasync/dbclient/memdb"
	"github.com/fireasync/fbasync/events"
	"github.com/fireasync/fbasync/fberrors"
)

func TestConnectionOpenCloseLifecycle(t *testing.T) {
	c := newOpenConnection(t)
	require.True(t, c.IsOpen())

	require.NoError(t, c.CloseSync(testTimeout))
	require.False(t, c.IsOpen())
}

func TestConnectionOpenAsyncResolves(t *testing.T) {
	db := memdb.NewDatabase(memdb.NewEngine())
	c := NewConnection(db, dbclient.ConnParams{Database: "mem:async"}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	e, err := c.Open().Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, events.Opened, e.Kind)
	require.True(t, c.IsOpen())

	require.NoError(t, c.CloseSync(testTimeout))
}

func TestConnectionInfoAndConnectedUsers(t *testing.T) {
	c := newOpenConnection(t)
	defer c.CloseSync(testTimeout)

	dbName, err := c.Info(dbclient.InfoDatabase, testTimeout)
	require.NoError(t, err)
	require.Equal(t, "mem:test", dbName)

	users, err := c.ConnectedUsers(testTimeout)
	require.NoError(t, err)
	require.Contains(t, users, "SYSDBA")
}

func TestConnectionCloseIsIdempotent(t *testing.T) {
	c := newOpenConnection(t)
	require.NoError(t, c.CloseSync(testTimeout))
	require.NoError(t, c.CloseSync(testTimeout))
	require.False(t, c.IsOpen())
}

func TestConnectionRequireServerVersion(t *testing.T) {
	c := newOpenConnection(t)
	defer c.CloseSync(testTimeout)

	ok, err := c.RequireServerVersion(">= 1.0.0")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.RequireServerVersion(">= 99.0.0")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = c.RequireServerVersion("not a constraint")
	require.Error(t, err)
}

func TestConnectionShutdownStopsWorker(t *testing.T) {
	c := newOpenConnection(t)

	require.NoError(t, c.Shutdown(testTimeout))
	require.False(t, c.IsOpen())

	select {
	case <-c.workerDone:
	default:
		t.Fatal("worker goroutine did not exit after Shutdown returned")
	}

	_, err := c.Info(dbclient.InfoDatabase, testTimeout)
	require.ErrorIs(t, err, fberrors.ErrQueueClosed)
}

func TestConnectionShutdownIsIdempotent(t *testing.T) {
	c := newOpenConnection(t)
	require.NoError(t, c.Shutdown(testTimeout))
	require.NoError(t, c.Shutdown(testTimeout))
}

func TestConnectionNewTransactionAllocatesAddressableHandle(t *testing.T) {
	c := newOpenConnection(t)
	defer c.CloseSync(testTimeout)

	tx, err := c.NewTransaction(dbclient.ModeWrite, dbclient.IsolationConcurrency, dbclient.LockWait, nil, testTimeout)
	require.NoError(t, err)
	require.NotZero(t, tx.ID())
	require.False(t, tx.IsActive())

	require.NoError(t, tx.StartSync(testTimeout))
	require.True(t, tx.IsActive())
	require.NoError(t, tx.CommitSync(testTimeout))
	require.False(t, tx.IsActive())
}
