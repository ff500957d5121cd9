// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package fbasync

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fireasync/fbasync/dbclient"
	"github.com/fireasync/fbasync/fberrors"
)

func TestTransactionAddReservationFailsAfterStart(t *testing.T) {
	c := newOpenConnection(t)
	defer c.CloseSync(testTimeout)

	tx, err := c.NewTransaction(dbclient.ModeWrite, dbclient.IsolationConcurrency, dbclient.LockWait, nil, testTimeout)
	require.NoError(t, err)
	require.NoError(t, tx.AddReservation(dbclient.Reservation{Table: "t", Mode: dbclient.ProtectedWrite}, testTimeout))

	require.NoError(t, tx.StartSync(testTimeout))
	err = tx.AddReservation(dbclient.Reservation{Table: "t", Mode: dbclient.ProtectedWrite}, testTimeout)
	require.ErrorIs(t, err, fberrors.ErrTransactionActive)
}

func TestTransactionCommitRetainingRestartsIdentity(t *testing.T) {
	c := newOpenConnection(t)
	defer c.CloseSync(testTimeout)
	tx := newActiveWriteTx(t, c)

	require.NoError(t, tx.CommitRetainingSync(testTimeout))
	require.True(t, tx.IsActive())
	txID := tx.ID()

	require.NoError(t, tx.RollbackSync(testTimeout))
	require.False(t, tx.IsActive())
	require.Equal(t, txID, tx.ID(), "commit_retaining preserves transaction identity")
}

func TestTransactionPrepareReturnsAddressableStatement(t *testing.T) {
	c := newOpenConnection(t)
	defer c.CloseSync(testTimeout)
	tx := newActiveWriteTx(t, c)

	stmt, err := tx.Prepare("CREATE TABLE t(id INT)", testTimeout)
	require.NoError(t, err)
	require.NotZero(t, stmt.ID())
	require.Equal(t, "CREATE TABLE t(id INT)", stmt.SQL())
}
