// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package memdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fireasync/fbasync/dbclient"
	"github.com/fireasync/fbasync/variant"
)

func TestCreateInsertSelect(t *testing.T) {
	ctx := context.Background()
	db := NewDatabase(NewEngine())
	require.NoError(t, db.Open(ctx, dbclient.ConnParams{Database: "mem:people"}))

	tx, err := db.NewTransaction(dbclient.ModeWrite, dbclient.IsolationConcurrency, dbclient.LockWait, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Start(ctx))

	create, err := tx.Prepare(ctx, "CREATE TABLE people(id INT, name VARCHAR(30))")
	require.NoError(t, err)
	_, err = create.Execute(ctx, nil)
	require.NoError(t, err)

	ins, err := tx.Prepare(ctx, "INSERT INTO people(id,name) VALUES(?,?)")
	require.NoError(t, err)
	require.Equal(t, 2, ins.ParamCount())
	affected, err := ins.Execute(ctx, []variant.Variant{variant.NewInt(1), variant.NewText("ada")})
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	_, err = ins.Execute(ctx, []variant.Variant{variant.NewInt(2), variant.NewText("grace")})
	require.NoError(t, err)

	sel, err := tx.Prepare(ctx, "SELECT id,name FROM people ORDER BY id")
	require.NoError(t, err)
	_, err = sel.Execute(ctx, nil)
	require.NoError(t, err)

	var rows [][]variant.Variant
	for {
		row, ok, err := sel.FetchNext(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	require.Len(t, rows, 2)
	require.Equal(t, "ada", rows[0][1].AsString())
	require.Equal(t, "grace", rows[1][1].AsString())

	require.NoError(t, tx.Commit(ctx))
}

func TestSelectWhereAndCount(t *testing.T) {
	ctx := context.Background()
	eng := NewEngine()
	db := NewDatabase(eng)
	require.NoError(t, db.Open(ctx, dbclient.ConnParams{Database: "mem:t"}))
	tx, _ := db.NewTransaction(dbclient.ModeWrite, dbclient.IsolationConcurrency, dbclient.LockWait, nil)
	require.NoError(t, tx.Start(ctx))

	create, _ := tx.Prepare(ctx, "CREATE TABLE t(id INT, val DOUBLE)")
	_, err := create.Execute(ctx, nil)
	require.NoError(t, err)

	ins, _ := tx.Prepare(ctx, "INSERT INTO t(id,val) VALUES(?,?)")
	_, _ = ins.Execute(ctx, []variant.Variant{variant.NewInt(1), variant.NewDouble(1.5)})
	_, _ = ins.Execute(ctx, []variant.Variant{variant.NewInt(2), variant.NewDouble(2.5)})

	count, err := tx.Prepare(ctx, "SELECT COUNT(*) FROM t")
	require.NoError(t, err)
	_, err = count.Execute(ctx, nil)
	require.NoError(t, err)
	row, ok, err := count.FetchNext(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 2, row[0].AsInt64())

	where, err := tx.Prepare(ctx, "SELECT * FROM t WHERE id=?")
	require.NoError(t, err)
	require.Equal(t, 1, where.ParamCount())
	_, err = where.Execute(ctx, []variant.Variant{variant.NewInt(2)})
	require.NoError(t, err)
	row, ok, err = where.FetchNext(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.InDelta(t, 2.5, row[1].AsFloat64(), 1e-9)
	_, ok, _ = where.FetchNext(ctx)
	require.False(t, ok)
}
