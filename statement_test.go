// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package fbasync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fireasync/fbasync/events"
	"github.com/fireasync/fbasync/variant"
)

func seedTable(t *testing.T, tx *Transaction) {
	t.Helper()
	create, err := tx.Prepare("CREATE TABLE t(id INT, name VARCHAR(30))", testTimeout)
	require.NoError(t, err)
	_, err = create.ExecuteSync("", nil, false, testTimeout)
	require.NoError(t, err)

	ins, err := tx.Prepare("INSERT INTO t(id,name) VALUES(?,?)", testTimeout)
	require.NoError(t, err)
	for _, row := range [][2]any{{1, "a"}, {2, "b"}, {3, "c"}} {
		affected, err := ins.ExecuteSync("", []variant.Variant{
			variant.NewInt(int32(row[0].(int))),
			variant.NewText(row[1].(string)),
		}, false, testTimeout)
		require.NoError(t, err)
		require.EqualValues(t, 1, affected)
	}
}

func TestStatementExecuteSyncAndFetchRow(t *testing.T) {
	c := newOpenConnection(t)
	defer c.CloseSync(testTimeout)
	tx := newActiveWriteTx(t, c)
	seedTable(t, tx)

	sel, err := tx.Prepare("SELECT id,name FROM t ORDER BY id", testTimeout)
	require.NoError(t, err)
	_, err = sel.ExecuteSync("", nil, false, testTimeout)
	require.NoError(t, err)

	r, ok, err := sel.FetchRow(testTimeout)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1, r.Get(1).AsInt32())
	require.Equal(t, "a", r.Get(2).AsString())

	_, ok, err = sel.FetchRow(testTimeout)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = sel.FetchRow(testTimeout)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = sel.FetchRow(testTimeout)
	require.NoError(t, err)
	require.False(t, ok, "cursor exhausted after three rows")
}

func TestStatementFetchStreamsEventsInOrder(t *testing.T) {
	c := newOpenConnection(t)
	defer c.CloseSync(testTimeout)
	tx := newActiveWriteTx(t, c)
	seedTable(t, tx)

	sel, err := tx.Prepare("SELECT id,name FROM t ORDER BY id", testTimeout)
	require.NoError(t, err)

	evCh := make(chan events.Event, 16)
	unsub := sel.Subscribe(func(e events.Event) { evCh <- e })
	defer unsub()

	_, err = sel.ExecuteSync("", nil, true, testTimeout)
	require.NoError(t, err)

	var kinds []events.Kind
	var names []string
	deadline := time.After(testTimeout)
	for {
		select {
		case e := <-evCh:
			kinds = append(kinds, e.Kind)
			if e.Kind == events.Fetched {
				names = append(names, e.Row.Get(2).AsString())
			}
			if e.Kind == events.FetchFinished {
				require.Equal(t, []string{"a", "b", "c"}, names)
				require.Equal(t, []events.Kind{events.Executed, events.FetchStarted, events.Fetched, events.Fetched, events.Fetched, events.FetchFinished}, kinds)
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for FetchFinished")
		}
	}
}

func TestStatementStopFetchingLimitsExtraRows(t *testing.T) {
	c := newOpenConnection(t)
	defer c.CloseSync(testTimeout)
	tx := newActiveWriteTx(t, c)

	create, err := tx.Prepare("CREATE TABLE big(id INT)", testTimeout)
	require.NoError(t, err)
	_, err = create.ExecuteSync("", nil, false, testTimeout)
	require.NoError(t, err)

	ins, err := tx.Prepare("INSERT INTO big(id) VALUES(?)", testTimeout)
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		_, err := ins.ExecuteSync("", []variant.Variant{variant.NewInt(int32(i))}, false, testTimeout)
		require.NoError(t, err)
	}

	sel, err := tx.Prepare("SELECT id FROM big ORDER BY id", testTimeout)
	require.NoError(t, err)
	evCh := make(chan events.Event, 256)
	unsub := sel.Subscribe(func(e events.Event) { evCh <- e })
	defer unsub()

	_, err = sel.ExecuteSync("", nil, true, testTimeout)
	require.NoError(t, err)

	fetched := 0
	for fetched < 5 {
		e := <-evCh
		if e.Kind == events.Fetched {
			fetched++
		}
	}
	sel.StopFetching()

	extra := 0
	for {
		select {
		case e := <-evCh:
			if e.Kind == events.Fetched {
				extra++
			}
			if e.Kind == events.FetchFinished {
				require.LessOrEqual(t, extra, 1)
				return
			}
		case <-time.After(testTimeout):
			t.Fatal("FetchFinished never arrived")
		}
	}
}

func TestStatementAsyncExecuteResolvesViaFuture(t *testing.T) {
	c := newOpenConnection(t)
	defer c.CloseSync(testTimeout)
	tx := newActiveWriteTx(t, c)

	create, err := tx.Prepare("CREATE TABLE t(id INT)", testTimeout)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	e, err := create.Execute("", nil, false).Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, events.Executed, e.Kind)
}

func TestStatementPlanAccessor(t *testing.T) {
	c := newOpenConnection(t)
	defer c.CloseSync(testTimeout)
	tx := newActiveWriteTx(t, c)
	seedTable(t, tx)

	sel, err := tx.Prepare("SELECT id,name FROM t ORDER BY id", testTimeout)
	require.NoError(t, err)
	plan, err := sel.Plan(testTimeout)
	require.NoError(t, err)
	require.NotEmpty(t, plan)
}
