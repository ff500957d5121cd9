// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package fbasync

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fireasync/fbasync/events"
	"github.com/fireasync/fbasync/variant"
)

func seedManyRows(t *testing.T, tx *Transaction, n int) {
	t.Helper()
	create, err := tx.Prepare("CREATE TABLE t(id INT, name VARCHAR(30))", testTimeout)
	require.NoError(t, err)
	_, err = create.ExecuteSync("", nil, false, testTimeout)
	require.NoError(t, err)

	ins, err := tx.Prepare("INSERT INTO t(id,name) VALUES(?,?)", testTimeout)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, err := ins.ExecuteSync("", []variant.Variant{
			variant.NewInt(int32(i + 1)),
			variant.NewText("row"),
		}, false, testTimeout)
		require.NoError(t, err)
	}
}

func TestBufferSingleStatementModeMaterializesDirectly(t *testing.T) {
	c := newOpenConnection(t)
	defer c.CloseSync(testTimeout)
	tx := newActiveWriteTx(t, c)
	seedManyRows(t, tx, 3)

	sel, err := tx.Prepare("SELECT id,name FROM t ORDER BY id", testTimeout)
	require.NoError(t, err)
	buf := NewSingleStatementBuffer(sel)
	defer buf.Close()

	_, err = sel.ExecuteSync("", nil, true, testTimeout)
	require.NoError(t, err)
	waitForBufferCount(t, buf, 3)

	r, err := buf.Get(0)
	require.NoError(t, err)
	require.EqualValues(t, 1, r.Get(1).AsInt32())
}

func TestBufferDualStatementModeIsLazy(t *testing.T) {
	c := newOpenConnection(t)
	defer c.CloseSync(testTimeout)
	tx := newActiveWriteTx(t, c)
	seedManyRows(t, tx, 1000)

	keys, err := tx.Prepare("SELECT id FROM t ORDER BY id", testTimeout)
	require.NoError(t, err)
	data, err := tx.Prepare("SELECT id,name FROM t WHERE id=?", testTimeout)
	require.NoError(t, err)

	buf := NewDualStatementBuffer(keys, data, 1, testTimeout)
	defer buf.Close()

	var rowFetched int
	var mu sync.Mutex
	unsub := buf.Subscribe(func(e events.Event) {
		if e.Kind == events.RowFetched {
			mu.Lock()
			rowFetched++
			mu.Unlock()
		}
	})
	defer unsub()

	_, err = keys.ExecuteSync("", nil, true, testTimeout)
	require.NoError(t, err)
	waitForBufferCount(t, buf, 1000)

	r, err := buf.Get(500)
	require.NoError(t, err)
	require.EqualValues(t, 501, r.Get(1).AsInt32(), "1-indexed over the 0-indexed array")

	mu.Lock()
	require.Equal(t, 1, rowFetched)
	mu.Unlock()
}

func TestBufferGetDedupsConcurrentMaterialization(t *testing.T) {
	c := newOpenConnection(t)
	defer c.CloseSync(testTimeout)
	tx := newActiveWriteTx(t, c)
	seedManyRows(t, tx, 50)

	keys, err := tx.Prepare("SELECT id FROM t ORDER BY id", testTimeout)
	require.NoError(t, err)
	data, err := tx.Prepare("SELECT id,name FROM t WHERE id=?", testTimeout)
	require.NoError(t, err)

	buf := NewDualStatementBuffer(keys, data, 1, testTimeout)
	defer buf.Close()

	_, err = keys.ExecuteSync("", nil, true, testTimeout)
	require.NoError(t, err)
	waitForBufferCount(t, buf, 50)

	var wg sync.WaitGroup
	results := make([]int32, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := buf.Get(10)
			require.NoError(t, err)
			results[i] = r.Get(1).AsInt32()
		}(i)
	}
	wg.Wait()
	for _, v := range results {
		require.EqualValues(t, 11, v)
	}
}

func TestBufferClearAndDeleteAt(t *testing.T) {
	c := newOpenConnection(t)
	defer c.CloseSync(testTimeout)
	tx := newActiveWriteTx(t, c)
	seedManyRows(t, tx, 3)

	sel, err := tx.Prepare("SELECT id,name FROM t ORDER BY id", testTimeout)
	require.NoError(t, err)
	buf := NewSingleStatementBuffer(sel)
	defer buf.Close()

	_, err = sel.ExecuteSync("", nil, true, testTimeout)
	require.NoError(t, err)
	waitForBufferCount(t, buf, 3)

	require.NoError(t, buf.DeleteAt(1))
	require.Equal(t, 2, buf.Count())

	buf.Clear()
	require.Equal(t, 0, buf.Count())
}

func TestBufferEmitsColumnsChangedOnDataReprepare(t *testing.T) {
	c := newOpenConnection(t)
	defer c.CloseSync(testTimeout)
	tx := newActiveWriteTx(t, c)
	seedManyRows(t, tx, 5)

	keys, err := tx.Prepare("SELECT id FROM t ORDER BY id", testTimeout)
	require.NoError(t, err)
	data, err := tx.Prepare("SELECT id,name FROM t WHERE id=?", testTimeout)
	require.NoError(t, err)

	buf := NewDualStatementBuffer(keys, data, 1, testTimeout)
	defer buf.Close()
	require.Equal(t, 2, buf.ColumnCount())

	var mu sync.Mutex
	var changed []events.Event
	unsub := buf.Subscribe(func(e events.Event) {
		if e.Kind == events.ColumnsChanged {
			mu.Lock()
			changed = append(changed, e)
			mu.Unlock()
		}
	})
	defer unsub()

	_, err = data.ExecuteSync("SELECT id FROM t WHERE id=?", []variant.Variant{variant.NewInt(1)}, false, testTimeout)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changed) == 1
	}, testTimeout, 5*time.Millisecond)
	require.Equal(t, 1, buf.ColumnCount())
}

func waitForBufferCount(t *testing.T, buf *Buffer, n int) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for time.Now().Before(deadline) {
		if buf.Count() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("buffer never reached %d rows (have %d)", n, buf.Count())
}
