// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package fbasync

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/fireasync/fbasync/dbclient"
	"github.com/fireasync/fbasync/events"
	"github.com/fireasync/fbasync/fberrors"
	"github.com/fireasync/fbasync/row"
	"github.com/fireasync/fbasync/variant"
)

// BufferKind distinguishes the two Buffer population strategies.
type BufferKind int

const (
	// BufferSingleStatement mirrors one Statement's Fetched events
	// directly; every appended row is already fully materialized.
	BufferSingleStatement BufferKind = iota
	// BufferDualStatement mirrors a primary key-only Statement's Fetched
	// events as placeholders, materializing each one lazily through a
	// second, parameterized data Statement on first access.
	BufferDualStatement
)

type bufferEntry struct {
	materialized bool
	row          row.Row
}

// Buffer is the thread-safe, append-only row cache (C8). It lazy-loads
// rows through a second, parameterised lookup statement in dual-statement
// mode, so a grid can display millions of keys without ever fetching a
// full record the user never scrolls to.
//
// Buffer owns a private event bus: its Cleared/RowAppended/RowDeleted/
// ColumnsChanged/RowFetched notifications are a different vocabulary
// than Connection/Transaction/Statement events and are never mixed onto
// the Connection's bus.
type Buffer struct {
	mu      sync.Mutex
	kind    BufferKind
	entries []bufferEntry
	columns []dbclient.ColumnMeta

	primary   *Statement
	data      *Statement
	keyColumn int

	timeout time.Duration
	sf      singleflight.Group
	// dataMu serializes use of the shared data statement: singleflight
	// only dedups identical indices, but two different not-yet-materialized
	// indices still share one cursor-bearing Statement and must not
	// execute/fetch concurrently against it.
	dataMu sync.Mutex

	bus                *events.Bus
	unsubscribePrimary func()
	unsubscribeData    func()
}

// NewSingleStatementBuffer builds a Buffer that mirrors primary's Fetched
// events as already-materialized rows. primary must already be prepared
// and streaming (or about to start streaming); the caller retains
// ownership of primary and must Close it independently.
func NewSingleStatementBuffer(primary *Statement) *Buffer {
	b := &Buffer{
		kind:    BufferSingleStatement,
		primary: primary,
		bus:     events.NewBus(),
		columns: primary.Columns(),
	}
	b.unsubscribePrimary = primary.Subscribe(b.onPrimaryEvent)
	return b
}

// NewDualStatementBuffer builds a Buffer that mirrors primary's Fetched
// events as unmaterialized placeholders keyed by keyColumn (1-indexed,
// into the primary's row), materializing each placeholder on first Get
// by binding that key value as data's sole parameter, executing it
// synchronously and fetching its one row. timeout bounds that
// synchronous materialization round-trip.
func NewDualStatementBuffer(primary, data *Statement, keyColumn int, timeout time.Duration) *Buffer {
	b := &Buffer{
		kind:      BufferDualStatement,
		primary:   primary,
		data:      data,
		keyColumn: keyColumn,
		timeout:   timeout,
		bus:       events.NewBus(),
		columns:   data.Columns(),
	}
	b.unsubscribePrimary = primary.Subscribe(b.onPrimaryEvent)
	b.unsubscribeData = data.Subscribe(b.onDataEvent)
	return b
}

// onPrimaryEvent handles the key-fetching statement's events. Fetched
// rows become new placeholder (or, in single-statement mode, already
// materialized) entries. In single-statement mode the primary's own
// Columns are also this Buffer's displayed columns, so a re-prepare that
// changes them is tracked here; in dual-statement mode the displayed
// shape comes from the data statement instead, handled by onDataEvent.
func (b *Buffer) onPrimaryEvent(e events.Event) {
	switch e.Kind {
	case events.Fetched:
		b.appendRow(e.Row)
	case events.Prepared, events.Executed:
		if b.kind == BufferSingleStatement {
			b.updateColumns(e.Columns)
		}
	}
}

// onDataEvent handles the dual-statement mode's lookup statement. A
// re-prepare that changes its columns changes the shape every lazily
// materialized row will come back as, so it's surfaced as ColumnsChanged
// the same way a primary re-prepare is in single-statement mode.
func (b *Buffer) onDataEvent(e events.Event) {
	switch e.Kind {
	case events.Prepared, events.Executed:
		b.updateColumns(e.Columns)
	}
}

func (b *Buffer) appendRow(r row.Row) {
	b.mu.Lock()
	idx := len(b.entries)
	materialized := b.kind == BufferSingleStatement
	b.entries = append(b.entries, bufferEntry{materialized: materialized, row: r})
	b.mu.Unlock()
	b.bus.Emit(events.Event{Kind: events.RowAppended, Index: idx})
}

func (b *Buffer) updateColumns(cols []dbclient.ColumnMeta) {
	b.mu.Lock()
	changed := !columnsEqual(b.columns, cols)
	if changed {
		b.columns = cols
	}
	b.mu.Unlock()
	if changed {
		b.bus.Emit(events.Event{Kind: events.ColumnsChanged, Columns: cols})
	}
}

func columnsEqual(a, b []dbclient.ColumnMeta) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Subscribe registers l for every event this Buffer emits.
func (b *Buffer) Subscribe(l events.Listener) func() {
	return b.bus.SubscribeAll(l)
}

// Count returns the number of rows currently held, materialized or not.
func (b *Buffer) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// ColumnCount returns the number of columns a fully materialized row in
// this Buffer carries.
func (b *Buffer) ColumnCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.columns)
}

// Append appends an already-materialized row directly, bypassing the
// primary statement's fetch stream. Useful for seeding a Buffer with
// rows obtained some other way.
func (b *Buffer) Append(r row.Row) {
	b.mu.Lock()
	idx := len(b.entries)
	b.entries = append(b.entries, bufferEntry{materialized: true, row: r})
	b.mu.Unlock()
	b.bus.Emit(events.Event{Kind: events.RowAppended, Index: idx})
}

// DeleteAt removes the row at index, shifting later rows down by one.
func (b *Buffer) DeleteAt(index int) error {
	b.mu.Lock()
	if index < 0 || index >= len(b.entries) {
		b.mu.Unlock()
		return fmt.Errorf("fbasync: buffer index %d out of range", index)
	}
	b.entries = append(b.entries[:index], b.entries[index+1:]...)
	b.mu.Unlock()
	b.bus.Emit(events.Event{Kind: events.RowDeleted, Index: index})
	return nil
}

// Get returns the row at index, materializing it first if necessary.
// Materialization for a given index is deduplicated across concurrent
// callers via singleflight, so two goroutines calling Get(500) at once
// trigger exactly one data-statement round-trip.
func (b *Buffer) Get(index int) (row.Row, error) {
	b.mu.Lock()
	if index < 0 || index >= len(b.entries) {
		b.mu.Unlock()
		return row.Row{}, fmt.Errorf("fbasync: buffer index %d out of range", index)
	}
	entry := b.entries[index]
	b.mu.Unlock()

	if entry.materialized {
		return entry.row, nil
	}
	return b.materialize(index, entry.row)
}

// Set overwrites the row at index with r and marks it materialized,
// suppressing any further lazy materialization for that position.
func (b *Buffer) Set(index int, r row.Row) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.entries) {
		return fmt.Errorf("fbasync: buffer index %d out of range", index)
	}
	b.entries[index] = bufferEntry{materialized: true, row: r}
	return nil
}

// Clear discards every row.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.entries = nil
	b.mu.Unlock()
	b.bus.Emit(events.Event{Kind: events.Cleared})
}

func (b *Buffer) materialize(index int, key row.Row) (row.Row, error) {
	key64 := fmt.Sprintf("%d", index)
	result, err, _ := b.sf.Do(key64, func() (any, error) {
		b.dataMu.Lock()
		defer b.dataMu.Unlock()
		keyVal := key.Get(b.keyColumn)
		if _, err := b.data.ExecuteSync("", []variant.Variant{keyVal}, false, b.timeout); err != nil {
			return nil, err
		}
		full, ok, err := b.data.FetchRow(b.timeout)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fberrors.ErrUsage
		}
		return full, nil
	})
	if err != nil {
		return row.Row{}, err
	}
	full := result.(row.Row)

	b.mu.Lock()
	if index < len(b.entries) && !b.entries[index].materialized {
		b.entries[index] = bufferEntry{materialized: true, row: full}
	}
	b.mu.Unlock()
	b.bus.Emit(events.Event{Kind: events.RowFetched, Index: index, Row: full})
	return full, nil
}

// Close unsubscribes this Buffer from its primary statement. It does not
// close the primary or data statements themselves.
func (b *Buffer) Close() {
	if b.unsubscribePrimary != nil {
		b.unsubscribePrimary()
	}
	if b.unsubscribeData != nil {
		b.unsubscribeData()
	}
}
