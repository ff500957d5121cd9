// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package fbasync

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/fireasync/fbasync/dbclient"
	"github.com/fireasync/fbasync/events"
	"github.com/fireasync/fbasync/internal/engine"
	"github.com/fireasync/fbasync/row"
	"github.com/fireasync/fbasync/variant"
)

// Statement is the foreground handle to a prepared/executed statement,
// including its streaming fetch surface (C7). It holds non-owning
// back-references to its Transaction and, through it, its Connection.
type Statement struct {
	id uint64
	tx *Transaction

	mu       sync.RWMutex
	sql      string
	columns  []dbclient.ColumnMeta
	affected int64
	fetching atomic.Bool

	unsubscribe func()
	deadlockTracker
}

// ID returns the handle identity events for this Statement carry.
func (s *Statement) ID() uint64 { return s.id }

func (s *Statement) onEvent(e events.Event) {
	switch e.Kind {
	case events.Prepared:
		s.mu.Lock()
		s.columns = e.Columns
		s.mu.Unlock()
	case events.Executed:
		s.mu.Lock()
		s.columns = e.Columns
		s.affected = e.Affected
		s.mu.Unlock()
	case events.FetchStarted:
		s.fetching.Store(true)
	case events.FetchFinished:
		s.fetching.Store(false)
	}
}

// Subscribe registers l for every event this Statement emits (Prepared,
// Executed, FetchStarted, Fetched, FetchFinished, ErrorEvent).
func (s *Statement) Subscribe(l events.Listener) func() {
	return s.tx.conn.Subscribe(s.id, l)
}

// SQL returns the last prepared or executed-with-sql statement text,
// cached on the foreground side.
func (s *Statement) SQL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sql
}

// Columns returns the current column metadata, cached from the last
// Prepared or Executed event — O(1), no worker round-trip.
func (s *Statement) Columns() []dbclient.ColumnMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.columns
}

// AffectedRows returns the row count from the last Execute, cached from
// the Executed event.
func (s *Statement) AffectedRows() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.affected
}

// IsFetching reports whether a streaming fetch is currently in flight.
func (s *Statement) IsFetching() bool { return s.fetching.Load() }

// Plan returns the server's query plan for this statement. Metadata
// accessor, synchronous by nature.
func (s *Statement) Plan(timeout time.Duration) (string, error) {
	cmd := engine.NewSync(engine.CmdStmtPlan)
	cmd.StmtID = s.id
	if err := s.tx.conn.queue.Push(cmd); err != nil {
		return "", err
	}
	res, err := s.awaitSync("Statement.Plan", cmd, timeout)
	if err != nil {
		return "", err
	}
	return res.Plan, res.Err
}

// SetParam asynchronously binds one 1-indexed positional parameter.
func (s *Statement) SetParam(column int, value variant.Variant) *Future {
	f := newFuture(s.tx.conn.bus, s.id, events.ErrorEvent)
	cmd := engine.NewAsync(engine.CmdStmtSetParam)
	cmd.StmtID = s.id
	cmd.Column = column
	cmd.Value = value
	if err := s.tx.conn.queue.Push(cmd); err != nil {
		f.Cancel()
	}
	return f
}

// SetParamSync binds synchronously, blocking up to timeout.
func (s *Statement) SetParamSync(column int, value variant.Variant, timeout time.Duration) error {
	cmd := engine.NewSync(engine.CmdStmtSetParam)
	cmd.StmtID = s.id
	cmd.Column = column
	cmd.Value = value
	if err := s.tx.conn.queue.Push(cmd); err != nil {
		return err
	}
	res, err := s.awaitSync("Statement.SetParam", cmd, timeout)
	if err != nil {
		return err
	}
	return res.Err
}

// Execute runs the prepared statement. sql may be empty to mean "use the
// last prepared text"; params may be nil to mean "no positional
// parameters bound via this call" (parameters already bound through
// SetParam still apply); startFetch implies an implicit fetch() once
// execution completes. This is the four-argument fusion from the
// Statement surface.
func (s *Statement) Execute(sql string, params []variant.Variant, startFetch bool) *Future {
	kinds := []events.Kind{events.Executed, events.ErrorEvent}
	if startFetch {
		kinds = append(kinds, events.FetchFinished)
	}
	f := newFuture(s.tx.conn.bus, s.id, kinds...)
	cmd := engine.NewAsync(engine.CmdStmtExecute)
	cmd.StmtID = s.id
	cmd.SQL = sql
	cmd.Params = params
	cmd.StartFetch = startFetch
	if sql != "" {
		s.mu.Lock()
		s.sql = sql
		s.mu.Unlock()
	}
	if err := s.tx.conn.queue.Push(cmd); err != nil {
		f.Cancel()
	}
	return f
}

// ExecuteSync runs the prepared statement synchronously, blocking up to
// timeout, and returns the affected row count.
func (s *Statement) ExecuteSync(sql string, params []variant.Variant, startFetch bool, timeout time.Duration) (int64, error) {
	cmd := engine.NewSync(engine.CmdStmtExecute)
	cmd.StmtID = s.id
	cmd.SQL = sql
	cmd.Params = params
	cmd.StartFetch = startFetch
	if sql != "" {
		s.mu.Lock()
		s.sql = sql
		s.mu.Unlock()
	}
	if err := s.tx.conn.queue.Push(cmd); err != nil {
		return 0, err
	}
	res, err := s.awaitSync("Statement.Execute", cmd, timeout)
	if err != nil {
		return 0, err
	}
	if res.Err != nil {
		return 0, res.Err
	}
	s.mu.Lock()
	s.affected = res.Affected
	s.mu.Unlock()
	return res.Affected, nil
}

// Fetch kicks off asynchronous streaming per the worker's FetchStarted/
// Fetched/FetchFinished protocol. Callers consume rows by subscribing,
// not by awaiting a single Future — a stream produces many events.
func (s *Statement) Fetch() {
	cmd := engine.NewAsync(engine.CmdStmtStartFetch)
	cmd.StmtID = s.id
	_ = s.tx.conn.queue.Push(cmd)
}

// FetchRow synchronously pulls exactly one row from the cursor. ok is
// false once the cursor is exhausted.
func (s *Statement) FetchRow(timeout time.Duration) (row.Row, bool, error) {
	cmd := engine.NewSync(engine.CmdStmtFetchOne)
	cmd.StmtID = s.id
	if err := s.tx.conn.queue.Push(cmd); err != nil {
		return row.Row{}, false, err
	}
	res, err := s.awaitSync("Statement.FetchRow", cmd, timeout)
	if err != nil {
		return row.Row{}, false, err
	}
	if res.Err != nil {
		return row.Row{}, false, res.Err
	}
	if !res.RowOK {
		return row.Row{}, false, nil
	}
	return row.New(s.Columns(), res.Row), true, nil
}

// StopFetching sets the cooperative cancellation flag for a running
// stream. Per spec this is observed between rows: at most one further
// Fetched may be delivered before FetchFinished. It talks straight to
// the worker's lock-free flag registry rather than going through the
// command queue, since it must take effect without waiting in line
// behind whatever else is queued.
func (s *Statement) StopFetching() {
	s.tx.conn.worker.StopFetch(s.id)
}

// Close releases the statement's cursor and worker-side bookkeeping.
// Fire-and-forget.
func (s *Statement) Close() {
	cmd := engine.NewAsync(engine.CmdStmtClose)
	cmd.StmtID = s.id
	_ = s.tx.conn.queue.Push(cmd)
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}
