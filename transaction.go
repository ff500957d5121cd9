// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package fbasync

import (
	"sync/atomic"
	"time"

	"github.com/fireasync/fbasync/dbclient"
	"github.com/fireasync/fbasync/events"
	"github.com/fireasync/fbasync/internal/engine"
)

// Transaction is the foreground handle to a transaction bound to exactly
// one Connection (C6). It holds a non-owning back-reference to that
// Connection; destruction order is leaves-first — every Statement
// prepared on a Transaction must be closed before the Transaction
// itself, which in turn must be closed before its Connection.
type Transaction struct {
	id        uint64
	conn      *Connection
	mode      dbclient.TransactionMode
	isolation dbclient.Isolation
	lock      dbclient.LockResolution

	active      atomic.Bool
	unsubscribe func()
	deadlockTracker
}

// ID returns the handle identity events for this Transaction carry.
func (t *Transaction) ID() uint64 { return t.id }

// IsActive reports the Transaction's cached state. O(1); mirrored purely
// from TxStarted/TxCommitted/TxRolledBack event delivery, never a worker
// round-trip.
func (t *Transaction) IsActive() bool { return t.active.Load() }

func (t *Transaction) onEvent(e events.Event) {
	switch e.Kind {
	case events.TxStarted:
		t.active.Store(true)
	case events.TxCommitted, events.TxRolledBack:
		t.active.Store(false)
	}
}

// Subscribe registers l for every event this Transaction emits.
func (t *Transaction) Subscribe(l events.Listener) func() {
	return t.conn.Subscribe(t.id, l)
}

// AddReservation reserves a table at the given lock mode. Must be called
// before Start/StartSync; fails with fberrors.ErrTransactionActive
// otherwise.
func (t *Transaction) AddReservation(r dbclient.Reservation, timeout time.Duration) error {
	cmd := engine.NewSync(engine.CmdTxAddReservation)
	cmd.TxID = t.id
	cmd.Reservations = []dbclient.Reservation{r}
	if err := t.conn.queue.Push(cmd); err != nil {
		return err
	}
	res, err := t.awaitSync("Transaction.AddReservation", cmd, timeout)
	if err != nil {
		return err
	}
	return res.Err
}

// Start asynchronously begins the transaction, returning a Future that
// resolves on TxStarted or ErrorEvent.
func (t *Transaction) Start() *Future {
	f := newFuture(t.conn.bus, t.id, events.TxStarted, events.ErrorEvent)
	cmd := engine.NewAsync(engine.CmdTxStart)
	cmd.TxID = t.id
	if err := t.conn.queue.Push(cmd); err != nil {
		f.Cancel()
	}
	return f
}

// StartSync begins the transaction synchronously, blocking up to timeout.
func (t *Transaction) StartSync(timeout time.Duration) error {
	cmd := engine.NewSync(engine.CmdTxStart)
	cmd.TxID = t.id
	if err := t.conn.queue.Push(cmd); err != nil {
		return err
	}
	res, err := t.awaitSync("Transaction.Start", cmd, timeout)
	if err != nil {
		return err
	}
	return res.Err
}

// Commit asynchronously commits the transaction.
func (t *Transaction) Commit() *Future {
	f := newFuture(t.conn.bus, t.id, events.TxCommitted, events.ErrorEvent)
	cmd := engine.NewAsync(engine.CmdTxCommit)
	cmd.TxID = t.id
	if err := t.conn.queue.Push(cmd); err != nil {
		f.Cancel()
	}
	return f
}

// CommitSync commits synchronously, blocking up to timeout.
func (t *Transaction) CommitSync(timeout time.Duration) error {
	cmd := engine.NewSync(engine.CmdTxCommit)
	cmd.TxID = t.id
	if err := t.conn.queue.Push(cmd); err != nil {
		return err
	}
	res, err := t.awaitSync("Transaction.Commit", cmd, timeout)
	if err != nil {
		return err
	}
	return res.Err
}

// CommitRetaining commits and immediately restarts the same transaction
// identity, emitting TxCommitted then TxStarted in that order.
func (t *Transaction) CommitRetaining() *Future {
	f := newFuture(t.conn.bus, t.id, events.TxStarted, events.ErrorEvent)
	cmd := engine.NewAsync(engine.CmdTxCommitRetaining)
	cmd.TxID = t.id
	if err := t.conn.queue.Push(cmd); err != nil {
		f.Cancel()
	}
	return f
}

// CommitRetainingSync does the same synchronously.
func (t *Transaction) CommitRetainingSync(timeout time.Duration) error {
	cmd := engine.NewSync(engine.CmdTxCommitRetaining)
	cmd.TxID = t.id
	if err := t.conn.queue.Push(cmd); err != nil {
		return err
	}
	res, err := t.awaitSync("Transaction.CommitRetaining", cmd, timeout)
	if err != nil {
		return err
	}
	return res.Err
}

// Rollback asynchronously rolls back the transaction.
func (t *Transaction) Rollback() *Future {
	f := newFuture(t.conn.bus, t.id, events.TxRolledBack, events.ErrorEvent)
	cmd := engine.NewAsync(engine.CmdTxRollback)
	cmd.TxID = t.id
	if err := t.conn.queue.Push(cmd); err != nil {
		f.Cancel()
	}
	return f
}

// RollbackSync rolls back synchronously, blocking up to timeout.
func (t *Transaction) RollbackSync(timeout time.Duration) error {
	cmd := engine.NewSync(engine.CmdTxRollback)
	cmd.TxID = t.id
	if err := t.conn.queue.Push(cmd); err != nil {
		return err
	}
	res, err := t.awaitSync("Transaction.Rollback", cmd, timeout)
	if err != nil {
		return err
	}
	return res.Err
}

// Prepare compiles sql against this Transaction and returns a bound
// Statement. Synchronous only: the returned Statement's ID must exist
// before the caller can issue any further command against it.
func (t *Transaction) Prepare(sql string, timeout time.Duration) (*Statement, error) {
	stmtID := t.conn.allocHandleID()
	cmd := engine.NewSync(engine.CmdStmtPrepare)
	cmd.TxID = t.id
	cmd.StmtID = stmtID
	cmd.SQL = sql

	if err := t.conn.queue.Push(cmd); err != nil {
		return nil, err
	}
	res, err := t.awaitSync("Transaction.Prepare", cmd, timeout)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	s := &Statement{
		id:      stmtID,
		tx:      t,
		sql:     sql,
		columns: res.Columns,
	}
	s.deadlockTracker.init(t.conn.log.With().Uint64("stmt_id", stmtID).Logger())
	s.unsubscribe = t.conn.bus.Subscribe(stmtID, s.onEvent)
	return s, nil
}

// Close releases this Transaction's worker-side bookkeeping. It does not
// commit or roll back a still-active transaction; callers must do that
// first. Fire-and-forget: there is nothing meaningful to await.
func (t *Transaction) Close() {
	cmd := engine.NewAsync(engine.CmdTxDestroy)
	cmd.TxID = t.id
	_ = t.conn.queue.Push(cmd)
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
}
