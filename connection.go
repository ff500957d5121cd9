// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package fbasync

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/fireasync/fbasync/dbclient"
	"github.com/fireasync/fbasync/events"
	"github.com/fireasync/fbasync/fberrors"
	"github.com/fireasync/fbasync/internal/engine"
)

// Connection is the top-level foreground handle (C5): one per logical
// database connection, backed by exactly one worker goroutine that owns
// the underlying dbclient.Database and every Transaction/Statement it
// produces. A Connection is constructed and immediately starts its
// worker, but is not open until Open/OpenSync succeeds.
type Connection struct {
	id     uint64
	queue  *engine.Queue
	bus    *events.Bus
	worker *engine.Worker
	log    zerolog.Logger

	// workerDone closes once the worker goroutine's Run loop has actually
	// returned, letting Shutdown distinguish "the worker observed our
	// Shutdown command" from "the worker goroutine has exited".
	workerDone chan struct{}

	nextHandleID atomic.Uint64
	isOpen       atomic.Bool
	deadlockTracker
}

// NewConnection builds a Connection around db and starts its worker
// goroutine. db must not have been opened yet; params are supplied to
// Open when it eventually runs.
func NewConnection(db dbclient.Database, params dbclient.ConnParams, log zerolog.Logger) *Connection {
	id := allocConnID()
	queue := engine.NewQueue()
	bus := events.NewBus()
	w := engine.NewWorker(db, params, queue, bus, id, log)

	c := &Connection{
		id:         id,
		queue:      queue,
		bus:        bus,
		worker:     w,
		log:        log.With().Uint64("conn_id", id).Logger(),
		workerDone: make(chan struct{}),
	}
	c.deadlockTracker.init(c.log)
	c.nextHandleID.Store(id)
	bus.Subscribe(id, func(e events.Event) {
		switch e.Kind {
		case events.Opened:
			c.isOpen.Store(true)
		case events.Closed:
			c.isOpen.Store(false)
		}
	})
	go func() {
		w.Run()
		close(c.workerDone)
	}()
	return c
}

// ID returns the handle identity events for this Connection carry.
func (c *Connection) ID() uint64 { return c.id }

// allocHandleID hands out the next Transaction/Statement handle ID for
// this Connection. IDs are assigned here, on the foreground, before the
// corresponding create/prepare command is even pushed, so callers can
// address a not-yet-created handle in commands queued right behind it.
func (c *Connection) allocHandleID() uint64 { return c.nextHandleID.Add(1) }

// Subscribe registers l for every event carrying handleID. The returned
// func cancels the subscription.
func (c *Connection) Subscribe(handleID uint64, l events.Listener) func() {
	return c.bus.Subscribe(handleID, l)
}

// SubscribeAll registers l for every event this Connection's worker
// emits, regardless of which handle produced it.
func (c *Connection) SubscribeAll(l events.Listener) func() {
	return c.bus.SubscribeAll(l)
}

// Open asynchronously connects to the database, returning a Future that
// resolves on Opened or ErrorEvent.
func (c *Connection) Open() *Future {
	f := newFuture(c.bus, c.id, events.Opened, events.ErrorEvent)
	cmd := engine.NewAsync(engine.CmdConnOpen)
	cmd.ConnHandleID = c.id
	if err := c.queue.Push(cmd); err != nil {
		f.Cancel()
	}
	return f
}

// OpenSync connects synchronously, blocking up to timeout.
func (c *Connection) OpenSync(timeout time.Duration) error {
	cmd := engine.NewSync(engine.CmdConnOpen)
	cmd.ConnHandleID = c.id
	if err := c.queue.Push(cmd); err != nil {
		return err
	}
	res, err := c.awaitSync("Connection.Open", cmd, timeout)
	if err != nil {
		return err
	}
	return res.Err
}

// Close asynchronously disconnects, returning a Future that resolves on
// Closed or ErrorEvent.
func (c *Connection) Close() *Future {
	f := newFuture(c.bus, c.id, events.Closed, events.ErrorEvent)
	cmd := engine.NewAsync(engine.CmdConnClose)
	cmd.ConnHandleID = c.id
	if err := c.queue.Push(cmd); err != nil {
		f.Cancel()
	}
	return f
}

// CloseSync disconnects synchronously, blocking up to timeout.
func (c *Connection) CloseSync(timeout time.Duration) error {
	cmd := engine.NewSync(engine.CmdConnClose)
	cmd.ConnHandleID = c.id
	if err := c.queue.Push(cmd); err != nil {
		return err
	}
	res, err := c.awaitSync("Connection.Close", cmd, timeout)
	if err != nil {
		return err
	}
	return res.Err
}

// Shutdown tears the Connection down completely: it pushes a Shutdown
// command (closing the underlying DBClient handle first if still open),
// then waits up to timeout for the worker goroutine itself to exit.
// After Shutdown returns, the command queue is closed and every method
// that pushes to it fails with fberrors.ErrQueueClosed; callers must
// treat the Connection as unusable from then on regardless of the error
// returned. If the worker does not complete the Shutdown command within
// timeout, the wait is abandoned with a DeadlockSuspectedError; if it
// completes the command but its goroutine has not exited by the same
// deadline, Shutdown reports fberrors.ErrTerminated. Neither case kills
// the goroutine outright — Go has no mechanism to force-kill one, so a
// worker wedged inside a native call simply keeps running until that
// call returns.
func (c *Connection) Shutdown(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	cmd := engine.NewSync(engine.CmdShutdown)
	cmd.ConnHandleID = c.id
	if err := c.queue.Push(cmd); err != nil {
		return c.waitWorkerDone(time.Until(deadline))
	}
	res, err := c.awaitSync("Connection.Shutdown", cmd, timeout)
	if err != nil {
		return err
	}
	if err := c.waitWorkerDone(time.Until(deadline)); err != nil {
		return err
	}
	return res.Err
}

func (c *Connection) waitWorkerDone(timeout time.Duration) error {
	select {
	case <-c.workerDone:
		return nil
	case <-time.After(timeout):
		return fberrors.ErrTerminated
	}
}

// IsOpen reports the Connection's cached open state. O(1); no worker
// round-trip, mirrored purely from Opened/Closed event delivery.
func (c *Connection) IsOpen() bool { return c.isOpen.Load() }

// QueueDepth returns the number of commands currently waiting in this
// Connection's command queue, for metrics reporting.
func (c *Connection) QueueDepth() int { return c.worker.QueueDepth() }

// RowsFetched returns the running count of rows this Connection's worker
// has fetched across every statement it has ever driven.
func (c *Connection) RowsFetched() uint64 { return c.worker.RowsFetched() }

// CommandsProcessed returns the running count of commands this
// Connection's worker has executed, across every command kind.
func (c *Connection) CommandsProcessed() uint64 {
	var total uint64
	for k := engine.Kind(0); k < engine.NumKinds; k++ {
		total += c.worker.Processed(k)
	}
	return total
}

// ServerVersion returns the underlying DBClient implementation's
// version string, unchanged for the lifetime of the Connection.
func (c *Connection) ServerVersion() string { return c.worker.ServerVersion() }

// RequireServerVersion reports whether the server's version satisfies
// the given semver constraint (e.g. ">= 1.0.0"). A server version that
// doesn't parse as semver, or a malformed constraint, is returned as an
// error rather than silently treated as satisfied or unsatisfied.
func (c *Connection) RequireServerVersion(constraint string) (bool, error) {
	cons, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, fmt.Errorf("fbasync: invalid version constraint %q: %w", constraint, err)
	}
	v, err := semver.NewVersion(c.ServerVersion())
	if err != nil {
		return false, fmt.Errorf("fbasync: unparseable server version %q: %w", c.ServerVersion(), err)
	}
	return cons.Check(v), nil
}

// Info is synchronous by nature: it returns one of the server-held
// strings (server/database/user/password/role/characterSet/
// createParams) named by field.
func (c *Connection) Info(field dbclient.InfoField, timeout time.Duration) (string, error) {
	cmd := engine.NewSync(engine.CmdConnInfo)
	cmd.ConnHandleID = c.id
	cmd.InfoField = field
	if err := c.queue.Push(cmd); err != nil {
		return "", err
	}
	res, err := c.awaitSync("Connection.Info", cmd, timeout)
	if err != nil {
		return "", err
	}
	return res.Str, res.Err
}

// ConnectedUsers returns the unordered set of user names currently
// connected to the database.
func (c *Connection) ConnectedUsers(timeout time.Duration) ([]string, error) {
	cmd := engine.NewSync(engine.CmdConnConnectedUsers)
	cmd.ConnHandleID = c.id
	if err := c.queue.Push(cmd); err != nil {
		return nil, err
	}
	res, err := c.awaitSync("Connection.ConnectedUsers", cmd, timeout)
	if err != nil {
		return nil, err
	}
	return res.Strs, res.Err
}

// Drop deletes the database. Synchronous only, per its destructive
// nature.
func (c *Connection) Drop(timeout time.Duration) error {
	cmd := engine.NewSync(engine.CmdConnDrop)
	cmd.ConnHandleID = c.id
	if err := c.queue.Push(cmd); err != nil {
		return err
	}
	res, err := c.awaitSync("Connection.Drop", cmd, timeout)
	if err != nil {
		return err
	}
	return res.Err
}

// NewTransaction allocates a local Transaction bound to this Connection.
// This is synchronous by nature (the handle ID must exist before the
// caller can issue further commands against it) but performs no I/O
// until Start/StartSync runs. Mode, isolation and lock resolution are
// fixed by the arguments given here; further reservations may still be
// added with Transaction.AddReservation before Start.
func (c *Connection) NewTransaction(mode dbclient.TransactionMode, isolation dbclient.Isolation, lock dbclient.LockResolution, reservations []dbclient.Reservation, timeout time.Duration) (*Transaction, error) {
	txID := c.allocHandleID()
	cmd := engine.NewSync(engine.CmdTxCreate)
	cmd.ConnHandleID = c.id
	cmd.TxID = txID
	cmd.Mode = mode
	cmd.Isolation = isolation
	cmd.Lock = lock
	cmd.Reservations = reservations

	if err := c.queue.Push(cmd); err != nil {
		return nil, err
	}
	res, err := c.awaitSync("Connection.NewTransaction", cmd, timeout)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	tx := &Transaction{
		id:        txID,
		conn:      c,
		mode:      mode,
		isolation: isolation,
		lock:      lock,
	}
	tx.deadlockTracker.init(c.log.With().Uint64("tx_id", txID).Logger())
	tx.unsubscribe = c.bus.Subscribe(txID, tx.onEvent)
	return tx, nil
}
