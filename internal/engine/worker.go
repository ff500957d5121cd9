// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fireasync/fbasync/dbclient"
	"github.com/fireasync/fbasync/events"
	"github.com/fireasync/fbasync/fberrors"
	"github.com/fireasync/fbasync/row"
	"github.com/fireasync/fbasync/variant"
)

type txState struct {
	tx   dbclient.Transaction
	mode dbclient.TransactionMode
}

type stmtState struct {
	stmt     dbclient.Statement
	txID     uint64
	sql      string
	columns  []dbclient.ColumnMeta
	fetching bool
}

// Worker is the single goroutine owning one Connection's dbclient.Database
// handle and every Transaction/Statement handle it produces. Nothing but
// this goroutine ever touches those handles, satisfying the "DBClient
// handles are worker-local" rule; everything else communicates with it
// exclusively through its Queue.
type Worker struct {
	db     dbclient.Database
	params dbclient.ConnParams
	queue  *Queue
	bus    *events.Bus
	connID uint64
	log    zerolog.Logger
	ctx    context.Context

	open  bool
	txs   map[uint64]*txState
	stmts map[uint64]*stmtState

	// stopFlags holds the cooperative cancellation flag for each
	// streaming fetch, keyed by statement ID. Unlike txs/stmts, this map
	// is touched from both the worker goroutine and whichever foreground
	// goroutine calls StopFetch, so every access goes through stopFlagsMu.
	// An atomic.Bool per statement is this module's idiomatic stand-in
	// for the "tiny mutex protecting stop_fetch" described in the design
	// this worker follows.
	stopFlagsMu sync.RWMutex
	stopFlags   map[uint64]*atomic.Bool

	processed   [int(CmdShutdown) + 1]atomic.Uint64
	rowsFetched atomic.Uint64
}

// NewWorker constructs a Worker bound to db, which must not have been
// opened yet. connID identifies the owning Connection to listeners on
// bus. The worker does not start running until Run is called on its own
// goroutine.
func NewWorker(db dbclient.Database, params dbclient.ConnParams, queue *Queue, bus *events.Bus, connID uint64, log zerolog.Logger) *Worker {
	return &Worker{
		db:     db,
		params: params,
		queue:  queue,
		bus:    bus,
		connID: connID,
		log:    log.With().Uint64("conn_id", connID).Logger(),
		ctx:       context.Background(),
		txs:       make(map[uint64]*txState),
		stmts:     make(map[uint64]*stmtState),
		stopFlags: make(map[uint64]*atomic.Bool),
	}
}

func (w *Worker) stopFlag(stmtID uint64) *atomic.Bool {
	w.stopFlagsMu.RLock()
	flag := w.stopFlags[stmtID]
	w.stopFlagsMu.RUnlock()
	return flag
}

func (w *Worker) registerStopFlag(stmtID uint64) *atomic.Bool {
	flag := &atomic.Bool{}
	w.stopFlagsMu.Lock()
	w.stopFlags[stmtID] = flag
	w.stopFlagsMu.Unlock()
	return flag
}

func (w *Worker) unregisterStopFlag(stmtID uint64) {
	w.stopFlagsMu.Lock()
	delete(w.stopFlags, stmtID)
	w.stopFlagsMu.Unlock()
}

// Run drains the queue until a Shutdown command is observed or the queue
// is closed out from under it. It is meant to be the entire body of the
// goroutine spawned at Connection construction.
func (w *Worker) Run() {
	w.log.Debug().Msg("worker started")
	for {
		cmd, err := w.queue.Pop()
		if err != nil {
			w.log.Debug().Msg("worker queue terminated")
			return
		}
		w.processed[cmd.Kind].Add(1)
		if cmd.Kind == CmdShutdown {
			w.shutdown(cmd)
			return
		}
		w.dispatch(cmd)
	}
}

func (w *Worker) shutdown(cmd *Command) {
	if w.open {
		if err := w.db.Close(w.ctx); err != nil {
			w.log.Warn().Err(err).Msg("error closing database during shutdown")
		}
		w.open = false
		w.emit(events.Event{Kind: events.Closed, HandleID: cmd.ConnHandleID})
	}
	if cmd.Sync {
		cmd.Complete(&Result{})
	}
	w.queue.Close()
	for _, leftover := range w.queue.Drain() {
		if leftover.Sync {
			leftover.Complete(&Result{Err: fberrors.ErrTerminated})
		}
	}
	w.log.Debug().Msg("worker shut down")
}

// QueueDepth reports the backlog currently waiting on this worker's queue.
func (w *Worker) QueueDepth() int { return w.queue.Len() }

// Processed reports how many commands of kind k this worker has executed.
func (w *Worker) Processed(k Kind) uint64 {
	if int(k) < 0 || int(k) >= len(w.processed) {
		return 0
	}
	return w.processed[k].Load()
}

// RowsFetched reports the cumulative number of rows streamed out of
// every statement this worker has fetched from.
func (w *Worker) RowsFetched() uint64 { return w.rowsFetched.Load() }

// ServerVersion reports the underlying DBClient implementation's
// version string. Unlike every other worker-owned value, this never
// changes once the Database is constructed, so it's safe to read from
// any goroutine without going through the command queue.
func (w *Worker) ServerVersion() string { return w.db.ServerVersion() }

func (w *Worker) emit(e events.Event) { w.bus.Emit(e) }

func (w *Worker) dispatch(cmd *Command) {
	res := &Result{}

	switch cmd.Kind {
	case CmdConnOpen:
		res = w.doOpen(cmd)
	case CmdConnClose:
		res = w.doClose(cmd)
	case CmdConnInfo:
		s, err := w.db.Info(w.ctx, cmd.InfoField)
		res = &Result{Str: s, Err: err}
		w.emitIfErr(cmd.ConnHandleID, err)
	case CmdConnConnectedUsers:
		users, err := w.db.ConnectedUsers(w.ctx)
		res = &Result{Strs: users, Err: err}
		w.emitIfErr(cmd.ConnHandleID, err)
	case CmdConnDrop:
		err := w.db.Drop(w.ctx)
		if err == nil {
			w.open = false
		}
		res = &Result{Err: err}
		w.emitIfErr(cmd.ConnHandleID, err)

	case CmdTxCreate:
		res = w.doTxCreate(cmd)
	case CmdTxAddReservation:
		res = w.doTxAddReservation(cmd)
	case CmdTxStart:
		res = w.doTxStart(cmd)
	case CmdTxCommit:
		res = w.doTxCommit(cmd)
	case CmdTxCommitRetaining:
		res = w.doTxCommitRetaining(cmd)
	case CmdTxRollback:
		res = w.doTxRollback(cmd)
	case CmdTxDestroy:
		delete(w.txs, cmd.TxID)

	case CmdStmtPrepare:
		res = w.doPrepare(cmd)
	case CmdStmtSetParam:
		res = w.doSetParam(cmd)
	case CmdStmtExecute:
		res = w.doExecute(cmd)
	case CmdStmtStartFetch:
		w.beginFetch(cmd.StmtID)
	case CmdStmtFetchNext, cmdFetchNextInternal:
		w.fetchStep(cmd.StmtID)
	case CmdStmtFetchOne:
		res = w.doFetchOne(cmd)
	case CmdStmtPlan:
		if ss, ok := w.stmts[cmd.StmtID]; ok {
			plan, err := ss.stmt.Plan(w.ctx)
			res = &Result{Plan: plan, Err: err}
		} else {
			res = &Result{Err: fberrors.ErrNotPrepared}
		}
	case CmdStmtClose:
		if ss, ok := w.stmts[cmd.StmtID]; ok {
			_ = ss.stmt.Close(w.ctx)
			delete(w.stmts, cmd.StmtID)
			w.unregisterStopFlag(cmd.StmtID)
		}
	}

	if cmd.Sync {
		cmd.Complete(res)
	}
}

func (w *Worker) emitIfErr(handleID uint64, err error) {
	if err != nil {
		w.emit(events.Event{Kind: events.ErrorEvent, HandleID: handleID, Message: err.Error(), Err: err})
	}
}

func (w *Worker) doOpen(cmd *Command) *Result {
	if w.open {
		return &Result{}
	}
	err := w.db.Open(w.ctx, w.params)
	if err != nil {
		wrapped := errors.Wrap(fberrors.ErrConnectFailed, err.Error())
		w.emit(events.Event{Kind: events.ErrorEvent, HandleID: cmd.ConnHandleID, Message: wrapped.Error(), Err: wrapped})
		return &Result{Err: wrapped}
	}
	w.open = true
	w.emit(events.Event{Kind: events.Opened, HandleID: cmd.ConnHandleID})
	return &Result{}
}

func (w *Worker) doClose(cmd *Command) *Result {
	if !w.open {
		// Idempotent: no event, clean return.
		return &Result{}
	}
	err := w.db.Close(w.ctx)
	w.open = false
	if err != nil {
		w.emit(events.Event{Kind: events.ErrorEvent, HandleID: cmd.ConnHandleID, Message: err.Error(), Err: err})
		return &Result{Err: err}
	}
	w.emit(events.Event{Kind: events.Closed, HandleID: cmd.ConnHandleID})
	return &Result{}
}

func (w *Worker) doTxCreate(cmd *Command) *Result {
	tx, err := w.db.NewTransaction(cmd.Mode, cmd.Isolation, cmd.Lock, cmd.Reservations)
	if err != nil {
		return &Result{Err: err}
	}
	w.txs[cmd.TxID] = &txState{tx: tx, mode: cmd.Mode}
	return &Result{TxID: cmd.TxID}
}

func (w *Worker) doTxAddReservation(cmd *Command) *Result {
	ts, ok := w.txs[cmd.TxID]
	if !ok {
		return &Result{Err: fberrors.ErrTransactionNotActive}
	}
	if ts.tx.IsActive() {
		return &Result{Err: fberrors.ErrTransactionActive}
	}
	if len(cmd.Reservations) == 0 {
		return &Result{}
	}
	if err := ts.tx.AddReservation(cmd.Reservations[0]); err != nil {
		return &Result{Err: err}
	}
	return &Result{}
}

func (w *Worker) doTxStart(cmd *Command) *Result {
	ts, ok := w.txs[cmd.TxID]
	if !ok {
		return &Result{Err: fberrors.ErrTransactionNotActive}
	}
	if err := ts.tx.Start(w.ctx); err != nil {
		w.emit(events.Event{Kind: events.ErrorEvent, HandleID: cmd.TxID, Message: err.Error(), Err: err})
		return &Result{Err: err}
	}
	w.emit(events.Event{Kind: events.TxStarted, HandleID: cmd.TxID})
	return &Result{}
}

func (w *Worker) doTxCommit(cmd *Command) *Result {
	ts, ok := w.txs[cmd.TxID]
	if !ok {
		return &Result{Err: fberrors.ErrTransactionNotActive}
	}
	if err := ts.tx.Commit(w.ctx); err != nil {
		w.emit(events.Event{Kind: events.ErrorEvent, HandleID: cmd.TxID, Message: err.Error(), Err: err})
		return &Result{Err: err}
	}
	w.cancelFetchesForTx(cmd.TxID)
	w.emit(events.Event{Kind: events.TxCommitted, HandleID: cmd.TxID})
	return &Result{}
}

func (w *Worker) doTxCommitRetaining(cmd *Command) *Result {
	ts, ok := w.txs[cmd.TxID]
	if !ok {
		return &Result{Err: fberrors.ErrTransactionNotActive}
	}
	if err := ts.tx.CommitRetaining(w.ctx); err != nil {
		w.emit(events.Event{Kind: events.ErrorEvent, HandleID: cmd.TxID, Message: err.Error(), Err: err})
		return &Result{Err: err}
	}
	// Retaining commit is a commit followed by an implicit restart on the
	// same transaction identity: Committed then Started, in that order.
	w.emit(events.Event{Kind: events.TxCommitted, HandleID: cmd.TxID})
	w.emit(events.Event{Kind: events.TxStarted, HandleID: cmd.TxID})
	return &Result{}
}

func (w *Worker) doTxRollback(cmd *Command) *Result {
	ts, ok := w.txs[cmd.TxID]
	if !ok {
		return &Result{Err: fberrors.ErrTransactionNotActive}
	}
	if err := ts.tx.Rollback(w.ctx); err != nil {
		w.emit(events.Event{Kind: events.ErrorEvent, HandleID: cmd.TxID, Message: err.Error(), Err: err})
		return &Result{Err: err}
	}
	w.cancelFetchesForTx(cmd.TxID)
	w.emit(events.Event{Kind: events.TxRolledBack, HandleID: cmd.TxID})
	return &Result{}
}

// cancelFetchesForTx marks every statement bound to txID as no longer
// fetching, since the cursor is implicitly closed by commit/rollback.
func (w *Worker) cancelFetchesForTx(txID uint64) {
	for id, ss := range w.stmts {
		if ss.txID == txID {
			if flag := w.stopFlag(id); flag != nil {
				flag.Store(true)
			}
		}
	}
}

func (w *Worker) doPrepare(cmd *Command) *Result {
	ts, ok := w.txs[cmd.TxID]
	if !ok {
		return &Result{Err: fberrors.ErrTransactionNotActive}
	}
	stmt, err := ts.tx.Prepare(w.ctx, cmd.SQL)
	if err != nil {
		wrapped := errors.Wrap(err, "fbasync: prepare")
		w.emit(events.Event{Kind: events.ErrorEvent, HandleID: cmd.StmtID, Message: wrapped.Error(), Err: wrapped})
		return &Result{Err: wrapped}
	}
	cols := stmt.Columns()
	w.stmts[cmd.StmtID] = &stmtState{stmt: stmt, txID: cmd.TxID, sql: cmd.SQL, columns: cols}
	w.registerStopFlag(cmd.StmtID)
	w.emit(events.Event{Kind: events.Prepared, HandleID: cmd.StmtID, Columns: cols})
	return &Result{Columns: cols}
}

func (w *Worker) doSetParam(cmd *Command) *Result {
	ss, ok := w.stmts[cmd.StmtID]
	if !ok {
		return &Result{Err: fberrors.ErrNotPrepared}
	}
	if err := ss.stmt.SetParam(w.ctx, cmd.Column, cmd.Value); err != nil {
		wrapped := errors.Wrapf(fberrors.ErrUnsupportedParameterType, "column %d: %v", cmd.Column, err)
		w.emit(events.Event{Kind: events.ErrorEvent, HandleID: cmd.StmtID, Message: wrapped.Error(), Err: wrapped})
		return &Result{Err: wrapped}
	}
	return &Result{}
}

func (w *Worker) doExecute(cmd *Command) *Result {
	ss, ok := w.stmts[cmd.StmtID]
	if !ok {
		return &Result{Err: fberrors.ErrNotPrepared}
	}
	if cmd.SQL != "" && cmd.SQL != ss.sql {
		stmt, err := w.txs[ss.txID].tx.Prepare(w.ctx, cmd.SQL)
		if err != nil {
			wrapped := errors.Wrap(err, "fbasync: re-prepare on execute")
			w.emit(events.Event{Kind: events.ErrorEvent, HandleID: cmd.StmtID, Message: wrapped.Error(), Err: wrapped})
			return &Result{Err: wrapped}
		}
		ss.stmt, ss.sql, ss.columns = stmt, cmd.SQL, stmt.Columns()
		w.emit(events.Event{Kind: events.Prepared, HandleID: cmd.StmtID, Columns: ss.columns})
	}

	if len(cmd.Params) > 0 && ss.stmt.ParamCount() != len(cmd.Params) {
		err := fberrors.ErrParamCountMismatch
		w.emit(events.Event{Kind: events.ErrorEvent, HandleID: cmd.StmtID, Message: err.Error(), Err: err})
		return &Result{Err: err}
	}

	var bound []variant.Variant
	if len(cmd.Params) > 0 {
		bound = cmd.Params
	}
	affected, err := ss.stmt.Execute(w.ctx, bound)
	if err != nil {
		wrapped := errors.Wrap(err, "fbasync: execute")
		w.emit(events.Event{Kind: events.ErrorEvent, HandleID: cmd.StmtID, Message: wrapped.Error(), Err: wrapped})
		return &Result{Err: wrapped}
	}
	ss.columns = ss.stmt.Columns()
	w.emit(events.Event{Kind: events.Executed, HandleID: cmd.StmtID, Columns: ss.columns, Affected: affected})

	if cmd.StartFetch {
		w.beginFetch(cmd.StmtID)
	}
	return &Result{Affected: affected}
}

func (w *Worker) beginFetch(stmtID uint64) {
	ss, ok := w.stmts[stmtID]
	if !ok {
		return
	}
	ss.fetching = true
	if flag := w.stopFlag(stmtID); flag != nil {
		flag.Store(false)
	}
	w.emit(events.Event{Kind: events.FetchStarted, HandleID: stmtID})
	w.fetchStep(stmtID)
}

// fetchStep fetches (at most) one row and either re-enqueues itself at
// the tail of the queue or emits FetchFinished, implementing the
// tail-re-enqueue cancellation protocol: StopFetching, Commit, and
// Close pushed between two fetchStep invocations are serviced before the
// next row is pulled.
func (w *Worker) fetchStep(stmtID uint64) {
	ss, ok := w.stmts[stmtID]
	if !ok {
		return
	}
	ts, active := w.txs[ss.txID]
	flag := w.stopFlag(stmtID)
	stopped := flag != nil && flag.Load()
	if !w.open || !active || !ts.tx.IsActive() || stopped {
		ss.fetching = false
		w.emit(events.Event{Kind: events.FetchFinished, HandleID: stmtID})
		return
	}

	values, found, err := ss.stmt.FetchNext(w.ctx)
	if err != nil {
		ss.fetching = false
		wrapped := errors.Wrap(err, "fbasync: fetch")
		w.emit(events.Event{Kind: events.ErrorEvent, HandleID: stmtID, Message: wrapped.Error(), Err: wrapped})
		w.emit(events.Event{Kind: events.FetchFinished, HandleID: stmtID})
		return
	}
	if !found {
		ss.fetching = false
		w.emit(events.Event{Kind: events.FetchFinished, HandleID: stmtID})
		return
	}

	w.rowsFetched.Add(1)
	w.emit(events.Event{Kind: events.Fetched, HandleID: stmtID, Row: row.New(ss.columns, values)})

	next := NewAsync(cmdFetchNextInternal)
	next.StmtID = stmtID
	if err := w.queue.Push(next); err != nil {
		// Queue closing underneath us: treat as a normal end of stream.
		ss.fetching = false
		w.emit(events.Event{Kind: events.FetchFinished, HandleID: stmtID})
	}
}

func (w *Worker) doFetchOne(cmd *Command) *Result {
	ss, ok := w.stmts[cmd.StmtID]
	if !ok {
		return &Result{Err: fberrors.ErrNotPrepared}
	}
	values, found, err := ss.stmt.FetchNext(w.ctx)
	if err != nil {
		return &Result{Err: errors.Wrap(err, "fbasync: fetch_row")}
	}
	if found {
		w.rowsFetched.Add(1)
	}
	return &Result{Row: values, RowOK: found}
}

// StopFetch sets the cooperative cancellation flag for a streaming
// fetch. It is safe to call from any goroutine: it touches only the
// registered atomic flag for stmtID, never a DBClient handle or the
// worker's own maps.
func (w *Worker) StopFetch(stmtID uint64) {
	if flag := w.stopFlag(stmtID); flag != nil {
		flag.Store(true)
	}
}
