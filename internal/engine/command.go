// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

// Package engine implements the command queue and worker loop that are
// the heart of this module: one goroutine per Connection, owning every
// dbclient handle that Connection ever produces, draining a FIFO of
// typed Commands pushed by foreground Connection/Transaction/Statement
// values running on arbitrary caller goroutines.
package engine

import (
	"time"

	"github.com/fireasync/fbasync/dbclient"
	"github.com/fireasync/fbasync/variant"
)

// Kind enumerates every command the worker understands, matching the
// exhaustive list of worker command kinds.
type Kind int

const (
	CmdConnOpen Kind = iota
	CmdConnClose
	CmdConnInfo
	CmdConnConnectedUsers
	CmdConnDrop

	CmdTxCreate
	CmdTxStart
	CmdTxCommit
	CmdTxCommitRetaining
	CmdTxRollback
	CmdTxAddReservation
	CmdTxDestroy

	CmdStmtPrepare
	CmdStmtExecute
	CmdStmtSetParam
	CmdStmtStartFetch
	CmdStmtFetchNext
	CmdStmtFetchOne
	CmdStmtPlan
	CmdStmtClose

	// cmdFetchNextInternal is the re-enqueued continuation of a streaming
	// fetch; it is never issued directly by foreground code.
	cmdFetchNextInternal

	CmdShutdown

	// NumKinds is one past the last valid Kind; callers iterating every
	// kind (e.g. for metrics) range over [0, NumKinds).
	NumKinds
)

func (k Kind) String() string {
	switch k {
	case CmdConnOpen:
		return "ConnOpen"
	case CmdConnClose:
		return "ConnClose"
	case CmdConnInfo:
		return "ConnInfo"
	case CmdConnConnectedUsers:
		return "ConnConnectedUsers"
	case CmdConnDrop:
		return "ConnDrop"
	case CmdTxCreate:
		return "TxCreate"
	case CmdTxStart:
		return "TxStart"
	case CmdTxCommit:
		return "TxCommit"
	case CmdTxCommitRetaining:
		return "TxCommitRetaining"
	case CmdTxRollback:
		return "TxRollback"
	case CmdTxAddReservation:
		return "TxAddReservation"
	case CmdTxDestroy:
		return "TxDestroy"
	case CmdStmtPrepare:
		return "StmtPrepare"
	case CmdStmtExecute:
		return "StmtExecute"
	case CmdStmtSetParam:
		return "StmtSetParam"
	case CmdStmtStartFetch:
		return "StmtStartFetch"
	case CmdStmtFetchNext:
		return "StmtFetchNext"
	case CmdStmtFetchOne:
		return "StmtFetchOne"
	case CmdStmtPlan:
		return "StmtPlan"
	case CmdStmtClose:
		return "StmtClose"
	case cmdFetchNextInternal:
		return "fetchNextInternal"
	case CmdShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Result is the god-struct outcome of running one Command; only the
// fields relevant to the Command's Kind are populated, mirroring how the
// teacher's writeRes carries one result/err pair for every query shape.
type Result struct {
	Err      error
	Str      string
	Strs     []string
	Bool     bool
	Affected int64
	Row      []variant.Variant
	RowOK    bool
	Columns  []dbclient.ColumnMeta
	TxID     uint64
	StmtID   uint64
	Plan     string
}

// Command is one unit of work pushed onto a Queue. Sync commands carry a
// non-nil done channel the worker closes after writing Result; async
// commands carry a nil done channel and instead get their outcome
// delivered as an events.Event by the caller-supplied emit callback.
type Command struct {
	Kind Kind
	Sync bool

	// ConnHandleID identifies the Connection for event emission.
	ConnHandleID uint64
	TxID         uint64
	StmtID       uint64

	SQL          string
	Params       []variant.Variant
	Column       int
	Value        variant.Variant
	StartFetch   bool
	Mode         dbclient.TransactionMode
	Isolation    dbclient.Isolation
	Lock         dbclient.LockResolution
	Reservations []dbclient.Reservation
	InfoField    dbclient.InfoField

	done   chan struct{}
	Result *Result
}

// NewSync builds a Command that the caller will block on via Await.
func NewSync(kind Kind) *Command {
	return &Command{Kind: kind, Sync: true, done: make(chan struct{})}
}

// NewAsync builds a fire-and-forget Command.
func NewAsync(kind Kind) *Command {
	return &Command{Kind: kind}
}

// Complete is called exactly once by the worker when the command has run.
// For sync commands it unblocks Await; for async commands it is a no-op
// beyond recording the result (the worker emits the matching event
// itself).
func (c *Command) Complete(res *Result) {
	c.Result = res
	if c.Sync {
		close(c.done)
	}
}

// Await blocks until Complete has been called, or the done channel is
// never closed (caller should pair this with a timeout via AwaitTimeout).
func (c *Command) Await() *Result {
	<-c.done
	return c.Result
}

// AwaitTimeout blocks up to d for completion. ok is false on timeout, in
// which case the command is NOT cancelled — it completes on the worker
// eventually, but the caller must treat this as a DeadlockSuspected
// condition and move on.
func (c *Command) AwaitTimeout(d time.Duration) (*Result, bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-c.done:
		return c.Result, true
	case <-timer.C:
		return nil, false
	}
}
