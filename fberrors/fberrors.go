// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

// Package fberrors holds the sentinel errors shared between the engine
// (worker/queue) and the foreground Connection/Transaction/Statement/Buffer
// types, so callers can errors.Is/errors.As regardless of which layer
// raised the failure.
package fberrors

import "errors"

var (
	// ErrConnectFailed is returned/emitted when a Connection fails to open.
	ErrConnectFailed = errors.New("fbasync: connect failed")

	// ErrTransactionActive is returned when a reservation is added after
	// Start has already run.
	ErrTransactionActive = errors.New("fbasync: transaction already active")

	// ErrTransactionNotActive is returned by the worker when a command
	// names a transaction it holds no handle for. Commit/rollback on a
	// created but never-started transaction report whatever error the
	// DBClient returns instead, and a streaming fetch whose transaction
	// ends mid-stream finishes with FetchFinished alone, without this
	// error.
	ErrTransactionNotActive = errors.New("fbasync: transaction not active")

	// ErrUnknownColumn is returned by Row.GetByName on a name miss.
	ErrUnknownColumn = errors.New("fbasync: unknown column")

	// ErrUnsupportedParameterType is returned by SetParam when the bound
	// Variant carries a tag the backend cannot represent. Silently
	// binding NULL in this case would hide a caller bug, so this is a
	// hard error instead.
	ErrUnsupportedParameterType = errors.New("fbasync: unsupported parameter type")

	// ErrParamCountMismatch is returned when Execute's params slice doesn't
	// match the prepared statement's parameter count.
	ErrParamCountMismatch = errors.New("fbasync: parameter count mismatch")

	// ErrQueueClosed is returned by Push once Close has been called.
	ErrQueueClosed = errors.New("fbasync: command queue closed")

	// ErrTerminated is returned by Pop, and by any command still
	// in-flight, once the queue has fully drained after Close.
	ErrTerminated = errors.New("fbasync: worker terminated")

	// ErrUsage marks programming errors treated as undefined behaviour
	// rather than recoverable conditions (wrong destruction order,
	// reentrant sync calls from the worker's own goroutine).
	ErrUsage = errors.New("fbasync: usage error")

	// ErrConnectionClosed names operations attempted on a closed
	// Connection/Transaction/Statement. Neither the engine nor the
	// foreground handles return it; commands on a closed connection are
	// passed to the DBClient as they are.
	ErrConnectionClosed = errors.New("fbasync: connection closed")

	// ErrNotPrepared is returned by Execute when no SQL has ever been
	// prepared on the statement and none is supplied.
	ErrNotPrepared = errors.New("fbasync: statement not prepared")
)

// DeadlockSuspectedError is returned by a synchronous call whose completion
// latch timed out. The underlying operation is not cancelled — it
// continues to completion on the worker — but its result is discarded.
// The error returned by the timed-out call has a nil Cause. Once (and
// if) the worker eventually reports the real outcome, the handle's
// LastDeadlock returns a new DeadlockSuspectedError carrying that
// outcome's error as Cause.
type DeadlockSuspectedError struct {
	Op    string
	Cause error
}

func (e *DeadlockSuspectedError) Error() string {
	if e.Cause != nil {
		return "fbasync: deadlock suspected waiting for " + e.Op + " (later resolved: " + e.Cause.Error() + ")"
	}
	return "fbasync: deadlock suspected waiting for " + e.Op
}

func (e *DeadlockSuspectedError) Unwrap() error { return e.Cause }
