// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package fbasync

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/fireasync/fbasync/fberrors"
	"github.com/fireasync/fbasync/internal/engine"
)

// deadlockTracker remembers the most recent DeadlockSuspected outcome for
// one handle, so callers who got a zero value back from a timed-out sync
// call can later retrieve what the worker eventually decided. This
// implements the Open Question decision in DESIGN.md: liveness is kept
// (the timed-out call returns immediately) without silently losing the
// real result forever.
//
// It also counts how many sync calls against its handle have timed out,
// logging each occurrence as a structured warning: a handle that keeps
// racking up timeouts is a signal worth alerting on, not just a value to
// retrieve after the fact.
type deadlockTracker struct {
	mu       sync.Mutex
	last     *fberrors.DeadlockSuspectedError
	log      zerolog.Logger
	timeouts atomic.Uint64
}

// init binds log (already scoped to this handle's identity, e.g. with a
// conn_id/tx_id/stmt_id field) before the tracker's first use. Called
// once, from the handle's constructor.
func (d *deadlockTracker) init(log zerolog.Logger) {
	d.log = log
}

// TimeoutCount reports how many sync calls on this handle have suffered
// a DeadlockSuspected timeout so far.
func (d *deadlockTracker) TimeoutCount() uint64 { return d.timeouts.Load() }

// awaitSync blocks on cmd up to timeout. On success it returns the
// command's Result. On timeout it records a DeadlockSuspectedError
// (retrievable later via LastDeadlock), logs a structured warning with
// the handle's running timeout count, and spawns a goroutine that waits
// for the real outcome to fill in cmd.Err as Cause.
func (d *deadlockTracker) awaitSync(op string, cmd *engine.Command, timeout time.Duration) (*engine.Result, error) {
	res, ok := cmd.AwaitTimeout(timeout)
	if ok {
		return res, nil
	}
	dl := &fberrors.DeadlockSuspectedError{Op: op}
	d.mu.Lock()
	d.last = dl
	d.mu.Unlock()

	count := d.timeouts.Add(1)
	d.log.Warn().
		Str("op", op).
		Dur("timeout", timeout).
		Uint64("timeout_count", count).
		Msg("DeadlockSuspected: sync call did not complete within timeout")

	go func() {
		final := cmd.Await()
		resolved := &fberrors.DeadlockSuspectedError{Op: op, Cause: final.Err}
		d.mu.Lock()
		if d.last == dl {
			d.last = resolved
		}
		d.mu.Unlock()
	}()
	return nil, dl
}

// LastDeadlock returns the most recent DeadlockSuspected outcome
// recorded for this handle, or nil if none has occurred. Cause is nil
// until the underlying command actually finishes on the worker.
func (d *deadlockTracker) LastDeadlock() *fberrors.DeadlockSuspectedError {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}
