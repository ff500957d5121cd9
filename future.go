// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package fbasync

import (
	"context"
	"sync"

	"github.com/fireasync/fbasync/events"
)

// Future is what every asynchronous method on Connection, Transaction and
// Statement returns. It is a one-shot subscription on the event bus for a
// single handle: the first event matching one of the requested kinds
// resolves it, giving callers a handle that resolves when the
// corresponding event fires instead of a queued callback to register.
//
// A Future is not reusable. Waiting on it twice returns the same event
// twice; it is never re-armed for a second occurrence of the same kind.
type Future struct {
	ch          chan events.Event
	ev          events.Event
	once        sync.Once
	unsubscribe func()
}

// newFuture arms a Future against bus for handleID, resolving on the
// first event whose Kind is one of kinds.
func newFuture(bus *events.Bus, handleID uint64, kinds ...events.Kind) *Future {
	f := &Future{ch: make(chan events.Event, 1)}
	f.unsubscribe = bus.Subscribe(handleID, func(e events.Event) {
		for _, k := range kinds {
			if e.Kind != k {
				continue
			}
			f.once.Do(func() {
				f.ev = e
				f.ch <- e
				close(f.ch)
				f.unsubscribe()
			})
			return
		}
	})
	return f
}

// Wait blocks until the Future resolves or ctx is done, whichever comes
// first. A Future abandoned via a cancelled ctx stays subscribed until it
// eventually resolves on its own, since the command it watches keeps
// running on the worker regardless of whether anyone is still waiting.
func (f *Future) Wait(ctx context.Context) (events.Event, error) {
	select {
	case e, ok := <-f.ch:
		if !ok {
			return f.ev, nil
		}
		return e, nil
	case <-ctx.Done():
		return events.Event{}, ctx.Err()
	}
}

// Cancel unsubscribes the Future early, discarding the event if it
// hasn't arrived yet. Safe to call after the Future has already
// resolved or been cancelled.
func (f *Future) Cancel() {
	f.once.Do(func() {
		close(f.ch)
		f.unsubscribe()
	})
}
