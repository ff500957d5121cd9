// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package fbasync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fireasync/fbasync/events"
)

func TestFutureResolvesOnMatchingKind(t *testing.T) {
	bus := events.NewBus()
	f := newFuture(bus, 7, events.Opened, events.ErrorEvent)

	go bus.Emit(events.Event{Kind: events.Closed, HandleID: 7})
	go bus.Emit(events.Event{Kind: events.Opened, HandleID: 8})
	go bus.Emit(events.Event{Kind: events.Opened, HandleID: 7})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e, err := f.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, events.Opened, e.Kind)
	require.EqualValues(t, 7, e.HandleID)
}

func TestFutureWaitTimesOutWithoutMatchingEvent(t *testing.T) {
	bus := events.NewBus()
	f := newFuture(bus, 1, events.Opened)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFutureResolvesOnlyOnce(t *testing.T) {
	bus := events.NewBus()
	f := newFuture(bus, 1, events.Opened)
	bus.Emit(events.Event{Kind: events.Opened, HandleID: 1})
	bus.Emit(events.Event{Kind: events.Opened, HandleID: 1}) // second emit must not block/panic

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := f.Wait(ctx)
	require.NoError(t, err)
}

func TestFutureCancelUnsubscribes(t *testing.T) {
	bus := events.NewBus()
	f := newFuture(bus, 1, events.Opened)
	f.Cancel()

	// A second Cancel, or an event arriving post-cancel, must not panic.
	f.Cancel()
	bus.Emit(events.Event{Kind: events.Opened, HandleID: 1})
}
