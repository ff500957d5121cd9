// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package engine

import (
	"sync"

	"github.com/fireasync/fbasync/fberrors"
)

// Queue is the mutex-protected FIFO of Commands between foreground
// callers and one Connection's worker. It is deliberately a plain
// mutex+condition-variable structure rather than a buffered channel: an
// unbounded channel can't be closed-and-drained atomically with a
// "reject further pushes" flag, and FetchNext's tail re-enqueue needs
// Pop and Push to interleave under one lock without a select-based
// producer/consumer race.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*Command
	closed bool
}

// NewQueue constructs an empty, open Queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends cmd to the tail. Returns fberrors.ErrQueueClosed if Close
// has already been called.
func (q *Queue) Push(cmd *Command) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fberrors.ErrQueueClosed
	}
	q.items = append(q.items, cmd)
	q.cond.Signal()
	return nil
}

// Pop blocks until a Command is available or the queue is closed and
// drained, in which case it returns fberrors.ErrTerminated.
func (q *Queue) Pop() (*Command, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, fberrors.ErrTerminated
	}
	cmd := q.items[0]
	q.items = q.items[1:]
	return cmd, nil
}

// Close marks the queue closed: further Push calls fail, and Pop returns
// ErrTerminated once the remaining backlog has drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Drain returns and discards every command still queued, for use once
// the worker has observed termination and must fail any stragglers.
func (q *Queue) Drain() []*Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Len reports the current backlog size, for metrics.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
