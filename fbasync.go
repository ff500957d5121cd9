// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

// Package fbasync is an asynchronous client library for a Firebird-family
// SQL database. It presents three foreground handles — Connection,
// Transaction, Statement — plus an auxiliary Buffer, and runs every
// blocking database operation on a single dedicated worker goroutine per
// Connection. Foreground callers consume results either as asynchronous
// event notifications or, when explicitly requested, by blocking
// synchronously on a timed wait.
//
// The package never touches the wire protocol itself: a concrete
// dbclient.Database implementation (a cgo binding in production,
// dbclient/memdb in this repo's own tests and demo) supplies that.
package fbasync

import (
	"sync/atomic"
	"time"
)

var nextConnID atomic.Uint64

func allocConnID() uint64 { return nextConnID.Add(1) }

// Reference timeouts for synchronous calls: the long one for open/close,
// since connecting is inherently slow, and the short one for metadata
// lookups, since a stall there usually signals a stuck worker rather
// than legitimate I/O latency. No method applies them: every
// synchronous call takes its timeout as an explicit argument.
const (
	defaultOpenCloseTimeout = 10 * time.Second
	defaultMetadataTimeout  = 1 * time.Second
)
