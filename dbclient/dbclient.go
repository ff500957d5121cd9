// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

// Package dbclient defines the contract a native Firebird-family client
// library must satisfy to back the engine. The real native library is
// an external, synchronous, non-thread-safe collaborator out of scope
// for this module; production code supplies a concrete implementation
// of these interfaces (typically a cgo binding), and dbclient/memdb
// supplies an in-memory one used by this module's own tests and its
// demo binary.
//
// Every method here is expected to run on the single worker goroutine
// that owns it — nothing in this package is safe for concurrent use.
package dbclient

import (
	"context"

	"github.com/fireasync/fbasync/variant"
)

// ColumnType is the wire-visible, stable numeric tag for a column's SQL
// type. Values are pinned explicitly (not a bare iota block) so the
// codes stay stable across releases even if cases are reordered in
// source.
type ColumnType int

const (
	ColumnUnknown   ColumnType = 0
	ColumnBlob      ColumnType = 1
	ColumnDate      ColumnType = 2
	ColumnTime      ColumnType = 3
	ColumnTimestamp ColumnType = 4
	ColumnString    ColumnType = 5
	ColumnSmallInt  ColumnType = 6
	ColumnInt       ColumnType = 7
	ColumnLargeInt  ColumnType = 8
	ColumnFloat     ColumnType = 9
	ColumnDouble    ColumnType = 10
)

func (c ColumnType) String() string {
	switch c {
	case ColumnBlob:
		return "Blob"
	case ColumnDate:
		return "Date"
	case ColumnTime:
		return "Time"
	case ColumnTimestamp:
		return "Timestamp"
	case ColumnString:
		return "String"
	case ColumnSmallInt:
		return "SmallInt"
	case ColumnInt:
		return "Int"
	case ColumnLargeInt:
		return "LargeInt"
	case ColumnFloat:
		return "Float"
	case ColumnDouble:
		return "Double"
	default:
		return "Unknown"
	}
}

// ColumnMeta describes one column of a prepared statement's result set.
type ColumnMeta struct {
	Name        string
	Alias       string
	SourceTable string
	Type        ColumnType
	Subtype     int
	Size        int
	Scale       int
}

// InfoField enumerates the Connection metadata fields Info can return,
// matching the original source's DatabaseInfo enum.
type InfoField int

const (
	InfoServer InfoField = iota
	InfoDatabase
	InfoUser
	InfoPassword
	InfoCharacterSet
	InfoRole
	InfoCreateParams
)

// ConnParams bundles the parameters a Connection passes to Open.
type ConnParams struct {
	Server       string
	Database     string
	User         string
	Password     string
	CharacterSet string
	Role         string
	CreateParams string
}

// TransactionMode is the access mode of a transaction.
type TransactionMode int

const (
	ModeWrite TransactionMode = iota
	ModeRead
)

// Isolation is the transaction isolation level.
type Isolation int

const (
	IsolationConcurrency Isolation = iota
	IsolationReadCommitted
	IsolationConsistency
)

// LockResolution controls whether a transaction waits on lock conflicts.
type LockResolution int

const (
	LockWait LockResolution = iota
	LockNoWait
)

// ReservationMode is the table-reservation lock mode.
type ReservationMode int

const (
	SharedRead ReservationMode = iota
	ProtectedRead
	SharedWrite
	ProtectedWrite
)

// Reservation reserves a table at a given lock mode before a transaction
// starts.
type Reservation struct {
	Table string
	Mode  ReservationMode
}

// Database is the per-connection handle a native client library exposes.
// A Database is created locally (no I/O) and only actually connects on
// Open, mirroring the worker's own split between its Create and Open
// commands.
type Database interface {
	Open(ctx context.Context, params ConnParams) error
	Close(ctx context.Context) error
	Info(ctx context.Context, field InfoField) (string, error)
	ConnectedUsers(ctx context.Context) ([]string, error)
	Drop(ctx context.Context) error
	ServerVersion() string

	// NewTransaction allocates a local transaction object bound to this
	// database. It performs no I/O; Transaction.Start does.
	NewTransaction(mode TransactionMode, isolation Isolation, lock LockResolution, reservations []Reservation) (Transaction, error)
}

// Transaction is the per-transaction handle a native client library
// exposes.
type Transaction interface {
	// AddReservation adds a table reservation before Start. Returns
	// ErrTransactionActive (via the engine, not this package) if called
	// after Start.
	AddReservation(r Reservation) error

	Start(ctx context.Context) error
	Commit(ctx context.Context) error
	CommitRetaining(ctx context.Context) error
	Rollback(ctx context.Context) error
	IsActive() bool

	Prepare(ctx context.Context, sql string) (Statement, error)
}

// Statement is the per-statement handle a native client library exposes.
type Statement interface {
	SQL() string
	Plan(ctx context.Context) (string, error)
	Columns() []ColumnMeta
	ParamCount() int

	SetParam(ctx context.Context, column int, value variant.Variant) error

	// Execute runs the prepared statement. For SELECTs this opens the
	// server-side cursor that FetchNext advances; affected is meaningful
	// for DML.
	Execute(ctx context.Context, params []variant.Variant) (affected int64, err error)

	// FetchNext advances the cursor one row. ok is false once the cursor
	// is exhausted.
	FetchNext(ctx context.Context) (row []variant.Variant, ok bool, err error)

	OpenBlob(ctx context.Context, column int) (Blob, error)

	Close(ctx context.Context) error
}

// Blob is a handle to a BLOB column's streamed content.
type Blob interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, p []byte) error
	Close(ctx context.Context) error
}
