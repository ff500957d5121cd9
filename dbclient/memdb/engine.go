// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

// Package memdb is an in-memory, single-threaded implementation of the
// dbclient interfaces: a fake database used to drive integration tests
// of the full engine without a real Firebird server, and to back the
// demo binary. It understands a deliberately small SQL subset
// (CREATE TABLE, INSERT ... VALUES, SELECT ... [WHERE col=?]
// [ORDER BY col], SELECT COUNT(*)) — general SQL parsing is out of
// scope for the real library, and equally out of scope for this fake;
// anything fancier is simply rejected.
package memdb

import (
	"sync"

	"github.com/fireasync/fbasync/dbclient"
	"github.com/fireasync/fbasync/variant"
)

type column struct {
	name string
	typ  dbclient.ColumnType
	size int
}

type table struct {
	name    string
	columns []column
	rows    [][]variant.Variant
}

func (t *table) colIndex(name string) int {
	for i, c := range t.columns {
		if equalFold(c.name, name) {
			return i
		}
	}
	return -1
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Engine is the shared backing store behind one or more Database handles
// (mirroring how several Connections can point at the same Firebird
// server/database file).
type Engine struct {
	mu      sync.Mutex
	tables  map[string]*table
	users   []string
	version string
}

// NewEngine constructs an empty in-memory database.
func NewEngine() *Engine {
	return &Engine{
		tables:  make(map[string]*table),
		users:   []string{"SYSDBA"},
		version: "1.0.0",
	}
}
