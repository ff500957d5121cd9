// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

// Package row holds the ordered, column-described result of one fetched
// record. A Row is a plain value: it carries no reference back to the
// statement or worker that produced it, so it remains valid and safe to
// read from any goroutine after it is handed to foreground code.
package row

import (
	"strings"

	"github.com/fireasync/fbasync/dbclient"
	"github.com/fireasync/fbasync/fberrors"
	"github.com/fireasync/fbasync/variant"
)

// Row is a 1-indexed sequence of Variants, alongside the column metadata
// describing each position.
type Row struct {
	columns []dbclient.ColumnMeta
	values  []variant.Variant
}

// New builds a Row from parallel columns/values slices. Both slices are
// retained, not copied; callers should treat them as immutable afterward.
func New(columns []dbclient.ColumnMeta, values []variant.Variant) Row {
	return Row{columns: columns, values: values}
}

// ColumnCount returns the number of values in the row.
func (r Row) ColumnCount() int { return len(r.values) }

// Get returns the value at the 1-indexed position i, or a Null Variant if
// i is out of range.
func (r Row) Get(i int) variant.Variant {
	if i < 1 || i > len(r.values) {
		return variant.Null()
	}
	return r.values[i-1]
}

// IsNull reports whether the value at position i is Null (or out of
// range, which is treated the same as Null for convenience).
func (r Row) IsNull(i int) bool { return r.Get(i).IsNull() }

// ColumnMeta returns the metadata for the 1-indexed position i.
func (r Row) ColumnMeta(i int) dbclient.ColumnMeta {
	if i < 1 || i > len(r.columns) {
		return dbclient.ColumnMeta{}
	}
	return r.columns[i-1]
}

// Columns returns the row's column metadata, in position order.
func (r Row) Columns() []dbclient.ColumnMeta { return r.columns }

// GetByName looks up a value by column name or alias, case-insensitively.
// On ambiguity the first match wins. A miss returns fberrors.ErrUnknownColumn.
func (r Row) GetByName(name string) (variant.Variant, error) {
	for i, c := range r.columns {
		if strings.EqualFold(c.Name, name) || (c.Alias != "" && strings.EqualFold(c.Alias, name)) {
			return r.values[i], nil
		}
	}
	return variant.Variant{}, fberrors.ErrUnknownColumn
}
