// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package memdb

import (
	"context"
	"sort"

	"github.com/fireasync/fbasync/dbclient"
	"github.com/fireasync/fbasync/variant"
)

type stmtKind int

const (
	stmtCreateTable stmtKind = iota
	stmtInsert
	stmtSelect
)

type statement struct {
	eng *Engine
	sql string
	kind stmtKind

	// CREATE TABLE
	createSpec *table

	// INSERT
	table      *table
	insertCols []int

	// SELECT
	selectCols []int
	isCount    bool
	whereCol   int
	orderCol   int
	orderDesc  bool

	paramCount int
	params     []variant.Variant

	plan string

	cursor    [][]variant.Variant
	cursorPos int
	lastRow   []variant.Variant
	affected  int64
	executed  bool
}

var _ dbclient.Statement = (*statement)(nil)

func (s *statement) SQL() string { return s.sql }

func (s *statement) Plan(ctx context.Context) (string, error) { return s.plan, nil }

func (s *statement) Columns() []dbclient.ColumnMeta {
	switch s.kind {
	case stmtSelect:
		if s.isCount {
			return []dbclient.ColumnMeta{{Name: "COUNT", Type: dbclient.ColumnLargeInt}}
		}
		cols := make([]dbclient.ColumnMeta, 0, len(s.selectCols))
		for _, idx := range s.selectCols {
			c := s.table.columns[idx]
			cols = append(cols, dbclient.ColumnMeta{
				Name:        c.name,
				SourceTable: s.table.name,
				Type:        c.typ,
				Size:        c.size,
			})
		}
		return cols
	default:
		return nil
	}
}

func (s *statement) ParamCount() int { return s.paramCount }

func (s *statement) SetParam(ctx context.Context, column int, value variant.Variant) error {
	if column < 1 || column > s.paramCount {
		return errOutOfRange(column, s.paramCount)
	}
	if s.params == nil {
		s.params = make([]variant.Variant, s.paramCount)
	}
	s.params[column-1] = value
	return nil
}

func (s *statement) Execute(ctx context.Context, params []variant.Variant) (int64, error) {
	bound := params
	if bound == nil {
		bound = s.params
	}
	if len(bound) != s.paramCount {
		return 0, errParamMismatch(len(bound), s.paramCount)
	}

	switch s.kind {
	case stmtCreateTable:
		s.eng.mu.Lock()
		s.eng.tables[s.createSpec.name] = s.createSpec
		s.eng.mu.Unlock()
		s.affected = 0
		s.executed = true
		return 0, nil

	case stmtInsert:
		row := make([]variant.Variant, len(s.table.columns))
		for i, colIdx := range s.insertCols {
			row[colIdx] = bound[i]
		}
		s.eng.mu.Lock()
		s.table.rows = append(s.table.rows, row)
		s.eng.mu.Unlock()
		s.affected = 1
		s.executed = true
		return 1, nil

	case stmtSelect:
		s.eng.mu.Lock()
		var matched [][]variant.Variant
		for _, row := range s.table.rows {
			if s.whereCol >= 0 {
				if !row[s.whereCol].Equal(bound[0]) {
					continue
				}
			}
			matched = append(matched, row)
		}
		s.eng.mu.Unlock()

		if s.orderCol >= 0 {
			sort.SliceStable(matched, func(i, j int) bool {
				less := variantLess(matched[i][s.orderCol], matched[j][s.orderCol])
				if s.orderDesc {
					return !less && !matched[i][s.orderCol].Equal(matched[j][s.orderCol])
				}
				return less
			})
		}

		if s.isCount {
			s.cursor = [][]variant.Variant{{variant.NewLargeInt(int64(len(matched)))}}
		} else {
			s.cursor = make([][]variant.Variant, 0, len(matched))
			for _, row := range matched {
				projected := make([]variant.Variant, len(s.selectCols))
				for i, idx := range s.selectCols {
					projected[i] = row[idx]
				}
				s.cursor = append(s.cursor, projected)
			}
		}
		s.cursorPos = 0
		s.executed = true
		return int64(len(matched)), nil
	}
	return 0, nil
}

func (s *statement) FetchNext(ctx context.Context) ([]variant.Variant, bool, error) {
	if s.kind != stmtSelect || s.cursorPos >= len(s.cursor) {
		return nil, false, nil
	}
	row := s.cursor[s.cursorPos]
	s.cursorPos++
	s.lastRow = row
	return row, true, nil
}

func (s *statement) OpenBlob(ctx context.Context, column int) (dbclient.Blob, error) {
	if column < 1 || column > len(s.lastRow) {
		return nil, errOutOfRange(column, len(s.lastRow))
	}
	return &blob{data: s.lastRow[column-1].AsBytes()}, nil
}

func (s *statement) Close(ctx context.Context) error { return nil }

func variantLess(a, b variant.Variant) bool {
	if a.Kind() == b.Kind() {
		switch a.Kind() {
		case variant.KindText:
			return a.AsString() < b.AsString()
		default:
			return a.AsFloat64() < b.AsFloat64()
		}
	}
	return a.AsFloat64() < b.AsFloat64()
}
