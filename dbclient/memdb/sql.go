// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package memdb

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fireasync/fbasync/dbclient"
)

var (
	reCreateTable = regexp.MustCompile(`(?is)^CREATE\s+TABLE\s+(\w+)\s*\((.*)\)\s*;?\s*$`)
	reInsert      = regexp.MustCompile(`(?is)^INSERT\s+INTO\s+(\w+)\s*\(([^)]*)\)\s*VALUES\s*\(([^)]*)\)\s*;?\s*$`)
	reSelect      = regexp.MustCompile(`(?is)^SELECT\s+(.+?)\s+FROM\s+(\w+)(?:\s+WHERE\s+(\w+)\s*=\s*\?)?(?:\s+ORDER\s+BY\s+(\w+)(?:\s+(ASC|DESC))?)?\s*;?\s*$`)
)

// splitTopLevel splits s on sep, ignoring occurrences inside parentheses
// (so a scale argument like NUMERIC(10,2) doesn't get split on its comma).
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func parseColumnType(def string) (dbclient.ColumnType, int, error) {
	def = strings.TrimSpace(def)
	name := def
	size := 0
	if i := strings.IndexByte(def, '('); i >= 0 {
		name = strings.TrimSpace(def[:i])
		inner := strings.TrimSuffix(def[i+1:], ")")
		if comma := strings.IndexByte(inner, ','); comma >= 0 {
			inner = inner[:comma]
		}
		if n, err := strconv.Atoi(strings.TrimSpace(inner)); err == nil {
			size = n
		}
	}
	switch strings.ToUpper(name) {
	case "BLOB":
		return dbclient.ColumnBlob, size, nil
	case "DATE":
		return dbclient.ColumnDate, 0, nil
	case "TIME":
		return dbclient.ColumnTime, 0, nil
	case "TIMESTAMP":
		return dbclient.ColumnTimestamp, 0, nil
	case "VARCHAR", "CHAR", "STRING":
		return dbclient.ColumnString, size, nil
	case "SMALLINT":
		return dbclient.ColumnSmallInt, 0, nil
	case "INT", "INTEGER":
		return dbclient.ColumnInt, 0, nil
	case "BIGINT", "LARGEINT":
		return dbclient.ColumnLargeInt, 0, nil
	case "FLOAT":
		return dbclient.ColumnFloat, 0, nil
	case "DOUBLE", "DOUBLE PRECISION", "NUMERIC", "DECIMAL":
		return dbclient.ColumnDouble, 0, nil
	default:
		return dbclient.ColumnUnknown, 0, fmt.Errorf("memdb: unknown column type %q", name)
	}
}

func compileCreateTable(eng *Engine, sql string) (*statement, error) {
	m := reCreateTable.FindStringSubmatch(sql)
	if m == nil {
		return nil, fmt.Errorf("memdb: malformed CREATE TABLE: %s", sql)
	}
	name := m[1]
	var cols []column
	for _, part := range splitTopLevel(m[2], ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, " ", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("memdb: malformed column definition %q", part)
		}
		typ, size, err := parseColumnType(fields[1])
		if err != nil {
			return nil, err
		}
		cols = append(cols, column{name: strings.TrimSpace(fields[0]), typ: typ, size: size})
	}
	return &statement{
		eng:  eng,
		sql:  sql,
		kind: stmtCreateTable,
		createSpec: &table{
			name:    name,
			columns: cols,
		},
		plan: "create table " + name,
	}, nil
}

func compileInsert(eng *Engine, sql string) (*statement, error) {
	m := reInsert.FindStringSubmatch(sql)
	if m == nil {
		return nil, fmt.Errorf("memdb: malformed INSERT: %s", sql)
	}
	tableName, colList, valList := m[1], m[2], m[3]
	eng.mu.Lock()
	tbl, ok := eng.tables[tableName]
	eng.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("memdb: unknown table %q", tableName)
	}
	var insertCols []int
	for _, c := range splitTopLevel(colList, ',') {
		c = strings.TrimSpace(c)
		idx := tbl.colIndex(c)
		if idx < 0 {
			return nil, fmt.Errorf("memdb: unknown column %q in table %q", c, tableName)
		}
		insertCols = append(insertCols, idx)
	}
	placeholders := splitTopLevel(valList, ',')
	for _, p := range placeholders {
		if strings.TrimSpace(p) != "?" {
			return nil, fmt.Errorf("memdb: only fully parameterized INSERT values are supported, got %q", p)
		}
	}
	if len(placeholders) != len(insertCols) {
		return nil, fmt.Errorf("memdb: column count %d does not match value count %d", len(insertCols), len(placeholders))
	}
	return &statement{
		eng:        eng,
		sql:        sql,
		kind:       stmtInsert,
		table:      tbl,
		insertCols: insertCols,
		paramCount: len(insertCols),
		plan:       "insert into " + tableName,
	}, nil
}

func compileSelect(eng *Engine, sql string) (*statement, error) {
	m := reSelect.FindStringSubmatch(sql)
	if m == nil {
		return nil, fmt.Errorf("memdb: malformed SELECT: %s", sql)
	}
	colsPart, tableName, whereCol, orderCol, orderDir := strings.TrimSpace(m[1]), m[2], m[3], m[4], m[5]

	eng.mu.Lock()
	tbl, ok := eng.tables[tableName]
	eng.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("memdb: unknown table %q", tableName)
	}

	st := &statement{
		eng:   eng,
		sql:   sql,
		kind:  stmtSelect,
		table: tbl,
		plan:  "table scan on " + tableName,
	}

	if strings.EqualFold(strings.ReplaceAll(colsPart, " ", ""), "COUNT(*)") {
		st.isCount = true
	} else {
		for _, c := range splitTopLevel(colsPart, ',') {
			c = strings.TrimSpace(c)
			if c == "*" {
				for i := range tbl.columns {
					st.selectCols = append(st.selectCols, i)
				}
				continue
			}
			idx := tbl.colIndex(c)
			if idx < 0 {
				return nil, fmt.Errorf("memdb: unknown column %q in table %q", c, tableName)
			}
			st.selectCols = append(st.selectCols, idx)
		}
	}

	if whereCol != "" {
		idx := tbl.colIndex(whereCol)
		if idx < 0 {
			return nil, fmt.Errorf("memdb: unknown column %q in WHERE clause", whereCol)
		}
		st.whereCol = idx
		st.paramCount = 1
		st.plan = fmt.Sprintf("index lookup on %s.%s", tableName, whereCol)
	} else {
		st.whereCol = -1
	}

	if orderCol != "" {
		idx := tbl.colIndex(orderCol)
		if idx < 0 {
			return nil, fmt.Errorf("memdb: unknown column %q in ORDER BY clause", orderCol)
		}
		st.orderCol = idx
		st.orderDesc = strings.EqualFold(orderDir, "DESC")
	} else {
		st.orderCol = -1
	}

	return st, nil
}

func compile(eng *Engine, sql string) (*statement, error) {
	trimmed := strings.TrimSpace(sql)
	upper := strings.ToUpper(trimmed)
	switch {
	case strings.HasPrefix(upper, "CREATE TABLE"):
		return compileCreateTable(eng, trimmed)
	case strings.HasPrefix(upper, "INSERT INTO"):
		return compileInsert(eng, trimmed)
	case strings.HasPrefix(upper, "SELECT"):
		return compileSelect(eng, trimmed)
	default:
		return nil, fmt.Errorf("memdb: unsupported statement: %s", sql)
	}
}
