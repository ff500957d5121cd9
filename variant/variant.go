// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

// Package variant implements the typed nullable cell value that crosses
// the boundary between a SQL column and Go code: Variant.
package variant

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Kind tags the payload currently held by a Variant.
type Kind uint8

const (
	KindNull Kind = iota
	KindSmallInt
	KindInt
	KindLargeInt
	KindFloat
	KindDouble
	KindBytes
	KindDate
	KindTime
	KindTimestamp
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindSmallInt:
		return "SmallInt"
	case KindInt:
		return "Int"
	case KindLargeInt:
		return "LargeInt"
	case KindFloat:
		return "Float"
	case KindDouble:
		return "Double"
	case KindBytes:
		return "Bytes"
	case KindDate:
		return "Date"
	case KindTime:
		return "Time"
	case KindTimestamp:
		return "Timestamp"
	case KindText:
		return "Text"
	default:
		return "Unknown"
	}
}

// Date is a calendar date with no timezone.
type Date struct {
	Year, Month, Day int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Time is a wall-clock time of day with millisecond precision.
type Time struct {
	Hour, Minute, Second, Millisecond int
}

func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d:%02d.%03d", t.Hour, t.Minute, t.Second, t.Millisecond)
}

// Timestamp is a combined date and time.
type Timestamp struct {
	Year, Month, Day, Hour, Minute, Second, Millisecond int
}

func (ts Timestamp) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%03d",
		ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute, ts.Second, ts.Millisecond)
}

// Date returns the date portion of the timestamp.
func (ts Timestamp) Date() Date { return Date{ts.Year, ts.Month, ts.Day} }

// Time returns the time-of-day portion of the timestamp.
func (ts Timestamp) Time() Time { return Time{ts.Hour, ts.Minute, ts.Second, ts.Millisecond} }

// Variant is a tagged value: exactly one of the Kind payloads is valid at
// a time. The zero value is Null.
type Variant struct {
	kind  Kind
	i64   int64
	f32   float32
	f64   float64
	bytes []byte
	text  string
	date  Date
	tim   Time
	ts    Timestamp
}

// Null returns a null Variant.
func Null() Variant { return Variant{kind: KindNull} }

// NewSmallInt constructs an explicitly-typed SmallInt Variant.
func NewSmallInt(v int16) Variant { return Variant{kind: KindSmallInt, i64: int64(v)} }

// NewInt constructs an explicitly-typed Int Variant.
func NewInt(v int32) Variant { return Variant{kind: KindInt, i64: int64(v)} }

// NewLargeInt constructs an explicitly-typed LargeInt Variant.
func NewLargeInt(v int64) Variant { return Variant{kind: KindLargeInt, i64: v} }

// NewFloat constructs an explicitly-typed Float (single precision)
// Variant. Float is reachable only through this explicit constructor:
// generic construction from a floating-point input always selects
// Double instead (see Set).
func NewFloat(v float32) Variant { return Variant{kind: KindFloat, f32: v} }

// NewDouble constructs an explicitly-typed Double Variant.
func NewDouble(v float64) Variant { return Variant{kind: KindDouble, f64: v} }

// NewBytes constructs an explicitly-typed Bytes Variant. The input is
// copied.
func NewBytes(v []byte) Variant {
	cp := append([]byte(nil), v...)
	return Variant{kind: KindBytes, bytes: cp}
}

// NewDate constructs an explicitly-typed Date Variant.
func NewDate(d Date) Variant { return Variant{kind: KindDate, date: d} }

// NewTime constructs an explicitly-typed Time Variant.
func NewTime(t Time) Variant { return Variant{kind: KindTime, tim: t} }

// NewTimestamp constructs an explicitly-typed Timestamp Variant.
func NewTimestamp(ts Timestamp) Variant { return Variant{kind: KindTimestamp, ts: ts} }

// NewText constructs an explicitly-typed Text Variant.
func NewText(s string) Variant { return Variant{kind: KindText, text: s} }

// From constructs a Variant from a generic Go value using the same
// auto-detection priority rules as Set on a fresh (Null) Variant.
func From(v any) Variant {
	var out Variant
	out.Set(v)
	return out
}

// Kind reports the tag currently held.
func (v Variant) Kind() Kind { return v.kind }

// IsNull reports whether the Variant is Null.
func (v Variant) IsNull() bool { return v.kind == KindNull }

// SetNull clears the Variant to Null.
func (v *Variant) SetNull() { *v = Variant{kind: KindNull} }

func category(k Kind) string {
	switch k {
	case KindSmallInt, KindInt, KindLargeInt:
		return "int"
	case KindFloat, KindDouble:
		return "float"
	case KindBytes:
		return "bytes"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindTimestamp:
		return "timestamp"
	case KindText:
		return "text"
	default:
		return "null"
	}
}

func categoryOf(val any) string {
	switch val.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "int"
	case float32, float64:
		return "float"
	case []byte:
		return "bytes"
	case Date:
		return "date"
	case Time:
		return "time"
	case Timestamp:
		return "timestamp"
	case string:
		return "text"
	default:
		return "text"
	}
}

func toInt64(val any) int64 {
	switch t := val.(type) {
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case uint:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	default:
		return 0
	}
}

func toFloat64(val any) float64 {
	switch t := val.(type) {
	case float32:
		return float64(t)
	case float64:
		return t
	default:
		return 0
	}
}

// Set assigns a generic value into the Variant:
//  1. If the current tag's category matches the input's category, the
//     value replaces in place (the tag does not change).
//  2. Otherwise the Variant is cleared and a tag is picked by priority:
//     Bytes, Timestamp, Date/Time, integers by magnitude, Double (never
//     Float), then Text as the fallthrough.
func (v *Variant) Set(val any) {
	if val == nil {
		v.SetNull()
		return
	}

	cat := categoryOf(val)
	if v.kind != KindNull && category(v.kind) == cat {
		v.assignInPlace(cat, val)
		return
	}

	*v = Variant{}
	switch t := val.(type) {
	case []byte:
		v.kind = KindBytes
		v.bytes = append([]byte(nil), t...)
	case Timestamp:
		v.kind = KindTimestamp
		v.ts = t
	case Date:
		v.kind = KindDate
		v.date = t
	case Time:
		v.kind = KindTime
		v.tim = t
	case float32, float64:
		v.kind = KindDouble
		v.f64 = toFloat64(t)
	case string:
		v.kind = KindText
		v.text = t
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n := toInt64(t)
		switch {
		case n >= -32768 && n <= 32767:
			v.kind = KindSmallInt
		case n >= -2147483648 && n <= 2147483647:
			v.kind = KindInt
		default:
			v.kind = KindLargeInt
		}
		v.i64 = n
	default:
		v.kind = KindText
		v.text = fmt.Sprint(t)
	}
}

func (v *Variant) assignInPlace(cat string, val any) {
	switch cat {
	case "int":
		v.i64 = toInt64(val)
	case "float":
		if v.kind == KindFloat {
			v.f32 = float32(toFloat64(val))
		} else {
			v.f64 = toFloat64(val)
		}
	case "bytes":
		v.bytes = append([]byte(nil), val.([]byte)...)
	case "date":
		v.date = val.(Date)
	case "time":
		v.tim = val.(Time)
	case "timestamp":
		v.ts = val.(Timestamp)
	case "text":
		if s, ok := val.(string); ok {
			v.text = s
		} else {
			v.text = fmt.Sprint(val)
		}
	}
}

// AsInt16 performs a lossy numeric/text coercion to int16. Narrowing
// truncates; unparsable text yields zero.
func (v Variant) AsInt16() int16 { return int16(v.AsInt64()) }

// AsInt32 performs a lossy numeric/text coercion to int32.
func (v Variant) AsInt32() int32 { return int32(v.AsInt64()) }

// AsInt64 performs a lossy numeric/text coercion to int64.
func (v Variant) AsInt64() int64 {
	switch v.kind {
	case KindSmallInt, KindInt, KindLargeInt:
		return v.i64
	case KindFloat:
		return int64(v.f32)
	case KindDouble:
		return int64(v.f64)
	case KindText:
		n, _ := strconv.ParseInt(strings.TrimSpace(v.text), 10, 64)
		return n
	case KindBytes:
		n, _ := strconv.ParseInt(strings.TrimSpace(string(v.bytes)), 10, 64)
		return n
	default:
		return 0
	}
}

// AsFloat32 performs a lossy numeric/text coercion to float32.
func (v Variant) AsFloat32() float32 {
	if v.kind == KindFloat {
		return v.f32
	}
	return float32(v.AsFloat64())
}

// AsFloat64 performs a lossy numeric/text coercion to float64.
func (v Variant) AsFloat64() float64 {
	switch v.kind {
	case KindSmallInt, KindInt, KindLargeInt:
		return float64(v.i64)
	case KindFloat:
		return float64(v.f32)
	case KindDouble:
		return v.f64
	case KindText:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		return f
	case KindBytes:
		f, _ := strconv.ParseFloat(strings.TrimSpace(string(v.bytes)), 64)
		return f
	default:
		return 0
	}
}

// AsBytes performs a best-effort coercion to a byte slice.
func (v Variant) AsBytes() []byte {
	switch v.kind {
	case KindBytes:
		return append([]byte(nil), v.bytes...)
	case KindText:
		return []byte(v.text)
	case KindNull:
		return nil
	default:
		return []byte(v.AsString())
	}
}

// AsString always succeeds and produces a canonical rendering: ISO-8601
// for temporal kinds, decimal for numerics, UTF-8 for bytes where valid,
// hex otherwise.
func (v Variant) AsString() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindSmallInt, KindInt, KindLargeInt:
		return strconv.FormatInt(v.i64, 10)
	case KindFloat:
		return strconv.FormatFloat(float64(v.f32), 'f', -1, 32)
	case KindDouble:
		return strconv.FormatFloat(v.f64, 'f', -1, 64)
	case KindBytes:
		if utf8.Valid(v.bytes) {
			return string(v.bytes)
		}
		return hex.EncodeToString(v.bytes)
	case KindDate:
		return v.date.String()
	case KindTime:
		return v.tim.String()
	case KindTimestamp:
		return v.ts.String()
	case KindText:
		return v.text
	default:
		return ""
	}
}

// AsDate performs a best-effort coercion to Date. Unparsable/incompatible
// input yields the zero Date.
func (v Variant) AsDate() Date {
	switch v.kind {
	case KindDate:
		return v.date
	case KindTimestamp:
		return v.ts.Date()
	case KindText:
		if t, err := time.Parse("2006-01-02", strings.TrimSpace(v.text)); err == nil {
			return Date{t.Year(), int(t.Month()), t.Day()}
		}
		return Date{}
	default:
		return Date{}
	}
}

// AsTime performs a best-effort coercion to Time.
func (v Variant) AsTime() Time {
	switch v.kind {
	case KindTime:
		return v.tim
	case KindTimestamp:
		return v.ts.Time()
	case KindText:
		if t, err := time.Parse("15:04:05.000", strings.TrimSpace(v.text)); err == nil {
			return Time{t.Hour(), t.Minute(), t.Second(), t.Nanosecond() / 1e6}
		}
		return Time{}
	default:
		return Time{}
	}
}

// AsTimestamp performs a best-effort coercion to Timestamp.
func (v Variant) AsTimestamp() Timestamp {
	switch v.kind {
	case KindTimestamp:
		return v.ts
	case KindDate:
		return Timestamp{Year: v.date.Year, Month: v.date.Month, Day: v.date.Day}
	case KindText:
		if t, err := time.Parse("2006-01-02T15:04:05.000", strings.TrimSpace(v.text)); err == nil {
			return Timestamp{t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond() / 1e6}
		}
		return Timestamp{}
	default:
		return Timestamp{}
	}
}

// Equal compares two Variants for exact tag+payload equality. Float and
// Double payloads must compare equal with ==; callers that need a
// tolerance compare AsFloat64 values themselves.
func (v Variant) Equal(other Variant) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindSmallInt, KindInt, KindLargeInt:
		return v.i64 == other.i64
	case KindFloat:
		return v.f32 == other.f32
	case KindDouble:
		return v.f64 == other.f64
	case KindBytes:
		return string(v.bytes) == string(other.bytes)
	case KindDate:
		return v.date == other.date
	case KindTime:
		return v.tim == other.tim
	case KindTimestamp:
		return v.ts == other.ts
	case KindText:
		return v.text == other.text
	default:
		return false
	}
}

// String implements fmt.Stringer for debugging/logging.
func (v Variant) String() string {
	if v.IsNull() {
		return "Null"
	}
	return fmt.Sprintf("%s(%s)", v.kind, v.AsString())
}
