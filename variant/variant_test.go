// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package variant

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullIsZeroValue(t *testing.T) {
	var v Variant
	assert.True(t, v.IsNull())
	assert.Equal(t, KindNull, v.Kind())
	assert.Equal(t, "", v.AsString())
}

func TestAutoDetectPriority(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Kind
	}{
		{"small int", int16(5), KindSmallInt},
		{"int fits smallint by magnitude", 5, KindSmallInt},
		{"int32 magnitude", 100000, KindInt},
		{"int64 magnitude", int64(math.MaxInt32) + 1, KindLargeInt},
		{"bytes", []byte{1, 2, 3}, KindBytes},
		{"timestamp", Timestamp{2004, 2, 29, 10, 11, 12, 1314}, KindTimestamp},
		{"date", Date{2024, 1, 1}, KindDate},
		{"time", Time{10, 0, 0, 0}, KindTime},
		{"float64 never becomes Float", 3.25, KindDouble},
		{"float32 input still becomes Double via auto-detect", float32(3.25), KindDouble},
		{"string", "hello", KindText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := From(tt.in)
			assert.Equal(t, tt.want, v.Kind(), "kind for %v", tt.in)
		})
	}
}

func TestFloatOnlyViaExplicitConstructor(t *testing.T) {
	v := NewFloat(1.5)
	assert.Equal(t, KindFloat, v.Kind())
	assert.Equal(t, float32(1.5), v.AsFloat32())
}

func TestSetReplacesInPlaceWhenCategoryMatches(t *testing.T) {
	v := NewInt(10)
	v.Set(int64(20)) // same "int" category: stays Int, not promoted to LargeInt
	assert.Equal(t, KindInt, v.Kind())
	assert.Equal(t, int32(20), v.AsInt32())

	d := NewDouble(1.5)
	d.Set(float32(2.5)) // same "float" category: stays Double
	assert.Equal(t, KindDouble, d.Kind())
	assert.InDelta(t, 2.5, d.AsFloat64(), 1e-9)
}

func TestSetPicksNewTagWhenCategoryDiffers(t *testing.T) {
	v := NewText("hi")
	v.Set(42)
	assert.Equal(t, KindSmallInt, v.Kind())
}

func TestLossyNarrowing(t *testing.T) {
	v := NewLargeInt(1<<40 + 5)
	assert.Equal(t, int32(5), v.AsInt32()) // truncation, not error
}

func TestTextCoercionFallsBackToZero(t *testing.T) {
	v := NewText("not a number")
	assert.Equal(t, int64(0), v.AsInt64())
	assert.Equal(t, float64(0), v.AsFloat64())
}

func TestAsStringCanonicalForms(t *testing.T) {
	assert.Equal(t, "2004-02-29", NewDate(Date{2004, 2, 29}).AsString())
	assert.Equal(t, "10:11:12.131", NewTime(Time{10, 11, 12, 131}).AsString())
	assert.Equal(t, "2004-02-29T10:11:12.131", NewTimestamp(Timestamp{2004, 2, 29, 10, 11, 12, 131}).AsString())
	assert.Equal(t, "42", NewInt(42).AsString())
}

func TestAsBytesUTF8VsHex(t *testing.T) {
	valid := NewBytes([]byte("hello"))
	assert.Equal(t, "hello", valid.AsString())

	invalid := NewBytes([]byte{0xff, 0xfe, 0x00, 0x01})
	s := invalid.AsString()
	assert.NotEqual(t, string(invalid.AsBytes()), s) // hex, not raw
}

func TestVariantRoundTripAllKinds(t *testing.T) {
	ts := Timestamp{2004, 2, 29, 10, 11, 12, 1314 % 1000}
	cases := []Variant{
		Null(),
		NewSmallInt(7),
		NewInt(-12345),
		NewLargeInt(9_000_000_000),
		NewFloat(1.25),
		NewDouble(3.14159),
		NewBytes([]byte{1, 2, 3, 4}),
		NewDate(Date{2024, 6, 15}),
		NewTime(Time{23, 59, 59, 999}),
		NewTimestamp(ts),
		NewText("round trip"),
	}
	for _, c := range cases {
		require.True(t, c.Equal(c))
	}
}
