package types

import (
	"math"
	"testing"

	"colexpr-go/errs"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommonSTypeCommutative(t *testing.T) {
	for _, a := range AllSTypes() {
		for _, b := range AllSTypes() {
			assert.Equal(t, CommonSType(a, b), CommonSType(b, a), "%s vs %s", a, b)
		}
	}
}

func TestCommonSTypeIdempotent(t *testing.T) {
	for _, a := range AllSTypes() {
		if a == Void {
			continue
		}
		assert.Equal(t, a, CommonSType(a, a))
	}
}

func TestCommonSTypeTable(t *testing.T) {
	tests := []struct {
		a, b, want SType
	}{
		{Bool, Int8, Int8},
		{Bool, Bool, Bool},
		{Int8, Int32, Int32},
		{Int16, Int64, Int64},
		{Int64, Float32, Float32},
		{Int32, Float64, Float64},
		{Float32, Float64, Float64},
		{Str32, Str64, Str64},
		{Void, Int16, Int16},
		{Void, Str32, Str32},
		{Void, Void, Void},
		{Int32, Str32, Invalid},
		{Bool, Str64, Invalid},
		{Float64, Str32, Invalid},
		{Invalid, Int32, Invalid},
	}
	for _, tt := range tests {
		t.Run(tt.a.String()+"_"+tt.b.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, CommonSType(tt.a, tt.b))
		})
	}
}

func TestLType(t *testing.T) {
	assert.Equal(t, LVoid, Void.LType())
	assert.Equal(t, LBool, Bool.LType())
	for _, s := range []SType{Int8, Int16, Int32, Int64} {
		assert.True(t, s.IsInteger())
		assert.True(t, s.IsNumeric())
	}
	assert.True(t, Float32.IsFloat())
	assert.True(t, Str64.IsString())
	assert.False(t, Str32.IsNumeric())
	assert.Equal(t, LInvalid, Invalid.LType())
}

func TestArrowRoundTrip(t *testing.T) {
	for _, s := range AllSTypes() {
		got, err := FromArrow(s.ArrowType())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := FromArrow(arrow.PrimitiveTypes.Uint32)
	require.ErrorIs(t, err, errs.ErrType)
}

func TestParseSType(t *testing.T) {
	s, err := ParseSType("float64")
	require.NoError(t, err)
	assert.Equal(t, Float64, s)
	_, err = ParseSType("invalid")
	require.Error(t, err)
	_, err = ParseSType("decimal")
	require.ErrorIs(t, err, errs.ErrValue)
}

func TestNASentinels(t *testing.T) {
	assert.Equal(t, int8(math.MinInt8), NA[int8]())
	assert.Equal(t, int32(math.MinInt32), NA[int32]())
	assert.Equal(t, int64(math.MinInt64), NA[int64]())
	assert.True(t, math.IsNaN(NA[float64]()))
	assert.True(t, IsNA(NA[float32]()))
	assert.True(t, IsNA(NA[int16]()))
	assert.False(t, IsNA(int32(0)))
	assert.False(t, IsNA(false))
	assert.False(t, IsNA(""))
	assert.True(t, IsNAFloat(math.NaN()))
}

func TestCompatible(t *testing.T) {
	assert.True(t, Compatible[string](Str64))
	assert.True(t, Compatible[string](Str32))
	assert.True(t, Compatible[int32](Int32))
	assert.False(t, Compatible[int32](Int64))
	assert.True(t, Compatible[bool](Bool))
	assert.Equal(t, Float32, STypeOf[float32]())
}
