package types

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Element is the set of Go types used to hold column elements.
// BOOL columns use bool, STR32/STR64 columns use string.
type Element interface {
	bool | int8 | int16 | int32 | int64 | float32 | float64 | string
}

// Numeric is the subset of Element used by arithmetic kernels.
type Numeric interface {
	constraints.Integer | constraints.Float
}

// NA returns the reserved NA value of T: the minimum value for signed integers
// and NaN for floats. bool and string have no reserved value and return the zero value.
func NA[T Element]() T {
	var v T
	switch p := any(&v).(type) {
	case *int8:
		*p = math.MinInt8
	case *int16:
		*p = math.MinInt16
	case *int32:
		*p = math.MinInt32
	case *int64:
		*p = math.MinInt64
	case *float32:
		*p = float32(math.NaN())
	case *float64:
		*p = math.NaN()
	}
	return v
}

// IsNA reports whether v is the reserved NA value of its type.
func IsNA[T Element](v T) bool {
	switch x := any(v).(type) {
	case int8:
		return x == math.MinInt8
	case int16:
		return x == math.MinInt16
	case int32:
		return x == math.MinInt32
	case int64:
		return x == math.MinInt64
	case float32:
		return math.IsNaN(float64(x))
	case float64:
		return math.IsNaN(x)
	}
	return false
}

// IsNAFloat is the float-only fast path of IsNA.
func IsNAFloat[T constraints.Float](v T) bool {
	return v != v
}

// STypeOf returns the natural stype of the Go element type T.
// string maps to STR32.
func STypeOf[T Element]() SType {
	var v T
	switch any(v).(type) {
	case bool:
		return Bool
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case float32:
		return Float32
	case float64:
		return Float64
	case string:
		return Str32
	}
	return Invalid
}

// Compatible reports whether elements of stype s are held in Go type T.
func Compatible[T Element](s SType) bool {
	t := STypeOf[T]()
	if t == Str32 {
		return s == Str32 || s == Str64
	}
	return t == s
}
