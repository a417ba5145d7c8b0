package column

import (
	"fmt"
	"math"
	"strconv"

	"colexpr-go/errs"
	"colexpr-go/types"
)

var _ Column = (*castColumn)(nil)

// castColumn converts the elements of src to stype on every read.
type castColumn struct {
	base
	src Column
}

// Cast returns src viewed as stype st. Casting to the column's own stype
// returns src unchanged; casting a VOID column yields an all-NA column.
// The conversion is lazy: elements are converted only when read.
//
// Supported conversions are numeric to numeric (including BOOL), numeric to
// string, and STR32 to and from STR64. Parsing strings into numbers is not
// implemented. Integer results that do not fit the target stype read as NA.
func Cast(src Column, st types.SType) (Column, error) {
	from := src.SType()
	if from == st {
		return src, nil
	}
	if from == types.Void {
		return NewNA(st, src.NRows()), nil
	}
	c := &castColumn{src: src}
	c.nrows = src.NRows()
	c.stype = st
	var err error
	switch st {
	case types.Bool:
		c.elements, err = castToBool(src)
	case types.Int8:
		c.elements, err = castToNumber[int8](st, src)
	case types.Int16:
		c.elements, err = castToNumber[int16](st, src)
	case types.Int32:
		c.elements, err = castToNumber[int32](st, src)
	case types.Int64:
		c.elements, err = castToNumber[int64](st, src)
	case types.Float32:
		c.elements, err = castToNumber[float32](st, src)
	case types.Float64:
		c.elements, err = castToNumber[float64](st, src)
	case types.Str32, types.Str64:
		c.elements, err = castToString(st, src)
	default:
		err = errs.ValueErrorf("cannot cast column of stype %s into %s", from, st)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

type castTarget interface {
	int8 | int16 | int32 | int64 | float32 | float64
}

func int64Reader(src Column) func(int) (int64, bool) {
	switch src.SType() {
	case types.Bool:
		return widen(src.GetBool, func(v bool) int64 {
			if v {
				return 1
			}
			return 0
		})
	case types.Int8:
		return widen(src.GetInt8, func(v int8) int64 { return int64(v) })
	case types.Int16:
		return widen(src.GetInt16, func(v int16) int64 { return int64(v) })
	case types.Int32:
		return widen(src.GetInt32, func(v int32) int64 { return int64(v) })
	default:
		return src.GetInt64
	}
}

func float64Reader(src Column) func(int) (float64, bool) {
	switch src.SType() {
	case types.Float32:
		return widen(src.GetFloat32, func(v float32) float64 { return float64(v) })
	case types.Float64:
		return src.GetFloat64
	default:
		return widen(int64Reader(src), func(v int64) float64 { return float64(v) })
	}
}

func widen[F, T any](get func(int) (F, bool), conv func(F) T) func(int) (T, bool) {
	return func(i int) (T, bool) {
		v, ok := get(i)
		if !ok {
			var zero T
			return zero, false
		}
		return conv(v), true
	}
}

func castToNumber[T castTarget](st types.SType, src Column) (elements, error) {
	from := src.SType()
	switch {
	case from == types.Bool || from.IsInteger():
		get := int64Reader(src)
		return bind(st, func(i int) (T, bool) {
			v, ok := get(i)
			if !ok {
				return 0, false
			}
			r := T(v)
			if st.IsInteger() && int64(r) != v {
				return 0, false
			}
			return r, !types.IsNA(r)
		}), nil
	case from.IsFloat():
		get := float64Reader(src)
		return bind(st, func(i int) (T, bool) {
			v, ok := get(i)
			if !ok || math.IsNaN(v) {
				return 0, false
			}
			if st.IsInteger() && !fitsInteger(st, v) {
				return 0, false
			}
			r := T(v)
			return r, !types.IsNA(r)
		}), nil
	default:
		return elements{}, errs.NotImplErrorf("cast from %s into %s", from, st)
	}
}

// fitsInteger reports whether v truncates to a value of integer stype st.
func fitsInteger(st types.SType, v float64) bool {
	var lo, hi float64
	switch st {
	case types.Int8:
		lo, hi = math.MinInt8, math.MaxInt8
	case types.Int16:
		lo, hi = math.MinInt16, math.MaxInt16
	case types.Int32:
		lo, hi = math.MinInt32, math.MaxInt32
	default:
		// 2**63 is the first float64 above MaxInt64
		return v >= -(1<<63) && v < 1<<63
	}
	v = math.Trunc(v)
	return v >= lo && v <= hi
}

func castToBool(src Column) (elements, error) {
	from := src.SType()
	switch {
	case from.IsInteger():
		get := int64Reader(src)
		return bind(types.Bool, widen(get, func(v int64) bool { return v != 0 })), nil
	case from.IsFloat():
		get := float64Reader(src)
		return bind(types.Bool, widen(get, func(v float64) bool { return v != 0 })), nil
	default:
		return elements{}, errs.NotImplErrorf("cast from %s into %s", from, types.Bool)
	}
}

func castToString(st types.SType, src Column) (elements, error) {
	from := src.SType()
	switch {
	case from.IsString():
		return bind(st, src.GetString), nil
	case from == types.Bool:
		return bind(st, widen(src.GetBool, func(v bool) string {
			if v {
				return "True"
			}
			return "False"
		})), nil
	case from.IsInteger():
		return bind(st, widen(int64Reader(src), func(v int64) string {
			return strconv.FormatInt(v, 10)
		})), nil
	case from == types.Float32:
		return bind(st, widen(src.GetFloat32, func(v float32) string {
			return strconv.FormatFloat(float64(v), 'g', -1, 32)
		})), nil
	case from == types.Float64:
		return bind(st, widen(src.GetFloat64, func(v float64) string {
			return strconv.FormatFloat(v, 'g', -1, 64)
		})), nil
	default:
		return elements{}, errs.NotImplErrorf("cast from %s into %s", from, st)
	}
}

func (c *castColumn) AllowParallelAccess() bool { return c.src.AllowParallelAccess() }

func (c *castColumn) VerifyIntegrity() error {
	if c.src == nil {
		return errs.Invariantf("cast column has no source")
	}
	if c.src.NRows() != c.nrows {
		return errs.Invariantf("cast column has %d rows, its source %d", c.nrows, c.src.NRows())
	}
	return c.src.VerifyIntegrity()
}

func (c *castColumn) Clone() Column {
	out, err := Cast(c.src.Clone(), c.stype)
	if err != nil {
		panic(err)
	}
	return out
}

// Source returns the column being converted.
func (c *castColumn) Source() Column { return c.src }

func (c *castColumn) String() string {
	return fmt.Sprintf("Cast(%s -> %s, nrows=%d)", c.src.SType(), c.stype, c.nrows)
}
