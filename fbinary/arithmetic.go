package fbinary

import (
	"math"

	"colexpr-go/column"
	"colexpr-go/types"

	"golang.org/x/exp/constraints"
)

type integer interface {
	int8 | int16 | int32 | int64
}

// numFamily holds one kernel per arithmetic stype. Arithmetic never runs
// narrower than INT32, so those four instantiations are all that is needed.
type numFamily struct {
	i32 func(int32, int32) int32
	i64 func(int64, int64) int64
	f32 func(float32, float32) float32
	f64 func(float64, float64) float64
}

// maker returns nil when the family has no kernel for st.
func (f numFamily) maker(op Op, st types.SType) *BiMaker {
	switch {
	case st == types.Int32 && f.i32 != nil:
		return makeFn1(op, st, st, st, f.i32)
	case st == types.Int64 && f.i64 != nil:
		return makeFn1(op, st, st, st, f.i64)
	case st == types.Float32 && f.f32 != nil:
		return makeFn1(op, st, st, st, f.f32)
	case st == types.Float64 && f.f64 != nil:
		return makeFn1(op, st, st, st, f.f64)
	}
	return nil
}

var arithmetic = map[Op]numFamily{
	Plus:     {opPlus[int32], opPlus[int64], opPlus[float32], opPlus[float64]},
	Minus:    {opMinus[int32], opMinus[int64], opMinus[float32], opMinus[float64]},
	Multiply: {opMultiply[int32], opMultiply[int64], opMultiply[float32], opMultiply[float64]},
	Divide:   {f32: opDivide[float32], f64: opDivide[float64]},
	IntDiv:   {i32: opIntDiv[int32], i64: opIntDiv[int64]},
	Modulo:   {i32: opModulo[int32], i64: opModulo[int64]},
	PowerOp:  {opPowInt[int32], opPowInt[int64], opPowFloat[float32], opPowFloat[float64]},
}

func opPlus[T types.Numeric](x, y T) T     { return x + y }
func opMinus[T types.Numeric](x, y T) T    { return x - y }
func opMultiply[T types.Numeric](x, y T) T { return x * y }

// opDivide yields NaN, and therefore NA, for a zero divisor.
func opDivide[T constraints.Float](x, y T) T {
	if y == 0 {
		return T(math.NaN())
	}
	return x / y
}

// opIntDiv rounds the quotient towards negative infinity.
func opIntDiv[T integer](x, y T) T {
	if y == 0 {
		return types.NA[T]()
	}
	q := x / y
	if x%y != 0 && (x < 0) != (y < 0) {
		q--
	}
	return q
}

// opModulo returns a remainder with the sign of the divisor, so that
// x == y*(x//y) + x%y.
func opModulo[T integer](x, y T) T {
	if y == 0 {
		return types.NA[T]()
	}
	r := x % y
	if r != 0 && (r < 0) != (y < 0) {
		r += y
	}
	return r
}

// opPowInt is truncating integer power. A negative exponent gives 0 unless the
// base is 1 or -1; 0 raised to a negative power is NA.
func opPowInt[T integer](x, y T) T {
	if y < 0 {
		switch x {
		case 1:
			return 1
		case -1:
			if y&1 == 0 {
				return 1
			}
			return -1
		case 0:
			return types.NA[T]()
		}
		return 0
	}
	var r T = 1
	for y > 0 {
		if y&1 == 1 {
			r *= x
		}
		x *= x
		y >>= 1
	}
	return r
}

func opPowFloat[T constraints.Float](x, y T) T {
	return T(math.Pow(float64(x), float64(y)))
}

func voidMaker(op Op) *BiMaker {
	return makeColumn(op, noCast, noCast, types.Void, func(_, _ column.Column, nrows int) column.Column {
		return column.NewVoid(nrows)
	})
}

// resolveArithmetic handles + - * / // % and **.
func resolveArithmetic(op Op, st1, st2 types.SType) (*BiMaker, error) {
	if st1 == types.Void || st2 == types.Void {
		return voidMaker(op), nil
	}
	st := types.CommonSType(st1, st2)
	if st == types.Invalid {
		return nil, typeError(op, st1, st2)
	}
	if st.IsString() {
		if op != Plus {
			return nil, typeError(op, st1, st2)
		}
		return makeColumn(op, st, st, st, func(a, b column.Column, nrows int) column.Column {
			return column.NewStrPlus(a, b, nrows, st)
		}), nil
	}
	switch op {
	case Divide:
		if st != types.Float32 {
			st = types.Float64
		}
	case IntDiv, Modulo:
		if st.IsFloat() {
			return nil, typeError(op, st1, st2)
		}
		st = atLeastInt32(st)
	default:
		st = atLeastInt32(st)
	}
	if m := arithmetic[op].maker(op, st); m != nil {
		return m, nil
	}
	return nil, typeError(op, st1, st2)
}

// atLeastInt32 lifts VOID, BOOL, INT8 and INT16 to INT32.
func atLeastInt32(st types.SType) types.SType {
	switch st {
	case types.Void, types.Bool, types.Int8, types.Int16:
		return types.Int32
	}
	return st
}
