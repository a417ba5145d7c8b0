package fbinary

import (
	"colexpr-go/column"
	"colexpr-go/types"
)

type intFamily struct {
	i8  func(int8, int8) int8
	i16 func(int16, int16) int16
	i32 func(int32, int32) int32
	i64 func(int64, int64) int64
}

func (f intFamily) maker(op Op, st types.SType) *BiMaker {
	switch st {
	case types.Int8:
		return makeFn1(op, st, st, st, f.i8)
	case types.Int16:
		return makeFn1(op, st, st, st, f.i16)
	case types.Int32:
		return makeFn1(op, st, st, st, f.i32)
	case types.Int64:
		return makeFn1(op, st, st, st, f.i64)
	}
	return nil
}

var bitwise = map[Op]intFamily{
	And: {opAnd[int8], opAnd[int16], opAnd[int32], opAnd[int64]},
	Or:  {opOr[int8], opOr[int16], opOr[int32], opOr[int64]},
	Xor: {opXor[int8], opXor[int16], opXor[int32], opXor[int64]},
}

func opAnd[T integer](x, y T) T { return x & y }
func opOr[T integer](x, y T) T  { return x | y }
func opXor[T integer](x, y T) T { return x ^ y }

func opXorBool(x, y bool) bool { return x != y }

// opLShift shifts left by y bits; a negative y shifts right instead.
func opLShift[T integer](x T, y int32) T {
	if y < 0 {
		return x >> uint32(-y)
	}
	return x << uint32(y)
}

// opRShift is the arithmetic right shift; a negative y shifts left instead.
func opRShift[T integer](x T, y int32) T {
	if y < 0 {
		return x << uint32(-y)
	}
	return x >> uint32(y)
}

// resolveBitwise handles & | and ^. VOID operands behave as BOOL; two BOOL
// operands of & and | get the short-circuit columns.
func resolveBitwise(op Op, st1, st2 types.SType) (*BiMaker, error) {
	a, b := st1, st2
	if a == types.Void {
		a = types.Bool
	}
	if b == types.Void {
		b = types.Bool
	}
	st := types.CommonSType(a, b)
	switch {
	case st == types.Bool:
		switch op {
		case And:
			return makeColumn(op, st, st, st, column.NewBooleanAnd), nil
		case Or:
			return makeColumn(op, st, st, st, column.NewBooleanOr), nil
		default:
			return makeFn1(op, st, st, st, opXorBool), nil
		}
	case st.IsInteger():
		return bitwise[op].maker(op, st), nil
	}
	return nil, typeError(op, st1, st2)
}

// resolveShift handles << and >>. The output keeps the stype of the left
// operand; the shift amount is read as INT32, and amounts outside that
// range give NA.
func resolveShift(op Op, st1, st2 types.SType) (*BiMaker, error) {
	if !st1.IsInteger() || !(st2 == types.Bool || st2 == types.Void || st2.IsInteger()) {
		return nil, typeError(op, st1, st2)
	}
	up2 := types.Int32
	switch st1 {
	case types.Int8:
		return makeFn1(op, noCast, up2, st1, shiftKernel[int8](op)), nil
	case types.Int16:
		return makeFn1(op, noCast, up2, st1, shiftKernel[int16](op)), nil
	case types.Int32:
		return makeFn1(op, noCast, up2, st1, shiftKernel[int32](op)), nil
	default:
		return makeFn1(op, noCast, up2, st1, shiftKernel[int64](op)), nil
	}
}

func shiftKernel[T integer](op Op) func(T, int32) T {
	if op == LShift {
		return opLShift[T]
	}
	return opRShift[T]
}
