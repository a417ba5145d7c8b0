package fbinary

import (
	"colexpr-go/column"
	"colexpr-go/types"

	"golang.org/x/exp/constraints"
)

// Comparison kernels always produce a valid boolean.

// opEq treats two NA values as equal.
func opEq[T types.Element](x T, xvalid bool, y T, yvalid bool) (bool, bool) {
	return xvalid == yvalid && (x == y || !xvalid), true
}

func opNe[T types.Element](x T, xvalid bool, y T, yvalid bool) (bool, bool) {
	eq, _ := opEq(x, xvalid, y, yvalid)
	return !eq, true
}

func opLt[T constraints.Ordered](x T, xvalid bool, y T, yvalid bool) (bool, bool) {
	return xvalid && yvalid && x < y, true
}

func opGt[T constraints.Ordered](x T, xvalid bool, y T, yvalid bool) (bool, bool) {
	return xvalid && yvalid && x > y, true
}

// opLe is true when both operands are NA.
func opLe[T constraints.Ordered](x T, xvalid bool, y T, yvalid bool) (bool, bool) {
	if xvalid && yvalid {
		return x <= y, true
	}
	return !xvalid && !yvalid, true
}

// opGe is true when both operands are NA.
func opGe[T constraints.Ordered](x T, xvalid bool, y T, yvalid bool) (bool, bool) {
	if xvalid && yvalid {
		return x >= y, true
	}
	return !xvalid && !yvalid, true
}

// cmpKernel returns the instantiation of the comparison op for T.
func cmpKernel[T interface {
	types.Element
	constraints.Ordered
}](op Op) column.NAKernel[T, T, bool] {
	switch op {
	case Eq:
		return opEq[T]
	case Ne:
		return opNe[T]
	case Lt:
		return opLt[T]
	case Gt:
		return opGt[T]
	case Le:
		return opLe[T]
	default:
		return opGe[T]
	}
}

func cmpMaker(op Op, st types.SType) *BiMaker {
	switch st {
	case types.Bool:
		if op == Eq {
			return makeFn2(op, st, st, types.Bool, column.NAKernel[bool, bool, bool](opEq[bool]))
		}
		return makeFn2(op, st, st, types.Bool, column.NAKernel[bool, bool, bool](opNe[bool]))
	case types.Int8:
		return makeFn2(op, st, st, types.Bool, cmpKernel[int8](op))
	case types.Int16:
		return makeFn2(op, st, st, types.Bool, cmpKernel[int16](op))
	case types.Int32:
		return makeFn2(op, st, st, types.Bool, cmpKernel[int32](op))
	case types.Int64:
		return makeFn2(op, st, st, types.Bool, cmpKernel[int64](op))
	case types.Float32:
		return makeFn2(op, st, st, types.Bool, cmpKernel[float32](op))
	case types.Float64:
		return makeFn2(op, st, st, types.Bool, cmpKernel[float64](op))
	case types.Str64:
		return makeFn2(op, st, st, types.Bool, cmpKernel[string](op))
	}
	return nil
}

// resolveEquality handles == and !=. Comparing against a VOID column is a
// test for NA; strings are always compared as STR64.
func resolveEquality(op Op, st1, st2 types.SType) (*BiMaker, error) {
	if st1 == types.Void || st2 == types.Void {
		test := column.IsNA
		if op == Ne {
			test = column.NotNA
		}
		swap := st1 == types.Void && st2 != types.Void
		return makeColumn(op, noCast, noCast, types.Bool, func(a, b column.Column, _ int) column.Column {
			if swap {
				return test(b)
			}
			return test(a)
		}), nil
	}
	if st1.IsString() || st2.IsString() {
		if !st1.IsString() || !st2.IsString() {
			return nil, typeError(op, st1, st2)
		}
		return cmpMaker(op, types.Str64), nil
	}
	st := types.CommonSType(st1, st2)
	if m := cmpMaker(op, st); m != nil {
		return m, nil
	}
	return nil, typeError(op, st1, st2)
}

// resolveOrdering handles < > <= and >=. Strings are not ordered; narrow
// operands are compared as INT32.
func resolveOrdering(op Op, st1, st2 types.SType) (*BiMaker, error) {
	if st1.IsString() || st2.IsString() {
		return nil, typeError(op, st1, st2)
	}
	st := types.CommonSType(st1, st2)
	if st == types.Invalid {
		return nil, typeError(op, st1, st2)
	}
	st = atLeastInt32(st)
	if m := cmpMaker(op, st); m != nil {
		return m, nil
	}
	return nil, typeError(op, st1, st2)
}
