package fbinary

import (
	"math"

	"colexpr-go/types"

	"golang.org/x/exp/constraints"
)

type floatFamily struct {
	f32 func(float32, float32) float32
	f64 func(float64, float64) float64
}

var mathFuncs = map[Op]floatFamily{
	Arctan2:    {lift2[float32](math.Atan2), lift2[float64](math.Atan2)},
	Hypot:      {lift2[float32](math.Hypot), lift2[float64](math.Hypot)},
	PowerFn:    {lift2[float32](math.Pow), lift2[float64](math.Pow)},
	Copysign:   {lift2[float32](math.Copysign), lift2[float64](math.Copysign)},
	Logaddexp:  {lift2[float32](logaddexp), lift2[float64](logaddexp)},
	Logaddexp2: {lift2[float32](logaddexp2), lift2[float64](logaddexp2)},
	Fmod:       {lift2[float32](math.Mod), lift2[float64](math.Mod)},
}

// lift2 evaluates a float64 function at the precision of T.
func lift2[T constraints.Float](f func(float64, float64) float64) func(T, T) T {
	return func(x, y T) T {
		return T(f(float64(x), float64(y)))
	}
}

// logaddexp computes log(exp(x) + exp(y)) without overflow.
func logaddexp(x, y float64) float64 {
	if x == y {
		return x + math.Ln2
	}
	d := x - y
	if d > 0 {
		return x + math.Log1p(math.Exp(-d))
	}
	if d <= 0 {
		return y + math.Log1p(math.Exp(d))
	}
	// one side is NaN
	return d
}

// logaddexp2 computes log2(2**x + 2**y) without overflow.
func logaddexp2(x, y float64) float64 {
	if x == y {
		return x + 1
	}
	d := x - y
	if d > 0 {
		return x + math.Log1p(math.Exp2(-d))/math.Ln2
	}
	if d <= 0 {
		return y + math.Log1p(math.Exp2(d))/math.Ln2
	}
	return d
}

func opLdexp[T constraints.Float](x T, e int32) T {
	return T(math.Ldexp(float64(x), int(e)))
}

// floatOf is the stype a math function computes in for an operand of stype st.
func floatOf(st types.SType) types.SType {
	if st == types.Float32 {
		return st
	}
	return types.Float64
}

// resolveMath handles the two-argument math functions. Integer and boolean
// operands are computed as FLOAT64.
func resolveMath(op Op, st1, st2 types.SType) (*BiMaker, error) {
	if op == Ldexp {
		return resolveLdexp(st1, st2)
	}
	st := types.CommonSType(st1, st2)
	if st == types.Invalid || st.IsString() {
		return nil, typeError(op, st1, st2)
	}
	st = floatOf(st)
	fam := mathFuncs[op]
	if st == types.Float32 {
		return makeFn1(op, st, st, st, fam.f32), nil
	}
	return makeFn1(op, st, st, st, fam.f64), nil
}

// resolveLdexp computes x * 2**e. The exponent must be an integer column and
// is read as INT32, so exponents outside that range give NA; x keeps its
// float stype or becomes FLOAT64.
func resolveLdexp(st1, st2 types.SType) (*BiMaker, error) {
	if !st2.IsInteger() || !(st1 == types.Void || st1.IsNumeric()) {
		return nil, typeError(Ldexp, st1, st2)
	}
	st := floatOf(st1)
	if st == types.Float32 {
		return makeFn1(Ldexp, st, types.Int32, st, opLdexp[float32]), nil
	}
	return makeFn1(Ldexp, st, types.Int32, st, opLdexp[float64]), nil
}
