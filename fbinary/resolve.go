package fbinary

import (
	"colexpr-go/errs"
	"colexpr-go/types"
)

// ResolveOp builds the maker for op applied to operands of stypes st1 and st2.
// It does not consult any cache; use a Resolver on hot paths.
//
// Unsupported combinations return an errs.ErrType error naming the operator
// symbol and both stypes.
func ResolveOp(op Op, st1, st2 types.SType) (*BiMaker, error) {
	if st1 == types.Invalid || st2 == types.Invalid {
		return nil, typeError(op, st1, st2)
	}
	switch op {
	case Plus, Minus, Multiply, Divide, IntDiv, Modulo, PowerOp:
		return resolveArithmetic(op, st1, st2)
	case And, Or, Xor:
		return resolveBitwise(op, st1, st2)
	case LShift, RShift:
		return resolveShift(op, st1, st2)
	case Eq, Ne:
		return resolveEquality(op, st1, st2)
	case Lt, Gt, Le, Ge:
		return resolveOrdering(op, st1, st2)
	case Arctan2, Hypot, PowerFn, Copysign, Logaddexp, Logaddexp2, Fmod, Ldexp:
		return resolveMath(op, st1, st2)
	default:
		return nil, errs.NotImplErrorf("unknown binary operator %s", op)
	}
}

// cacheKey packs the triple into one integer: the opcode in the high bits,
// then the two stypes.
func cacheKey(op Op, st1, st2 types.SType) uint32 {
	return uint32(op)<<16 | uint32(st1)<<8 | uint32(st2)
}
