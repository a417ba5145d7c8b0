package types

// promote returns the next stype up the promotion chain, or Invalid at the top of a chain.
//
//	BOOL -> INT8 -> INT16 -> INT32 -> INT64 -> FLOAT32 -> FLOAT64
//	STR32 -> STR64
func promote(s SType) SType {
	switch s {
	case Void:
		return Bool
	case Bool:
		return Int8
	case Int8:
		return Int16
	case Int16:
		return Int32
	case Int32:
		return Int64
	case Int64:
		return Float32
	case Float32:
		return Float64
	case Str32:
		return Str64
	default:
		return Invalid
	}
}

// CommonSType returns the smallest stype both s1 and s2 can be promoted to,
// or Invalid when they belong to different chains. VOID is compatible with
// every stype.
func CommonSType(s1, s2 SType) SType {
	if s1 == Invalid || s2 == Invalid {
		return Invalid
	}
	if s1 == Void {
		return s2
	}
	if s2 == Void {
		return s1
	}
	for s1 != s2 {
		if s1 < s2 {
			s1 = promote(s1)
		} else {
			s2 = promote(s2)
		}
		if s1 == Invalid || s2 == Invalid {
			return Invalid
		}
	}
	return s1
}
