package types

import (
	"fmt"

	"colexpr-go/errs"

	"github.com/apache/arrow/go/v17/arrow"
)

// SType is the storage type of a column: the physical representation of its elements.
// The numeric order of the constants is the promotion order used by CommonSType.
type SType uint8

const (
	Void SType = iota
	Bool
	Int8
	Int16
	Int32
	Int64
	Float32
	Float64
	Str32
	Str64
	// Invalid is the error sentinel returned when no common stype exists.
	Invalid
)

var stypeNames = map[SType]string{
	Void:    "void",
	Bool:    "bool",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Float32: "float32",
	Float64: "float64",
	Str32:   "str32",
	Str64:   "str64",
	Invalid: "invalid",
}

func (s SType) String() string {
	if n, ok := stypeNames[s]; ok {
		return n
	}
	return fmt.Sprintf("SType(%d)", uint8(s))
}

// AllSTypes lists every concrete stype, VOID included, in promotion order.
func AllSTypes() []SType {
	return []SType{Void, Bool, Int8, Int16, Int32, Int64, Float32, Float64, Str32, Str64}
}

// ParseSType resolves a stype by its display name.
func ParseSType(name string) (SType, error) {
	for st, n := range stypeNames {
		if n == name && st != Invalid {
			return st, nil
		}
	}
	return Invalid, errs.ValueErrorf("unknown stype %q", name)
}

// LType is the logical type: a coarse grouping of stypes by kind.
type LType uint8

const (
	LVoid LType = iota
	LBool
	LInt
	LReal
	LString
	LInvalid
)

var ltypeNames = map[LType]string{
	LVoid:    "void",
	LBool:    "bool",
	LInt:     "int",
	LReal:    "float",
	LString:  "str",
	LInvalid: "invalid",
}

func (l LType) String() string {
	if n, ok := ltypeNames[l]; ok {
		return n
	}
	return fmt.Sprintf("LType(%d)", uint8(l))
}

func (s SType) LType() LType {
	switch s {
	case Void:
		return LVoid
	case Bool:
		return LBool
	case Int8, Int16, Int32, Int64:
		return LInt
	case Float32, Float64:
		return LReal
	case Str32, Str64:
		return LString
	default:
		return LInvalid
	}
}

func (s SType) IsInteger() bool { return s.LType() == LInt }
func (s SType) IsFloat() bool   { return s.LType() == LReal }
func (s SType) IsString() bool  { return s.LType() == LString }

// IsNumeric reports whether s is boolean, integer or floating point.
func (s SType) IsNumeric() bool {
	switch s.LType() {
	case LBool, LInt, LReal:
		return true
	}
	return false
}

// ArrowType returns the arrow data type used to materialize columns of this stype.
func (s SType) ArrowType() arrow.DataType {
	switch s {
	case Void:
		return arrow.Null
	case Bool:
		return arrow.FixedWidthTypes.Boolean
	case Int8:
		return arrow.PrimitiveTypes.Int8
	case Int16:
		return arrow.PrimitiveTypes.Int16
	case Int32:
		return arrow.PrimitiveTypes.Int32
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case Float32:
		return arrow.PrimitiveTypes.Float32
	case Float64:
		return arrow.PrimitiveTypes.Float64
	case Str32:
		return arrow.BinaryTypes.String
	case Str64:
		return arrow.BinaryTypes.LargeString
	default:
		return nil
	}
}

// FromArrow maps an arrow data type onto the stype that stores it.
func FromArrow(dt arrow.DataType) (SType, error) {
	switch dt.ID() {
	case arrow.NULL:
		return Void, nil
	case arrow.BOOL:
		return Bool, nil
	case arrow.INT8:
		return Int8, nil
	case arrow.INT16:
		return Int16, nil
	case arrow.INT32:
		return Int32, nil
	case arrow.INT64:
		return Int64, nil
	case arrow.FLOAT32:
		return Float32, nil
	case arrow.FLOAT64:
		return Float64, nil
	case arrow.STRING:
		return Str32, nil
	case arrow.LARGE_STRING:
		return Str64, nil
	default:
		return Invalid, errs.TypeErrorf("arrow type %s has no matching stype", dt)
	}
}
