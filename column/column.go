// Package column implements the column abstraction consumed by the binary
// operator engine: materialized columns backed by arrow arrays, constant
// columns, and the lazily evaluated virtual columns (casts, row-index views,
// NA tests and the FuncBinary family) that compute elements on demand.
package column

import (
	"colexpr-go/errs"
	"colexpr-go/types"
)

// Column is an immutable sequence of NRows() elements of a single stype.
//
// Elements are read with the Get method matching the column's stype: GetBool
// for BOOL, GetInt32 for INT32, GetString for STR32 and STR64, and so on. The
// second result is false when the element is NA, in which case the first result
// is unspecified. Reading a column through a getter of the wrong type panics
// with an invariant error; VOID columns answer every getter with NA.
type Column interface {
	NRows() int
	SType() types.SType

	GetBool(i int) (bool, bool)
	GetInt8(i int) (int8, bool)
	GetInt16(i int) (int16, bool)
	GetInt32(i int) (int32, bool)
	GetInt64(i int) (int64, bool)
	GetFloat32(i int) (float32, bool)
	GetFloat64(i int) (float64, bool)
	GetString(i int) (string, bool)

	// AllowParallelAccess reports whether elements may be read from several
	// goroutines at once.
	AllowParallelAccess() bool
	// VerifyIntegrity checks the internal invariants of the column and of
	// every column it reads from.
	VerifyIntegrity() error
	// Clone returns a shallow copy sharing all underlying data.
	Clone() Column
}

// Releaser is implemented by columns holding reference counted arrow memory.
type Releaser interface {
	Release()
}

// elements holds one accessor per element type. Only the accessor matching
// the column's stype is real; the others report a wrong-type read.
type elements struct {
	b   func(int) (bool, bool)
	i8  func(int) (int8, bool)
	i16 func(int) (int16, bool)
	i32 func(int) (int32, bool)
	i64 func(int) (int64, bool)
	f32 func(int) (float32, bool)
	f64 func(int) (float64, bool)
	s   func(int) (string, bool)
}

func (e *elements) GetBool(i int) (bool, bool)       { return e.b(i) }
func (e *elements) GetInt8(i int) (int8, bool)       { return e.i8(i) }
func (e *elements) GetInt16(i int) (int16, bool)     { return e.i16(i) }
func (e *elements) GetInt32(i int) (int32, bool)     { return e.i32(i) }
func (e *elements) GetInt64(i int) (int64, bool)     { return e.i64(i) }
func (e *elements) GetFloat32(i int) (float32, bool) { return e.f32(i) }
func (e *elements) GetFloat64(i int) (float64, bool) { return e.f64(i) }
func (e *elements) GetString(i int) (string, bool)   { return e.s(i) }

func wrongType[T types.Element](st types.SType) func(int) (T, bool) {
	return func(int) (T, bool) {
		panic(errs.Invariantf("cannot read element of type %s from a column of stype %s", types.STypeOf[T](), st))
	}
}

func naElement[T types.Element](int) (T, bool) {
	var zero T
	return zero, false
}

// bind builds the accessor set of a column of stype st whose elements are produced by get.
func bind[T types.Element](st types.SType, get func(int) (T, bool)) elements {
	e := elements{
		b:   wrongType[bool](st),
		i8:  wrongType[int8](st),
		i16: wrongType[int16](st),
		i32: wrongType[int32](st),
		i64: wrongType[int64](st),
		f32: wrongType[float32](st),
		f64: wrongType[float64](st),
		s:   wrongType[string](st),
	}
	switch f := any(get).(type) {
	case func(int) (bool, bool):
		e.b = f
	case func(int) (int8, bool):
		e.i8 = f
	case func(int) (int16, bool):
		e.i16 = f
	case func(int) (int32, bool):
		e.i32 = f
	case func(int) (int64, bool):
		e.i64 = f
	case func(int) (float32, bool):
		e.f32 = f
	case func(int) (float64, bool):
		e.f64 = f
	case func(int) (string, bool):
		e.s = f
	}
	return e
}

// allNA is the accessor set of VOID columns.
func allNA() elements {
	return elements{
		b:   naElement[bool],
		i8:  naElement[int8],
		i16: naElement[int16],
		i32: naElement[int32],
		i64: naElement[int64],
		f32: naElement[float32],
		f64: naElement[float64],
		s:   naElement[string],
	}
}

type base struct {
	elements
	nrows int
	stype types.SType
}

func (b *base) NRows() int         { return b.nrows }
func (b *base) SType() types.SType { return b.stype }

// Getter returns the element accessor of c for Go element type T.
// T must be compatible with c.SType() (see types.Compatible) unless c is VOID.
func Getter[T types.Element](c Column) func(int) (T, bool) {
	var (
		zero T
		f    any
	)
	switch any(zero).(type) {
	case bool:
		f = c.GetBool
	case int8:
		f = c.GetInt8
	case int16:
		f = c.GetInt16
	case int32:
		f = c.GetInt32
	case int64:
		f = c.GetInt64
	case float32:
		f = c.GetFloat32
	case float64:
		f = c.GetFloat64
	case string:
		f = c.GetString
	}
	return f.(func(int) (T, bool))
}

// Get reads element i of c as T.
func Get[T types.Element](c Column, i int) (T, bool) {
	return Getter[T](c)(i)
}

// Validity returns a function reporting whether element i of c is not NA,
// whatever the stype of c.
func Validity(c Column) func(int) bool {
	switch c.SType() {
	case types.Bool:
		return validOf(c.GetBool)
	case types.Int8:
		return validOf(c.GetInt8)
	case types.Int16:
		return validOf(c.GetInt16)
	case types.Int32:
		return validOf(c.GetInt32)
	case types.Int64:
		return validOf(c.GetInt64)
	case types.Float32:
		return validOf(c.GetFloat32)
	case types.Float64:
		return validOf(c.GetFloat64)
	case types.Str32, types.Str64:
		return validOf(c.GetString)
	default:
		return func(int) bool { return false }
	}
}

func validOf[T types.Element](get func(int) (T, bool)) func(int) bool {
	return func(i int) bool {
		_, ok := get(i)
		return ok
	}
}

// checkArg verifies that arg can serve as a source of nrows elements of Go type T.
func checkArg[T types.Element](name string, arg Column, nrows int) error {
	if arg == nil {
		return errs.Invariantf("%s is nil", name)
	}
	if !types.Compatible[T](arg.SType()) && arg.SType() != types.Void {
		return errs.Invariantf("%s has stype %s, incompatible with element type %s", name, arg.SType(), types.STypeOf[T]())
	}
	if arg.NRows() < nrows {
		return errs.Invariantf("%s has %d rows, fewer than the %d required", name, arg.NRows(), nrows)
	}
	return arg.VerifyIntegrity()
}
