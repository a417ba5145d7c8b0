package column

import (
	"fmt"

	"colexpr-go/errs"
	"colexpr-go/types"
)

var _ Column = (*constColumn)(nil)

// constColumn repeats a single value, or NA, nrows times.
type constColumn struct {
	base
	value any
	valid bool
}

// NewConst returns a column of stype st holding v in every row.
// T must be the element type of st.
func NewConst[T types.Element](st types.SType, v T, nrows int) (Column, error) {
	if !types.Compatible[T](st) {
		return nil, errs.TypeErrorf("constant of type %s cannot be stored in a column of stype %s", types.STypeOf[T](), st)
	}
	valid := !types.IsNA(v)
	c := &constColumn{value: v, valid: valid}
	c.nrows = nrows
	c.stype = st
	c.elements = bind(st, func(int) (T, bool) { return v, valid })
	return c, nil
}

// MustConst is NewConst for element types matching st by construction.
func MustConst[T types.Element](st types.SType, v T, nrows int) Column {
	c, err := NewConst(st, v, nrows)
	if err != nil {
		panic(err)
	}
	return c
}

// NewNA returns a column of stype st whose every element is NA.
func NewNA(st types.SType, nrows int) Column {
	c := &constColumn{}
	c.nrows = nrows
	c.stype = st
	switch st {
	case types.Void:
		c.elements = allNA()
	case types.Bool:
		c.elements = bind(st, naElement[bool])
	case types.Int8:
		c.elements = bind(st, naElement[int8])
	case types.Int16:
		c.elements = bind(st, naElement[int16])
	case types.Int32:
		c.elements = bind(st, naElement[int32])
	case types.Int64:
		c.elements = bind(st, naElement[int64])
	case types.Float32:
		c.elements = bind(st, naElement[float32])
	case types.Float64:
		c.elements = bind(st, naElement[float64])
	case types.Str32, types.Str64:
		c.elements = bind(st, naElement[string])
	default:
		panic(errs.Invariantf("cannot create a column of stype %s", st))
	}
	return c
}

// NewVoid returns a VOID column of nrows NA elements.
func NewVoid(nrows int) Column { return NewNA(types.Void, nrows) }

func (c *constColumn) AllowParallelAccess() bool { return true }

func (c *constColumn) VerifyIntegrity() error {
	if c.nrows < 0 {
		return errs.Invariantf("constant column has negative nrows %d", c.nrows)
	}
	return nil
}

// the accessors close over immutable values, so sharing them is safe
func (c *constColumn) Clone() Column {
	cp := *c
	return &cp
}

func (c *constColumn) String() string {
	if !c.valid {
		return fmt.Sprintf("Const(NA, %s, nrows=%d)", c.stype, c.nrows)
	}
	return fmt.Sprintf("Const(%v, %s, nrows=%d)", c.value, c.stype, c.nrows)
}
