package column

import (
	"fmt"

	"colexpr-go/errs"
	"colexpr-go/types"
)

var _ Column = (*isnaColumn)(nil)

// isnaColumn is the BOOL column telling which elements of src are NA
// (or, when negated, which are not). Its elements are never NA.
type isnaColumn struct {
	base
	src    Column
	negate bool
}

// IsNA returns a lazy BOOL column that is true where src is NA.
func IsNA(src Column) Column { return newIsNA(src, false) }

// NotNA returns a lazy BOOL column that is true where src is not NA.
func NotNA(src Column) Column { return newIsNA(src, true) }

func newIsNA(src Column, negate bool) Column {
	c := &isnaColumn{src: src, negate: negate}
	c.nrows = src.NRows()
	c.stype = types.Bool
	valid := Validity(src)
	c.elements = bind(types.Bool, func(i int) (bool, bool) {
		return valid(i) == negate, true
	})
	return c
}

func (c *isnaColumn) AllowParallelAccess() bool { return c.src.AllowParallelAccess() }

func (c *isnaColumn) VerifyIntegrity() error {
	if c.src.NRows() < c.nrows {
		return errs.Invariantf("isna column has %d rows, its source only %d", c.nrows, c.src.NRows())
	}
	return c.src.VerifyIntegrity()
}

func (c *isnaColumn) Clone() Column { return newIsNA(c.src.Clone(), c.negate) }

func (c *isnaColumn) String() string {
	if c.negate {
		return fmt.Sprintf("NotNA(%s, nrows=%d)", c.src.SType(), c.nrows)
	}
	return fmt.Sprintf("IsNA(%s, nrows=%d)", c.src.SType(), c.nrows)
}
