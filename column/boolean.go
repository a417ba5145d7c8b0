package column

import (
	"fmt"

	"colexpr-go/errs"
	"colexpr-go/types"
)

var (
	_ Column = (*booleanAnd)(nil)
	_ Column = (*booleanOr)(nil)
)

// booleanAnd evaluates x & y over two BOOL columns:
//
//	x \ y |  0   1   NA
//	  0   |  0   0   0
//	  1   |  0   1   NA
//	  NA  |  0   NA  NA
//
// When x is a valid 0 the second column is not read at all.
type booleanAnd struct {
	base
	arg1 Column
	arg2 Column
}

// NewBooleanAnd returns the short-circuiting x & y column of nrows rows.
func NewBooleanAnd(arg1, arg2 Column, nrows int) Column {
	c := &booleanAnd{arg1: arg1, arg2: arg2}
	c.nrows = nrows
	c.stype = types.Bool
	c.elements = bind(types.Bool, c.getElement)
	return c
}

func (c *booleanAnd) getElement(i int) (bool, bool) {
	x, xvalid := c.arg1.GetBool(i)
	if xvalid && !x {
		return false, true
	}
	y, yvalid := c.arg2.GetBool(i)
	if !yvalid {
		return false, false
	}
	if !y {
		return false, true
	}
	return true, xvalid
}

func (c *booleanAnd) AllowParallelAccess() bool {
	return c.arg1.AllowParallelAccess() && c.arg2.AllowParallelAccess()
}

func (c *booleanAnd) VerifyIntegrity() error {
	return verifyBoolean("BooleanAnd", c.nrows, c.arg1, c.arg2)
}

func (c *booleanAnd) Clone() Column {
	return NewBooleanAnd(c.arg1.Clone(), c.arg2.Clone(), c.nrows)
}

func (c *booleanAnd) String() string { return fmt.Sprintf("BooleanAnd(nrows=%d)", c.nrows) }

// booleanOr evaluates x | y over two BOOL columns:
//
//	x \ y |  0   1   NA
//	  0   |  0   1   NA
//	  1   |  1   1   1
//	  NA  |  NA  1   NA
//
// When x is a valid 1 the second column is not read at all.
type booleanOr struct {
	base
	arg1 Column
	arg2 Column
}

// NewBooleanOr returns the short-circuiting x | y column of nrows rows.
func NewBooleanOr(arg1, arg2 Column, nrows int) Column {
	c := &booleanOr{arg1: arg1, arg2: arg2}
	c.nrows = nrows
	c.stype = types.Bool
	c.elements = bind(types.Bool, c.getElement)
	return c
}

func (c *booleanOr) getElement(i int) (bool, bool) {
	x, xvalid := c.arg1.GetBool(i)
	if xvalid && x {
		return true, true
	}
	y, yvalid := c.arg2.GetBool(i)
	if !yvalid {
		return false, false
	}
	if y {
		return true, true
	}
	return false, xvalid
}

func (c *booleanOr) AllowParallelAccess() bool {
	return c.arg1.AllowParallelAccess() && c.arg2.AllowParallelAccess()
}

func (c *booleanOr) VerifyIntegrity() error {
	return verifyBoolean("BooleanOr", c.nrows, c.arg1, c.arg2)
}

func (c *booleanOr) Clone() Column {
	return NewBooleanOr(c.arg1.Clone(), c.arg2.Clone(), c.nrows)
}

func (c *booleanOr) String() string { return fmt.Sprintf("BooleanOr(nrows=%d)", c.nrows) }

func verifyBoolean(name string, nrows int, arg1, arg2 Column) error {
	for _, arg := range []Column{arg1, arg2} {
		if arg.SType() != types.Bool {
			return errs.Invariantf("%s argument has stype %s, expected bool", name, arg.SType())
		}
		if arg.NRows() < nrows {
			return errs.Invariantf("%s argument has %d rows, fewer than %d", name, arg.NRows(), nrows)
		}
	}
	if arg1.NRows() != arg2.NRows() {
		return errs.Invariantf("%s arguments have %d and %d rows", name, arg1.NRows(), arg2.NRows())
	}
	if err := arg1.VerifyIntegrity(); err != nil {
		return err
	}
	return arg2.VerifyIntegrity()
}
