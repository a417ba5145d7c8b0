package column

import (
	"fmt"
	"strings"

	"colexpr-go/errs"
	"colexpr-go/types"
)

var _ Column = (*strPlus)(nil)

// strPlus concatenates the strings of two columns row by row.
// NA on either side gives NA.
type strPlus struct {
	base
	arg1 Column
	arg2 Column
}

// NewStrPlus returns the lazy concatenation arg1 + arg2 as a column of string stype st.
func NewStrPlus(arg1, arg2 Column, nrows int, st types.SType) Column {
	c := &strPlus{arg1: arg1, arg2: arg2}
	c.nrows = nrows
	c.stype = st
	c.elements = bind(st, c.getElement)
	return c
}

func (c *strPlus) getElement(i int) (string, bool) {
	x, ok1 := c.arg1.GetString(i)
	y, ok2 := c.arg2.GetString(i)
	if !ok1 || !ok2 {
		return "", false
	}
	var sb strings.Builder
	sb.Grow(len(x) + len(y))
	sb.WriteString(x)
	sb.WriteString(y)
	return sb.String(), true
}

func (c *strPlus) AllowParallelAccess() bool {
	return c.arg1.AllowParallelAccess() && c.arg2.AllowParallelAccess()
}

func (c *strPlus) VerifyIntegrity() error {
	if !c.stype.IsString() {
		return errs.Invariantf("string concatenation column declared as %s", c.stype)
	}
	if err := checkArg[string]("StrPlus arg1", c.arg1, c.nrows); err != nil {
		return err
	}
	return checkArg[string]("StrPlus arg2", c.arg2, c.nrows)
}

func (c *strPlus) Clone() Column {
	return NewStrPlus(c.arg1.Clone(), c.arg2.Clone(), c.nrows, c.stype)
}

func (c *strPlus) String() string { return fmt.Sprintf("StrPlus(%s, nrows=%d)", c.stype, c.nrows) }
