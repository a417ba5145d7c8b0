package column

import (
	"fmt"

	"colexpr-go/errs"
	"colexpr-go/types"
)

var (
	_ Column = (*FuncBinary1[int32, int32, int32])(nil)
	_ Column = (*FuncBinary2[int32, int32, bool])(nil)
)

// FuncBinary1 is a virtual column applying a simple kernel fn to the elements
// of two source columns. The kernel never sees NA inputs: if either input is
// NA the output is NA. An output equal to the NA value of TO (a NaN, or the
// reserved integer) is also NA, so kernels such as 0.0/0.0 or integer division
// by zero need no validity handling of their own.
type FuncBinary1[T1, T2, TO types.Element] struct {
	base
	arg1 Column
	arg2 Column
	get1 func(int) (T1, bool)
	get2 func(int) (T2, bool)
	fn   func(T1, T2) TO
}

// NewFuncBinary1 returns the virtual column fn(arg1[i], arg2[i]) of stype st
// and nrows rows. Both arguments must hold at least nrows rows.
func NewFuncBinary1[T1, T2, TO types.Element](arg1, arg2 Column, nrows int, st types.SType, fn func(T1, T2) TO) *FuncBinary1[T1, T2, TO] {
	c := &FuncBinary1[T1, T2, TO]{
		arg1: arg1,
		arg2: arg2,
		get1: Getter[T1](arg1),
		get2: Getter[T2](arg2),
		fn:   fn,
	}
	c.nrows = nrows
	c.stype = st
	c.elements = bind(st, c.getElement)
	return c
}

func (c *FuncBinary1[T1, T2, TO]) getElement(i int) (TO, bool) {
	x1, ok1 := c.get1(i)
	x2, ok2 := c.get2(i)
	if !ok1 || !ok2 {
		var zero TO
		return zero, false
	}
	out := c.fn(x1, x2)
	return out, !types.IsNA(out)
}

func (c *FuncBinary1[T1, T2, TO]) AllowParallelAccess() bool {
	return c.arg1.AllowParallelAccess() && c.arg2.AllowParallelAccess()
}

func (c *FuncBinary1[T1, T2, TO]) VerifyIntegrity() error {
	return verifyBinary[T1, T2, TO]("FuncBinary1", c.stype, c.nrows, c.arg1, c.arg2, c.fn == nil)
}

func (c *FuncBinary1[T1, T2, TO]) Clone() Column {
	return NewFuncBinary1(c.arg1.Clone(), c.arg2.Clone(), c.nrows, c.stype, c.fn)
}

func (c *FuncBinary1[T1, T2, TO]) String() string {
	return fmt.Sprintf("FuncBinary1(%s, %s -> %s, nrows=%d)", c.arg1.SType(), c.arg2.SType(), c.stype, c.nrows)
}

// NAKernel computes one output element from two inputs and their validity
// flags, returning the output and whether it is valid.
type NAKernel[T1, T2, TO types.Element] func(x T1, xvalid bool, y T2, yvalid bool) (TO, bool)

// FuncBinary2 is a virtual column applying an NA-aware kernel. Both inputs are
// always read and passed to the kernel with their validity; the kernel's
// verdict on the output's validity is final.
type FuncBinary2[T1, T2, TO types.Element] struct {
	base
	arg1 Column
	arg2 Column
	get1 func(int) (T1, bool)
	get2 func(int) (T2, bool)
	fn   NAKernel[T1, T2, TO]
}

func NewFuncBinary2[T1, T2, TO types.Element](arg1, arg2 Column, nrows int, st types.SType, fn NAKernel[T1, T2, TO]) *FuncBinary2[T1, T2, TO] {
	c := &FuncBinary2[T1, T2, TO]{
		arg1: arg1,
		arg2: arg2,
		get1: Getter[T1](arg1),
		get2: Getter[T2](arg2),
		fn:   fn,
	}
	c.nrows = nrows
	c.stype = st
	c.elements = bind(st, c.getElement)
	return c
}

func (c *FuncBinary2[T1, T2, TO]) getElement(i int) (TO, bool) {
	x1, ok1 := c.get1(i)
	x2, ok2 := c.get2(i)
	return c.fn(x1, ok1, x2, ok2)
}

func (c *FuncBinary2[T1, T2, TO]) AllowParallelAccess() bool {
	return c.arg1.AllowParallelAccess() && c.arg2.AllowParallelAccess()
}

func (c *FuncBinary2[T1, T2, TO]) VerifyIntegrity() error {
	return verifyBinary[T1, T2, TO]("FuncBinary2", c.stype, c.nrows, c.arg1, c.arg2, c.fn == nil)
}

func (c *FuncBinary2[T1, T2, TO]) Clone() Column {
	return NewFuncBinary2(c.arg1.Clone(), c.arg2.Clone(), c.nrows, c.stype, c.fn)
}

func (c *FuncBinary2[T1, T2, TO]) String() string {
	return fmt.Sprintf("FuncBinary2(%s, %s -> %s, nrows=%d)", c.arg1.SType(), c.arg2.SType(), c.stype, c.nrows)
}

func verifyBinary[T1, T2, TO types.Element](name string, st types.SType, nrows int, arg1, arg2 Column, nilKernel bool) error {
	if nilKernel {
		return errs.Invariantf("%s has no kernel", name)
	}
	if !types.Compatible[TO](st) {
		return errs.Invariantf("%s of stype %s cannot hold kernel output of type %s", name, st, types.STypeOf[TO]())
	}
	if err := checkArg[T1](name+" arg1", arg1, nrows); err != nil {
		return err
	}
	if err := checkArg[T2](name+" arg2", arg2, nrows); err != nil {
		return err
	}
	if arg1.NRows() != arg2.NRows() {
		return errs.Invariantf("%s arguments have %d and %d rows", name, arg1.NRows(), arg2.NRows())
	}
	return nil
}
