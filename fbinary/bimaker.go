package fbinary

import (
	"fmt"

	"colexpr-go/column"
	"colexpr-go/errs"
	"colexpr-go/types"
)

// noCast marks an operand that is passed to the kernel as is.
const noCast = types.Invalid

// BiMaker is the resolved strategy for one (operator, stype1, stype2) triple:
// the upcast applied to each operand, the output stype and a constructor for
// the virtual column computing the result.
//
// A BiMaker holds no column data and may be shared by any number of goroutines.
type BiMaker struct {
	op      Op
	uptype1 types.SType
	uptype2 types.SType
	outType types.SType
	build   func(a, b column.Column, nrows int) column.Column
}

// OutType is the stype of every column produced by Compute.
func (m *BiMaker) OutType() types.SType { return m.outType }

// Upcasts returns the stypes the two operands are converted to before the
// kernel runs; types.Invalid means no conversion.
func (m *BiMaker) Upcasts() (types.SType, types.SType) { return m.uptype1, m.uptype2 }

// Compute returns the lazy result of applying the operator to col1 and col2.
// Both columns must have the same number of rows.
func (m *BiMaker) Compute(col1, col2 column.Column) (column.Column, error) {
	nrows := col1.NRows()
	if col2.NRows() != nrows {
		return nil, errs.Invariantf("operator `%s` applied to columns with %d and %d rows", m.op.Name(), nrows, col2.NRows())
	}
	a, err := upcast(col1, m.uptype1)
	if err != nil {
		return nil, err
	}
	b, err := upcast(col2, m.uptype2)
	if err != nil {
		return nil, err
	}
	return m.build(a, b, nrows), nil
}

func (m *BiMaker) String() string {
	return fmt.Sprintf("BiMaker(%s: %s, %s -> %s)", m.op, m.uptype1, m.uptype2, m.outType)
}

func upcast(col column.Column, st types.SType) (column.Column, error) {
	if st == noCast {
		return col, nil
	}
	return column.Cast(col, st)
}

// makeFn1 wraps a kernel that never sees NA inputs.
func makeFn1[T1, T2, TO types.Element](op Op, up1, up2, out types.SType, fn func(T1, T2) TO) *BiMaker {
	return &BiMaker{
		op:      op,
		uptype1: up1,
		uptype2: up2,
		outType: out,
		build: func(a, b column.Column, nrows int) column.Column {
			return column.NewFuncBinary1(a, b, nrows, out, fn)
		},
	}
}

// makeFn2 wraps a kernel that receives validity flags and decides the
// validity of its output.
func makeFn2[T1, T2, TO types.Element](op Op, up1, up2, out types.SType, fn column.NAKernel[T1, T2, TO]) *BiMaker {
	return &BiMaker{
		op:      op,
		uptype1: up1,
		uptype2: up2,
		outType: out,
		build: func(a, b column.Column, nrows int) column.Column {
			return column.NewFuncBinary2(a, b, nrows, out, fn)
		},
	}
}

// makeColumn wraps a hand written virtual column constructor.
func makeColumn(op Op, up1, up2, out types.SType, build func(a, b column.Column, nrows int) column.Column) *BiMaker {
	return &BiMaker{op: op, uptype1: up1, uptype2: up2, outType: out, build: build}
}

func typeError(op Op, st1, st2 types.SType) error {
	return errs.NewTypeError(op.Name(), st1, st2)
}
