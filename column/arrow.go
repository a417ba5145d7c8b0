package column

import (
	"fmt"

	"colexpr-go/errs"
	"colexpr-go/types"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
)

var (
	_ Column   = (*arrowColumn)(nil)
	_ Releaser = (*arrowColumn)(nil)
)

// arrowColumn is a materialized column reading its elements from an arrow array.
// Arrow nulls, NaN floats and the reserved integer NA values all read as NA.
type arrowColumn struct {
	base
	arr arrow.Array
}

// FromArrow wraps arr as a Column. The array is retained; call Release on the
// returned column (it implements Releaser) once it is no longer needed.
func FromArrow(arr arrow.Array) (Column, error) {
	st, err := types.FromArrow(arr.DataType())
	if err != nil {
		return nil, errs.TypeErrorf("%v", err)
	}
	arr.Retain()
	c := &arrowColumn{arr: arr}
	c.nrows = arr.Len()
	c.stype = st
	if c.elements, err = arrowElements(st, arr); err != nil {
		arr.Release()
		return nil, err
	}
	return c, nil
}

// MustFromArrow is FromArrow for arrays whose type is known to be supported.
func MustFromArrow(arr arrow.Array) Column {
	c, err := FromArrow(arr)
	if err != nil {
		panic(err)
	}
	return c
}

func arrowElements(st types.SType, arr arrow.Array) (elements, error) {
	switch a := arr.(type) {
	case *array.Null:
		return allNA(), nil
	case *array.Boolean:
		return bind(st, func(i int) (bool, bool) {
			if a.IsNull(i) {
				return false, false
			}
			return a.Value(i), true
		}), nil
	case *array.Int8:
		return bind(st, numericValues(a, a.Value)), nil
	case *array.Int16:
		return bind(st, numericValues(a, a.Value)), nil
	case *array.Int32:
		return bind(st, numericValues(a, a.Value)), nil
	case *array.Int64:
		return bind(st, numericValues(a, a.Value)), nil
	case *array.Float32:
		return bind(st, numericValues(a, a.Value)), nil
	case *array.Float64:
		return bind(st, numericValues(a, a.Value)), nil
	case *array.String:
		return bind(st, stringValues(a, a.Value)), nil
	case *array.LargeString:
		return bind(st, stringValues(a, a.Value)), nil
	default:
		return elements{}, errs.TypeErrorf("unsupported arrow array %T", arr)
	}
}

func numericValues[T types.Element](a arrow.Array, value func(int) T) func(int) (T, bool) {
	return func(i int) (T, bool) {
		if a.IsNull(i) {
			var zero T
			return zero, false
		}
		v := value(i)
		return v, !types.IsNA(v)
	}
}

func stringValues(a arrow.Array, value func(int) string) func(int) (string, bool) {
	return func(i int) (string, bool) {
		if a.IsNull(i) {
			return "", false
		}
		return value(i), true
	}
}

// Array returns the arrow array backing the column.
func (c *arrowColumn) Array() arrow.Array { return c.arr }

func (c *arrowColumn) Release() { c.arr.Release() }

// arrow arrays are immutable once built
func (c *arrowColumn) AllowParallelAccess() bool { return true }

func (c *arrowColumn) VerifyIntegrity() error {
	if c.arr == nil {
		return errs.Invariantf("arrow column has no backing array")
	}
	if c.arr.Len() != c.nrows {
		return errs.Invariantf("arrow column declares %d rows but its array holds %d", c.nrows, c.arr.Len())
	}
	st, err := types.FromArrow(c.arr.DataType())
	if err != nil || st != c.stype {
		return errs.Invariantf("arrow column of stype %s is backed by %s", c.stype, c.arr.DataType())
	}
	return nil
}

func (c *arrowColumn) Clone() Column {
	return MustFromArrow(c.arr)
}

func (c *arrowColumn) String() string {
	return fmt.Sprintf("ArrowColumn(%s, nrows=%d)", c.stype, c.nrows)
}
