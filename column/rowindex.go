package column

import (
	"fmt"

	"colexpr-go/errs"
)

var _ Column = (*rowIndexColumn)(nil)

// rowIndexColumn is a view selecting rows of src: row i reads src[indices[i]].
// A negative index selects an NA row.
type rowIndexColumn struct {
	base
	src     Column
	indices []int
}

// NewRowIndex returns the lazy view of src through indices. The indices slice
// is owned by the returned column and must not be modified afterwards.
func NewRowIndex(src Column, indices []int) (Column, error) {
	n := src.NRows()
	for _, j := range indices {
		if j >= n {
			return nil, errs.ValueErrorf("row index %d out of range for a column with %d rows", j, n)
		}
	}
	c := &rowIndexColumn{src: src, indices: indices}
	c.nrows = len(indices)
	c.stype = src.SType()
	c.elements = elements{
		b:   viewOf(c.indices, src.GetBool),
		i8:  viewOf(c.indices, src.GetInt8),
		i16: viewOf(c.indices, src.GetInt16),
		i32: viewOf(c.indices, src.GetInt32),
		i64: viewOf(c.indices, src.GetInt64),
		f32: viewOf(c.indices, src.GetFloat32),
		f64: viewOf(c.indices, src.GetFloat64),
		s:   viewOf(c.indices, src.GetString),
	}
	return c, nil
}

// NewRange returns the view of rows [start, end) of src.
func NewRange(src Column, start, end int) (Column, error) {
	if start < 0 || end < start || end > src.NRows() {
		return nil, errs.ValueErrorf("invalid row range [%d, %d) for a column with %d rows", start, end, src.NRows())
	}
	indices := make([]int, end-start)
	for i := range indices {
		indices[i] = start + i
	}
	return NewRowIndex(src, indices)
}

func viewOf[T any](indices []int, get func(int) (T, bool)) func(int) (T, bool) {
	return func(i int) (T, bool) {
		j := indices[i]
		if j < 0 {
			var zero T
			return zero, false
		}
		return get(j)
	}
}

func (c *rowIndexColumn) AllowParallelAccess() bool { return c.src.AllowParallelAccess() }

func (c *rowIndexColumn) VerifyIntegrity() error {
	if len(c.indices) != c.nrows {
		return errs.Invariantf("row index view has %d rows but %d indices", c.nrows, len(c.indices))
	}
	n := c.src.NRows()
	for _, j := range c.indices {
		if j >= n {
			return errs.Invariantf("row index %d out of range for a source of %d rows", j, n)
		}
	}
	return c.src.VerifyIntegrity()
}

func (c *rowIndexColumn) Clone() Column {
	out, _ := NewRowIndex(c.src.Clone(), c.indices)
	return out
}

func (c *rowIndexColumn) String() string {
	return fmt.Sprintf("RowIndex(%s, nrows=%d)", c.stype, c.nrows)
}
