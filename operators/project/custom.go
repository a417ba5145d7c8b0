package project

import (
	"fmt"
	"io"

	"colexpr-go/column"
	"colexpr-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

var (
	_ = (operators.Operator)(&InMemorySource{})
)

// in memory format just for the ease of testing
var (
	ErrInvalidInMemoryDataType = func(Type any) error {
		return fmt.Errorf("%T is not a supported in memory dataType for InMemorySource", Type)
	}
)

// InMemorySource serves Go slices (or ready made columns) as record batches.
type InMemorySource struct {
	schema  *arrow.Schema
	columns []column.Column
	nrows   int
	pos     int
}

// NewInMemoryProjectExec builds a source from names and columns, where each
// column is a Go slice of a supported element type or a column.Column.
func NewInMemoryProjectExec(names []string, columns []any) (*InMemorySource, error) {
	if len(names) != len(columns) {
		return nil, operators.ErrInvalidSchema("number of column names and columns do not match")
	}
	cols := make([]column.Column, 0, len(names))
	for _, col := range columns {
		c, err := unpackColumn(col)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	schema, err := operators.SchemaFor(names, cols)
	if err != nil {
		return nil, err
	}
	// validation only; the batch itself is rebuilt per Next
	rb, err := operators.NewRecordBatchBuilder().NewRecordBatch(schema, cols)
	if err != nil {
		return nil, err
	}
	return &InMemorySource{
		schema:  schema,
		columns: cols,
		nrows:   int(rb.RowCount),
	}, nil
}

// withFields keeps only the named columns, in that order.
func (ms *InMemorySource) withFields(names ...string) error {
	newSchema, cols, err := ProjectSchemaFilterDown(ms.schema, ms.columns, names...)
	if err != nil {
		return err
	}
	ms.schema = newSchema
	ms.columns = cols
	return nil
}

func (ms *InMemorySource) Next(n uint16) (*operators.RecordBatch, error) {
	if len(ms.columns) == 0 || ms.pos >= ms.nrows {
		return nil, io.EOF
	}
	end := min(ms.pos+int(n), ms.nrows)
	outPutCols := make([]column.Column, len(ms.columns))
	for i, col := range ms.columns {
		view, err := column.NewRange(col, ms.pos, end)
		if err != nil {
			return nil, err
		}
		outPutCols[i] = view
	}
	rows := end - ms.pos
	ms.pos = end

	return &operators.RecordBatch{
		Schema:   ms.schema,
		Columns:  outPutCols,
		RowCount: uint64(rows),
	}, nil
}

func (ms *InMemorySource) Close() error {
	for _, c := range ms.columns {
		if r, ok := c.(column.Releaser); ok {
			r.Release()
		}
	}
	ms.columns = nil
	return nil
}

func (ms *InMemorySource) Schema() *arrow.Schema {
	return ms.schema
}

func unpackColumn(col any) (column.Column, error) {
	mem := memory.DefaultAllocator
	var arr arrow.Array
	switch data := col.(type) {
	case column.Column:
		return data, nil
	case []int:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for _, v := range data {
			b.Append(int64(v))
		}
		arr = b.NewArray()
	case []int8:
		arr = build(array.NewInt8Builder(mem), data)
	case []int16:
		arr = build(array.NewInt16Builder(mem), data)
	case []int32:
		arr = build(array.NewInt32Builder(mem), data)
	case []int64:
		arr = build(array.NewInt64Builder(mem), data)
	case []float32:
		arr = build(array.NewFloat32Builder(mem), data)
	case []float64:
		arr = build(array.NewFloat64Builder(mem), data)
	case []string:
		arr = build(array.NewStringBuilder(mem), data)
	case []bool:
		arr = build(array.NewBooleanBuilder(mem), data)
	default:
		return nil, ErrInvalidInMemoryDataType(col)
	}
	defer arr.Release()
	return column.FromArrow(arr)
}

type valuesBuilder[T any] interface {
	AppendValues([]T, []bool)
	NewArray() arrow.Array
	Release()
}

func build[T any](b valuesBuilder[T], values []T) arrow.Array {
	defer b.Release()
	b.AppendValues(values, nil)
	return b.NewArray()
}
