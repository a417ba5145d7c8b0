package filter

import (
	"context"
	"errors"
	"fmt"
	"io"

	"colexpr-go/Expr"
	"colexpr-go/column"
	"colexpr-go/operators"
	"colexpr-go/parallel"
	"colexpr-go/types"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/compute"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

var (
	_ = (operators.Operator)(&FilterExec{})
)

var (
	ErrInvalidPredicate = func(pred Expr.Expression, st types.SType) error {
		return fmt.Errorf("predicate %s evaluates to %s, expected bool", pred, st)
	}
)

// FilterExec keeps the rows of its input for which the predicate is true.
// Rows where the predicate is NA are dropped. The output columns are row
// index views over the input columns; only the predicate is computed.
type FilterExec struct {
	input     operators.Operator
	schema    *arrow.Schema
	predicate Expr.Expression
	ev        *Expr.Evaluator
	opts      parallel.Options
	done      bool
}

func NewFilterExec(ev *Expr.Evaluator, input operators.Operator, pred Expr.Expression, opts parallel.Options) (*FilterExec, error) {
	st, err := ev.ExprSType(pred, input.Schema())
	if err != nil {
		return nil, fmt.Errorf("predicates passed to FilterExec are invalid: %w", err)
	}
	if st != types.Bool {
		return nil, ErrInvalidPredicate(pred, st)
	}
	return &FilterExec{
		input:     input,
		predicate: pred,
		schema:    input.Schema(),
		ev:        ev,
		opts:      opts,
	}, nil
}

func (f *FilterExec) Next(n uint16) (*operators.RecordBatch, error) {
	if n == 0 {
		return nil, errors.New("must pass in wanted batch size > 0")
	}
	if f.done {
		return nil, io.EOF
	}
	childBatch, err := f.input.Next(n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			f.done = true
			return nil, io.EOF
		}
		return nil, err
	}
	ctx := context.TODO()
	pred, err := f.ev.Eval(ctx, f.predicate, childBatch)
	if err != nil {
		return nil, err
	}
	mask, err := column.Materialize(ctx, pred, memory.DefaultAllocator, f.opts)
	if err != nil {
		return nil, err
	}
	defer mask.Release()
	boolArr, ok := mask.(*array.Boolean)
	if !ok {
		return nil, errors.New("predicate did not evaluate to boolean array")
	}

	indices := selectedRows(boolArr)
	filteredCol := make([]column.Column, len(childBatch.Columns))
	for i, col := range childBatch.Columns {
		if filteredCol[i], err = column.NewRowIndex(col, indices); err != nil {
			return nil, err
		}
	}
	return &operators.RecordBatch{
		Schema:   childBatch.Schema,
		Columns:  filteredCol,
		RowCount: uint64(len(indices)),
	}, nil
}

func (f *FilterExec) Schema() *arrow.Schema {
	return f.schema
}

func (f *FilterExec) Close() error {
	return f.input.Close()
}

func selectedRows(mask *array.Boolean) []int {
	indices := make([]int, 0, mask.Len())
	for i := 0; i < mask.Len(); i++ {
		if mask.IsValid(i) && mask.Value(i) {
			indices = append(indices, i)
		}
	}
	return indices
}

// ApplyBooleanMask materializes col and keeps the rows where mask is true,
// returning a new arrow array.
func ApplyBooleanMask(ctx context.Context, col column.Column, mask *array.Boolean, mem memory.Allocator, opts parallel.Options) (arrow.Array, error) {
	arr, err := column.Materialize(ctx, col, mem, opts)
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	values := compute.NewDatum(arr)
	defer values.Release()
	filter := compute.NewDatum(mask)
	defer filter.Release()

	datum, err := compute.Filter(ctx, values, filter, *compute.DefaultFilterOptions())
	if err != nil {
		return nil, err
	}
	defer datum.Release()
	return datum.(*compute.ArrayDatum).MakeArray(), nil
}
