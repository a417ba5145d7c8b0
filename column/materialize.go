package column

import (
	"context"

	"colexpr-go/errs"
	"colexpr-go/parallel"
	"colexpr-go/types"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// Materialize evaluates every element of col into a new arrow array allocated
// from mem. Rows are computed in chunks on several goroutines when the column
// allows parallel access; otherwise a single worker is used. NA elements
// become arrow nulls.
func Materialize(ctx context.Context, col Column, mem memory.Allocator, opts parallel.Options) (arrow.Array, error) {
	if err := col.VerifyIntegrity(); err != nil {
		return nil, err
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	if !col.AllowParallelAccess() {
		opts.Workers = 1
	}
	switch col.SType() {
	case types.Void:
		b := array.NewNullBuilder(mem)
		defer b.Release()
		b.AppendNulls(col.NRows())
		return b.NewArray(), nil
	case types.Bool:
		vals, valid, err := collect(ctx, col, opts, col.GetBool)
		if err != nil {
			return nil, err
		}
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		b.AppendValues(vals, valid)
		return b.NewArray(), nil
	case types.Int8:
		vals, valid, err := collect(ctx, col, opts, col.GetInt8)
		if err != nil {
			return nil, err
		}
		b := array.NewInt8Builder(mem)
		defer b.Release()
		b.AppendValues(vals, valid)
		return b.NewArray(), nil
	case types.Int16:
		vals, valid, err := collect(ctx, col, opts, col.GetInt16)
		if err != nil {
			return nil, err
		}
		b := array.NewInt16Builder(mem)
		defer b.Release()
		b.AppendValues(vals, valid)
		return b.NewArray(), nil
	case types.Int32:
		vals, valid, err := collect(ctx, col, opts, col.GetInt32)
		if err != nil {
			return nil, err
		}
		b := array.NewInt32Builder(mem)
		defer b.Release()
		b.AppendValues(vals, valid)
		return b.NewArray(), nil
	case types.Int64:
		vals, valid, err := collect(ctx, col, opts, col.GetInt64)
		if err != nil {
			return nil, err
		}
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.AppendValues(vals, valid)
		return b.NewArray(), nil
	case types.Float32:
		vals, valid, err := collect(ctx, col, opts, col.GetFloat32)
		if err != nil {
			return nil, err
		}
		b := array.NewFloat32Builder(mem)
		defer b.Release()
		b.AppendValues(vals, valid)
		return b.NewArray(), nil
	case types.Float64:
		vals, valid, err := collect(ctx, col, opts, col.GetFloat64)
		if err != nil {
			return nil, err
		}
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.AppendValues(vals, valid)
		return b.NewArray(), nil
	case types.Str32:
		vals, valid, err := collect(ctx, col, opts, col.GetString)
		if err != nil {
			return nil, err
		}
		b := array.NewStringBuilder(mem)
		defer b.Release()
		b.AppendValues(vals, valid)
		return b.NewArray(), nil
	case types.Str64:
		vals, valid, err := collect(ctx, col, opts, col.GetString)
		if err != nil {
			return nil, err
		}
		b := array.NewLargeStringBuilder(mem)
		defer b.Release()
		b.AppendValues(vals, valid)
		return b.NewArray(), nil
	default:
		return nil, errs.Invariantf("cannot materialize a column of stype %s", col.SType())
	}
}

func collect[T any](ctx context.Context, col Column, opts parallel.Options, get func(int) (T, bool)) ([]T, []bool, error) {
	n := col.NRows()
	vals := make([]T, n)
	valid := make([]bool, n)
	err := parallel.For(ctx, n, opts, func(start, end int) error {
		for i := start; i < end; i++ {
			vals[i], valid[i] = get(i)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return vals, valid, nil
}
