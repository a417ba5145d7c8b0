package aggr

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"colexpr-go/Expr"
	"colexpr-go/column"
	"colexpr-go/operators"
	"colexpr-go/types"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// order by col asc, col 2 desc .... etc
var (
	_ = (operators.Operator)(&SortExec{})
	_ = (operators.Operator)(&TopKSortExec{})
)

var (
	ErrUnsortableKey = func(key Expr.Expression, st types.SType) error {
		return fmt.Errorf("sort key %s has stype %s which has no ordering", key, st)
	}
)

type SortKey struct {
	Expr      Expr.Expression
	Ascending bool // by default false -- DESC (highest values first -> smaller values)
	NullFirst bool // by default false -- nulls last
}

func NewSortKey(expr Expr.Expression, options ...bool) *SortKey {
	var asc, nullF bool
	switch len(options) {
	case 2:
		asc = options[0]
		nullF = options[1]
	case 1:
		asc = options[0]
	}
	return &SortKey{
		Expr:      expr,
		Ascending: asc,
		NullFirst: nullF,
	}
}

func CombineSortKeys(sk ...*SortKey) []SortKey {
	res := make([]SortKey, 0, len(sk))
	for _, s := range sk {
		res = append(res, *s)
	}
	return res
}

// SortExec reads its whole input, orders the rows by the sort keys and hands
// them out as row index views over the buffered columns.
type SortExec struct {
	child    operators.Operator
	schema   *arrow.Schema
	ev       *Expr.Evaluator
	sortKeys []SortKey
	// internal book keeping
	all            *operators.RecordBatch
	order          []int
	limit          int // -1 keeps every row
	consumedOffset int
	consumed       bool // did we finish reading all of the child record batches?
}

func NewSortExec(ev *Expr.Evaluator, child operators.Operator, sortKeys []SortKey) (*SortExec, error) {
	for _, sk := range sortKeys {
		st, err := ev.ExprSType(sk.Expr, child.Schema())
		if err != nil {
			return nil, fmt.Errorf("sort key %s: %w", sk.Expr, err)
		}
		if st == types.Invalid {
			return nil, ErrUnsortableKey(sk.Expr, st)
		}
	}
	return &SortExec{
		child:    child,
		schema:   child.Schema(),
		ev:       ev,
		sortKeys: sortKeys,
		limit:    -1,
	}, nil
}

// for now read everything into memory and sort -- next steps will be to do external merge
func (s *SortExec) Next(n uint16) (*operators.RecordBatch, error) {
	if !s.consumed {
		if err := s.consume(context.TODO()); err != nil {
			return nil, err
		}
	}
	remaining := len(s.order) - s.consumedOffset
	if remaining == 0 {
		return nil, io.EOF
	}
	readSize := min(int(n), remaining)
	window := s.order[s.consumedOffset : s.consumedOffset+readSize]
	sortedColumns := make([]column.Column, len(s.all.Columns))
	for i, col := range s.all.Columns {
		view, err := column.NewRowIndex(col, window)
		if err != nil {
			return nil, err
		}
		sortedColumns[i] = view
	}
	s.consumedOffset += readSize
	return &operators.RecordBatch{
		Schema:   s.schema,
		Columns:  sortedColumns,
		RowCount: uint64(readSize),
	}, nil
}

func (s *SortExec) Schema() *arrow.Schema {
	return s.schema
}

func (s *SortExec) Close() error {
	if s.all != nil {
		s.all.Release()
	}
	return s.child.Close()
}

func (s *SortExec) consume(ctx context.Context) error {
	all, err := drain(ctx, s.child, s.ev)
	if err != nil {
		return err
	}
	s.all = all
	s.consumed = true
	order, err := s.sortBatch(ctx)
	if err != nil {
		return err
	}
	if s.limit >= 0 && s.limit < len(order) {
		order = order[:s.limit]
	}
	s.order = order
	return nil
}

func (s *SortExec) sortBatch(ctx context.Context) ([]int, error) {
	comparators := make([]func(i, j int) int, len(s.sortKeys))
	for k, sk := range s.sortKeys {
		key, err := s.ev.Eval(ctx, sk.Expr, s.all)
		if err != nil {
			return nil, fmt.Errorf("sort batches: failed to eval sort expression: %w", err)
		}
		if comparators[k], err = comparator(key, sk); err != nil {
			return nil, err
		}
	}
	idVector := make([]int, s.all.RowCount)
	for i := range idVector {
		idVector[i] = i
	}
	sort.SliceStable(idVector, func(a, b int) bool {
		i, j := idVector[a], idVector[b]
		// lexicographic: go through each sort key
		for _, c := range comparators {
			if r := c(i, j); r != 0 {
				return r < 0
			}
		}
		return false
	})
	return idVector, nil
}

// comparator orders two rows of key. Integers and booleans compare as
// int64, floats as float64. NA rows go last unless the key asks for them
// first, regardless of direction.
func comparator(key column.Column, sk SortKey) (func(i, j int) int, error) {
	st := key.SType()
	switch {
	case st == types.Void:
		return func(int, int) int { return 0 }, nil
	case st == types.Bool || st.IsInteger():
		c, err := column.Cast(key, types.Int64)
		if err != nil {
			return nil, err
		}
		return compareBy(column.Getter[int64](c), sk), nil
	case st.IsFloat():
		c, err := column.Cast(key, types.Float64)
		if err != nil {
			return nil, err
		}
		return compareBy(column.Getter[float64](c), sk), nil
	case st.IsString():
		return compareBy(column.Getter[string](key), sk), nil
	default:
		return nil, ErrUnsortableKey(sk.Expr, st)
	}
}

func compareBy[T cmp.Ordered](get func(int) (T, bool), sk SortKey) func(i, j int) int {
	return func(i, j int) int {
		vi, okI := get(i)
		vj, okJ := get(j)
		switch {
		case !okI && !okJ:
			return 0
		case !okI:
			if sk.NullFirst {
				return -1
			}
			return 1
		case !okJ:
			if sk.NullFirst {
				return 1
			}
			return -1
		}
		if sk.Ascending {
			return cmp.Compare(vi, vj)
		}
		return cmp.Compare(vj, vi)
	}
}

/*
only sort and keep the top k elements
*/
type TopKSortExec struct {
	*SortExec
	k uint16 // top k
}

func NewTopKSortExec(ev *Expr.Evaluator, child operators.Operator, sortKeys []SortKey, k uint16) (*TopKSortExec, error) {
	s, err := NewSortExec(ev, child, sortKeys)
	if err != nil {
		return nil, err
	}
	s.limit = int(k)
	return &TopKSortExec{SortExec: s, k: k}, nil
}

/*
shared functions
*/

// drain reads child to the end and concatenates every column into one
// arrow backed batch.
func drain(ctx context.Context, child operators.Operator, ev *Expr.Evaluator) (*operators.RecordBatch, error) {
	schema := child.Schema()
	mem := memory.NewGoAllocator()
	chunks := make([][]arrow.Array, schema.NumFields())
	defer func() {
		for _, cs := range chunks {
			for _, c := range cs {
				c.Release()
			}
		}
	}()
	for {
		childBatch, err := child.Next(math.MaxUint16)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		for i, col := range childBatch.Columns {
			arr, err := column.Materialize(ctx, col, mem, ev.Options())
			if err != nil {
				return nil, err
			}
			chunks[i] = append(chunks[i], arr)
		}
	}
	cols := make([]column.Column, len(chunks))
	for i, cs := range chunks {
		full, err := concat(cs, schema.Field(i).Type, mem)
		if err != nil {
			return nil, err
		}
		if cols[i], err = column.FromArrow(full); err != nil {
			return nil, err
		}
		// FromArrow retains
		full.Release()
	}
	return operators.NewRecordBatchBuilder().NewRecordBatch(schema, cols)
}

func concat(chunks []arrow.Array, dt arrow.DataType, mem memory.Allocator) (arrow.Array, error) {
	if len(chunks) == 0 {
		b := array.NewBuilder(mem, dt)
		defer b.Release()
		return b.NewArray(), nil
	}
	return array.Concatenate(chunks, mem)
}
