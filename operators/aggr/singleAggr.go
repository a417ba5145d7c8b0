package aggr

import (
	"context"
	"errors"
	"fmt"
	"io"

	"colexpr-go/Expr"
	"colexpr-go/column"
	"colexpr-go/operators"
	"colexpr-go/types"

	"github.com/apache/arrow/go/v17/arrow"
)

var (
	ErrUnsupportedAggrFunc = func(aggr int) error {
		return fmt.Errorf("%d is an unsupported aggregate function", aggr)
	}
	ErrInvalidAggrColumnType = func(expr Expr.Expression, st types.SType) error {
		return fmt.Errorf("%s of stype %s cannot be cast to float64 so it is not a valid column to aggregate on", expr, st)
	}
)

// AggrFunc represents the type of aggregation function to be performed.
type AggrFunc int

const (
	Min AggrFunc = iota
	Max
	Count
	Sum
	Avg
)

func (a AggrFunc) String() string {
	switch a {
	case Min:
		return "MIN"
	case Max:
		return "MAX"
	case Count:
		return "COUNT"
	case Sum:
		return "SUM"
	case Avg:
		return "AVG"
	default:
		return "UNKNOWN_AGGREGATE_FUNCTION"
	}
}

var (
	_ = (accumulator)(&minAccumulator{})
	_ = (accumulator)(&maxAccumulator{})
	_ = (accumulator)(&countAccumulator{})
	_ = (accumulator)(&sumAccumulator{})
	_ = (accumulator)(&avgAccumulator{})
	_ = (operators.Operator)(&AggrExec{})
)

type AggregateFunctions struct {
	AggrFunc AggrFunc        // switch to deal with separate aggregate functions
	Child    Expr.Expression // resolves to a column generally
}

func NewAggregateFunctions(aggrFunc AggrFunc, child Expr.Expression) AggregateFunctions {
	return AggregateFunctions{
		AggrFunc: aggrFunc,
		Child:    child,
	}
}

// accumulator sees every non NA value of its column. Finalize reports false
// when the result is NA.
type accumulator interface {
	Update(value float64)
	Finalize() (float64, bool)
}

func newAccumulator(f AggrFunc) (accumulator, error) {
	switch f {
	case Min:
		return &minAccumulator{}, nil
	case Max:
		return &maxAccumulator{}, nil
	case Count:
		return &countAccumulator{}, nil
	case Sum:
		return &sumAccumulator{}, nil
	case Avg:
		return &avgAccumulator{}, nil
	default:
		return nil, ErrUnsupportedAggrFunc(int(f))
	}
}

type minAccumulator struct {
	minV float64
	seen bool
}

func (m *minAccumulator) Update(value float64) {
	if !m.seen {
		m.minV, m.seen = value, true
		return
	}
	m.minV = min(m.minV, value)
}
func (m *minAccumulator) Finalize() (float64, bool) { return m.minV, m.seen }

type maxAccumulator struct {
	maxV float64
	seen bool
}

func (m *maxAccumulator) Update(value float64) {
	if !m.seen {
		m.maxV, m.seen = value, true
		return
	}
	m.maxV = max(m.maxV, value)
}
func (m *maxAccumulator) Finalize() (float64, bool) { return m.maxV, m.seen }

type countAccumulator struct {
	count float64
}

func (c *countAccumulator) Update(float64) { c.count++ }
func (c *countAccumulator) Finalize() (float64, bool) { return c.count, true }

type sumAccumulator struct {
	summation float64
}

func (s *sumAccumulator) Update(value float64) { s.summation += value }
func (s *sumAccumulator) Finalize() (float64, bool) { return s.summation, true }

type avgAccumulator struct {
	values float64
	count  float64
}

func (a *avgAccumulator) Update(value float64) {
	a.values += value
	a.count++
}

// the average of no values is NA
func (a *avgAccumulator) Finalize() (float64, bool) {
	if a.count == 0 {
		return 0, false
	}
	return a.values / a.count, true
}

// ===================
// Aggregator Operator
// ===================

// AggrExec computes global aggregations, without group by, and returns them
// as a single row of FLOAT64 columns.
type AggrExec struct {
	child          operators.Operator   // child operator
	schema         *arrow.Schema        // output schema
	ev             *Expr.Evaluator      // evaluates the aggregated expressions
	aggExpressions []AggregateFunctions // list of wanted aggregate expressions
	accumulators   []accumulator        // one per aggExpression
	done           bool                 // know when to return io.EOF
}

func NewGlobalAggrExec(ev *Expr.Evaluator, child operators.Operator, aggExprs []AggregateFunctions) (*AggrExec, error) {
	accs := make([]accumulator, len(aggExprs))
	sb := operators.NewRecordBatchBuilder().SchemaBuilder
	for i, agg := range aggExprs {
		st, err := ev.ExprSType(agg.Child, child.Schema())
		if err != nil {
			return nil, err
		}
		if !validAggrType(st) {
			return nil, ErrInvalidAggrColumnType(agg.Child, st)
		}
		if accs[i], err = newAccumulator(agg.AggrFunc); err != nil {
			return nil, err
		}
		sb.WithField(fmt.Sprintf("%s_%s", agg.AggrFunc, agg.Child), types.Float64)
	}
	return &AggrExec{
		child:          child,
		schema:         sb.Build(),
		ev:             ev,
		aggExpressions: aggExprs,
		accumulators:   accs,
	}, nil
}

// Next consumes the whole input; this is a pipeline breaker so the second
// call always returns io.EOF.
func (a *AggrExec) Next(n uint16) (*operators.RecordBatch, error) {
	if a.done {
		return nil, io.EOF
	}
	ctx := context.TODO()
	for {
		childBatch, err := a.child.Next(n)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		for i, aggExpr := range a.aggExpressions {
			if err := a.update(ctx, a.accumulators[i], aggExpr.Child, childBatch); err != nil {
				return nil, err
			}
		}
	}
	resultColumns := make([]column.Column, len(a.accumulators))
	for i, acc := range a.accumulators {
		v, ok := acc.Finalize()
		if !ok {
			resultColumns[i] = column.NewNA(types.Float64, 1)
			continue
		}
		col, err := column.NewConst(types.Float64, v, 1)
		if err != nil {
			return nil, err
		}
		resultColumns[i] = col
	}
	a.done = true
	return &operators.RecordBatch{
		Schema:   a.schema,
		Columns:  resultColumns,
		RowCount: 1,
	}, nil
}

func (a *AggrExec) update(ctx context.Context, acc accumulator, expr Expr.Expression, batch *operators.RecordBatch) error {
	col, err := a.ev.Eval(ctx, expr, batch)
	if err != nil {
		return err
	}
	values, err := column.Cast(col, types.Float64)
	if err != nil {
		return err
	}
	get := column.Getter[float64](values)
	for j := 0; j < values.NRows(); j++ {
		if v, ok := get(j); ok {
			acc.Update(v)
		}
	}
	return nil
}

func (a *AggrExec) Schema() *arrow.Schema {
	return a.schema
}

func (a *AggrExec) Close() error {
	return a.child.Close()
}

func validAggrType(st types.SType) bool {
	return st == types.Void || st.IsNumeric()
}
