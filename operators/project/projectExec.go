package project

import (
	"context"
	"errors"
	"fmt"

	"colexpr-go/Expr"
	"colexpr-go/column"
	"colexpr-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
)

var (
	_ = (operators.Operator)(&ProjectExec{})
)

var (
	ErrEmptyColumnsToProject = errors.New("no columns passed in")
	ErrProjectColumnNotFound = func(name string) error {
		return fmt.Errorf("column %q to project does not exist", name)
	}
)

// ProjectExec evaluates one expression per output column over every batch of
// its input. Binary operators come out as virtual columns reading the input
// batch; they are computed when the result is materialized.
type ProjectExec struct {
	input  operators.Operator
	ev     *Expr.Evaluator
	exprs  []Expr.Expression
	schema *arrow.Schema
}

func NewProjectExec(ev *Expr.Evaluator, input operators.Operator, exprs []Expr.Expression) (*ProjectExec, error) {
	if len(exprs) == 0 {
		return nil, ErrEmptyColumnsToProject
	}
	sb := operators.NewRecordBatchBuilder().SchemaBuilder
	for _, e := range exprs {
		st, err := ev.ExprSType(e, input.Schema())
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", e, err)
		}
		sb.WithField(outputName(e), st)
	}
	return &ProjectExec{
		input:  input,
		ev:     ev,
		exprs:  exprs,
		schema: sb.Build(),
	}, nil
}

// outputName is the alias of e, the name of a bare column, or the
// expression's text.
func outputName(e Expr.Expression) string {
	switch ex := e.(type) {
	case *Expr.Alias:
		return ex.Name
	case *Expr.ColumnResolve:
		return ex.Name
	default:
		return e.String()
	}
}

func (p *ProjectExec) Next(n uint16) (*operators.RecordBatch, error) {
	batch, err := p.input.Next(n)
	if err != nil {
		return nil, err
	}
	cols := make([]column.Column, len(p.exprs))
	for i, e := range p.exprs {
		col, err := p.ev.Eval(context.TODO(), e, batch)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return &operators.RecordBatch{
		Schema:   p.schema,
		Columns:  cols,
		RowCount: batch.RowCount,
	}, nil
}

func (p *ProjectExec) Schema() *arrow.Schema {
	return p.schema
}

func (p *ProjectExec) Close() error {
	return p.input.Close()
}

// handle keeping only the requested columns but make sure the schema and columns are also aligned
// returns error if a column doesnt exist
func ProjectSchemaFilterDown(schema *arrow.Schema, cols []column.Column, keepCols ...string) (*arrow.Schema, []column.Column, error) {
	if len(keepCols) == 0 {
		return arrow.NewSchema([]arrow.Field{}, nil), nil, ErrEmptyColumnsToProject
	}

	fieldIndex := make(map[string]int)
	for i, f := range schema.Fields() {
		fieldIndex[f.Name] = i
	}

	newFields := make([]arrow.Field, 0, len(keepCols))
	newCols := make([]column.Column, 0, len(keepCols))

	// Preserve order from keepCols, not schema order
	for _, name := range keepCols {
		idx, exists := fieldIndex[name]
		if !exists {
			return arrow.NewSchema([]arrow.Field{}, nil), []column.Column{}, ErrProjectColumnNotFound(name)
		}
		newFields = append(newFields, schema.Field(idx))
		newCols = append(newCols, cols[idx])
	}
	return arrow.NewSchema(newFields, nil), newCols, nil
}
