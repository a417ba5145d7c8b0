package filter

import (
	"io"

	"colexpr-go/column"
	"colexpr-go/operators"

	"github.com/apache/arrow/go/v17/arrow"
)

var (
	_ = (operators.Operator)(&LimitExec{})
)

// LimitExec passes through at most count rows of its input.
type LimitExec struct {
	input     operators.Operator
	schema    *arrow.Schema
	remaining uint16
}

func NewLimitExec(input operators.Operator, count uint16) (*LimitExec, error) {
	return &LimitExec{
		input:     input,
		schema:    input.Schema(),
		remaining: count,
	}, nil
}

func (l *LimitExec) Next(n uint16) (*operators.RecordBatch, error) {
	if n == 0 {
		return &operators.RecordBatch{
			Schema:   l.schema,
			Columns:  []column.Column{},
			RowCount: 0,
		}, nil
	}
	if l.remaining == 0 {
		return nil, io.EOF
	}
	childN := min(n, l.remaining)
	childBatch, err := l.input.Next(childN)
	if err != nil {
		return nil, err
	}
	// a child may return fewer rows than asked for
	l.remaining -= uint16(childBatch.RowCount)
	return childBatch, nil
}

func (l *LimitExec) Schema() *arrow.Schema {
	return l.schema
}

func (l *LimitExec) Close() error {
	return l.input.Close()
}
