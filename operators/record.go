package operators

import (
	"context"
	"fmt"
	"strings"

	"colexpr-go/column"
	"colexpr-go/parallel"
	"colexpr-go/types"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/pkg/errors"
)

var (
	ErrInvalidSchema = func(info string) error {
		return fmt.Errorf("invalid schema was provided. context: %s", info)
	}
	ErrColumnNotFound = func(name string) error {
		return fmt.Errorf("column %q does not exist in the record batch", name)
	}
)

type Operator interface {
	Next(uint16) (*RecordBatch, error)
	Schema() *arrow.Schema
	// Call Operator.Close() after Next returns an io.EOF to clean up resources
	Close() error
}

// RecordBatch is a set of equally long named columns. Columns may be virtual:
// nothing is computed until the batch is exported with ToArrow.
type RecordBatch struct {
	Schema   *arrow.Schema
	Columns  []column.Column
	RowCount uint64
}

type SchemaBuilder struct {
	fields []arrow.Field
}

type RecordBatchBuilder struct {
	SchemaBuilder *SchemaBuilder
}

func NewRecordBatchBuilder() *RecordBatchBuilder {
	return &RecordBatchBuilder{
		SchemaBuilder: &SchemaBuilder{
			fields: make([]arrow.Field, 0, 10),
		},
	}
}

// WithField appends a nullable field of the given stype.
func (sb *SchemaBuilder) WithField(name string, st types.SType) *SchemaBuilder {
	sb.fields = append(sb.fields, arrow.Field{
		Name:     name,
		Type:     st.ArrowType(),
		Nullable: true,
	})
	return sb
}
func (sb *SchemaBuilder) WithoutField(names ...string) *SchemaBuilder {
	nameSet := make(map[string]struct{}, len(names))
	for _, n := range names {
		nameSet[n] = struct{}{}
	}

	newFields := make([]arrow.Field, 0, len(sb.fields))
	for _, field := range sb.fields {
		if _, found := nameSet[field.Name]; !found {
			newFields = append(newFields, field)
		}
	}
	sb.fields = newFields
	return sb
}

func (sb *SchemaBuilder) Build() *arrow.Schema {
	return arrow.NewSchema(sb.fields, nil)
}
func (rbb *RecordBatchBuilder) Schema() *arrow.Schema {
	return rbb.SchemaBuilder.Build()
}

// SchemaFor derives the schema of a batch holding cols under names.
func SchemaFor(names []string, cols []column.Column) (*arrow.Schema, error) {
	if len(names) != len(cols) {
		return nil, ErrInvalidSchema("names and column count do not match")
	}
	sb := &SchemaBuilder{fields: make([]arrow.Field, 0, len(cols))}
	for i, c := range cols {
		sb.WithField(names[i], c.SType())
	}
	return sb.Build(), nil
}

// schema is always right in case of type mismatches
func (rbb *RecordBatchBuilder) validate(schema *arrow.Schema, columns []column.Column) error {
	if len(schema.Fields()) != len(columns) {
		return ErrInvalidSchema("schema fields and column count do not match")
	}
	var problems []string
	seen := make(map[string]struct{}, len(columns))
	for i, col := range columns {
		field := schema.Field(i)
		if _, dup := seen[field.Name]; dup {
			problems = append(problems, fmt.Sprintf("Duplicate column name '%s'.", field.Name))
		}
		seen[field.Name] = struct{}{}
		st, err := types.FromArrow(field.Type)
		if err != nil {
			problems = append(problems, fmt.Sprintf("Field '%s': %v.", field.Name, err))
			continue
		}
		if st != col.SType() {
			problems = append(problems,
				fmt.Sprintf("Type mismatch at position %d: column '%s' has type '%s', but schema expects '%s'.",
					i, field.Name, col.SType(), st))
		}
		if col.NRows() != columns[0].NRows() {
			problems = append(problems,
				fmt.Sprintf("Column '%s' has %d rows, expected %d.", field.Name, col.NRows(), columns[0].NRows()))
		}
	}
	if len(problems) > 0 {
		return ErrInvalidSchema(strings.Join(problems, " "))
	}
	return nil
}
func (rbb *RecordBatchBuilder) NewRecordBatch(schema *arrow.Schema, columns []column.Column) (*RecordBatch, error) {
	if err := rbb.validate(schema, columns); err != nil {
		return nil, err
	}
	var rows uint64
	if len(columns) > 0 {
		rows = uint64(columns[0].NRows())
	}
	return &RecordBatch{
		Schema:   schema,
		Columns:  columns,
		RowCount: rows,
	}, nil
}

// FromArrowRecord wraps every array of rec in a column. The arrays are
// retained; call Release on the batch when done.
func FromArrowRecord(rec arrow.Record) (*RecordBatch, error) {
	cols := make([]column.Column, 0, rec.NumCols())
	for i, arr := range rec.Columns() {
		c, err := column.FromArrow(arr)
		if err != nil {
			releaseColumns(cols)
			return nil, errors.Wrapf(err, "column %q", rec.ColumnName(i))
		}
		cols = append(cols, c)
	}
	names := make([]string, len(cols))
	for i := range names {
		names[i] = rec.ColumnName(i)
	}
	schema, err := SchemaFor(names, cols)
	if err != nil {
		releaseColumns(cols)
		return nil, err
	}
	return NewRecordBatchBuilder().NewRecordBatch(schema, cols)
}

// Column returns the column named name.
func (rb *RecordBatch) Column(name string) (column.Column, error) {
	idx := rb.Schema.FieldIndices(name)
	if len(idx) == 0 {
		return nil, ErrColumnNotFound(name)
	}
	return rb.Columns[idx[0]], nil
}

// ToArrow materializes every column of the batch into an arrow record.
func (rb *RecordBatch) ToArrow(ctx context.Context, mem memory.Allocator, opts parallel.Options) (arrow.Record, error) {
	arrs := make([]arrow.Array, 0, len(rb.Columns))
	defer func() {
		for _, a := range arrs {
			a.Release()
		}
	}()
	for i, col := range rb.Columns {
		arr, err := column.Materialize(ctx, col, mem, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "materialize column %q", rb.Schema.Field(i).Name)
		}
		arrs = append(arrs, arr)
	}
	return array.NewRecord(rb.Schema, arrs, int64(rb.RowCount)), nil
}

// Release frees the arrow memory held by the batch's columns.
func (rb *RecordBatch) Release() {
	releaseColumns(rb.Columns)
}

func releaseColumns(cols []column.Column) {
	for _, c := range cols {
		if r, ok := c.(column.Releaser); ok {
			r.Release()
		}
	}
}

// DeepEqual reports whether both batches have the same schema and elements.
func (rb *RecordBatch) DeepEqual(other *RecordBatch) bool {
	if !rb.Schema.Equal(other.Schema) {
		return false
	}
	if len(rb.Columns) != len(other.Columns) {
		return false
	}
	opts := parallel.Options{Workers: 1}
	for i := 0; i < len(rb.Columns); i++ {
		a, err := column.Materialize(context.Background(), rb.Columns[i], nil, opts)
		if err != nil {
			return false
		}
		b, err := column.Materialize(context.Background(), other.Columns[i], nil, opts)
		if err != nil {
			a.Release()
			return false
		}
		eq := array.Equal(a, b)
		a.Release()
		b.Release()
		if !eq {
			return false
		}
	}
	return true
}

func (rbb *RecordBatchBuilder) GenIntColumn(values ...int) column.Column {
	builder := array.NewInt32Builder(memory.NewGoAllocator())
	defer builder.Release()
	for _, v := range values {
		builder.Append(int32(v))
	}
	return newArrowColumn(builder.NewArray())
}

func (rbb *RecordBatchBuilder) GenFloatColumn(values ...float64) column.Column {
	builder := array.NewFloat64Builder(memory.NewGoAllocator())
	defer builder.Release()
	builder.AppendValues(values, nil)
	return newArrowColumn(builder.NewArray())
}

func (rbb *RecordBatchBuilder) GenStringColumn(values ...string) column.Column {
	builder := array.NewStringBuilder(memory.NewGoAllocator())
	defer builder.Release()
	builder.AppendValues(values, nil)
	return newArrowColumn(builder.NewArray())
}

func (rbb *RecordBatchBuilder) GenBoolColumn(values ...bool) column.Column {
	builder := array.NewBooleanBuilder(memory.NewGoAllocator())
	defer builder.Release()
	builder.AppendValues(values, nil)
	return newArrowColumn(builder.NewArray())
}

// WithNulls returns a view of col in which the listed rows read as NA.
func (rbb *RecordBatchBuilder) WithNulls(col column.Column, rows ...int) column.Column {
	indices := make([]int, col.NRows())
	for i := range indices {
		indices[i] = i
	}
	for _, r := range rows {
		indices[r] = -1
	}
	view, err := column.NewRowIndex(col, indices)
	if err != nil {
		panic(err)
	}
	return view
}

// newArrowColumn takes ownership of arr.
func newArrowColumn(arr arrow.Array) column.Column {
	defer arr.Release()
	return column.MustFromArrow(arr)
}
