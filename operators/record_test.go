package operators

import (
	"context"
	"strings"
	"testing"

	"colexpr-go/column"
	"colexpr-go/parallel"
	"colexpr-go/types"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

func TestSchemaBuilderWithField(t *testing.T) {
	sb := &SchemaBuilder{
		fields: make([]arrow.Field, 0, 10),
	}
	sb.WithField("age", types.Int32).
		WithField("name", types.Str32).
		WithField("salary", types.Float64)

	if len(sb.fields) != 3 {
		t.Fatalf("Expected 3 fields, got %d", len(sb.fields))
	}
	expected := []struct {
		name string
		typ  arrow.DataType
	}{
		{"age", arrow.PrimitiveTypes.Int32},
		{"name", arrow.BinaryTypes.String},
		{"salary", arrow.PrimitiveTypes.Float64},
	}
	for i, e := range expected {
		if sb.fields[i].Name != e.name {
			t.Errorf("Field %d: expected name '%s', got '%s'", i, e.name, sb.fields[i].Name)
		}
		if !arrow.TypeEqual(sb.fields[i].Type, e.typ) {
			t.Errorf("Field '%s': expected %s type, got %s", e.name, e.typ, sb.fields[i].Type)
		}
		if !sb.fields[i].Nullable {
			t.Errorf("Field '%s': expected nullable", e.name)
		}
	}
}

func TestSchemaBuilderWithoutField(t *testing.T) {
	schema := (&SchemaBuilder{}).
		WithField("age", types.Int32).
		WithField("name", types.Str32).
		WithField("salary", types.Float64).
		WithoutField("name", "missing").
		Build()

	if schema.NumFields() != 2 {
		t.Fatalf("Expected 2 fields, got %d", schema.NumFields())
	}
	if schema.Field(0).Name != "age" || schema.Field(1).Name != "salary" {
		t.Errorf("Unexpected fields %v", schema.Fields())
	}
}

func TestNewRecordBatch(t *testing.T) {
	rbb := NewRecordBatchBuilder()
	rbb.SchemaBuilder.WithField("id", types.Int32).WithField("score", types.Float64)

	cols := []column.Column{rbb.GenIntColumn(1, 2, 3), rbb.GenFloatColumn(0.5, 1.5, 2.5)}
	rb, err := rbb.NewRecordBatch(rbb.Schema(), cols)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer rb.Release()
	if rb.RowCount != 3 {
		t.Errorf("Expected 3 rows, got %d", rb.RowCount)
	}

	score, err := rb.Column("score")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if v, ok := score.GetFloat64(1); !ok || v != 1.5 {
		t.Errorf("Expected score[1] = 1.5, got %v (valid=%v)", v, ok)
	}
	if _, err := rb.Column("missing"); err == nil {
		t.Error("Expected error for a missing column")
	}
}

func TestNewRecordBatchValidation(t *testing.T) {
	rbb := NewRecordBatchBuilder()

	tests := []struct {
		name    string
		schema  *arrow.Schema
		cols    []column.Column
		wantMsg string
	}{
		{
			name:    "count mismatch",
			schema:  (&SchemaBuilder{}).WithField("a", types.Int32).Build(),
			cols:    nil,
			wantMsg: "column count do not match",
		},
		{
			name:    "type mismatch",
			schema:  (&SchemaBuilder{}).WithField("a", types.Str32).Build(),
			cols:    []column.Column{rbb.GenIntColumn(1)},
			wantMsg: "Type mismatch at position 0",
		},
		{
			name:    "row mismatch",
			schema:  (&SchemaBuilder{}).WithField("a", types.Int32).WithField("b", types.Int32).Build(),
			cols:    []column.Column{rbb.GenIntColumn(1, 2), rbb.GenIntColumn(1)},
			wantMsg: "has 1 rows, expected 2",
		},
		{
			name:    "duplicate name",
			schema:  (&SchemaBuilder{}).WithField("a", types.Int32).WithField("a", types.Int32).Build(),
			cols:    []column.Column{rbb.GenIntColumn(1), rbb.GenIntColumn(2)},
			wantMsg: "Duplicate column name 'a'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rbb.NewRecordBatch(tt.schema, tt.cols)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected error containing %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestRecordBatchArrowRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	ib := array.NewInt64Builder(mem)
	ib.AppendValues([]int64{10, 20, 30}, []bool{true, false, true})
	ids := ib.NewArray()
	ib.Release()
	sb := array.NewStringBuilder(mem)
	sb.AppendValues([]string{"x", "y", "z"}, nil)
	names := sb.NewArray()
	sb.Release()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	rec := array.NewRecord(schema, []arrow.Array{ids, names}, 3)
	ids.Release()
	names.Release()

	rb, err := FromArrowRecord(rec)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	rec.Release()

	out, err := rb.ToArrow(context.Background(), mem, parallel.Options{Workers: 1})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out.NumRows() != 3 || out.NumCols() != 2 {
		t.Errorf("Expected 3x2 record, got %dx%d", out.NumRows(), out.NumCols())
	}
	got := out.Column(0).(*array.Int64)
	if !got.IsNull(1) || got.Value(2) != 30 {
		t.Errorf("Unexpected id column %v", got)
	}
	if out.Column(1).(*array.String).Value(0) != "x" {
		t.Errorf("Unexpected name column %v", out.Column(1))
	}
	out.Release()
	rb.Release()
}

func TestRecordBatchDeepEqual(t *testing.T) {
	rbb := NewRecordBatchBuilder()
	rbb.SchemaBuilder.WithField("flag", types.Bool).WithField("name", types.Str32)

	a, err := rbb.NewRecordBatch(rbb.Schema(), []column.Column{
		rbb.GenBoolColumn(true, false), rbb.GenStringColumn("a", "b"),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	b, err := rbb.NewRecordBatch(rbb.Schema(), []column.Column{
		rbb.GenBoolColumn(true, false), rbb.GenStringColumn("a", "b"),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	c, err := rbb.NewRecordBatch(rbb.Schema(), []column.Column{
		rbb.WithNulls(rbb.GenBoolColumn(true, false), 1), rbb.GenStringColumn("a", "b"),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !a.DeepEqual(b) {
		t.Error("Expected identical batches to be equal")
	}
	if a.DeepEqual(c) {
		t.Error("Expected batches differing in a null to be unequal")
	}
}

func TestWithNulls(t *testing.T) {
	rbb := NewRecordBatchBuilder()
	col := rbb.WithNulls(rbb.GenIntColumn(1, 2, 3), 0, 2)
	want := []bool{false, true, false}
	for i, w := range want {
		if _, ok := col.GetInt32(i); ok != w {
			t.Errorf("row %d: expected valid=%v", i, w)
		}
	}
}
