package filter

import (
	"context"
	"errors"
	"io"
	"testing"

	"colexpr-go/Expr"
	"colexpr-go/column"
	"colexpr-go/fbinary"
	"colexpr-go/operators"
	"colexpr-go/operators/project"
	"colexpr-go/parallel"
	"colexpr-go/types"

	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

func generateTestColumns() ([]string, []any) {
	names := []string{
		"id",
		"name",
		"age",
		"salary",
		"is_active",
		"department",
		"rating",
		"years_experience",
	}

	columns := []any{
		[]int32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		[]string{
			"Alice", "Bob", "Charlie", "David", "Eve",
			"Frank", "Grace", "Hannah", "Ivy", "Jake",
		},
		[]int32{28, 34, 45, 22, 31, 29, 40, 36, 50, 26},
		[]float64{
			70000.0, 82000.5, 54000.0, 91000.0, 60000.0,
			75000.0, 66000.0, 88000.0, 45000.0, 99000.0,
		},
		[]bool{true, false, true, true, false, false, true, true, false, true},
		[]string{
			"Engineering", "HR", "Engineering", "Sales", "Finance",
			"Sales", "Support", "Engineering", "HR", "Finance",
		},
		[]float32{4.5, 3.8, 4.2, 2.9, 5.0, 4.3, 3.7, 4.9, 4.1, 3.5},
		[]int32{1, 5, 10, 2, 7, 3, 6, 12, 4, 8},
	}

	return names, columns
}

func basicProject() *project.InMemorySource {
	names, col := generateTestColumns()
	v, _ := project.NewInMemoryProjectExec(names, col)
	return v
}

func newEvaluator() *Expr.Evaluator {
	return Expr.NewEvaluator(fbinary.NewResolver(), parallel.Options{Workers: 1})
}

func col(name string) Expr.Expression { return Expr.NewColumnResolve(name) }

func i32(v int) Expr.Expression { return Expr.NewLiteralResolve(types.Int32, v) }

func names(t *testing.T, rb *operators.RecordBatch) []string {
	t.Helper()
	c, err := rb.Column("name")
	if err != nil {
		t.Fatalf("missing name column: %v", err)
	}
	out := make([]string, rb.RowCount)
	for i := range out {
		out[i], _ = c.GetString(i)
	}
	return out
}

func expectNames(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestFilterInit(t *testing.T) {
	ev := newEvaluator()
	opts := parallel.Options{Workers: 1}

	if _, err := NewFilterExec(ev, basicProject(), Expr.NewBinaryExpr(col("age"), fbinary.Gt, i32(30)), opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// not a boolean predicate
	if _, err := NewFilterExec(ev, basicProject(), Expr.NewBinaryExpr(col("age"), fbinary.Plus, i32(30)), opts); err == nil {
		t.Fatal("expected error for a non boolean predicate")
	}
	// operator that does not resolve
	if _, err := NewFilterExec(ev, basicProject(), Expr.NewBinaryExpr(col("name"), fbinary.Lt, col("age")), opts); err == nil {
		t.Fatal("expected error for a predicate that does not resolve")
	}
	if _, err := NewFilterExec(ev, basicProject(), col("missing"), opts); err == nil {
		t.Fatal("expected error for an unknown column")
	}
}

func TestFilterExec_BasicPredicates(t *testing.T) {
	tests := []struct {
		name string
		pred Expr.Expression
		want []string
	}{
		{
			name: "age > 35",
			pred: Expr.NewBinaryExpr(col("age"), fbinary.Gt, i32(35)),
			want: []string{"Charlie", "Grace", "Hannah", "Ivy"},
		},
		{
			name: "is_active",
			pred: col("is_active"),
			want: []string{"Alice", "Charlie", "David", "Grace", "Hannah", "Jake"},
		},
		{
			name: "department == Engineering",
			pred: Expr.NewBinaryExpr(col("department"), fbinary.Eq, Expr.NewLiteralResolve(types.Str32, "Engineering")),
			want: []string{"Alice", "Charlie", "Hannah"},
		},
		{
			name: "salary >= 80000 or rating < 3",
			pred: Expr.NewBinaryExpr(
				Expr.NewBinaryExpr(col("salary"), fbinary.Ge, i32(80000)),
				fbinary.Or,
				Expr.NewBinaryExpr(col("rating"), fbinary.Lt, i32(3)),
			),
			want: []string{"Bob", "David", "Hannah", "Jake"},
		},
		{
			name: "years_experience % 2 == 0 and is_active",
			pred: Expr.NewBinaryExpr(
				Expr.NewBinaryExpr(Expr.NewBinaryExpr(col("years_experience"), fbinary.Modulo, i32(2)), fbinary.Eq, i32(0)),
				fbinary.And,
				col("is_active"),
			),
			want: []string{"Charlie", "David", "Grace", "Hannah", "Jake"},
		},
		{
			name: "name like %a%",
			pred: Expr.NewLikeExpr(col("name"), "%a%"),
			want: []string{"Charlie", "David", "Frank", "Grace", "Hannah", "Jake"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFilterExec(newEvaluator(), basicProject(), tt.pred, parallel.Options{Workers: 1})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer f.Close()
			rb, err := f.Next(10)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			expectNames(t, names(t, rb), tt.want)
			if _, err := f.Next(10); !errors.Is(err, io.EOF) {
				t.Fatalf("expected EOF, got %v", err)
			}
		})
	}
}

func TestFilterExec_NAPredicateDropsRows(t *testing.T) {
	rbb := operators.NewRecordBatchBuilder()
	flags := rbb.WithNulls(rbb.GenBoolColumn(true, true, false, true), 1)
	src, err := project.NewInMemoryProjectExec(
		[]string{"name", "flag"},
		[]any{[]string{"a", "b", "c", "d"}, flags},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := NewFilterExec(newEvaluator(), src, col("flag"), parallel.Options{Workers: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rb, err := f.Next(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectNames(t, names(t, rb), []string{"a", "d"})
}

func TestFilterExec_EdgeCases(t *testing.T) {
	t.Run("zero batch size", func(t *testing.T) {
		f, _ := NewFilterExec(newEvaluator(), basicProject(), col("is_active"), parallel.Options{Workers: 1})
		if _, err := f.Next(0); err == nil {
			t.Fatal("expected error for n == 0")
		}
	})
	t.Run("nothing matches", func(t *testing.T) {
		f, _ := NewFilterExec(newEvaluator(), basicProject(), Expr.NewBinaryExpr(col("age"), fbinary.Gt, i32(100)), parallel.Options{Workers: 1})
		rb, err := f.Next(10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rb.RowCount != 0 {
			t.Fatalf("expected 0 rows, got %d", rb.RowCount)
		}
	})
	t.Run("small batches", func(t *testing.T) {
		f, _ := NewFilterExec(newEvaluator(), basicProject(), col("is_active"), parallel.Options{Workers: 1})
		var all []string
		for {
			rb, err := f.Next(3)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			all = append(all, names(t, rb)...)
		}
		expectNames(t, all, []string{"Alice", "Charlie", "David", "Grace", "Hannah", "Jake"})
	})
}

func TestApplyBooleanMaskMatchesFilterExec(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	opts := parallel.Options{Workers: 2, ChunkSize: 3}

	src := basicProject()
	batch, err := src.Next(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := newEvaluator()
	pred, err := ev.Eval(ctx, Expr.NewBinaryExpr(col("rating"), fbinary.Ge, Expr.NewLiteralResolve(types.Float32, 4.2)), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	maskArr, err := column.Materialize(ctx, pred, mem, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer maskArr.Release()
	mask := maskArr.(*array.Boolean)

	salary, _ := batch.Column("salary")
	eager, err := ApplyBooleanMask(ctx, salary, mask, mem, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer eager.Release()

	view, err := column.NewRowIndex(salary, selectedRows(mask))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lazy, err := column.Materialize(ctx, view, mem, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer lazy.Release()

	if !array.Equal(eager, lazy) {
		t.Fatalf("compute.Filter gave %v, row index view gave %v", eager, lazy)
	}
	if eager.Len() != 5 {
		t.Fatalf("expected 5 rows with rating >= 4.2, got %d", eager.Len())
	}
}
