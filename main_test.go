package main

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"colexpr-go/Expr"
	"colexpr-go/config"
	"colexpr-go/fbinary"
	"colexpr-go/logutil"
	"colexpr-go/operators"
	"colexpr-go/operators/project"
	"colexpr-go/parallel"
)

const scoresCSV = `id,score,bonus
1,10,2
2,,3
3,7,0
`

func strPtr(s string) *string { return &s }

func newCommand(left, op, right string, limit uint16) *evalCommand {
	return &evalCommand{
		source: strPtr(""),
		left:   strPtr(left),
		op:     strPtr(op),
		right:  strPtr(right),
		limit:  &limit,
	}
}

func TestExpression(t *testing.T) {
	src, err := project.NewProjectCSVLeaf(strings.NewReader(scoresCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tests := []struct {
		left, op, right string
		want            string
		wantErr         bool
	}{
		{left: "score", op: "+", right: "bonus", want: "BinaryExpr(Column(score) + Column(bonus))"},
		{left: "score", op: "**", right: "-1", want: "BinaryExpr(Column(score) ** Literal(-1))"},
		{left: "score", op: "hypot", right: "bonus", want: "FunctionCall(hypot(Column(score), Column(bonus)))"},
		{left: "score", op: "<>", right: "bonus", wantErr: true},
		{left: "score", op: "+", right: "nope", wantErr: true},
	}
	for _, tt := range tests {
		expr, err := newCommand(tt.left, tt.op, tt.right, 0).expression(src)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s %s %s: expected error", tt.left, tt.op, tt.right)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if expr.String() != tt.want {
			t.Errorf("expected %s, got %s", tt.want, expr.String())
		}
	}
}

func TestPrintOps(t *testing.T) {
	var buf bytes.Buffer
	printOps(&buf)
	out := buf.String()
	for _, want := range []string{"PLUS", "<<", "ldexp", "function"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in\n%s", want, out)
		}
	}
}

func TestRun(t *testing.T) {
	path := t.TempDir() + "/scores.csv"
	if err := os.WriteFile(path, []byte(scoresCSV), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	config.Reset()
	defer config.Reset()
	cfg := config.GetConfig()
	cfg.Parallel.Workers = 1

	cmd := newCommand("score", "*", "bonus", 0)
	cmd.source = &path
	var out bytes.Buffer
	if err := cmd.run(context.Background(), cfg, logutil.Nop(), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := out.String(), "0\t20\n1\tNA\n2\t0\n"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	*cmd.limit = 1
	out.Reset()
	if err := cmd.run(context.Background(), cfg, logutil.Nop(), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "0\t20\n" {
		t.Errorf("expected a single row, got %q", got)
	}
}

// closeRecorder counts Close calls on the source it wraps.
type closeRecorder struct {
	operators.Operator
	closed int
}

func (c *closeRecorder) Close() error {
	c.closed++
	return c.Operator.Close()
}

func TestPipelineClosesSourceOnError(t *testing.T) {
	ev := Expr.NewEvaluator(fbinary.NewResolver(), parallel.Options{Workers: 1})
	for _, cmd := range []*evalCommand{
		newCommand("score", "<>", "bonus", 0),
		newCommand("score", "+", "nope", 3),
		newCommand("score", "-", "'x'", 3),
	} {
		csvSrc, err := project.NewProjectCSVLeaf(strings.NewReader(scoresCSV))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		src := &closeRecorder{Operator: csvSrc}
		if _, _, err := cmd.pipeline(ev, src); err == nil {
			t.Fatalf("%s %s %s: expected error", *cmd.left, *cmd.op, *cmd.right)
		}
		if src.closed != 1 {
			t.Errorf("%s %s %s: expected the source closed once, got %d", *cmd.left, *cmd.op, *cmd.right, src.closed)
		}
	}

	src := &closeRecorder{Operator: mustCSV(t)}
	root, _, err := newCommand("score", "-", "bonus", 2).pipeline(ev, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.closed != 0 {
		t.Fatalf("source closed before use")
	}
	if err := root.Close(); err != nil || src.closed != 1 {
		t.Errorf("expected closing the pipeline to close the source, got %d (%v)", src.closed, err)
	}
}

func mustCSV(t *testing.T) operators.Operator {
	t.Helper()
	src, err := project.NewProjectCSVLeaf(strings.NewReader(scoresCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return src
}
