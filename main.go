package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"colexpr-go/Expr"
	"colexpr-go/column"
	"colexpr-go/config"
	"colexpr-go/fbinary"
	"colexpr-go/logutil"
	"colexpr-go/operators"
	"colexpr-go/operators/filter"
	"colexpr-go/operators/project"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type evalCommand struct {
	source *string
	left   *string
	op     *string
	right  *string
	limit  *uint16
}

func main() {
	app := kingpin.New("colexpr", "Evaluate binary operators over columns of a CSV file.")
	configPath := app.Flag("config", "Path to a yaml config file.").String()
	envFiles := app.Flag("env", "Env files to load COLEXPR_* settings from.").Strings()

	cmd := &evalCommand{}
	eval := app.Command("eval", "Apply an operator to two operands and print the result column.")
	cmd.source = eval.Flag("csv", "CSV file path or s3://bucket/key.").Required().String()
	cmd.left = eval.Flag("left", "Left operand: a column name or a literal.").Required().String()
	cmd.op = eval.Flag("op", "Operator symbol such as + or <<, or a function name such as hypot.").Required().String()
	cmd.right = eval.Flag("right", "Right operand: a column name or a literal.").Required().String()
	cmd.limit = eval.Flag("limit", "Print at most this many rows, 0 for all.").Default("0").Uint16()

	opsCmd := app.Command("ops", "List the supported operators.")

	selected := kingpin.MustParse(app.Parse(os.Args[1:]))

	if *configPath != "" {
		if err := config.Decode(*configPath); err != nil {
			exitWithErr(err)
		}
	}
	if err := config.LoadEnv(*envFiles...); err != nil {
		exitWithErr(err)
	}
	cfg := config.GetConfig()
	logger, err := logutil.New(cfg.Log)
	if err != nil {
		exitWithErr(err)
	}
	defer func() { _ = logger.Sync() }()

	switch selected {
	case opsCmd.FullCommand():
		printOps(os.Stdout)
	case eval.FullCommand():
		if err := cmd.run(context.Background(), cfg, logger, os.Stdout); err != nil {
			exitWithErr(err)
		}
	}
}

func (cmd *evalCommand) run(ctx context.Context, cfg *config.Config, logger *zap.Logger, out io.Writer) error {
	opts, err := cfg.ParallelOptions()
	if err != nil {
		return err
	}
	resolverOpts := []fbinary.Option{fbinary.WithLogger(logger)}
	reg := prometheus.NewRegistry()
	if cfg.Metrics.EnableMetrics {
		resolverOpts = append(resolverOpts, fbinary.WithMetrics(fbinary.NewMetrics(reg, cfg.Metrics.Namespace)))
	}
	ev := Expr.NewEvaluator(fbinary.NewResolver(resolverOpts...), opts)

	src, err := openSource(ctx, cfg, *cmd.source)
	if err != nil {
		return err
	}
	root, expr, err := cmd.pipeline(ev, src)
	if err != nil {
		return err
	}
	defer root.Close()

	logger.Debug("evaluating", zap.Stringer("expr", expr), zap.String("source", *cmd.source))
	batchSize := uint16(min(max(cfg.Batch.Size, 1), 1<<16-1))
	row := 0
	for {
		rb, err := root.Next(batchSize)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := printBatch(ctx, out, rb, row, ev); err != nil {
			return err
		}
		row += int(rb.RowCount)
	}
	if cfg.Metrics.EnableMetrics {
		logMetrics(logger, reg)
	}
	return nil
}

// pipeline projects the expression over src as a "result" column, limited
// when --limit is set. src is closed when any stage fails to build.
func (cmd *evalCommand) pipeline(ev *Expr.Evaluator, src operators.Operator) (operators.Operator, Expr.Expression, error) {
	expr, err := cmd.expression(src)
	if err != nil {
		_ = src.Close()
		return nil, nil, err
	}
	var root operators.Operator
	root, err = project.NewProjectExec(ev, src, []Expr.Expression{Expr.NewAlias(expr, "result")})
	if err != nil {
		_ = src.Close()
		return nil, nil, err
	}
	if *cmd.limit > 0 {
		lim, err := filter.NewLimitExec(root, *cmd.limit)
		if err != nil {
			_ = root.Close()
			return nil, nil, err
		}
		root = lim
	}
	return root, expr, nil
}

// expression builds left op right. Operands naming a source column resolve
// to that column, anything else is parsed as a literal.
func (cmd *evalCommand) expression(src operators.Operator) (Expr.Expression, error) {
	operand := func(s string) (Expr.Expression, error) {
		if len(src.Schema().FieldIndices(s)) > 0 {
			return Expr.NewColumnResolve(s), nil
		}
		lit, err := Expr.ParseLiteral(s)
		if err != nil {
			return nil, err
		}
		return lit, nil
	}
	left, err := operand(*cmd.left)
	if err != nil {
		return nil, err
	}
	right, err := operand(*cmd.right)
	if err != nil {
		return nil, err
	}
	if _, ok := fbinary.LookupFunction(*cmd.op); ok {
		return Expr.NewFunctionCall(*cmd.op, left, right), nil
	}
	op, err := fbinary.ParseOp(*cmd.op)
	if err != nil {
		return nil, err
	}
	return Expr.NewBinaryExpr(left, op, right), nil
}

func openSource(ctx context.Context, cfg *config.Config, path string) (operators.Operator, error) {
	if project.IsObjectURL(path) {
		store, err := project.NewObjectStore(cfg)
		if err != nil {
			return nil, err
		}
		return project.NewObjectCSVSource(ctx, store, path, cfg.S3.Bucket)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	src, err := project.NewProjectCSVLeaf(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return src, nil
}

func printBatch(ctx context.Context, out io.Writer, rb *operators.RecordBatch, offset int, ev *Expr.Evaluator) error {
	arr, err := column.Materialize(ctx, rb.Columns[0], memory.DefaultAllocator, ev.Options())
	if err != nil {
		return err
	}
	defer arr.Release()
	for i := 0; i < arr.Len(); i++ {
		v := "NA"
		if arr.IsValid(i) {
			v = arr.ValueStr(i)
		}
		if _, err := fmt.Fprintf(out, "%d\t%s\n", offset+i, v); err != nil {
			return err
		}
	}
	return nil
}

func printOps(out io.Writer) {
	for _, op := range fbinary.AllOps() {
		kind := "infix"
		if op.IsFunction() {
			kind = "function"
		}
		fmt.Fprintf(out, "%-10s %-8s %-9s %d\n", op.String(), op.Name(), kind, op.Precedence())
	}
}

func logMetrics(logger *zap.Logger, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		logger.Warn("failed to gather metrics", zap.Error(err))
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			var v float64
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			}
			logger.Debug("metric", zap.String("name", mf.GetName()), zap.String("labels", strings.Join(labels, ",")), zap.Float64("value", v))
		}
	}
}

func exitWithErr(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
