package Expr

import (
	"context"
	"fmt"
	"strings"

	"colexpr-go/column"
	"colexpr-go/errs"
	"colexpr-go/operators"
	"colexpr-go/types"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/compute"
	"github.com/grafana/regexp"
	"github.com/pkg/errors"
)

type supportedFunctions int

const (
	Upper supportedFunctions = 1
	Lower supportedFunctions = 2
	Abs   supportedFunctions = 3
	Round supportedFunctions = 4
)

func (f supportedFunctions) String() string {
	switch f {
	case Upper:
		return "upper"
	case Lower:
		return "lower"
	case Abs:
		return "abs"
	case Round:
		return "round"
	}
	return fmt.Sprintf("function(%d)", int(f))
}

// ScalarFunction applies a one-argument function. Unlike binary operators
// these are evaluated eagerly into a new materialized column.
type ScalarFunction struct {
	Function  supportedFunctions
	Arguments Expression
}

func NewScalarFunction(function supportedFunctions, argument Expression) *ScalarFunction {
	return &ScalarFunction{
		Function:  function,
		Arguments: argument,
	}
}

func (ev *Evaluator) evalScalarFunction(ctx context.Context, s *ScalarFunction, batch *operators.RecordBatch) (column.Column, error) {
	arg, err := ev.Eval(ctx, s.Arguments, batch)
	if err != nil {
		return nil, err
	}
	if _, err := inferScalarFunctionType(s.Function, arg.SType()); err != nil {
		return nil, err
	}
	switch s.Function {
	case Upper:
		return ev.mapStrings(arg, strings.ToUpper)
	case Lower:
		return ev.mapStrings(arg, strings.ToLower)
	case Abs:
		return ev.callCompute(ctx, arg, func(d compute.Datum) (compute.Datum, error) {
			return compute.AbsoluteValue(ctx, compute.ArithmeticOptions{}, d)
		})
	case Round:
		if !arg.SType().IsFloat() {
			// integers are already round
			return arg, nil
		}
		return ev.callCompute(ctx, arg, func(d compute.Datum) (compute.Datum, error) {
			return compute.Round(ctx, compute.DefaultRoundOptions, d)
		})
	}
	return nil, fmt.Errorf("unsupported scalar function %v", s.Function)
}

// callCompute materializes col, runs an arrow compute kernel over it and
// wraps the result back into a column.
func (ev *Evaluator) callCompute(ctx context.Context, col column.Column, fn func(compute.Datum) (compute.Datum, error)) (column.Column, error) {
	arr, err := column.Materialize(ctx, col, ev.mem, ev.opts)
	if err != nil {
		return nil, err
	}
	defer arr.Release()
	in := compute.NewDatum(arr)
	defer in.Release()
	out, err := fn(in)
	if err != nil {
		return nil, errors.Wrap(err, "compute")
	}
	defer out.Release()
	res, err := unpackDatum(out)
	if err != nil {
		return nil, err
	}
	defer res.Release()
	return column.FromArrow(res)
}

func unpackDatum(d compute.Datum) (arrow.Array, error) {
	arr, ok := d.(*compute.ArrayDatum)
	if !ok {
		return nil, fmt.Errorf("datum %v is not of type array", d)
	}
	return arr.MakeArray(), nil
}

type stringAppender interface {
	array.Builder
	Append(string)
}

func (ev *Evaluator) mapStrings(col column.Column, fn func(string) string) (column.Column, error) {
	b := array.NewBuilder(ev.mem, col.SType().ArrowType())
	defer b.Release()
	sb, ok := b.(stringAppender)
	if !ok {
		return nil, errs.Invariantf("no string builder for stype %s", col.SType())
	}
	get := column.Getter[string](col)
	n := col.NRows()
	sb.Reserve(n)
	for i := 0; i < n; i++ {
		if v, ok := get(i); ok {
			sb.Append(fn(v))
		} else {
			sb.AppendNull()
		}
	}
	arr := sb.NewArray()
	defer arr.Release()
	return column.FromArrow(arr)
}

func inferScalarFunctionType(fn supportedFunctions, argType types.SType) (types.SType, error) {
	switch fn {
	case Upper, Lower:
		if !argType.IsString() {
			return types.Invalid, errs.TypeErrorf("function `%s` cannot be applied to a column of type `%s`", fn, argType)
		}
		return argType, nil
	case Abs, Round:
		if !argType.IsInteger() && !argType.IsFloat() {
			return types.Invalid, errs.TypeErrorf("function `%s` cannot be applied to a column of type `%s`", fn, argType)
		}
		return argType, nil
	default:
		return types.Invalid, errs.NotImplErrorf("unknown scalar function %v", fn)
	}
}

func (s *ScalarFunction) ExprNode() {}
func (s *ScalarFunction) String() string {
	return fmt.Sprintf("ScalarFunction(%s, %v)", s.Function, s.Arguments)
}

// CastExpr views the result of Expr as Target. The cast is lazy.
type CastExpr struct {
	Expr   Expression
	Target types.SType
}

func NewCastExpr(expr Expression, target types.SType) *CastExpr {
	return &CastExpr{
		Expr:   expr,
		Target: target,
	}
}

func (ev *Evaluator) evalCast(ctx context.Context, c *CastExpr, batch *operators.RecordBatch) (column.Column, error) {
	col, err := ev.Eval(ctx, c.Expr, batch)
	if err != nil {
		return nil, err
	}
	out, err := column.Cast(col, c.Target)
	if err != nil {
		return nil, errors.Wrapf(err, "cast %s to %s", col.SType(), c.Target)
	}
	return out, nil
}

func (c *CastExpr) ExprNode() {}
func (c *CastExpr) String() string {
	return fmt.Sprintf("Cast(%s AS %s)", c.Expr, c.Target)
}

// NullCheckExpr is true where Expr is not NA, or where it is NA when
// IsNull is set.
type NullCheckExpr struct {
	Expr   Expression
	IsNull bool
}

func NewNullCheckExpr(expr Expression) *NullCheckExpr {
	return &NullCheckExpr{Expr: expr}
}

func NewIsNullExpr(expr Expression) *NullCheckExpr {
	return &NullCheckExpr{Expr: expr, IsNull: true}
}

func (ev *Evaluator) evalNullCheck(ctx context.Context, n *NullCheckExpr, batch *operators.RecordBatch) (column.Column, error) {
	col, err := ev.Eval(ctx, n.Expr, batch)
	if err != nil {
		return nil, err
	}
	if n.IsNull {
		return column.IsNA(col), nil
	}
	return column.NotNA(col), nil
}

func (n *NullCheckExpr) ExprNode() {}
func (n *NullCheckExpr) String() string {
	if n.IsNull {
		return fmt.Sprintf("IsNull(%s)", n.Expr)
	}
	return fmt.Sprintf("NullCheck(%s)", n.Expr)
}

// LikeExpr matches a string expression against a SQL LIKE pattern, where %
// matches any run of characters and _ exactly one. A backslash escapes the
// next character. NA inputs give NA.
// sql: where column_name like 'patte%n_with_wi%dcard_'
type LikeExpr struct {
	Expr    Expression
	Pattern string
	Negate  bool
}

func NewLikeExpr(expr Expression, pattern string) *LikeExpr {
	return &LikeExpr{Expr: expr, Pattern: pattern}
}

func (ev *Evaluator) evalLike(ctx context.Context, l *LikeExpr, batch *operators.RecordBatch) (column.Column, error) {
	col, err := ev.Eval(ctx, l.Expr, batch)
	if err != nil {
		return nil, err
	}
	if !col.SType().IsString() {
		return nil, errs.TypeErrorf("operator `LIKE` cannot be applied to a column of type `%s`", col.SType())
	}
	re, err := regexp.Compile(compileSqlRegEx(l.Pattern))
	if err != nil {
		return nil, errors.Wrapf(err, "like pattern %q", l.Pattern)
	}

	b := array.NewBooleanBuilder(ev.mem)
	defer b.Release()
	get := column.Getter[string](col)
	n := col.NRows()
	b.Reserve(n)
	for i := 0; i < n; i++ {
		v, ok := get(i)
		if !ok {
			b.AppendNull()
			continue
		}
		b.Append(re.MatchString(v) != l.Negate)
	}
	arr := b.NewArray()
	defer arr.Release()
	return column.FromArrow(arr)
}

func (l *LikeExpr) ExprNode() {}
func (l *LikeExpr) String() string {
	if l.Negate {
		return fmt.Sprintf("Like(%s NOT LIKE %q)", l.Expr, l.Pattern)
	}
	return fmt.Sprintf("Like(%s LIKE %q)", l.Expr, l.Pattern)
}

func compileSqlRegEx(s string) string {
	var buf strings.Builder
	buf.WriteString(`(?s)^`)
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			buf.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			buf.WriteString(".*")
		case r == '_':
			buf.WriteString(".")
		default:
			buf.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if escaped {
		buf.WriteString(`\\`)
	}
	buf.WriteString("$")
	return buf.String()
}
