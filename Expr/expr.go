package Expr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"colexpr-go/column"
	"colexpr-go/errs"
	"colexpr-go/fbinary"
	"colexpr-go/operators"
	"colexpr-go/parallel"
	"colexpr-go/types"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

var (
	ErrUnsupportedExpression = func(info string) error {
		return fmt.Errorf("unsupported expression passed to Eval: %s", info)
	}
	ErrLiteralType = func(v any, st types.SType) error {
		return errs.TypeErrorf("literal %v of Go type %T cannot be stored as %s", v, v, st)
	}
)

var (
	_ = (Expression)(&Alias{})
	_ = (Expression)(&ColumnResolve{})
	_ = (Expression)(&LiteralResolve{})
	_ = (Expression)(&BinaryExpr{})
	_ = (Expression)(&FunctionCall{})
	_ = (Expression)(&ScalarFunction{})
	_ = (Expression)(&CastExpr{})
	_ = (Expression)(&NullCheckExpr{})
	_ = (Expression)(&LikeExpr{})
)

/*
Eval(expr):

	match expr:
	    Literal(x) -> constant column of x
	    Column(name) -> column of that name
	    BinaryExpr(left + right) -> resolve operator, return virtual column
	    FunctionCall(atan2(a, b)) -> same as BinaryExpr, by function name
	    ScalarFunction(upper(name)) -> evaluate function
	    Alias(expr, name) -> just a name wrapper
*/
type Expression interface {
	// empty method, only for the sake of polymorphism
	ExprNode()
	fmt.Stringer
}

// Evaluator turns expressions into columns. Binary operators and functions
// are resolved through the shared resolver and come back as virtual columns;
// nothing is computed until the result is materialized.
type Evaluator struct {
	resolver *fbinary.Resolver
	mem      memory.Allocator
	opts     parallel.Options
}

func NewEvaluator(r *fbinary.Resolver, opts parallel.Options) *Evaluator {
	if r == nil {
		r = fbinary.NewResolver()
	}
	return &Evaluator{resolver: r, mem: memory.DefaultAllocator, opts: opts}
}

func (ev *Evaluator) Resolver() *fbinary.Resolver { return ev.resolver }

// Options are the parallel options results are materialized with.
func (ev *Evaluator) Options() parallel.Options { return ev.opts }

func (ev *Evaluator) Eval(ctx context.Context, expr Expression, batch *operators.RecordBatch) (column.Column, error) {
	switch e := expr.(type) {
	case *Alias:
		return ev.Eval(ctx, e.Expr, batch)
	case *ColumnResolve:
		return EvalColumn(e, batch)
	case *LiteralResolve:
		return EvalLiteral(e, batch)
	case *BinaryExpr:
		return ev.evalBinary(ctx, e, batch)
	case *FunctionCall:
		return ev.evalFunctionCall(ctx, e, batch)
	case *ScalarFunction:
		return ev.evalScalarFunction(ctx, e, batch)
	case *CastExpr:
		return ev.evalCast(ctx, e, batch)
	case *NullCheckExpr:
		return ev.evalNullCheck(ctx, e, batch)
	case *LikeExpr:
		return ev.evalLike(ctx, e, batch)
	default:
		return nil, ErrUnsupportedExpression(expr.String())
	}
}

// ExprSType returns the stype e evaluates to against inputSchema, without
// evaluating anything.
func (ev *Evaluator) ExprSType(e Expression, inputSchema *arrow.Schema) (types.SType, error) {
	switch ex := e.(type) {
	case *LiteralResolve:
		return ex.SType, nil
	case *ColumnResolve:
		idx := inputSchema.FieldIndices(ex.Name)
		if len(idx) == 0 {
			return types.Invalid, fmt.Errorf("exprSType: unknown column %q", ex.Name)
		}
		return types.FromArrow(inputSchema.Field(idx[0]).Type)
	case *Alias:
		// alias does NOT change type
		return ev.ExprSType(ex.Expr, inputSchema)
	case *CastExpr:
		return ex.Target, nil
	case *BinaryExpr:
		return ev.binarySType(ex.Op, ex.Left, exponentOperand(ex), inputSchema)
	case *FunctionCall:
		op, err := ex.op()
		if err != nil {
			return types.Invalid, err
		}
		return ev.binarySType(op, ex.Left, ex.Right, inputSchema)
	case *ScalarFunction:
		argType, err := ev.ExprSType(ex.Arguments, inputSchema)
		if err != nil {
			return types.Invalid, err
		}
		return inferScalarFunctionType(ex.Function, argType)
	case *NullCheckExpr, *LikeExpr:
		return types.Bool, nil
	default:
		return types.Invalid, ErrUnsupportedExpression(ex.String())
	}
}

func (ev *Evaluator) binarySType(op fbinary.Op, left, right Expression, schema *arrow.Schema) (types.SType, error) {
	lt, err := ev.ExprSType(left, schema)
	if err != nil {
		return types.Invalid, err
	}
	rt, err := ev.ExprSType(right, schema)
	if err != nil {
		return types.Invalid, err
	}
	m, err := ev.resolver.Lookup(op, lt, rt)
	if err != nil {
		return types.Invalid, err
	}
	return m.OutType(), nil
}

func NewExpressions(exprs ...Expression) []Expression {
	return exprs
}

/*
Alias | sql: select col1 as new_name from table_source
updates the column name in the output schema.
*/
type Alias struct {
	Expr Expression
	Name string
}

func NewAlias(expr Expression, name string) *Alias {
	return &Alias{
		Expr: expr,
		Name: name,
	}
}

func (a *Alias) ExprNode() {}
func (a *Alias) String() string {
	return fmt.Sprintf("Alias(%s AS %s)", a.Expr, a.Name)
}

// resolves the column corresponding to name passed in
// sql: select age
type ColumnResolve struct {
	Name string
}

func NewColumnResolve(name string) *ColumnResolve {
	return &ColumnResolve{Name: name}
}

func EvalColumn(c *ColumnResolve, batch *operators.RecordBatch) (column.Column, error) {
	return batch.Column(c.Name)
}
func (c *ColumnResolve) ExprNode() {}
func (c *ColumnResolve) String() string {
	return fmt.Sprintf("Column(%s)", c.Name)
}

// Evaluates to a column of length = batch-size, filled with this literal.
// A nil Value is an NA literal of the given stype.
// sql: select 1
type LiteralResolve struct {
	SType types.SType
	Value any
}

// NewLiteralResolve converts Go ints and float64s into the Go type stored by st.
func NewLiteralResolve(st types.SType, value any) *LiteralResolve {
	castVal := value
	switch v := value.(type) {
	case int:
		switch st {
		case types.Int8:
			castVal = int8(v)
		case types.Int16:
			castVal = int16(v)
		case types.Int32:
			castVal = int32(v)
		case types.Int64:
			castVal = int64(v)
		case types.Float32:
			castVal = float32(v)
		case types.Float64:
			castVal = float64(v)
		}
	case float64:
		if st == types.Float32 {
			castVal = float32(v)
		}
	}
	return &LiteralResolve{SType: st, Value: castVal}
}

// ParseLiteral reads a literal the way the command line spells it: NA or
// None, true/false, integers (INT32 when they fit, else INT64), floats, and
// quoted strings. An integer equal to the INT64 NA value reads as FLOAT64.
func ParseLiteral(s string) (*LiteralResolve, error) {
	switch s {
	case "NA", "None":
		return &LiteralResolve{SType: types.Void}, nil
	case "true", "false":
		return &LiteralResolve{SType: types.Bool, Value: s == "true"}, nil
	}
	if n := len(s); n >= 2 && (s[0] == '\'' || s[0] == '"') && s[n-1] == s[0] {
		return &LiteralResolve{SType: types.Str32, Value: s[1 : n-1]}, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v == int64(int32(v)) && !types.IsNA(int32(v)) {
			return &LiteralResolve{SType: types.Int32, Value: int32(v)}, nil
		}
		if !types.IsNA(v) {
			return &LiteralResolve{SType: types.Int64, Value: v}, nil
		}
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return &LiteralResolve{SType: types.Float64, Value: v}, nil
	}
	return nil, errs.ValueErrorf("cannot parse literal %q", s)
}

func EvalLiteral(l *LiteralResolve, batch *operators.RecordBatch) (column.Column, error) {
	n := int(batch.RowCount)
	if l.SType == types.Invalid {
		return nil, errs.TypeErrorf("literal %v has no stype", l.Value)
	}
	if l.Value == nil {
		return column.NewNA(l.SType, n), nil
	}
	switch l.SType {
	case types.Bool:
		return constOf[bool](l, n)
	case types.Int8:
		return constOf[int8](l, n)
	case types.Int16:
		return constOf[int16](l, n)
	case types.Int32:
		return constOf[int32](l, n)
	case types.Int64:
		return constOf[int64](l, n)
	case types.Float32:
		return constOf[float32](l, n)
	case types.Float64:
		return constOf[float64](l, n)
	case types.Str32, types.Str64:
		return constOf[string](l, n)
	default:
		return nil, ErrLiteralType(l.Value, l.SType)
	}
}

func constOf[T types.Element](l *LiteralResolve, n int) (column.Column, error) {
	v, ok := l.Value.(T)
	if !ok {
		return nil, ErrLiteralType(l.Value, l.SType)
	}
	return column.NewConst(l.SType, v, n)
}

func (l *LiteralResolve) ExprNode() {}
func (l *LiteralResolve) String() string {
	if l.Value == nil {
		return fmt.Sprintf("Literal(NA:%s)", l.SType)
	}
	if s, ok := l.Value.(string); ok {
		return fmt.Sprintf("Literal(%s)", strconv.Quote(s))
	}
	return fmt.Sprintf("Literal(%v)", l.Value)
}

// literalInt reports the integer value of an integer literal. A literal
// holding the NA value of its stype has none.
func literalInt(l *LiteralResolve) (int64, bool) {
	switch v := l.Value.(type) {
	case int8:
		return int64(v), !types.IsNA(v)
	case int16:
		return int64(v), !types.IsNA(v)
	case int32:
		return int64(v), !types.IsNA(v)
	case int64:
		return v, !types.IsNA(v)
	case int:
		return int64(v), !types.IsNA(int64(v))
	}
	return 0, false
}

func joinExprs(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
