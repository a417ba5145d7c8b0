package Expr

import (
	"context"
	"fmt"

	"colexpr-go/column"
	"colexpr-go/errs"
	"colexpr-go/fbinary"
	"colexpr-go/operators"
	"colexpr-go/types"
)

// BinaryExpr applies an infix operator to two expressions.
type BinaryExpr struct {
	Left  Expression
	Op    fbinary.Op
	Right Expression
}

func NewBinaryExpr(left Expression, op fbinary.Op, right Expression) *BinaryExpr {
	return &BinaryExpr{
		Left:  left,
		Op:    op,
		Right: right,
	}
}

func (ev *Evaluator) evalBinary(ctx context.Context, b *BinaryExpr, batch *operators.RecordBatch) (column.Column, error) {
	return ev.apply(ctx, b.Op, b.Left, exponentOperand(b), batch)
}

func (ev *Evaluator) apply(ctx context.Context, op fbinary.Op, left, right Expression, batch *operators.RecordBatch) (column.Column, error) {
	lhs, err := ev.Eval(ctx, left, batch)
	if err != nil {
		return nil, err
	}
	rhs, err := ev.Eval(ctx, right, batch)
	if err != nil {
		return nil, err
	}
	return ev.resolver.BinaryOp(op, lhs, rhs)
}

// exponentOperand returns the right operand of b, except that a negative
// integer literal exponent of ** becomes a FLOAT64 literal. Integer power
// truncates negative exponents to 0, so x ** -1 is evaluated as a float
// power instead.
func exponentOperand(b *BinaryExpr) Expression {
	lit, ok := b.Right.(*LiteralResolve)
	if b.Op != fbinary.PowerOp || !ok || !lit.SType.IsInteger() {
		return b.Right
	}
	if n, ok := literalInt(lit); ok && n < 0 {
		return &LiteralResolve{SType: types.Float64, Value: float64(n)}
	}
	return b.Right
}

func (b *BinaryExpr) ExprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("BinaryExpr(%s %s %s)", b.Left, b.Op.Name(), b.Right)
}

// FunctionCall applies one of the two-argument math functions by name.
// sql: select atan2(y, x)
type FunctionCall struct {
	Name  string
	Left  Expression
	Right Expression
}

func NewFunctionCall(name string, left, right Expression) *FunctionCall {
	return &FunctionCall{Name: name, Left: left, Right: right}
}

func (f *FunctionCall) op() (fbinary.Op, error) {
	op, ok := fbinary.LookupFunction(f.Name)
	if !ok {
		return 0, errs.NotImplErrorf("function `%s` is not supported", f.Name)
	}
	return op, nil
}

func (ev *Evaluator) evalFunctionCall(ctx context.Context, f *FunctionCall, batch *operators.RecordBatch) (column.Column, error) {
	op, err := f.op()
	if err != nil {
		return nil, err
	}
	return ev.apply(ctx, op, f.Left, f.Right, batch)
}

func (f *FunctionCall) ExprNode() {}
func (f *FunctionCall) String() string {
	return fmt.Sprintf("FunctionCall(%s(%s))", f.Name, joinExprs([]Expression{f.Left, f.Right}))
}
