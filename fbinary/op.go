// Package fbinary resolves binary operators over typed columns.
//
// For every (operator, stype1, stype2) triple a resolver picks the output
// stype, the upcasts applied to each operand and the scalar kernel, and packs
// them into a BiMaker. A Resolver caches makers per triple; applying a maker to
// two columns yields a lazy virtual column from package column.
package fbinary

import (
	"fmt"
	"sort"
)

// Op is a binary operator code.
type Op uint8

const (
	// arithmetic
	Plus Op = iota
	Minus
	Multiply
	Divide
	IntDiv
	Modulo
	PowerOp

	// bitwise and logical
	And
	Or
	Xor
	LShift
	RShift

	// relational
	Eq
	Ne
	Lt
	Gt
	Le
	Ge

	// binary math functions
	Arctan2
	Hypot
	PowerFn
	Copysign
	Logaddexp
	Logaddexp2
	Fmod
	Ldexp

	numOps
)

type opInfo struct {
	ident      string
	name       string
	precedence int
}

// precedence follows python: function calls bind tightest, then **, then the
// multiplicative and additive groups, shifts, &, ^, | and finally comparisons.
var ops = [numOps]opInfo{
	Plus:       {"PLUS", "+", 11},
	Minus:      {"MINUS", "-", 11},
	Multiply:   {"MULTIPLY", "*", 12},
	Divide:     {"DIVIDE", "/", 12},
	IntDiv:     {"INTDIV", "//", 12},
	Modulo:     {"MODULO", "%", 12},
	PowerOp:    {"POWEROP", "**", 14},
	And:        {"AND", "&", 9},
	Or:         {"OR", "|", 7},
	Xor:        {"XOR", "^", 8},
	LShift:     {"LSHIFT", "<<", 10},
	RShift:     {"RSHIFT", ">>", 10},
	Eq:         {"EQ", "==", 6},
	Ne:         {"NE", "!=", 6},
	Lt:         {"LT", "<", 6},
	Gt:         {"GT", ">", 6},
	Le:         {"LE", "<=", 6},
	Ge:         {"GE", ">=", 6},
	Arctan2:    {"ARCTAN2", "atan2", 16},
	Hypot:      {"HYPOT", "hypot", 16},
	PowerFn:    {"POWERFN", "pow", 16},
	Copysign:   {"COPYSIGN", "copysign", 16},
	Logaddexp:  {"LOGADDEXP", "logaddexp", 16},
	Logaddexp2: {"LOGADDEXP2", "logaddexp2", 16},
	Fmod:       {"FMOD", "fmod", 16},
	Ldexp:      {"LDEXP", "ldexp", 16},
}

func (o Op) valid() bool { return o < numOps }

func (o Op) String() string {
	if !o.valid() {
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
	return ops[o].ident
}

// Name is the symbol the operator is displayed with: "+", "==", "atan2".
func (o Op) Name() string {
	if !o.valid() {
		return o.String()
	}
	return ops[o].name
}

func (o Op) Precedence() int {
	if !o.valid() {
		return 0
	}
	return ops[o].precedence
}

// IsFunction reports whether the operator is written as a two-argument function call.
func (o Op) IsFunction() bool { return o >= Arctan2 && o < numOps }

func (o Op) IsRelational() bool { return o >= Eq && o <= Ge }

var (
	bySymbol   = map[string]Op{}
	byFunction = map[string]Op{}
)

func init() {
	for o := Op(0); o < numOps; o++ {
		if o.IsFunction() {
			byFunction[ops[o].name] = o
		} else {
			bySymbol[ops[o].name] = o
		}
	}
}

// ParseOp returns the infix operator written as symbol, e.g. "<<".
func ParseOp(symbol string) (Op, error) {
	if o, ok := bySymbol[symbol]; ok {
		return o, nil
	}
	return numOps, fmt.Errorf("unknown binary operator %q", symbol)
}

// LookupFunction returns the operator registered for a two-argument math
// function such as "hypot" or "ldexp".
func LookupFunction(name string) (Op, bool) {
	o, ok := byFunction[name]
	return o, ok
}

// Functions lists the registered math function names in sorted order.
func Functions() []string {
	out := make([]string, 0, len(byFunction))
	for name := range byFunction {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AllOps returns every operator in declaration order.
func AllOps() []Op {
	out := make([]Op, 0, numOps)
	for o := Op(0); o < numOps; o++ {
		out = append(out, o)
	}
	return out
}
