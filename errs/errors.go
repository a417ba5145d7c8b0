// Package errs defines the error taxonomy shared by the column engine.
//
// Resolution failures are TypeError (operator cannot apply to the operand
// stypes) or NotImplError (combination recognised but unsupported). Invariant
// errors signal programming mistakes upstream, such as operands with mismatched
// row counts; they never arise from valid input. ValueError covers bad
// arguments that are not type related.
package errs

import (
	"fmt"
)

type Kind uint8

const (
	KindType Kind = iota + 1
	KindNotImpl
	KindInvariant
	KindValue
)

var kindNames = map[Kind]string{
	KindType:      "TypeError",
	KindNotImpl:   "NotImplError",
	KindInvariant: "InvariantError",
	KindValue:     "ValueError",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

type Error struct {
	Kind Kind
	msg  string
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.msg
}

// Message returns the error text without the kind prefix.
func (e *Error) Message() string { return e.msg }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrType      = &Error{Kind: KindType}
	ErrNotImpl   = &Error{Kind: KindNotImpl}
	ErrInvariant = &Error{Kind: KindInvariant}
	ErrValue     = &Error{Kind: KindValue}
)

func newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, msg: fmt.Sprintf(format, args...)}
}

func TypeErrorf(format string, args ...any) error    { return newf(KindType, format, args...) }
func NotImplErrorf(format string, args ...any) error { return newf(KindNotImpl, format, args...) }
func Invariantf(format string, args ...any) error    { return newf(KindInvariant, format, args...) }
func ValueErrorf(format string, args ...any) error   { return newf(KindValue, format, args...) }

// NewTypeError reports that operator op cannot be applied to operands of the
// two named types.
func NewTypeError(op string, lhs, rhs fmt.Stringer) error {
	return newf(KindType, "operator `%s` cannot be applied to columns with types `%s` and `%s`", op, lhs, rhs)
}

// NewNotImplError reports a recognised but unsupported operand combination.
func NewNotImplError(op string, lhs, rhs fmt.Stringer) error {
	return newf(KindNotImpl, "operator `%s` is not implemented for columns with types `%s` and `%s`", op, lhs, rhs)
}

// KindOf returns the kind of err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			// pkg/errors wrappers expose Cause rather than Unwrap on older versions
			c, ok := err.(interface{ Cause() error })
			if !ok {
				return 0, false
			}
			err = c.Cause()
			continue
		}
		err = u.Unwrap()
	}
	return 0, false
}
