package errs

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type name string

func (n name) String() string { return string(n) }

func TestTypeErrorMessage(t *testing.T) {
	err := NewTypeError("&", name("float64"), name("float64"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "`&`")
	assert.Contains(t, err.Error(), "TypeError")
	assert.Equal(t, 2, countOf(err.Error(), "float64"))
	assert.True(t, errors.Is(err, ErrType))
	assert.False(t, errors.Is(err, ErrNotImpl))
}

func TestKindOfThroughWrappers(t *testing.T) {
	base := NotImplErrorf("strings %s", "nope")
	wrapped := fmt.Errorf("outer: %w", base)
	k, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindNotImpl, k)

	k, ok = KindOf(pkgerrors.Wrap(Invariantf("nrows"), "compute"))
	require.True(t, ok)
	assert.Equal(t, KindInvariant, k)
	assert.True(t, errors.Is(pkgerrors.Wrap(ValueErrorf("x"), "y"), ErrValue))

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "TypeError", KindType.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
	var e *Error
	require.True(t, errors.As(NewNotImplError("+", name("str32"), name("int8")), &e))
	assert.Equal(t, KindNotImpl, e.Kind)
	assert.Contains(t, e.Message(), "str32")
}

func countOf(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}
