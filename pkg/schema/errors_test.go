package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExprErrorRendering(t *testing.T) {
	base := NewError(ErrCodeUnknownFunction, `unknown function "frob"`)
	assert.Equal(t, `[UNKNOWN_FUNCTION] unknown function "frob"`, base.Error())

	withPath := NewError(ErrCodeUnexpectedType, "expected number").WithPath("[1][2]")
	assert.Equal(t, "[UNEXPECTED_TYPE] expected number at [1][2]", withPath.Error())

	full := NewError(ErrCodeLookupNotFound, "no value").
		WithPath("hidden[1]").
		WithComponent("age-0")
	assert.Equal(t, "[LOOKUP_NOT_FOUND] no value at hidden[1] in component age-0", full.Error())
}

func TestExprErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewErrorf(ErrCodeStore, "put failed: %s", cause).WithCause(cause)

	assert.ErrorIs(t, err, cause)

	var xerr *ExprError
	require.ErrorAs(t, error(err), &xerr)
	assert.Equal(t, ErrCodeStore, xerr.Code)
}

func TestExprErrorDetails(t *testing.T) {
	err := NewError(ErrCodeValidation, "bad layout").
		WithDetails(map[string]any{"violations": []string{"/data: missing"}})
	assert.Equal(t, []string{"/data: missing"}, err.Details["violations"])
}
