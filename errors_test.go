package dynacrud

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		target  error
		message string
	}{
		{
			name:    "not found names table and id",
			err:     notFound("GetByID", "countries", "abc"),
			target:  ErrNotFound,
			message: "GetByID: countries with id abc not found",
		},
		{
			name:    "bad request formats message",
			err:     badRequest("ValidateDuplicate", "keys and values length mismatch: %d keys, %d values", 2, 1),
			target:  ErrBadRequest,
			message: "ValidateDuplicate: keys and values length mismatch: 2 keys, 1 values",
		},
		{
			name:    "conflict enumerates every pair",
			err:     conflict("ValidateDuplicate", "countries", []string{"name", "countryCode"}, []any{"Canada", "CAN"}),
			target:  ErrConflict,
			message: "ValidateDuplicate: countries already exists with name=Canada, countryCode=CAN",
		},
		{
			name:    "conflict with single key",
			err:     conflict("ValidateDuplicate", "countries", []string{"name"}, []any{"Canada"}),
			target:  ErrConflict,
			message: "ValidateDuplicate: countries already exists with name=Canada",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.message)
			assert.ErrorIs(t, tt.err, tt.target)

			wrapped := fmt.Errorf("handler: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.target)
		})
	}
}

func TestErrorIsDistinguishesKinds(t *testing.T) {
	err := notFound("GetByID", "countries", 1)

	assert.True(t, IsNotFound(err))
	assert.False(t, IsBadRequest(err))
	assert.False(t, IsConflict(err))
	assert.False(t, errors.Is(errors.New("countries with id 1 not found"), ErrNotFound))

	var e *Error
	if assert.ErrorAs(t, err, &e) {
		assert.Equal(t, KindNotFound, e.Kind)
		assert.Equal(t, "not found", e.Kind.String())
	}
}

func TestErrorWithoutOp(t *testing.T) {
	err := &Error{Kind: KindBadRequest, Message: "boom"}
	assert.Equal(t, "boom", err.Error())
	assert.Equal(t, "unknown", Kind(0).String())
}
