package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrors(t *testing.T) {
	t.Run("message lists every field", func(t *testing.T) {
		v := ValidationErrors{
			{Field: "name", Message: "is required"},
			{Field: "amount", Message: "must be >= 0"},
		}
		assert.Equal(t, "validation failed: name: is required; amount: must be >= 0", v.Error())
		assert.Equal(t, CodeValidation, v.Code())
	})

	t.Run("extracted from wrapped error", func(t *testing.T) {
		err := fmt.Errorf("create bill: %w", NewFieldError("payee_id", "payee not found"))

		v, ok := AsValidationErrors(err)
		require.True(t, ok)
		require.Len(t, v, 1)
		assert.Equal(t, "payee_id", v[0].Field)
	})

	t.Run("not a validation error", func(t *testing.T) {
		_, ok := AsValidationErrors(ErrNotFound)
		assert.False(t, ok)
	})
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("commit: %w", NewPersistenceError("commit", cause))

	assert.True(t, IsPersistenceError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, IsPersistenceError(ErrNotFound))
}

func TestSentinelErrorsMatchWhenWrapped(t *testing.T) {
	err := fmt.Errorf("get bill: %w", ErrNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrAlreadyExists)

	var de *DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "NOT_FOUND", de.Code)
}
