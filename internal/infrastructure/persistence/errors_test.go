package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/billpay/backend/internal/domain/shared"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name      string
		in        error
		is        error
		retryable bool
		wrapped   bool
	}{
		{name: "record not found", in: gorm.ErrRecordNotFound, is: shared.ErrNotFound},
		{name: "duplicate key", in: gorm.ErrDuplicatedKey, is: shared.ErrAlreadyExists},
		{name: "pg unique violation", in: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, is: shared.ErrAlreadyExists},
		{name: "pg foreign key", in: &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, is: shared.ErrInvalidInput},
		{name: "pg serialization", in: &pgconn.PgError{Code: pgerrcode.SerializationFailure}, retryable: true, wrapped: true},
		{name: "canceled", in: context.Canceled, is: context.Canceled},
		{name: "conflict passes through", in: shared.ErrConcurrencyConflict, is: shared.ErrConcurrencyConflict},
		{name: "unknown", in: errors.New("connection reset by peer"), wrapped: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError("op", fmt.Errorf("driver: %w", tt.in))
			if tt.is != nil {
				assert.ErrorIs(t, got, tt.is)
			}
			if tt.wrapped {
				var pe *shared.PersistenceError
				if assert.ErrorAs(t, got, &pe) {
					assert.Equal(t, "op", pe.Op)
					assert.Equal(t, tt.retryable, pe.Retryable)
				}
			}
		})
	}

	assert.NoError(t, translateError("op", nil))
}
