package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/billpay/backend/internal/domain/shared"
	"github.com/billpay/backend/internal/infrastructure/persistence/tenant"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// translateError maps store failures onto the domain error taxonomy.
// Anything not recognised becomes a *shared.PersistenceError whose detail
// stays out of client responses.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, shared.ErrNotFound),
		errors.Is(err, shared.ErrConcurrencyConflict),
		errors.Is(err, shared.ErrAlreadyExists),
		shared.IsPersistenceError(err):
		return err
	case errors.Is(err, tenant.ErrTenantIDRequired):
		return fmt.Errorf("%w: %v", shared.ErrUnauthorized, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: referenced record does not exist", shared.ErrInvalidInput)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return shared.ErrAlreadyExists
		case pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("%w: referenced record does not exist", shared.ErrInvalidInput)
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
			return &shared.PersistenceError{Op: op, Err: err, Retryable: true}
		}
	}

	return shared.NewPersistenceError(op, err)
}
