// Package payables holds the command and query handlers of the payables context.
// Every method takes the caller's tenant explicitly, opens a fresh unit of work
// for that tenant and commits it at most once.
package payables

import (
	"context"
	"errors"
	"time"

	"github.com/billpay/backend/internal/domain/payables"
	"github.com/billpay/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Validator checks commands before any persistence work
type Validator interface {
	Struct(s any) error
}

// ObjectStorage issues presigned URLs for receipt objects
type ObjectStorage interface {
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
	DeleteObject(ctx context.Context, storageKey string) error
}

// ListResult is one page of mapped entities and the total match count
type ListResult[T any] struct {
	Items []T
	Total int64
}

func requireTenant(tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return shared.ErrUnauthorized
	}
	return nil
}

// checkBodyID rejects an update whose body names a different entity than the path
func checkBodyID(pathID uuid.UUID, bodyID *uuid.UUID) error {
	if bodyID != nil && *bodyID != uuid.Nil && *bodyID != pathID {
		return shared.NewFieldError("id", "must match the id in the path")
	}
	return nil
}

// stageUpdate stages agg for update. With an expected version the write is a
// compare-and-swap and a mismatch already visible in the loaded row fails fast.
func stageUpdate(uow payables.UnitOfWork, agg shared.TenantAggregate, loadedVersion int, expected *int, fields ...string) error {
	if expected == nil {
		uow.Modify(agg, fields...)
		return nil
	}
	if *expected != loadedVersion {
		return shared.ErrConcurrencyConflict
	}
	uow.ModifyExpecting(agg, *expected, fields...)
	return nil
}

// reference loads a referenced entity and turns its absence into a field error
func reference[T any](ctx context.Context, get func(context.Context, uuid.UUID) (*T, error), id uuid.UUID, field, what string) (*T, error) {
	v, err := get(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewFieldError(field, "does not reference an existing "+what)
	}
	return v, err
}
