// Package tenant holds the GORM scopes that confine statements to one
// tenant. The tenant is always passed in explicitly.
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired fails a statement scoped to the nil tenant
var ErrTenantIDRequired = errors.New("tenant_id is required")

// Column is the owner column of every payables table
const Column = "tenant_id"

// Owned limits a statement to rows of tenantID. The nil tenant adds an
// error instead of a predicate, so the statement never runs unscoped.
func Owned(tenantID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return db.Where(Column+" = ?", tenantID)
	}
}

// Row limits a statement to the row id of tenantID
func Row(tenantID, id uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return Owned(tenantID)(db).Where("id = ?", id)
	}
}
