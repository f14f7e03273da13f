package payables

import (
	"strings"
	"time"

	"github.com/billpay/backend/internal/application/validation"
	"github.com/billpay/backend/internal/domain/payables"
	"github.com/billpay/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayeeFields are the client-assignable payee fields
type PayeeFields struct {
	Name          string  `json:"name" validate:"required,max=200"`
	Category      string  `json:"category" validate:"omitempty,payee_category"`
	AccountNumber *string `json:"account_number" validate:"omitempty,max=100"`
	Website       *string `json:"website" validate:"omitempty,max=500,http_url"`
	Phone         *string `json:"phone" validate:"omitempty,max=50"`
	Notes         *string `json:"notes" validate:"omitempty,max=2000"`
}

func (f PayeeFields) details() payables.PayeeDetails {
	return payables.PayeeDetails{
		Name:          f.Name,
		Category:      payables.PayeeCategory(f.Category),
		AccountNumber: f.AccountNumber,
		Website:       f.Website,
		Phone:         f.Phone,
		Notes:         f.Notes,
	}
}

// CreatePayeeCommand creates a payee
type CreatePayeeCommand struct {
	PayeeFields
}

// UpdatePayeeCommand replaces the assignable fields of a payee.
// When Version is set the update only applies to that version.
type UpdatePayeeCommand struct {
	ID      *uuid.UUID `json:"id,omitempty"`
	Version *int       `json:"version,omitempty" validate:"omitempty,gte=1"`
	PayeeFields
}

// PayeeListQuery filters the payee listing
type PayeeListQuery struct {
	Search   string `form:"search" validate:"omitempty,max=200"`
	Category string `form:"category" validate:"omitempty,payee_category"`
	Page     int    `form:"page" validate:"omitempty,gte=1"`
	PageSize int    `form:"page_size" validate:"omitempty,gte=1,lte=500"`
}

func (q PayeeListQuery) filter() payables.PayeeFilter {
	return payables.PayeeFilter{
		Search:   strings.TrimSpace(q.Search),
		Category: payables.PayeeCategory(q.Category),
		Page:     shared.Page{Number: q.Page, Size: q.PageSize}.Normalize(),
	}
}

// BillFields are the client-assignable bill fields
type BillFields struct {
	PayeeID   *uuid.UUID       `json:"payee_id"`
	Name      string           `json:"name" validate:"required,max=200"`
	Amount    *decimal.Decimal `json:"amount" validate:"required,decimal_gte=0,decimal_lte=9999999999999999.99,decimal_places=2" swaggertype:"string" example:"42.50"`
	Currency  string           `json:"currency" validate:"omitempty,iso4217"`
	DueDate   string           `json:"due_date" validate:"required,date" example:"2024-03-15"`
	Frequency string           `json:"frequency" validate:"omitempty,billing_frequency"`
	Status    string           `json:"status" validate:"omitempty,bill_status"`
	AutoPay   bool             `json:"auto_pay"`
	Notes     *string          `json:"notes" validate:"omitempty,max=2000"`
}

func (f BillFields) details() (payables.BillDetails, error) {
	due, err := validation.ParseDate(f.DueDate)
	if err != nil {
		return payables.BillDetails{}, shared.NewFieldError("due_date", "must be a date in YYYY-MM-DD format")
	}
	return payables.BillDetails{
		PayeeID:   f.PayeeID,
		Name:      f.Name,
		Amount:    *f.Amount,
		Currency:  f.Currency,
		DueDate:   due,
		Frequency: payables.BillingFrequency(f.Frequency),
		Status:    payables.BillStatus(f.Status),
		AutoPay:   f.AutoPay,
		Notes:     f.Notes,
	}, nil
}

// CreateBillCommand creates a bill
type CreateBillCommand struct {
	BillFields
}

// UpdateBillCommand replaces the assignable fields of a bill
type UpdateBillCommand struct {
	ID      *uuid.UUID `json:"id,omitempty"`
	Version *int       `json:"version,omitempty" validate:"omitempty,gte=1"`
	BillFields
}

// BillListQuery filters the bill listing
type BillListQuery struct {
	PayeeID   string `form:"payee_id" validate:"omitempty,uuid"`
	Status    string `form:"status" validate:"omitempty,bill_status"`
	Frequency string `form:"frequency" validate:"omitempty,billing_frequency"`
	DueFrom   string `form:"due_from" validate:"omitempty,date"`
	DueTo     string `form:"due_to" validate:"omitempty,date"`
	Search    string `form:"search" validate:"omitempty,max=200"`
	AutoPay   *bool  `form:"auto_pay"`
	Page      int    `form:"page" validate:"omitempty,gte=1"`
	PageSize  int    `form:"page_size" validate:"omitempty,gte=1,lte=500"`
}

func (q BillListQuery) filter() payables.BillFilter {
	return payables.BillFilter{
		PayeeID:   optionalUUID(q.PayeeID),
		Status:    payables.BillStatus(q.Status),
		Frequency: payables.BillingFrequency(q.Frequency),
		DueFrom:   optionalDate(q.DueFrom),
		DueTo:     optionalDate(q.DueTo),
		Search:    strings.TrimSpace(q.Search),
		AutoPay:   q.AutoPay,
		Page:      shared.Page{Number: q.Page, Size: q.PageSize}.Normalize(),
	}
}

// PaymentFields are the client-assignable payment fields
type PaymentFields struct {
	BillID             uuid.UUID        `json:"bill_id" validate:"required"`
	Amount             *decimal.Decimal `json:"amount" validate:"required,decimal_gt=0,decimal_lte=9999999999999999.99,decimal_places=2" swaggertype:"string" example:"42.50"`
	PaymentDate        string           `json:"payment_date" validate:"required,date" example:"2024-03-14"`
	PaymentMethod      *string          `json:"payment_method" validate:"omitempty,max=50"`
	ConfirmationNumber *string          `json:"confirmation_number" validate:"omitempty,max=100"`
	Notes              *string          `json:"notes" validate:"omitempty,max=2000"`
}

func (f PaymentFields) details() (payables.PaymentDetails, error) {
	paid, err := validation.ParseDate(f.PaymentDate)
	if err != nil {
		return payables.PaymentDetails{}, shared.NewFieldError("payment_date", "must be a date in YYYY-MM-DD format")
	}
	return payables.PaymentDetails{
		BillID:             f.BillID,
		Amount:             *f.Amount,
		PaymentDate:        paid,
		PaymentMethod:      f.PaymentMethod,
		ConfirmationNumber: f.ConfirmationNumber,
		Notes:              f.Notes,
	}, nil
}

// CreatePaymentCommand records a payment against a bill
type CreatePaymentCommand struct {
	PaymentFields
}

// UpdatePaymentCommand replaces the assignable fields of a payment
type UpdatePaymentCommand struct {
	ID      *uuid.UUID `json:"id,omitempty"`
	Version *int       `json:"version,omitempty" validate:"omitempty,gte=1"`
	PaymentFields
}

// PaymentListQuery filters the payment listing
type PaymentListQuery struct {
	BillID   string `form:"bill_id" validate:"omitempty,uuid"`
	Method   string `form:"method" validate:"omitempty,max=50"`
	PaidFrom string `form:"paid_from" validate:"omitempty,date"`
	PaidTo   string `form:"paid_to" validate:"omitempty,date"`
	Page     int    `form:"page" validate:"omitempty,gte=1"`
	PageSize int    `form:"page_size" validate:"omitempty,gte=1,lte=500"`
}

func (q PaymentListQuery) filter() payables.PaymentFilter {
	return payables.PaymentFilter{
		BillID:   optionalUUID(q.BillID),
		Method:   strings.TrimSpace(q.Method),
		PaidFrom: optionalDate(q.PaidFrom),
		PaidTo:   optionalDate(q.PaidTo),
		Page:     shared.Page{Number: q.Page, Size: q.PageSize}.Normalize(),
	}
}

// ReceiptUploadCommand requests a presigned URL for a receipt upload
type ReceiptUploadCommand struct {
	FileName    string `json:"file_name" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required,oneof=application/pdf image/jpeg image/png image/webp image/heic"`
}

func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func optionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := validation.ParseDate(s)
	if err != nil {
		return nil
	}
	return &t
}
