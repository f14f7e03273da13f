package payables

import (
	"github.com/billpay/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypePayee   = "Payee"
	AggregateTypeBill    = "Bill"
	AggregateTypePayment = "Payment"
)

// Event type constants
const (
	EventTypePayeeCreated    = "PayeeCreated"
	EventTypePayeeDeleted    = "PayeeDeleted"
	EventTypeBillCreated     = "BillCreated"
	EventTypeBillUpdated     = "BillUpdated"
	EventTypeBillPaid        = "BillPaid"
	EventTypeBillOverdue     = "BillOverdue"
	EventTypeBillDeleted     = "BillDeleted"
	EventTypePaymentRecorded = "PaymentRecorded"
	EventTypePaymentDeleted  = "PaymentDeleted"
)

// PayeeCreatedEvent is published when a payee is created
type PayeeCreatedEvent struct {
	shared.BaseDomainEvent
	PayeeID  uuid.UUID     `json:"payee_id"`
	Name     string        `json:"name"`
	Category PayeeCategory `json:"category"`
}

// NewPayeeCreatedEvent creates a new PayeeCreatedEvent
func NewPayeeCreatedEvent(p *Payee) *PayeeCreatedEvent {
	return &PayeeCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayeeCreated, AggregateTypePayee, p.ID, p.TenantID),
		PayeeID:         p.ID,
		Name:            p.Name,
		Category:        p.Category,
	}
}

// PayeeDeletedEvent is published when a payee is deleted. Its bills keep
// existing without a payee.
type PayeeDeletedEvent struct {
	shared.BaseDomainEvent
	PayeeID uuid.UUID `json:"payee_id"`
	Name    string    `json:"name"`
}

// NewPayeeDeletedEvent creates a new PayeeDeletedEvent
func NewPayeeDeletedEvent(p *Payee) *PayeeDeletedEvent {
	return &PayeeDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayeeDeleted, AggregateTypePayee, p.ID, p.TenantID),
		PayeeID:         p.ID,
		Name:            p.Name,
	}
}

// BillCreatedEvent is published when a bill is created
type BillCreatedEvent struct {
	shared.BaseDomainEvent
	BillID    uuid.UUID        `json:"bill_id"`
	PayeeID   *uuid.UUID       `json:"payee_id,omitempty"`
	Name      string           `json:"name"`
	Amount    decimal.Decimal  `json:"amount"`
	Currency  string           `json:"currency"`
	DueDate   string           `json:"due_date"`
	Frequency BillingFrequency `json:"frequency"`
	Status    BillStatus       `json:"status"`
}

// NewBillCreatedEvent creates a new BillCreatedEvent
func NewBillCreatedEvent(b *Bill) *BillCreatedEvent {
	return &BillCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillCreated, AggregateTypeBill, b.ID, b.TenantID),
		BillID:          b.ID,
		PayeeID:         b.PayeeID,
		Name:            b.Name,
		Amount:          b.Amount,
		Currency:        b.Currency,
		DueDate:         b.DueDate.Format(DateLayout),
		Frequency:       b.Frequency,
		Status:          b.Status,
	}
}

// BillUpdatedEvent is published when a bill's fields are replaced
type BillUpdatedEvent struct {
	shared.BaseDomainEvent
	BillID         uuid.UUID       `json:"bill_id"`
	Amount         decimal.Decimal `json:"amount"`
	DueDate        string          `json:"due_date"`
	Status         BillStatus      `json:"status"`
	PreviousStatus BillStatus      `json:"previous_status"`
	Version        int             `json:"version"`
}

// NewBillUpdatedEvent creates a new BillUpdatedEvent
func NewBillUpdatedEvent(b *Bill, previous BillStatus) *BillUpdatedEvent {
	return &BillUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillUpdated, AggregateTypeBill, b.ID, b.TenantID),
		BillID:          b.ID,
		Amount:          b.Amount,
		DueDate:         b.DueDate.Format(DateLayout),
		Status:          b.Status,
		PreviousStatus:  previous,
		Version:         b.Version,
	}
}

// BillPaidEvent is published when a bill transitions into Paid
type BillPaidEvent struct {
	shared.BaseDomainEvent
	BillID   uuid.UUID       `json:"bill_id"`
	PayeeID  *uuid.UUID      `json:"payee_id,omitempty"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewBillPaidEvent creates a new BillPaidEvent
func NewBillPaidEvent(b *Bill) *BillPaidEvent {
	return &BillPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillPaid, AggregateTypeBill, b.ID, b.TenantID),
		BillID:          b.ID,
		PayeeID:         b.PayeeID,
		Name:            b.Name,
		Amount:          b.Amount,
		Currency:        b.Currency,
	}
}

// BillOverdueEvent is published when the overdue sweep flags a bill
type BillOverdueEvent struct {
	shared.BaseDomainEvent
	BillID  uuid.UUID       `json:"bill_id"`
	Name    string          `json:"name"`
	Amount  decimal.Decimal `json:"amount"`
	DueDate string          `json:"due_date"`
}

// NewBillOverdueEvent creates a new BillOverdueEvent
func NewBillOverdueEvent(b *Bill) *BillOverdueEvent {
	return &BillOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillOverdue, AggregateTypeBill, b.ID, b.TenantID),
		BillID:          b.ID,
		Name:            b.Name,
		Amount:          b.Amount,
		DueDate:         b.DueDate.Format(DateLayout),
	}
}

// BillDeletedEvent is published when a bill and its payments are deleted
type BillDeletedEvent struct {
	shared.BaseDomainEvent
	BillID uuid.UUID `json:"bill_id"`
	Name   string    `json:"name"`
}

// NewBillDeletedEvent creates a new BillDeletedEvent
func NewBillDeletedEvent(b *Bill) *BillDeletedEvent {
	return &BillDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillDeleted, AggregateTypeBill, b.ID, b.TenantID),
		BillID:          b.ID,
		Name:            b.Name,
	}
}

// PaymentRecordedEvent is published when a payment is created
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID   uuid.UUID       `json:"payment_id"`
	BillID      uuid.UUID       `json:"bill_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
	Method      *string         `json:"payment_method,omitempty"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypePayment, p.ID, p.TenantID),
		PaymentID:       p.ID,
		BillID:          p.BillID,
		Amount:          p.Amount,
		PaymentDate:     p.PaymentDate.Format(DateLayout),
		Method:          p.PaymentMethod,
	}
}

// PaymentDeletedEvent is published when a payment is deleted
type PaymentDeletedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID `json:"payment_id"`
	BillID    uuid.UUID `json:"bill_id"`
}

// NewPaymentDeletedEvent creates a new PaymentDeletedEvent
func NewPaymentDeletedEvent(p *Payment) *PaymentDeletedEvent {
	return &PaymentDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentDeleted, AggregateTypePayment, p.ID, p.TenantID),
		PaymentID:       p.ID,
		BillID:          p.BillID,
	}
}
