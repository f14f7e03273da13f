package payables

import (
	"strings"
	"time"

	"github.com/billpay/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment records money paid against a bill
type Payment struct {
	shared.TenantAggregateRoot
	BillID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	Bill               *Bill           `gorm:"foreignKey:BillID;constraint:OnDelete:CASCADE"`
	Amount             decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PaymentDate        time.Time       `gorm:"type:date;not null;index"`
	PaymentMethod      *string         `gorm:"type:varchar(50)"`
	ConfirmationNumber *string         `gorm:"type:varchar(100)"`
	Notes              *string         `gorm:"type:text"`
	ReceiptKey         *string         `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// PaymentMutableFields are the columns an update may assign
var PaymentMutableFields = []string{"bill_id", "amount", "payment_date", "payment_method", "confirmation_number", "notes"}

// PaymentReceiptFields are the columns touched when a receipt is attached
var PaymentReceiptFields = []string{"receipt_key"}

// PaymentDetails carries the user-supplied fields of a payment
type PaymentDetails struct {
	BillID             uuid.UUID
	Amount             decimal.Decimal
	PaymentDate        time.Time
	PaymentMethod      *string
	ConfirmationNumber *string
	Notes              *string
}

func (d PaymentDetails) normalize() PaymentDetails {
	d.PaymentDate = NormalizeDate(d.PaymentDate)
	d.PaymentMethod = trimmed(d.PaymentMethod)
	d.ConfirmationNumber = trimmed(d.ConfirmationNumber)
	d.Notes = trimmed(d.Notes)
	return d
}

func (d PaymentDetails) validate() error {
	var c fieldChecker
	if d.BillID == uuid.Nil {
		c.add("bill_id", "is required")
	}
	c.money("amount", d.Amount, false)
	c.date("payment_date", d.PaymentDate)
	c.optionalText("payment_method", d.PaymentMethod, MaxMethodLength)
	c.optionalText("confirmation_number", d.ConfirmationNumber, MaxConfirmationLength)
	c.optionalText("notes", d.Notes, MaxNotesLength)
	return c.err()
}

// NewPayment creates a payment owned by tenantID
func NewPayment(tenantID uuid.UUID, details PaymentDetails) (*Payment, error) {
	details = details.normalize()
	if err := details.validate(); err != nil {
		return nil, err
	}

	payment := &Payment{TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID)}
	payment.assign(details)
	payment.AddDomainEvent(NewPaymentRecordedEvent(payment))
	return payment, nil
}

// Update replaces every mutable field
func (p *Payment) Update(details PaymentDetails) error {
	details = details.normalize()
	if err := details.validate(); err != nil {
		return err
	}

	p.assign(details)
	p.Touch()
	p.IncrementVersion()
	return nil
}

// AttachReceipt stores the object key of an uploaded receipt
func (p *Payment) AttachReceipt(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return shared.NewFieldError("receipt_key", "is required")
	}
	p.ReceiptKey = &key
	p.Touch()
	p.IncrementVersion()
	return nil
}

// MarkDeleted records the deletion event; the row itself is removed by the persistence context
func (p *Payment) MarkDeleted() {
	p.AddDomainEvent(NewPaymentDeletedEvent(p))
}

func (p *Payment) assign(d PaymentDetails) {
	p.BillID = d.BillID
	p.Amount = d.Amount.Round(2)
	p.PaymentDate = d.PaymentDate
	p.PaymentMethod = d.PaymentMethod
	p.ConfirmationNumber = d.ConfirmationNumber
	p.Notes = d.Notes
}
