package payables

import (
	"strings"
	"time"

	"github.com/billpay/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a bill is created without a currency
const DefaultCurrency = "USD"

// BillingFrequency is how often a bill recurs
type BillingFrequency string

const (
	FrequencyOneTime      BillingFrequency = "OneTime"
	FrequencyWeekly       BillingFrequency = "Weekly"
	FrequencyBiWeekly     BillingFrequency = "BiWeekly"
	FrequencyMonthly      BillingFrequency = "Monthly"
	FrequencyQuarterly    BillingFrequency = "Quarterly"
	FrequencySemiAnnually BillingFrequency = "SemiAnnually"
	FrequencyAnnually     BillingFrequency = "Annually"
)

// BillingFrequencies lists every valid frequency
func BillingFrequencies() []BillingFrequency {
	return []BillingFrequency{
		FrequencyOneTime,
		FrequencyWeekly,
		FrequencyBiWeekly,
		FrequencyMonthly,
		FrequencyQuarterly,
		FrequencySemiAnnually,
		FrequencyAnnually,
	}
}

// IsValid reports whether f is a known frequency
func (f BillingFrequency) IsValid() bool {
	for _, known := range BillingFrequencies() {
		if f == known {
			return true
		}
	}
	return false
}

// Next returns the due date one period after from.
// Month-based periods clamp to the last day of the target month (Jan 31 -> Feb 28).
func (f BillingFrequency) Next(from time.Time) (time.Time, bool) {
	switch f {
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7), true
	case FrequencyBiWeekly:
		return from.AddDate(0, 0, 14), true
	case FrequencyMonthly:
		return addMonths(from, 1), true
	case FrequencyQuarterly:
		return addMonths(from, 3), true
	case FrequencySemiAnnually:
		return addMonths(from, 6), true
	case FrequencyAnnually:
		return addMonths(from, 12), true
	default:
		return time.Time{}, false
	}
}

func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// BillStatus is the payment state of a bill
type BillStatus string

const (
	BillStatusPending   BillStatus = "Pending"
	BillStatusScheduled BillStatus = "Scheduled"
	BillStatusPaid      BillStatus = "Paid"
	BillStatusOverdue   BillStatus = "Overdue"
	BillStatusCancelled BillStatus = "Cancelled"
)

// BillStatuses lists every valid status
func BillStatuses() []BillStatus {
	return []BillStatus{
		BillStatusPending,
		BillStatusScheduled,
		BillStatusPaid,
		BillStatusOverdue,
		BillStatusCancelled,
	}
}

// IsValid reports whether s is a known status
func (s BillStatus) IsValid() bool {
	for _, known := range BillStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// IsOpen reports whether a bill in this status still awaits payment
func (s BillStatus) IsOpen() bool {
	return s == BillStatusPending || s == BillStatusScheduled
}

// Bill is an amount owed, optionally to a payee, due on a date
type Bill struct {
	shared.TenantAggregateRoot
	PayeeID   *uuid.UUID       `gorm:"type:uuid;index"`
	Payee     *Payee           `gorm:"foreignKey:PayeeID;constraint:OnDelete:SET NULL"`
	Name      string           `gorm:"type:varchar(200);not null"`
	Amount    decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	Currency  string           `gorm:"type:varchar(3);not null;default:'USD'"`
	DueDate   time.Time        `gorm:"type:date;not null;index"`
	Frequency BillingFrequency `gorm:"type:varchar(20);not null;default:'Monthly'"`
	Status    BillStatus       `gorm:"type:varchar(20);not null;default:'Pending';index"`
	AutoPay   bool             `gorm:"not null;default:false"`
	Notes     *string          `gorm:"type:text"`
	PaidAt    *time.Time
}

// TableName returns the table name for GORM
func (Bill) TableName() string {
	return "bills"
}

// BillMutableFields are the columns an update may assign
var BillMutableFields = []string{
	"payee_id", "name", "amount", "currency", "due_date", "frequency", "status", "auto_pay", "notes", "paid_at",
}

// BillDetails carries the user-supplied fields of a bill
type BillDetails struct {
	PayeeID   *uuid.UUID
	Name      string
	Amount    decimal.Decimal
	Currency  string
	DueDate   time.Time
	Frequency BillingFrequency
	Status    BillStatus
	AutoPay   bool
	Notes     *string
}

func (d BillDetails) normalize() BillDetails {
	d.Name = strings.TrimSpace(d.Name)
	d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))
	if d.Currency == "" {
		d.Currency = DefaultCurrency
	}
	if d.Frequency == "" {
		d.Frequency = FrequencyMonthly
	}
	if d.Status == "" {
		d.Status = BillStatusPending
	}
	if d.PayeeID != nil && *d.PayeeID == uuid.Nil {
		d.PayeeID = nil
	}
	d.DueDate = NormalizeDate(d.DueDate)
	d.Notes = trimmed(d.Notes)
	return d
}

func (d BillDetails) validate() error {
	var c fieldChecker
	c.requiredText("name", d.Name, MaxNameLength)
	c.money("amount", d.Amount, true)
	if len(d.Currency) != 3 {
		c.add("currency", "must be a 3-letter ISO 4217 code")
	}
	c.date("due_date", d.DueDate)
	if !d.Frequency.IsValid() {
		c.add("frequency", "must be one of OneTime, Weekly, BiWeekly, Monthly, Quarterly, SemiAnnually, Annually")
	}
	if !d.Status.IsValid() {
		c.add("status", "must be one of Pending, Scheduled, Paid, Overdue, Cancelled")
	}
	c.optionalText("notes", d.Notes, MaxNotesLength)
	return c.err()
}

// NewBill creates a bill owned by tenantID. A bill created as Paid raises
// BillPaid after BillCreated.
func NewBill(tenantID uuid.UUID, details BillDetails) (*Bill, error) {
	details = details.normalize()
	if err := details.validate(); err != nil {
		return nil, err
	}

	bill := &Bill{TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID)}
	bill.assign(details)
	bill.AddDomainEvent(NewBillCreatedEvent(bill))
	if bill.Status == BillStatusPaid {
		paidAt := bill.CreatedAt
		bill.PaidAt = &paidAt
		bill.AddDomainEvent(NewBillPaidEvent(bill))
	}
	return bill, nil
}

// Update replaces every mutable field. A transition into Paid stamps PaidAt and
// raises BillPaid; leaving Paid clears PaidAt.
func (b *Bill) Update(details BillDetails) error {
	details = details.normalize()
	if err := details.validate(); err != nil {
		return err
	}

	previous := b.Status
	b.assign(details)
	b.Touch()
	b.IncrementVersion()

	switch {
	case previous != BillStatusPaid && b.Status == BillStatusPaid:
		paidAt := b.UpdatedAt
		b.PaidAt = &paidAt
		b.AddDomainEvent(NewBillPaidEvent(b))
	case b.Status != BillStatusPaid:
		b.PaidAt = nil
	}
	b.AddDomainEvent(NewBillUpdatedEvent(b, previous))
	return nil
}

// MarkOverdue moves an open bill whose due date is before asOf into Overdue.
// It returns false when the bill is not eligible.
func (b *Bill) MarkOverdue(asOf time.Time) bool {
	if !b.Status.IsOpen() || !b.DueDate.Before(NormalizeDate(asOf)) {
		return false
	}
	b.Status = BillStatusOverdue
	b.Touch()
	b.IncrementVersion()
	b.AddDomainEvent(NewBillOverdueEvent(b))
	return true
}

// MarkDeleted records the deletion event; the row itself is removed by the persistence context
func (b *Bill) MarkDeleted() {
	b.AddDomainEvent(NewBillDeletedEvent(b))
}

// NextDueDate returns the following occurrence for recurring bills
func (b *Bill) NextDueDate() *time.Time {
	next, ok := b.Frequency.Next(b.DueDate)
	if !ok {
		return nil
	}
	return &next
}

// PayeeName returns the loaded payee's name, or nil when the bill has no payee
func (b *Bill) PayeeName() *string {
	if b.PayeeID == nil || b.Payee == nil {
		return nil
	}
	name := b.Payee.Name
	return &name
}

func (b *Bill) assign(d BillDetails) {
	if !uuidPtrEqual(b.PayeeID, d.PayeeID) {
		b.Payee = nil
	}
	b.PayeeID = d.PayeeID
	b.Name = d.Name
	b.Amount = d.Amount.Round(2)
	b.Currency = d.Currency
	b.DueDate = d.DueDate
	b.Frequency = d.Frequency
	b.Status = d.Status
	b.AutoPay = d.AutoPay
	b.Notes = d.Notes
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
