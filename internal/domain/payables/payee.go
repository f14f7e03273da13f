package payables

import (
	"strings"

	"github.com/billpay/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PayeeCategory groups payees for filtering and reporting
type PayeeCategory string

const (
	PayeeCategoryUtilities    PayeeCategory = "Utilities"
	PayeeCategoryHousing      PayeeCategory = "Housing"
	PayeeCategoryInsurance    PayeeCategory = "Insurance"
	PayeeCategorySubscription PayeeCategory = "Subscription"
	PayeeCategoryLoan         PayeeCategory = "Loan"
	PayeeCategoryCreditCard   PayeeCategory = "CreditCard"
	PayeeCategoryTax          PayeeCategory = "Tax"
	PayeeCategoryOther        PayeeCategory = "Other"
)

// PayeeCategories lists every valid category
func PayeeCategories() []PayeeCategory {
	return []PayeeCategory{
		PayeeCategoryUtilities,
		PayeeCategoryHousing,
		PayeeCategoryInsurance,
		PayeeCategorySubscription,
		PayeeCategoryLoan,
		PayeeCategoryCreditCard,
		PayeeCategoryTax,
		PayeeCategoryOther,
	}
}

// IsValid reports whether c is a known category
func (c PayeeCategory) IsValid() bool {
	for _, known := range PayeeCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// Payee is someone bills are paid to
type Payee struct {
	shared.TenantAggregateRoot
	Name          string        `gorm:"type:varchar(200);not null"`
	Category      PayeeCategory `gorm:"type:varchar(30);not null;default:'Other'"`
	AccountNumber *string       `gorm:"type:varchar(100)"`
	Website       *string       `gorm:"type:varchar(500)"`
	Phone         *string       `gorm:"type:varchar(50)"`
	Notes         *string       `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Payee) TableName() string {
	return "payees"
}

// PayeeMutableFields are the columns an update may assign
var PayeeMutableFields = []string{"name", "category", "account_number", "website", "phone", "notes"}

// PayeeDetails carries the user-supplied fields of a payee
type PayeeDetails struct {
	Name          string
	Category      PayeeCategory
	AccountNumber *string
	Website       *string
	Phone         *string
	Notes         *string
}

func (d PayeeDetails) normalize() PayeeDetails {
	d.Name = strings.TrimSpace(d.Name)
	if d.Category == "" {
		d.Category = PayeeCategoryOther
	}
	d.AccountNumber = trimmed(d.AccountNumber)
	d.Website = trimmed(d.Website)
	d.Phone = trimmed(d.Phone)
	d.Notes = trimmed(d.Notes)
	return d
}

func (d PayeeDetails) validate() error {
	var c fieldChecker
	c.requiredText("name", d.Name, MaxNameLength)
	if !d.Category.IsValid() {
		c.add("category", "must be one of Utilities, Housing, Insurance, Subscription, Loan, CreditCard, Tax, Other")
	}
	c.optionalText("account_number", d.AccountNumber, MaxAccountNumberLength)
	c.website("website", d.Website)
	c.optionalText("phone", d.Phone, MaxPhoneLength)
	c.optionalText("notes", d.Notes, MaxNotesLength)
	return c.err()
}

// NewPayee creates a payee owned by tenantID
func NewPayee(tenantID uuid.UUID, details PayeeDetails) (*Payee, error) {
	details = details.normalize()
	if err := details.validate(); err != nil {
		return nil, err
	}

	payee := &Payee{TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID)}
	payee.assign(details)
	payee.AddDomainEvent(NewPayeeCreatedEvent(payee))
	return payee, nil
}

// Update replaces every mutable field
func (p *Payee) Update(details PayeeDetails) error {
	details = details.normalize()
	if err := details.validate(); err != nil {
		return err
	}

	p.assign(details)
	p.Touch()
	p.IncrementVersion()
	return nil
}

// MarkDeleted records the deletion event; the row itself is removed by the persistence context
func (p *Payee) MarkDeleted() {
	p.AddDomainEvent(NewPayeeDeletedEvent(p))
}

func (p *Payee) assign(d PayeeDetails) {
	p.Name = d.Name
	p.Category = d.Category
	p.AccountNumber = d.AccountNumber
	p.Website = d.Website
	p.Phone = d.Phone
	p.Notes = d.Notes
}
