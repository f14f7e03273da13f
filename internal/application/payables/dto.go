package payables

import (
	"time"

	"github.com/billpay/backend/internal/domain/payables"
	"github.com/google/uuid"
)

// PayeeResponse is the wire form of a payee
type PayeeResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	AccountNumber *string   `json:"account_number"`
	Website       *string   `json:"website"`
	Phone         *string   `json:"phone"`
	Notes         *string   `json:"notes"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BillResponse is the wire form of a bill. Amounts are strings with two decimals.
type BillResponse struct {
	ID          uuid.UUID  `json:"id"`
	PayeeID     *uuid.UUID `json:"payee_id"`
	PayeeName   *string    `json:"payee_name"`
	Name        string     `json:"name"`
	Amount      string     `json:"amount" example:"42.50"`
	Currency    string     `json:"currency"`
	DueDate     string     `json:"due_date" example:"2024-03-15"`
	NextDueDate *string    `json:"next_due_date" example:"2024-04-15"`
	Frequency   string     `json:"frequency"`
	Status      string     `json:"status"`
	AutoPay     bool       `json:"auto_pay"`
	Notes       *string    `json:"notes"`
	PaidAt      *time.Time `json:"paid_at"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PaymentResponse is the wire form of a payment
type PaymentResponse struct {
	ID                 uuid.UUID `json:"id"`
	BillID             uuid.UUID `json:"bill_id"`
	Amount             string    `json:"amount" example:"42.50"`
	PaymentDate        string    `json:"payment_date" example:"2024-03-14"`
	PaymentMethod      *string   `json:"payment_method"`
	ConfirmationNumber *string   `json:"confirmation_number"`
	Notes              *string   `json:"notes"`
	HasReceipt         bool      `json:"has_receipt"`
	Version            int       `json:"version"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ReceiptURLResponse carries a presigned receipt URL
type ReceiptURLResponse struct {
	PaymentID uuid.UUID `json:"payment_id"`
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ToPayeeResponse maps a payee
func ToPayeeResponse(p *payables.Payee) PayeeResponse {
	return PayeeResponse{
		ID:            p.ID,
		Name:          p.Name,
		Category:      string(p.Category),
		AccountNumber: p.AccountNumber,
		Website:       p.Website,
		Phone:         p.Phone,
		Notes:         p.Notes,
		Version:       p.Version,
		CreatedAt:     p.CreatedAt.UTC(),
		UpdatedAt:     p.UpdatedAt.UTC(),
	}
}

// ToBillResponse maps a bill. The payee name is read from the loaded payee and is
// nil for bills without one.
func ToBillResponse(b *payables.Bill) BillResponse {
	resp := BillResponse{
		ID:        b.ID,
		PayeeID:   b.PayeeID,
		PayeeName: b.PayeeName(),
		Name:      b.Name,
		Amount:    b.Amount.StringFixed(2),
		Currency:  b.Currency,
		DueDate:   formatDate(b.DueDate),
		Frequency: string(b.Frequency),
		Status:    string(b.Status),
		AutoPay:   b.AutoPay,
		Notes:     b.Notes,
		PaidAt:    utcPtr(b.PaidAt),
		Version:   b.Version,
		CreatedAt: b.CreatedAt.UTC(),
		UpdatedAt: b.UpdatedAt.UTC(),
	}
	if next := b.NextDueDate(); next != nil {
		s := formatDate(*next)
		resp.NextDueDate = &s
	}
	return resp
}

// ToPaymentResponse maps a payment
func ToPaymentResponse(p *payables.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                 p.ID,
		BillID:             p.BillID,
		Amount:             p.Amount.StringFixed(2),
		PaymentDate:        formatDate(p.PaymentDate),
		PaymentMethod:      p.PaymentMethod,
		ConfirmationNumber: p.ConfirmationNumber,
		Notes:              p.Notes,
		HasReceipt:         p.ReceiptKey != nil,
		Version:            p.Version,
		CreatedAt:          p.CreatedAt.UTC(),
		UpdatedAt:          p.UpdatedAt.UTC(),
	}
}

func toResponses[E any, R any](items []E, mapper func(*E) R) []R {
	out := make([]R, len(items))
	for i := range items {
		out[i] = mapper(&items[i])
	}
	return out
}

func formatDate(t time.Time) string {
	return t.UTC().Format(payables.DateLayout)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
