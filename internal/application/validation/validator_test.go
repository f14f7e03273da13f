package validation

import (
	"testing"

	"github.com/billpay/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name      string           `json:"name" validate:"required,max=5"`
	Amount    *decimal.Decimal `json:"amount" validate:"required,decimal_gte=0,decimal_lte=9999999999999999.99,decimal_places=2"`
	Price     *decimal.Decimal `json:"price" validate:"omitempty,decimal_gt=0"`
	Currency  string           `json:"currency" validate:"omitempty,iso4217"`
	DueDate   string           `json:"due_date" validate:"required,date"`
	Category  string           `json:"category" validate:"omitempty,payee_category"`
	Status    string           `json:"status" validate:"omitempty,bill_status"`
	Frequency string           `json:"frequency" validate:"omitempty,billing_frequency"`
	Website   *string          `json:"website" validate:"omitempty,http_url"`
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func fields(t *testing.T, err error) map[string]string {
	t.Helper()
	verrs, ok := shared.AsValidationErrors(err)
	require.True(t, ok, "expected ValidationErrors, got %v", err)
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field] = fe.Message
	}
	return out
}

func TestValidator_Valid(t *testing.T) {
	site := "https://power.example.com"
	err := New().Struct(sample{
		Name:      "Power",
		Amount:    dec("42.50"),
		Price:     dec("0.01"),
		Currency:  "EUR",
		DueDate:   "2024-03-15",
		Category:  "Utilities",
		Status:    "Paid",
		Frequency: "BiWeekly",
		Website:   &site,
	})
	assert.NoError(t, err)
}

func TestValidator_ReportsEveryField(t *testing.T) {
	site := "ftp://nope"
	err := New().Struct(sample{
		Name:      "Too long name",
		Amount:    dec("-1"),
		Price:     dec("0"),
		Currency:  "XXY",
		DueDate:   "15/03/2024",
		Category:  "Food",
		Status:    "Done",
		Frequency: "Daily",
		Website:   &site,
	})

	got := fields(t, err)
	assert.Equal(t, "must be at most 5 characters", got["name"])
	assert.Equal(t, "must be greater than or equal to 0", got["amount"])
	assert.Equal(t, "must be greater than 0", got["price"])
	assert.Equal(t, "must be a 3-letter ISO 4217 code", got["currency"])
	assert.Equal(t, "must be a date in YYYY-MM-DD format", got["due_date"])
	assert.Contains(t, got["category"], "Utilities")
	assert.Contains(t, got["status"], "Cancelled")
	assert.Contains(t, got["frequency"], "SemiAnnually")
	assert.Equal(t, "must be an http or https URL", got["website"])
}

func TestValidator_Required(t *testing.T) {
	got := fields(t, New().Struct(sample{}))
	assert.Equal(t, "is required", got["name"])
	assert.Equal(t, "is required", got["amount"])
	assert.Equal(t, "is required", got["due_date"])
	assert.NotContains(t, got, "price")
}

func TestValidator_DecimalPlaces(t *testing.T) {
	got := fields(t, New().Struct(sample{Name: "a", Amount: dec("1.005"), DueDate: "2024-01-01"}))
	assert.Equal(t, "must have at most 2 decimal places", got["amount"])
}

func TestValidator_DecimalUpperBound(t *testing.T) {
	got := fields(t, New().Struct(sample{Name: "a", Amount: dec("1e20"), DueDate: "2024-01-01"}))
	assert.Equal(t, "must be less than or equal to 9999999999999999.99", got["amount"])

	assert.NoError(t, New().Struct(sample{Name: "a", Amount: dec("9999999999999999.99"), DueDate: "2024-01-01"}))
}
