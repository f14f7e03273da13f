package payables

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNewPayee(t *testing.T) {
	tenantID := uuid.New()

	t.Run("creates payee and trims input", func(t *testing.T) {
		payee, err := NewPayee(tenantID, PayeeDetails{
			Name:    "  City Power  ",
			Website: strPtr("https://citypower.example.com"),
			Phone:   strPtr("   "),
		})
		require.NoError(t, err)

		assert.Equal(t, "City Power", payee.Name)
		assert.Equal(t, PayeeCategoryOther, payee.Category)
		assert.Nil(t, payee.Phone)
		require.NotNil(t, payee.Website)
		require.Len(t, payee.GetDomainEvents(), 1)
		assert.Equal(t, EventTypePayeeCreated, payee.GetDomainEvents()[0].EventType())
	})

	t.Run("rejects bad website and category", func(t *testing.T) {
		_, err := NewPayee(tenantID, PayeeDetails{
			Name:     "City Power",
			Category: PayeeCategory("Groceries"),
			Website:  strPtr("ftp://citypower"),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "category")
		assert.Contains(t, err.Error(), "website")
	})

	t.Run("rejects long name", func(t *testing.T) {
		_, err := NewPayee(tenantID, PayeeDetails{Name: strings.Repeat("x", MaxNameLength+1)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at most 200 characters")
	})
}

func TestPayee_Update(t *testing.T) {
	payee, err := NewPayee(uuid.New(), PayeeDetails{Name: "Water Works", Category: PayeeCategoryUtilities})
	require.NoError(t, err)

	require.NoError(t, payee.Update(PayeeDetails{Name: "Water Works Inc", Category: PayeeCategoryUtilities, Notes: strPtr("autopay")}))
	assert.Equal(t, "Water Works Inc", payee.Name)
	assert.Equal(t, 2, payee.Version)
	require.NotNil(t, payee.Notes)

	payee.ClearDomainEvents()
	payee.MarkDeleted()
	require.Len(t, payee.GetDomainEvents(), 1)
	assert.Equal(t, EventTypePayeeDeleted, payee.GetDomainEvents()[0].EventType())
}
