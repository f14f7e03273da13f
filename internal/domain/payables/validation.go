package payables

import (
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/billpay/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Field length limits shared by all aggregates in this context
const (
	MaxNameLength          = 200
	MaxNotesLength         = 2000
	MaxAccountNumberLength = 100
	MaxWebsiteLength       = 500
	MaxPhoneLength         = 50
	MaxMethodLength        = 50
	MaxConfirmationLength  = 100
)

// MaxAmount is the largest value a DECIMAL(18,2) amount column holds
var MaxAmount = decimal.RequireFromString("9999999999999999.99")

// DateLayout is the wire and event format of calendar dates
const DateLayout = "2006-01-02"

// fieldChecker accumulates field errors so one call reports every problem
type fieldChecker struct {
	errs shared.ValidationErrors
}

func (c *fieldChecker) add(field, message string) {
	c.errs = append(c.errs, shared.FieldError{Field: field, Message: message})
}

func (c *fieldChecker) requiredText(field, value string, max int) {
	if strings.TrimSpace(value) == "" {
		c.add(field, "is required")
		return
	}
	c.maxLen(field, value, max)
}

func (c *fieldChecker) maxLen(field, value string, max int) {
	if utf8.RuneCountInString(value) > max {
		c.add(field, "must be at most "+strconv.Itoa(max)+" characters")
	}
}

func (c *fieldChecker) optionalText(field string, value *string, max int) {
	if value != nil {
		c.maxLen(field, *value, max)
	}
}

func (c *fieldChecker) money(field string, amount decimal.Decimal, allowZero bool) {
	switch {
	case amount.IsNegative():
		c.add(field, "must not be negative")
	case !allowZero && amount.IsZero():
		c.add(field, "must be greater than zero")
	case amount.GreaterThan(MaxAmount):
		c.add(field, "must be less than or equal to "+MaxAmount.String())
	case !amount.Equal(amount.Round(2)):
		c.add(field, "must have at most 2 decimal places")
	}
}

func (c *fieldChecker) date(field string, value time.Time) {
	if value.IsZero() {
		c.add(field, "is required")
	}
}

func (c *fieldChecker) website(field string, value *string) {
	if value == nil || *value == "" {
		return
	}
	c.maxLen(field, *value, MaxWebsiteLength)
	u, err := url.Parse(*value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.add(field, "must be an http or https URL")
	}
}

func (c *fieldChecker) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return c.errs
}

// NormalizeDate drops the clock part and pins the date to UTC
func NormalizeDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// trimmed returns nil for nil or blank strings
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
