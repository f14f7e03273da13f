// Package validation checks command values before any persistence work.
// It wraps go-playground/validator with the tags the payables commands use
// and reports failures as shared.ValidationErrors.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/billpay/backend/internal/domain/payables"
	"github.com/billpay/backend/internal/domain/shared"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Validator validates commands
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the payables tags registered
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	// Decimals are validated through their canonical string form
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	mustRegister(v, "decimal_gte", decimalCompare(func(d, bound decimal.Decimal) bool { return d.GreaterThanOrEqual(bound) }))
	mustRegister(v, "decimal_gt", decimalCompare(func(d, bound decimal.Decimal) bool { return d.GreaterThan(bound) }))
	mustRegister(v, "decimal_lte", decimalCompare(func(d, bound decimal.Decimal) bool { return d.LessThanOrEqual(bound) }))
	mustRegister(v, "decimal_places", decimalPlaces)
	mustRegister(v, "iso4217", isISO4217)
	mustRegister(v, "date", isDate)
	mustRegister(v, "payee_category", func(fl validator.FieldLevel) bool {
		return payables.PayeeCategory(fl.Field().String()).IsValid()
	})
	mustRegister(v, "bill_status", func(fl validator.FieldLevel) bool {
		return payables.BillStatus(fl.Field().String()).IsValid()
	})
	mustRegister(v, "billing_frequency", func(fl validator.FieldLevel) bool {
		return payables.BillingFrequency(fl.Field().String()).IsValid()
	})

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// Struct validates s and returns shared.ValidationErrors listing every failing field
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := make(shared.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, shared.FieldError{Field: fe.Field(), Message: Message(fe)})
	}
	return out
}

// Message returns the human-readable reason for a failed tag
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "http_url", "url":
		return "must be an http or https URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "decimal_gte":
		return "must be greater than or equal to " + fe.Param()
	case "decimal_gt":
		return "must be greater than " + fe.Param()
	case "decimal_lte":
		return "must be less than or equal to " + fe.Param()
	case "decimal_places":
		return "must have at most " + fe.Param() + " decimal places"
	case "iso4217":
		return "must be a 3-letter ISO 4217 code"
	case "date":
		return "must be a date in YYYY-MM-DD format"
	case "payee_category":
		return "must be one of " + joinValues(payables.PayeeCategories())
	case "bill_status":
		return "must be one of " + joinValues(payables.BillStatuses())
	case "billing_frequency":
		return "must be one of " + joinValues(payables.BillingFrequencies())
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	default:
		return "is invalid"
	}
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func decimalCompare(ok func(d, bound decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		bound, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return ok(d, bound)
	}
}

func decimalPlaces(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	places, err := decimal.NewFromString(fl.Param())
	if err != nil {
		return false
	}
	return d.Equal(d.Round(int32(places.IntPart())))
}

func isISO4217(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) != 3 {
		return false
	}
	_, err := currency.ParseISO(code)
	return err == nil
}

func isDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(payables.DateLayout, fl.Field().String())
	return err == nil
}

// ParseDate parses a YYYY-MM-DD value already accepted by the "date" tag
func ParseDate(s string) (time.Time, error) {
	return time.Parse(payables.DateLayout, s)
}
