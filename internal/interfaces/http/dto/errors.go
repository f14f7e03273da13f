package dto

import (
	"net/http"
	"strings"
)

// Error codes returned in the response envelope.
// Format: ERR_<CATEGORY>_<DESCRIPTION>
const (
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation  = "ERR_VALIDATION"
	ErrCodeBadRequest  = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	ErrCodeInvalidID   = "ERR_INVALID_ID"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeInvalidInput        = "ERR_INVALID_INPUT"

	ErrCodeFeatureDisabled = "ERR_FEATURE_DISABLED"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodeBodyTooLarge    = "ERR_BODY_TOO_LARGE"
)

// StatusOf returns the HTTP status for an envelope code. Unknown codes are 500.
func StatusOf(code string) int {
	switch code {
	case ErrCodeValidation, ErrCodeBadRequest, ErrCodeInvalidJSON, ErrCodeInvalidID, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeUnauthorized, ErrCodeTokenInvalid:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeAlreadyExists, ErrCodeConcurrencyConflict:
		return http.StatusConflict
	case ErrCodeInvalidState:
		return http.StatusUnprocessableEntity
	case ErrCodeBodyTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeFeatureDisabled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// EnvelopeCode converts a domain error code such as NOT_FOUND to its
// envelope form. Envelope codes and unknown codes pass through.
func EnvelopeCode(domain string) string {
	switch domain {
	case "VALIDATION_ERROR":
		return ErrCodeValidation
	case "RECEIPTS_DISABLED":
		return ErrCodeFeatureDisabled
	}
	if strings.HasPrefix(domain, "ERR_") {
		return domain
	}
	if code := "ERR_" + domain; StatusOf(code) != http.StatusInternalServerError {
		return code
	}
	return domain
}
