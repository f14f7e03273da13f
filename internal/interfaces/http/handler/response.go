package handler

import "github.com/billpay/backend/internal/interfaces/http/dto"

// Envelope documents a successful single-resource response
type Envelope[T any] struct {
	Success bool `json:"success" example:"true"`
	Data    T    `json:"data"`
}

// ListEnvelope documents a list response. Meta is always present.
type ListEnvelope[T any] struct {
	Success bool      `json:"success" example:"true"`
	Data    []T       `json:"data"`
	Meta    *dto.Meta `json:"meta"`
}

// Failure documents an error response
type Failure struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}
