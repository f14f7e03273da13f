package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/billpay/backend/internal/domain/shared"
	"github.com/billpay/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimit answers 413 when Content-Length is over maxBytes. Bodies of
// unknown length are wrapped so reading past maxBytes fails, which
// BindingErrors reports as a body field error.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			abortWithError(c, dto.ErrCodeBodyTooLarge, "Request body exceeds maximum allowed size")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// BindingErrors turns a JSON decoding failure into field errors, so a
// malformed body reads like any other validation failure
func BindingErrors(err error) shared.ValidationErrors {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return shared.NewFieldError(field, "must be a "+jsonKind(typeErr.Type.Kind().String()))
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return shared.NewFieldError("body", "is not valid JSON")
	case errors.Is(err, io.EOF):
		return shared.NewFieldError("body", "is required")
	case errors.As(err, &maxErr):
		return shared.NewFieldError("body", "is too large")
	default:
		return shared.NewFieldError("body", err.Error())
	}
}

func jsonKind(goKind string) string {
	switch goKind {
	case "string":
		return "string"
	case "bool":
		return "boolean"
	case "slice", "array":
		return "list"
	case "struct", "map":
		return "object"
	default:
		return "number"
	}
}
