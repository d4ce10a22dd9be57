// Package response renders the single JSON envelope every endpoint speaks.
package response

import (
	"net/http"

	"boleto/internal/shared/errs"

	"github.com/gin-gonic/gin"
)

// Envelope wraps every response body. Data carries the payload on
// success, Errors carries the machine-readable error code on failure.
type Envelope struct {
	Status     string      `json:"status"`
	StatusCode int         `json:"status_code"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data,omitempty"`
	Errors     interface{} `json:"errors,omitempty"`
}

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, Envelope{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// Success writes a success envelope with the given payload.
func Success(c *gin.Context, code int, message string, data interface{}) {
	RespondJSON(c, "success", code, message, data, nil)
}

// Error maps a typed error onto the wire envelope. All controllers go
// through this so the error taxonomy has exactly one HTTP mapping.
func Error(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	RespondJSON(c, "error", statusOf(kind), err.Error(), nil, kind.Code())
}

func statusOf(kind errs.Kind) int {
	switch kind {
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindValidation, errs.KindSessionNotActive:
		return http.StatusBadRequest
	case errs.KindUnauthorized:
		return http.StatusUnauthorized
	case errs.KindConsistency:
		// Fatal finalization failure. Distinct from Conflict so clients
		// never treat it as retryable.
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
