package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"

	"github.com/warikan-app/warikan-api/internal/app/warikan"
	"github.com/warikan-app/warikan-api/internal/platform/logger"
)

const (
	codeValidation     = "VALIDATION_ERROR"
	codeIdemKeyReuse   = "IDEMPOTENCY_KEY_REUSE"
	codeRateLimited    = "RATE_LIMITED"
	codeInternal       = "INTERNAL_ERROR"
	codeRouteNotFound  = "ROUTE_NOT_FOUND"
	codeMethodNotAllow = "METHOD_NOT_ALLOWED"
)

type errorBody struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestID nullable.Nullable[string]         `json:"requestId,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error errorBody `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestID = nullable.NewNullableWithValue(rid)
	}
	writeJSON(w, status, er)
}

// writeAppError maps use case errors to their status. Anything else is a
// store or programming failure and is reported as a generic 500.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *warikan.Error
	if errors.As(err, &ae) {
		writeError(w, r, ae.Status, ae.Code, ae.Message, ae.Details)
		return
	}
	logger.From(r.Context()).Error("request failed", logger.Err(err))
	writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error", nil)
}
