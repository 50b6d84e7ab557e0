package types

import (
	"errors"
	"net/http"

	appErr "github.com/ai-stack-deploy/engine/pkg/errors"
)

// FromAppError converts an internal error into the wire error shape. When
// includeDetails is set (debug builds), the wrapped cause is exposed too.
func FromAppError(err error, includeDetails bool) *APIError {
	if err == nil {
		return nil
	}
	out := &APIError{Code: string(appErr.CodeUnknown), Message: err.Error()}
	var e *appErr.AppError
	if errors.As(err, &e) {
		out.Code = string(e.Code)
		out.Message = e.Message
		if includeDetails && e.Err != nil {
			out.Details = e.Err.Error()
		}
	}
	return out
}

// StatusForError maps internal error codes to HTTP status codes. Billing
// failures are client errors: the common causes (declined card, bad payment
// method) are fixable by the caller.
func StatusForError(err error) int {
	switch appErr.CodeOf(err) {
	case appErr.CodeInvalid, appErr.CodeBilling:
		return http.StatusBadRequest
	case appErr.CodeUnauthorized:
		return http.StatusUnauthorized
	case appErr.CodeForbidden:
		return http.StatusForbidden
	case appErr.CodeNotFound:
		return http.StatusNotFound
	case appErr.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
