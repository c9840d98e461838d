package dto

import (
	"net/http"

	"github.com/supplytrace/backend/internal/domain/shared"
)

// Transport-level error codes. Domain errors keep their own codes.
const (
	ErrCodeInternal     = "ERR_INTERNAL"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeBadSignature = "ERR_BAD_SIGNATURE"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
	ErrCodeUnavailable  = "ERR_UNAVAILABLE"
)

// KindHTTPStatus maps domain error kinds to HTTP status codes
var KindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation:    http.StatusBadRequest,
	shared.KindAuthorization: http.StatusForbidden,
	shared.KindState:         http.StatusConflict,
	shared.KindResource:      http.StatusUnprocessableEntity,
	shared.KindNotFound:      http.StatusNotFound,
	shared.KindExternal:      http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status for a domain error kind.
// Unknown kinds map to 500.
func GetHTTPStatus(kind shared.ErrorKind) int {
	if status, ok := KindHTTPStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}
