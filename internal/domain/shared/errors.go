package shared

// ErrorKind classifies domain errors so callers can tell a stale view from a
// bad request or a missing permission without matching on codes.
type ErrorKind string

const (
	KindValidation    ErrorKind = "VALIDATION"
	KindAuthorization ErrorKind = "AUTHORIZATION"
	KindState         ErrorKind = "STATE"
	KindResource      ErrorKind = "RESOURCE"
	KindExternal      ErrorKind = "EXTERNAL"
	KindNotFound      ErrorKind = "NOT_FOUND"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
	// Reason narrows Code when several sentinels share it, e.g. the
	// INVALID_INPUT family.
	Reason  string    `json:"reason,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
// Sentinels can therefore be matched with errors.Is even when the
// returned error carries a more specific message. A target with a
// Reason also requires the reason to match, so ErrInvalidInput matches
// every INVALID_INPUT error while a narrower sentinel only matches itself.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// WithMessage returns a copy of the error with a different message
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message, Kind: e.Kind, Reason: e.Reason}
}

// WithReason returns a copy of the error narrowed to reason
func (e *DomainError) WithReason(reason string) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Kind: e.Kind, Reason: reason}
}

// NewDomainError creates a new domain error of kind STATE
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Kind:    KindState,
	}
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindValidation}
}

// NewAuthorizationError creates an authorization error
func NewAuthorizationError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindAuthorization}
}

// NewResourceError creates a resource error
func NewResourceError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindResource}
}

// NewInvalidInputError creates an INVALID_INPUT error narrowed to reason
func NewInvalidInputError(reason, message string) *DomainError {
	return &DomainError{Code: "INVALID_INPUT", Message: message, Kind: KindValidation, Reason: reason}
}

// NewExternalError creates an external-service error
func NewExternalError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindExternal}
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Kind: KindNotFound}
}

// Common domain errors
var (
	ErrNotFound            = NewNotFoundError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewAuthorizationError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewAuthorizationError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientBalance = NewResourceError("INSUFFICIENT_BALANCE", "Insufficient balance available")
)
