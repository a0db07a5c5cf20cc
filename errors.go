package tenantauth

import (
	"errors"
	"net/http"
)

// Error codes returned in the "code" field of JSON error bodies.
const (
	ErrCodeEmptyField          = "empty_field"
	ErrCodeInvalidFormat       = "invalid_format"
	ErrCodeTooShort            = "too_short"
	ErrCodeMissingUppercase    = "missing_uppercase"
	ErrCodeMissingDigit        = "missing_digit"
	ErrCodeEmailTaken          = "email_taken"
	ErrCodeNoPendingCode       = "no_pending_code"
	ErrCodeCodeExpired         = "code_expired"
	ErrCodeCodeMismatch        = "code_mismatch"
	ErrCodeRegistrationExpired = "registration_expired"
	ErrCodeDispatchFailed      = "dispatch_failed"
	ErrCodePersistenceFailed   = "persistence_failed"
	ErrCodeCorruptState        = "corrupt_state"
	ErrCodeInvalidCreds        = "invalid_credentials"
	ErrCodeParse               = "parse_error"
)

// Sentinel errors returned by store implementations.
var (
	ErrNotFound     = errors.New("record not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrCorruptState = errors.New("stored data is corrupt")
	ErrConflict     = errors.New("concurrent update conflict")
)

// ErrorKind classifies an AuthError and decides its HTTP status.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindConflict
	KindState
	KindUpstream
	KindConfiguration
	KindPersistence
	KindUnauthorized
)

// AuthError is the error type returned by the registration core and written
// to clients as {"error": Message, "code": Code}.
type AuthError struct {
	Kind      ErrorKind
	Code      string
	Message   string
	Field     string
	Retryable bool
	Err       error
}

// NewAuthError creates a validation error for the given field.
func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Kind: KindValidation, Code: code, Message: message, Field: field}
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// StatusCode maps the error kind onto the HTTP status used by the handlers.
func (e *AuthError) StatusCode() int {
	switch e.Kind {
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	case KindConfiguration, KindPersistence:
		return http.StatusInternalServerError
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

// AuthErrorHandler lets an application render its own error responses.
// Returning true means the response has been written.
type AuthErrorHandler func(err *AuthError, w http.ResponseWriter, r *http.Request) bool

func errEmailTaken() *AuthError {
	return &AuthError{Kind: KindConflict, Code: ErrCodeEmailTaken, Message: "An account with this email already exists", Field: "email"}
}

func errNoPendingCode() *AuthError {
	return &AuthError{Kind: KindState, Code: ErrCodeNoPendingCode, Message: "No pending verification code for this email", Field: "otp"}
}

func errCodeExpired() *AuthError {
	return &AuthError{Kind: KindState, Code: ErrCodeCodeExpired, Message: "Verification code has expired", Field: "otp"}
}

func errCodeMismatch() *AuthError {
	return &AuthError{Kind: KindState, Code: ErrCodeCodeMismatch, Message: "Invalid verification code", Field: "otp"}
}

func errRegistrationExpired() *AuthError {
	return &AuthError{Kind: KindState, Code: ErrCodeRegistrationExpired, Message: "Registration expired, please sign up again", Field: "email"}
}

func errDispatchFailed(err error) *AuthError {
	return &AuthError{Kind: KindUpstream, Code: ErrCodeDispatchFailed, Message: "Failed to send verification code", Retryable: true, Err: err}
}

func errInvalidCredentials() *AuthError {
	return &AuthError{Kind: KindUnauthorized, Code: ErrCodeInvalidCreds, Message: "Invalid email or password", Field: "password"}
}

// storeError translates a store failure into a persistence or corrupt-state error.
func storeError(err error) *AuthError {
	if errors.Is(err, ErrCorruptState) {
		return &AuthError{Kind: KindPersistence, Code: ErrCodeCorruptState, Message: "Stored registration data is corrupt", Err: err}
	}
	return &AuthError{Kind: KindPersistence, Code: ErrCodePersistenceFailed, Message: "Failed to save registration", Err: err}
}
