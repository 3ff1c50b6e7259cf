// Package common defines shared constants and sentinel errors used across
// accountkeeper components. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound     = errors.New("user not found")
	ErrDuplicatePhone = errors.New("phone number already exists")
	ErrDuplicateEmail = errors.New("email already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal        = errors.New("internal error")
	ErrorUnauthenticated = errors.New("you are not logged in")
	ErrorForbidden       = errors.New("you are not authorized to perform this action")
	ErrDeliveryFailure   = errors.New("failed to deliver message")

	// Verification state errors.
	ErrAlreadyVerified = errors.New("user already verified")
	ErrInvalidCode     = errors.New("invalid OTP")
	ErrCodeExpired     = errors.New("OTP expired")

	// Credential errors.
	ErrIncorrectPassword = errors.New("incorrect password")

	// Token issuance errors. ErrAccountNotVerified and ErrAccountNotActive
	// both match ErrIneligibleAccount.
	ErrIneligibleAccount  = errors.New("account is not eligible for a token")
	ErrAccountNotVerified = fmt.Errorf("%w: user not verified", ErrIneligibleAccount)
	ErrAccountNotActive   = fmt.Errorf("%w: user not active", ErrIneligibleAccount)
	ErrAccountMissing     = errors.New("user not found")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Validation errors. Use NewValidationError to attach a reason.
	ErrorValidation = errors.New("validation error")
)

// ValidationError reports a missing or malformed argument. It matches
// ErrorValidation with errors.Is.
type ValidationError struct {
	Reason string
}

// NewValidationError returns a ValidationError with the given reason.
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrorValidation
}
