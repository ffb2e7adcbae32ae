package join

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCode               = errors.New("Invalid invite code")
	ErrCodeExpired               = errors.New("This invite code has expired")
	ErrCodeExhausted             = errors.New("This invite code has reached its usage limit")
	ErrRegionUnresolved          = errors.New("Could not determine a region for this invite")
	ErrMemberTypeNotAllowed      = errors.New("Member type is not allowed for this invite code")
	ErrEmailAlreadyRegistered    = errors.New("This email address is already registered")
	ErrIDNumberAlreadyRegistered = errors.New("This ID number is already registered")
	ErrAccountBeingCreated       = errors.New("Your account is being created. Please try signing in again in a few minutes.")
)

// RegistrationError is a terminal, non-retryable registrar outcome.
type RegistrationError struct {
	Code    string
	Message string
}

func (e *RegistrationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("registration failed: %s", e.Code)
	}
	return e.Message
}
