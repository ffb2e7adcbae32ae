package auth

import "errors"

var (
	ErrEmailPasswordRequired = errors.New("Email and password are required")
	ErrInvalidCredentials    = errors.New("Invalid email or password")
	ErrNoMembership          = errors.New("No active membership found for this account")
	ErrNotAuthenticated      = errors.New("Not authenticated")
)
