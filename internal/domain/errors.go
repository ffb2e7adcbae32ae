package domain

import "errors"

// Identity provider errors shared by the Supabase and local implementations.
var (
	ErrIdentityExists     = errors.New("A user with this email address has already been registered")
	ErrInvalidCredentials = errors.New("Invalid login credentials")
)
