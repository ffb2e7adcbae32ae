package invitecodes

import "errors"

var (
	ErrInvalidPrefix       = errors.New("Invalid invite code prefix")
	ErrInvalidRegionCode   = errors.New("Region code must be 2-3 letters or digits")
	ErrMemberTypesRequired = errors.New("Select at least one member type")
	ErrUnknownMemberType   = errors.New("Unknown member type")
	ErrInvalidMaxUses      = errors.New("Max uses must be at least 1")
	ErrInvalidExpiryDays   = errors.New("Expiry days must be at least 1")
	ErrCodeCollision       = errors.New("Could not generate a unique invite code, please try again")
	ErrCodeNotFound        = errors.New("Invite code not found")
	ErrInvalidEmail        = errors.New("Invalid Email")
	ErrEmailUnavailable    = errors.New("Email delivery is not configured")
)
