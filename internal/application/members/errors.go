package members

import "errors"

var (
	ErrInvalidStatus   = errors.New("Invalid membership status")
	errDuplicateNumber = errors.New("duplicate member number")
)
