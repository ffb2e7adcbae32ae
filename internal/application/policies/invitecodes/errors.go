package policies

import "errors"

var (
	ErrNoOrganization   = errors.New("User is not associated with any organization")
	ErrNotManager       = errors.New("Only managers can issue invite codes")
	ErrOwnRegionOnly    = errors.New("You can only manage invite codes for your own region")
	ErrBranchCodesOnly  = errors.New("Branch managers can only issue branch codes")
	ErrRegionNotFound   = errors.New("Region not found")
	ErrRegionInactive   = errors.New("Region is not active")
	ErrRegionOutsideOrg = errors.New("Region does not belong to your organization")
)
