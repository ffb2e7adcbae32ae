package domain

import (
	"time"

	"github.com/google/uuid"
)

// Result codes returned by register_organization_member.
const (
	RegistrationUserNotFound          = "USER_NOT_FOUND"
	RegistrationDuplicateMemberNumber = "DUPLICATE_MEMBER_NUMBER"
)

const (
	RegistrationActionCreated  = "created"
	RegistrationActionExisting = "existing"
)

// RegistrationParams are the arguments of register_organization_member.
type RegistrationParams struct {
	OrganizationID   uuid.UUID
	UserID           uuid.UUID
	RegionID         uuid.UUID
	MemberNumber     string
	MemberType       string
	MembershipTier   string
	MembershipStatus string
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	IDNumber         string
	DateOfBirth      *time.Time
	PhysicalAddress  string
	Role             string
	InviteCodeUsed   string
	JoinedVia        string
}

// RegistrationResult is the JSON object register_organization_member returns.
type RegistrationResult struct {
	Success          bool   `json:"success"`
	Code             string `json:"code,omitempty"`
	Error            string `json:"error,omitempty"`
	MemberNumber     string `json:"member_number,omitempty"`
	Action           string `json:"action,omitempty"`
	MembershipStatus string `json:"membership_status,omitempty"`
}
