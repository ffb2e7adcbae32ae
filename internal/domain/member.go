package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MembershipPendingVerification = "pending_verification"
	MembershipActive              = "active"
	MembershipSuspended           = "suspended"
	MembershipInactive            = "inactive"
)

const (
	JoinedViaInviteCode  = "invite_code"
	JoinedViaJoinRequest = "join_request"
)

// OrganizationMember matches organization_members.
type OrganizationMember struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	OrganizationID   uuid.UUID  `gorm:"column:organization_id;type:uuid;not null;index" json:"organization_id"`
	RegionID         uuid.UUID  `gorm:"column:region_id;type:uuid;not null" json:"region_id"`
	MemberNumber     string     `gorm:"column:member_number;not null;uniqueIndex" json:"member_number"`
	MemberType       string     `gorm:"column:member_type;not null" json:"member_type"`
	MembershipTier   string     `gorm:"column:membership_tier;not null;default:'standard'" json:"membership_tier"`
	MembershipStatus string     `gorm:"column:membership_status;not null" json:"membership_status"`
	Role             string     `gorm:"column:role;not null;default:'member'" json:"role"`
	FirstName        string     `gorm:"column:first_name;not null" json:"first_name"`
	LastName         string     `gorm:"column:last_name;not null" json:"last_name"`
	Email            string     `gorm:"column:email;not null" json:"email"`
	Phone            string     `gorm:"column:phone" json:"phone"`
	IDNumber         string     `gorm:"column:id_number" json:"id_number"`
	DateOfBirth      *time.Time `gorm:"column:date_of_birth;type:date" json:"date_of_birth"`
	PhysicalAddress  string     `gorm:"column:physical_address" json:"physical_address"`
	InviteCodeUsed   string     `gorm:"column:invite_code_used" json:"invite_code_used"`
	JoinedVia        string     `gorm:"column:joined_via" json:"joined_via"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (OrganizationMember) TableName() string {
	return "organization_members"
}

func (m *OrganizationMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Identity is a locally stored auth identity, used when no external auth
// service is configured.
type Identity struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Identity) TableName() string {
	return "identities"
}

func (i *Identity) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
