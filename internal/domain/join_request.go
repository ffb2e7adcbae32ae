package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JoinRequestStatus string

const (
	JoinRequestPending JoinRequestStatus = "pending"
	JoinRequestUsed    JoinRequestStatus = "used"
	JoinRequestExpired JoinRequestStatus = "expired"
)

// JoinRequest matches the legacy join_requests table. It predates
// region_invite_codes and carries a pre-set temporary credential.
type JoinRequest struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	InviteCode     string            `gorm:"column:invite_code;not null;index" json:"invite_code"`
	OrganizationID uuid.UUID         `gorm:"column:organization_id;type:uuid;not null" json:"organization_id"`
	RegionID       *uuid.UUID        `gorm:"column:region_id;type:uuid" json:"region_id"`
	InvitedBy      *uuid.UUID        `gorm:"column:invited_by;type:uuid" json:"invited_by"`
	Email          *string           `gorm:"column:email" json:"email"`
	TempPassword   string            `gorm:"column:temp_password" json:"-"`
	RequestedRole  string            `gorm:"column:requested_role" json:"requested_role"`
	Status         JoinRequestStatus `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	ExpiresAt      *time.Time        `gorm:"column:expires_at" json:"expires_at"`
	CreatedAt      time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (JoinRequest) TableName() string {
	return "join_requests"
}

func (j *JoinRequest) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

func (j *JoinRequest) Expired(now time.Time) bool {
	return j.ExpiresAt != nil && !j.ExpiresAt.After(now)
}
