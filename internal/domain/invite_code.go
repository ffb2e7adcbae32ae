package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InviteCode matches region_invite_codes. MaxUses nil means unlimited.
type InviteCode struct {
	ID                 uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Code               string                      `gorm:"column:code;not null;uniqueIndex" json:"code"`
	OrganizationID     uuid.UUID                   `gorm:"column:organization_id;type:uuid;not null;index" json:"organization_id"`
	RegionID           uuid.UUID                   `gorm:"column:region_id;type:uuid;not null;index" json:"region_id"`
	CreatedBy          uuid.UUID                   `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	MaxUses            *int                        `gorm:"column:max_uses" json:"max_uses"`
	CurrentUses        int                         `gorm:"column:current_uses;not null;default:0" json:"current_uses"`
	IsActive           bool                        `gorm:"column:is_active;not null;default:true" json:"is_active"`
	IsBranch           bool                        `gorm:"column:is_branch;not null;default:false" json:"is_branch"`
	ExpiresAt          *time.Time                  `gorm:"column:expires_at" json:"expires_at"`
	AllowedMemberTypes datatypes.JSONSlice[string] `gorm:"column:allowed_member_types;not null" json:"allowed_member_types"`
	Description        string                      `gorm:"column:description" json:"description"`
	CreatedAt          time.Time                   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time                   `gorm:"column:updated_at" json:"updated_at"`
}

func (InviteCode) TableName() string {
	return "region_invite_codes"
}

func (c *InviteCode) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Expired reports whether the code has an expiry in the past.
func (c *InviteCode) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// Exhausted reports whether a bounded code has reached its use limit.
func (c *InviteCode) Exhausted() bool {
	return c.MaxUses != nil && c.CurrentUses >= *c.MaxUses
}
