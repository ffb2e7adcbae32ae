package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization matches the organizations table.
type Organization struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Organization) TableName() string {
	return "organizations"
}

// BeforeCreate ensures id is set for DBs without default uuid.
func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrganizationRegion matches organization_regions. Code is the 2-3 letter
// region code used in invite codes and member numbers (e.g. "GP").
type OrganizationRegion struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null;index" json:"organization_id"`
	Name           string    `gorm:"column:name;not null" json:"name"`
	Code           string    `gorm:"column:code;type:varchar(3);not null" json:"code"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (OrganizationRegion) TableName() string {
	return "organization_regions"
}

func (r *OrganizationRegion) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
