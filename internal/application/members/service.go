package members

import (
	"context"

	"soa-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

type ListMembersInput struct {
	OrgID    uuid.UUID
	RegionID *uuid.UUID
	Status   string
}

var validStatuses = map[string]bool{
	domain.MembershipPendingVerification: true,
	domain.MembershipActive:              true,
	domain.MembershipSuspended:           true,
	domain.MembershipInactive:            true,
}

// ListMembers returns members of an organization, newest first.
func (s *Service) ListMembers(ctx context.Context, in ListMembersInput) ([]domain.OrganizationMember, error) {
	q := s.DB.WithContext(ctx).Where("organization_id = ?", in.OrgID)
	if in.RegionID != nil {
		q = q.Where("region_id = ?", *in.RegionID)
	}
	if in.Status != "" {
		if !validStatuses[in.Status] {
			return nil, ErrInvalidStatus
		}
		q = q.Where("membership_status = ?", in.Status)
	}
	var out []domain.OrganizationMember
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
