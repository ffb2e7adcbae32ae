package org

import (
	"context"
	"errors"

	"soa-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrOrgNotFound    = errors.New("Organization not found")
	ErrRegionNotFound = errors.New("Region not found")
)

// Service encapsulates organization and region reads for the manager console.
type Service struct {
	DB *gorm.DB
}

// RegionSummary is a region with its live counts.
type RegionSummary struct {
	domain.OrganizationRegion
	MemberCount     int64 `json:"member_count"`
	ActiveCodeCount int64 `json:"active_code_count"`
}

type OrgView struct {
	domain.Organization
	Regions []RegionSummary `json:"regions"`
}

// ViewOrg returns the organization with its regions ordered by name.
func (s *Service) ViewOrg(ctx context.Context, orgID uuid.UUID) (*OrgView, error) {
	var org domain.Organization
	if err := s.DB.WithContext(ctx).Where("id = ?", orgID).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}
	var regions []domain.OrganizationRegion
	if err := s.DB.WithContext(ctx).Where("organization_id = ?", orgID).Order("name ASC").Find(&regions).Error; err != nil {
		return nil, err
	}

	members, err := s.countBy(ctx, &domain.OrganizationMember{}, orgID, false)
	if err != nil {
		return nil, err
	}
	codes, err := s.countBy(ctx, &domain.InviteCode{}, orgID, true)
	if err != nil {
		return nil, err
	}

	view := &OrgView{Organization: org, Regions: make([]RegionSummary, 0, len(regions))}
	for _, r := range regions {
		view.Regions = append(view.Regions, RegionSummary{
			OrganizationRegion: r,
			MemberCount:        members[r.ID],
			ActiveCodeCount:    codes[r.ID],
		})
	}
	return view, nil
}

type regionCount struct {
	RegionID uuid.UUID
	N        int64
}

func (s *Service) countBy(ctx context.Context, model interface{}, orgID uuid.UUID, activeOnly bool) (map[uuid.UUID]int64, error) {
	q := s.DB.WithContext(ctx).Model(model).Select("region_id, COUNT(*) AS n").Where("organization_id = ?", orgID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []regionCount
	if err := q.Group("region_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		out[r.RegionID] = r.N
	}
	return out, nil
}

// SetRegionActive opens or closes a region. Codes cannot be issued for an
// inactive region; existing codes keep working until they are toggled off.
func (s *Service) SetRegionActive(ctx context.Context, orgID, regionID uuid.UUID, active bool) (*domain.OrganizationRegion, error) {
	var region domain.OrganizationRegion
	err := s.DB.WithContext(ctx).Where("id = ? AND organization_id = ?", regionID, orgID).First(&region).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegionNotFound
		}
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&region).Update("is_active", active).Error; err != nil {
		return nil, err
	}
	region.IsActive = active
	return &region, nil
}
