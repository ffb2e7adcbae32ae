package policies

import (
	"context"
	"errors"

	"soa-backend/internal/domain"
	"soa-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor is the session user acting on invite codes.
type Actor struct {
	UserID   uuid.UUID
	Role     string
	OrgID    *uuid.UUID
	RegionID *uuid.UUID
}

// ValidateIssue checks that actor may issue a code for targetRegion and
// returns the region. National admins may issue for any region of their
// organization; regional and branch managers only for their own, and
// branch managers only branch codes.
func ValidateIssue(ctx context.Context, db *gorm.DB, actor Actor, targetRegion uuid.UUID, branch bool) (*domain.OrganizationRegion, error) {
	if actor.OrgID == nil {
		return nil, ErrNoOrganization
	}
	if !constants.IsManagerRole(actor.Role) {
		return nil, ErrNotManager
	}
	if actor.Role == constants.BranchManager && !branch {
		return nil, ErrBranchCodesOnly
	}
	if err := checkRegionScope(actor, targetRegion); err != nil {
		return nil, err
	}

	var region domain.OrganizationRegion
	if err := db.WithContext(ctx).Where("id = ?", targetRegion).First(&region).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegionNotFound
		}
		return nil, err
	}
	if region.OrganizationID != *actor.OrgID {
		return nil, ErrRegionOutsideOrg
	}
	if !region.IsActive {
		return nil, ErrRegionInactive
	}
	return &region, nil
}

// ValidateManage checks that actor may toggle or share code.
func ValidateManage(actor Actor, code *domain.InviteCode) error {
	if actor.OrgID == nil {
		return ErrNoOrganization
	}
	if !constants.IsManagerRole(actor.Role) {
		return ErrNotManager
	}
	if code.OrganizationID != *actor.OrgID {
		return ErrRegionOutsideOrg
	}
	if actor.Role == constants.BranchManager && !code.IsBranch {
		return ErrBranchCodesOnly
	}
	return checkRegionScope(actor, code.RegionID)
}

func checkRegionScope(actor Actor, region uuid.UUID) error {
	if actor.Role == constants.NationalAdmin {
		return nil
	}
	if actor.RegionID == nil || *actor.RegionID != region {
		return ErrOwnRegionOnly
	}
	return nil
}
