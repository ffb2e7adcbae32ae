package members

import (
	"context"
	"errors"

	"soa-backend/internal/domain"
	"soa-backend/internal/infrastructure/database"
	"soa-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IdentityLookup confirms that an auth identity is visible.
type IdentityLookup interface {
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// GormRegistrar registers members directly in the database with the same
// contract as the register_organization_member procedure.
type GormRegistrar struct {
	DB         *gorm.DB
	Identities IdentityLookup // optional; nil skips the identity check
}

func (r *GormRegistrar) Register(ctx context.Context, p domain.RegistrationParams) (*domain.RegistrationResult, error) {
	if r.Identities != nil {
		ok, err := r.Identities.UserExists(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &domain.RegistrationResult{Success: false, Code: domain.RegistrationUserNotFound, Error: "User not found"}, nil
		}
	}

	var result *domain.RegistrationResult
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.OrganizationMember
		err := tx.Where("user_id = ? AND organization_id = ? AND membership_status = ?",
			p.UserID, p.OrganizationID, domain.MembershipActive).
			Order("created_at DESC").First(&existing).Error
		if err == nil {
			result = &domain.RegistrationResult{
				Success:          true,
				Action:           domain.RegistrationActionExisting,
				MemberNumber:     existing.MemberNumber,
				MembershipStatus: existing.MembershipStatus,
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		m := &domain.OrganizationMember{
			UserID:           p.UserID,
			OrganizationID:   p.OrganizationID,
			RegionID:         p.RegionID,
			MemberNumber:     p.MemberNumber,
			MemberType:       p.MemberType,
			MembershipTier:   orDefault(p.MembershipTier, constants.MembershipTierStandard),
			MembershipStatus: p.MembershipStatus,
			Role:             orDefault(p.Role, constants.Member),
			FirstName:        p.FirstName,
			LastName:         p.LastName,
			Email:            p.Email,
			Phone:            p.Phone,
			IDNumber:         p.IDNumber,
			DateOfBirth:      p.DateOfBirth,
			PhysicalAddress:  p.PhysicalAddress,
			InviteCodeUsed:   p.InviteCodeUsed,
			JoinedVia:        p.JoinedVia,
		}
		if err := tx.Create(m).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return errDuplicateNumber
			}
			return err
		}
		result = &domain.RegistrationResult{
			Success:          true,
			Action:           domain.RegistrationActionCreated,
			MemberNumber:     m.MemberNumber,
			MembershipStatus: m.MembershipStatus,
		}
		return nil
	})
	if errors.Is(err, errDuplicateNumber) {
		return &domain.RegistrationResult{
			Success: false,
			Code:    domain.RegistrationDuplicateMemberNumber,
			Error:   "Member number already in use",
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
