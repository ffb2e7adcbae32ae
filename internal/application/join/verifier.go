package join

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"soa-backend/internal/domain"
	"soa-backend/internal/pkg/metrics"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Verifier resolves a code against join_requests first, then
// region_invite_codes.
type Verifier struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Verify normalizes code and returns the invite it belongs to.
func (v *Verifier) Verify(ctx context.Context, code string) (*Invite, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		metrics.CodeVerifications.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidCode
	}

	inv, err := v.verifyLegacy(ctx, code)
	if err == nil && inv == nil {
		inv, err = v.verifyStandard(ctx, code)
	}
	if err == nil && inv == nil {
		err = ErrInvalidCode
	}
	if err != nil {
		metrics.CodeVerifications.WithLabelValues(verificationResult(err)).Inc()
		return nil, err
	}

	if err := v.DB.WithContext(ctx).Model(&domain.OrganizationMember{}).
		Where("organization_id = ?", inv.Organization.ID).Count(&inv.MemberCount).Error; err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	metrics.CodeVerifications.WithLabelValues(string(inv.Kind)).Inc()
	return inv, nil
}

func verificationResult(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCode):
		return "invalid"
	case errors.Is(err, ErrCodeExpired):
		return "expired"
	case errors.Is(err, ErrCodeExhausted):
		return "exhausted"
	default:
		return "error"
	}
}

// verifyLegacy returns (nil, nil) when no pending join request matches.
func (v *Verifier) verifyLegacy(ctx context.Context, code string) (*Invite, error) {
	db := v.DB.WithContext(ctx)
	var jr domain.JoinRequest
	err := db.Where("invite_code = ? AND status = ?", code, domain.JoinRequestPending).First(&jr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if jr.Expired(v.now()) {
		if err := db.Model(&jr).Update("status", domain.JoinRequestExpired).Error; err != nil {
			log.Warn().Err(err).Str("join_request_id", jr.ID.String()).Msg("failed to mark join request expired")
		}
		return nil, ErrCodeExpired
	}

	var org domain.Organization
	if err := db.Where("id = ?", jr.OrganizationID).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	region, err := v.legacyRegion(ctx, &jr)
	if err != nil {
		return nil, err
	}
	return fromJoinRequest(&jr, org, *region), nil
}

// legacyRegion tries the request's region, then the inviter's current
// region in the same organization, then the organization's first region
// by name.
func (v *Verifier) legacyRegion(ctx context.Context, jr *domain.JoinRequest) (*domain.OrganizationRegion, error) {
	db := v.DB.WithContext(ctx)
	var region domain.OrganizationRegion

	if jr.RegionID != nil {
		err := db.Where("id = ?", *jr.RegionID).First(&region).Error
		if err == nil {
			return &region, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if jr.InvitedBy != nil {
		var inviter domain.OrganizationMember
		err := db.Where("user_id = ? AND organization_id = ?", *jr.InvitedBy, jr.OrganizationID).
			Order("created_at DESC").First(&inviter).Error
		if err == nil {
			err = db.Where("id = ?", inviter.RegionID).First(&region).Error
			if err == nil {
				return &region, nil
			}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	err := db.Where("organization_id = ?", jr.OrganizationID).Order("name ASC").First(&region).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRegionUnresolved
	}
	if err != nil {
		return nil, err
	}
	return &region, nil
}

// verifyStandard returns (nil, nil) when no active code matches.
func (v *Verifier) verifyStandard(ctx context.Context, code string) (*Invite, error) {
	db := v.DB.WithContext(ctx)
	var ic domain.InviteCode
	err := db.Where("code = ? AND is_active = ?", code, true).First(&ic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if ic.Expired(v.now()) {
		return nil, ErrCodeExpired
	}
	if ic.Exhausted() {
		return nil, ErrCodeExhausted
	}

	var org domain.Organization
	var region domain.OrganizationRegion
	if err := db.Where("id = ?", ic.OrganizationID).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	if err := db.Where("id = ?", ic.RegionID).First(&region).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegionUnresolved
		}
		return nil, err
	}
	return fromInviteCode(&ic, org, region), nil
}
