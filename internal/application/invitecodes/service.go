package invitecodes

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	emailsvc "soa-backend/internal/application/emails"
	policies "soa-backend/internal/application/policies/invitecodes"
	"soa-backend/internal/domain"
	"soa-backend/internal/infrastructure/database"
	"soa-backend/internal/pkg/constants"
	"soa-backend/internal/pkg/metrics"
	"soa-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const maxGenerationAttempts = 5

const day = 24 * time.Hour

type Service struct {
	DB          *gorm.DB
	Generator   Generator
	EmailSender emailsvc.Sender // optional
	JoinBaseURL string
	Now         func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type IssueCodeInput struct {
	Actor              policies.Actor
	RegionID           *uuid.UUID // defaults to the actor's region
	Description        string
	AllowedMemberTypes []string
	MaxUses            *int // nil = unlimited
	ExpiryDays         *int // nil = never expires
	Branch             bool
}

// IssueCode validates the request, generates a code and inserts it. Nothing
// is written unless every check passes. A unique-key clash regenerates the
// code, up to maxGenerationAttempts times.
func (s *Service) IssueCode(ctx context.Context, in IssueCodeInput) (*domain.InviteCode, error) {
	types, err := normalizeMemberTypes(in.AllowedMemberTypes)
	if err != nil {
		return nil, err
	}
	if in.MaxUses != nil && *in.MaxUses < 1 {
		return nil, ErrInvalidMaxUses
	}
	if in.ExpiryDays != nil && *in.ExpiryDays < 1 {
		return nil, ErrInvalidExpiryDays
	}

	target := in.RegionID
	if target == nil {
		target = in.Actor.RegionID
	}
	if target == nil {
		return nil, policies.ErrRegionNotFound
	}
	region, err := policies.ValidateIssue(ctx, s.DB, in.Actor, *target, in.Branch)
	if err != nil {
		return nil, err
	}

	prefix, kind := PrefixRegion, "region"
	if in.Branch {
		prefix, kind = PrefixBranch, "branch"
	}
	var expiresAt *time.Time
	if in.ExpiryDays != nil {
		t := s.now().Add(time.Duration(*in.ExpiryDays) * day)
		expiresAt = &t
	}

	for attempt := 1; attempt <= maxGenerationAttempts; attempt++ {
		code, err := s.Generator.Generate(prefix, region.Code)
		if err != nil {
			return nil, err
		}
		row := &domain.InviteCode{
			Code:               code,
			OrganizationID:     region.OrganizationID,
			RegionID:           region.ID,
			CreatedBy:          in.Actor.UserID,
			MaxUses:            in.MaxUses,
			IsActive:           true,
			IsBranch:           in.Branch,
			ExpiresAt:          expiresAt,
			AllowedMemberTypes: types,
			Description:        strings.TrimSpace(in.Description),
		}
		err = s.DB.WithContext(ctx).Create(row).Error
		if err == nil {
			metrics.CodesIssued.WithLabelValues(kind).Inc()
			log.Info().Str("code", code).Str("region", region.Code).Str("created_by", in.Actor.UserID.String()).
				Msg("invite code issued")
			return row, nil
		}
		if !database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("insert invite code: %w", err)
		}
		log.Warn().Str("code", code).Int("attempt", attempt).Msg("invite code collision, regenerating")
	}
	return nil, ErrCodeCollision
}

func normalizeMemberTypes(in []string) ([]string, error) {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		if !constants.IsValidMemberType(t) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownMemberType, t)
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, ErrMemberTypesRequired
	}
	return out, nil
}

type ListCodesInput struct {
	OrgID      uuid.UUID
	RegionID   *uuid.UUID
	ActiveOnly bool
}

// ListCodes returns the organization's codes, newest first.
func (s *Service) ListCodes(ctx context.Context, in ListCodesInput) ([]domain.InviteCode, error) {
	q := s.DB.WithContext(ctx).Where("organization_id = ?", in.OrgID)
	if in.RegionID != nil {
		q = q.Where("region_id = ?", *in.RegionID)
	}
	if in.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	var codes []domain.InviteCode
	if err := q.Order("created_at DESC").Find(&codes).Error; err != nil {
		return nil, fmt.Errorf("list invite codes: %w", err)
	}
	return codes, nil
}

type SetActiveInput struct {
	Actor  policies.Actor
	CodeID uuid.UUID
	Active bool
}

func (s *Service) SetActive(ctx context.Context, in SetActiveInput) (*domain.InviteCode, error) {
	code, err := s.find(ctx, in.CodeID)
	if err != nil {
		return nil, err
	}
	if err := policies.ValidateManage(in.Actor, code); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(code).Updates(map[string]interface{}{
		"is_active":  in.Active,
		"updated_at": s.now(),
	}).Error; err != nil {
		return nil, err
	}
	code.IsActive = in.Active
	return code, nil
}

type ShareCodeInput struct {
	Actor  policies.Actor
	CodeID uuid.UUID
	Email  string
}

// ShareCode emails the code to a prospective member.
func (s *Service) ShareCode(ctx context.Context, in ShareCodeInput) error {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !validation.IsValidEmail(email) {
		return ErrInvalidEmail
	}
	if s.EmailSender == nil {
		return ErrEmailUnavailable
	}
	code, err := s.find(ctx, in.CodeID)
	if err != nil {
		return err
	}
	if err := policies.ValidateManage(in.Actor, code); err != nil {
		return err
	}

	var org domain.Organization
	var region domain.OrganizationRegion
	if err := s.DB.WithContext(ctx).Where("id = ?", code.OrganizationID).First(&org).Error; err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Where("id = ?", code.RegionID).First(&region).Error; err != nil {
		return err
	}

	return s.EmailSender.SendInviteCode(ctx, emailsvc.InviteCodeMessage{
		ToEmail:          email,
		Code:             code.Code,
		OrganizationName: org.Name,
		RegionName:       region.Name,
		JoinLink:         s.joinLink(code.Code),
		ExpiresAt:        code.ExpiresAt,
	})
}

func (s *Service) joinLink(code string) string {
	base := strings.TrimRight(s.JoinBaseURL, "/")
	return base + "/join?code=" + url.QueryEscape(code)
}

// DeactivateExpired switches off active codes whose expiry has passed.
func (s *Service) DeactivateExpired(ctx context.Context) (int64, error) {
	now := s.now()
	res := s.DB.WithContext(ctx).Model(&domain.InviteCode{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, now).
		Updates(map[string]interface{}{"is_active": false, "updated_at": now})
	return res.RowsAffected, res.Error
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*domain.InviteCode, error) {
	var code domain.InviteCode
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &code, nil
}
