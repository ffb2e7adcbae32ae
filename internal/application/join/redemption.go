package join

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	emailsvc "soa-backend/internal/application/emails"
	"soa-backend/internal/domain"
	"soa-backend/internal/pkg/constants"
	"soa-backend/internal/pkg/metrics"
	"soa-backend/internal/pkg/validation"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	maxRegisterAttempts = 5
	registerRetryStep   = time.Second
)

// Redeemer turns a verified code plus applicant details into a membership.
type Redeemer struct {
	DB         *gorm.DB
	Verifier   *Verifier
	Identities IdentityProvider
	Registrar  MemberRegistrar
	Usage      UsageCounter

	// Optional.
	RetryQueue  UsageRetryQueue
	EmailSender emailsvc.Sender

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
	// RandN returns a value in [0, n).
	RandN func(n int) int
	// VisibilityBackOff builds the policy used while waiting for a new
	// identity to become visible to the registrar.
	VisibilityBackOff func() backoff.BackOff
}

type RedeemInput struct {
	Code            string     `json:"code" validate:"required"`
	FirstName       string     `json:"first_name" validate:"required,personname"`
	LastName        string     `json:"last_name" validate:"required,personname"`
	Email           string     `json:"email" validate:"required,loose_email"`
	Phone           string     `json:"phone"`
	IDNumber        string     `json:"id_number" validate:"required"`
	DateOfBirth     *time.Time `json:"date_of_birth"`
	PhysicalAddress string     `json:"physical_address"`
	MemberType      string     `json:"member_type"`
	Password        string     `json:"password" validate:"required,min=8"`
}

type RedeemResult struct {
	UserID           uuid.UUID `json:"user_id"`
	MemberNumber     string    `json:"member_number"`
	Action           string    `json:"action"`
	MembershipStatus string    `json:"membership_status"`
	OrganizationName string    `json:"organization_name"`
	RegionName       string    `json:"region_name"`
}

func (r *Redeemer) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Redeemer) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Redeemer) randN(n int) int {
	if r.RandN != nil {
		return r.RandN(n)
	}
	return rand.Intn(n)
}

func (r *Redeemer) visibilityBackOff() backoff.BackOff {
	if r.VisibilityBackOff != nil {
		return r.VisibilityBackOff()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 5 * time.Second
	return b
}

// Redeem validates the applicant, re-verifies the code, creates the
// identity and registers the member. Once registration succeeds the
// membership stands: usage bookkeeping and the welcome email only log on
// failure.
func (r *Redeemer) Redeem(ctx context.Context, in RedeemInput) (*RedeemResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.IDNumber = strings.TrimSpace(in.IDNumber)
	in.MemberType = strings.ToLower(strings.TrimSpace(in.MemberType))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	inv, err := r.Verifier.Verify(ctx, in.Code)
	if err != nil {
		return nil, err
	}
	memberType := in.MemberType
	if memberType == "" {
		memberType = inv.DefaultMemberType
	}
	if !inv.Allows(memberType) {
		return nil, ErrMemberTypeNotAllowed
	}

	if err := r.checkDuplicates(ctx, inv.Organization.ID, in.Email, in.IDNumber); err != nil {
		metrics.Redemptions.WithLabelValues("failed").Inc()
		return nil, err
	}

	userID, err := r.Identities.CreateUser(ctx, in.Email, in.Password, map[string]interface{}{
		"first_name":      in.FirstName,
		"last_name":       in.LastName,
		"organization_id": inv.Organization.ID.String(),
	})
	if errors.Is(err, domain.ErrIdentityExists) {
		userID, err = r.recoverIdentity(ctx, in.Email, in.Password)
	}
	if err != nil {
		metrics.Redemptions.WithLabelValues("failed").Inc()
		if errors.Is(err, domain.ErrIdentityExists) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}
	r.waitVisible(ctx, userID)

	draw := func() string {
		return memberNumber(inv.Region.Code, r.now(), 10000+r.randN(90000))
	}

	params := domain.RegistrationParams{
		OrganizationID:   inv.Organization.ID,
		UserID:           userID,
		RegionID:         inv.Region.ID,
		MemberNumber:     draw(),
		MemberType:       memberType,
		MembershipTier:   constants.MembershipTierStandard,
		MembershipStatus: domain.MembershipPendingVerification,
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		Email:            in.Email,
		Phone:            strings.TrimSpace(in.Phone),
		IDNumber:         in.IDNumber,
		DateOfBirth:      in.DateOfBirth,
		PhysicalAddress:  strings.TrimSpace(in.PhysicalAddress),
		Role:             constants.Member,
		InviteCodeUsed:   inv.Code,
		JoinedVia:        inv.JoinedVia(),
	}
	res, err := r.register(ctx, &params, draw)
	if err != nil {
		metrics.Redemptions.WithLabelValues("failed").Inc()
		return nil, err
	}

	r.recordUsage(ctx, inv)

	out := &RedeemResult{
		UserID:           userID,
		MemberNumber:     params.MemberNumber,
		Action:           res.Action,
		MembershipStatus: res.MembershipStatus,
		OrganizationName: inv.Organization.Name,
		RegionName:       inv.Region.Name,
	}
	if res.MemberNumber != "" {
		out.MemberNumber = res.MemberNumber
	}
	if out.Action == "" {
		out.Action = domain.RegistrationActionCreated
	}
	if out.MembershipStatus == "" {
		out.MembershipStatus = params.MembershipStatus
	}
	metrics.Redemptions.WithLabelValues(out.Action).Inc()
	log.Info().Str("user_id", userID.String()).Str("member_number", out.MemberNumber).
		Str("code", inv.Code).Str("action", out.Action).Msg("invite code redeemed")

	if r.EmailSender != nil {
		if err := r.EmailSender.SendWelcome(ctx, emailsvc.WelcomeMessage{
			ToEmail:          in.Email,
			FirstName:        in.FirstName,
			OrganizationName: inv.Organization.Name,
			RegionName:       inv.Region.Name,
			MemberNumber:     out.MemberNumber,
		}); err != nil {
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("welcome email failed")
		}
	}
	return out, nil
}

// checkDuplicates fails open: a query error is logged and ignored.
func (r *Redeemer) checkDuplicates(ctx context.Context, orgID uuid.UUID, email, idNumber string) error {
	db := r.DB.WithContext(ctx).Model(&domain.OrganizationMember{})
	var n int64
	if err := db.Where("organization_id = ? AND LOWER(email) = ?", orgID, email).Count(&n).Error; err != nil {
		log.Warn().Err(err).Msg("duplicate email check failed")
	} else if n > 0 {
		return ErrEmailAlreadyRegistered
	}

	n = 0
	db = r.DB.WithContext(ctx).Model(&domain.OrganizationMember{})
	if err := db.Where("organization_id = ? AND id_number = ?", orgID, idNumber).Count(&n).Error; err != nil {
		log.Warn().Err(err).Msg("duplicate id number check failed")
	} else if n > 0 {
		return ErrIDNumberAlreadyRegistered
	}
	return nil
}

// waitVisible polls until the new identity is readable. Giving up is not
// an error; the registrar retries on USER_NOT_FOUND.
func (r *Redeemer) waitVisible(ctx context.Context, userID uuid.UUID) {
	op := func() error {
		ok, err := r.Identities.UserExists(ctx, userID)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("identity not visible yet")
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(r.visibilityBackOff(), ctx)); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("identity not visible, registering anyway")
	}
}

// recoverIdentity picks up an identity left behind by an earlier attempt
// whose registration never completed. The org duplicate checks have
// already passed, so the identity has no membership here. The caller must
// prove ownership with the submitted password.
func (r *Redeemer) recoverIdentity(ctx context.Context, email, password string) (uuid.UUID, error) {
	rec, ok := r.Identities.(IdentityRecoverer)
	if !ok {
		return uuid.Nil, domain.ErrIdentityExists
	}
	id, err := rec.SignInWithPassword(ctx, email, password)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			log.Warn().Err(err).Msg("recover existing identity failed")
		}
		return uuid.Nil, domain.ErrIdentityExists
	}
	log.Info().Str("user_id", id.String()).Msg("resuming registration for existing identity")
	return id, nil
}

// register drives the registrar. A member number collision draws a fresh
// number into p and tries again without sleeping.
func (r *Redeemer) register(ctx context.Context, p *domain.RegistrationParams, draw func() string) (*domain.RegistrationResult, error) {
	for attempt := 1; attempt <= maxRegisterAttempts; attempt++ {
		res, err := r.Registrar.Register(ctx, *p)
		switch {
		case err == nil && !res.Success && res.Code == domain.RegistrationDuplicateMemberNumber:
			log.Warn().Int("attempt", attempt).Str("member_number", p.MemberNumber).Msg("member number taken, drawing another")
			p.MemberNumber = draw()
			continue
		case err != nil:
			log.Warn().Err(err).Int("attempt", attempt).Str("user_id", p.UserID.String()).Msg("register member failed")
		case res.Success:
			metrics.RegistrationAttempts.Observe(float64(attempt))
			return res, nil
		case res.Code == domain.RegistrationUserNotFound:
			log.Warn().Int("attempt", attempt).Str("user_id", p.UserID.String()).Msg("identity not found by registrar")
		default:
			metrics.RegistrationAttempts.Observe(float64(attempt))
			return nil, &RegistrationError{Code: res.Code, Message: res.Error}
		}
		if attempt < maxRegisterAttempts {
			if err := r.sleep(ctx, registerRetryStep*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}
	}
	metrics.RegistrationAttempts.Observe(maxRegisterAttempts)
	log.Error().Str("user_id", p.UserID.String()).Str("member_number", p.MemberNumber).
		Msg("registration attempts exhausted")
	return nil, ErrAccountBeingCreated
}

func (r *Redeemer) recordUsage(ctx context.Context, inv *Invite) {
	switch inv.Kind {
	case KindStandard:
		id := inv.Standard.ID
		ok, err := r.Usage.IncrementUsage(ctx, id)
		if err == nil {
			if !ok {
				log.Warn().Str("code_id", id.String()).Msg("invite code usage limit reached during redemption")
			}
			return
		}
		log.Error().Err(err).Str("code_id", id.String()).Msg("increment invite code usage failed")
		if r.RetryQueue == nil {
			return
		}
		if err := r.RetryQueue.Push(ctx, id); err != nil {
			log.Error().Err(err).Str("code_id", id.String()).Msg("queue usage retry failed")
		}
	case KindLegacy:
		err := r.DB.WithContext(ctx).Model(inv.Legacy).Updates(map[string]interface{}{
			"status":     domain.JoinRequestUsed,
			"updated_at": r.now(),
		}).Error
		if err != nil {
			log.Error().Err(err).Str("join_request_id", inv.Legacy.ID.String()).Msg("mark join request used failed")
		}
	}
}
