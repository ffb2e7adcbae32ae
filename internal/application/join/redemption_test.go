package join

import (
	"context"
	"errors"
	"testing"
	"time"

	"soa-backend/internal/application/invitecodes"
	"soa-backend/internal/application/members"
	"soa-backend/internal/domain"
	"soa-backend/internal/pkg/validation"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedeem_StandardCode(t *testing.T) {
	h := newHarness(t, created(""))
	ic := h.addCode(t, "SOA-GP-AB12", h.gp, "learner")

	res, err := h.redeemer.Redeem(context.Background(), applicant("SOA-GP-AB12"))
	require.NoError(t, err)
	assert.Equal(t, "SOA-GP-26-12345", res.MemberNumber)
	assert.Equal(t, domain.RegistrationActionCreated, res.Action)
	assert.Equal(t, domain.MembershipPendingVerification, res.MembershipStatus)
	assert.Equal(t, "Gauteng", res.RegionName)
	assert.Equal(t, "Soil of Africa", res.OrganizationName)
	assert.Equal(t, h.identities.id, res.UserID)

	assert.Equal(t, []string{"thandi@example.com"}, h.identities.created)
	require.Len(t, h.registrar.calls, 1)
	p := h.registrar.calls[0]
	assert.Equal(t, h.org.ID, p.OrganizationID)
	assert.Equal(t, h.gp.ID, p.RegionID)
	assert.Equal(t, "learner", p.MemberType)
	assert.Equal(t, "standard", p.MembershipTier)
	assert.Equal(t, "member", p.Role)
	assert.Equal(t, "SOA-GP-AB12", p.InviteCodeUsed)
	assert.Equal(t, domain.JoinedViaInviteCode, p.JoinedVia)

	assert.Equal(t, ic.ID, h.usage.ids[0])
	assert.Empty(t, h.queue.ids)
	assert.Empty(t, h.sleeps)
	require.Len(t, h.sender.welcomes, 1)
	assert.Equal(t, "SOA-GP-26-12345", h.sender.welcomes[0].MemberNumber)
}

func TestRedeem_PrefersRegistrarMemberNumber(t *testing.T) {
	h := newHarness(t, registerReply{res: &domain.RegistrationResult{
		Success:          true,
		Action:           domain.RegistrationActionExisting,
		MemberNumber:     "SOA-GP-24-55555",
		MembershipStatus: domain.MembershipActive,
	}})
	h.addCode(t, "SOA-GP-AB12", h.gp, "learner")

	res, err := h.redeemer.Redeem(context.Background(), applicant("SOA-GP-AB12"))
	require.NoError(t, err)
	assert.Equal(t, "SOA-GP-24-55555", res.MemberNumber)
	assert.Equal(t, domain.RegistrationActionExisting, res.Action)
	assert.Equal(t, domain.MembershipActive, res.MembershipStatus)
}

func TestRedeem_DefaultsMemberType(t *testing.T) {
	h := newHarness(t, created(""))
	h.addCode(t, "SOA-GP-AB12", h.gp, "volunteer", "mentor")
	in := applicant("SOA-GP-AB12")
	in.MemberType = ""

	_, err := h.redeemer.Redeem(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "volunteer", h.registrar.calls[0].MemberType)
}

func TestRedeem_MemberTypeNotAllowed(t *testing.T) {
	h := newHarness(t, created(""))
	h.addCode(t, "SOA-GP-AB12", h.gp, "volunteer")

	_, err := h.redeemer.Redeem(context.Background(), applicant("SOA-GP-AB12"))
	assert.ErrorIs(t, err, ErrMemberTypeNotAllowed)
	assert.Empty(t, h.identities.created)
}

func TestRedeem_ValidationFailure(t *testing.T) {
	h := newHarness(t, created(""))
	h.addCode(t, "SOA-GP-AB12", h.gp, "learner")
	in := applicant("SOA-GP-AB12")
	in.Password = "short"
	in.Email = "not-an-email"

	_, err := h.redeemer.Redeem(context.Background(), in)
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	fields := map[string]string{}
	for _, fe := range verrs {
		fields[fe.Field] = fe.Tag
	}
	assert.Equal(t, "min", fields["password"])
	assert.Equal(t, "loose_email", fields["email"])
	assert.Empty(t, h.identities.created)
}

func TestRedeem_DuplicateIDNumber(t *testing.T) {
	h := newHarness(t, created(""))
	h.addCode(t, "SOA-GP-AB12", h.gp, "learner")
	h.addMember(t, h.identities.id, h.gp, "SOA-GP-25-10001", "someone@example.com", "9001011234567")

	_, err := h.redeemer.Redeem(context.Background(), applicant("SOA-GP-AB12"))
	assert.ErrorIs(t, err, ErrIDNumberAlreadyRegistered)
	assert.Equal(t, "This ID number is already registered", err.Error())
	assert.Empty(t, h.identities.created)
	assert.Empty(t, h.registrar.calls)
}

func TestRedeem_DuplicateEmail(t *testing.T) {
	h := newHarness(t, created(""))
	h.addCode(t, "SOA-GP-AB12", h.gp, "learner")
	h.addMember(t, h.identities.id, h.gp, "SOA-GP-25-10001", "thandi@example.com", "8001011234567")

	_, err := h.redeemer.Redeem(context.Background(), applicant("SOA-GP-AB12"))
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
	assert.Empty(t, h.identities.created)
}

func TestRedeem_IdentityAlreadyExists(t *testing.T) {
	h := newHarness(t, created(""))
	h.addCode(t, "SOA-GP-AB12", h.gp, "learner")
	h.identities.createErr = domain.ErrIdentityExists

	_, err := h.redeemer.Redeem(context.Background(), applicant("SOA-GP-AB12"))
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
	assert.Empty(t, h.registrar.calls)
}

func TestRedeem_WaitsForIdentityVisibility(t *testing.T) {
	h := newHarness(t, created(""))
	h.addCode(t, "SOA-GP-AB12", h.gp, "learner")
	h.identities.visibleAfter = 2

	_, err := h.redeemer.Redeem(context.Background(), applicant("SOA-GP-AB12"))
	require.NoError(t, err)
	assert.Equal(t, 3, h.identities.existsCalls)
}

func TestRedeem_GivesUpAfterFiveAttempts(t *testing.T) {
	h := newHarness(t, userNotFound())
	h.addCode(t, "SOA-GP-AB12", h.gp, "learner")

	_, err := h.redeemer.Redeem(context.Background(), applicant("SOA-GP-AB12"))
	assert.ErrorIs(t, err, ErrAccountBeingCreated)
	assert.Len(t, h.registrar.calls, 5)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second}, h.sleeps)
	assert.Empty(t, h.usage.ids)
}

func TestRedeem_RetriesCallErrors(t *testing.T) {
	h := newHarness(t, registerReply{err: errors.New("connection reset")}, userNotFound(), created(""))
	h.addCode(t, "SOA-GP-AB12", h.gp, "learner")

	res, err := h.redeemer.Redeem(context.Background(), applicant("SOA-GP-AB12"))
	require.NoError(t, err)
	assert.Equal(t, "SOA-GP-26-12345", res.MemberNumber)
	assert.Len(t, h.registrar.calls, 3)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, h.sleeps)
}

func TestRedeem_TerminalRegistrarResult(t *testing.T) {
	h := newHarness(t, registerReply{res: &domain.RegistrationResult{
		Code:  "REGION_INACTIVE",
		Error: "Region is not accepting members",
	}})
	h.addCode(t, "SOA-GP-AB12", h.gp, "learner")

	_, err := h.redeemer.Redeem(context.Background(), applicant("SOA-GP-AB12"))
	var regErr *RegistrationError
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, "REGION_INACTIVE", regErr.Code)
	assert.Len(t, h.registrar.calls, 1)
	assert.Empty(t, h.sleeps)
}

func TestRedeem_RedrawsCollidingMemberNumber(t *testing.T) {
	h := newHarness(t, registerReply{res: &domain.RegistrationResult{
		Code:  domain.RegistrationDuplicateMemberNumber,
		Error: "Member number already in use",
	}}, created(""))
	h.addCode(t, "SOA-GP-AB12", h.gp, "learner")
	draws := []int{0, 7}
	h.redeemer.RandN = func(int) int {
		v := draws[0]
		draws = draws[1:]
		return v
	}

	res, err := h.redeemer.Redeem(context.Background(), applicant("SOA-GP-AB12"))
	require.NoError(t, err)
	assert.Equal(t, "SOA-GP-26-10007", res.MemberNumber)
	require.Len(t, h.registrar.calls, 2)
	assert.Equal(t, "SOA-GP-26-10000", h.registrar.calls[0].MemberNumber)
	assert.Equal(t, "SOA-GP-26-10007", h.registrar.calls[1].MemberNumber)
	assert.Empty(t, h.sleeps)
}

type recoveringIdentities struct {
	fakeIdentities
	password string
	existing uuid.UUID
}

func (r *recoveringIdentities) SignInWithPassword(ctx context.Context, email, password string) (uuid.UUID, error) {
	if password != r.password {
		return uuid.Nil, domain.ErrInvalidCredentials
	}
	return r.existing, nil
}

func TestRedeem_ResumesExistingIdentity(t *testing.T) {
	h := newHarness(t, created(""))
	h.addCode(t, "SOA-GP-AB12", h.gp, "learner")
	ids := &recoveringIdentities{
		fakeIdentities: fakeIdentities{createErr: domain.ErrIdentityExists},
		password:       applicant("").Password,
		existing:       uuid.New(),
	}
	h.redeemer.Identities = ids

	res, err := h.redeemer.Redeem(context.Background(), applicant("SOA-GP-AB12"))
	require.NoError(t, err)
	assert.Equal(t, ids.existing, res.UserID)
	require.Len(t, h.registrar.calls, 1)
	assert.Equal(t, ids.existing, h.registrar.calls[0].UserID)

	wrong := applicant("SOA-GP-AB12")
	wrong.Password = "not-the-password"
	_, err = h.redeemer.Redeem(context.Background(), wrong)
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
	assert.Len(t, h.registrar.calls, 1)
}

func TestRedeem_UsageFailureIsQueued(t *testing.T) {
	h := newHarness(t, created(""))
	ic := h.addCode(t, "SOA-GP-AB12", h.gp, "learner")
	h.usage.err = errors.New("timeout")

	res, err := h.redeemer.Redeem(context.Background(), applicant("SOA-GP-AB12"))
	require.NoError(t, err)
	assert.NotEmpty(t, res.MemberNumber)
	require.Len(t, h.queue.ids, 1)
	assert.Equal(t, ic.ID, h.queue.ids[0])
}

func TestRedeem_ExpiredCodeCreatesNothing(t *testing.T) {
	h := newHarness(t, created(""))
	ic := h.addCode(t, "SOA-GP-AB12", h.gp, "learner")
	past := h.now.Add(-24 * time.Hour)
	require.NoError(t, h.db.Model(ic).Update("expires_at", past).Error)

	_, err := h.redeemer.Redeem(context.Background(), applicant("SOA-GP-AB12"))
	assert.ErrorIs(t, err, ErrCodeExpired)
	assert.Empty(t, h.identities.created)
	assert.Empty(t, h.registrar.calls)
}

func TestRedeem_LegacyRequestMarkedUsed(t *testing.T) {
	h := newHarness(t, created(""))
	jr := h.addJoinRequest(t, &domain.JoinRequest{InviteCode: "JR-2024-010", RegionID: &h.wc.ID, RequestedRole: "student"})

	res, err := h.redeemer.Redeem(context.Background(), applicant("JR-2024-010"))
	require.NoError(t, err)
	assert.Equal(t, "SOA-WC-26-12345", res.MemberNumber)
	assert.Equal(t, domain.JoinedViaJoinRequest, h.registrar.calls[0].JoinedVia)
	assert.Empty(t, h.usage.ids)

	var got domain.JoinRequest
	require.NoError(t, h.db.First(&got, "id = ?", jr.ID).Error)
	assert.Equal(t, domain.JoinRequestUsed, got.Status)

	_, err = h.redeemer.Redeem(context.Background(), applicant("JR-2024-010"))
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestRedeem_LocalStoresEndToEnd(t *testing.T) {
	f := setup(t)
	ic := f.addCode(t, "SOA-GP-AB12", f.gp, "learner")
	require.NoError(t, f.db.Model(ic).Update("max_uses", 1).Error)

	ids := &members.GormIdentities{DB: f.db}
	r := &Redeemer{
		DB:         f.db,
		Verifier:   f.verifier(),
		Identities: ids,
		Registrar:  &members.GormRegistrar{DB: f.db, Identities: ids},
		Usage:      &invitecodes.GormUsageCounter{DB: f.db},
		Now:        f.clock,
		Sleep:      func(context.Context, time.Duration) error { return nil },
		RandN:      func(n int) int { return 0 },
	}

	res, err := r.Redeem(context.Background(), applicant("SOA-GP-AB12"))
	require.NoError(t, err)
	assert.Equal(t, "SOA-GP-26-10000", res.MemberNumber)

	var m domain.OrganizationMember
	require.NoError(t, f.db.First(&m, "user_id = ?", res.UserID).Error)
	assert.Equal(t, "thandi@example.com", m.Email)
	assert.Equal(t, domain.MembershipPendingVerification, m.MembershipStatus)

	var after domain.InviteCode
	require.NoError(t, f.db.First(&after, "id = ?", ic.ID).Error)
	assert.Equal(t, 1, after.CurrentUses)

	second := applicant("SOA-GP-AB12")
	second.Email = "sipho@example.com"
	second.IDNumber = "8501015800088"
	_, err = r.Redeem(context.Background(), second)
	assert.ErrorIs(t, err, ErrCodeExhausted)
}

func TestRedeem_LocalStoresRecoverAfterNumberCollision(t *testing.T) {
	f := setup(t)
	f.addCode(t, "SOA-GP-AB12", f.gp, "learner")
	f.addMember(t, uuid.New(), f.gp, "SOA-GP-26-10000", "existing@example.com", "7001015800081")

	ids := &members.GormIdentities{DB: f.db}
	draws := 0
	r := &Redeemer{
		DB:         f.db,
		Verifier:   f.verifier(),
		Identities: ids,
		Registrar:  &members.GormRegistrar{DB: f.db, Identities: ids},
		Usage:      &invitecodes.GormUsageCounter{DB: f.db},
		Now:        f.clock,
		Sleep:      func(context.Context, time.Duration) error { return nil },
		RandN: func(n int) int {
			draws++
			if draws <= maxRegisterAttempts {
				return 0
			}
			return 1
		},
		VisibilityBackOff: func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	}

	// every draw of the first attempt collides with the existing member
	_, err := r.Redeem(context.Background(), applicant("SOA-GP-AB12"))
	assert.ErrorIs(t, err, ErrAccountBeingCreated)
	var n int64
	require.NoError(t, f.db.Model(&domain.Identity{}).Where("email = ?", "thandi@example.com").Count(&n).Error)
	assert.Equal(t, int64(1), n)

	res, err := r.Redeem(context.Background(), applicant("SOA-GP-AB12"))
	require.NoError(t, err)
	assert.Equal(t, "SOA-GP-26-10001", res.MemberNumber)
	assert.Equal(t, domain.RegistrationActionCreated, res.Action)

	var identity domain.Identity
	require.NoError(t, f.db.First(&identity, "email = ?", "thandi@example.com").Error)
	assert.Equal(t, identity.ID, res.UserID)
}
