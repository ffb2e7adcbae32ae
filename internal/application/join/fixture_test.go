package join

import (
	"context"
	"errors"
	"testing"
	"time"

	emailsvc "soa-backend/internal/application/emails"
	"soa-backend/internal/domain"
	"soa-backend/internal/infrastructure/database"

	"github.com/cenkalti/backoff/v4"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	db  *gorm.DB
	org domain.Organization
	gp  domain.OrganizationRegion
	wc  domain.OrganizationRegion
	now time.Time
}

func setup(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	f := &fixture{db: db, now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	f.org = domain.Organization{Name: "Soil of Africa", Slug: "soa"}
	require.NoError(t, db.Create(&f.org).Error)
	// Created out of alphabetical order on purpose.
	f.wc = domain.OrganizationRegion{OrganizationID: f.org.ID, Name: "Western Cape", Code: "WC", IsActive: true}
	f.gp = domain.OrganizationRegion{OrganizationID: f.org.ID, Name: "Gauteng", Code: "GP", IsActive: true}
	require.NoError(t, db.Create(&f.wc).Error)
	require.NoError(t, db.Create(&f.gp).Error)
	return f
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) verifier() *Verifier {
	return &Verifier{DB: f.db, Now: f.clock}
}

func (f *fixture) addCode(t *testing.T, code string, region domain.OrganizationRegion, types ...string) *domain.InviteCode {
	ic := &domain.InviteCode{
		Code:               code,
		OrganizationID:     f.org.ID,
		RegionID:           region.ID,
		CreatedBy:          uuid.New(),
		IsActive:           true,
		AllowedMemberTypes: datatypes.JSONSlice[string](types),
	}
	require.NoError(t, f.db.Create(ic).Error)
	return ic
}

func (f *fixture) addJoinRequest(t *testing.T, jr *domain.JoinRequest) *domain.JoinRequest {
	jr.OrganizationID = f.org.ID
	if jr.Status == "" {
		jr.Status = domain.JoinRequestPending
	}
	require.NoError(t, f.db.Create(jr).Error)
	return jr
}

func (f *fixture) addMember(t *testing.T, userID uuid.UUID, region domain.OrganizationRegion, number, email, idNumber string) {
	require.NoError(t, f.db.Create(&domain.OrganizationMember{
		UserID:           userID,
		OrganizationID:   f.org.ID,
		RegionID:         region.ID,
		MemberNumber:     number,
		MemberType:       "member",
		MembershipStatus: domain.MembershipActive,
		FirstName:        "Existing",
		LastName:         "Member",
		Email:            email,
		IDNumber:         idNumber,
	}).Error)
}

type fakeIdentities struct {
	createErr    error
	created      []string
	visibleAfter int
	existsCalls  int
	id           uuid.UUID
}

func (f *fakeIdentities) CreateUser(ctx context.Context, email, password string, metadata map[string]interface{}) (uuid.UUID, error) {
	if f.createErr != nil {
		return uuid.Nil, f.createErr
	}
	f.created = append(f.created, email)
	if f.id == uuid.Nil {
		f.id = uuid.New()
	}
	return f.id, nil
}

func (f *fakeIdentities) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	f.existsCalls++
	return f.existsCalls > f.visibleAfter, nil
}

type registerReply struct {
	res *domain.RegistrationResult
	err error
}

// fakeRegistrar replays replies in order and repeats the last one.
type fakeRegistrar struct {
	replies []registerReply
	calls   []domain.RegistrationParams
}

func (f *fakeRegistrar) Register(ctx context.Context, p domain.RegistrationParams) (*domain.RegistrationResult, error) {
	f.calls = append(f.calls, p)
	i := len(f.calls) - 1
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i].res, f.replies[i].err
}

func created(number string) registerReply {
	return registerReply{res: &domain.RegistrationResult{
		Success:          true,
		Action:           domain.RegistrationActionCreated,
		MemberNumber:     number,
		MembershipStatus: domain.MembershipPendingVerification,
	}}
}

func userNotFound() registerReply {
	return registerReply{res: &domain.RegistrationResult{Code: domain.RegistrationUserNotFound}}
}

type fakeUsage struct {
	ids []uuid.UUID
	err error
}

func (f *fakeUsage) IncrementUsage(ctx context.Context, codeID uuid.UUID) (bool, error) {
	f.ids = append(f.ids, codeID)
	return f.err == nil, f.err
}

type fakeQueue struct {
	ids []uuid.UUID
}

func (f *fakeQueue) Push(ctx context.Context, codeID uuid.UUID) error {
	f.ids = append(f.ids, codeID)
	return nil
}

type fakeSender struct {
	welcomes []emailsvc.WelcomeMessage
}

func (f *fakeSender) SendWelcome(ctx context.Context, msg emailsvc.WelcomeMessage) error {
	f.welcomes = append(f.welcomes, msg)
	return errors.New("smtp down")
}

func (f *fakeSender) SendInviteCode(ctx context.Context, msg emailsvc.InviteCodeMessage) error {
	return nil
}

type harness struct {
	*fixture
	redeemer   *Redeemer
	identities *fakeIdentities
	registrar  *fakeRegistrar
	usage      *fakeUsage
	queue      *fakeQueue
	sender     *fakeSender
	sleeps     []time.Duration
}

func newHarness(t *testing.T, replies ...registerReply) *harness {
	h := &harness{
		fixture:    setup(t),
		identities: &fakeIdentities{},
		registrar:  &fakeRegistrar{replies: replies},
		usage:      &fakeUsage{},
		queue:      &fakeQueue{},
		sender:     &fakeSender{},
	}
	h.redeemer = &Redeemer{
		DB:          h.db,
		Verifier:    h.verifier(),
		Identities:  h.identities,
		Registrar:   h.registrar,
		Usage:       h.usage,
		RetryQueue:  h.queue,
		EmailSender: h.sender,
		Now:         h.clock,
		Sleep: func(ctx context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			return nil
		},
		RandN:             func(n int) int { return 2345 },
		VisibilityBackOff: func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	}
	return h
}

func applicant(code string) RedeemInput {
	dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	return RedeemInput{
		Code:            code,
		FirstName:       "Thandi",
		LastName:        "Mokoena",
		Email:           "Thandi@Example.com ",
		Phone:           "+27821234567",
		IDNumber:        "9001011234567",
		DateOfBirth:     &dob,
		PhysicalAddress: "12 Vilakazi St, Soweto",
		MemberType:      "learner",
		Password:        "s3cure-pass",
	}
}
