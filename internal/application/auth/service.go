package auth

import (
	"context"
	"errors"
	"strings"

	"soa-backend/internal/application/members"
	"soa-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoginInput for login request body.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionUserShape is the object stored in session and returned by /me.
type SessionUserShape struct {
	UserID   string  `json:"user_id"`
	Fullname string  `json:"fullname"`
	Email    string  `json:"email"`
	Role     string  `json:"role"`
	OrgID    *string `json:"org_id"`
	RegionID *string `json:"region_id"`
}

// Account is an authenticated identity resolved to its active membership.
type Account struct {
	UserID   uuid.UUID
	Fullname string
	Email    string
	Role     string
	OrgID    *uuid.UUID
	RegionID *uuid.UUID
}

// UserFinder abstracts user lookup by email+password (production stores or test doubles).
type UserFinder interface {
	FindByEmailAndPassword(ctx context.Context, email, password string) (*Account, error)
}

// PasswordAuthenticator checks credentials against an identity provider.
type PasswordAuthenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (uuid.UUID, error)
}

// SupabaseUserFinder signs in through Supabase Auth and reads the
// membership from the database.
type SupabaseUserFinder struct {
	DB   *gorm.DB
	Auth PasswordAuthenticator
}

func (s *SupabaseUserFinder) FindByEmailAndPassword(ctx context.Context, email, password string) (*Account, error) {
	return LoginUser(ctx, s.DB, s.Auth, LoginInput{Email: email, Password: password})
}

// GormUserFinder checks bcrypt hashes in the local identities table.
type GormUserFinder struct{ DB *gorm.DB }

func (g *GormUserFinder) FindByEmailAndPassword(ctx context.Context, email, password string) (*Account, error) {
	return LoginUser(ctx, g.DB, &members.GormIdentities{DB: g.DB}, LoginInput{Email: email, Password: password})
}

// LoginUser authenticates the credentials and returns the caller's newest
// active membership.
func LoginUser(ctx context.Context, db *gorm.DB, authn PasswordAuthenticator, input LoginInput) (*Account, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, ErrEmailPasswordRequired
	}
	userID, err := authn.SignInWithPassword(ctx, email, input.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	var m domain.OrganizationMember
	err = db.WithContext(ctx).Where("user_id = ? AND membership_status = ?", userID, domain.MembershipActive).
		Order("created_at DESC").First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoMembership
		}
		return nil, err
	}
	orgID, regionID := m.OrganizationID, m.RegionID
	return &Account{
		UserID:   userID,
		Fullname: strings.TrimSpace(m.FirstName + " " + m.LastName),
		Email:    email,
		Role:     m.Role,
		OrgID:    &orgID,
		RegionID: &regionID,
	}, nil
}

// VerifyUser validates session user and returns the shape for /me.
func VerifyUser(sessionUser interface{}) (*SessionUserShape, error) {
	if sessionUser == nil {
		return nil, ErrNotAuthenticated
	}
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return nil, ErrNotAuthenticated
	}
	userID, _ := m["user_id"].(string)
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	return &SessionUserShape{
		UserID:   userID,
		Fullname: str(m["fullname"]),
		Email:    str(m["email"]),
		Role:     str(m["role"]),
		OrgID:    optStr(m["org_id"]),
		RegionID: optStr(m["region_id"]),
	}, nil
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func optStr(v interface{}) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}
