package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"soa-backend/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// AuthClient talks to the Supabase Auth (GoTrue) API. Admin calls use the
// service key; password sign-in uses the anon key. Limiter, when set,
// throttles outbound calls so bursts of redemptions stay under the
// project's auth rate limits.
type AuthClient struct {
	*Client
	AnonKey string
	Limiter *rate.Limiter
}

// NewAuthClient wraps c. rps <= 0 disables throttling.
func NewAuthClient(c *Client, anonKey string, rps float64) *AuthClient {
	a := &AuthClient{Client: c, AnonKey: anonKey}
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		a.Limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return a
}

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (a *AuthClient) wait(ctx context.Context) error {
	if a.Limiter == nil {
		return nil
	}
	return a.Limiter.Wait(ctx)
}

// CreateUser creates a confirmed email/password user and returns its id.
// A taken email returns domain.ErrIdentityExists.
func (a *AuthClient) CreateUser(ctx context.Context, email, password string, metadata map[string]interface{}) (uuid.UUID, error) {
	if err := a.wait(ctx); err != nil {
		return uuid.Nil, err
	}
	body := map[string]interface{}{
		"email":         email,
		"password":      password,
		"email_confirm": true,
		"user_metadata": metadata,
	}
	var out authUser
	if err := a.do(ctx, http.MethodPost, "/auth/v1/admin/users", "", body, &out); err != nil {
		if isEmailTaken(err) {
			return uuid.Nil, domain.ErrIdentityExists
		}
		return uuid.Nil, err
	}
	id, err := uuid.Parse(out.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("supabase: create user returned invalid id %q", out.ID)
	}
	return id, nil
}

func isEmailTaken(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == "email_exists" || apiErr.Code == "user_already_exists" {
		return true
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "already been registered") || strings.Contains(msg, "already registered") ||
		strings.Contains(msg, "already exists")
}

// UserExists reports whether the Auth admin API can see user id.
func (a *AuthClient) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := a.wait(ctx); err != nil {
		return false, err
	}
	var out authUser
	err := a.do(ctx, http.MethodGet, "/auth/v1/admin/users/"+id.String(), "", nil, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	return out.ID != "", nil
}

// SignInWithPassword runs the password grant and returns the user id.
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (uuid.UUID, error) {
	if err := a.wait(ctx); err != nil {
		return uuid.Nil, err
	}
	key := a.AnonKey
	var out struct {
		AccessToken string   `json:"access_token"`
		User        authUser `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := a.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", key, body, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized) {
			return uuid.Nil, domain.ErrInvalidCredentials
		}
		return uuid.Nil, err
	}
	return uuid.Parse(out.User.ID)
}
