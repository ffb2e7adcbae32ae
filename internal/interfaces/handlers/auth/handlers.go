package auth

import (
	"errors"

	authsvc "soa-backend/internal/application/auth"
	"soa-backend/internal/middleware"
	"soa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const userSessionsPrefix = "user_sessions:"

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	UserFinder authsvc.UserFinder
	Rdb        *redis.Client
	Config     middleware.SessionConfig
}

// LoginRequest body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login POST /api/v1/auth/login: authenticate, create session, SAdd user_sessions:user_id, set cookie.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.UserFinder == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}
	if req.Email == "" || req.Password == "" {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}

	account, err := h.UserFinder.FindByEmailAndPassword(c.UserContext(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrEmailPasswordRequired):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case errors.Is(err, authsvc.ErrInvalidCredentials):
			return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
		case errors.Is(err, authsvc.ErrNoMembership):
			return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
		default:
			log.Error().Err(err).Msg("login failed")
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	sessionID := middleware.RegenerateSessionID(c)
	orgID := nilString(account.OrgID)
	regionID := nilString(account.RegionID)

	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:   account.UserID.String(),
		Fullname: account.Fullname,
		Email:    account.Email,
		Role:     account.Role,
		OrgID:    orgID,
		RegionID: regionID,
	})

	if err := h.Rdb.SAdd(c.UserContext(), userSessionsPrefix+account.UserID.String(), sessionID).Err(); err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	return response.Success(c, "Login successful", fiber.Map{
		"user": fiber.Map{
			"user_id":   account.UserID.String(),
			"fullname":  account.Fullname,
			"email":     account.Email,
			"role":      account.Role,
			"org_id":    orgID,
			"region_id": regionID,
		},
	}, nil)
}

// Me GET /api/v1/auth/me: return current session user.
func (h *Handlers) Me(c *fiber.Ctx) error {
	sessionUser := middleware.GetUser(c)
	if middleware.GetSessionID(c) == "" {
		log.Debug().Str("path", "/auth/me").
			Bool("cookie_present", c.Cookies(middleware.SessionCookieName) != "").
			Msg("auth/me: no session id")
	}

	user, err := authsvc.VerifyUser(normalize(sessionUser))
	if err != nil {
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": user}, nil)
}

// normalize flattens *string values left by SetSessionUser within the
// same request.
func normalize(sessionUser interface{}) interface{} {
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return sessionUser
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if p, ok := v.(*string); ok {
			if p == nil {
				out[k] = nil
			} else {
				out[k] = *p
			}
			continue
		}
		out[k] = v
	}
	return out
}

// Logout DELETE /api/v1/auth/logout: SRem user_sessions:user_id, Del session key, clear cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	ctx := c.UserContext()

	if u := middleware.CurrentUser(c); u != nil && sessionID != "" {
		_ = h.Rdb.SRem(ctx, userSessionsPrefix+u.UserID, sessionID).Err()
	}
	if sessionID != "" {
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}

func nilString(u *uuid.UUID) *string {
	if u == nil {
		return nil
	}
	s := u.String()
	return &s
}
