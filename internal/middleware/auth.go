package middleware

import (
	"soa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		// Attach auth context for handlers (same key)
		c.Locals("auth", user)
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// CurrentUser decodes the session user. It accepts string or *string ids,
// since the map holds pointers until it round-trips through Redis.
func CurrentUser(c *fiber.Ctx) *SessionUser {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return nil
	}
	u := &SessionUser{
		UserID:   optString(m["user_id"]),
		Fullname: optString(m["fullname"]),
		Email:    optString(m["email"]),
		Role:     optString(m["role"]),
	}
	if u.UserID == "" {
		return nil
	}
	if s := optString(m["org_id"]); s != "" {
		u.OrgID = &s
	}
	if s := optString(m["region_id"]); s != "" {
		u.RegionID = &s
	}
	return u
}

func optString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case *string:
		if s != nil {
			return *s
		}
	}
	return ""
}
