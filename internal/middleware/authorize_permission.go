package middleware

import (
	"soa-backend/internal/pkg/constants"
	"soa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const regionScopeLocal = "region_scope"

type regionScope struct {
	id *uuid.UUID
}

// AuthorizePermission checks the session role against constants.PermissionRoles.
// Everyone below national admin is pinned to the region on their session;
// handlers read it back with RegionScope.
func AuthorizePermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetUser(c) == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		u := CurrentUser(c)
		if u == nil || u.Role == "" {
			return response.Error(c, "Authorization error", fiber.StatusInternalServerError, nil)
		}
		roles, ok := constants.PermissionRoles[permission]
		if !ok || len(roles) == 0 {
			return response.Error(c, "Permission configuration error", fiber.StatusInternalServerError, nil)
		}
		if !constants.AllowedRole(permission, u.Role) {
			return response.Error(c, "User is Forbidden from performing this action", fiber.StatusForbidden, nil)
		}
		if u.Role != constants.NationalAdmin {
			scope := regionScope{}
			if u.RegionID != nil {
				if id, err := uuid.Parse(*u.RegionID); err == nil {
					scope.id = &id
				}
			}
			c.Locals(regionScopeLocal, scope)
		}
		return c.Next()
	}
}

// RegionScope returns the region the caller is confined to. scoped is
// false for national admins and for routes without AuthorizePermission; a
// scoped caller with no usable region gets a nil id.
func RegionScope(c *fiber.Ctx) (id *uuid.UUID, scoped bool) {
	s, ok := c.Locals(regionScopeLocal).(regionScope)
	if !ok {
		return nil, false
	}
	return s.id, true
}
