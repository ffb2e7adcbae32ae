package members

import (
	"errors"

	membersvc "soa-backend/internal/application/members"
	"soa-backend/internal/middleware"
	"soa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *membersvc.Service
}

// ViewMembers GET /api/v1/members/view-members?region_id=&status=
// Regional and branch managers only see their own region.
func (h *Handlers) ViewMembers(c *fiber.Ctx) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	if u.OrgID == nil {
		return response.Error(c, "User is not associated with any organization", fiber.StatusForbidden, nil)
	}
	orgID, err := uuid.Parse(*u.OrgID)
	if err != nil {
		return response.Error(c, "User is not associated with any organization", fiber.StatusForbidden, nil)
	}

	in := membersvc.ListMembersInput{OrgID: orgID, Status: c.Query("status")}
	if r := c.Query("region_id"); r != "" {
		id, err := uuid.Parse(r)
		if err != nil {
			return response.Error(c, "Invalid region_id", fiber.StatusBadRequest, nil)
		}
		in.RegionID = &id
	}
	if own, scoped := middleware.RegionScope(c); scoped {
		if own == nil || (in.RegionID != nil && *in.RegionID != *own) {
			return response.Error(c, "You can only view members of your own region", fiber.StatusForbidden, nil)
		}
		in.RegionID = own
	}

	list, err := h.Service.ListMembers(c.UserContext(), in)
	if err != nil {
		if errors.Is(err, membersvc.ErrInvalidStatus) {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		log.Error().Err(err).Msg("members: list failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Members retrieved successfully", list, fiber.Map{"count": len(list)})
}
