package org

import (
	"errors"

	orgsvc "soa-backend/internal/application/org"
	"soa-backend/internal/middleware"
	"soa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handlers bundles org handlers with dependencies.
type Handlers struct {
	Service *orgsvc.Service
}

func sessionOrgID(c *fiber.Ctx) (uuid.UUID, bool) {
	u := middleware.CurrentUser(c)
	if u == nil || u.OrgID == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(*u.OrgID)
	return id, err == nil
}

// ViewOrg GET /api/v1/orgs/view-org
func (h *Handlers) ViewOrg(c *fiber.Ctx) error {
	orgID, ok := sessionOrgID(c)
	if !ok {
		return response.Error(c, "User is not associated with any organization", fiber.StatusForbidden, nil)
	}
	view, err := h.Service.ViewOrg(c.UserContext(), orgID)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Organization retrieved successfully", view, nil)
}

// ToggleRegion PATCH /api/v1/orgs/toggle-region/:id
func (h *Handlers) ToggleRegion(c *fiber.Ctx) error {
	orgID, ok := sessionOrgID(c)
	if !ok {
		return response.Error(c, "User is not associated with any organization", fiber.StatusForbidden, nil)
	}
	regionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid region id", fiber.StatusBadRequest, nil)
	}
	var body struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.BodyParser(&body); err != nil || body.IsActive == nil {
		return response.Error(c, "is_active is required", fiber.StatusBadRequest, nil)
	}
	region, err := h.Service.SetRegionActive(c.UserContext(), orgID, regionID, *body.IsActive)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Region updated successfully", region, nil)
}

func respondError(c *fiber.Ctx, err error) error {
	if errors.Is(err, orgsvc.ErrOrgNotFound) || errors.Is(err, orgsvc.ErrRegionNotFound) {
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("org request failed")
	return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
}
