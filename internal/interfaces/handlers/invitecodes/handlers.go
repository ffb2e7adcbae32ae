package invitecodes

import (
	"errors"

	icsvc "soa-backend/internal/application/invitecodes"
	policies "soa-backend/internal/application/policies/invitecodes"
	"soa-backend/internal/middleware"
	"soa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *icsvc.Service
}

type createCodeRequest struct {
	RegionID           string   `json:"region_id"`
	Description        string   `json:"description"`
	AllowedMemberTypes []string `json:"allowed_member_types"`
	MaxUses            *int     `json:"max_uses"`
	ExpiryDays         *int     `json:"expiry_days"`
	Branch             bool     `json:"branch"`
}

// POST /api/v1/invite-codes/create-code (ISSUE_INVITE_CODE permission via middleware)
func (h *Handlers) CreateCode(c *fiber.Ctx) error {
	var body createCodeRequest
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	actor, err := getActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	in := icsvc.IssueCodeInput{
		Actor:              actor,
		Description:        body.Description,
		AllowedMemberTypes: body.AllowedMemberTypes,
		MaxUses:            body.MaxUses,
		ExpiryDays:         body.ExpiryDays,
		Branch:             body.Branch,
	}
	if body.RegionID != "" {
		id, err := uuid.Parse(body.RegionID)
		if err != nil {
			return response.Error(c, "Invalid region_id", fiber.StatusBadRequest, nil)
		}
		in.RegionID = &id
	}

	code, err := h.Service.IssueCode(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return response.SuccessCreated(c, "Invite code created successfully", code, nil)
}

// GET /api/v1/invite-codes/view-codes?region_id=&active=true
func (h *Handlers) ViewCodes(c *fiber.Ctx) error {
	actor, err := getActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	if actor.OrgID == nil {
		return response.Error(c, policies.ErrNoOrganization.Error(), fiber.StatusForbidden, nil)
	}
	in := icsvc.ListCodesInput{OrgID: *actor.OrgID, ActiveOnly: c.QueryBool("active")}
	if r := c.Query("region_id"); r != "" {
		id, err := uuid.Parse(r)
		if err != nil {
			return response.Error(c, "Invalid region_id", fiber.StatusBadRequest, nil)
		}
		in.RegionID = &id
	}
	codes, err := h.Service.ListCodes(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Invite codes retrieved successfully", codes, fiber.Map{"count": len(codes)})
}

// PATCH /api/v1/invite-codes/toggle-code/:id
func (h *Handlers) ToggleCode(c *fiber.Ctx) error {
	var body struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.BodyParser(&body); err != nil || body.IsActive == nil {
		return response.Error(c, "is_active is required", fiber.StatusBadRequest, nil)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid invite code id", fiber.StatusBadRequest, nil)
	}
	actor, err := getActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	code, err := h.Service.SetActive(c.UserContext(), icsvc.SetActiveInput{Actor: actor, CodeID: id, Active: *body.IsActive})
	if err != nil {
		return respondError(c, err)
	}
	msg := "Invite code deactivated"
	if code.IsActive {
		msg = "Invite code activated"
	}
	return response.Success(c, msg, code, nil)
}

// POST /api/v1/invite-codes/share-code/:id
func (h *Handlers) ShareCode(c *fiber.Ctx) error {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&body); err != nil || body.Email == "" {
		return response.Error(c, "Email is required", fiber.StatusBadRequest, nil)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid invite code id", fiber.StatusBadRequest, nil)
	}
	actor, err := getActor(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	if err := h.Service.ShareCode(c.UserContext(), icsvc.ShareCodeInput{Actor: actor, CodeID: id, Email: body.Email}); err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Invite code sent successfully", nil, nil)
}

func getActor(c *fiber.Ctx) (policies.Actor, error) {
	u := middleware.CurrentUser(c)
	if u == nil {
		return policies.Actor{}, errors.New("no session user")
	}
	uid, err := uuid.Parse(u.UserID)
	if err != nil {
		return policies.Actor{}, err
	}
	actor := policies.Actor{UserID: uid, Role: u.Role}
	if u.OrgID != nil {
		if id, err := uuid.Parse(*u.OrgID); err == nil {
			actor.OrgID = &id
		}
	}
	if u.RegionID != nil {
		if id, err := uuid.Parse(*u.RegionID); err == nil {
			actor.RegionID = &id
		}
	}
	return actor, nil
}

func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, policies.ErrNoOrganization),
		errors.Is(err, policies.ErrNotManager),
		errors.Is(err, policies.ErrOwnRegionOnly),
		errors.Is(err, policies.ErrBranchCodesOnly),
		errors.Is(err, policies.ErrRegionOutsideOrg):
		return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
	case errors.Is(err, policies.ErrRegionNotFound),
		errors.Is(err, icsvc.ErrCodeNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, policies.ErrRegionInactive),
		errors.Is(err, icsvc.ErrMemberTypesRequired),
		errors.Is(err, icsvc.ErrUnknownMemberType),
		errors.Is(err, icsvc.ErrInvalidMaxUses),
		errors.Is(err, icsvc.ErrInvalidExpiryDays),
		errors.Is(err, icsvc.ErrInvalidEmail):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, icsvc.ErrCodeCollision):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	case errors.Is(err, icsvc.ErrEmailUnavailable):
		return response.Error(c, err.Error(), fiber.StatusServiceUnavailable, nil)
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("invite code request failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, fiber.Map{"error": err.Error()})
	}
}
