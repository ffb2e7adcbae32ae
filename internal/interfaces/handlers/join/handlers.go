package join

import (
	"errors"
	"strings"
	"time"

	"soa-backend/internal/application/drafts"
	joinsvc "soa-backend/internal/application/join"
	"soa-backend/internal/pkg/response"
	"soa-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const dateLayout = "2006-01-02"

// Handlers serves the public join flow. Drafts is optional.
type Handlers struct {
	Verifier *joinsvc.Verifier
	Redeemer *joinsvc.Redeemer
	Drafts   drafts.Store
}

type namedRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Code string    `json:"code,omitempty"`
}

type inviteView struct {
	Code               string     `json:"code"`
	Kind               string     `json:"kind"`
	Organization       namedRef   `json:"organization"`
	Region             namedRef   `json:"region"`
	AllowedMemberTypes []string   `json:"allowed_member_types"`
	DefaultMemberType  string     `json:"default_member_type"`
	ExpiresAt          *time.Time `json:"expires_at"`
	MemberCount        int64      `json:"member_count"`
}

func toInviteView(inv *joinsvc.Invite) inviteView {
	return inviteView{
		Code:               inv.Code,
		Kind:               string(inv.Kind),
		Organization:       namedRef{ID: inv.Organization.ID, Name: inv.Organization.Name},
		Region:             namedRef{ID: inv.Region.ID, Name: inv.Region.Name, Code: inv.Region.Code},
		AllowedMemberTypes: inv.AllowedMemberTypes,
		DefaultMemberType:  inv.DefaultMemberType,
		ExpiresAt:          inv.ExpiresAt,
		MemberCount:        inv.MemberCount,
	}
}

// VerifyCode POST /api/v1/join/public/verify-code
func (h *Handlers) VerifyCode(c *fiber.Ctx) error {
	var body struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&body); err != nil || strings.TrimSpace(body.Code) == "" {
		return response.Error(c, "Invite code is required", fiber.StatusBadRequest, nil)
	}
	inv, err := h.Verifier.Verify(c.UserContext(), body.Code)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Invite code is valid", toInviteView(inv), nil)
}

type redeemRequest struct {
	Code            string `json:"code"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	IDNumber        string `json:"id_number"`
	DateOfBirth     string `json:"date_of_birth"`
	PhysicalAddress string `json:"physical_address"`
	MemberType      string `json:"member_type"`
	Password        string `json:"password"`
	DraftKey        string `json:"draft_key"`
}

// RedeemCode POST /api/v1/join/public/redeem-code
func (h *Handlers) RedeemCode(c *fiber.Ctx) error {
	var body redeemRequest
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	in := joinsvc.RedeemInput{
		Code:            body.Code,
		FirstName:       body.FirstName,
		LastName:        body.LastName,
		Email:           body.Email,
		Phone:           body.Phone,
		IDNumber:        body.IDNumber,
		PhysicalAddress: body.PhysicalAddress,
		MemberType:      body.MemberType,
		Password:        body.Password,
	}
	if s := strings.TrimSpace(body.DateOfBirth); s != "" {
		dob, err := time.Parse(dateLayout, s)
		if err != nil {
			return response.Error(c, "date_of_birth must be YYYY-MM-DD", fiber.StatusBadRequest, nil)
		}
		in.DateOfBirth = &dob
	}

	res, err := h.Redeemer.Redeem(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	if h.Drafts != nil && body.DraftKey != "" {
		if err := h.Drafts.Clear(c.UserContext(), body.DraftKey); err != nil {
			log.Warn().Err(err).Msg("join: failed to clear draft after registration")
		}
	}
	return response.SuccessCreated(c, "Registration successful", res, nil)
}

// SaveDraft PUT /api/v1/join/public/drafts/:key
func (h *Handlers) SaveDraft(c *fiber.Ctx) error {
	if h.Drafts == nil {
		return response.Error(c, "Drafts are unavailable", fiber.StatusServiceUnavailable, nil)
	}
	if err := h.Drafts.Save(c.UserContext(), c.Params("key"), c.Body(), drafts.DefaultTTL); err != nil {
		return respondDraftError(c, err)
	}
	return response.Success(c, "Draft saved", nil, nil)
}

// LoadDraft GET /api/v1/join/public/drafts/:key
func (h *Handlers) LoadDraft(c *fiber.Ctx) error {
	if h.Drafts == nil {
		return response.Error(c, "Drafts are unavailable", fiber.StatusServiceUnavailable, nil)
	}
	payload, err := h.Drafts.Load(c.UserContext(), c.Params("key"))
	if err != nil {
		return respondDraftError(c, err)
	}
	return response.Success(c, "Draft retrieved", payload, nil)
}

// ClearDraft DELETE /api/v1/join/public/drafts/:key
func (h *Handlers) ClearDraft(c *fiber.Ctx) error {
	if h.Drafts == nil {
		return response.Error(c, "Drafts are unavailable", fiber.StatusServiceUnavailable, nil)
	}
	if err := h.Drafts.Clear(c.UserContext(), c.Params("key")); err != nil {
		return respondDraftError(c, err)
	}
	return response.Success(c, "Draft cleared", nil, nil)
}

func respondError(c *fiber.Ctx, err error) error {
	var verrs validation.Errors
	var regErr *joinsvc.RegistrationError
	switch {
	case errors.As(err, &verrs):
		return response.Error(c, "Validation failed", fiber.StatusBadRequest, verrs)
	case errors.Is(err, joinsvc.ErrInvalidCode):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, joinsvc.ErrCodeExpired), errors.Is(err, joinsvc.ErrCodeExhausted):
		return response.Error(c, err.Error(), fiber.StatusGone, nil)
	case errors.Is(err, joinsvc.ErrMemberTypeNotAllowed):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, joinsvc.ErrEmailAlreadyRegistered), errors.Is(err, joinsvc.ErrIDNumberAlreadyRegistered):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	case errors.Is(err, joinsvc.ErrAccountBeingCreated):
		return response.Error(c, err.Error(), fiber.StatusServiceUnavailable, nil)
	case errors.Is(err, joinsvc.ErrRegionUnresolved):
		return response.Error(c, err.Error(), fiber.StatusUnprocessableEntity, nil)
	case errors.As(err, &regErr):
		return response.Error(c, regErr.Error(), fiber.StatusUnprocessableEntity, fiber.Map{"code": regErr.Code})
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("join request failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}

func respondDraftError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, drafts.ErrDraftNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, drafts.ErrInvalidKey), errors.Is(err, drafts.ErrInvalidPayload):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, drafts.ErrPayloadTooBig):
		return response.Error(c, err.Error(), fiber.StatusRequestEntityTooLarge, nil)
	default:
		log.Error().Err(err).Msg("draft store failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
}
