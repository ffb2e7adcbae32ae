package uploads

import (
	"errors"

	uploadsvc "soa-backend/internal/application/uploads"
	"soa-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service *uploadsvc.Service
}

type uploadRequest struct {
	FileName string `json:"file_name"`
}

// IDDocument POST /api/v1/uploads/id-document
func (h *Handlers) IDDocument(c *fiber.Ctx) error {
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}

	res, err := h.Service.SignIDDocument(c.UserContext(), req.FileName)
	switch {
	case errors.Is(err, uploadsvc.ErrFileNameRequired), errors.Is(err, uploadsvc.ErrUnsupportedFileType):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case err != nil:
		log.Error().Err(err).Str("bucket", uploadsvc.DocumentsBucket).Msg("upload: failed to generate signed URL")
		return response.Error(c, "Failed to generate upload URL", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Upload URL generated", res, nil)
}
