package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"wapistore/internal/apperr"
	applog "wapistore/internal/log"
	"wapistore/internal/services"
	"wapistore/internal/upload"
)

type UploadHandler struct {
	Uploads *services.UploadService
}

// POST /upload (multipart field "file")
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation("file is required")
	}
	if h.Uploads.MaxBytes > 0 && fh.Size > h.Uploads.MaxBytes {
		applog.Security(c, "upload.reject", map[string]any{"reason": "too_large", "size": fh.Size})
		return apperr.Validation("file exceeds %d bytes", h.Uploads.MaxBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "reading upload")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "reading upload")
	}

	res, mediaType, err := h.Uploads.Upload(c.UserContext(), upload.File{Name: fh.Filename, Data: data})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindValidation {
			applog.Security(c, "upload.reject", map[string]any{"reason": apperr.PublicMessage(err)})
		}
		return err
	}
	applog.Audit(c, "upload.ok", map[string]any{"public_id": res.PublicID, "type": mediaType, "bytes": len(data)})
	return ok(c, fiber.StatusOK, res)
}
