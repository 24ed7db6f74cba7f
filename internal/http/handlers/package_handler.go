package handlers

import (
	"github.com/gofiber/fiber/v2"

	"wapistore/internal/apperr"
	"wapistore/internal/domain"
	applog "wapistore/internal/log"
	"wapistore/internal/services"
	"wapistore/internal/validate"
)

type PackageHandler struct {
	Packages *services.PackageService
}

type pricingRequest struct {
	Setup     string `json:"setup" validate:"required,max=200"`
	Messaging string `json:"messaging" validate:"required,max=200"`
	Note      string `json:"note" validate:"max=500"`
}

type packageRequest struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Subtitle    string          `json:"subtitle" validate:"required,max=200"`
	Icon        string          `json:"icon" validate:"required,max=100"`
	Gradient    string          `json:"gradient" validate:"required,max=200"`
	BgGradient  string          `json:"bgGradient" validate:"required,max=200"`
	BorderColor string          `json:"borderColor" validate:"required,max=100"`
	Badge       string          `json:"badge" validate:"required,max=100"`
	Features    []string        `json:"features" validate:"required,min=1,max=50,dive,max=300"`
	Pricing     *pricingRequest `json:"pricing" validate:"required"`
	Popular     bool            `json:"popular"`
	Instant     bool            `json:"instant"`
}

// GET /packages
func (h *PackageHandler) List(c *fiber.Ctx) error {
	out, err := h.Packages.List(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, out)
}

// GET /packages/:id
func (h *PackageHandler) Get(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return apperr.Validation("invalid id")
	}
	p, err := h.Packages.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, p)
}

// POST /packages
func (h *PackageHandler) Create(c *fiber.Ctx) error {
	var req packageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := validate.Struct(&req); err != nil {
		return err
	}
	p, err := h.Packages.Create(c.UserContext(), domain.Package{
		Name:        req.Name,
		Subtitle:    req.Subtitle,
		Icon:        req.Icon,
		Gradient:    req.Gradient,
		BgGradient:  req.BgGradient,
		BorderColor: req.BorderColor,
		Badge:       req.Badge,
		Features:    req.Features,
		Popular:     req.Popular,
		Instant:     req.Instant,
		Pricing:     domain.Pricing{Setup: req.Pricing.Setup, Messaging: req.Pricing.Messaging, Note: req.Pricing.Note},
	})
	if err != nil {
		return err
	}
	applog.Audit(c, "package.create", map[string]any{"package_id": p.ID, "name": p.Name})
	return okMsg(c, fiber.StatusCreated, "package created", p)
}

// DELETE /packages/:id
func (h *PackageHandler) Delete(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return apperr.Validation("invalid id")
	}
	if err := h.Packages.Delete(c.UserContext(), id); err != nil {
		return err
	}
	applog.Audit(c, "package.delete", map[string]any{"package_id": id})
	return okMsg(c, fiber.StatusOK, "package deleted", fiber.Map{"id": id})
}
