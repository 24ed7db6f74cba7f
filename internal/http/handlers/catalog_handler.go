package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"wapistore/internal/apperr"
	applog "wapistore/internal/log"
	"wapistore/internal/services"
	"wapistore/internal/validate"
)

type CatalogHandler struct {
	Catalog *services.CatalogService
}

type catalogRequest struct {
	ID          string           `json:"id"`
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description" validate:"required,max=5000"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Quantity    *int             `json:"quantity" validate:"required,gte=0"`
	File        string           `json:"file" validate:"omitempty,url,max=2048"`
}

// bindCatalog accepts the fields either at the top level or wrapped in "data".
func bindCatalog(c *fiber.Ctx) (catalogRequest, error) {
	var wrapped struct {
		Data *catalogRequest `json:"data"`
	}
	var req catalogRequest
	if err := bind(c, &wrapped); err != nil {
		return req, err
	}
	if wrapped.Data != nil {
		req = *wrapped.Data
	} else if err := json.Unmarshal(c.Body(), &req); err != nil {
		return req, apperr.Wrap(apperr.KindValidation, err, "invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return req, err
	}
	return req, nil
}

func (r catalogRequest) input() services.CatalogInput {
	return services.CatalogInput{
		Title:       r.Title,
		Description: r.Description,
		Price:       *r.Price,
		Quantity:    *r.Quantity,
		File:        r.File,
	}
}

// GET /businessApi
func (h *CatalogHandler) List(c *fiber.Ctx) error {
	items, err := h.Catalog.List(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, items)
}

// GET /businessApi/:id
func (h *CatalogHandler) Get(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return apperr.Validation("invalid id")
	}
	it, err := h.Catalog.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, it)
}

// POST /businessApi
func (h *CatalogHandler) Create(c *fiber.Ctx) error {
	req, err := bindCatalog(c)
	if err != nil {
		return err
	}
	it, err := h.Catalog.Create(c.UserContext(), req.input())
	if err != nil {
		return err
	}
	applog.Audit(c, "catalog.create", map[string]any{"item_id": it.ID, "quantity": it.Quantity, "price": it.Price.String()})
	return okMsg(c, fiber.StatusCreated, "catalog item created", it)
}

// PUT /businessApi/:id, or PUT /businessApi with the id in the body.
func (h *CatalogHandler) Update(c *fiber.Ctx) error {
	req, err := bindCatalog(c)
	if err != nil {
		return err
	}
	raw := c.Params("id")
	if raw == "" {
		raw = req.ID
	}
	id, valid := validate.ID(raw)
	if !valid {
		return apperr.Validation("id is required")
	}
	it, err := h.Catalog.Update(c.UserContext(), id, req.input())
	if err != nil {
		return err
	}
	applog.Audit(c, "catalog.update", map[string]any{"item_id": it.ID, "quantity": it.Quantity, "price": it.Price.String()})
	return okMsg(c, fiber.StatusOK, "catalog item updated", it)
}

// DELETE /businessApi/:id, or DELETE /businessApi with {"id": ...}.
func (h *CatalogHandler) Delete(c *fiber.Ctx) error {
	raw := c.Params("id")
	if raw == "" {
		var body struct {
			ID string `json:"id"`
		}
		if err := bindOptional(c, &body); err != nil {
			return err
		}
		raw = body.ID
	}
	id, valid := validate.ID(raw)
	if !valid {
		return apperr.Validation("id is required")
	}
	if err := h.Catalog.Delete(c.UserContext(), id); err != nil {
		return err
	}
	applog.Audit(c, "catalog.delete", map[string]any{"item_id": id})
	return okMsg(c, fiber.StatusOK, "catalog item deleted", fiber.Map{"id": id})
}
