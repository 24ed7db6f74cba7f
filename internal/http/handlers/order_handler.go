package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"wapistore/internal/apperr"
	"wapistore/internal/domain"
	applog "wapistore/internal/log"
	"wapistore/internal/repos"
	"wapistore/internal/services"
	"wapistore/internal/validate"
)

type OrderHandler struct {
	Orders *services.OrderService
}

type orderRequest struct {
	Name                 string           `json:"name" validate:"required,max=100"`
	Email                string           `json:"email" validate:"required,basic_email"`
	ActiveWhatsappNumber string           `json:"activeWhatsappNumber" validate:"required,phone"`
	PaymentMethod        string           `json:"paymentMethod" validate:"required,max=50"`
	File                 string           `json:"file" validate:"required,url,max=2048"`
	ProductID            string           `json:"productId" validate:"required,max=64"`
	ProductName          string           `json:"productName" validate:"required,max=200"`
	Quantity             *int             `json:"quantity" validate:"required,gte=1,lte=10000"`
	TotalPrice           *decimal.Decimal `json:"totalPrice" validate:"required"`
}

type orderPatchRequest struct {
	Status               *string          `json:"status"`
	Name                 *string          `json:"name"`
	Email                *string          `json:"email"`
	ActiveWhatsappNumber *string          `json:"activeWhatsappNumber"`
	PaymentMethod        *string          `json:"paymentMethod"`
	File                 *string          `json:"file"`
	ProductID            *string          `json:"productId"`
	Quantity             *int             `json:"quantity"`
	TotalPrice           *decimal.Decimal `json:"totalPrice"`
}

// patch validates every supplied field before anything is written.
func (r orderPatchRequest) patch() (domain.OrderPatch, error) {
	var p domain.OrderPatch
	details := map[string]string{}
	if r.Status != nil {
		st, err := validate.Status(*r.Status)
		if err != nil {
			details["status"] = "must be one of pending, approved, declined, completed, cancelled"
		}
		p.Status = &st
	}
	if r.Name != nil {
		name, valid := validate.Name(*r.Name)
		if !valid {
			details["name"] = "must be 1 to 100 characters"
		}
		p.Name = &name
	}
	if r.Email != nil {
		email, valid := validate.Email(*r.Email)
		if !valid {
			details["email"] = "must be a valid email"
		}
		p.Email = &email
	}
	if r.ActiveWhatsappNumber != nil {
		phone, valid := validate.Phone(*r.ActiveWhatsappNumber)
		if !valid {
			details["activeWhatsappNumber"] = "must be a valid WhatsApp number"
		}
		p.ActiveWhatsappNumber = &phone
	}
	if r.PaymentMethod != nil {
		pm := validate.Sanitize(*r.PaymentMethod, 50)
		if pm == "" {
			details["paymentMethod"] = "is required"
		}
		p.PaymentMethod = &pm
	}
	if r.File != nil {
		f := validate.Sanitize(*r.File, 2048)
		if f == "" {
			details["file"] = "is required"
		}
		p.File = &f
	}
	if r.ProductID != nil {
		id, valid := validate.ID(*r.ProductID)
		if !valid {
			details["productId"] = "is invalid"
		}
		p.ProductID = &id
	}
	if r.Quantity != nil {
		if *r.Quantity < 1 {
			details["quantity"] = "must be at least 1"
		}
		p.Quantity = r.Quantity
	}
	if r.TotalPrice != nil {
		if r.TotalPrice.IsNegative() {
			details["totalPrice"] = "must not be negative"
		}
		p.TotalPrice = r.TotalPrice
	}
	if len(details) > 0 {
		field := firstKey(details, "status", "email", "name", "activeWhatsappNumber", "paymentMethod", "file", "productId", "quantity", "totalPrice")
		return domain.OrderPatch{}, apperr.Validation("%s %s", field, details[field]).WithDetails(details)
	}
	return p, nil
}

func firstKey(m map[string]string, order ...string) string {
	for _, k := range order {
		if _, found := m[k]; found {
			return k
		}
	}
	return ""
}

// POST /order
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var req orderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := validate.Struct(&req); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"route": "order.create"})
		return err
	}
	o, err := h.Orders.Create(c.UserContext(), Caller(c), services.OrderInput{
		Name:                 req.Name,
		Email:                req.Email,
		ActiveWhatsappNumber: req.ActiveWhatsappNumber,
		PaymentMethod:        req.PaymentMethod,
		File:                 req.File,
		ProductID:            req.ProductID,
		ProductName:          req.ProductName,
		Quantity:             *req.Quantity,
		TotalPrice:           *req.TotalPrice,
	})
	if err != nil {
		return err
	}
	if !req.TotalPrice.Equal(o.TotalPrice) {
		applog.Audit(c, "order.total.mismatch", map[string]any{
			"order_id":     o.ID,
			"client_total": req.TotalPrice.String(),
			"server_total": o.TotalPrice.String(),
		})
	}
	applog.Audit(c, "order.create", map[string]any{"order_id": o.ID, "product_id": o.ProductID, "quantity": o.Quantity})
	return okMsg(c, fiber.StatusCreated, "order created", o)
}

// GET /order
func (h *OrderHandler) List(c *fiber.Ctx) error {
	page, err := validate.QueryInt(c.Query("page"), "page", 1, 1, 1_000_000)
	if err != nil {
		return err
	}
	limit, err := validate.QueryInt(c.Query("limit"), "limit", 10, 1, 100)
	if err != nil {
		return err
	}
	f := domain.OrderFilter{
		PaymentMethod: validate.Sanitize(c.Query("paymentMethod"), 50),
		Search:        validate.Sanitize(c.Query("search"), 100),
		SortBy:        c.Query("sortBy", "createdAt"),
		Page:          page,
		Limit:         limit,
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" && raw != "all" {
		st, err := validate.Status(raw)
		if err != nil {
			return err
		}
		f.Status = st
	}
	if f.PaymentMethod == "all" {
		f.PaymentMethod = ""
	}
	if !repos.SortColumn(f.SortBy) {
		return apperr.Validation("sortBy must be one of createdAt, updatedAt, totalPrice, quantity, status, name")
	}
	if f.SortDesc, err = validate.SortOrder(c.Query("sortOrder")); err != nil {
		return err
	}

	out, pg, err := h.Orders.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return okPage(c, out, pg)
}

// GET /order/:id
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return apperr.NotFound("order not found")
	}
	o, err := h.Orders.Get(c.UserContext(), Caller(c), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, o)
}

// GET /dashboard
func (h *OrderHandler) Dashboard(c *fiber.Ctx) error {
	out, err := h.Orders.Dashboard(c.UserContext(), Caller(c))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, out)
}

// PATCH /order/:id
func (h *OrderHandler) Update(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return apperr.NotFound("order not found")
	}
	var req orderPatchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := req.patch()
	if err != nil {
		applog.Security(c, "validation.fail", map[string]any{"route": "order.update", "order_id": id})
		return err
	}
	o, err := h.Orders.Update(c.UserContext(), id, p)
	if err != nil {
		if p.Status != nil && *p.Status == domain.OrderApproved {
			applog.Audit(c, "order.approve.rejected", map[string]any{"order_id": id, "reason": apperr.PublicMessage(err)})
		}
		return err
	}
	applog.Audit(c, "order.update", map[string]any{"order_id": o.ID, "status": string(o.Status)})
	return okMsg(c, fiber.StatusOK, "order updated", o)
}

// DELETE /order/:id
func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return apperr.NotFound("order not found")
	}
	if err := h.Orders.Delete(c.UserContext(), id); err != nil {
		return err
	}
	applog.Audit(c, "order.delete", map[string]any{"order_id": id})
	return okMsg(c, fiber.StatusOK, "order deleted", fiber.Map{"id": id})
}
