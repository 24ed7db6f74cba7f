package handlers

import (
	"github.com/gofiber/fiber/v2"

	"wapistore/internal/apperr"
	"wapistore/internal/domain"
	applog "wapistore/internal/log"
	"wapistore/internal/metrics"
	"wapistore/internal/services"
	"wapistore/internal/validate"
)

// AdminHandler serves /admin/users.
type AdminHandler struct {
	Users   *services.UserService
	Metrics *metrics.Metrics
}

type userCreateRequest struct {
	Email    string `json:"email" validate:"required,basic_email"`
	Name     string `json:"name" validate:"required,max=100"`
	Role     string `json:"role" validate:"omitempty,role"`
	Password string `json:"password"`
}

type userUpdateRequest struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
	Role  *string `json:"role"`
}

// GET /admin/users
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.Users.List(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, users)
}

// GET /admin/users/:id
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return apperr.NotFound("user not found")
	}
	u, err := h.Users.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, u)
}

// POST /admin/users
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req userCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := validate.Struct(&req); err != nil {
		return err
	}
	if req.Password != "" && !validate.Password(req.Password) {
		return apperr.Validation("password must be 8 to 72 characters with upper, lower, digit and symbol")
	}
	u, err := h.Users.Create(c.UserContext(), Caller(c), services.UserInput{
		Email:    req.Email,
		Name:     req.Name,
		Role:     domain.Role(req.Role),
		Password: req.Password,
	})
	if err != nil {
		h.denied(c, err, "")
		return err
	}
	applog.Audit(c, "admin.users.create", map[string]any{"target_id": u.ID, "role": string(u.Role)})
	return okMsg(c, fiber.StatusCreated, "user created", u)
}

// PUT /admin/users/:id
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return apperr.NotFound("user not found")
	}
	var req userUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	var p services.UserPatch
	if req.Email != nil {
		email, valid := validate.Email(*req.Email)
		if !valid {
			return apperr.Validation("email must be a valid email")
		}
		p.Email = &email
	}
	if req.Name != nil {
		name, valid := validate.Name(*req.Name)
		if !valid {
			return apperr.Validation("name must be 1 to 100 characters")
		}
		p.Name = &name
	}
	if req.Role != nil {
		role, err := domain.ParseRole(*req.Role)
		if err != nil {
			return apperr.Validation("role must be one of USER, ADMIN, SUPER_ADMIN")
		}
		p.Role = &role
	}
	u, err := h.Users.Update(c.UserContext(), Caller(c), id, p)
	if err != nil {
		h.denied(c, err, id)
		return err
	}
	applog.Audit(c, "admin.users.update", map[string]any{"target_id": u.ID, "role": string(u.Role)})
	return okMsg(c, fiber.StatusOK, "user updated", u)
}

// DELETE /admin/users/:id
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return apperr.NotFound("user not found")
	}
	if err := h.Users.Delete(c.UserContext(), Caller(c), id); err != nil {
		h.denied(c, err, id)
		return err
	}
	applog.Audit(c, "admin.users.delete", map[string]any{"target_id": id})
	return okMsg(c, fiber.StatusOK, "user deleted", fiber.Map{"id": id})
}

func (h *AdminHandler) denied(c *fiber.Ctx, err error, target string) {
	if apperr.KindOf(err) == apperr.KindUnauthorized {
		h.Metrics.AccessDenied()
		applog.Security(c, "access.denied", map[string]any{"target_id": target, "role": string(Caller(c).Role)})
	}
}
