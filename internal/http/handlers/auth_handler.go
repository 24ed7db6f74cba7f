package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"wapistore/internal/apperr"
	"wapistore/internal/auth"
	"wapistore/internal/log"
	"wapistore/internal/services"
	"wapistore/internal/validate"
)

type AuthHandler struct {
	Auth         *services.AuthService
	Users        *services.UserService
	CookieSecure bool
}

type signupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,basic_email"`
	Password string `json:"password" validate:"required"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) setSession(c *fiber.Ctx, token string, exp time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.CookieSecure,
	})
}

// POST /auth/signup
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := validate.Struct(&req); err != nil {
		return err
	}
	if !validate.Password(req.Password) {
		log.Security(c, "auth.signup.fail", map[string]any{"reason": "weak_password"})
		return apperr.Validation("password must be 8 to 72 characters with upper, lower, digit and symbol").
			WithDetails(map[string]string{"password": "is too weak"})
	}
	u, err := h.Auth.Signup(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			log.Security(c, "auth.signup.fail", map[string]any{"reason": "duplicate_email"})
		}
		return err
	}
	log.Audit(c, "auth.signup", map[string]any{"user_id": u.ID})
	return okMsg(c, fiber.StatusCreated, "account created", u)
}

// POST /auth/signin
func (h *AuthHandler) Signin(c *fiber.Ctx) error {
	var req signinRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if _, valid := validate.Email(req.Email); !valid || req.Password == "" {
		log.Security(c, "auth.login.fail", map[string]any{"reason": "bad_format"})
		return services.ErrBadCreds
	}
	token, exp, u, err := h.Auth.Signin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnauthenticated {
			log.Security(c, "auth.login.fail", nil)
		}
		return err
	}
	h.setSession(c, token, exp)
	c.Locals(log.LocalUserID, u.ID)
	log.Audit(c, "auth.login.success", nil)
	return ok(c, fiber.StatusOK, fiber.Map{"token": token, "expiresAt": exp.UTC(), "user": u})
}

// POST /auth/signout
func (h *AuthHandler) Signout(c *fiber.Ctx) error {
	h.setSession(c, "", time.Now().Add(-time.Hour))
	log.Audit(c, "auth.logout", nil)
	return okMsg(c, fiber.StatusOK, "signed out", nil)
}

// GET /auth/session
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	id := Caller(c)
	if id.Anonymous() {
		return apperr.Unauthenticated()
	}
	u, err := h.Users.Get(c.UserContext(), id.UserID)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, fiber.Map{"user": u, "role": u.Role})
}
