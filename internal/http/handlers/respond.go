package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"wapistore/internal/apperr"
	"wapistore/internal/domain"
	applog "wapistore/internal/log"
)

// envelope is the one response shape used by every endpoint.
type envelope struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message,omitempty"`
	Data       any                `json:"data,omitempty"`
	Details    any                `json:"details,omitempty"`
	Pagination *domain.Pagination `json:"pagination,omitempty"`
}

func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(envelope{Success: true, Data: data})
}

func okMsg(c *fiber.Ctx, status int, msg string, data any) error {
	return c.Status(status).JSON(envelope{Success: true, Message: msg, Data: data})
}

func okPage(c *fiber.Ctx, data any, p domain.Pagination) error {
	return c.Status(fiber.StatusOK).JSON(envelope{Success: true, Data: data, Pagination: &p})
}

// ErrorHandler turns any handler error into the error envelope. Internal
// details stay in the log.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		msg := fe.Message
		if fe.Code >= fiber.StatusInternalServerError {
			applog.Error(c, "server.error", err, nil)
			msg = apperr.MetadataFor(apperr.KindInternal).PublicMessage
		}
		return c.Status(fe.Code).JSON(envelope{Success: false, Message: strings.ToLower(msg)})
	}

	kind := apperr.KindOf(err)
	meta := apperr.MetadataFor(kind)
	body := envelope{Success: false, Message: apperr.PublicMessage(err)}
	if typed := apperr.As(err); typed != nil && meta.DetailsAllowed {
		body.Details = typed.Details()
	}
	switch kind {
	case apperr.KindInternal:
		applog.Error(c, "server.error", err, nil)
	case apperr.KindUnavailable:
		applog.Error(c, "store.unavailable", err, nil)
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	return c.Status(meta.HTTPStatus).JSON(body)
}

// bind decodes a JSON body into dest. Unknown fields are ignored.
func bind(c *fiber.Ctx, dest any) error {
	body := c.Body()
	if len(body) == 0 {
		return apperr.Validation("request body is required")
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return apperr.Wrap(apperr.KindValidation, err, "invalid request body")
	}
	return nil
}

// bindOptional is bind for endpoints whose body may be absent.
func bindOptional(c *fiber.Ctx, dest any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return bind(c, dest)
}
