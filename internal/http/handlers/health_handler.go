package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	applog "wapistore/internal/log"
)

// Pinger is anything /healthz should check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Health answers 200 when every dependency responds and 503 otherwise.
func Health(checks map[string]Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		status := fiber.Map{}
		healthy := true
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				healthy = false
				status[name] = "down"
				applog.Error(c, "health.fail", err, map[string]any{"check": name})
				continue
			}
			status[name] = "up"
		}
		code := fiber.StatusOK
		if !healthy {
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{"ok": healthy, "checks": status})
	}
}
