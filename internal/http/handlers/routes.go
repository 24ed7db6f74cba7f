package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"wapistore/internal/auth"
	"wapistore/internal/config"
	applog "wapistore/internal/log"
)

// Limits groups the request-rate settings. Zero values take the defaults.
type Limits struct {
	GlobalMax    int
	GlobalWindow time.Duration
	SigninMax    int
	SigninWindow time.Duration
}

func (l Limits) withDefaults() Limits {
	if l.GlobalMax == 0 {
		l.GlobalMax = 120
	}
	if l.GlobalWindow == 0 {
		l.GlobalWindow = time.Minute
	}
	if l.SigninMax == 0 {
		l.SigninMax = 5
	}
	if l.SigninWindow == 0 {
		l.SigninWindow = 10 * time.Minute
	}
	return l
}

// NewApp builds the Fiber app with middleware and every route mounted.
// storage backs the limiters; nil keeps them in memory.
func NewApp(cfg config.Config, d *Deps, storage fiber.Storage, lim Limits) *fiber.App {
	lim = lim.withDefaults()
	app := fiber.New(fiber.Config{
		AppName:      "wapistore",
		BodyLimit:    cfg.BodyLimit,
		ErrorHandler: ErrorHandler,
	})

	app.Use(requestid.New())
	app.Use(applog.Access())
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        lim.GlobalMax,
		Expiration: lim.GlobalWindow,
		Storage:    storage,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/healthz" || c.Path() == "/metrics"
		},
		LimitReached: tooMany("rate.global.hit"),
	}))
	app.Use(Identify(d.Auth))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "header:X-Csrf-Token",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   cfg.CookieSecure,
		Expiration:     time.Hour,
		Storage:        storage,
		// only cookie sessions ride along on cross-site requests
		Next: func(c *fiber.Ctx) bool {
			return hasBearer(c) || c.Cookies(auth.CookieName) == ""
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).JSON(envelope{Success: false, Message: "forbidden"})
		},
	}))

	Mount(app, d, storage, lim)
	return app
}

// Mount registers the route table on app.
func Mount(app *fiber.App, d *Deps, storage fiber.Storage, lim Limits) {
	lim = lim.withDefaults()
	m := d.Metrics
	staff := RequireRole(m, auth.Staff...)
	superOnly := RequireRole(m, auth.SuperOnly...)
	user := RequireUser(m)

	app.Get("/healthz", Health(d.Checks))
	app.Get("/metrics", m.Handler())

	authG := app.Group("/auth")
	authG.Post("/signup", d.AuthHandler.Signup)
	authG.Post("/signin", limiter.New(limiter.Config{
		Max:        lim.SigninMax,
		Expiration: lim.SigninWindow,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "signin|" + c.IP()
		},
		LimitReached: tooMany("rate.login.hit"),
	}), d.AuthHandler.Signin)
	authG.Post("/signout", d.AuthHandler.Signout)
	authG.Get("/session", d.AuthHandler.Session)

	catalog := app.Group("/businessApi")
	catalog.Get("/", d.CatalogHandler.List)
	catalog.Get("/:id", d.CatalogHandler.Get)
	catalog.Post("/", staff, d.CatalogHandler.Create)
	catalog.Put("/", staff, d.CatalogHandler.Update)
	catalog.Put("/:id", staff, d.CatalogHandler.Update)
	catalog.Delete("/", staff, d.CatalogHandler.Delete)
	catalog.Delete("/:id", staff, d.CatalogHandler.Delete)

	pkgs := app.Group("/packages")
	pkgs.Get("/", d.PackageHandler.List)
	pkgs.Get("/:id", d.PackageHandler.Get)
	pkgs.Post("/", staff, d.PackageHandler.Create)
	pkgs.Delete("/:id", staff, d.PackageHandler.Delete)

	orders := app.Group("/order")
	orders.Post("/", user, d.OrderHandler.Create)
	orders.Get("/", staff, d.OrderHandler.List)
	orders.Get("/:id", user, d.OrderHandler.Get)
	orders.Patch("/:id", staff, d.OrderHandler.Update)
	orders.Delete("/:id", staff, d.OrderHandler.Delete)
	app.Get("/dashboard", user, d.OrderHandler.Dashboard)

	// every /admin path is staff-gated, unknown ones included
	admin := app.Group("/admin", staff)
	users := admin.Group("/users")
	users.Get("/", d.AdminHandler.ListUsers)
	users.Post("/", d.AdminHandler.CreateUser)
	users.Get("/:id", d.AdminHandler.GetUser)
	users.Put("/:id", d.AdminHandler.UpdateUser)
	users.Delete("/:id", superOnly, d.AdminHandler.DeleteUser)

	app.Post("/upload", user, d.UploadHandler.Upload)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(envelope{Success: false, Message: "route not found"})
	})
}

func tooMany(action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		applog.Security(c, action, nil)
		return c.Status(fiber.StatusTooManyRequests).JSON(envelope{Success: false, Message: "too many requests, retry later"})
	}
}
