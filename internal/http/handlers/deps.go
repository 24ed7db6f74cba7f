package handlers

import (
	"context"

	"github.com/jmoiron/sqlx"

	"wapistore/internal/auth"
	"wapistore/internal/config"
	"wapistore/internal/events"
	"wapistore/internal/metrics"
	"wapistore/internal/repos"
	"wapistore/internal/services"
	"wapistore/internal/upload"
)

// External carries the collaborators that live outside the database.
type External struct {
	Events  events.Publisher
	Relay   upload.Relay
	Metrics *metrics.Metrics
	// Checks are extra /healthz probes; the database is always checked.
	Checks map[string]Pinger
}

type Deps struct {
	Auth    *services.AuthService
	Metrics *metrics.Metrics

	AuthHandler    *AuthHandler
	AdminHandler   *AdminHandler
	CatalogHandler *CatalogHandler
	PackageHandler *PackageHandler
	OrderHandler   *OrderHandler
	UploadHandler  *UploadHandler
	Checks         map[string]Pinger
}

func NewDeps(db *sqlx.DB, cfg config.Config, ext External) *Deps {
	if ext.Events == nil {
		ext.Events = events.Noop{}
	}
	if ext.Relay == nil {
		ext.Relay = upload.Disabled{}
	}
	if ext.Metrics == nil {
		ext.Metrics = metrics.New()
	}

	userRepo := repos.NewUserRepo(db)
	itemRepo := repos.NewCatalogRepo(db)
	pkgRepo := repos.NewPackageRepo(db)
	orderRepo := repos.NewOrderRepo(db)

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTTL)
	authSvc := services.NewAuthService(userRepo, tokens)
	userSvc := services.NewUserService(userRepo)
	catalogSvc := services.NewCatalogService(itemRepo)
	pkgSvc := services.NewPackageService(pkgRepo)
	orderSvc := services.NewOrderService(orderRepo, itemRepo, ext.Events, ext.Metrics)
	uploadSvc := services.NewUploadService(ext.Relay, cfg.UploadMaxBytes, ext.Metrics)

	checks := map[string]Pinger{
		"db": PingFunc(func(ctx context.Context) error { return repos.Ping(ctx, db) }),
	}
	for name, p := range ext.Checks {
		checks[name] = p
	}

	return &Deps{
		Auth:           authSvc,
		Metrics:        ext.Metrics,
		AuthHandler:    &AuthHandler{Auth: authSvc, Users: userSvc, CookieSecure: cfg.CookieSecure},
		AdminHandler:   &AdminHandler{Users: userSvc, Metrics: ext.Metrics},
		CatalogHandler: &CatalogHandler{Catalog: catalogSvc},
		PackageHandler: &PackageHandler{Packages: pkgSvc},
		OrderHandler:   &OrderHandler{Orders: orderSvc},
		UploadHandler:  &UploadHandler{Uploads: uploadSvc},
		Checks:         checks,
	}
}
