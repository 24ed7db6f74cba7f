package repos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"wapistore/internal/domain"
	applog "wapistore/internal/log"
)

// BcryptCost is shared by signup, admin-created users and seeding.
const BcryptCost = 12

type SeedOptions struct {
	SuperAdminEmail    string
	SuperAdminPassword string
	SuperAdminName     string
	Demo               bool
}

// Seed ensures the configured SUPER_ADMIN exists and, when asked, inserts demo
// catalog data into empty tables. Safe to run on every start.
func Seed(ctx context.Context, db *sqlx.DB, opts SeedOptions) error {
	if opts.SuperAdminEmail != "" && opts.SuperAdminPassword != "" {
		if err := seedSuperAdmin(ctx, db, opts); err != nil {
			return err
		}
	}
	if opts.Demo {
		if err := seedCatalog(ctx, db); err != nil {
			return err
		}
		if err := seedPackages(ctx, db); err != nil {
			return err
		}
	}
	return nil
}

func seedSuperAdmin(ctx context.Context, db *sqlx.DB, opts SeedOptions) error {
	users := NewUserRepo(db)
	if _, err := users.ByEmail(ctx, opts.SuperAdminEmail); err == nil {
		return nil
	} else if !isNoRows(err) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.SuperAdminPassword), BcryptCost)
	if err != nil {
		return err
	}
	name := opts.SuperAdminName
	if strings.TrimSpace(name) == "" {
		name = "Super Admin"
	}
	now := domain.Now()
	u := domain.User{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(strings.TrimSpace(opts.SuperAdminEmail)),
		Name:      name,
		Hash:      string(hash),
		Role:      domain.RoleSuperAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := users.Create(ctx, u); err != nil {
		return err
	}
	applog.Logger().Info().Str("action", "seed.superadmin").Str("user_id", u.ID).Send()
	return nil
}

func seedCatalog(ctx context.Context, db *sqlx.DB) error {
	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM catalog_items`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	items := NewCatalogRepo(db)
	now := domain.Now()
	for _, it := range []domain.CatalogItem{
		{Title: "WhatsApp Business API Starter", Description: "Verified number with 1,000 conversations per month.", Price: decimal.RequireFromString("49.00"), Quantity: 25},
		{Title: "WhatsApp Business API Growth", Description: "Two numbers, shared inbox and 10,000 conversations per month.", Price: decimal.RequireFromString("149.00"), Quantity: 10},
		{Title: "WhatsApp Business API Enterprise", Description: "Dedicated onboarding and unlimited numbers.", Price: decimal.RequireFromString("499.00"), Quantity: 3},
	} {
		it.ID = uuid.NewString()
		it.CreatedAt, it.UpdatedAt = now, now
		if err := items.Create(ctx, it); err != nil {
			return err
		}
	}
	applog.Logger().Info().Str("action", "seed.catalog").Int("items", 3).Send()
	return nil
}

func seedPackages(ctx context.Context, db *sqlx.DB) error {
	var n int
	if err := db.GetContext(ctx, &n, `SELECT COUNT(*) FROM packages`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	pkgs := NewPackageRepo(db)
	now := domain.Now()
	for _, p := range []domain.Package{
		{
			Name: "Basic", Subtitle: "For small shops", Icon: "zap",
			Gradient: "from-green-400 to-emerald-500", BgGradient: "from-green-50 to-emerald-50",
			BorderColor: "border-green-200", Badge: "Starter",
			Features: []string{"1 WhatsApp number", "Broadcast messages", "Email support"},
			Instant:  true,
			Pricing:  domain.Pricing{Setup: "Rp 500.000", Messaging: "Rp 350 / conversation", Note: "Billed monthly"},
		},
		{
			Name: "Pro", Subtitle: "For growing teams", Icon: "rocket",
			Gradient: "from-blue-500 to-indigo-600", BgGradient: "from-blue-50 to-indigo-50",
			BorderColor: "border-blue-200", Badge: "Most popular",
			Features: []string{"3 WhatsApp numbers", "Chatbot builder", "Shared inbox", "Priority support"},
			Popular:  true,
			Pricing:  domain.Pricing{Setup: "Rp 1.500.000", Messaging: "Rp 300 / conversation", Note: "Billed monthly"},
		},
	} {
		p.ID = uuid.NewString()
		p.Pricing.ID = uuid.NewString()
		p.CreatedAt, p.UpdatedAt = now, now
		if err := pkgs.Create(ctx, p); err != nil {
			return err
		}
	}
	applog.Logger().Info().Str("action", "seed.packages").Int("packages", 2).Send()
	return nil
}
