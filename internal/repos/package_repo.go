package repos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"wapistore/internal/domain"
)

type PackageRepo struct{ db *sqlx.DB }

func NewPackageRepo(db *sqlx.DB) *PackageRepo { return &PackageRepo{db: db} }

// packageRow is a packages row joined with its pricing row.
type packageRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Subtitle     string `db:"subtitle"`
	Icon         string `db:"icon"`
	Gradient     string `db:"gradient"`
	BgGradient   string `db:"bg_gradient"`
	BorderColor  string `db:"border_color"`
	Badge        string `db:"badge"`
	FeaturesJSON string `db:"features_json"`
	Popular      bool   `db:"popular"`
	Instant      bool   `db:"instant"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
	domain.Pricing
}

func (r packageRow) toDomain() (domain.Package, error) {
	p := domain.Package{
		ID: r.ID, Name: r.Name, Subtitle: r.Subtitle, Icon: r.Icon,
		Gradient: r.Gradient, BgGradient: r.BgGradient, BorderColor: r.BorderColor, Badge: r.Badge,
		Popular: r.Popular, Instant: r.Instant, Pricing: r.Pricing,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
		Features: []string{},
	}
	if r.FeaturesJSON != "" {
		if err := json.Unmarshal([]byte(r.FeaturesJSON), &p.Features); err != nil {
			return domain.Package{}, fmt.Errorf("package %s features: %w", r.ID, err)
		}
	}
	return p, nil
}

const packageSelect = `
	SELECT p.id, p.name, p.subtitle, p.icon, p.gradient, p.bg_gradient, p.border_color, p.badge,
	       p.features_json, p.popular, p.instant, p.created_at, p.updated_at,
	       COALESCE(pr.id,'') AS pricing_id, COALESCE(pr.setup,'') AS setup,
	       COALESCE(pr.messaging,'') AS messaging, COALESCE(pr.note,'') AS note
	FROM packages p
	LEFT JOIN pricing pr ON pr.package_id = p.id`

func (r *PackageRepo) List(ctx context.Context) ([]domain.Package, error) {
	var rows []packageRow
	if err := r.db.SelectContext(ctx, &rows, packageSelect+` ORDER BY p.created_at, p.id`); err != nil {
		return nil, err
	}
	out := make([]domain.Package, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *PackageRepo) ByID(ctx context.Context, id string) (*domain.Package, error) {
	var row packageRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(packageSelect+` WHERE p.id=?`), id); err != nil {
		return nil, err
	}
	p, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts the package and its pricing in one transaction.
func (r *PackageRepo) Create(ctx context.Context, p domain.Package) error {
	features, err := json.Marshal(p.Features)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO packages(id,name,subtitle,icon,gradient,bg_gradient,border_color,badge,features_json,popular,instant,created_at,updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`),
		p.ID, p.Name, p.Subtitle, p.Icon, p.Gradient, p.BgGradient, p.BorderColor, p.Badge,
		string(features), p.Popular, p.Instant, p.CreatedAt, p.UpdatedAt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO pricing(id,package_id,setup,messaging,note) VALUES(?,?,?,?,?)`),
		p.Pricing.ID, p.ID, p.Pricing.Setup, p.Pricing.Messaging, p.Pricing.Note); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a package and its pricing row.
func (r *PackageRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM pricing WHERE package_id=?`), id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM packages WHERE id=?`), id)
	if err != nil {
		return err
	}
	if err := expectOne(res); err != nil {
		return err
	}
	return tx.Commit()
}
