package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"wapistore/internal/apperr"
	"wapistore/internal/domain"
	"wapistore/internal/repos"
)

type PackageService struct {
	Packages *repos.PackageRepo
}

func NewPackageService(pkgs *repos.PackageRepo) *PackageService {
	return &PackageService{Packages: pkgs}
}

func (s *PackageService) List(ctx context.Context) ([]domain.Package, error) {
	out, err := s.Packages.List(ctx)
	if err != nil {
		return nil, apperr.FromStore(err, "package")
	}
	return out, nil
}

func (s *PackageService) Get(ctx context.Context, id string) (*domain.Package, error) {
	p, err := s.Packages.ByID(ctx, id)
	if err != nil {
		return nil, apperr.FromStore(err, "package")
	}
	return p, nil
}

// Create stores p with fresh ids; features keep their order, blanks are dropped.
func (s *PackageService) Create(ctx context.Context, p domain.Package) (*domain.Package, error) {
	now := domain.Now()
	p.ID = uuid.NewString()
	p.Pricing.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now
	features := make([]string, 0, len(p.Features))
	for _, f := range p.Features {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	p.Features = features
	if err := s.Packages.Create(ctx, p); err != nil {
		return nil, apperr.FromStore(err, "package")
	}
	return &p, nil
}

func (s *PackageService) Delete(ctx context.Context, id string) error {
	return apperr.FromStore(s.Packages.Delete(ctx, id), "package")
}
