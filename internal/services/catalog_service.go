package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wapistore/internal/apperr"
	"wapistore/internal/domain"
	"wapistore/internal/repos"
)

type CatalogInput struct {
	Title       string
	Description string
	Price       decimal.Decimal
	Quantity    int
	File        string
}

func (in CatalogInput) check() error {
	if in.Price.IsNegative() {
		return apperr.Validation("price must not be negative")
	}
	if in.Quantity < 0 {
		return apperr.Validation("quantity must not be negative")
	}
	return nil
}

type CatalogService struct {
	Items *repos.CatalogRepo
}

func NewCatalogService(items *repos.CatalogRepo) *CatalogService {
	return &CatalogService{Items: items}
}

func (s *CatalogService) List(ctx context.Context) ([]domain.CatalogItem, error) {
	items, err := s.Items.List(ctx)
	return items, apperr.FromStore(err, "catalog item")
}

func (s *CatalogService) Get(ctx context.Context, id string) (*domain.CatalogItem, error) {
	it, err := s.Items.ByID(ctx, id)
	if err != nil {
		return nil, apperr.FromStore(err, "catalog item")
	}
	return it, nil
}

func (s *CatalogService) Create(ctx context.Context, in CatalogInput) (*domain.CatalogItem, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	now := domain.Now()
	it := domain.CatalogItem{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price.Round(2),
		Quantity:    in.Quantity,
		File:        strings.TrimSpace(in.File),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Items.Create(ctx, it); err != nil {
		return nil, apperr.FromStore(err, "catalog item")
	}
	return &it, nil
}

// Update replaces the editable fields, including the stock count.
func (s *CatalogService) Update(ctx context.Context, id string, in CatalogInput) (*domain.CatalogItem, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	cur, err := s.Items.ByID(ctx, id)
	if err != nil {
		return nil, apperr.FromStore(err, "catalog item")
	}
	cur.Title = strings.TrimSpace(in.Title)
	cur.Description = strings.TrimSpace(in.Description)
	cur.Price = in.Price.Round(2)
	cur.Quantity = in.Quantity
	cur.File = strings.TrimSpace(in.File)
	cur.UpdatedAt = domain.Now()
	if err := s.Items.Update(ctx, *cur); err != nil {
		return nil, apperr.FromStore(err, "catalog item")
	}
	return cur, nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	return apperr.FromStore(s.Items.Delete(ctx, id), "catalog item")
}
