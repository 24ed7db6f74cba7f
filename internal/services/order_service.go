package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wapistore/internal/apperr"
	"wapistore/internal/auth"
	"wapistore/internal/domain"
	"wapistore/internal/events"
	applog "wapistore/internal/log"
	"wapistore/internal/metrics"
	"wapistore/internal/repos"
)

// OrderInput is a checkout request. Ids and status are never taken from the client.
type OrderInput struct {
	Name                 string
	Email                string
	ActiveWhatsappNumber string
	PaymentMethod        string
	File                 string
	ProductID            string
	ProductName          string
	Quantity             int
	TotalPrice           decimal.Decimal
}

type OrderService struct {
	Orders  *repos.OrderRepo
	Items   *repos.CatalogRepo
	Events  events.Publisher
	Metrics *metrics.Metrics
}

func NewOrderService(orders *repos.OrderRepo, items *repos.CatalogRepo, pub events.Publisher, m *metrics.Metrics) *OrderService {
	if pub == nil {
		pub = events.Noop{}
	}
	return &OrderService{Orders: orders, Items: items, Events: pub, Metrics: m}
}

// Create places a pending order for caller. The stored total is price x quantity
// of the referenced item; the client's figure is only used for comparison.
func (s *OrderService) Create(ctx context.Context, caller auth.Identity, in OrderInput) (*domain.Order, error) {
	if caller.Anonymous() {
		return nil, apperr.Unauthenticated()
	}
	if in.Quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}
	item, err := s.Items.ByID(ctx, in.ProductID)
	if err != nil {
		if err = apperr.FromStore(err, "catalog item"); apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Validation("productId does not reference a catalog item")
		}
		return nil, err
	}

	now := domain.Now()
	uid := caller.UserID
	name := strings.TrimSpace(in.ProductName)
	if name == "" {
		name = item.Title
	}
	o := domain.Order{
		ID:                   uuid.NewString(),
		UserID:               &uid,
		Name:                 strings.TrimSpace(in.Name),
		Email:                strings.TrimSpace(in.Email),
		ActiveWhatsappNumber: strings.TrimSpace(in.ActiveWhatsappNumber),
		PaymentMethod:        strings.TrimSpace(in.PaymentMethod),
		File:                 strings.TrimSpace(in.File),
		ProductID:            item.ID,
		ProductName:          name,
		Quantity:             in.Quantity,
		TotalPrice:           item.Price.Mul(decimal.NewFromInt(int64(in.Quantity))).Round(2),
		Status:               domain.OrderPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.Orders.Create(ctx, o); err != nil {
		return nil, apperr.FromStore(err, "order")
	}
	s.Metrics.OrderCreated()
	s.publish(ctx, events.OrderCreated, o.ID, o)
	return &o, nil
}

// List returns one page of orders matching f.
func (s *OrderService) List(ctx context.Context, f domain.OrderFilter) ([]domain.Order, domain.Pagination, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	out, total, err := s.Orders.List(ctx, f)
	if err != nil {
		return nil, domain.Pagination{}, apperr.FromStore(err, "order")
	}
	return out, domain.NewPagination(f.Page, f.Limit, total), nil
}

// Get returns the order to its owner or to staff; anyone else sees NotFound.
func (s *OrderService) Get(ctx context.Context, caller auth.Identity, id string) (*domain.Order, error) {
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, apperr.FromStore(err, "order")
	}
	if auth.Require(caller, auth.Staff...) == nil {
		return o, nil
	}
	if caller.Anonymous() || o.UserID == nil || *o.UserID != caller.UserID {
		return nil, apperr.NotFound("order not found")
	}
	return o, nil
}

// Dashboard lists the caller's own orders.
func (s *OrderService) Dashboard(ctx context.Context, caller auth.Identity) ([]domain.Order, error) {
	if caller.Anonymous() {
		return nil, apperr.Unauthenticated()
	}
	out, err := s.Orders.ListByUser(ctx, caller.UserID)
	if err != nil {
		return nil, apperr.FromStore(err, "order")
	}
	return out, nil
}

// Update applies p. Moving to approved runs the stock decrement in the same
// transaction as the status write; other changes never touch stock.
func (s *OrderService) Update(ctx context.Context, id string, p domain.OrderPatch) (*domain.Order, error) {
	if p.Empty() {
		return nil, apperr.Validation("no fields to update")
	}
	if p.Quantity != nil && *p.Quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}
	if p.TotalPrice != nil && p.TotalPrice.IsNegative() {
		return nil, apperr.Validation("totalPrice must not be negative")
	}
	if p.ProductID != nil && p.ProductName == nil {
		item, err := s.Items.ByID(ctx, *p.ProductID)
		if err != nil {
			if err = apperr.FromStore(err, "catalog item"); apperr.KindOf(err) == apperr.KindNotFound {
				return nil, apperr.Validation("productId does not reference a catalog item")
			}
			return nil, err
		}
		p.ProductName = &item.Title
	}

	now := domain.Now()
	if p.Status != nil && *p.Status == domain.OrderApproved {
		o, err := s.Orders.Approve(ctx, id, p, now)
		s.Metrics.Approval(approvalResult(err))
		if err != nil {
			return nil, err
		}
		s.publish(ctx, events.OrderApproved, o.ID, map[string]any{
			"productId": o.ProductID,
			"quantity":  o.Quantity,
		})
		return o, nil
	}

	o, err := s.Orders.Update(ctx, id, p, now)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.OrderUpdated, o.ID, map[string]any{"status": o.Status})
	return o, nil
}

func (s *OrderService) Delete(ctx context.Context, id string) error {
	if err := s.Orders.Delete(ctx, id); err != nil {
		return apperr.FromStore(err, "order")
	}
	s.publish(ctx, events.OrderDeleted, id, nil)
	return nil
}

// publish never fails the request; the order is already committed.
func (s *OrderService) publish(ctx context.Context, eventType, orderID string, payload any) {
	ev, err := events.NewEnvelope(eventType, orderID, payload)
	if err == nil {
		err = s.Events.Publish(ctx, ev)
	}
	if err != nil {
		applog.Logger().Error().Str("action", "events.publish").Str("type", eventType).Str("order_id", orderID).Err(err).Send()
	}
}

func approvalResult(err error) string {
	if err == nil {
		return "ok"
	}
	switch apperr.KindOf(err) {
	case apperr.KindConflict:
		return "conflict"
	case apperr.KindNotFound:
		return "not_found"
	case apperr.KindValidation:
		return "invalid"
	}
	return "error"
}
