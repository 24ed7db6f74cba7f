package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderApproved  OrderStatus = "approved"
	OrderDeclined  OrderStatus = "declined"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every valid status in display order.
var OrderStatuses = []OrderStatus{OrderPending, OrderApproved, OrderDeclined, OrderCompleted, OrderCancelled}

func (s OrderStatus) IsValid() bool {
	for _, candidate := range OrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	s := OrderStatus(value)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid order status %q", value)
	}
	return s, nil
}

type Order struct {
	ID                   string          `db:"id" json:"id"`
	UserID               *string         `db:"user_id" json:"userId"`
	Name                 string          `db:"name" json:"name"`
	Email                string          `db:"email" json:"email"`
	ActiveWhatsappNumber string          `db:"active_whatsapp_number" json:"activeWhatsappNumber"`
	PaymentMethod        string          `db:"payment_method" json:"paymentMethod"`
	File                 string          `db:"file" json:"file"`
	ProductID            string          `db:"product_id" json:"productId"`
	ProductName          string          `db:"product_name" json:"productName"`
	Quantity             int             `db:"quantity" json:"quantity"`
	TotalPrice           decimal.Decimal `db:"total_price" json:"totalPrice"`
	Status               OrderStatus     `db:"status" json:"status"`
	CreatedAt            string          `db:"created_at" json:"createdAt"`
	UpdatedAt            string          `db:"updated_at" json:"updatedAt"`
}

// OrderPatch carries a partial update; nil fields are left untouched.
type OrderPatch struct {
	Status               *OrderStatus
	Name                 *string
	Email                *string
	ActiveWhatsappNumber *string
	PaymentMethod        *string
	File                 *string
	ProductID            *string
	ProductName          *string
	Quantity             *int
	TotalPrice           *decimal.Decimal
}

func (p OrderPatch) Empty() bool {
	return p.Status == nil && p.Name == nil && p.Email == nil && p.ActiveWhatsappNumber == nil &&
		p.PaymentMethod == nil && p.File == nil && p.ProductID == nil && p.ProductName == nil && p.Quantity == nil && p.TotalPrice == nil
}

// OrderFilter drives the paginated admin listing.
type OrderFilter struct {
	Status        OrderStatus
	PaymentMethod string
	Search        string
	UserID        string
	SortBy        string
	SortDesc      bool
	Page          int
	Limit         int
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}
