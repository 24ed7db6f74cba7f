package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// prices go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// TimeLayout is fixed-width so stored timestamps sort lexically.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Now returns the current UTC time in TimeLayout.
func Now() string { return time.Now().UTC().Format(TimeLayout) }

// CatalogItem is a sellable Business API listing with a stock count.
type CatalogItem struct {
	ID          string          `db:"id" json:"id"`
	Title       string          `db:"title" json:"title"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Quantity    int             `db:"quantity" json:"quantity"`
	File        string          `db:"file" json:"file"`
	CreatedAt   string          `db:"created_at" json:"createdAt"`
	UpdatedAt   string          `db:"updated_at" json:"updatedAt"`
}

type Pricing struct {
	ID        string `db:"pricing_id" json:"id"`
	Setup     string `db:"setup" json:"setup"`
	Messaging string `db:"messaging" json:"messaging"`
	Note      string `db:"note" json:"note"`
}

// Package is a marketing pricing tier; it has no stock.
type Package struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Subtitle    string   `json:"subtitle"`
	Icon        string   `json:"icon"`
	Gradient    string   `json:"gradient"`
	BgGradient  string   `json:"bgGradient"`
	BorderColor string   `json:"borderColor"`
	Badge       string   `json:"badge"`
	Features    []string `json:"features"`
	Popular     bool     `json:"popular"`
	Instant     bool     `json:"instant"`
	Pricing     Pricing  `json:"pricing"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}
