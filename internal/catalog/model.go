package catalog

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Slug        string     `json:"slug" db:"slug"`
	Description string     `json:"description,omitempty" db:"description"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

type Product struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	Name             string           `json:"name" db:"name"`
	Slug             string           `json:"slug" db:"slug"`
	Description      string           `json:"description" db:"description"`
	ShortDescription string           `json:"short_description" db:"short_description"`
	CategoryID       uuid.UUID        `json:"category_id" db:"category_id"`
	CategoryName     string           `json:"category_name,omitempty" db:"-"`
	Price            decimal.Decimal  `json:"price" db:"price"`
	ComparePrice     *decimal.Decimal `json:"compare_price,omitempty" db:"compare_price"`
	StockQuantity    int              `json:"stock_quantity" db:"stock_quantity"`
	SKU              string           `json:"sku" db:"sku"`
	IsActive         bool             `json:"is_active" db:"is_active"`
	IsFeatured       bool             `json:"is_featured" db:"is_featured"`
	Images           []ProductImage   `json:"images,omitempty" db:"-"`
	// Annotated from reviews on read paths, never stored.
	AverageRating float64   `json:"average_rating" db:"-"`
	ReviewCount   int       `json:"review_count" db:"-"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// IsInStock reports whether any stock remains.
func (p *Product) IsInStock() bool {
	return p.StockQuantity > 0
}

// DiscountPercentage is 0 unless compare_price is set and exceeds price;
// otherwise (compare-price)/compare*100 rounded to two decimal places.
func (p *Product) DiscountPercentage() decimal.Decimal {
	if p.ComparePrice == nil || p.ComparePrice.Cmp(p.Price) <= 0 {
		return decimal.Zero
	}
	return p.ComparePrice.Sub(p.Price).
		Div(*p.ComparePrice).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

type ProductImage struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	URL       string    `json:"url" db:"url"`
	AltText   string    `json:"alt_text,omitempty" db:"alt_text"`
	IsPrimary bool      `json:"is_primary" db:"is_primary"`
	SortOrder int       `json:"sort_order" db:"sort_order"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
