package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry as returned by the products service.
type Product struct {
	ID                 ID                  `json:"id"`
	Name               string              `json:"name"`
	Slug               string              `json:"slug,omitempty"`
	ShortDescription   string              `json:"short_description,omitempty"`
	Description        string              `json:"description,omitempty"`
	Category           ID                  `json:"category,omitempty"`
	CategoryName       string              `json:"category_name,omitempty"`
	Price              decimal.Decimal     `json:"price"`
	DiscountPrice      decimal.NullDecimal `json:"discount_price"`
	FinalPrice         decimal.NullDecimal `json:"final_price"`
	HasDiscount        bool                `json:"has_discount"`
	DiscountPercentage int                 `json:"discount_percentage"`
	Image              string              `json:"image,omitempty"`
	Images             []string            `json:"images,omitempty"`
	Stock              int                 `json:"stock"`
	SKU                string              `json:"sku,omitempty"`
	Rating             decimal.Decimal     `json:"rating"`
	ReviewCount        int                 `json:"review_count"`
	IsActive           bool                `json:"is_active"`
	IsFeatured         bool                `json:"is_featured"`
	IsAvailable        bool                `json:"is_available"`
	CreatedAt          *time.Time          `json:"created_at,omitempty"`
}

// EffectivePrice is the price a shopper pays: the final (discounted) price
// when the API sent a non-zero one, otherwise the base price.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.FinalPrice.Valid && !p.FinalPrice.Decimal.IsZero() {
		return p.FinalPrice.Decimal
	}
	return p.Price
}

// Category groups products.
type Category struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	IsActive    bool   `json:"is_active"`
}

// ProductFilter narrows a product listing. Empty fields are not sent.
type ProductFilter struct {
	Category ID     `json:"category,omitempty"`
	Search   string `json:"search"`
	Sort     string `json:"sort"`
}

// DefaultSort lists newest products first.
const DefaultSort = "-created_at"

// DefaultProductFilter returns the filter a fresh catalog view starts with.
func DefaultProductFilter() ProductFilter {
	return ProductFilter{Sort: DefaultSort}
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Count    int       `json:"count"`
	Next     string    `json:"next,omitempty"`
	Previous string    `json:"previous,omitempty"`
	Results  []Product `json:"results"`
}
