package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// CategoryDTO is the public category payload.
type CategoryDTO struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Slug     string    `json:"slug"`
	ImageURL *string   `json:"image_url,omitempty"`
}

// ProductDTO is the public product payload with derived pricing.
type ProductDTO struct {
	ID              uuid.UUID        `json:"id"`
	CategoryID      uuid.UUID        `json:"category_id"`
	Name            string           `json:"name"`
	Slug            string           `json:"slug"`
	Description     string           `json:"description"`
	Brand           string           `json:"brand"`
	Price           decimal.Decimal  `json:"price"`
	DiscountPrice   *decimal.Decimal `json:"discount_price,omitempty"`
	FinalPrice      decimal.Decimal  `json:"final_price"`
	DiscountPercent int              `json:"discount_percent"`
	Stock           int              `json:"stock"`
	InStock         bool             `json:"in_stock"`
	Sizes           []string         `json:"sizes"`
	ImageURL        *string          `json:"image_url,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// ProductPage is a cursor page of products.
type ProductPage struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// HomeResult backs the landing page.
type HomeResult struct {
	ProductPage
	Categories []CategoryDTO `json:"categories"`
}

// CategoryProductsResult lists one category's products.
type CategoryProductsResult struct {
	Category CategoryDTO `json:"category"`
	ProductPage
}

// ProductDetailResult is a product plus related items from its category.
type ProductDetailResult struct {
	Product ProductDTO   `json:"product"`
	Related []ProductDTO `json:"related"`
}

// NewCategoryDTO maps the persisted category.
func NewCategoryDTO(c *models.Category) CategoryDTO {
	return CategoryDTO{
		ID:       c.ID,
		Name:     c.Name,
		Slug:     c.Slug,
		ImageURL: c.ImageURL,
	}
}

// NewProductDTO maps the persisted product and computes its derived prices.
func NewProductDTO(p *models.Product) ProductDTO {
	sizes := append([]string{}, p.Sizes...)
	return ProductDTO{
		ID:              p.ID,
		CategoryID:      p.CategoryID,
		Name:            p.Name,
		Slug:            p.Slug,
		Description:     p.Description,
		Brand:           p.Brand,
		Price:           p.Price,
		DiscountPrice:   p.DiscountPrice,
		FinalPrice:      FinalPrice(p),
		DiscountPercent: DiscountPercent(p),
		Stock:           p.Stock,
		InStock:         InStock(p),
		Sizes:           sizes,
		ImageURL:        p.ImageURL,
		CreatedAt:       p.CreatedAt,
	}
}

// NewProductDTOs maps a slice of products.
func NewProductDTOs(products []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(products))
	for i := range products {
		out = append(out, NewProductDTO(&products[i]))
	}
	return out
}

func newCategoryDTOs(categories []models.Category) []CategoryDTO {
	out := make([]CategoryDTO, 0, len(categories))
	for i := range categories {
		out = append(out, NewCategoryDTO(&categories[i]))
	}
	return out
}
