package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// LineDTO is one cart line with its product summary.
type LineDTO struct {
	ID         uuid.UUID          `json:"id"`
	Product    catalog.ProductDTO `json:"product"`
	Quantity   int                `json:"quantity"`
	Size       *string            `json:"size,omitempty"`
	UnitPrice  decimal.Decimal    `json:"unit_price"`
	TotalPrice decimal.Decimal    `json:"total_price"`
}

// View is the full cart page payload.
type View struct {
	ID      uuid.UUID            `json:"id"`
	Items   []LineDTO            `json:"items"`
	Related []catalog.ProductDTO `json:"related"`
	Totals
}

// LineResult is returned by item mutations together with the new cart count.
type LineResult struct {
	Item      *LineDTO `json:"item,omitempty"`
	Removed   bool     `json:"removed"`
	CartCount int      `json:"cart_count"`
}

// NewLineDTO maps a cart line whose Product is loaded.
func NewLineDTO(item models.CartItem) LineDTO {
	dto := LineDTO{
		ID:         item.ID,
		Quantity:   item.Quantity,
		Size:       item.Size,
		UnitPrice:  catalog.FinalPrice(item.Product),
		TotalPrice: LineTotal(item),
	}
	if item.Product != nil {
		dto.Product = catalog.NewProductDTO(item.Product)
	}
	return dto
}
